package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/therealutkarshpriyadarshi/shortgen/internal/config"
	"github.com/therealutkarshpriyadarshi/shortgen/internal/logging"
	"github.com/therealutkarshpriyadarshi/shortgen/internal/metrics"
	"github.com/therealutkarshpriyadarshi/shortgen/internal/script"
	"github.com/therealutkarshpriyadarshi/shortgen/internal/timeline"
	"github.com/therealutkarshpriyadarshi/shortgen/internal/tracing"
	"github.com/therealutkarshpriyadarshi/shortgen/internal/translate"
	"github.com/therealutkarshpriyadarshi/shortgen/pkg/models"
)

const (
	TopicSourceRequest = "request"
	TopicSourceConfig  = "config"
)

// Config holds the settings of a pipeline service
type Config struct {
	Pipeline config.PipelineConfig
	// TempDir holds the per-run work directories
	TempDir string
	// LockTTL bounds how long a topic stays locked if a worker dies
	LockTTL time.Duration
	// KeepWorkDir leaves intermediate audio and images on disk
	KeepWorkDir bool
}

// Service generates videos for topics
type Service struct {
	cfg    Config
	opts   timeline.Options
	deps   Deps
	logger *logging.Logger
	now    func() time.Time
}

// New creates a pipeline service. The timeline settings are validated here
// so a bad configuration fails before any provider is called.
func New(cfg Config, deps Deps, logger *logging.Logger) (*Service, error) {
	opts, err := cfg.Pipeline.TimelineOptions()
	if err != nil {
		return nil, fmt.Errorf("invalid timeline settings: %w", err)
	}
	if err := deps.validate(); err != nil {
		return nil, err
	}

	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 30 * time.Minute
	}
	if cfg.Pipeline.BaseLanguage == "" {
		cfg.Pipeline.BaseLanguage = script.DefaultLanguage
	}
	if len(cfg.Pipeline.Languages) == 0 {
		cfg.Pipeline.Languages = []string{cfg.Pipeline.BaseLanguage}
	}
	if cfg.Pipeline.ImagesPerVideo <= 0 {
		cfg.Pipeline.ImagesPerVideo = 6
	}
	if cfg.Pipeline.CaptionSeconds <= 0 {
		cfg.Pipeline.CaptionSeconds = 3.0
	}

	return &Service{
		cfg:    cfg,
		opts:   opts,
		deps:   deps,
		logger: logger,
		now:    time.Now,
	}, nil
}

// run is the resolved settings of one Run call
type run struct {
	id        string
	profile   Profile
	opts      timeline.Options
	languages []string
	images    int
	publish   bool
	jobID     string
	date      time.Time
}

// topicRun carries what every language of a topic shares
type topicRun struct {
	*run
	topic   models.Topic
	slug    string
	script  *models.Script
	images  []string
	workDir string
	outDir  string
	log     *logging.Logger
}

// Run generates the videos of every topic of the request. Topics and
// languages that fail are reported in the result and the run moves on; an
// error is returned only when no topic could be started.
func (s *Service) Run(ctx context.Context, req Request) (*RunResult, error) {
	r, err := s.resolve(req)
	if err != nil {
		return nil, err
	}

	log := s.logger.WithFields(map[string]interface{}{"run_id": r.id, "profile": r.profile.Name})
	if r.jobID != "" {
		log = log.WithJobID(r.jobID)
	}

	topics, source, err := s.topics(ctx, r, req)
	if err != nil {
		return nil, err
	}
	log.WithFields(map[string]interface{}{"topics": len(topics), "source": source}).Info("Run started")

	result := &RunResult{Profile: r.profile.Name, TopicSource: source}
	for i, topic := range topics {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		tr := s.processTopic(ctx, r, topic, log)
		result.Topics = append(result.Topics, tr)

		if req.Progress != nil {
			req.Progress(float64(i+1) / float64(len(topics)) * 100)
		}
	}

	log.WithField("status", result.Status()).Info("Run finished")
	return result, nil
}

func (s *Service) resolve(req Request) (*run, error) {
	profile, err := LookupProfile(req.Profile, s.opts.Padding)
	if err != nil {
		return nil, err
	}

	opts := s.opts
	opts.Padding = profile.Padding
	if req.TargetSeconds > 0 {
		opts.TargetTotal = req.TargetSeconds
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	r := &run{
		id:        uuid.New().String(),
		profile:   profile,
		opts:      opts,
		languages: s.cfg.Pipeline.Languages,
		images:    s.cfg.Pipeline.ImagesPerVideo,
		publish:   s.cfg.Pipeline.Publish || req.Publish,
		jobID:     req.JobID,
		date:      s.now(),
	}
	if len(req.Languages) > 0 {
		r.languages = req.Languages
	}
	if req.ImagesPerVideo > 0 {
		r.images = req.ImagesPerVideo
	}
	return r, nil
}

func (s *Service) topics(ctx context.Context, r *run, req Request) ([]models.Topic, string, error) {
	var topics []models.Topic
	for _, title := range req.Topics {
		if title = strings.TrimSpace(title); title != "" {
			topics = append(topics, models.Topic{Title: title})
		}
	}
	if len(topics) > 0 {
		return topics, TopicSourceRequest, nil
	}

	if !r.profile.DiscoverTopics {
		theme := req.Theme
		if theme == "" {
			theme = s.cfg.Pipeline.Theme
		}
		if strings.TrimSpace(theme) == "" {
			return nil, "", errors.New("no theme configured")
		}
		return []models.Topic{{Title: theme}}, TopicSourceConfig, nil
	}

	if s.deps.Topics == nil {
		return nil, "", errors.New("no topics requested and no topic source configured")
	}
	out, err := s.deps.Topics.Top(ctx, s.cfg.Pipeline.TopicLimit)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch topics: %w", err)
	}
	return out.Value, out.Source, nil
}

// stage runs one named step inside a span and records its duration
func (s *Service) stage(ctx context.Context, log *logging.Logger, name string, fn func(ctx context.Context) error) error {
	start := time.Now()
	err := tracing.Stage(ctx, name, fn)
	duration := time.Since(start)

	metrics.RecordStage(name, duration.Seconds())
	log.LogStage(name, duration, err)
	if errors.Is(err, timeline.ErrInvalidInput) {
		metrics.RecordInvalidInput(name)
	}
	return err
}

func (s *Service) processTopic(ctx context.Context, r *run, topic models.Topic, runLog *logging.Logger) *TopicResult {
	tr := &topicRun{
		run:   r,
		topic: topic,
		slug:  Slug(topic.Title),
		log:   runLog.WithTopic(topic.Title),
	}
	result := &TopicResult{Topic: topic.Title, Slug: tr.slug}

	if s.deps.Locker != nil {
		resource := "topic:" + tr.slug
		acquired, err := s.deps.Locker.AcquireLock(ctx, resource, s.cfg.LockTTL)
		switch {
		case err != nil:
			tr.log.WithError(err).Warn("Failed to acquire topic lock, continuing without it")
		case !acquired:
			result.Skipped = true
			result.Reason = "topic is already being generated"
			tr.log.Warn("Topic locked by another worker, skipping")
			return result
		default:
			defer func() {
				if err := s.deps.Locker.ReleaseLock(context.Background(), resource); err != nil {
					tr.log.WithError(err).Warn("Failed to release topic lock")
				}
			}()
		}
	}

	tr.workDir = filepath.Join(s.cfg.TempDir, r.id, tr.slug)
	tr.outDir = filepath.Join(s.cfg.Pipeline.OutputDir, r.date.Format("2006-01-02"), tr.slug)
	for _, dir := range []string{tr.workDir, tr.outDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			result.Err = fmt.Errorf("failed to create directory: %w", err)
			return result
		}
	}
	if !s.cfg.KeepWorkDir {
		defer os.RemoveAll(tr.workDir)
	}

	err := s.stage(ctx, tr.log, "script", func(ctx context.Context) error {
		sc, err := s.writeScript(ctx, r.profile, topic)
		if err != nil {
			return err
		}
		if len(sc.Blocks) == 0 {
			return fmt.Errorf("%w: script for %q has no blocks", timeline.ErrInvalidInput, topic.Title)
		}
		tr.script = sc
		return nil
	})
	if err != nil {
		result.Err = fmt.Errorf("script: %w", err)
		return result
	}

	err = s.stage(ctx, tr.log, "images", func(ctx context.Context) error {
		urls, err := s.deps.Images.SearchAny(ctx, imageQueries(r.profile, topic), r.images)
		if err != nil {
			return err
		}
		paths, err := s.deps.Images.Download(ctx, urls, filepath.Join(tr.workDir, "images"))
		if err != nil {
			return err
		}
		tr.images = paths
		return nil
	})
	if err != nil {
		result.Err = fmt.Errorf("images: %w", err)
		return result
	}

	if r.profile.MasterOnly {
		s.master(ctx, tr, result)
	} else {
		result.Videos = s.eachLanguage(ctx, tr, r.languages)
	}

	for _, e := range result.Errors() {
		tr.log.WithError(e).Warn("Topic finished with errors")
	}
	return result
}

func (s *Service) writeScript(ctx context.Context, profile Profile, topic models.Topic) (*models.Script, error) {
	switch profile.Name {
	case models.ProfileTrends:
		return script.Trend(topic.Title), nil
	case models.ProfileStory:
		return script.Story(topic.Title), nil
	}
	return s.deps.Writer.Daily(ctx, topic.Title)
}

// imageQueries lists the stock image searches of a topic, best first
func imageQueries(profile Profile, topic models.Topic) []string {
	if profile.Name == models.ProfileDaily {
		return []string{
			fmt.Sprintf("%s motivation lifestyle nature city", topic.Title),
			topic.Title,
			"motivation lifestyle nature city",
		}
	}

	queries := []string{topic.Title}
	queries = append(queries, topic.Related...)
	return append(queries, "trending news")
}

// eachLanguage renders one video per language concurrently
func (s *Service) eachLanguage(ctx context.Context, tr *topicRun, languages []string) []VideoResult {
	results := make([]VideoResult, len(languages))

	var wg sync.WaitGroup
	for i, lang := range languages {
		wg.Add(1)
		go func(i int, lang string) {
			defer wg.Done()
			results[i] = s.language(ctx, tr, lang)
		}(i, lang)
	}
	wg.Wait()

	return results
}

// master renders the base language video, then captions every other
// language on that language's own narration
func (s *Service) master(ctx context.Context, tr *topicRun, result *TopicResult) {
	base := s.cfg.Pipeline.BaseLanguage
	video := s.language(ctx, tr, base)
	result.Videos = []VideoResult{video}
	if video.Err != nil {
		return
	}

	var others []string
	for _, lang := range tr.languages {
		if !translate.SameLanguage(lang, base) {
			others = append(others, lang)
		}
	}

	subtitles := make([]SubtitleResult, len(others))
	var wg sync.WaitGroup
	for i, lang := range others {
		wg.Add(1)
		go func(i int, lang string) {
			defer wg.Done()
			subtitles[i] = s.subtitleOnly(ctx, tr, video, lang)
		}(i, lang)
	}
	wg.Wait()

	result.Subtitles = subtitles
}
