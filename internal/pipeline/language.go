package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/therealutkarshpriyadarshi/shortgen/internal/logging"
	"github.com/therealutkarshpriyadarshi/shortgen/internal/metrics"
	"github.com/therealutkarshpriyadarshi/shortgen/internal/storage"
	"github.com/therealutkarshpriyadarshi/shortgen/internal/timeline"
	"github.com/therealutkarshpriyadarshi/shortgen/internal/transcoder"
	"github.com/therealutkarshpriyadarshi/shortgen/internal/translate"
	"github.com/therealutkarshpriyadarshi/shortgen/internal/tts"
	"github.com/therealutkarshpriyadarshi/shortgen/internal/webhook"
	"github.com/therealutkarshpriyadarshi/shortgen/pkg/models"
)

// minAudioPad is the shortest silence worth appending to the narration
const minAudioPad = 0.05

// language takes one language of a topic from translation to a stored video
func (s *Service) language(ctx context.Context, tr *topicRun, lang string) VideoResult {
	log := tr.log.WithLanguage(lang)
	res := VideoResult{Language: lang, Subtitle: SubtitleResult{Language: lang}}
	dir := filepath.Join(tr.workDir, lang)
	name := fmt.Sprintf("%s_%s", tr.slug, lang)

	fail := func(stage string, err error) VideoResult {
		res.Err = fmt.Errorf("%s: %w", stage, err)
		metrics.RecordVideo(lang, "failed")
		return res
	}

	var translated *models.Script
	err := s.stage(ctx, log, "translate", func(ctx context.Context) error {
		var err error
		translated, err = s.deps.Translator.Translate(ctx, tr.script, lang)
		return err
	})
	if err != nil {
		return fail("translate", err)
	}
	res.script = translated
	res.Degraded = translated.Source == translate.SourcePassthrough

	var narration *tts.Narration
	err = s.stage(ctx, log, "narrate", func(ctx context.Context) error {
		var err error
		narration, err = s.deps.Narrator.Narrate(ctx, translated, dir)
		return err
	})
	if err != nil {
		return fail("narrate", err)
	}

	segments := narration.Segments
	if tr.profile.FixedCaptions {
		segments = models.SegmentsFromLines(translated.Texts(), s.cfg.Pipeline.CaptionSeconds)
	}

	narrated := timeline.Sum(narration.Durations())

	var plan *timeline.Plan
	err = s.stage(ctx, log, "timeline", func(ctx context.Context) error {
		var err error
		plan, err = timeline.NewPlan(segments, len(tr.images), tr.opts)
		if err != nil {
			return err
		}
		if len(tr.images) < tr.run.images {
			if err := plan.Repeat(len(tr.images), tr.run.images, tr.opts.MinSlot); err != nil {
				return err
			}
		}
		// fixed captions may end before the voice-over does
		return plan.Extend(narrated, len(tr.images), tr.opts.MinSlot)
	})
	if err != nil {
		return fail("timeline", err)
	}
	res.Plan = plan

	log.LogTimelinePlan(lang, len(segments), narrated, plan.Padding, plan.Total, plan.Drift, len(plan.Slots))
	metrics.RecordTimeline(lang, narrated, plan.Padding, plan.Drift)

	srtPath := filepath.Join(tr.outDir, name+".srt")
	if err := writeSRT(srtPath, plan.Captions); err != nil {
		return fail("subtitles", err)
	}
	res.Subtitle.Path = srtPath
	res.Subtitle.Entries = len(plan.Captions)
	res.Subtitle.Degraded = res.Degraded

	audioPath := narration.Path
	if pad := plan.Total - narrated; pad > minAudioPad {
		padded := filepath.Join(dir, "narration_padded.mp3")
		err = s.stage(ctx, log, "pad", func(ctx context.Context) error {
			return s.deps.Audio.AppendSilence(ctx, narration.Path, pad, padded)
		})
		if err != nil {
			return fail("pad", err)
		}
		audioPath = padded
	}

	var rendered *transcoder.RenderResult
	err = s.stage(ctx, log, "render", func(ctx context.Context) error {
		var err error
		rendered, err = s.deps.Renderer.Render(ctx, transcoder.RenderRequest{
			Images:        tr.images,
			Slots:         plan.Slots,
			NarrationPath: audioPath,
			SubtitlePath:  srtPath,
			OutputPath:    filepath.Join(tr.outDir, name+".mp4"),
		}, nil)
		return err
	})
	if err != nil {
		return fail("render", err)
	}
	res.Path = rendered.Path
	res.Duration = rendered.Duration

	if s.deps.Store != nil {
		err = s.stage(ctx, log, "upload", func(ctx context.Context) error {
			return s.upload(ctx, tr, &res, name)
		})
		if err != nil {
			return fail("upload", err)
		}
	}

	s.record(ctx, tr, &res, rendered, narrated, log)
	s.notify(ctx, tr, &res, log)
	s.publish(ctx, tr, &res, log)

	metrics.RecordVideo(lang, "success")
	return res
}

// subtitleOnly captions lang on its own narration. The master video is not
// re-rendered; the narration track is kept next to the caption file.
func (s *Service) subtitleOnly(ctx context.Context, tr *topicRun, master VideoResult, lang string) SubtitleResult {
	log := tr.log.WithLanguage(lang)
	res := SubtitleResult{Language: lang}

	var translated *models.Script
	err := s.stage(ctx, log, "translate", func(ctx context.Context) error {
		var err error
		translated, err = s.deps.Translator.Translate(ctx, master.script, lang)
		return err
	})
	if err != nil {
		res.Err = fmt.Errorf("translate: %w", err)
		return res
	}
	res.Degraded = translated.Source == translate.SourcePassthrough

	var narration *tts.Narration
	err = s.stage(ctx, log, "narrate", func(ctx context.Context) error {
		var err error
		narration, err = s.deps.Narrator.Narrate(ctx, translated, filepath.Join(tr.workDir, lang))
		return err
	})
	if err != nil {
		res.Err = fmt.Errorf("narrate: %w", err)
		return res
	}
	res.Narration = narration.Path

	captions, err := timeline.BuildTimeline(narration.Segments)
	if err != nil {
		metrics.RecordInvalidInput("subtitles")
		res.Err = fmt.Errorf("subtitles: %w", err)
		return res
	}

	res.Path = filepath.Join(tr.outDir, fmt.Sprintf("%s_%s.srt", tr.slug, lang))
	res.Entries = len(captions)
	if err := writeSRT(res.Path, captions); err != nil {
		res.Err = fmt.Errorf("subtitles: %w", err)
		return res
	}

	if s.deps.Store != nil {
		res.Key = storage.ObjectKey(tr.date, tr.slug, res.Path)
		if err := s.deps.Store.UploadFile(ctx, res.Key, res.Path); err != nil {
			res.Err = fmt.Errorf("upload: %w", err)
			return res
		}
		if url, err := s.deps.Store.GetURL(ctx, res.Key); err == nil {
			res.URL = url
		}

		key := storage.ObjectKey(tr.date, tr.slug, fmt.Sprintf("%s_%s.mp3", tr.slug, lang))
		if err := s.deps.Store.UploadFile(ctx, key, res.Narration); err != nil {
			log.WithError(err).Warn("Failed to store narration")
		} else {
			res.NarrationKey = key
		}
	}

	if s.deps.Recorder != nil && tr.jobID != "" {
		err := s.deps.Recorder.CreateSubtitle(ctx, &models.Subtitle{
			JobID:      tr.jobID,
			Language:   lang,
			Format:     models.SubtitleFormatSRT,
			Path:       subtitleLocation(res),
			URL:        res.URL,
			EntryCount: res.Entries,
		})
		if err != nil {
			log.WithError(err).Warn("Failed to record subtitle")
		}
	}

	return res
}

func writeSRT(path string, captions []models.TimedSegment) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create subtitle file: %w", err)
	}
	if err := timeline.WriteSRT(f, captions); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (s *Service) upload(ctx context.Context, tr *topicRun, res *VideoResult, name string) error {
	res.Key = storage.ObjectKey(tr.date, tr.slug, res.Path)
	if err := s.deps.Store.UploadFile(ctx, res.Key, res.Path); err != nil {
		return err
	}

	res.Subtitle.Key = storage.ObjectKey(tr.date, tr.slug, res.Subtitle.Path)
	if err := s.deps.Store.UploadFile(ctx, res.Subtitle.Key, res.Subtitle.Path); err != nil {
		return err
	}

	if err := s.deps.Store.UploadJSON(ctx, storage.ObjectKey(tr.date, tr.slug, name+".plan.json"), res.Plan); err != nil {
		tr.log.WithError(err).Warn("Failed to store timeline plan")
	}

	if url, err := s.deps.Store.GetURL(ctx, res.Key); err == nil {
		res.URL = url
	}
	if url, err := s.deps.Store.GetURL(ctx, res.Subtitle.Key); err == nil {
		res.Subtitle.URL = url
	}
	return nil
}

func (s *Service) record(ctx context.Context, tr *topicRun, res *VideoResult, rendered *transcoder.RenderResult, narrated float64, log *logging.Logger) {
	if s.deps.Recorder == nil || tr.jobID == "" {
		return
	}

	video := &models.Video{
		JobID:            tr.jobID,
		Language:         res.Language,
		Path:             res.Key,
		URL:              res.URL,
		Duration:         res.Duration,
		NarrationSeconds: narrated,
		Width:            rendered.Width,
		Height:           rendered.Height,
		SlotCount:        len(res.Plan.Slots),
		Status:           models.VideoStatusCompleted,
		Metadata: models.Metadata{
			"topic":    tr.topic.Title,
			"profile":  tr.profile.Name,
			"padding":  res.Plan.Padding,
			"drift":    res.Plan.Drift,
			"music":    filepath.Base(rendered.MusicPath),
			"degraded": res.Degraded,
		},
	}
	if video.Path == "" {
		video.Path = res.Path
	}
	if err := s.deps.Recorder.CreateVideo(ctx, video); err != nil {
		log.WithError(err).Warn("Failed to record video")
		return
	}

	err := s.deps.Recorder.CreateSubtitle(ctx, &models.Subtitle{
		JobID:      tr.jobID,
		VideoID:    video.ID,
		Language:   res.Language,
		Format:     models.SubtitleFormatSRT,
		Path:       subtitleLocation(res.Subtitle),
		URL:        res.Subtitle.URL,
		EntryCount: res.Subtitle.Entries,
		IsDefault:  true,
	})
	if err != nil {
		log.WithError(err).Warn("Failed to record subtitle")
	}
}

func subtitleLocation(s SubtitleResult) string {
	if s.Key != "" {
		return s.Key
	}
	return s.Path
}

func (s *Service) notify(ctx context.Context, tr *topicRun, res *VideoResult, log *logging.Logger) {
	if s.deps.Notifier == nil {
		return
	}

	event := webhook.VideoGenerated{
		Video: &models.Video{
			JobID:    tr.jobID,
			Language: res.Language,
			Path:     res.Key,
			URL:      res.URL,
			Duration: res.Duration,
			Status:   models.VideoStatusCompleted,
		},
		Subtitle: &models.Subtitle{
			JobID:      tr.jobID,
			Language:   res.Language,
			Format:     models.SubtitleFormatSRT,
			Path:       subtitleLocation(res.Subtitle),
			URL:        res.Subtitle.URL,
			EntryCount: res.Subtitle.Entries,
			IsDefault:  true,
		},
		Topic:    tr.topic.Title,
		Degraded: res.Degraded,
	}
	if err := s.deps.Notifier.NotifyVideoGenerated(ctx, event); err != nil {
		log.WithError(err).Warn("Failed to notify video generated")
	}
}

// publish uploads the video as a draft when the run asks for it and the
// publisher has credentials
func (s *Service) publish(ctx context.Context, tr *topicRun, res *VideoResult, log *logging.Logger) {
	if !tr.publish || s.deps.Publisher == nil || !s.deps.Publisher.Enabled() {
		return
	}

	err := s.stage(ctx, log, "publish", func(ctx context.Context) error {
		out, err := s.deps.Publisher.UploadDraft(ctx, res.Path, PostTitle(tr.topic.Title))
		res.Published = out
		return err
	})
	if err != nil {
		metrics.RecordError("publish", "upload_failed")
	}
}

// PostTitle is the caption a video is published with
func PostTitle(topic string) string {
	return fmt.Sprintf("%s #shorts #tendencias", topic)
}
