package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/therealutkarshpriyadarshi/shortgen/internal/bootstrap"
	"github.com/therealutkarshpriyadarshi/shortgen/internal/cache"
	"github.com/therealutkarshpriyadarshi/shortgen/internal/pipeline"
	"github.com/therealutkarshpriyadarshi/shortgen/internal/storage"
	"github.com/therealutkarshpriyadarshi/shortgen/internal/tracing"
	"github.com/therealutkarshpriyadarshi/shortgen/pkg/models"
)

type generateFlags struct {
	topics    []string
	languages []string
	seconds   float64
	images    int
	theme     string
	publish   bool
	upload    bool
	useCache  bool
}

func newGenerateCmd(profile, short string) *cobra.Command {
	var f generateFlags

	cmd := &cobra.Command{
		Use:   profile,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd.Context(), cmd.OutOrStdout(), profile, f)
		},
	}

	cmd.Flags().StringSliceVarP(&f.topics, "topic", "t", nil, "topics to generate (repeatable)")
	cmd.Flags().StringSliceVarP(&f.languages, "langs", "l", nil, "languages (default from config)")
	cmd.Flags().Float64Var(&f.seconds, "seconds", 0, "target video length in seconds")
	cmd.Flags().IntVar(&f.images, "images", 0, "images per video")
	cmd.Flags().StringVar(&f.theme, "theme", "", "theme of the daily video")
	cmd.Flags().BoolVar(&f.publish, "publish", false, "upload drafts to TikTok")
	cmd.Flags().BoolVar(&f.upload, "upload", false, "store artifacts in object storage")
	cmd.Flags().BoolVar(&f.useCache, "cache", false, "use redis for caching and topic locks")
	return cmd
}

var (
	dailyCmd  = newGenerateCmd(models.ProfileDaily, "Render the themed daily video with subtitles per language")
	trendsCmd = newGenerateCmd(models.ProfileTrends, "Render one video per language for each trending topic")
	storyCmd  = newGenerateCmd(models.ProfileStory, "Render six beat story videos per topic and language")
)

func runGenerate(ctx context.Context, out io.Writer, profile string, f generateFlags) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	closer, err := tracing.Setup(cfg.Tracing, cfg.Tracing.ServiceName)
	if err == nil {
		defer closer.Close()
	}

	var components bootstrap.Components
	if f.useCache {
		c, err := cache.NewCache(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return err
		}
		defer c.Close()
		components.Cache = c
	}
	if f.upload {
		s, err := storage.New(cfg.Storage)
		if err != nil {
			return err
		}
		components.Store = s
	}

	svc, err := bootstrap.Pipeline(cfg, components, logger)
	if err != nil {
		return err
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := svc.Run(ctx, pipeline.Request{
		Profile:        profile,
		Topics:         f.topics,
		Languages:      f.languages,
		TargetSeconds:  f.seconds,
		ImagesPerVideo: f.images,
		Theme:          f.theme,
		Publish:        f.publish,
	})
	if err != nil {
		return err
	}

	if err := printResult(out, result); err != nil {
		return err
	}
	if result.Status() == models.JobStatusFailed {
		return fmt.Errorf("no video was generated")
	}
	return nil
}

type resultSummary struct {
	Profile     string         `json:"profile"`
	TopicSource string         `json:"topic_source"`
	Status      string         `json:"status"`
	Topics      []topicSummary `json:"topics"`
}

type topicSummary struct {
	Topic     string            `json:"topic"`
	Status    string            `json:"status"`
	Videos    []artifactSummary `json:"videos,omitempty"`
	Subtitles []artifactSummary `json:"subtitles,omitempty"`
	Errors    []string          `json:"errors,omitempty"`
}

type artifactSummary struct {
	Language string  `json:"language"`
	Path     string  `json:"path"`
	URL      string  `json:"url,omitempty"`
	Duration float64 `json:"duration,omitempty"`
	Padding  float64 `json:"padding,omitempty"`
}

func summarize(result *pipeline.RunResult) resultSummary {
	s := resultSummary{Profile: result.Profile, TopicSource: result.TopicSource, Status: result.Status()}
	for _, t := range result.Topics {
		ts := topicSummary{Topic: t.Topic, Status: t.Status()}
		for _, v := range t.Videos {
			if v.Err != nil {
				continue
			}
			a := artifactSummary{Language: v.Language, Path: v.Path, URL: v.URL, Duration: v.Duration}
			if v.Plan != nil {
				a.Padding = v.Plan.Padding
			}
			ts.Videos = append(ts.Videos, a)
			ts.Subtitles = append(ts.Subtitles, artifactSummary{Language: v.Language, Path: v.Subtitle.Path, URL: v.Subtitle.URL})
		}
		for _, sub := range t.Subtitles {
			if sub.Err == nil {
				ts.Subtitles = append(ts.Subtitles, artifactSummary{Language: sub.Language, Path: sub.Path, URL: sub.URL})
			}
		}
		for _, e := range t.Errors() {
			ts.Errors = append(ts.Errors, e.Error())
		}
		if t.Skipped {
			ts.Errors = append(ts.Errors, t.Reason)
		}
		s.Topics = append(s.Topics, ts)
	}
	return s
}

func printResult(w io.Writer, result *pipeline.RunResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(summarize(result))
}
