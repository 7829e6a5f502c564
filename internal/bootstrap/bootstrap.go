// Package bootstrap builds the services shared by the binaries from
// configuration.
package bootstrap

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sashabaranov/go-openai"
	"github.com/therealutkarshpriyadarshi/shortgen/internal/cache"
	"github.com/therealutkarshpriyadarshi/shortgen/internal/config"
	"github.com/therealutkarshpriyadarshi/shortgen/internal/database"
	"github.com/therealutkarshpriyadarshi/shortgen/internal/logging"
	"github.com/therealutkarshpriyadarshi/shortgen/internal/media"
	"github.com/therealutkarshpriyadarshi/shortgen/internal/pipeline"
	"github.com/therealutkarshpriyadarshi/shortgen/internal/publish"
	"github.com/therealutkarshpriyadarshi/shortgen/internal/script"
	"github.com/therealutkarshpriyadarshi/shortgen/internal/storage"
	"github.com/therealutkarshpriyadarshi/shortgen/internal/transcoder"
	"github.com/therealutkarshpriyadarshi/shortgen/internal/translate"
	"github.com/therealutkarshpriyadarshi/shortgen/internal/trends"
	"github.com/therealutkarshpriyadarshi/shortgen/internal/tts"
	"github.com/therealutkarshpriyadarshi/shortgen/internal/webhook"
)

// DefaultConfigPath is used when CONFIG_PATH is not set
const DefaultConfigPath = "config.yaml"

// LoadConfig reads .env files into the environment, then loads path. When
// path is empty CONFIG_PATH or config.yaml is used; a missing file falls
// back to defaults and environment variables.
func LoadConfig(path string, envFiles ...string) (*config.Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = DefaultConfigPath
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return config.LoadDefaults()
	}
	return config.Load(path)
}

// NewLogger builds the application logger from configuration; service
// names the binary in every entry
func NewLogger(cfg config.LoggingConfig, service string) (*logging.Logger, error) {
	return logging.NewLogger(logging.Config{
		Level:   cfg.Level,
		Format:  cfg.Format,
		Output:  cfg.Output,
		Service: service,
	})
}

// Components are the optional infrastructure a pipeline can use. Nil
// fields are left out of the pipeline.
type Components struct {
	Cache    *cache.Cache
	Store    *storage.Storage
	Repo     *database.Repository
	Webhooks *webhook.Service
}

// Pipeline wires the providers named in cfg into a pipeline service
func Pipeline(cfg *config.Config, c Components, logger *logging.Logger) (*pipeline.Service, error) {
	var (
		topicCache  trends.TopicCache
		searchCache media.SearchCache
		transCache  translate.Cache
	)
	if c.Cache != nil {
		topicCache, searchCache, transCache = c.Cache, c.Cache, c.Cache
	}

	p := cfg.Providers
	var (
		writerClient    script.ChatCompleter
		translateClient translate.ChatCompleter
		synthesizers    []tts.Synthesizer
	)
	if p.ElevenLabsKey != "" {
		synthesizers = append(synthesizers, tts.NewElevenLabs(tts.ElevenLabsConfig{
			APIKey:           p.ElevenLabsKey,
			BaseURL:          p.ElevenLabsURL,
			Model:            p.ElevenLabsModel,
			DefaultVoice:     p.ElevenLabsVoice,
			VoicesByLanguage: p.VoicesByLanguage,
			Timeout:          p.HTTPTimeout,
		}))
	}
	if p.OpenAIKey != "" {
		client := script.NewOpenAIClient(p.OpenAIKey, p.OpenAIBaseURL)
		writerClient, translateClient = client, client
		synthesizers = append(synthesizers, tts.NewOpenAISpeech(client, p.OpenAIVoice))
	} else {
		logger.Warn("OpenAI key not set, scripts use templates and translations pass through")
	}
	if len(synthesizers) == 0 {
		logger.Warn("No speech provider configured, narration will fail")
	}

	renderer := transcoder.NewRenderer(cfg.Render, logger)
	ffmpeg := renderer.FFmpeg()

	deps := pipeline.Deps{
		Topics: trends.NewService(trends.Config{
			SerpAPIKey: p.SerpAPIKey,
			SerpAPIURL: p.SerpAPIURL,
			RSSURL:     p.TrendsRSSURL,
			Region:     cfg.Pipeline.TrendsRegion,
			Timeout:    p.HTTPTimeout,
			CacheTTL:   cfg.Redis.CacheTTL,
		}, topicCache, logger),
		Writer:     script.NewWriter(writerClient, model(p.OpenAIModel), logger),
		Translator: translate.NewTranslator(translateClient, model(p.OpenAIModel), transCache, cfg.Redis.CacheTTL, logger),
		Narrator: tts.NewNarrator(ffmpeg, time.Duration(cfg.Pipeline.PauseMillis)*time.Millisecond, logger,
			synthesizers...),
		Images: media.NewPexels(media.Config{
			APIKey:          p.PexelsKey,
			SearchURL:       p.PexelsURL,
			Timeout:         p.HTTPTimeout,
			DownloadTimeout: p.DownloadTimeout,
			CacheTTL:        cfg.Redis.CacheTTL,
		}, searchCache, logger),
		Audio:    ffmpeg,
		Renderer: renderer,
		Publisher: publish.NewTikTok(publish.Config{
			Enabled:     true,
			AccessToken: p.TikTokToken,
			OpenID:      p.TikTokOpenID,
			BaseURL:     p.TikTokURL,
			Timeout:     p.UploadTimeout,
		}),
	}
	if c.Cache != nil {
		deps.Locker = c.Cache
	}
	if c.Store != nil {
		deps.Store = c.Store
	}
	if c.Repo != nil {
		deps.Recorder = c.Repo
	}
	if c.Webhooks != nil {
		deps.Notifier = c.Webhooks
	}

	return pipeline.New(pipeline.Config{
		Pipeline: cfg.Pipeline,
		TempDir:  cfg.Render.TempDir,
		LockTTL:  cfg.Redis.LockTTL,
	}, deps, logger)
}

func model(name string) string {
	if name == "" {
		return openai.GPT4oMini
	}
	return name
}
