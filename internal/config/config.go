package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/therealutkarshpriyadarshi/shortgen/internal/timeline"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Storage   StorageConfig
	Queue     QueueConfig
	Auth      AuthConfig
	Logging   LoggingConfig
	Tracing   TracingConfig
	Metrics   MetricsConfig
	Render    RenderConfig
	Pipeline  PipelineConfig
	Providers ProvidersConfig
	Schedule  ScheduleConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	RateLimitRPS    int
	RateLimitBurst  int
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
	MinConns int
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	CacheTTL time.Duration
	LockTTL  time.Duration
}

// StorageConfig holds object storage configuration
type StorageConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	Region          string
	UseSSL          bool
}

// QueueConfig holds message queue configuration
type QueueConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Vhost    string
}

// AuthConfig holds API authentication configuration
type AuthConfig struct {
	JWTSecret string
}

// LoggingConfig mirrors logging.Config
type LoggingConfig struct {
	Level  string
	Format string
	Output string
}

// TracingConfig holds Jaeger configuration
type TracingConfig struct {
	Enabled     bool
	ServiceName string
	Endpoint    string
	SampleRate  float64
}

// MetricsConfig holds the Prometheus endpoint configuration
type MetricsConfig struct {
	Enabled bool
	Port    int
}

// RenderConfig holds ffmpeg and output frame settings
type RenderConfig struct {
	FFmpegPath      string
	FFprobePath     string
	TempDir         string
	Width           int
	Height          int
	FPS             int
	Preset          string
	Zoom            float64
	MusicDir        string
	MusicVolume     float64
	BrandingHandle  string
	BrandingSeconds float64
	BurnSubtitles   bool
}

// PipelineConfig holds the generation settings shared by all profiles
type PipelineConfig struct {
	Profile        string
	TargetSeconds  float64
	MinSegment     float64
	MinSlot        float64
	PadEpsilon     float64
	PaddingPolicy  string
	PauseMillis    int
	CaptionSeconds float64
	Languages      []string
	BaseLanguage   string
	Theme          string
	TrendsRegion   string
	TopicLimit     int
	ImagesPerVideo int
	OutputDir      string
	Publish        bool
}

// ScheduleConfig holds the recurring runs enqueued by the API. A zero
// period disables that profile.
type ScheduleConfig struct {
	Enabled     bool
	Tick        time.Duration
	DailyEvery  time.Duration
	TrendsEvery time.Duration
	StoryEvery  time.Duration
}

// ProvidersConfig holds credentials and endpoints of external services
type ProvidersConfig struct {
	OpenAIKey        string
	OpenAIModel      string
	OpenAIBaseURL    string
	OpenAIVoice      string
	ElevenLabsKey    string
	ElevenLabsVoice  string
	ElevenLabsModel  string
	ElevenLabsURL    string
	PexelsKey        string
	PexelsURL        string
	SerpAPIKey       string
	SerpAPIURL       string
	TrendsRSSURL     string
	TikTokToken      string
	TikTokOpenID     string
	TikTokURL        string
	HTTPTimeout      time.Duration
	DownloadTimeout  time.Duration
	UploadTimeout    time.Duration
	VoicesByLanguage map[string]string
}

// TimelineOptions converts the pipeline settings into explicit timeline
// parameters, applying the profile's padding policy.
func (p PipelineConfig) TimelineOptions() (timeline.Options, error) {
	policy, err := timeline.ParsePaddingPolicy(p.PaddingPolicy)
	if err != nil {
		return timeline.Options{}, err
	}

	opts := timeline.Options{
		TargetTotal: p.TargetSeconds,
		MinSegment:  p.MinSegment,
		MinSlot:     p.MinSlot,
		PadEpsilon:  p.PadEpsilon,
		Padding:     policy,
	}
	if err := opts.Validate(); err != nil {
		return timeline.Options{}, err
	}
	return opts, nil
}

// Load reads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set defaults
	setDefaults(v)
	bindLegacyEnv(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return unmarshal(v)
}

// LoadDefaults builds a configuration from defaults and environment only
func LoadDefaults() (*Config, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	bindLegacyEnv(v)
	return unmarshal(v)
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// LANGS arrives as "pt-BR, en,es"
	config.Pipeline.Languages = splitList(strings.Join(config.Pipeline.Languages, ","))

	return &config, nil
}

// bindLegacyEnv maps the variable names the generator scripts have always used
func bindLegacyEnv(v *viper.Viper) {
	bindings := map[string]string{
		"pipeline.targetSeconds":    "VIDEO_SECONDS",
		"pipeline.languages":        "LANGS",
		"pipeline.theme":            "THEME_SEED",
		"pipeline.trendsRegion":     "TRENDS_REGION",
		"pipeline.publish":          "ENABLE_TIKTOK_UPLOAD",
		"render.musicDir":           "MUSIC_DIR",
		"render.brandingHandle":     "BRANDING_HANDLE",
		"providers.openAIKey":       "OPENAI_API_KEY",
		"providers.elevenLabsKey":   "ELEVENLABS_API_KEY",
		"providers.pexelsKey":       "PEXELS_KEY",
		"providers.serpAPIKey":      "SERPAPI_KEY",
		"providers.tikTokToken":     "TIKTOK_ACCESS_TOKEN",
		"providers.tikTokOpenID":    "TIKTOK_OPEN_ID",
		"storage.region":            "AWS_REGION",
		"providers.elevenLabsVoice": "ELEVENLABS_VOICE_ID",
	}
	for key, env := range bindings {
		_ = v.BindEnv(key, env)
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.readTimeout", "30s")
	v.SetDefault("server.writeTimeout", "30s")
	v.SetDefault("server.shutdownTimeout", "10s")
	v.SetDefault("server.rateLimitRPS", 10)
	v.SetDefault("server.rateLimitBurst", 20)

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "shortgen")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.maxConns", 10)
	v.SetDefault("database.minConns", 2)

	// Redis defaults
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.cacheTTL", "24h")
	v.SetDefault("redis.lockTTL", "30m")

	// Storage defaults
	v.SetDefault("storage.endpoint", "localhost:9000")
	v.SetDefault("storage.accessKeyID", "minioadmin")
	v.SetDefault("storage.secretAccessKey", "minioadmin")
	v.SetDefault("storage.bucketName", "shorts")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.useSSL", false)

	// Queue defaults
	v.SetDefault("queue.host", "localhost")
	v.SetDefault("queue.port", 5672)
	v.SetDefault("queue.user", "guest")
	v.SetDefault("queue.password", "guest")
	v.SetDefault("queue.vhost", "/")

	v.SetDefault("auth.jwtSecret", "")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.serviceName", "shortgen")
	v.SetDefault("tracing.endpoint", "http://localhost:14268/api/traces")
	v.SetDefault("tracing.sampleRate", 1.0)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)

	// Render defaults: vertical 1080x1920 at 30fps
	v.SetDefault("render.ffmpegPath", "ffmpeg")
	v.SetDefault("render.ffprobePath", "ffprobe")
	v.SetDefault("render.tempDir", "/tmp/shortgen")
	v.SetDefault("render.width", 1080)
	v.SetDefault("render.height", 1920)
	v.SetDefault("render.fps", 30)
	v.SetDefault("render.preset", "medium")
	v.SetDefault("render.zoom", 1.05)
	v.SetDefault("render.musicDir", "assets/music")
	v.SetDefault("render.musicVolume", 0.15)
	v.SetDefault("render.brandingHandle", "")
	v.SetDefault("render.brandingSeconds", 3.0)
	v.SetDefault("render.burnSubtitles", false)

	// Pipeline defaults
	v.SetDefault("pipeline.profile", "daily")
	v.SetDefault("pipeline.targetSeconds", timeline.DefaultTargetTotal)
	v.SetDefault("pipeline.minSegment", timeline.DefaultMinSegment)
	v.SetDefault("pipeline.minSlot", timeline.DefaultMinSlot)
	v.SetDefault("pipeline.padEpsilon", timeline.DefaultPadEpsilon)
	v.SetDefault("pipeline.paddingPolicy", string(timeline.PaddingTrailingSilence))
	v.SetDefault("pipeline.pauseMillis", 250)
	v.SetDefault("pipeline.captionSeconds", 3.0)
	v.SetDefault("pipeline.languages", []string{"pt-BR", "en", "es"})
	v.SetDefault("pipeline.baseLanguage", "pt-BR")
	v.SetDefault("pipeline.theme", "autoajuda")
	v.SetDefault("pipeline.trendsRegion", "BR")
	v.SetDefault("pipeline.topicLimit", 10)
	v.SetDefault("pipeline.imagesPerVideo", 6)
	v.SetDefault("pipeline.outputDir", "output")
	v.SetDefault("pipeline.publish", false)

	v.SetDefault("schedule.enabled", false)
	v.SetDefault("schedule.tick", "1m")
	v.SetDefault("schedule.dailyEvery", "24h")
	v.SetDefault("schedule.trendsEvery", "6h")
	v.SetDefault("schedule.storyEvery", "0s")

	// Provider defaults
	v.SetDefault("providers.openAIModel", "gpt-4o-mini")
	v.SetDefault("providers.openAIBaseURL", "")
	v.SetDefault("providers.openAIVoice", "alloy")
	v.SetDefault("providers.elevenLabsModel", "eleven_multilingual_v2")
	v.SetDefault("providers.elevenLabsURL", "https://api.elevenlabs.io/v1")
	v.SetDefault("providers.pexelsURL", "https://api.pexels.com/v1/search")
	v.SetDefault("providers.serpAPIURL", "https://serpapi.com/search.json")
	v.SetDefault("providers.trendsRSSURL", "https://trends.google.com/trending/rss")
	v.SetDefault("providers.tikTokURL", "https://open.tiktokapis.com/v2")
	v.SetDefault("providers.httpTimeout", "60s")
	v.SetDefault("providers.downloadTimeout", "30s")
	v.SetDefault("providers.uploadTimeout", "120s")
}
