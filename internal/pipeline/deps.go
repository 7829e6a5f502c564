package pipeline

import (
	"context"
	"time"

	"github.com/therealutkarshpriyadarshi/shortgen/internal/fallback"
	"github.com/therealutkarshpriyadarshi/shortgen/internal/publish"
	"github.com/therealutkarshpriyadarshi/shortgen/internal/transcoder"
	"github.com/therealutkarshpriyadarshi/shortgen/internal/tts"
	"github.com/therealutkarshpriyadarshi/shortgen/internal/webhook"
	"github.com/therealutkarshpriyadarshi/shortgen/pkg/models"
)

// TopicSource finds trending topics
type TopicSource interface {
	Top(ctx context.Context, limit int) (fallback.Outcome[[]models.Topic], error)
}

// ScriptWriter writes the script of a daily video
type ScriptWriter interface {
	Daily(ctx context.Context, theme string) (*models.Script, error)
}

// Translator translates a script block by block
type Translator interface {
	Translate(ctx context.Context, script *models.Script, target string) (*models.Script, error)
}

// Narrator synthesizes and measures a script
type Narrator interface {
	Narrate(ctx context.Context, script *models.Script, workDir string) (*tts.Narration, error)
}

// ImageSource finds and downloads stock images
type ImageSource interface {
	SearchAny(ctx context.Context, queries []string, n int) ([]string, error)
	Download(ctx context.Context, urls []string, dir string) ([]string, error)
}

// AudioPadder extends an audio file with trailing silence
type AudioPadder interface {
	AppendSilence(ctx context.Context, inputPath string, pad float64, outputPath string) error
}

// Renderer produces the final video file
type Renderer interface {
	Render(ctx context.Context, req transcoder.RenderRequest, progressCB transcoder.ProgressCallback) (*transcoder.RenderResult, error)
}

// ArtifactStore keeps rendered artifacts
type ArtifactStore interface {
	UploadFile(ctx context.Context, objectName, filePath string) error
	UploadJSON(ctx context.Context, objectName string, value interface{}) error
	GetURL(ctx context.Context, objectName string) (string, error)
}

// Recorder persists video and subtitle records of a job
type Recorder interface {
	CreateVideo(ctx context.Context, video *models.Video) error
	CreateSubtitle(ctx context.Context, subtitle *models.Subtitle) error
}

// Notifier announces generated videos
type Notifier interface {
	NotifyVideoGenerated(ctx context.Context, event webhook.VideoGenerated) error
}

// Publisher uploads a finished video to a social platform
type Publisher interface {
	Enabled() bool
	UploadDraft(ctx context.Context, path, title string) (*publish.Result, error)
}

// Locker guards a topic against concurrent generation
type Locker interface {
	AcquireLock(ctx context.Context, resource string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, resource string) error
}

// Deps are the collaborators of a pipeline. Store, Recorder, Notifier,
// Publisher and Locker are optional; a nil value skips that step.
type Deps struct {
	Topics     TopicSource
	Writer     ScriptWriter
	Translator Translator
	Narrator   Narrator
	Images     ImageSource
	Audio      AudioPadder
	Renderer   Renderer

	Store     ArtifactStore
	Recorder  Recorder
	Notifier  Notifier
	Publisher Publisher
	Locker    Locker
}

func (d Deps) validate() error {
	missing := ""
	switch {
	case d.Writer == nil:
		missing = "script writer"
	case d.Translator == nil:
		missing = "translator"
	case d.Narrator == nil:
		missing = "narrator"
	case d.Images == nil:
		missing = "image source"
	case d.Audio == nil:
		missing = "audio padder"
	case d.Renderer == nil:
		missing = "renderer"
	}
	if missing != "" {
		return &MissingDependencyError{Name: missing}
	}
	return nil
}

// MissingDependencyError reports a required collaborator left nil
type MissingDependencyError struct {
	Name string
}

func (e *MissingDependencyError) Error() string {
	return "pipeline: missing " + e.Name
}
