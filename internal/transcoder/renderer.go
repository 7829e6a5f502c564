package transcoder

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/therealutkarshpriyadarshi/shortgen/internal/config"
	"github.com/therealutkarshpriyadarshi/shortgen/internal/logging"
	"github.com/therealutkarshpriyadarshi/shortgen/pkg/models"
)

// RenderRequest is everything needed to produce one video
type RenderRequest struct {
	Images        []string
	Slots         []models.VisualSlot
	NarrationPath string
	SubtitlePath  string
	OutputPath    string
}

// RenderResult describes a rendered video
type RenderResult struct {
	Path      string
	Duration  float64
	MusicPath string
	Width     int
	Height    int
}

// Renderer turns narration, captions and images into the final video
type Renderer struct {
	ffmpeg *FFmpeg
	cfg    config.RenderConfig
	logger *logging.Logger
	rng    *rand.Rand
}

// NewRenderer creates a renderer from render settings
func NewRenderer(cfg config.RenderConfig, logger *logging.Logger) *Renderer {
	return &Renderer{
		ffmpeg: NewFFmpeg(cfg.FFmpegPath, cfg.FFprobePath),
		cfg:    cfg,
		logger: logger,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// FFmpeg exposes the underlying ffmpeg wrapper
func (r *Renderer) FFmpeg() *FFmpeg {
	return r.ffmpeg
}

// Render mixes background music under the narration when a track is
// available, then composes the slideshow with the mixed audio.
func (r *Renderer) Render(ctx context.Context, req RenderRequest, progressCB ProgressCallback) (*RenderResult, error) {
	if err := os.MkdirAll(filepath.Dir(req.OutputPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	opts := SlideshowOptions{
		Images:     req.Images,
		Slots:      req.Slots,
		AudioPath:  req.NarrationPath,
		OutputPath: req.OutputPath,
		Width:      r.cfg.Width,
		Height:     r.cfg.Height,
		FPS:        r.cfg.FPS,
		Zoom:       r.cfg.Zoom,
		Preset:     r.cfg.Preset,
	}
	if strings.TrimSpace(r.cfg.BrandingHandle) != "" {
		opts.BrandingSeconds = r.cfg.BrandingSeconds
	}
	if r.cfg.BurnSubtitles {
		opts.SubtitlePath = req.SubtitlePath
	}

	result := &RenderResult{Path: req.OutputPath, Width: opts.Width, Height: opts.Height}

	track, err := PickTrack(r.cfg.MusicDir, r.rng)
	if err != nil {
		r.logger.WithError(err).Warn("Failed to list music tracks, rendering without music")
	}
	if track != "" && req.NarrationPath != "" {
		mixed := strings.TrimSuffix(req.OutputPath, filepath.Ext(req.OutputPath)) + "_mix.mp3"
		err := r.ffmpeg.MixMusic(ctx, MixOptions{
			NarrationPath: req.NarrationPath,
			MusicPath:     track,
			OutputPath:    mixed,
			Volume:        r.cfg.MusicVolume,
			Duration:      opts.Duration(),
		})
		if err != nil {
			r.logger.WithError(err).WithField("track", track).Warn("Failed to mix music, using narration only")
		} else {
			defer os.Remove(mixed)
			opts.AudioPath = mixed
			result.MusicPath = track
		}
	}

	if err := r.ffmpeg.ComposeSlideshow(ctx, opts, progressCB); err != nil {
		return nil, fmt.Errorf("failed to compose slideshow: %w", err)
	}

	duration, err := r.ffmpeg.ProbeDuration(ctx, req.OutputPath)
	if err != nil {
		r.logger.WithError(err).Warn("Failed to probe rendered video")
		duration = opts.Duration()
	}
	result.Duration = duration

	return result, nil
}
