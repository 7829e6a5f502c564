// Package tts narrates scripts. Each block is synthesized separately so its
// spoken length can be measured; the measured lengths drive the caption
// timeline and the visual pacing.
package tts

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/therealutkarshpriyadarshi/shortgen/internal/fallback"
	"github.com/therealutkarshpriyadarshi/shortgen/internal/logging"
	"github.com/therealutkarshpriyadarshi/shortgen/internal/metrics"
	"github.com/therealutkarshpriyadarshi/shortgen/pkg/models"
)

// DefaultPause is the silence inserted after every block
const DefaultPause = 250 * time.Millisecond

// ErrNotConfigured is returned by a synthesizer that has no credentials
var ErrNotConfigured = errors.New("synthesizer not configured")

// AudioTools are the ffmpeg operations narration needs
type AudioTools interface {
	ProbeDuration(ctx context.Context, path string) (float64, error)
	GenerateSilence(ctx context.Context, duration float64, outputPath string) error
	ConcatAudio(ctx context.Context, inputs []string, outputPath string) error
}

// Narration is a narrated script
type Narration struct {
	Path     string
	Language string
	Segments []models.Segment
	Sources  []string
}

// Durations returns the measured length of every segment, pause included
func (n *Narration) Durations() []float64 {
	out := make([]float64, len(n.Segments))
	for i, s := range n.Segments {
		out[i] = s.Duration
	}
	return out
}

// Narrator synthesizes and measures narration
type Narrator struct {
	providers []Synthesizer
	audio     AudioTools
	pause     time.Duration
	logger    *logging.Logger
}

// NewNarrator creates a narrator that tries providers in order for every block
func NewNarrator(audio AudioTools, pause time.Duration, logger *logging.Logger, providers ...Synthesizer) *Narrator {
	if pause < 0 {
		pause = 0
	}
	return &Narrator{
		providers: providers,
		audio:     audio,
		pause:     pause,
		logger:    logger,
	}
}

// Narrate writes narration.mp3 into workDir. Every segment duration is the
// measured speech plus the inter-block pause; blank blocks are pause only.
func (n *Narrator) Narrate(ctx context.Context, script *models.Script, workDir string) (*Narration, error) {
	if len(script.Blocks) == 0 {
		return nil, fmt.Errorf("script has no blocks")
	}
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create work directory: %w", err)
	}

	pauseSeconds := n.pause.Seconds()
	pausePath := ""
	if pauseSeconds > 0 {
		pausePath = filepath.Join(workDir, "pause.mp3")
		if err := n.audio.GenerateSilence(ctx, pauseSeconds, pausePath); err != nil {
			return nil, fmt.Errorf("failed to generate pause: %w", err)
		}
	}

	narration := &Narration{
		Path:     filepath.Join(workDir, "narration.mp3"),
		Language: script.Language,
	}
	var parts []string

	for i, block := range script.Blocks {
		text := strings.TrimSpace(block.Text)
		speech := 0.0

		if text != "" {
			audio, source, err := n.synthesize(ctx, text, script.Language)
			if err != nil {
				return nil, fmt.Errorf("block %d: %w", i, err)
			}

			partPath := filepath.Join(workDir, fmt.Sprintf("block_%02d.mp3", i))
			if err := os.WriteFile(partPath, audio, 0644); err != nil {
				return nil, fmt.Errorf("failed to write block %d audio: %w", i, err)
			}

			speech, err = n.audio.ProbeDuration(ctx, partPath)
			if err != nil {
				return nil, fmt.Errorf("failed to measure block %d: %w", i, err)
			}
			parts = append(parts, partPath)
			narration.Sources = append(narration.Sources, source)
		} else {
			narration.Sources = append(narration.Sources, "")
		}

		if pausePath != "" {
			parts = append(parts, pausePath)
		}
		narration.Segments = append(narration.Segments, models.Segment{
			Text:     block.Text,
			Duration: speech + pauseSeconds,
		})
	}

	if len(parts) == 0 {
		return nil, fmt.Errorf("script produced no audio")
	}
	if err := n.audio.ConcatAudio(ctx, parts, narration.Path); err != nil {
		return nil, fmt.Errorf("failed to join narration: %w", err)
	}

	return narration, nil
}

func (n *Narrator) synthesize(ctx context.Context, text, language string) ([]byte, string, error) {
	chain := fallback.New[[]byte]().
		OnFailure(func(provider string, err error) {
			n.logger.LogProviderFallback("tts", provider, err)
			metrics.RecordProviderFallback("tts", provider)
		})
	for _, p := range n.providers {
		p := p
		chain.Then(p.Name(), func(ctx context.Context) ([]byte, error) {
			return p.Synthesize(ctx, text, language)
		})
	}

	out, err := chain.Run(ctx)
	if err != nil {
		return nil, "", err
	}
	return out.Value, out.Source, nil
}
