package transcoder

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/therealutkarshpriyadarshi/shortgen/pkg/models"
)

// SlideshowOptions describes a vertical slideshow render
type SlideshowOptions struct {
	Images          []string
	Slots           []models.VisualSlot
	AudioPath       string
	SubtitlePath    string
	OutputPath      string
	Width           int
	Height          int
	FPS             int
	Zoom            float64
	Preset          string
	BrandingSeconds float64
}

func (o *SlideshowOptions) setDefaults() {
	if o.Width == 0 {
		o.Width = 1080
	}
	if o.Height == 0 {
		o.Height = 1920
	}
	if o.FPS == 0 {
		o.FPS = 30
	}
	if o.Zoom == 0 {
		o.Zoom = 1.05
	}
	if o.Preset == "" {
		o.Preset = "medium"
	}
}

// Duration is the length of the rendered video: all slots plus the branding card
func (o SlideshowOptions) Duration() float64 {
	var total float64
	for _, s := range o.Slots {
		total += s.Duration
	}
	if o.BrandingSeconds > 0 {
		total += o.BrandingSeconds
	}
	return total
}

func (o SlideshowOptions) validate() error {
	if len(o.Images) == 0 {
		return fmt.Errorf("slideshow needs at least one image")
	}
	if len(o.Slots) == 0 {
		return fmt.Errorf("slideshow needs at least one slot")
	}
	for _, s := range o.Slots {
		if s.AssetIndex < 0 || s.AssetIndex >= len(o.Images) {
			return fmt.Errorf("slot %d references image %d of %d", s.Order, s.AssetIndex, len(o.Images))
		}
		if s.Duration <= 0 {
			return fmt.Errorf("slot %d has non-positive duration %v", s.Order, s.Duration)
		}
	}
	if o.OutputPath == "" {
		return fmt.Errorf("output path is required")
	}
	return nil
}

// ComposeSlideshow renders images into an H.264 video, one zooming still per
// slot in slot order, followed by an optional black branding card. The audio
// track, when given, is mapped as is.
func (f *FFmpeg) ComposeSlideshow(ctx context.Context, opts SlideshowOptions, progressCB ProgressCallback) error {
	opts.setDefaults()
	if err := opts.validate(); err != nil {
		return err
	}
	return f.runWithProgress(ctx, slideshowArgs(opts), opts.Duration(), progressCB)
}

func slideshowArgs(opts SlideshowOptions) []string {
	var args []string

	for _, slot := range opts.Slots {
		args = append(args, "-i", opts.Images[slot.AssetIndex])
	}

	audioInput := -1
	if opts.AudioPath != "" {
		audioInput = len(opts.Slots)
		args = append(args, "-i", opts.AudioPath)
	}

	args = append(args,
		"-filter_complex", slideshowFilter(opts),
		"-map", "[v]",
	)
	if audioInput >= 0 {
		args = append(args, "-map", fmt.Sprintf("%d:a", audioInput), "-c:a", "aac", "-b:a", "192k")
	}

	args = append(args,
		"-c:v", "libx264",
		"-preset", opts.Preset,
		"-pix_fmt", "yuv420p",
		"-r", fmt.Sprintf("%d", opts.FPS),
		"-t", seconds(opts.Duration()),
		"-movflags", "+faststart",
		"-y", opts.OutputPath,
	)
	return args
}

// slideshowFilter builds the filter graph: every slot input is scaled to
// cover the frame, cropped and slowly zoomed in from 1.0 to Zoom over the
// slot, then all parts are concatenated.
func slideshowFilter(opts SlideshowOptions) string {
	var b strings.Builder
	size := fmt.Sprintf("%dx%d", opts.Width, opts.Height)

	for i, slot := range opts.Slots {
		frames := frameCount(slot.Duration, opts.FPS)
		fmt.Fprintf(&b,
			"[%d:v]scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d,setsar=1,"+
				"zoompan=z='1+%.4f*on/%d':x='iw/2-(iw/zoom/2)':y='ih/2-(ih/zoom/2)':d=%d:s=%s:fps=%d[v%d];",
			i, opts.Width, opts.Height, opts.Width, opts.Height,
			opts.Zoom-1, frames, frames, size, opts.FPS, i,
		)
	}

	parts := len(opts.Slots)
	if opts.BrandingSeconds > 0 {
		fmt.Fprintf(&b, "color=c=black:s=%s:d=%s:r=%d,setsar=1[v%d];", size, seconds(opts.BrandingSeconds), opts.FPS, parts)
		parts++
	}

	for i := 0; i < parts; i++ {
		fmt.Fprintf(&b, "[v%d]", i)
	}
	fmt.Fprintf(&b, "concat=n=%d:v=1:a=0,format=yuv420p", parts)

	if opts.SubtitlePath != "" {
		fmt.Fprintf(&b, ",subtitles=%s", escapeFilterPath(opts.SubtitlePath))
	}
	b.WriteString("[v]")
	return b.String()
}

func frameCount(duration float64, fps int) int {
	frames := int(math.Round(duration * float64(fps)))
	if frames < 1 {
		frames = 1
	}
	return frames
}
