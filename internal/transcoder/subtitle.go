package transcoder

import (
	"context"
	"fmt"
	"strings"
)

// BurnSubtitleOptions holds options for burning captions into a video
type BurnSubtitleOptions struct {
	InputPath    string
	SubtitlePath string
	OutputPath   string
	FontSize     int
	Preset       string
}

// BurnSubtitles renders an SRT file onto the video frames, copying audio
func (f *FFmpeg) BurnSubtitles(ctx context.Context, opts BurnSubtitleOptions) error {
	if opts.SubtitlePath == "" {
		return fmt.Errorf("subtitle path is required")
	}
	return f.run(ctx, burnSubtitleArgs(opts))
}

func burnSubtitleArgs(opts BurnSubtitleOptions) []string {
	if opts.Preset == "" {
		opts.Preset = "medium"
	}

	filter := "subtitles=" + escapeFilterPath(opts.SubtitlePath)
	if opts.FontSize > 0 {
		filter += fmt.Sprintf(":force_style='Fontsize=%d,Alignment=2'", opts.FontSize)
	}

	return []string{
		"-i", opts.InputPath,
		"-vf", filter,
		"-c:v", "libx264",
		"-preset", opts.Preset,
		"-c:a", "copy",
		"-y", opts.OutputPath,
	}
}

// escapeFilterPath escapes a file path for use as a filter option value
func escapeFilterPath(path string) string {
	escaped := strings.ReplaceAll(path, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, ":", `\:`)
	escaped = strings.ReplaceAll(escaped, "'", `\'`)
	return escaped
}
