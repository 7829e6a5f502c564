package transcoder

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
)

// FFmpeg wraps FFmpeg operations
type FFmpeg struct {
	ffmpegPath  string
	ffprobePath string
}

// NewFFmpeg creates a new FFmpeg instance
func NewFFmpeg(ffmpegPath, ffprobePath string) *FFmpeg {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &FFmpeg{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
	}
}

// MediaMetadata holds metadata extracted from ffprobe
type MediaMetadata struct {
	Format  FormatInfo   `json:"format"`
	Streams []StreamInfo `json:"streams"`
}

// FormatInfo holds format information
type FormatInfo struct {
	Filename   string `json:"filename"`
	FormatName string `json:"format_name"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
	BitRate    string `json:"bit_rate"`
}

// StreamInfo holds stream information
type StreamInfo struct {
	CodecType    string `json:"codec_type"`
	CodecName    string `json:"codec_name"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	Duration     string `json:"duration"`
	SampleRate   string `json:"sample_rate"`
	AvgFrameRate string `json:"avg_frame_rate"`
}

// Probe extracts metadata from a media file
func (f *FFmpeg) Probe(ctx context.Context, inputPath string) (*MediaMetadata, error) {
	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		inputPath,
	}

	cmd := exec.CommandContext(ctx, f.ffprobePath, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffprobe failed: %w, stderr: %s", err, stderr.String())
	}

	return parseMetadata(stdout.Bytes())
}

func parseMetadata(data []byte) (*MediaMetadata, error) {
	var metadata MediaMetadata
	if err := json.Unmarshal(data, &metadata); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}
	return &metadata, nil
}

// Duration returns the container duration in seconds, falling back to the
// longest stream when the container does not report one
func (m *MediaMetadata) Duration() (float64, error) {
	if d, err := strconv.ParseFloat(m.Format.Duration, 64); err == nil && d > 0 {
		return d, nil
	}

	var longest float64
	for _, s := range m.Streams {
		if d, err := strconv.ParseFloat(s.Duration, 64); err == nil && d > longest {
			longest = d
		}
	}
	if longest <= 0 {
		return 0, fmt.Errorf("no duration reported for %s", m.Format.Filename)
	}
	return longest, nil
}

// ProbeDuration measures the playback length of a media file in seconds
func (f *FFmpeg) ProbeDuration(ctx context.Context, inputPath string) (float64, error) {
	metadata, err := f.Probe(ctx, inputPath)
	if err != nil {
		return 0, err
	}
	return metadata.Duration()
}

// ProgressCallback is called with progress updates
type ProgressCallback func(progress float64)

// run executes ffmpeg and returns stderr in the error on failure
func (f *FFmpeg) run(ctx context.Context, args []string) error {
	cmd := exec.CommandContext(ctx, f.ffmpegPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg failed: %w, stderr: %s", err, tail(stderr.String(), 2000))
	}
	return nil
}

var progressRegex = regexp.MustCompile(`out_time_ms=(\d+)`)

// runWithProgress executes ffmpeg and reports progress against totalDuration
func (f *FFmpeg) runWithProgress(ctx context.Context, args []string, totalDuration float64, progressCB ProgressCallback) error {
	args = append(append([]string{}, args[:len(args)-1]...), "-progress", "pipe:1", args[len(args)-1])
	cmd := exec.CommandContext(ctx, f.ffmpegPath, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to create stdout pipe: %w", err)
	}

	var stderrBuf bytes.Buffer
	cmd.Stderr = &stderrBuf

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		matches := progressRegex.FindStringSubmatch(scanner.Text())
		if len(matches) < 2 || totalDuration <= 0 || progressCB == nil {
			continue
		}
		if timeUs, err := strconv.ParseFloat(matches[1], 64); err == nil {
			// out_time_ms is reported in microseconds
			progress := (timeUs / 1000000.0 / totalDuration) * 100
			if progress > 100 {
				progress = 100
			}
			progressCB(progress)
		}
	}

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("ffmpeg failed: %w, stderr: %s", err, tail(stderrBuf.String(), 2000))
	}

	if progressCB != nil {
		progressCB(100)
	}
	return nil
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

// seconds formats a duration for ffmpeg arguments
func seconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}
