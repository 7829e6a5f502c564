package transcoder

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	// DefaultMusicVolume is the gain applied to background music under narration
	DefaultMusicVolume = 0.15

	audioSampleRate = "44100"
)

var musicExtensions = map[string]bool{
	".mp3":  true,
	".wav":  true,
	".m4a":  true,
	".flac": true,
	".ogg":  true,
}

// GenerateSilence writes an mp3 of silence lasting duration seconds
func (f *FFmpeg) GenerateSilence(ctx context.Context, duration float64, outputPath string) error {
	if duration <= 0 {
		return fmt.Errorf("silence duration must be positive, got %v", duration)
	}
	return f.run(ctx, silenceArgs(duration, outputPath))
}

func silenceArgs(duration float64, outputPath string) []string {
	return []string{
		"-f", "lavfi",
		"-i", "anullsrc=r=" + audioSampleRate + ":cl=mono",
		"-t", seconds(duration),
		"-c:a", "libmp3lame",
		"-q:a", "4",
		"-y", outputPath,
	}
}

// AppendSilence copies inputPath to outputPath with pad seconds of trailing
// silence. A pad of zero only re-encodes.
func (f *FFmpeg) AppendSilence(ctx context.Context, inputPath string, pad float64, outputPath string) error {
	if pad < 0 {
		return fmt.Errorf("pad must not be negative, got %v", pad)
	}
	return f.run(ctx, appendSilenceArgs(inputPath, pad, outputPath))
}

func appendSilenceArgs(inputPath string, pad float64, outputPath string) []string {
	args := []string{"-i", inputPath}
	if pad > 0 {
		args = append(args, "-af", "apad=pad_dur="+seconds(pad))
	}
	return append(args, "-c:a", "libmp3lame", "-q:a", "4", "-y", outputPath)
}

// ConcatAudio joins audio files in order into a single mp3
func (f *FFmpeg) ConcatAudio(ctx context.Context, inputs []string, outputPath string) error {
	if len(inputs) == 0 {
		return fmt.Errorf("no audio inputs to concatenate")
	}

	listFile, err := createConcatFile(inputs)
	if err != nil {
		return fmt.Errorf("failed to create concat file: %w", err)
	}
	defer os.Remove(listFile)

	return f.run(ctx, concatAudioArgs(listFile, outputPath))
}

func concatAudioArgs(listFile, outputPath string) []string {
	return []string{
		"-f", "concat",
		"-safe", "0",
		"-i", listFile,
		"-ar", audioSampleRate,
		"-c:a", "libmp3lame",
		"-q:a", "4",
		"-y", outputPath,
	}
}

// MixOptions holds options for laying background music under narration
type MixOptions struct {
	NarrationPath string
	MusicPath     string
	OutputPath    string
	Volume        float64
	Duration      float64
}

// MixMusic lays a looped, attenuated music track under the narration and
// trims the result to Duration
func (f *FFmpeg) MixMusic(ctx context.Context, opts MixOptions) error {
	if opts.Duration <= 0 {
		return fmt.Errorf("mix duration must be positive, got %v", opts.Duration)
	}
	return f.run(ctx, mixMusicArgs(opts))
}

func mixMusicArgs(opts MixOptions) []string {
	volume := opts.Volume
	if volume <= 0 {
		volume = DefaultMusicVolume
	}

	filter := fmt.Sprintf(
		"[1:a]volume=%.2f,atrim=0:%s[bg];[0:a]apad[voice];[voice][bg]amix=inputs=2:duration=shortest:dropout_transition=0:normalize=0[a]",
		volume, seconds(opts.Duration),
	)

	return []string{
		"-i", opts.NarrationPath,
		"-stream_loop", "-1",
		"-i", opts.MusicPath,
		"-filter_complex", filter,
		"-map", "[a]",
		"-t", seconds(opts.Duration),
		"-c:a", "libmp3lame",
		"-q:a", "4",
		"-y", opts.OutputPath,
	}
}

// ListTracks returns the music files in dir, sorted by name. A missing
// directory yields no tracks.
func ListTracks(dir string) ([]string, error) {
	if dir == "" {
		return nil, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read music directory: %w", err)
	}

	var tracks []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if musicExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			tracks = append(tracks, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(tracks)
	return tracks, nil
}

// PickTrack chooses a random track from dir; "" when there is none
func PickTrack(dir string, rng *rand.Rand) (string, error) {
	tracks, err := ListTracks(dir)
	if err != nil || len(tracks) == 0 {
		return "", err
	}
	if rng == nil {
		return tracks[rand.Intn(len(tracks))], nil
	}
	return tracks[rng.Intn(len(tracks))], nil
}
