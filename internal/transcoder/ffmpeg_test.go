package transcoder

import (
	"context"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/therealutkarshpriyadarshi/shortgen/pkg/models"
)

func TestMetadataDuration(t *testing.T) {
	tests := []struct {
		name    string
		json    string
		want    float64
		wantErr bool
	}{
		{
			name: "format duration",
			json: `{"format":{"filename":"a.mp3","duration":"12.345000"},"streams":[]}`,
			want: 12.345,
		},
		{
			name: "stream fallback",
			json: `{"format":{"filename":"a.mp3","duration":"N/A"},"streams":[{"codec_type":"audio","duration":"3.5"},{"codec_type":"video","duration":"4.25"}]}`,
			want: 4.25,
		},
		{
			name:    "no duration",
			json:    `{"format":{"filename":"a.mp3"},"streams":[]}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			metadata, err := parseMetadata([]byte(tt.json))
			require.NoError(t, err)

			got, err := metadata.Duration()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestParseMetadataInvalid(t *testing.T) {
	_, err := parseMetadata([]byte("not json"))
	assert.Error(t, err)
}

func TestNewFFmpegDefaults(t *testing.T) {
	f := NewFFmpeg("", "")
	assert.Equal(t, "ffmpeg", f.ffmpegPath)
	assert.Equal(t, "ffprobe", f.ffprobePath)
}

func TestSilenceArgs(t *testing.T) {
	args := silenceArgs(11.5, "/tmp/pad.mp3")
	joined := strings.Join(args, " ")

	assert.Contains(t, joined, "-f lavfi")
	assert.Contains(t, joined, "-t 11.500")
	assert.Equal(t, "/tmp/pad.mp3", args[len(args)-1])
}

func TestGenerateSilenceRejectsNonPositive(t *testing.T) {
	f := NewFFmpeg("", "")
	assert.Error(t, f.GenerateSilence(context.Background(), 0, "out.mp3"))
}

func TestAppendSilenceArgs(t *testing.T) {
	withPad := strings.Join(appendSilenceArgs("in.mp3", 2, "out.mp3"), " ")
	assert.Contains(t, withPad, "apad=pad_dur=2.000")

	noPad := strings.Join(appendSilenceArgs("in.mp3", 0, "out.mp3"), " ")
	assert.NotContains(t, noPad, "apad")
}

func TestMixMusicArgs(t *testing.T) {
	args := mixMusicArgs(MixOptions{
		NarrationPath: "voice.mp3",
		MusicPath:     "music.mp3",
		OutputPath:    "mix.mp3",
		Duration:      63,
	})
	joined := strings.Join(args, " ")

	assert.Contains(t, joined, "-stream_loop -1 -i music.mp3")
	assert.Contains(t, joined, "volume=0.15")
	assert.Contains(t, joined, "atrim=0:63.000")
	assert.Contains(t, joined, "-t 63.000")
}

func TestCreateConcatFile(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.mp3")
	b := filepath.Join(dir, "it's.mp3")

	listFile, err := createConcatFile([]string{a, b})
	require.NoError(t, err)
	defer os.Remove(listFile)

	data, err := os.ReadFile(listFile)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "file '"+a+"'", lines[0])
	assert.Contains(t, lines[1], `it'\''s.mp3`)
}

func TestListAndPickTracks(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.mp3", "a.WAV", "notes.txt", "c.ogg"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.mp3"), 0755))

	tracks, err := ListTracks(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.WAV"),
		filepath.Join(dir, "b.mp3"),
		filepath.Join(dir, "c.ogg"),
	}, tracks)

	track, err := PickTrack(dir, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	assert.Contains(t, tracks, track)

	missing, err := PickTrack(filepath.Join(dir, "missing"), nil)
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestSlideshowArgs(t *testing.T) {
	opts := SlideshowOptions{
		Images: []string{"0.jpg", "1.jpg", "2.jpg"},
		Slots: []models.VisualSlot{
			{AssetIndex: 0, Duration: 3, Order: 0},
			{AssetIndex: 1, Duration: 3, Order: 1},
			{AssetIndex: 2, Duration: 3, Order: 2},
			{AssetIndex: 0, Duration: 3, Order: 3},
		},
		AudioPath:       "voice.mp3",
		OutputPath:      "out.mp4",
		BrandingSeconds: 3,
	}
	opts.setDefaults()
	require.NoError(t, opts.validate())

	args := slideshowArgs(opts)
	joined := strings.Join(args, " ")

	assert.True(t, strings.HasPrefix(joined, "-i 0.jpg -i 1.jpg -i 2.jpg -i 0.jpg -i voice.mp3"))
	assert.Contains(t, joined, "-map 4:a")
	assert.Contains(t, joined, "-t 15.000")
	assert.Equal(t, "out.mp4", args[len(args)-1])

	filter := slideshowFilter(opts)
	assert.Contains(t, filter, "color=c=black:s=1080x1920:d=3.000:r=30")
	assert.Contains(t, filter, "[v0][v1][v2][v3][v4]concat=n=5:v=1:a=0")
	assert.Contains(t, filter, "d=90:s=1080x1920:fps=30")
	assert.True(t, strings.HasSuffix(filter, "[v]"))
}

func TestSlideshowWithSubtitles(t *testing.T) {
	opts := SlideshowOptions{
		Images:       []string{"0.jpg"},
		Slots:        []models.VisualSlot{{Duration: 2}},
		SubtitlePath: `C:\subs\en.srt`,
		OutputPath:   "out.mp4",
	}
	opts.setDefaults()

	filter := slideshowFilter(opts)
	assert.Contains(t, filter, `subtitles=C\:\\subs\\en.srt[v]`)
	assert.NotContains(t, filter, "color=c=black")
}

func TestSlideshowValidate(t *testing.T) {
	tests := []struct {
		name string
		opts SlideshowOptions
	}{
		{"no images", SlideshowOptions{Slots: []models.VisualSlot{{Duration: 1}}, OutputPath: "o"}},
		{"no slots", SlideshowOptions{Images: []string{"a"}, OutputPath: "o"}},
		{"bad index", SlideshowOptions{Images: []string{"a"}, Slots: []models.VisualSlot{{AssetIndex: 1, Duration: 1}}, OutputPath: "o"}},
		{"zero duration", SlideshowOptions{Images: []string{"a"}, Slots: []models.VisualSlot{{Duration: 0}}, OutputPath: "o"}},
		{"no output", SlideshowOptions{Images: []string{"a"}, Slots: []models.VisualSlot{{Duration: 1}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.opts.validate())
		})
	}
}

func TestBurnSubtitleArgs(t *testing.T) {
	args := burnSubtitleArgs(BurnSubtitleOptions{
		InputPath:    "in.mp4",
		SubtitlePath: "/tmp/pt-BR.srt",
		OutputPath:   "out.mp4",
		FontSize:     18,
	})
	joined := strings.Join(args, " ")

	assert.Contains(t, joined, "subtitles=/tmp/pt-BR.srt:force_style='Fontsize=18,Alignment=2'")
	assert.Contains(t, joined, "-c:a copy")
	assert.Contains(t, joined, "-preset medium")
}

func TestFrameCount(t *testing.T) {
	assert.Equal(t, 90, frameCount(3, 30))
	assert.Equal(t, 1, frameCount(0.001, 30))
}
