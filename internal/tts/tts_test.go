package tts

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/therealutkarshpriyadarshi/shortgen/internal/fallback"
	"github.com/therealutkarshpriyadarshi/shortgen/internal/logging"
	"github.com/therealutkarshpriyadarshi/shortgen/pkg/models"
)

// fakeAudio measures a file as one second per byte
type fakeAudio struct {
	silences []float64
	joined   []string
}

func (f *fakeAudio) ProbeDuration(ctx context.Context, path string) (float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return float64(len(data)), nil
}

func (f *fakeAudio) GenerateSilence(ctx context.Context, duration float64, outputPath string) error {
	f.silences = append(f.silences, duration)
	return os.WriteFile(outputPath, nil, 0644)
}

func (f *fakeAudio) ConcatAudio(ctx context.Context, inputs []string, outputPath string) error {
	f.joined = inputs
	return os.WriteFile(outputPath, []byte("mp3"), 0644)
}

type fakeSynth struct {
	name  string
	err   error
	calls int
}

func (f *fakeSynth) Name() string { return f.name }

func (f *fakeSynth) Synthesize(ctx context.Context, text, language string) ([]byte, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []byte(text), nil
}

func testScript(texts ...string) *models.Script {
	return &models.Script{Language: "pt-BR", Blocks: models.BlocksFromTexts(texts)}
}

func TestNarrateMeasuresBlocksWithPause(t *testing.T) {
	audio := &fakeAudio{}
	synth := &fakeSynth{name: "primary"}
	n := NewNarrator(audio, DefaultPause, logging.NewNopLogger(), synth)

	narration, err := n.Narrate(context.Background(), testScript("abc", "", "abcde"), t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, []float64{3.25, 0.25, 5.25}, narration.Durations())
	assert.Equal(t, []string{"primary", "", "primary"}, narration.Sources)
	assert.Equal(t, "pt-BR", narration.Language)
	assert.Equal(t, 2, synth.calls)
	assert.Equal(t, []float64{0.25}, audio.silences)
	assert.Len(t, audio.joined, 5)
	assert.FileExists(t, narration.Path)
}

func TestNarrateWithoutPause(t *testing.T) {
	audio := &fakeAudio{}
	n := NewNarrator(audio, 0, logging.NewNopLogger(), &fakeSynth{name: "primary"})

	narration, err := n.Narrate(context.Background(), testScript("ab", "abcd"), t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, []float64{2, 4}, narration.Durations())
	assert.Empty(t, audio.silences)
	assert.Len(t, audio.joined, 2)
}

func TestNarrateFallsBackToSecondProvider(t *testing.T) {
	first := &fakeSynth{name: "elevenlabs", err: errors.New("quota")}
	second := &fakeSynth{name: "openai"}
	n := NewNarrator(&fakeAudio{}, DefaultPause, logging.NewNopLogger(), first, second)

	narration, err := n.Narrate(context.Background(), testScript("a", "b"), t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, []string{"openai", "openai"}, narration.Sources)
	assert.Equal(t, 2, first.calls)
}

func TestNarrateFailsWhenAllProvidersFail(t *testing.T) {
	n := NewNarrator(&fakeAudio{}, DefaultPause, logging.NewNopLogger(),
		&fakeSynth{name: "a", err: ErrNotConfigured},
		&fakeSynth{name: "b", err: ErrNotConfigured},
	)

	_, err := n.Narrate(context.Background(), testScript("x"), t.TempDir())
	assert.ErrorIs(t, err, fallback.ErrAllProvidersFailed)
}

func TestNarrateRejectsEmptyScript(t *testing.T) {
	n := NewNarrator(&fakeAudio{}, DefaultPause, logging.NewNopLogger(), &fakeSynth{name: "a"})

	_, err := n.Narrate(context.Background(), &models.Script{}, t.TempDir())
	assert.Error(t, err)
}

func TestElevenLabsSynthesize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/text-to-speech/voice-es", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("xi-api-key"))

		var body elevenLabsRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "hola", body.Text)
		assert.Equal(t, "eleven_multilingual_v2", body.ModelID)

		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write([]byte("ID3audio"))
	}))
	defer server.Close()

	e := NewElevenLabs(ElevenLabsConfig{
		APIKey:           "key",
		BaseURL:          server.URL + "/v1",
		DefaultVoice:     "voice-default",
		VoicesByLanguage: map[string]string{"es": "voice-es"},
		Timeout:          5 * time.Second,
	})

	audio, err := e.Synthesize(context.Background(), "hola", "es")
	require.NoError(t, err)
	assert.Equal(t, []byte("ID3audio"), audio)
}

func TestElevenLabsErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := NewElevenLabs(ElevenLabsConfig{}).Synthesize(context.Background(), "x", "en")
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = NewElevenLabs(ElevenLabsConfig{APIKey: "k", BaseURL: server.URL}).Synthesize(context.Background(), "x", "en")
	assert.Error(t, err, "missing voice")

	_, err = NewElevenLabs(ElevenLabsConfig{APIKey: "k", BaseURL: server.URL, DefaultVoice: "v"}).Synthesize(context.Background(), "x", "en")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestOpenAISpeechSynthesize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/audio/speech", r.URL.Path)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "hello", body["input"])
		assert.Equal(t, "nova", body["voice"])

		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write([]byte("mp3-bytes"))
	}))
	defer server.Close()

	cfg := openai.DefaultConfig("test")
	cfg.BaseURL = server.URL + "/v1"
	s := NewOpenAISpeech(openai.NewClientWithConfig(cfg), "nova")

	audio, err := s.Synthesize(context.Background(), "hello", "en")
	require.NoError(t, err)
	assert.Equal(t, []byte("mp3-bytes"), audio)
}

func TestOpenAISpeechNotConfigured(t *testing.T) {
	_, err := NewOpenAISpeech(nil, "").Synthesize(context.Background(), "x", "en")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestNarrationPathInWorkDir(t *testing.T) {
	dir := t.TempDir()
	n := NewNarrator(&fakeAudio{}, DefaultPause, logging.NewNopLogger(), &fakeSynth{name: "a"})

	narration, err := n.Narrate(context.Background(), testScript("x"), dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "narration.mp3"), narration.Path)
}
