package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

// Synthesizer turns text into mp3 audio
type Synthesizer interface {
	Name() string
	Synthesize(ctx context.Context, text, language string) ([]byte, error)
}

// ElevenLabsConfig holds ElevenLabs settings
type ElevenLabsConfig struct {
	APIKey           string
	BaseURL          string
	Model            string
	DefaultVoice     string
	VoicesByLanguage map[string]string
	Timeout          time.Duration
}

// ElevenLabs synthesizes speech with the ElevenLabs text-to-speech API
type ElevenLabs struct {
	cfg    ElevenLabsConfig
	client *http.Client
}

type elevenLabsRequest struct {
	Text          string                 `json:"text"`
	ModelID       string                 `json:"model_id"`
	VoiceSettings map[string]interface{} `json:"voice_settings"`
}

// NewElevenLabs creates an ElevenLabs client
func NewElevenLabs(cfg ElevenLabsConfig) *ElevenLabs {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.elevenlabs.io/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "eleven_multilingual_v2"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &ElevenLabs{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// Name implements Synthesizer
func (e *ElevenLabs) Name() string { return "elevenlabs" }

func (e *ElevenLabs) voice(language string) string {
	if v, ok := e.cfg.VoicesByLanguage[language]; ok && v != "" {
		return v
	}
	if v, ok := e.cfg.VoicesByLanguage[strings.ToLower(language)]; ok && v != "" {
		return v
	}
	return e.cfg.DefaultVoice
}

// Synthesize implements Synthesizer
func (e *ElevenLabs) Synthesize(ctx context.Context, text, language string) ([]byte, error) {
	if e.cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}
	voice := e.voice(language)
	if voice == "" {
		return nil, fmt.Errorf("no elevenlabs voice for %s", language)
	}

	payload, err := json.Marshal(elevenLabsRequest{
		Text:    text,
		ModelID: e.cfg.Model,
		VoiceSettings: map[string]interface{}{
			"stability":        0.5,
			"similarity_boost": 0.75,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/text-to-speech/%s", strings.TrimRight(e.cfg.BaseURL, "/"), voice)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", e.cfg.APIKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("elevenlabs API error (%d): %s", resp.StatusCode, string(body))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio: %w", err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("elevenlabs returned empty audio")
	}
	return audio, nil
}

// OpenAISpeech synthesizes speech with the OpenAI speech endpoint
type OpenAISpeech struct {
	client *openai.Client
	voice  string
}

// NewOpenAISpeech creates an OpenAI speech synthesizer. client may be nil.
func NewOpenAISpeech(client *openai.Client, voice string) *OpenAISpeech {
	if voice == "" {
		voice = string(openai.VoiceAlloy)
	}
	return &OpenAISpeech{client: client, voice: voice}
}

// Name implements Synthesizer
func (o *OpenAISpeech) Name() string { return "openai" }

// Synthesize implements Synthesizer
func (o *OpenAISpeech) Synthesize(ctx context.Context, text, language string) ([]byte, error) {
	if o.client == nil {
		return nil, ErrNotConfigured
	}

	resp, err := o.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.TTSModel1,
		Input:          text,
		Voice:          openai.SpeechVoice(o.voice),
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return nil, fmt.Errorf("openai speech request failed: %w", err)
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio: %w", err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("openai returned empty audio")
	}
	return audio, nil
}
