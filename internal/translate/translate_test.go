package translate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/therealutkarshpriyadarshi/shortgen/internal/logging"
	"github.com/therealutkarshpriyadarshi/shortgen/pkg/models"
)

type fakeCompleter struct {
	content string
	err     error
	calls   int
}

func (f *fakeCompleter) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.calls++
	if f.err != nil {
		return openai.ChatCompletionResponse{}, f.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: f.content}}},
	}, nil
}

type memoryCache struct {
	entries map[string][]string
}

func (m *memoryCache) GetTranslation(ctx context.Context, language string, source []string) ([]string, error) {
	return m.entries[language], nil
}

func (m *memoryCache) SetTranslation(ctx context.Context, language string, source, translated []string, ttl time.Duration) error {
	if m.entries == nil {
		m.entries = make(map[string][]string)
	}
	m.entries[language] = translated
	return nil
}

func sourceScript() *models.Script {
	return &models.Script{
		Topic:    "foco",
		Language: "pt-BR",
		Blocks: []models.Block{
			{Title: "Hook", Text: "Olá"},
			{Title: "Contexto", Text: "Vamos lá"},
			{Title: "CTA", Text: "Tchau"},
		},
	}
}

func TestTranslatePreservesBlockCount(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{"exact", "Hello\nLet's go\nBye", []string{"Hello", "Let's go", "Bye"}},
		{"short output is padded", "Hello\n\n", []string{"Hello", "", ""}},
		{"long output is truncated", "a\nb\nc\nd", []string{"a", "b", "c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewTranslator(&fakeCompleter{content: tt.content}, "", nil, 0, logging.NewNopLogger())

			out, err := tr.Translate(context.Background(), sourceScript(), "en")
			require.NoError(t, err)
			assert.Equal(t, "en", out.Language)
			assert.Equal(t, SourceOpenAI, out.Source)
			assert.Equal(t, tt.want, out.Texts())
			assert.Equal(t, "Hook", out.Blocks[0].Title)
		})
	}
}

func TestTranslateFailureKeepsSource(t *testing.T) {
	tr := NewTranslator(&fakeCompleter{err: errors.New("boom")}, "", nil, 0, logging.NewNopLogger())

	out, err := tr.Translate(context.Background(), sourceScript(), "es")
	require.NoError(t, err)
	assert.Equal(t, SourcePassthrough, out.Source)
	assert.Equal(t, []string{"Olá", "Vamos lá", "Tchau"}, out.Texts())
	assert.Equal(t, "es", out.Language)
}

func TestTranslateSameLanguage(t *testing.T) {
	client := &fakeCompleter{content: "x"}
	tr := NewTranslator(client, "", nil, 0, logging.NewNopLogger())

	out, err := tr.Translate(context.Background(), sourceScript(), "pt")
	require.NoError(t, err)
	assert.Equal(t, SourceSame, out.Source)
	assert.Equal(t, 0, client.calls)
	assert.Equal(t, "pt", out.Language)
}

func TestTranslateUsesCache(t *testing.T) {
	client := &fakeCompleter{content: "Hello\nLet's go\nBye"}
	cache := &memoryCache{}
	tr := NewTranslator(client, "", cache, time.Hour, logging.NewNopLogger())

	_, err := tr.Translate(context.Background(), sourceScript(), "en")
	require.NoError(t, err)

	out, err := tr.Translate(context.Background(), sourceScript(), "en")
	require.NoError(t, err)
	assert.Equal(t, SourceCache, out.Source)
	assert.Equal(t, 1, client.calls)
	assert.Equal(t, []string{"Hello", "Let's go", "Bye"}, out.Texts())
}

func TestTranslatePassthroughNotCached(t *testing.T) {
	cache := &memoryCache{}
	tr := NewTranslator(nil, "", cache, time.Hour, logging.NewNopLogger())

	_, err := tr.Translate(context.Background(), sourceScript(), "en")
	require.NoError(t, err)
	assert.Empty(t, cache.entries)
}

func TestFitBlocks(t *testing.T) {
	assert.Equal(t, []string{"a", ""}, FitBlocks([]string{"a"}, 2))
	assert.Equal(t, []string{"a"}, FitBlocks([]string{"a", "b"}, 1))
	assert.Equal(t, []string{}, FitBlocks(nil, 0))
}

func TestSameLanguage(t *testing.T) {
	assert.True(t, SameLanguage("pt-BR", "pt"))
	assert.True(t, SameLanguage("EN", "en"))
	assert.False(t, SameLanguage("pt-BR", "es"))
	assert.False(t, SameLanguage("", "en"))
}

func TestLanguageName(t *testing.T) {
	assert.Equal(t, "Brazilian Portuguese", LanguageName("pt-BR"))
	assert.Equal(t, "Spanish", LanguageName("es-MX"))
	assert.Equal(t, "xx", LanguageName("xx"))
}
