// Package translate turns a script into other languages while keeping one
// output block per input block, so per-block narration and captions stay
// aligned across languages.
package translate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/therealutkarshpriyadarshi/shortgen/internal/fallback"
	"github.com/therealutkarshpriyadarshi/shortgen/internal/logging"
	"github.com/therealutkarshpriyadarshi/shortgen/internal/metrics"
	"github.com/therealutkarshpriyadarshi/shortgen/pkg/models"
)

const (
	SourceOpenAI      = "openai"
	SourceCache       = "cache"
	SourceSame        = "same-language"
	SourcePassthrough = fallback.SourceBackup
)

var languageNames = map[string]string{
	"pt":    "Portuguese",
	"pt-BR": "Brazilian Portuguese",
	"en":    "English",
	"es":    "Spanish",
	"fr":    "French",
	"it":    "Italian",
	"de":    "German",
	"zh":    "Chinese (Simplified)",
}

// LanguageName returns the English name of a language code, or the code
func LanguageName(code string) string {
	if name, ok := languageNames[code]; ok {
		return name
	}
	if base, _, found := strings.Cut(code, "-"); found {
		if name, ok := languageNames[base]; ok {
			return name
		}
	}
	return code
}

// ChatCompleter is the part of the OpenAI client the translator uses
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Cache stores translated blocks keyed by language and source text
type Cache interface {
	GetTranslation(ctx context.Context, language string, source []string) ([]string, error)
	SetTranslation(ctx context.Context, language string, source, translated []string, ttl time.Duration) error
}

// Translator translates scripts
type Translator struct {
	client   ChatCompleter
	model    string
	cache    Cache
	cacheTTL time.Duration
	logger   *logging.Logger
}

// NewTranslator creates a translator. client and cache may be nil.
func NewTranslator(client ChatCompleter, model string, cache Cache, cacheTTL time.Duration, logger *logging.Logger) *Translator {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &Translator{
		client:   client,
		model:    model,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

// Translate returns script in target. The result always has exactly as many
// blocks as script; when translation fails the source text is kept.
func (t *Translator) Translate(ctx context.Context, script *models.Script, target string) (*models.Script, error) {
	source := script.Texts()
	result := &models.Script{
		Topic:    script.Topic,
		Language: target,
	}

	if SameLanguage(script.Language, target) {
		result.Blocks = append([]models.Block(nil), script.Blocks...)
		result.Source = SourceSame
		return result, nil
	}

	if t.cache != nil {
		cached, err := t.cache.GetTranslation(ctx, target, source)
		if err != nil {
			t.logger.WithError(err).Warn("Failed to read cached translation")
		} else if len(cached) > 0 {
			result.Blocks = withTitles(script.Blocks, FitBlocks(cached, len(source)))
			result.Source = SourceCache
			return result, nil
		}
	}

	chain := fallback.New[[]string]().
		Then(SourceOpenAI, func(ctx context.Context) ([]string, error) {
			return t.complete(ctx, source, target)
		}).
		WithBackup(source).
		OnFailure(func(provider string, err error) {
			t.logger.LogProviderFallback("translate", provider, err)
			metrics.RecordProviderFallback("translate", provider)
		})

	out, err := chain.Run(ctx)
	if err != nil {
		return nil, err
	}

	texts := FitBlocks(out.Value, len(source))
	if out.UsedBackup() {
		metrics.RecordBackupUsed("translate")
	} else if t.cache != nil {
		if err := t.cache.SetTranslation(ctx, target, source, texts, t.cacheTTL); err != nil {
			t.logger.WithError(err).Warn("Failed to cache translation")
		}
	}

	result.Blocks = withTitles(script.Blocks, texts)
	result.Source = out.Source
	return result, nil
}

func (t *Translator) complete(ctx context.Context, source []string, target string) ([]string, error) {
	if t.client == nil {
		return nil, fmt.Errorf("openai client not configured")
	}

	prompt := fmt.Sprintf(
		"Translate line by line into %s, keeping meaning, brevity and a natural tone. "+
			"Return exactly %d lines and nothing else.\n\n%s",
		LanguageName(target), len(source), strings.Join(source, "\n"),
	)
	resp, err := t.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: t.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: "You translate short video narration, preserving brevity and naturalness."},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.2,
	})
	if err != nil {
		return nil, fmt.Errorf("openai request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fallback.ErrEmptyResult
	}

	var lines []string
	for _, line := range strings.Split(resp.Choices[0].Message.Content, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return nil, fallback.ErrEmptyResult
	}
	return lines, nil
}

// FitBlocks pads texts with empty strings or truncates it to n entries
func FitBlocks(texts []string, n int) []string {
	out := make([]string, n)
	copy(out, texts)
	return out
}

// SameLanguage reports whether two language codes name the same language
// for translation purposes ("pt-BR" and "pt" do)
func SameLanguage(a, b string) bool {
	if strings.EqualFold(a, b) {
		return true
	}
	baseA, _, _ := strings.Cut(a, "-")
	baseB, _, _ := strings.Cut(b, "-")
	return baseA != "" && strings.EqualFold(baseA, baseB)
}

func withTitles(src []models.Block, texts []string) []models.Block {
	blocks := make([]models.Block, len(texts))
	for i, text := range texts {
		blocks[i] = models.Block{Title: src[i].Title, Text: text}
	}
	return blocks
}
