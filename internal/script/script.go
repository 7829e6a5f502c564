// Package script writes the narration for a topic. The daily profile asks an
// LLM for a JSON script and falls back to the template beats used by the
// story profile; the trends profile always uses fixed caption lines.
package script

import (
	"context"
	"encoding/json"
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
	SourceOpenAI   = "openai"
	SourceTemplate = "template"

	// DefaultLanguage is the language scripts are written in
	DefaultLanguage = "pt-BR"

	// maxFreeformBlocks caps the blocks taken from a non-JSON completion
	maxFreeformBlocks = 8

	trendLinesMin = 20
	trendLinesMax = 22
	trendFiller   = "Acompanhe as próximas tendências!"
)

const systemPrompt = "Você é um roteirista de vídeos curtos de autoajuda. " +
	"Escreva um roteiro inspirador, prático e direto, dividido em 6 a 8 blocos " +
	"equilibrados para um vídeo de 60 segundos, com linguagem acessível e não clichê. " +
	"Inclua um call-to-action suave no final. Não use listas numeradas."

const userPrompt = `Crie um roteiro original de autoajuda com o tema: "%s".
Requisitos:
- Duração total aproximada: 60 segundos de narração.
- Divida em 6 a 8 blocos curtos; cada bloco deve ter 1 a 2 frases.
- Tom: pragmático, gentil, sem promessas exageradas.
- Sem jargões de coaching. Foco em 1 micro-hábito que possa ser feito hoje.
- Saída em JSON com: language, blocks[], onde cada block tem "text".`

// ChatCompleter is the part of the OpenAI client the writer uses
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// NewOpenAIClient builds a go-openai client, honouring a custom base URL
func NewOpenAIClient(apiKey, baseURL string) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return openai.NewClientWithConfig(cfg)
}

// Writer produces scripts
type Writer struct {
	client ChatCompleter
	model  string
	logger *logging.Logger
	now    func() time.Time
}

// NewWriter creates a writer. A nil client disables the LLM step.
func NewWriter(client ChatCompleter, model string, logger *logging.Logger) *Writer {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &Writer{
		client: client,
		model:  model,
		logger: logger,
		now:    time.Now,
	}
}

// Daily writes the script for a daily run on theme. When the LLM is
// unavailable the six story beats for the theme are returned instead.
func (w *Writer) Daily(ctx context.Context, theme string) (*models.Script, error) {
	chain := fallback.New[*models.Script]().
		Then(SourceOpenAI, func(ctx context.Context) (*models.Script, error) {
			return w.complete(ctx, theme)
		}).
		WithBackup(Story(theme)).
		OnFailure(func(provider string, err error) {
			w.logger.LogProviderFallback("script", provider, err)
			metrics.RecordProviderFallback("script", provider)
		})

	out, err := chain.Run(ctx)
	if err != nil {
		return nil, err
	}
	if out.UsedBackup() {
		metrics.RecordBackupUsed("script")
		out.Value.Source = SourceTemplate
	}
	return out.Value, nil
}

func (w *Writer) complete(ctx context.Context, theme string) (*models.Script, error) {
	if w.client == nil {
		return nil, fmt.Errorf("openai client not configured")
	}

	seed := fmt.Sprintf("%s %s", theme, w.now().Format("2006-01-02"))
	resp, err := w.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: w.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf(userPrompt, seed)},
		},
		Temperature: 0.8,
	})
	if err != nil {
		return nil, fmt.Errorf("openai request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fallback.ErrEmptyResult
	}

	script := Parse(resp.Choices[0].Message.Content)
	if len(script.Blocks) == 0 {
		return nil, fallback.ErrEmptyResult
	}
	script.Topic = theme
	script.Source = SourceOpenAI
	return script, nil
}

// Parse reads a completion as {"language", "blocks": [{"text"}]}. Content
// that is not JSON is split into at most eight non-blank lines.
func Parse(content string) *models.Script {
	content = stripFence(strings.TrimSpace(content))

	var data struct {
		Language string         `json:"language"`
		Blocks   []models.Block `json:"blocks"`
	}
	if err := json.Unmarshal([]byte(content), &data); err == nil {
		script := &models.Script{Language: data.Language}
		for _, b := range data.Blocks {
			if text := strings.TrimSpace(b.Text); text != "" {
				script.Blocks = append(script.Blocks, models.Block{Title: b.Title, Text: text})
			}
		}
		if script.Language == "" {
			script.Language = DefaultLanguage
		}
		return script
	}

	return &models.Script{
		Language: DefaultLanguage,
		Blocks:   models.BlocksFromLines(content, maxFreeformBlocks),
	}
}

func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// Story returns the six-beat story for a topic
func Story(topic string) *models.Script {
	t := strings.TrimRight(strings.TrimSpace(topic), ".")
	beats := []models.Block{
		{Title: "Hook", Text: fmt.Sprintf("%s: você já pensou no impacto real disso hoje?", t)},
		{Title: "Contexto", Text: fmt.Sprintf("Em 10 segundos, te mostro o essencial sobre %s.", t)},
		{Title: "Conflito", Text: "O problema: muita gente erra porque ignora um detalhe-chave."},
		{Title: "Virada", Text: "A sacada: um passo simples muda tudo quando você aplica agora."},
		{Title: "Payoff", Text: fmt.Sprintf("Resultado: clareza, menos desperdício e ganho imediato em %s.", t)},
		{Title: "CTA", Text: fmt.Sprintf("Curtiu? Salve e compartilhe para lembrar de %s depois.", t)},
	}
	return &models.Script{
		Topic:    t,
		Language: DefaultLanguage,
		Blocks:   beats,
		Source:   SourceTemplate,
	}
}

// TrendLines returns the short caption lines used by the trends profile,
// padded with a filler line so a fixed per-line duration fills the video
func TrendLines(topic string) []string {
	lines := []string{
		fmt.Sprintf("Você viu isso? %s explodiu nas buscas!", strings.TrimSpace(topic)),
		"Fica até o fim para uma dica.",
		"Resumo em 1 minuto:",
		"• O que é e por que importa.",
		"• O que mudou nesta semana.",
		"• Como isso pode te impactar.",
		"Dica extra: salve para lembrar e compartilhar.",
		"Segue a conta para as tendências diárias!",
	}
	for len(lines) < trendLinesMin {
		lines = append(lines, trendFiller)
	}
	if len(lines) > trendLinesMax {
		lines = lines[:trendLinesMax]
	}
	return lines
}

// Trend wraps TrendLines into a script
func Trend(topic string) *models.Script {
	return &models.Script{
		Topic:    strings.TrimSpace(topic),
		Language: DefaultLanguage,
		Blocks:   models.BlocksFromTexts(TrendLines(topic)),
		Source:   SourceTemplate,
	}
}
