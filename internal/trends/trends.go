// Package trends discovers the topics a daily run generates videos for.
// SerpApi is tried first, then the public Google Trends RSS feed, and a
// fixed backup list keeps the pipeline running when both are unavailable.
package trends

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/therealutkarshpriyadarshi/shortgen/internal/fallback"
	"github.com/therealutkarshpriyadarshi/shortgen/internal/logging"
	"github.com/therealutkarshpriyadarshi/shortgen/internal/metrics"
	"github.com/therealutkarshpriyadarshi/shortgen/pkg/models"
)

const (
	SourceSerpAPI = "serpapi"
	SourceRSS     = "rss"
	SourceCache   = "cache"
)

// ErrNotConfigured is returned by a provider that has no credentials
var ErrNotConfigured = errors.New("provider not configured")

// Backup is returned when no external source produced topics
var Backup = []models.Topic{
	{Title: "Inteligência Artificial", Related: []string{"AI", "Machine Learning"}},
	{Title: "Carros Elétricos", Related: []string{"EV", "bateria"}},
	{Title: "Cibersegurança", Related: []string{"ransomware"}},
	{Title: "Energia Solar"},
	{Title: "Saúde Digital"},
	{Title: "E-commerce"},
	{Title: "Criptomoedas"},
	{Title: "Viagens 2025"},
	{Title: "Empreendedorismo"},
	{Title: "Produtividade"},
}

// Config holds trend source settings
type Config struct {
	SerpAPIKey string
	SerpAPIURL string
	RSSURL     string
	Region     string
	Timeout    time.Duration
	CacheTTL   time.Duration
}

// TopicCache stores discovered topics per region
type TopicCache interface {
	GetTopics(ctx context.Context, region string) ([]models.Topic, error)
	SetTopics(ctx context.Context, region string, topics []models.Topic, ttl time.Duration) error
}

// Service fetches trending topics
type Service struct {
	cfg    Config
	client *http.Client
	cache  TopicCache
	logger *logging.Logger
}

// NewService creates a trends service. cache may be nil.
func NewService(cfg Config, cache TopicCache, logger *logging.Logger) *Service {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Region == "" {
		cfg.Region = "BR"
	}
	return &Service{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		cache:  cache,
		logger: logger,
	}
}

// Top returns up to limit deduplicated topics and the source they came from
func (s *Service) Top(ctx context.Context, limit int) (fallback.Outcome[[]models.Topic], error) {
	region := strings.ToUpper(s.cfg.Region)

	if s.cache != nil {
		cached, err := s.cache.GetTopics(ctx, region)
		if err != nil {
			s.logger.WithError(err).Warn("Failed to read cached topics")
		} else if len(cached) > 0 {
			return fallback.Outcome[[]models.Topic]{Value: Dedup(cached, limit), Source: SourceCache}, nil
		}
	}

	chain := fallback.New[[]models.Topic]().
		Then(SourceSerpAPI, func(ctx context.Context) ([]models.Topic, error) {
			return nonEmpty(s.fetchSerpAPI(ctx, region, limit))
		}).
		Then(SourceRSS, func(ctx context.Context) ([]models.Topic, error) {
			return nonEmpty(s.fetchRSS(ctx, region, limit))
		}).
		WithBackup(Dedup(Backup, limit)).
		OnFailure(func(provider string, err error) {
			s.logger.LogProviderFallback("trends", provider, err)
			metrics.RecordProviderFallback("trends", provider)
		})

	out, err := chain.Run(ctx)
	if err != nil {
		return out, err
	}

	if out.UsedBackup() {
		metrics.RecordBackupUsed("trends")
		s.logger.Warn("No external trend data, using backup topics")
		return out, nil
	}

	if s.cache != nil {
		if err := s.cache.SetTopics(ctx, region, out.Value, s.cfg.CacheTTL); err != nil {
			s.logger.WithError(err).Warn("Failed to cache topics")
		}
	}
	return out, nil
}

func nonEmpty(topics []models.Topic, err error) ([]models.Topic, error) {
	if err != nil {
		return nil, err
	}
	if len(topics) == 0 {
		return nil, fallback.ErrEmptyResult
	}
	return topics, nil
}

// Dedup drops topics with blank or repeated (case-insensitive) titles and
// keeps at most limit of them. A limit <= 0 keeps all.
func Dedup(topics []models.Topic, limit int) []models.Topic {
	seen := make(map[string]bool, len(topics))
	out := make([]models.Topic, 0, len(topics))
	for _, t := range topics {
		t.Title = strings.TrimSpace(t.Title)
		key := strings.ToLower(t.Title)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, t)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

type serpResponse struct {
	Error            string `json:"error"`
	TrendingSearches []struct {
		TrendingSearches []serpSearch `json:"trending_searches"`
	} `json:"trending_searches"`
}

type serpSearch struct {
	Title            string      `json:"title"`
	FormattedTraffic string      `json:"formattedTraffic"`
	RelatedQueries   []serpQuery `json:"relatedQueries"`
	RelatedQueries2  []serpQuery `json:"related_queries"`
}

type serpQuery struct {
	Query string `json:"query"`
	Title string `json:"title"`
}

func (s *Service) fetchSerpAPI(ctx context.Context, region string, limit int) ([]models.Topic, error) {
	if s.cfg.SerpAPIKey == "" {
		return nil, ErrNotConfigured
	}

	params := url.Values{}
	params.Set("engine", "google_trends")
	params.Set("trend_type", "daily_trends")
	params.Set("geo", region)
	params.Set("api_key", s.cfg.SerpAPIKey)

	body, err := s.get(ctx, s.cfg.SerpAPIURL+"?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("serpapi request failed: %w", err)
	}

	var resp serpResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode serpapi response: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("serpapi error: %s", resp.Error)
	}

	var topics []models.Topic
	for _, day := range resp.TrendingSearches {
		for _, t := range day.TrendingSearches {
			var related []string
			queries := t.RelatedQueries
			if len(queries) == 0 {
				queries = t.RelatedQueries2
			}
			for _, q := range queries {
				if rel := firstNonEmpty(q.Query, q.Title); rel != "" {
					related = append(related, rel)
				}
			}
			topics = append(topics, models.Topic{Title: t.Title, Related: related, Traffic: t.FormattedTraffic})
		}
	}
	return Dedup(topics, limit), nil
}

type rssFeed struct {
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title     string `xml:"title"`
	Traffic   string `xml:"approx_traffic"`
	NewsItems []struct {
		Title string `xml:"news_item_title"`
	} `xml:"news_item"`
}

func (s *Service) fetchRSS(ctx context.Context, region string, limit int) ([]models.Topic, error) {
	if s.cfg.RSSURL == "" {
		return nil, ErrNotConfigured
	}

	body, err := s.get(ctx, s.cfg.RSSURL+"?geo="+url.QueryEscape(region))
	if err != nil {
		return nil, fmt.Errorf("trends rss request failed: %w", err)
	}

	var feed rssFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("failed to decode trends rss: %w", err)
	}

	topics := make([]models.Topic, 0, len(feed.Channel.Items))
	for _, item := range feed.Channel.Items {
		var related []string
		for _, n := range item.NewsItems {
			if n.Title != "" {
				related = append(related, strings.TrimSpace(n.Title))
			}
		}
		topics = append(topics, models.Topic{Title: item.Title, Related: related, Traffic: item.Traffic})
	}
	return Dedup(topics, limit), nil
}

func (s *Service) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}
	return body, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
