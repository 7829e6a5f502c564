// Package media finds and downloads the stock images a video is built from
package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/therealutkarshpriyadarshi/shortgen/internal/fallback"
	"github.com/therealutkarshpriyadarshi/shortgen/internal/logging"
	"github.com/therealutkarshpriyadarshi/shortgen/internal/metrics"
)

// ErrNotConfigured is returned when no Pexels key is set
var ErrNotConfigured = errors.New("pexels not configured")

// SearchCache stores image URLs per query
type SearchCache interface {
	GetSearchResults(ctx context.Context, query string) ([]string, error)
	SetSearchResults(ctx context.Context, query string, urls []string, ttl time.Duration) error
}

// Config holds Pexels settings
type Config struct {
	APIKey          string
	SearchURL       string
	Timeout         time.Duration
	DownloadTimeout time.Duration
	CacheTTL        time.Duration
}

// Pexels searches the Pexels photo API
type Pexels struct {
	cfg      Config
	client   *http.Client
	download *http.Client
	cache    SearchCache
	logger   *logging.Logger
	rng      *rand.Rand
}

type searchResponse struct {
	Photos []struct {
		ID  int64 `json:"id"`
		Src struct {
			Original string `json:"original"`
			Large2x  string `json:"large2x"`
			Portrait string `json:"portrait"`
		} `json:"src"`
	} `json:"photos"`
}

// NewPexels creates a Pexels client. cache may be nil.
func NewPexels(cfg Config, cache SearchCache, logger *logging.Logger) *Pexels {
	if cfg.SearchURL == "" {
		cfg.SearchURL = "https://api.pexels.com/v1/search"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.DownloadTimeout <= 0 {
		cfg.DownloadTimeout = 30 * time.Second
	}
	return &Pexels{
		cfg:      cfg,
		client:   &http.Client{Timeout: cfg.Timeout},
		download: &http.Client{Timeout: cfg.DownloadTimeout},
		cache:    cache,
		logger:   logger,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Search returns up to n portrait image URLs for query, in random order
func (p *Pexels) Search(ctx context.Context, query string, n int) ([]string, error) {
	if p.cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}
	if n <= 0 {
		return nil, fmt.Errorf("image count must be positive, got %d", n)
	}

	var urls []string
	if p.cache != nil {
		cached, err := p.cache.GetSearchResults(ctx, query)
		if err != nil {
			p.logger.WithError(err).Warn("Failed to read cached search results")
		}
		urls = cached
	}

	if len(urls) == 0 {
		fetched, err := p.fetch(ctx, query, n*2)
		if err != nil {
			return nil, err
		}
		urls = fetched
		if p.cache != nil && len(urls) > 0 {
			if err := p.cache.SetSearchResults(ctx, query, urls, p.cfg.CacheTTL); err != nil {
				p.logger.WithError(err).Warn("Failed to cache search results")
			}
		}
	}

	shuffled := append([]string(nil), urls...)
	p.rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	if len(shuffled) > n {
		shuffled = shuffled[:n]
	}
	return shuffled, nil
}

func (p *Pexels) fetch(ctx context.Context, query string, perPage int) ([]string, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("orientation", "portrait")
	params.Set("per_page", strconv.Itoa(perPage))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.SearchURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", p.cfg.APIKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pexels request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("pexels API error (%d): %s", resp.StatusCode, string(body))
	}

	var result searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode pexels response: %w", err)
	}

	urls := make([]string, 0, len(result.Photos))
	for _, photo := range result.Photos {
		if src := firstNonEmpty(photo.Src.Large2x, photo.Src.Portrait, photo.Src.Original); src != "" {
			urls = append(urls, src)
		}
	}
	return urls, nil
}

// SearchAny tries each query in order until one returns images
func (p *Pexels) SearchAny(ctx context.Context, queries []string, n int) ([]string, error) {
	chain := fallback.New[[]string]().
		OnFailure(func(provider string, err error) {
			p.logger.LogProviderFallback("media", provider, err)
			metrics.RecordProviderFallback("media", "pexels")
		})

	for _, q := range queries {
		q := strings.TrimSpace(q)
		if q == "" {
			continue
		}
		chain.Then(q, func(ctx context.Context) ([]string, error) {
			urls, err := p.Search(ctx, q, n)
			if err != nil {
				return nil, err
			}
			if len(urls) == 0 {
				return nil, fallback.ErrEmptyResult
			}
			return urls, nil
		})
	}

	out, err := chain.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("no images found: %w", err)
	}
	return out.Value, nil
}

// Download saves every URL into dir as img_<i>.jpg. Failed downloads are
// skipped; an error is returned only when nothing could be saved.
func (p *Pexels) Download(ctx context.Context, urls []string, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create image directory: %w", err)
	}

	var paths []string
	for i, u := range urls {
		path := filepath.Join(dir, fmt.Sprintf("img_%d.jpg", i))
		if err := p.downloadOne(ctx, u, path); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			p.logger.WithError(err).WithField("url", u).Warn("Failed to download image")
			continue
		}
		paths = append(paths, path)
	}

	if len(paths) == 0 {
		return nil, fmt.Errorf("failed to download any of %d images", len(urls))
	}
	return paths, nil
}

func (p *Pexels) downloadOne(ctx context.Context, rawURL, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := p.download.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, resp.Body); err != nil {
		os.Remove(path)
		return fmt.Errorf("failed to write image: %w", err)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
