package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/therealutkarshpriyadarshi/shortgen/internal/metrics"
	"github.com/therealutkarshpriyadarshi/shortgen/pkg/models"
)

// Cache provides caching functionality using Redis
type Cache struct {
	client *redis.Client
}

// NewCache creates a new cache instance
func NewCache(host string, port int, password string, db int) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Cache{client: client}, nil
}

// Close closes the Redis connection
func (c *Cache) Close() error {
	return c.client.Close()
}

// Job Cache Operations

// SetJobProgress caches job progress for quick retrieval
func (c *Cache) SetJobProgress(ctx context.Context, jobID string, progress float64, ttl time.Duration) error {
	key := fmt.Sprintf("job:progress:%s", jobID)
	return c.client.Set(ctx, key, progress, ttl).Err()
}

// GetJobProgress retrieves job progress from cache
func (c *Cache) GetJobProgress(ctx context.Context, jobID string) (float64, error) {
	key := fmt.Sprintf("job:progress:%s", jobID)
	return c.client.Get(ctx, key).Float64()
}

// Topic Cache Operations

// SetTopics caches the trending topics discovered for a region
func (c *Cache) SetTopics(ctx context.Context, region string, topics []models.Topic, ttl time.Duration) error {
	return c.setJSON(ctx, topicsKey(region), topics, ttl)
}

// GetTopics returns cached topics for a region; nil on a miss
func (c *Cache) GetTopics(ctx context.Context, region string) ([]models.Topic, error) {
	var topics []models.Topic
	hit, err := c.getJSON(ctx, topicsKey(region), &topics)
	if err != nil {
		return nil, err
	}
	metrics.RecordCacheAccess("topics", hit)
	return topics, nil
}

func topicsKey(region string) string {
	day := time.Now().UTC().Format("2006-01-02")
	return fmt.Sprintf("trends:%s:%s", strings.ToUpper(region), day)
}

// Search Cache Operations

// SetSearchResults caches the image URLs returned for a stock search query
func (c *Cache) SetSearchResults(ctx context.Context, query string, urls []string, ttl time.Duration) error {
	return c.setJSON(ctx, searchKey(query), urls, ttl)
}

// GetSearchResults returns cached image URLs for a query; nil on a miss
func (c *Cache) GetSearchResults(ctx context.Context, query string) ([]string, error) {
	var urls []string
	hit, err := c.getJSON(ctx, searchKey(query), &urls)
	if err != nil {
		return nil, err
	}
	metrics.RecordCacheAccess("search", hit)
	return urls, nil
}

func searchKey(query string) string {
	return "search:" + digest(strings.ToLower(strings.TrimSpace(query)))
}

// Translation Cache Operations

// SetTranslation caches the translated blocks of a script
func (c *Cache) SetTranslation(ctx context.Context, language string, source, translated []string, ttl time.Duration) error {
	return c.setJSON(ctx, translationKey(language, source), translated, ttl)
}

// GetTranslation returns cached translated blocks; nil on a miss
func (c *Cache) GetTranslation(ctx context.Context, language string, source []string) ([]string, error) {
	var blocks []string
	hit, err := c.getJSON(ctx, translationKey(language, source), &blocks)
	if err != nil {
		return nil, err
	}
	metrics.RecordCacheAccess("translation", hit)
	return blocks, nil
}

func translationKey(language string, source []string) string {
	return fmt.Sprintf("translation:%s:%s", language, digest(strings.Join(source, "\x1f")))
}

func digest(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:16])
}

// Rate Limiting Operations

// CheckRateLimit checks if a rate limit has been exceeded
func (c *Cache) CheckRateLimit(ctx context.Context, key string, limit int64, window time.Duration) (bool, error) {
	rateLimitKey := fmt.Sprintf("ratelimit:%s", key)

	count, err := c.client.Incr(ctx, rateLimitKey).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment rate limit: %w", err)
	}

	// Set expiry on first request
	if count == 1 {
		if err := c.client.Expire(ctx, rateLimitKey, window).Err(); err != nil {
			return false, fmt.Errorf("failed to set expiry: %w", err)
		}
	}

	return count <= limit, nil
}

// Locking Operations

// AcquireLock attempts to acquire a distributed lock. Workers take one per
// topic so the same topic is never rendered twice at once.
func (c *Cache) AcquireLock(ctx context.Context, resource string, ttl time.Duration) (bool, error) {
	key := fmt.Sprintf("lock:%s", resource)
	return c.client.SetNX(ctx, key, "locked", ttl).Result()
}

// ReleaseLock releases a distributed lock
func (c *Cache) ReleaseLock(ctx context.Context, resource string) error {
	key := fmt.Sprintf("lock:%s", resource)
	return c.client.Del(ctx, key).Err()
}

// JSON helpers

// setJSON sets a value with JSON marshaling
func (c *Cache) setJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	return c.client.Set(ctx, key, data, ttl).Err()
}

func (c *Cache) getJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return false, nil // Cache miss
		}
		return false, fmt.Errorf("failed to get value from cache: %w", err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal value: %w", err)
	}

	return true, nil
}

// Health check
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
