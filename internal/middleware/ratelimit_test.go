package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRateLimiter(t *testing.T) {
	gin.SetMode(gin.TestMode)

	rl := NewRateLimiter(2, 2)

	router := gin.New()
	router.Use(RateLimit(rl))
	router.GET("/test", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestRateLimiterEvict(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.getLimiter("ip:1.1.1.1")
	now = now.Add(20 * time.Minute)
	rl.getLimiter("ip:2.2.2.2")

	assert.Equal(t, 1, rl.Evict(10*time.Minute))
	assert.Len(t, rl.visitors, 1)
	assert.Contains(t, rl.visitors, "ip:2.2.2.2")
}

type fakeCounter struct {
	counts map[string]int64
	err    error
}

func (f *fakeCounter) CheckRateLimit(ctx context.Context, key string, limit int64, window time.Duration) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	f.counts[key]++
	return f.counts[key] <= limit, nil
}

func TestQuota(t *testing.T) {
	gin.SetMode(gin.TestMode)

	counter := &fakeCounter{counts: map[string]int64{}}
	router := gin.New()
	router.Use(Quota(counter, 1, time.Hour))
	router.POST("/jobs", func(c *gin.Context) { c.Status(http.StatusAccepted) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/jobs", nil))
	assert.Equal(t, http.StatusAccepted, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/jobs", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestQuotaCounterFailureAllows(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(Quota(&fakeCounter{err: errors.New("redis down")}, 1, time.Hour))
	router.POST("/jobs", func(c *gin.Context) { c.Status(http.StatusAccepted) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/jobs", nil))
	assert.Equal(t, http.StatusAccepted, w.Code)
}
