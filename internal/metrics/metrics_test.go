package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
)

func TestRecordHTTPRequest(t *testing.T) {
	HTTPRequestsTotal.Reset()
	HTTPRequestDuration.Reset()

	RecordHTTPRequest("GET", "/api/v1/jobs", "200", 0.123)

	counter := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/api/v1/jobs", "200"))
	if counter != 1.0 {
		t.Errorf("Expected counter to be 1.0, got %f", counter)
	}
}

func TestRecordJobLifecycle(t *testing.T) {
	JobsCreatedTotal.Reset()
	JobsCompletedTotal.Reset()

	RecordJobCreated("daily")
	RecordJobCreated("daily")
	RecordJobCreated("trends")
	RecordJobCompleted("completed", "daily", 95)
	RecordJobCompleted("skipped", "trends", 2)

	if got := testutil.ToFloat64(JobsCreatedTotal.WithLabelValues("daily")); got != 2.0 {
		t.Errorf("Expected daily counter to be 2.0, got %f", got)
	}
	if got := testutil.ToFloat64(JobsCompletedTotal.WithLabelValues("skipped")); got != 1.0 {
		t.Errorf("Expected skipped counter to be 1.0, got %f", got)
	}
}

func TestUpdateJobMetrics(t *testing.T) {
	UpdateJobMetrics(5, 10)

	if got := testutil.ToFloat64(JobsInProgress); got != 5.0 {
		t.Errorf("Expected jobs in progress to be 5.0, got %f", got)
	}
	if got := testutil.ToFloat64(JobsQueueDepth); got != 10.0 {
		t.Errorf("Expected queue depth to be 10.0, got %f", got)
	}
}

func TestRecordProviderFallback(t *testing.T) {
	ProviderFallbacksTotal.Reset()
	BackupUsedTotal.Reset()

	RecordProviderFallback("trends", "serpapi")
	RecordProviderFallback("trends", "rss")
	RecordBackupUsed("trends")

	if got := testutil.ToFloat64(ProviderFallbacksTotal.WithLabelValues("trends", "serpapi")); got != 1.0 {
		t.Errorf("Expected 1 serpapi fallback, got %f", got)
	}
	if got := testutil.ToFloat64(BackupUsedTotal.WithLabelValues("trends")); got != 1.0 {
		t.Errorf("Expected 1 backup use, got %f", got)
	}
}

func TestRecordInvalidInput(t *testing.T) {
	InvalidInputSkipsTotal.Reset()

	RecordInvalidInput("allocate")

	if got := testutil.ToFloat64(InvalidInputSkipsTotal.WithLabelValues("allocate")); got != 1.0 {
		t.Errorf("Expected 1 skip, got %f", got)
	}
}

func TestRecordVideoAndTimeline(t *testing.T) {
	VideosGeneratedTotal.Reset()

	RecordVideo("pt-BR", "completed")
	RecordTimeline("pt-BR", 48.5, 11.5, 0)

	if got := testutil.ToFloat64(VideosGeneratedTotal.WithLabelValues("pt-BR", "completed")); got != 1.0 {
		t.Errorf("Expected 1 video, got %f", got)
	}
}

func TestRecordCacheAccess(t *testing.T) {
	CacheHitsTotal.Reset()
	CacheMissesTotal.Reset()

	RecordCacheAccess("pexels", true)
	RecordCacheAccess("pexels", true)
	RecordCacheAccess("pexels", false)

	if hits := testutil.ToFloat64(CacheHitsTotal.WithLabelValues("pexels")); hits != 2.0 {
		t.Errorf("Expected cache hits to be 2.0, got %f", hits)
	}
	if misses := testutil.ToFloat64(CacheMissesTotal.WithLabelValues("pexels")); misses != 1.0 {
		t.Errorf("Expected cache misses to be 1.0, got %f", misses)
	}
}

func TestRecordError(t *testing.T) {
	ErrorsTotal.Reset()

	RecordError("tts", "timeout")

	if got := testutil.ToFloat64(ErrorsTotal.WithLabelValues("tts", "timeout")); got != 1.0 {
		t.Errorf("Expected error counter to be 1.0, got %f", got)
	}
}

func TestHealthHandler(t *testing.T) {
	w := httptest.NewRecorder()
	healthHandler(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK || w.Body.String() != "OK" {
		t.Errorf("Unexpected health response: %d %q", w.Code, w.Body.String())
	}
}

func TestReadyHandler(t *testing.T) {
	s := NewServer(0, zerolog.Nop())

	w := httptest.NewRecorder()
	s.readyHandler(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 with no checks, got %d", w.Code)
	}

	s.AddCheck("redis", func(context.Context) error { return nil })
	s.AddCheck("database", func(context.Context) error { return errors.New("connection refused") })

	w = httptest.NewRecorder()
	s.readyHandler(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("Expected 503, got %d", w.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}
	if body["redis"] != "ok" || body["database"] != "connection refused" {
		t.Errorf("Unexpected ready body: %v", body)
	}
}
