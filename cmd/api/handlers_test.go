package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/therealutkarshpriyadarshi/shortgen/internal/config"
	"github.com/therealutkarshpriyadarshi/shortgen/internal/database"
	"github.com/therealutkarshpriyadarshi/shortgen/internal/logging"
	"github.com/therealutkarshpriyadarshi/shortgen/internal/middleware"
	"github.com/therealutkarshpriyadarshi/shortgen/internal/timeline"
	"github.com/therealutkarshpriyadarshi/shortgen/pkg/models"
)

// MockRepo is a mock implementation of Repository
type MockRepo struct {
	mock.Mock
}

func (m *MockRepo) CreateJob(ctx context.Context, job *models.Job) error {
	args := m.Called(ctx, job)
	if args.Error(0) == nil {
		job.ID = "job-123"
	}
	return args.Error(0)
}

func (m *MockRepo) GetJob(ctx context.Context, id string) (*models.Job, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Job), args.Error(1)
}

func (m *MockRepo) ListJobs(ctx context.Context, status string, limit, offset int) ([]*models.Job, error) {
	args := m.Called(ctx, status, limit, offset)
	return args.Get(0).([]*models.Job), args.Error(1)
}

func (m *MockRepo) GetVideo(ctx context.Context, id string) (*models.Video, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Video), args.Error(1)
}

func (m *MockRepo) ListVideos(ctx context.Context, limit, offset int) ([]*models.Video, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]*models.Video), args.Error(1)
}

func (m *MockRepo) ListVideosByJob(ctx context.Context, jobID string) ([]*models.Video, error) {
	args := m.Called(ctx, jobID)
	return args.Get(0).([]*models.Video), args.Error(1)
}

func (m *MockRepo) ListSubtitlesByJob(ctx context.Context, jobID string) ([]*models.Subtitle, error) {
	args := m.Called(ctx, jobID)
	return args.Get(0).([]*models.Subtitle), args.Error(1)
}

func (m *MockRepo) CreateWebhook(ctx context.Context, webhook *models.Webhook) error {
	return m.Called(ctx, webhook).Error(0)
}

func (m *MockRepo) ListWebhooks(ctx context.Context) ([]*models.Webhook, error) {
	args := m.Called(ctx)
	return args.Get(0).([]*models.Webhook), args.Error(1)
}

func (m *MockRepo) DeleteWebhook(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

// MockQueue is a mock implementation of JobQueue
type MockQueue struct {
	mock.Mock
}

func (m *MockQueue) PublishJob(ctx context.Context, job *models.Job) error {
	return m.Called(ctx, job).Error(0)
}

type fakeProgress map[string]float64

func (f fakeProgress) GetJobProgress(ctx context.Context, jobID string) (float64, error) {
	p, ok := f[jobID]
	if !ok {
		return 0, errors.New("redis: nil")
	}
	return p, nil
}

type allowAll struct{ calls int }

func (a *allowAll) CheckRateLimit(ctx context.Context, key string, limit int64, window time.Duration) (bool, error) {
	a.calls++
	return true, nil
}

func newTestAPI() (*API, *MockRepo, *MockQueue) {
	repo := new(MockRepo)
	q := new(MockQueue)
	return &API{
		repo:     repo,
		queue:    q,
		progress: fakeProgress{"job-running": 42},
		timeline: timeline.DefaultOptions(),
		logger:   logging.NewNopLogger(),
		checks:   map[string]func(context.Context) error{},
	}, repo, q
}

func setupTestRouter(api *API, secret string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return setupRouter(api, routerConfig{
		auth:    middleware.NewAuth(secret),
		limiter: middleware.NewRateLimiter(1000, 1000),
		quota:   &allowAll{},
		logger:  logging.NewNopLogger(),
	})
}

func doJSON(router http.Handler, method, path string, body interface{}, header ...string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealthCheck(t *testing.T) {
	api, _, _ := newTestAPI()
	router := setupTestRouter(api, "")

	w := doJSON(router, "GET", "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	api.checks["database"] = func(context.Context) error { return errors.New("connection refused") }
	w = doJSON(router, "GET", "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")
}

func TestCreateJobHandler_Success(t *testing.T) {
	api, repo, q := newTestAPI()
	router := setupTestRouter(api, "")

	repo.On("CreateJob", mock.Anything, mock.MatchedBy(func(job *models.Job) bool {
		return job.Topic == "Eclipse Solar" &&
			job.Status == models.JobStatusQueued &&
			job.Priority == models.JobPriorityNormal &&
			job.Config.Profile == models.ProfileStory &&
			job.Config.TargetSeconds == 45
	})).Return(nil)
	q.On("PublishJob", mock.Anything, mock.Anything).Return(nil)

	w := doJSON(router, "POST", "/api/v1/jobs", gin.H{
		"topic":          " Eclipse Solar ",
		"profile":        "story",
		"languages":      []string{"pt-BR", "en"},
		"target_seconds": 45,
	})

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var job models.Job
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &job))
	assert.Equal(t, "job-123", job.ID)
	assert.Equal(t, []string{"pt-BR", "en"}, job.Config.Languages)

	repo.AssertExpectations(t)
	q.AssertExpectations(t)
}

func TestCreateJobHandler_DefaultsToDaily(t *testing.T) {
	api, repo, q := newTestAPI()
	router := setupTestRouter(api, "")

	repo.On("CreateJob", mock.Anything, mock.MatchedBy(func(job *models.Job) bool {
		return job.Config.Profile == models.ProfileDaily && job.Topic == ""
	})).Return(nil)
	q.On("PublishJob", mock.Anything, mock.Anything).Return(nil)

	w := doJSON(router, "POST", "/api/v1/jobs", gin.H{})
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestCreateJobHandler_Validation(t *testing.T) {
	api, repo, _ := newTestAPI()
	router := setupTestRouter(api, "")

	tests := []struct {
		name string
		body gin.H
	}{
		{"unknown profile", gin.H{"profile": "weekly"}},
		{"negative target", gin.H{"target_seconds": -5}},
		{"negative images", gin.H{"images_per_video": -1}},
		{"blank language", gin.H{"languages": []string{"en", " "}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(router, "POST", "/api/v1/jobs", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
	repo.AssertNotCalled(t, "CreateJob", mock.Anything, mock.Anything)
}

func TestCreateJobHandler_QueueFailure(t *testing.T) {
	api, repo, q := newTestAPI()
	router := setupTestRouter(api, "")

	repo.On("CreateJob", mock.Anything, mock.Anything).Return(nil)
	q.On("PublishJob", mock.Anything, mock.Anything).Return(errors.New("channel closed"))

	w := doJSON(router, "POST", "/api/v1/jobs", gin.H{"topic": "Copa"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Failed to queue job")
}

func TestCreateJobHandler_RequiresWriteScope(t *testing.T) {
	api, repo, q := newTestAPI()
	secret := "test-secret"
	router := setupTestRouter(api, secret)
	auth := middleware.NewAuth(secret)

	w := doJSON(router, "POST", "/api/v1/jobs", gin.H{"topic": "Copa"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	readOnly, err := auth.GenerateToken("client-a", nil, time.Hour)
	require.NoError(t, err)
	w = doJSON(router, "POST", "/api/v1/jobs", gin.H{"topic": "Copa"}, "Authorization", "Bearer "+readOnly)
	assert.Equal(t, http.StatusForbidden, w.Code)

	repo.On("CreateJob", mock.Anything, mock.MatchedBy(func(job *models.Job) bool {
		return job.Config.Extra["client_id"] == "client-b"
	})).Return(nil)
	q.On("PublishJob", mock.Anything, mock.Anything).Return(nil)

	writer, err := auth.GenerateToken("client-b", []string{middleware.ScopeWrite}, time.Hour)
	require.NoError(t, err)
	w = doJSON(router, "POST", "/api/v1/jobs", gin.H{"topic": "Copa"}, "Authorization", "Bearer "+writer)
	assert.Equal(t, http.StatusCreated, w.Code)
	repo.AssertExpectations(t)
}

func TestGetJobHandler(t *testing.T) {
	api, repo, _ := newTestAPI()
	router := setupTestRouter(api, "")

	repo.On("GetJob", mock.Anything, "job-running").Return(&models.Job{
		ID:       "job-running",
		Status:   models.JobStatusProcessing,
		Progress: 10,
	}, nil)
	repo.On("GetJob", mock.Anything, "missing").Return(nil, fmt.Errorf("job missing: %w", database.ErrNotFound))
	repo.On("GetJob", mock.Anything, "broken").Return(nil, errors.New("pool closed"))

	w := doJSON(router, "GET", "/api/v1/jobs/job-running", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var job models.Job
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &job))
	assert.Equal(t, 42.0, job.Progress)

	w = doJSON(router, "GET", "/api/v1/jobs/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(router, "GET", "/api/v1/jobs/broken", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestListJobsHandler(t *testing.T) {
	api, repo, _ := newTestAPI()
	router := setupTestRouter(api, "")

	repo.On("ListJobs", mock.Anything, "failed", 100, 5).Return([]*models.Job{{ID: "a"}}, nil)

	w := doJSON(router, "GET", "/api/v1/jobs?status=failed&limit=500&offset=5", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"limit":100`)

	w = doJSON(router, "GET", "/api/v1/jobs?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	repo.AssertExpectations(t)
}

func TestJobArtifactsHandlers(t *testing.T) {
	api, repo, _ := newTestAPI()
	router := setupTestRouter(api, "")

	repo.On("GetJob", mock.Anything, "job-1").Return(&models.Job{ID: "job-1"}, nil)
	repo.On("ListVideosByJob", mock.Anything, "job-1").Return([]*models.Video{{ID: "v1", Language: "en"}}, nil)
	repo.On("ListSubtitlesByJob", mock.Anything, "job-1").Return([]*models.Subtitle{
		{Language: "en", Format: models.SubtitleFormatSRT},
		{Language: "es", Format: models.SubtitleFormatSRT},
	}, nil)

	w := doJSON(router, "GET", "/api/v1/jobs/job-1/videos", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"id":"v1"`)

	w = doJSON(router, "GET", "/api/v1/jobs/job-1/subtitles", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Subtitles []models.Subtitle `json:"subtitles"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Subtitles, 2)
}

func TestVideoHandlers(t *testing.T) {
	api, repo, _ := newTestAPI()
	router := setupTestRouter(api, "")

	repo.On("ListVideos", mock.Anything, 20, 0).Return([]*models.Video{{ID: "v1"}}, nil)
	repo.On("GetVideo", mock.Anything, "v1").Return(&models.Video{ID: "v1", Duration: 60}, nil)
	repo.On("GetVideo", mock.Anything, "nope").Return(nil, database.ErrNotFound)

	assert.Equal(t, http.StatusOK, doJSON(router, "GET", "/api/v1/videos", nil).Code)
	assert.Equal(t, http.StatusOK, doJSON(router, "GET", "/api/v1/videos/v1", nil).Code)
	assert.Equal(t, http.StatusNotFound, doJSON(router, "GET", "/api/v1/videos/nope", nil).Code)
}

func TestWebhookHandlers(t *testing.T) {
	api, repo, _ := newTestAPI()
	router := setupTestRouter(api, "")

	repo.On("CreateWebhook", mock.Anything, mock.MatchedBy(func(w *models.Webhook) bool {
		return w.URL == "https://hooks.example/shorts" && w.IsActive && len(w.Secret) == 32 && w.Events.VideoGenerated
	})).Return(nil)
	repo.On("ListWebhooks", mock.Anything).Return([]*models.Webhook{{ID: "w1", Secret: "s3cret"}}, nil)
	repo.On("DeleteWebhook", mock.Anything, "w1").Return(nil)
	repo.On("DeleteWebhook", mock.Anything, "w2").Return(database.ErrNotFound)

	w := doJSON(router, "POST", "/api/v1/webhooks", gin.H{
		"url":    "https://hooks.example/shorts",
		"events": gin.H{"video_generated": true},
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(router, "POST", "/api/v1/webhooks", gin.H{"url": "not a url"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(router, "GET", "/api/v1/webhooks", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "s3cret")

	assert.Equal(t, http.StatusOK, doJSON(router, "DELETE", "/api/v1/webhooks/w1", nil).Code)
	assert.Equal(t, http.StatusNotFound, doJSON(router, "DELETE", "/api/v1/webhooks/w2", nil).Code)
	repo.AssertExpectations(t)
}

func TestScheduleEntries(t *testing.T) {
	entries := scheduleEntries(config.ScheduleConfig{DailyEvery: 24 * time.Hour, TrendsEvery: 6 * time.Hour})
	require.Len(t, entries, 3)

	assert.Equal(t, models.ProfileDaily, entries[0].Profile)
	assert.Equal(t, 24*time.Hour, entries[0].Every)
	assert.Equal(t, models.ProfileTrends, entries[1].Profile)
	assert.Greater(t, entries[1].Priority, entries[0].Priority)
	assert.Zero(t, entries[2].Every)
}
