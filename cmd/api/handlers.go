package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/therealutkarshpriyadarshi/shortgen/internal/database"
	"github.com/therealutkarshpriyadarshi/shortgen/internal/logging"
	"github.com/therealutkarshpriyadarshi/shortgen/internal/metrics"
	"github.com/therealutkarshpriyadarshi/shortgen/internal/middleware"
	"github.com/therealutkarshpriyadarshi/shortgen/internal/pipeline"
	"github.com/therealutkarshpriyadarshi/shortgen/internal/timeline"
	"github.com/therealutkarshpriyadarshi/shortgen/pkg/models"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Repository is the persistence the API reads and writes
type Repository interface {
	CreateJob(ctx context.Context, job *models.Job) error
	GetJob(ctx context.Context, id string) (*models.Job, error)
	ListJobs(ctx context.Context, status string, limit, offset int) ([]*models.Job, error)
	GetVideo(ctx context.Context, id string) (*models.Video, error)
	ListVideos(ctx context.Context, limit, offset int) ([]*models.Video, error)
	ListVideosByJob(ctx context.Context, jobID string) ([]*models.Video, error)
	ListSubtitlesByJob(ctx context.Context, jobID string) ([]*models.Subtitle, error)
	CreateWebhook(ctx context.Context, webhook *models.Webhook) error
	ListWebhooks(ctx context.Context) ([]*models.Webhook, error)
	DeleteWebhook(ctx context.Context, id string) error
}

// JobQueue hands jobs to the workers
type JobQueue interface {
	PublishJob(ctx context.Context, job *models.Job) error
}

// ProgressReader returns the live progress of a running job
type ProgressReader interface {
	GetJobProgress(ctx context.Context, jobID string) (float64, error)
}

type API struct {
	repo     Repository
	queue    JobQueue
	progress ProgressReader
	timeline timeline.Options
	logger   *logging.Logger
	checks   map[string]func(context.Context) error
}

// Health check endpoint
func (api *API) healthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	failures := gin.H{}
	for name, check := range api.checks {
		if err := check(ctx); err != nil {
			failures[name] = err.Error()
		}
	}

	if len(failures) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"errors": failures,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
	})
}

type createJobRequest struct {
	Topic          string   `json:"topic"`
	Profile        string   `json:"profile"`
	Languages      []string `json:"languages"`
	TargetSeconds  float64  `json:"target_seconds"`
	ImagesPerVideo int      `json:"images_per_video"`
	Theme          string   `json:"theme"`
	Publish        bool     `json:"publish"`
	Priority       int      `json:"priority"`
}

func (r createJobRequest) validate() error {
	if _, err := pipeline.LookupProfile(r.Profile, timeline.PaddingNone); err != nil {
		return err
	}
	if r.TargetSeconds < 0 {
		return fmt.Errorf("target_seconds must be positive")
	}
	if r.ImagesPerVideo < 0 {
		return fmt.Errorf("images_per_video must be positive")
	}
	for _, lang := range r.Languages {
		if strings.TrimSpace(lang) == "" {
			return fmt.Errorf("languages must not contain blanks")
		}
	}
	return nil
}

// Create generation job endpoint
func (api *API) createJob(c *gin.Context) {
	var req createJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := req.validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	profile := req.Profile
	if profile == "" {
		profile = models.ProfileDaily
	}

	job := &models.Job{
		Topic:    strings.TrimSpace(req.Topic),
		Status:   models.JobStatusQueued,
		Priority: req.Priority,
		Config: models.JobConfig{
			Profile:        profile,
			Languages:      req.Languages,
			TargetSeconds:  req.TargetSeconds,
			ImagesPerVideo: req.ImagesPerVideo,
			Theme:          req.Theme,
			Publish:        req.Publish,
		},
	}
	if job.Priority == 0 {
		job.Priority = models.JobPriorityNormal
	}
	if clientID, ok := middleware.GetClientID(c); ok {
		job.Config.Extra = map[string]string{"client_id": clientID}
	}

	if err := api.repo.CreateJob(c.Request.Context(), job); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to create job: %v", err)})
		return
	}

	if err := api.queue.PublishJob(c.Request.Context(), job); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to queue job: %v", err)})
		return
	}

	metrics.RecordJobCreated(profile)
	api.logger.LogJobEvent(job.ID, "created", job.Status, map[string]interface{}{"profile": profile, "topic": job.Topic})
	c.JSON(http.StatusCreated, job)
}

// List jobs endpoint
func (api *API) listJobs(c *gin.Context) {
	limit, offset, err := page(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	status := c.Query("status")

	jobs, err := api.repo.ListJobs(c.Request.Context(), status, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"jobs":   jobs,
		"limit":  limit,
		"offset": offset,
	})
}

// Get job endpoint
func (api *API) getJob(c *gin.Context) {
	job, err := api.repo.GetJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		notFoundOr500(c, err, "Job not found")
		return
	}

	if job.Status == models.JobStatusProcessing && api.progress != nil {
		if progress, err := api.progress.GetJobProgress(c.Request.Context(), job.ID); err == nil && progress > job.Progress {
			job.Progress = progress
		}
	}

	c.JSON(http.StatusOK, job)
}

// Get job videos endpoint
func (api *API) getJobVideos(c *gin.Context) {
	jobID := c.Param("id")
	if _, err := api.repo.GetJob(c.Request.Context(), jobID); err != nil {
		notFoundOr500(c, err, "Job not found")
		return
	}

	videos, err := api.repo.ListVideosByJob(c.Request.Context(), jobID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"videos": videos})
}

// Get job subtitles endpoint
func (api *API) getJobSubtitles(c *gin.Context) {
	jobID := c.Param("id")
	if _, err := api.repo.GetJob(c.Request.Context(), jobID); err != nil {
		notFoundOr500(c, err, "Job not found")
		return
	}

	subtitles, err := api.repo.ListSubtitlesByJob(c.Request.Context(), jobID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"subtitles": subtitles})
}

// List videos endpoint
func (api *API) listVideos(c *gin.Context) {
	limit, offset, err := page(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	videos, err := api.repo.ListVideos(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"videos": videos,
		"limit":  limit,
		"offset": offset,
	})
}

// Get video endpoint
func (api *API) getVideo(c *gin.Context) {
	video, err := api.repo.GetVideo(c.Request.Context(), c.Param("id"))
	if err != nil {
		notFoundOr500(c, err, "Video not found")
		return
	}

	c.JSON(http.StatusOK, video)
}

// Create webhook endpoint
func (api *API) createWebhook(c *gin.Context) {
	var req struct {
		URL    string               `json:"url" binding:"required,url"`
		Events models.WebhookEvents `json:"events"`
		Secret string               `json:"secret"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	webhook := &models.Webhook{
		URL:      req.URL,
		Events:   req.Events,
		Secret:   req.Secret,
		IsActive: true,
	}
	if webhook.Secret == "" {
		webhook.Secret = strings.ReplaceAll(uuid.New().String(), "-", "")
	}

	if err := api.repo.CreateWebhook(c.Request.Context(), webhook); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to create webhook: %v", err)})
		return
	}

	c.JSON(http.StatusCreated, webhook)
}

// List webhooks endpoint
func (api *API) listWebhooks(c *gin.Context) {
	webhooks, err := api.repo.ListWebhooks(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	for _, w := range webhooks {
		w.Secret = ""
	}

	c.JSON(http.StatusOK, gin.H{"webhooks": webhooks})
}

// Delete webhook endpoint
func (api *API) deleteWebhook(c *gin.Context) {
	webhookID := c.Param("id")

	if err := api.repo.DeleteWebhook(c.Request.Context(), webhookID); err != nil {
		notFoundOr500(c, err, "Webhook not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Webhook deleted successfully", "webhook_id": webhookID})
}

func notFoundOr500(c *gin.Context, err error, msg string) {
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": msg})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

func page(c *gin.Context) (int, int, error) {
	limit, offset := defaultPageSize, 0

	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return 0, 0, fmt.Errorf("invalid limit %q", v)
		}
		limit = min(n, maxPageSize)
	}
	if v := c.Query("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return 0, 0, fmt.Errorf("invalid offset %q", v)
		}
		offset = n
	}
	return limit, offset, nil
}
