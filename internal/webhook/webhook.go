package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/therealutkarshpriyadarshi/shortgen/internal/logging"
	"github.com/therealutkarshpriyadarshi/shortgen/internal/metrics"
	"github.com/therealutkarshpriyadarshi/shortgen/pkg/models"
)

const (
	SignatureHeader = "X-Shortgen-Signature"
	EventHeader     = "X-Shortgen-Event"
	DeliveryHeader  = "X-Shortgen-Delivery"

	maxResponseBody = 4 << 10
)

// retryDelays is the wait before each further attempt of a failed delivery
var retryDelays = []time.Duration{
	30 * time.Second,
	2 * time.Minute,
	10 * time.Minute,
	time.Hour,
}

// Repository defines the interface for webhook persistence
type Repository interface {
	GetWebhook(ctx context.Context, id string) (*models.Webhook, error)
	GetWebhooksByEvent(ctx context.Context, event string) ([]*models.Webhook, error)
	CreateDelivery(ctx context.Context, delivery *models.WebhookDelivery) error
	UpdateDelivery(ctx context.Context, delivery *models.WebhookDelivery) error
	GetPendingDeliveries(ctx context.Context, limit int) ([]*models.WebhookDelivery, error)
}

// Service handles webhook delivery and retry logic
type Service struct {
	client   *http.Client
	repo     Repository
	logger   *logging.Logger
	inflight sync.WaitGroup
}

// NewService creates a new webhook service
func NewService(repo Repository, timeout time.Duration, logger *logging.Logger) *Service {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Service{
		client: &http.Client{Timeout: timeout},
		repo:   repo,
		logger: logger,
	}
}

// VideoGenerated is the payload of a video.generated event
type VideoGenerated struct {
	Video       *models.Video    `json:"video"`
	Subtitle    *models.Subtitle `json:"subtitle,omitempty"`
	Topic       string           `json:"topic"`
	Degraded    bool             `json:"degraded"`
	Attachments []string         `json:"attachments,omitempty"`
}

// Notify records a delivery for every active webhook subscribed to the event
// and attempts it in the background
func (s *Service) Notify(ctx context.Context, event string, data interface{}) error {
	webhooks, err := s.repo.GetWebhooksByEvent(ctx, event)
	if err != nil {
		return fmt.Errorf("failed to get webhooks: %w", err)
	}

	payload, err := json.Marshal(models.WebhookEvent{
		Event:     event,
		Timestamp: time.Now().UTC(),
		Data:      data,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	for _, webhook := range webhooks {
		if !webhook.IsActive || !webhook.Events.Subscribed(event) {
			continue
		}

		delivery := &models.WebhookDelivery{
			ID:        uuid.New().String(),
			WebhookID: webhook.ID,
			Event:     event,
			Payload:   string(payload),
			Status:    models.WebhookDeliveryStatusPending,
			CreatedAt: time.Now(),
		}

		if err := s.repo.CreateDelivery(ctx, delivery); err != nil {
			s.logger.WithError(err).WithField("webhook_id", webhook.ID).Error("Failed to create delivery")
			continue
		}

		s.dispatch(webhook, delivery)
	}

	return nil
}

func (s *Service) dispatch(webhook *models.Webhook, delivery *models.WebhookDelivery) {
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		s.deliver(context.Background(), webhook, delivery)
	}()
}

// Wait blocks until all background deliveries have finished
func (s *Service) Wait() {
	s.inflight.Wait()
}

func (s *Service) deliver(ctx context.Context, webhook *models.Webhook, delivery *models.WebhookDelivery) {
	payload := []byte(delivery.Payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhook.URL, bytes.NewReader(payload))
	if err != nil {
		s.markDeliveryFailed(ctx, delivery, 0, fmt.Sprintf("failed to create request: %v", err))
		return
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Shortgen-Webhook/1.0")
	req.Header.Set(EventHeader, delivery.Event)
	req.Header.Set(DeliveryHeader, delivery.ID)
	if webhook.Secret != "" {
		req.Header.Set(SignatureHeader, Sign(payload, webhook.Secret))
	}

	resp, err := s.client.Do(req)
	if err != nil {
		s.markDeliveryFailed(ctx, delivery, 0, fmt.Sprintf("failed to send request: %v", err))
		return
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		s.markDeliveryFailed(ctx, delivery, resp.StatusCode, string(body))
		return
	}

	now := time.Now()
	delivery.Status = models.WebhookDeliveryStatusDelivered
	delivery.StatusCode = resp.StatusCode
	delivery.ResponseBody = string(body)
	delivery.NextRetryAt = nil
	delivery.CompletedAt = &now

	if err := s.repo.UpdateDelivery(ctx, delivery); err != nil {
		s.logger.WithError(err).WithField("delivery_id", delivery.ID).Error("Failed to update delivery")
	}
}

// markDeliveryFailed schedules the next attempt or gives up once the retry
// schedule is exhausted
func (s *Service) markDeliveryFailed(ctx context.Context, delivery *models.WebhookDelivery, statusCode int, responseBody string) {
	delivery.StatusCode = statusCode
	delivery.ResponseBody = responseBody
	delivery.RetryCount++

	now := time.Now()
	if delay, ok := nextRetry(delivery.RetryCount); ok {
		next := now.Add(delay)
		delivery.NextRetryAt = &next
		delivery.Status = models.WebhookDeliveryStatusPending
	} else {
		delivery.NextRetryAt = nil
		delivery.Status = models.WebhookDeliveryStatusFailed
		delivery.CompletedAt = &now
		metrics.RecordError("webhook", "delivery_failed")
	}

	s.logger.WithFields(map[string]interface{}{
		"delivery_id": delivery.ID,
		"status_code": statusCode,
		"retry":       delivery.RetryCount,
		"status":      delivery.Status,
	}).Warn("Webhook delivery failed")

	if err := s.repo.UpdateDelivery(ctx, delivery); err != nil {
		s.logger.WithError(err).WithField("delivery_id", delivery.ID).Error("Failed to update delivery")
	}
}

// nextRetry returns the delay before attempt retryCount+1
func nextRetry(retryCount int) (time.Duration, bool) {
	if retryCount < 1 || retryCount > len(retryDelays) {
		return 0, false
	}
	return retryDelays[retryCount-1], true
}

// Sign returns the HMAC-SHA256 signature of payload as "sha256=<hex>"
func Sign(payload []byte, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	return "sha256=" + hex.EncodeToString(h.Sum(nil))
}

// Verify checks a signature produced by Sign
func Verify(payload []byte, secret, signature string) bool {
	return hmac.Equal([]byte(Sign(payload, secret)), []byte(signature))
}

// RetryWorker retries pending deliveries every interval until ctx is done
func (s *Service) RetryWorker(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RetryPending(ctx)
		}
	}
}

// RetryPending dispatches the deliveries whose retry time has come
func (s *Service) RetryPending(ctx context.Context) {
	deliveries, err := s.repo.GetPendingDeliveries(ctx, 100)
	if err != nil {
		s.logger.WithError(err).Error("Failed to get pending deliveries")
		return
	}

	now := time.Now()
	for _, delivery := range deliveries {
		if delivery.NextRetryAt != nil && now.Before(*delivery.NextRetryAt) {
			continue
		}

		webhook, err := s.repo.GetWebhook(ctx, delivery.WebhookID)
		if err != nil {
			s.logger.WithError(err).WithField("delivery_id", delivery.ID).Warn("Failed to load webhook for delivery")
			continue
		}
		if !webhook.IsActive {
			continue
		}

		s.dispatch(webhook, delivery)
	}
}

// NotifyJobStarted sends notification when a job starts
func (s *Service) NotifyJobStarted(ctx context.Context, job *models.Job) error {
	return s.Notify(ctx, models.WebhookEventJobStarted, job)
}

// NotifyJobCompleted sends notification when a job completes
func (s *Service) NotifyJobCompleted(ctx context.Context, job *models.Job) error {
	return s.Notify(ctx, models.WebhookEventJobCompleted, job)
}

// NotifyJobFailed sends notification when a job fails
func (s *Service) NotifyJobFailed(ctx context.Context, job *models.Job) error {
	return s.Notify(ctx, models.WebhookEventJobFailed, job)
}

// NotifyVideoGenerated sends notification when a video has been rendered and stored
func (s *Service) NotifyVideoGenerated(ctx context.Context, event VideoGenerated) error {
	return s.Notify(ctx, models.WebhookEventVideoGenerated, event)
}
