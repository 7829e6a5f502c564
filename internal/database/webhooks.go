package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/therealutkarshpriyadarshi/shortgen/pkg/models"
)

// eventField maps a webhook event to its key in the events JSONB column
func eventField(event string) (string, error) {
	switch event {
	case models.WebhookEventJobStarted:
		return "job_started", nil
	case models.WebhookEventJobCompleted:
		return "job_completed", nil
	case models.WebhookEventJobFailed:
		return "job_failed", nil
	case models.WebhookEventVideoGenerated:
		return "video_generated", nil
	default:
		return "", fmt.Errorf("unknown webhook event: %s", event)
	}
}

// CreateWebhook creates a new webhook
func (r *Repository) CreateWebhook(ctx context.Context, webhook *models.Webhook) (err error) {
	defer track("create_webhook", &err)()

	if webhook.ID == "" {
		webhook.ID = uuid.New().String()
	}

	query := `
		INSERT INTO webhooks (id, url, events, secret, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`

	err = r.db.Pool.QueryRow(ctx, query,
		webhook.ID, webhook.URL, webhook.Events, webhook.Secret, webhook.IsActive,
	).Scan(&webhook.CreatedAt, &webhook.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create webhook: %w", err)
	}

	return nil
}

// ListWebhooks lists all registered webhooks
func (r *Repository) ListWebhooks(ctx context.Context) ([]*models.Webhook, error) {
	return r.queryWebhooks(ctx, "list_webhooks", `
		SELECT id, url, events, COALESCE(secret, ''), is_active, created_at, updated_at
		FROM webhooks
		ORDER BY created_at DESC
	`)
}

// GetWebhooksByEvent retrieves the active webhooks subscribed to an event
func (r *Repository) GetWebhooksByEvent(ctx context.Context, event string) ([]*models.Webhook, error) {
	field, err := eventField(event)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT id, url, events, COALESCE(secret, ''), is_active, created_at, updated_at
		FROM webhooks
		WHERE is_active = true AND (events->>'%s')::boolean = true
	`, field)

	return r.queryWebhooks(ctx, "get_webhooks_by_event", query)
}

// DeleteWebhook removes a webhook and its deliveries
func (r *Repository) DeleteWebhook(ctx context.Context, id string) error {
	start := time.Now()
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM webhooks WHERE id = $1`, id)
	observe("delete_webhook", start, err)
	if err != nil {
		return fmt.Errorf("failed to delete webhook: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("webhook %s: %w", id, ErrNotFound)
	}
	return nil
}

func (r *Repository) queryWebhooks(ctx context.Context, operation, query string, args ...interface{}) ([]*models.Webhook, error) {
	start := time.Now()

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		observe(operation, start, err)
		return nil, fmt.Errorf("failed to query webhooks: %w", err)
	}
	defer rows.Close()

	var webhooks []*models.Webhook
	for rows.Next() {
		var w models.Webhook
		if err := rows.Scan(&w.ID, &w.URL, &w.Events, &w.Secret, &w.IsActive, &w.CreatedAt, &w.UpdatedAt); err != nil {
			observe(operation, start, err)
			return nil, fmt.Errorf("failed to scan webhook: %w", err)
		}
		webhooks = append(webhooks, &w)
	}
	observe(operation, start, rows.Err())

	return webhooks, rows.Err()
}

// CreateDelivery records a webhook delivery attempt
func (r *Repository) CreateDelivery(ctx context.Context, delivery *models.WebhookDelivery) (err error) {
	defer track("create_delivery", &err)()

	if delivery.ID == "" {
		delivery.ID = uuid.New().String()
	}

	query := `
		INSERT INTO webhook_deliveries (id, webhook_id, event, payload, status, status_code,
		                                response_body, retry_count, next_retry_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at
	`

	err = r.db.Pool.QueryRow(ctx, query,
		delivery.ID, delivery.WebhookID, delivery.Event, delivery.Payload, delivery.Status,
		delivery.StatusCode, delivery.ResponseBody, delivery.RetryCount, delivery.NextRetryAt,
	).Scan(&delivery.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create delivery: %w", err)
	}

	return nil
}

// UpdateDelivery updates the outcome of a delivery attempt
func (r *Repository) UpdateDelivery(ctx context.Context, delivery *models.WebhookDelivery) (err error) {
	defer track("update_delivery", &err)()

	query := `
		UPDATE webhook_deliveries
		SET status = $2, status_code = $3, response_body = $4, retry_count = $5,
		    next_retry_at = $6, completed_at = $7
		WHERE id = $1
	`

	_, err = r.db.Pool.Exec(ctx, query,
		delivery.ID, delivery.Status, delivery.StatusCode, delivery.ResponseBody,
		delivery.RetryCount, delivery.NextRetryAt, delivery.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update delivery: %w", err)
	}

	return nil
}

// GetPendingDeliveries retrieves deliveries due for another attempt
func (r *Repository) GetPendingDeliveries(ctx context.Context, limit int) ([]*models.WebhookDelivery, error) {
	start := time.Now()

	query := `
		SELECT id, webhook_id, event, payload, status, status_code, COALESCE(response_body, ''),
		       retry_count, next_retry_at, created_at, completed_at
		FROM webhook_deliveries
		WHERE status = $1 AND next_retry_at <= NOW()
		ORDER BY next_retry_at ASC
		LIMIT $2
	`

	rows, err := r.db.Pool.Query(ctx, query, models.WebhookDeliveryStatusPending, limit)
	if err != nil {
		observe("get_pending_deliveries", start, err)
		return nil, fmt.Errorf("failed to get pending deliveries: %w", err)
	}
	defer rows.Close()

	var deliveries []*models.WebhookDelivery
	for rows.Next() {
		var d models.WebhookDelivery
		if err := rows.Scan(
			&d.ID, &d.WebhookID, &d.Event, &d.Payload, &d.Status, &d.StatusCode, &d.ResponseBody,
			&d.RetryCount, &d.NextRetryAt, &d.CreatedAt, &d.CompletedAt,
		); err != nil {
			observe("get_pending_deliveries", start, err)
			return nil, fmt.Errorf("failed to scan delivery: %w", err)
		}
		deliveries = append(deliveries, &d)
	}
	observe("get_pending_deliveries", start, rows.Err())

	return deliveries, rows.Err()
}

// GetWebhook retrieves a webhook by ID
func (r *Repository) GetWebhook(ctx context.Context, id string) (*models.Webhook, error) {
	webhooks, err := r.queryWebhooks(ctx, "get_webhook", `
		SELECT id, url, events, COALESCE(secret, ''), is_active, created_at, updated_at
		FROM webhooks
		WHERE id = $1
	`, id)
	if err != nil {
		return nil, err
	}
	if len(webhooks) == 0 {
		return nil, fmt.Errorf("webhook %s: %w", id, ErrNotFound)
	}
	return webhooks[0], nil
}
