package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/therealutkarshpriyadarshi/shortgen/pkg/models"
)

const (
	DeadLetterQueueName    = "shortgen_jobs_dlq"
	DeadLetterExchangeName = "shortgen_dlq"
	RetryQueueName         = "shortgen_jobs_retry"
	MaxRetries             = 3

	retryHeader    = "x-retry-count"
	reasonHeader   = "x-failure-reason"
	failedAtHeader = "x-failed-at"
)

// SetupDeadLetterQueue declares the dead letter and retry queues. Messages
// in the retry queue expire back into the job queue.
func (q *Queue) SetupDeadLetterQueue() error {
	err := q.channel.ExchangeDeclare(DeadLetterExchangeName, "direct", true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to declare DLQ exchange: %w", err)
	}

	if _, err := q.channel.QueueDeclare(DeadLetterQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare DLQ: %w", err)
	}

	if err := q.channel.QueueBind(DeadLetterQueueName, DeadLetterQueueName, DeadLetterExchangeName, false, nil); err != nil {
		return fmt.Errorf("failed to bind DLQ: %w", err)
	}

	retryArgs := amqp.Table{
		"x-dead-letter-exchange":    ExchangeName,
		"x-dead-letter-routing-key": JobsQueueName,
	}
	if _, err := q.channel.QueueDeclare(RetryQueueName, true, false, false, false, retryArgs); err != nil {
		return fmt.Errorf("failed to declare retry queue: %w", err)
	}

	q.logger.Info("Dead letter queue infrastructure ready")
	return nil
}

// PublishToRetryQueue schedules another attempt of a job after a backoff
// delay, or dead-letters it once MaxRetries is reached
func (q *Queue) PublishToRetryQueue(ctx context.Context, job *models.Job, retries int) error {
	if retries >= MaxRetries {
		return q.PublishToDeadLetterQueue(ctx, job, "max retries exceeded")
	}

	delay := backoffDelay(retries)
	headers := amqp.Table{retryHeader: int32(retries + 1)}
	expiration := strconv.FormatInt(delay.Milliseconds(), 10)

	if err := q.publish(ctx, "", RetryQueueName, job, headers, expiration); err != nil {
		return err
	}

	q.logger.WithJobID(job.ID).
		WithFields(map[string]interface{}{"retry": retries + 1, "delay": delay.String()}).
		Info("Job scheduled for retry")
	return nil
}

// PublishToDeadLetterQueue parks a failed job for manual inspection
func (q *Queue) PublishToDeadLetterQueue(ctx context.Context, job *models.Job, reason string) error {
	headers := amqp.Table{
		reasonHeader:   reason,
		failedAtHeader: time.Now().Format(time.RFC3339),
	}

	if err := q.publish(ctx, DeadLetterExchangeName, DeadLetterQueueName, job, headers, ""); err != nil {
		return err
	}

	q.logger.WithJobID(job.ID).WithField("reason", reason).Warn("Job moved to dead letter queue")
	return nil
}

// ConsumeDLQ consumes dead-lettered jobs together with their failure reason
func (q *Queue) ConsumeDLQ(ctx context.Context, handler func(*models.Job, string) error) error {
	msgs, err := q.channel.Consume(DeadLetterQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to register DLQ consumer: %w", err)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}

				var job models.Job
				if err := json.Unmarshal(msg.Body, &job); err != nil {
					msg.Nack(false, false)
					continue
				}

				reason, _ := msg.Headers[reasonHeader].(string)
				if err := handler(&job, reason); err != nil {
					msg.Nack(false, true)
				} else {
					msg.Ack(false)
				}
			}
		}
	}()

	return nil
}

// RetryFromDLQ puts a dead-lettered job back on the job queue with a fresh
// retry budget
func (q *Queue) RetryFromDLQ(ctx context.Context, job *models.Job) error {
	return q.PublishJob(ctx, job)
}

// GetDLQDepth returns the number of messages in the dead letter queue
func (q *Queue) GetDLQDepth() (int, error) {
	info, err := q.channel.QueueInspect(DeadLetterQueueName)
	if err != nil {
		return 0, fmt.Errorf("failed to inspect DLQ: %w", err)
	}

	return info.Messages, nil
}

// backoffDelay doubles from one minute per retry, capped at an hour
func backoffDelay(retries int) time.Duration {
	if retries < 0 {
		retries = 0
	}
	if retries > 6 {
		return time.Hour
	}

	delay := time.Minute << retries
	if delay > time.Hour {
		delay = time.Hour
	}
	return delay
}

// retryCount reads the retry header, which AMQP may decode as any integer width
func retryCount(headers amqp.Table) int {
	switch v := headers[retryHeader].(type) {
	case int:
		return v
	case int8:
		return int(v)
	case int16:
		return int(v)
	case int32:
		return int(v)
	case int64:
		return int(v)
	case uint8:
		return int(v)
	default:
		return 0
	}
}
