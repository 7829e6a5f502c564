package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/therealutkarshpriyadarshi/shortgen/internal/config"
	"github.com/therealutkarshpriyadarshi/shortgen/internal/logging"
	"github.com/therealutkarshpriyadarshi/shortgen/pkg/models"
)

const (
	JobsQueueName = "shortgen_jobs"
	ExchangeName  = "shortgen"

	maxPriority = 10
)

// Handler processes one generation job. A returned error schedules a retry.
type Handler func(ctx context.Context, job *models.Job) error

// Queue provides message queue operations for generation jobs
type Queue struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	logger  *logging.Logger
}

// URL builds the AMQP connection string
func URL(cfg config.QueueConfig) string {
	return fmt.Sprintf("amqp://%s:%s@%s:%d%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Vhost)
}

// New connects to RabbitMQ and declares the job exchange and queue
func New(cfg config.QueueConfig, logger *logging.Logger) (*Queue, error) {
	conn, err := amqp.Dial(URL(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	q := &Queue{conn: conn, channel: channel, logger: logger}
	if err := q.declare(); err != nil {
		q.Close()
		return nil, err
	}

	return q, nil
}

func (q *Queue) declare() error {
	err := q.channel.ExchangeDeclare(
		ExchangeName,
		"direct",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	_, err = q.channel.QueueDeclare(
		JobsQueueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		amqp.Table{"x-max-priority": int32(maxPriority)},
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	if err := q.channel.QueueBind(JobsQueueName, JobsQueueName, ExchangeName, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue: %w", err)
	}

	return nil
}

// Close closes the queue connection
func (q *Queue) Close() error {
	if q.channel != nil {
		q.channel.Close()
	}
	if q.conn != nil {
		return q.conn.Close()
	}
	return nil
}

// PublishJob publishes a generation job to the queue
func (q *Queue) PublishJob(ctx context.Context, job *models.Job) error {
	return q.publish(ctx, ExchangeName, JobsQueueName, job, amqp.Table{retryHeader: int32(0)}, "")
}

func (q *Queue) publish(ctx context.Context, exchange, key string, job *models.Job, headers amqp.Table, expiration string) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	err = q.channel.PublishWithContext(ctx,
		exchange,
		key,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Body:         body,
			Timestamp:    time.Now(),
			Priority:     priority(job),
			Headers:      headers,
			Expiration:   expiration,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish job to %s: %w", key, err)
	}

	return nil
}

// ConsumeJobs delivers jobs to handler one at a time until ctx is cancelled.
// Failed jobs go to the retry queue with backoff and end in the dead letter
// queue once MaxRetries is reached.
func (q *Queue) ConsumeJobs(ctx context.Context, handler Handler) error {
	if err := q.channel.Qos(1, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	msgs, err := q.channel.Consume(
		JobsQueueName,
		"",    // consumer
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
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
				q.handle(ctx, msg, handler)
			}
		}
	}()

	return nil
}

func (q *Queue) handle(ctx context.Context, msg amqp.Delivery, handler Handler) {
	var job models.Job
	if err := json.Unmarshal(msg.Body, &job); err != nil {
		q.logger.WithError(err).Error("Discarding malformed job message")
		msg.Nack(false, false)
		return
	}

	retries := retryCount(msg.Headers)
	job.RetryCount = retries
	log := q.logger.WithJobID(job.ID).WithField("retry", retries)

	err := handler(ctx, &job)
	if err == nil {
		msg.Ack(false)
		return
	}

	log.WithError(err).Warn("Job failed")
	if rerr := q.PublishToRetryQueue(ctx, &job, retries); rerr != nil {
		log.WithError(rerr).Error("Failed to reschedule job, requeueing")
		msg.Nack(false, true)
		return
	}
	msg.Ack(false)
}

// GetQueueDepth returns the number of messages in the queue
func (q *Queue) GetQueueDepth() (int, error) {
	info, err := q.channel.QueueInspect(JobsQueueName)
	if err != nil {
		return 0, fmt.Errorf("failed to inspect queue: %w", err)
	}

	return info.Messages, nil
}

func priority(job *models.Job) uint8 {
	switch {
	case job.Priority < 0:
		return 0
	case job.Priority > maxPriority:
		return maxPriority
	}
	return uint8(job.Priority)
}
