package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/therealutkarshpriyadarshi/shortgen/internal/bootstrap"
	"github.com/therealutkarshpriyadarshi/shortgen/internal/cache"
	"github.com/therealutkarshpriyadarshi/shortgen/internal/database"
	"github.com/therealutkarshpriyadarshi/shortgen/internal/logging"
	"github.com/therealutkarshpriyadarshi/shortgen/internal/metrics"
	"github.com/therealutkarshpriyadarshi/shortgen/internal/pipeline"
	"github.com/therealutkarshpriyadarshi/shortgen/internal/queue"
	"github.com/therealutkarshpriyadarshi/shortgen/internal/storage"
	"github.com/therealutkarshpriyadarshi/shortgen/internal/tracing"
	"github.com/therealutkarshpriyadarshi/shortgen/internal/webhook"
	"github.com/therealutkarshpriyadarshi/shortgen/pkg/models"
)

const (
	webhookRetryInterval = time.Minute
	queueStatsInterval   = 15 * time.Second
)

func main() {
	cfg, err := bootstrap.LoadConfig("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := bootstrap.NewLogger(cfg.Logging, cfg.Tracing.ServiceName+"-worker")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	workerID := hostname() + "-" + uuid.New().String()[:8]
	logger = logger.WithWorkerID(workerID)

	closer, err := tracing.Setup(cfg.Tracing, cfg.Tracing.ServiceName+"-worker")
	if err != nil {
		logger.WithError(err).Warn("Tracing disabled")
	} else {
		defer closer.Close()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv := metrics.NewServer(cfg.Metrics.Port, logger.Zerolog())
	if cfg.Metrics.Enabled {
		go func() {
			if err := srv.Start(); err != nil {
				logger.WithError(err).Error("Metrics server stopped")
			}
		}()
		defer srv.Shutdown(context.Background())
	}

	db, err := database.New(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}
	repo := database.NewRepository(db)

	c, err := cache.NewCache(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Fatalf("Failed to connect to redis: %v", err)
	}
	defer c.Close()
	srv.AddCheck("database", db.Health)
	srv.AddCheck("redis", c.Ping)

	stor, err := storage.New(cfg.Storage)
	if err != nil {
		logger.Fatalf("Failed to initialize storage: %v", err)
	}

	q, err := queue.New(cfg.Queue, logger)
	if err != nil {
		logger.Fatalf("Failed to connect to queue: %v", err)
	}
	defer q.Close()
	if err := q.SetupDeadLetterQueue(); err != nil {
		logger.Fatalf("Failed to set up dead letter queue: %v", err)
	}

	hooks := webhook.NewService(repo, cfg.Providers.HTTPTimeout, logger)
	defer hooks.Wait()
	go hooks.RetryWorker(ctx, webhookRetryInterval)

	svc, err := bootstrap.Pipeline(cfg, bootstrap.Components{
		Cache:    c,
		Store:    stor,
		Repo:     repo,
		Webhooks: hooks,
	}, logger)
	if err != nil {
		logger.Fatalf("Failed to build pipeline: %v", err)
	}

	w := &worker{
		jobs:     repo,
		progress: c,
		hooks:    hooks,
		pipeline: svc,
		logger:   logger,
		ttl:      cfg.Redis.CacheTTL,
		workerID: workerID,
	}
	go w.reportQueue(ctx, q)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Shutting down worker gracefully...")
		cancel()
	}()

	logger.Info("Worker started, waiting for jobs...")
	if err := q.ConsumeJobs(ctx, w.handle); err != nil {
		logger.Fatalf("Failed to consume jobs: %v", err)
	}

	<-ctx.Done()
	logger.Info("Worker stopped")
}

func hostname() string {
	name, err := os.Hostname()
	if err != nil {
		return "worker"
	}
	return name
}

// JobStore is the job persistence the worker needs
type JobStore interface {
	UpdateJob(ctx context.Context, job *models.Job) error
	UpdateJobStatus(ctx context.Context, id, status, errorMsg string) error
	UpdateJobProgress(ctx context.Context, id string, progress float64) error
	IncrementJobRetry(ctx context.Context, id string) error
}

// ProgressCache publishes job progress for fast polling
type ProgressCache interface {
	SetJobProgress(ctx context.Context, jobID string, progress float64, ttl time.Duration) error
}

// JobNotifier announces job state changes
type JobNotifier interface {
	NotifyJobStarted(ctx context.Context, job *models.Job) error
	NotifyJobCompleted(ctx context.Context, job *models.Job) error
	NotifyJobFailed(ctx context.Context, job *models.Job) error
}

// Runner runs the generation pipeline
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) (*pipeline.RunResult, error)
}

type worker struct {
	jobs     JobStore
	progress ProgressCache
	hooks    JobNotifier
	pipeline Runner
	logger   *logging.Logger
	ttl      time.Duration
	workerID string
	active   atomic.Int32
}

// ErrJobFailed is returned for a job whose every topic failed, so the queue
// schedules a retry
var ErrJobFailed = errors.New("job failed")

func (w *worker) handle(ctx context.Context, job *models.Job) error {
	w.active.Add(1)
	defer w.active.Add(-1)

	log := w.logger.WithJobID(job.ID)
	start := time.Now()
	profile := job.Config.Profile
	if profile == "" {
		profile = models.ProfileDaily
	}

	if job.RetryCount > 0 {
		if err := w.jobs.IncrementJobRetry(ctx, job.ID); err != nil {
			log.WithError(err).Warn("Failed to record retry")
		}
	}

	job.WorkerID = w.workerID
	job.Status = models.JobStatusProcessing
	if err := w.jobs.UpdateJob(ctx, job); err != nil {
		log.WithError(err).Warn("Failed to assign job")
	}
	if err := w.jobs.UpdateJobStatus(ctx, job.ID, models.JobStatusProcessing, ""); err != nil {
		return fmt.Errorf("failed to mark job processing: %w", err)
	}
	log.LogJobEvent(job.ID, "started", models.JobStatusProcessing, map[string]interface{}{"profile": profile, "topic": job.Topic})
	w.notify(ctx, log, w.hooks.NotifyJobStarted, job)

	req := pipeline.RequestFromJob(job)
	req.Progress = func(percent float64) {
		if err := w.jobs.UpdateJobProgress(ctx, job.ID, percent); err != nil {
			log.WithError(err).Warn("Failed to update job progress")
		}
		if err := w.progress.SetJobProgress(ctx, job.ID, percent, w.ttl); err != nil {
			log.WithError(err).Debug("Failed to cache job progress")
		}
	}

	result, err := w.pipeline.Run(ctx, req)
	status, errMsg := outcome(result, err)
	duration := time.Since(start).Seconds()

	if uerr := w.jobs.UpdateJobStatus(context.WithoutCancel(ctx), job.ID, status, errMsg); uerr != nil {
		log.WithError(uerr).Error("Failed to update job status")
	}
	job.Status = status
	job.ErrorMsg = errMsg
	metrics.RecordJobCompleted(status, profile, duration)
	log.LogJobEvent(job.ID, "finished", status, map[string]interface{}{"duration_seconds": duration})

	switch status {
	case models.JobStatusCompleted, models.JobStatusPartial:
		w.notify(ctx, log, w.hooks.NotifyJobCompleted, job)
	case models.JobStatusFailed:
		w.notify(ctx, log, w.hooks.NotifyJobFailed, job)
		if err != nil {
			return err
		}
		return fmt.Errorf("%w: %s", ErrJobFailed, errMsg)
	}
	return nil
}

func (w *worker) notify(ctx context.Context, log *logging.Logger, fn func(context.Context, *models.Job) error, job *models.Job) {
	if err := fn(ctx, job); err != nil {
		log.WithError(err).Warn("Failed to send job webhook")
	}
}

// outcome maps a pipeline result to a job status and error message
func outcome(result *pipeline.RunResult, err error) (string, string) {
	if err != nil {
		return models.JobStatusFailed, err.Error()
	}

	var msgs []string
	for _, t := range result.Topics {
		for _, e := range t.Errors() {
			msgs = append(msgs, fmt.Sprintf("%s: %v", t.Topic, e))
		}
		if t.Skipped {
			msgs = append(msgs, fmt.Sprintf("%s: %s", t.Topic, t.Reason))
		}
	}
	return result.Status(), strings.Join(msgs, "; ")
}

// QueueInspector reports the pending job count
type QueueInspector interface {
	GetQueueDepth() (int, error)
}

func (w *worker) reportQueue(ctx context.Context, q QueueInspector) {
	ticker := time.NewTicker(queueStatsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			depth, err := q.GetQueueDepth()
			if err != nil {
				w.logger.WithError(err).Debug("Failed to inspect queue")
				continue
			}
			metrics.UpdateJobMetrics(int(w.active.Load()), depth)
		}
	}
}
