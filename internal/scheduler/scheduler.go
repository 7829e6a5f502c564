package scheduler

import (
	"container/heap"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/therealutkarshpriyadarshi/shortgen/internal/logging"
	"github.com/therealutkarshpriyadarshi/shortgen/internal/metrics"
	"github.com/therealutkarshpriyadarshi/shortgen/pkg/models"
)

// Entry is a recurring generation run
type Entry struct {
	Profile  string
	Every    time.Duration
	Priority int
	Config   models.JobConfig
}

// Repository defines the job persistence the scheduler needs
type Repository interface {
	CreateJob(ctx context.Context, job *models.Job) error
}

// JobPublisher defines the interface for publishing jobs to queue
type JobPublisher interface {
	PublishJob(ctx context.Context, job *models.Job) error
}

// Scheduler enqueues recurring profile runs when they fall due
type Scheduler struct {
	queue     *PriorityQueue
	mu        sync.Mutex
	repo      Repository
	publisher JobPublisher
	logger    *logging.Logger
	now       func() time.Time
}

// New creates a scheduler whose entries first fall due one period from now.
// Entries with a non-positive period are ignored.
func New(entries []Entry, repo Repository, publisher JobPublisher, logger *logging.Logger) *Scheduler {
	s := &Scheduler{
		queue:     &PriorityQueue{},
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}

	start := s.now()
	for _, e := range entries {
		if e.Every <= 0 {
			continue
		}
		heap.Push(s.queue, &QueueItem{Entry: e, Due: start.Add(e.Every)})
	}
	return s
}

// Run dispatches due entries on every tick until ctx is cancelled
func (s *Scheduler) Run(ctx context.Context, tick time.Duration) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	s.logger.WithField("entries", s.Len()).Info("Job scheduler started")
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Job scheduler stopped")
			return
		case <-ticker.C:
			if _, err := s.Dispatch(ctx); err != nil {
				s.logger.WithError(err).Warn("Scheduled dispatch incomplete")
			}
		}
	}
}

// Dispatch enqueues a job for every entry that is due and reschedules it.
// A publish failure leaves the entry due so the next tick retries it.
func (s *Scheduler) Dispatch(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	dispatched := 0
	for s.queue.Len() > 0 && !(*s.queue)[0].Due.After(now) {
		item := heap.Pop(s.queue).(*QueueItem)

		job, err := s.enqueue(ctx, item.Entry)
		if err != nil {
			heap.Push(s.queue, item)
			return dispatched, err
		}

		item.Due = next(item.Due, item.Entry.Every, now)
		heap.Push(s.queue, item)
		dispatched++

		s.logger.LogJobEvent(job.ID, "scheduled", job.Status, map[string]interface{}{
			"profile":  item.Entry.Profile,
			"next_run": item.Due.Format(time.RFC3339),
		})
	}
	return dispatched, nil
}

func (s *Scheduler) enqueue(ctx context.Context, e Entry) (*models.Job, error) {
	cfg := e.Config
	cfg.Profile = e.Profile
	job := &models.Job{
		Status:   models.JobStatusQueued,
		Priority: e.Priority,
		Config:   cfg,
	}
	if job.Priority == 0 {
		job.Priority = models.JobPriorityNormal
	}

	if err := s.repo.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to create %s job: %w", e.Profile, err)
	}
	if err := s.publisher.PublishJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to queue %s job: %w", e.Profile, err)
	}

	metrics.RecordJobCreated(e.Profile)
	return job, nil
}

// next skips periods missed while the scheduler was busy or down
func next(due time.Time, every time.Duration, now time.Time) time.Time {
	for !due.After(now) {
		due = due.Add(every)
	}
	return due
}

// NextRun returns when the earliest entry falls due
func (s *Scheduler) NextRun() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.queue.Len() == 0 {
		return time.Time{}, false
	}
	return (*s.queue)[0].Due, true
}

// Len returns the number of scheduled entries
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.queue.Len()
}

// PriorityQueue orders entries by due time
type PriorityQueue []*QueueItem

// QueueItem is an entry with its next run time
type QueueItem struct {
	Entry Entry
	Due   time.Time
	Index int
}

func (pq PriorityQueue) Len() int { return len(pq) }

func (pq PriorityQueue) Less(i, j int) bool {
	// Earlier run first
	if !pq[i].Due.Equal(pq[j].Due) {
		return pq[i].Due.Before(pq[j].Due)
	}
	// Same instant: higher priority first
	return pq[i].Entry.Priority > pq[j].Entry.Priority
}

func (pq PriorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].Index = i
	pq[j].Index = j
}

func (pq *PriorityQueue) Push(x interface{}) {
	n := len(*pq)
	item := x.(*QueueItem)
	item.Index = n
	*pq = append(*pq, item)
}

func (pq *PriorityQueue) Pop() interface{} {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.Index = -1
	*pq = old[0 : n-1]
	return item
}
