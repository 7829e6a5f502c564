package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/therealutkarshpriyadarshi/shortgen/internal/metrics"
	"github.com/therealutkarshpriyadarshi/shortgen/pkg/models"
)

// ErrNotFound is returned when a lookup matches no row
var ErrNotFound = errors.New("not found")

// Repository provides database operations
type Repository struct {
	db *DB
}

// NewRepository creates a new repository
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// track records the duration and outcome of an operation whose error is
// only known when the function returns
func track(operation string, errp *error) func() {
	start := time.Now()
	return func() { observe(operation, start, *errp) }
}

func observe(operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.RecordDatabaseOperation(operation, status, time.Since(start).Seconds())
}

// Jobs

// CreateJob creates a new generation job
func (r *Repository) CreateJob(ctx context.Context, job *models.Job) (err error) {
	defer track("create_job", &err)()

	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	if job.Status == "" {
		job.Status = models.JobStatusPending
	}

	query := `
		INSERT INTO jobs (id, topic, status, priority, progress, config)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`

	err = r.db.Pool.QueryRow(ctx, query,
		job.ID, job.Topic, job.Status, job.Priority, job.Progress, job.Config,
	).Scan(&job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}

	return nil
}

const jobColumns = `id, topic, status, priority, progress, COALESCE(error_msg, ''),
	retry_count, COALESCE(worker_id, ''), config, started_at, completed_at,
	created_at, updated_at`

func scanJob(row pgx.Row, job *models.Job) error {
	return row.Scan(
		&job.ID, &job.Topic, &job.Status, &job.Priority, &job.Progress, &job.ErrorMsg,
		&job.RetryCount, &job.WorkerID, &job.Config, &job.StartedAt, &job.CompletedAt,
		&job.CreatedAt, &job.UpdatedAt,
	)
}

// GetJob retrieves a job by ID
func (r *Repository) GetJob(ctx context.Context, id string) (*models.Job, error) {
	start := time.Now()
	var job models.Job

	err := scanJob(r.db.Pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id), &job)
	observe("get_job", start, err)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return &job, nil
}

// UpdateJob updates a job record
func (r *Repository) UpdateJob(ctx context.Context, job *models.Job) (err error) {
	defer track("update_job", &err)()

	query := `
		UPDATE jobs
		SET status = $2, progress = $3, error_msg = $4, retry_count = $5, worker_id = $6,
		    started_at = $7, completed_at = $8, config = $9, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err = r.db.Pool.QueryRow(ctx, query,
		job.ID, job.Status, job.Progress, job.ErrorMsg, job.RetryCount, job.WorkerID,
		job.StartedAt, job.CompletedAt, job.Config,
	).Scan(&job.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("job %s: %w", job.ID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to update job: %w", err)
	}

	return nil
}

// UpdateJobStatus moves a job to a new status, stamping start and completion times
func (r *Repository) UpdateJobStatus(ctx context.Context, id, status, errorMsg string) (err error) {
	defer track("update_job_status", &err)()

	query := `
		UPDATE jobs
		SET status = $2,
		    error_msg = NULLIF($3, ''),
		    started_at = CASE WHEN $2 = 'processing' AND started_at IS NULL THEN NOW() ELSE started_at END,
		    completed_at = CASE WHEN $2 IN ('completed', 'partial', 'skipped', 'failed') THEN NOW() ELSE completed_at END,
		    progress = CASE WHEN $2 IN ('completed', 'partial') THEN 100 ELSE progress END,
		    updated_at = NOW()
		WHERE id = $1
	`

	tag, err := r.db.Pool.Exec(ctx, query, id, status, errorMsg)
	if err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("job %s: %w", id, ErrNotFound)
	}

	return nil
}

// UpdateJobProgress records the completion percentage of a running job
func (r *Repository) UpdateJobProgress(ctx context.Context, id string, progress float64) error {
	start := time.Now()
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE jobs SET progress = $2, updated_at = NOW() WHERE id = $1`, id, progress)
	observe("update_job_progress", start, err)
	if err != nil {
		return fmt.Errorf("failed to update job progress: %w", err)
	}
	return nil
}

// IncrementJobRetry bumps the retry counter of a job
func (r *Repository) IncrementJobRetry(ctx context.Context, id string) error {
	start := time.Now()
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE jobs SET retry_count = retry_count + 1, updated_at = NOW() WHERE id = $1`, id)
	observe("increment_job_retry", start, err)
	if err != nil {
		return fmt.Errorf("failed to increment job retry: %w", err)
	}
	return nil
}

// ListJobs lists jobs, newest first, optionally filtered by status
func (r *Repository) ListJobs(ctx context.Context, status string, limit, offset int) ([]*models.Job, error) {
	start := time.Now()

	query := `SELECT ` + jobColumns + ` FROM jobs
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.Pool.Query(ctx, query, status, limit, offset)
	if err != nil {
		observe("list_jobs", start, err)
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.Job
	for rows.Next() {
		var job models.Job
		if err := scanJob(rows, &job); err != nil {
			observe("list_jobs", start, err)
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, &job)
	}
	observe("list_jobs", start, rows.Err())

	return jobs, rows.Err()
}

// Videos

// CreateVideo creates a new video record
func (r *Repository) CreateVideo(ctx context.Context, video *models.Video) (err error) {
	defer track("create_video", &err)()

	if video.ID == "" {
		video.ID = uuid.New().String()
	}
	if video.Metadata == nil {
		video.Metadata = models.Metadata{}
	}

	query := `
		INSERT INTO videos (id, job_id, language, path, url, duration, narration_seconds,
		                    width, height, slot_count, metadata, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at
	`

	err = r.db.Pool.QueryRow(ctx, query,
		video.ID, video.JobID, video.Language, video.Path, video.URL, video.Duration,
		video.NarrationSeconds, video.Width, video.Height, video.SlotCount,
		video.Metadata, video.Status,
	).Scan(&video.CreatedAt, &video.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create video: %w", err)
	}

	return nil
}

const videoColumns = `id, job_id, language, path, COALESCE(url, ''), duration, narration_seconds,
	width, height, slot_count, metadata, status, created_at, updated_at`

func scanVideo(row pgx.Row, video *models.Video) error {
	return row.Scan(
		&video.ID, &video.JobID, &video.Language, &video.Path, &video.URL, &video.Duration,
		&video.NarrationSeconds, &video.Width, &video.Height, &video.SlotCount,
		&video.Metadata, &video.Status, &video.CreatedAt, &video.UpdatedAt,
	)
}

// GetVideo retrieves a video by ID
func (r *Repository) GetVideo(ctx context.Context, id string) (*models.Video, error) {
	start := time.Now()
	var video models.Video

	err := scanVideo(r.db.Pool.QueryRow(ctx, `SELECT `+videoColumns+` FROM videos WHERE id = $1`, id), &video)
	observe("get_video", start, err)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("video %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get video: %w", err)
	}

	return &video, nil
}

// UpdateVideo updates a video record
func (r *Repository) UpdateVideo(ctx context.Context, video *models.Video) (err error) {
	defer track("update_video", &err)()

	query := `
		UPDATE videos
		SET path = $2, url = $3, duration = $4, narration_seconds = $5, width = $6,
		    height = $7, slot_count = $8, metadata = $9, status = $10, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err = r.db.Pool.QueryRow(ctx, query,
		video.ID, video.Path, video.URL, video.Duration, video.NarrationSeconds,
		video.Width, video.Height, video.SlotCount, video.Metadata, video.Status,
	).Scan(&video.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("video %s: %w", video.ID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to update video: %w", err)
	}

	return nil
}

// ListVideosByJob lists the videos rendered for a job
func (r *Repository) ListVideosByJob(ctx context.Context, jobID string) ([]*models.Video, error) {
	return r.listVideos(ctx, "list_videos_by_job",
		`SELECT `+videoColumns+` FROM videos WHERE job_id = $1 ORDER BY language`, jobID)
}

// ListVideos lists videos, newest first
func (r *Repository) ListVideos(ctx context.Context, limit, offset int) ([]*models.Video, error) {
	return r.listVideos(ctx, "list_videos",
		`SELECT `+videoColumns+` FROM videos ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
}

func (r *Repository) listVideos(ctx context.Context, operation, query string, args ...interface{}) ([]*models.Video, error) {
	start := time.Now()

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		observe(operation, start, err)
		return nil, fmt.Errorf("failed to list videos: %w", err)
	}
	defer rows.Close()

	var videos []*models.Video
	for rows.Next() {
		var video models.Video
		if err := scanVideo(rows, &video); err != nil {
			observe(operation, start, err)
			return nil, fmt.Errorf("failed to scan video: %w", err)
		}
		videos = append(videos, &video)
	}
	observe(operation, start, rows.Err())

	return videos, rows.Err()
}

// Subtitles

// CreateSubtitle records a caption file
func (r *Repository) CreateSubtitle(ctx context.Context, subtitle *models.Subtitle) (err error) {
	defer track("create_subtitle", &err)()

	if subtitle.ID == "" {
		subtitle.ID = uuid.New().String()
	}
	if subtitle.Format == "" {
		subtitle.Format = models.SubtitleFormatSRT
	}

	var videoID *string
	if subtitle.VideoID != "" {
		videoID = &subtitle.VideoID
	}

	query := `
		INSERT INTO subtitles (id, job_id, video_id, language, format, path, url, entry_count, is_default)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at
	`

	err = r.db.Pool.QueryRow(ctx, query,
		subtitle.ID, subtitle.JobID, videoID, subtitle.Language, subtitle.Format,
		subtitle.Path, subtitle.URL, subtitle.EntryCount, subtitle.IsDefault,
	).Scan(&subtitle.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create subtitle: %w", err)
	}

	return nil
}

// ListSubtitlesByJob lists the caption files generated for a job
func (r *Repository) ListSubtitlesByJob(ctx context.Context, jobID string) ([]*models.Subtitle, error) {
	start := time.Now()

	query := `
		SELECT id, job_id, COALESCE(video_id::text, ''), language, format, path,
		       COALESCE(url, ''), entry_count, is_default, created_at
		FROM subtitles
		WHERE job_id = $1
		ORDER BY is_default DESC, language
	`

	rows, err := r.db.Pool.Query(ctx, query, jobID)
	if err != nil {
		observe("list_subtitles", start, err)
		return nil, fmt.Errorf("failed to list subtitles: %w", err)
	}
	defer rows.Close()

	var subtitles []*models.Subtitle
	for rows.Next() {
		var s models.Subtitle
		if err := rows.Scan(
			&s.ID, &s.JobID, &s.VideoID, &s.Language, &s.Format, &s.Path,
			&s.URL, &s.EntryCount, &s.IsDefault, &s.CreatedAt,
		); err != nil {
			observe("list_subtitles", start, err)
			return nil, fmt.Errorf("failed to scan subtitle: %w", err)
		}
		subtitles = append(subtitles, &s)
	}
	observe("list_subtitles", start, rows.Err())

	return subtitles, rows.Err()
}
