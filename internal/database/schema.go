package database

import (
	"context"
	"fmt"
)

// schema is applied in order by Migrate. Every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS jobs (
		id            UUID PRIMARY KEY,
		topic         TEXT NOT NULL,
		status        VARCHAR(32) NOT NULL,
		priority      INTEGER NOT NULL DEFAULT 5,
		progress      DOUBLE PRECISION NOT NULL DEFAULT 0,
		error_msg     TEXT,
		retry_count   INTEGER NOT NULL DEFAULT 0,
		worker_id     VARCHAR(255),
		config        JSONB NOT NULL DEFAULT '{}',
		started_at    TIMESTAMPTZ,
		completed_at  TIMESTAMPTZ,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs (status)`,
	`CREATE TABLE IF NOT EXISTS videos (
		id                 UUID PRIMARY KEY,
		job_id             UUID NOT NULL REFERENCES jobs (id) ON DELETE CASCADE,
		language           VARCHAR(16) NOT NULL,
		path               TEXT NOT NULL,
		url                TEXT,
		duration           DOUBLE PRECISION NOT NULL DEFAULT 0,
		narration_seconds  DOUBLE PRECISION NOT NULL DEFAULT 0,
		width              INTEGER NOT NULL DEFAULT 0,
		height             INTEGER NOT NULL DEFAULT 0,
		slot_count         INTEGER NOT NULL DEFAULT 0,
		metadata           JSONB NOT NULL DEFAULT '{}',
		status             VARCHAR(32) NOT NULL,
		created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_videos_job_id ON videos (job_id)`,
	`CREATE TABLE IF NOT EXISTS subtitles (
		id           UUID PRIMARY KEY,
		job_id       UUID NOT NULL REFERENCES jobs (id) ON DELETE CASCADE,
		video_id     UUID REFERENCES videos (id) ON DELETE SET NULL,
		language     VARCHAR(16) NOT NULL,
		format       VARCHAR(16) NOT NULL,
		path         TEXT NOT NULL,
		url          TEXT,
		entry_count  INTEGER NOT NULL DEFAULT 0,
		is_default   BOOLEAN NOT NULL DEFAULT FALSE,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_subtitles_job_id ON subtitles (job_id)`,
	`CREATE TABLE IF NOT EXISTS webhooks (
		id          UUID PRIMARY KEY,
		url         TEXT NOT NULL,
		events      JSONB NOT NULL DEFAULT '{}',
		secret      TEXT,
		is_active   BOOLEAN NOT NULL DEFAULT TRUE,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS webhook_deliveries (
		id             UUID PRIMARY KEY,
		webhook_id     UUID NOT NULL REFERENCES webhooks (id) ON DELETE CASCADE,
		event          VARCHAR(64) NOT NULL,
		payload        TEXT NOT NULL,
		status         VARCHAR(32) NOT NULL,
		status_code    INTEGER NOT NULL DEFAULT 0,
		response_body  TEXT,
		retry_count    INTEGER NOT NULL DEFAULT 0,
		next_retry_at  TIMESTAMPTZ,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		completed_at   TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_webhook_deliveries_pending ON webhook_deliveries (status, next_retry_at)`,
}

// Migrate creates the tables used by the generator if they do not exist
func (db *DB) Migrate(ctx context.Context) error {
	for i, stmt := range schema {
		if _, err := db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement %d: %w", i+1, err)
		}
	}
	return nil
}
