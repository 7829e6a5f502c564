package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// Job represents a video generation job for a single topic
type Job struct {
	ID          string     `json:"id" db:"id"`
	Topic       string     `json:"topic" db:"topic"`
	Status      string     `json:"status" db:"status"`
	Priority    int        `json:"priority" db:"priority"`
	Progress    float64    `json:"progress" db:"progress"`
	ErrorMsg    string     `json:"error_msg,omitempty" db:"error_msg"`
	RetryCount  int        `json:"retry_count" db:"retry_count"`
	WorkerID    string     `json:"worker_id,omitempty" db:"worker_id"`
	StartedAt   *time.Time `json:"started_at,omitempty" db:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
	Config      JobConfig  `json:"config" db:"config"`
}

// JobConfig holds the per-job overrides of the pipeline configuration.
// Zero values fall back to the configured defaults.
type JobConfig struct {
	Profile        string            `json:"profile"`
	Languages      []string          `json:"languages,omitempty"`
	TargetSeconds  float64           `json:"target_seconds,omitempty"`
	ImagesPerVideo int               `json:"images_per_video,omitempty"`
	Theme          string            `json:"theme,omitempty"`
	Publish        bool              `json:"publish,omitempty"`
	Extra          map[string]string `json:"extra,omitempty"`
}

// Value implements driver.Valuer for database storage
func (jc JobConfig) Value() (driver.Value, error) {
	return json.Marshal(jc)
}

// Scan implements sql.Scanner for database retrieval
func (jc *JobConfig) Scan(value interface{}) error {
	if value == nil {
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}

	return json.Unmarshal(bytes, jc)
}

// JobStatus constants
const (
	JobStatusPending    = "pending"
	JobStatusQueued     = "queued"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusPartial    = "partial"
	JobStatusSkipped    = "skipped"
	JobStatusFailed     = "failed"
)

// JobPriority constants
const (
	JobPriorityLow    = 0
	JobPriorityNormal = 5
	JobPriorityHigh   = 10
)

// Pipeline profiles
const (
	ProfileDaily  = "daily"
	ProfileTrends = "trends"
	ProfileStory  = "story"
)
