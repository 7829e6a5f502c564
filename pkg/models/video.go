package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// Video represents a rendered short in one language
type Video struct {
	ID               string    `json:"id" db:"id"`
	JobID            string    `json:"job_id" db:"job_id"`
	Language         string    `json:"language" db:"language"`
	Path             string    `json:"path" db:"path"`
	URL              string    `json:"url,omitempty" db:"url"`
	Duration         float64   `json:"duration" db:"duration"`
	NarrationSeconds float64   `json:"narration_seconds" db:"narration_seconds"`
	Width            int       `json:"width" db:"width"`
	Height           int       `json:"height" db:"height"`
	SlotCount        int       `json:"slot_count" db:"slot_count"`
	Metadata         Metadata  `json:"metadata" db:"metadata"`
	Status           string    `json:"status" db:"status"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}

// Metadata holds additional video metadata
type Metadata map[string]interface{}

// Value implements driver.Valuer for database storage
func (m Metadata) Value() (driver.Value, error) {
	return json.Marshal(m)
}

// Scan implements sql.Scanner for database retrieval
func (m *Metadata) Scan(value interface{}) error {
	if value == nil {
		*m = make(Metadata)
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}

	return json.Unmarshal(bytes, m)
}

// VideoStatus constants
const (
	VideoStatusPending   = "pending"
	VideoStatusRendering = "rendering"
	VideoStatusCompleted = "completed"
	VideoStatusFailed    = "failed"
)
