package models

import "time"

// Subtitle represents a caption file generated for a video
type Subtitle struct {
	ID         string    `json:"id" db:"id"`
	JobID      string    `json:"job_id" db:"job_id"`
	VideoID    string    `json:"video_id,omitempty" db:"video_id"`
	Language   string    `json:"language" db:"language"`
	Format     string    `json:"format" db:"format"`
	Path       string    `json:"path" db:"path"`
	URL        string    `json:"url,omitempty" db:"url"`
	EntryCount int       `json:"entry_count" db:"entry_count"`
	IsDefault  bool      `json:"is_default" db:"is_default"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// SubtitleFormat constants
const (
	SubtitleFormatSRT = "srt"
)
