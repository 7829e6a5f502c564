package pipeline

import (
	"github.com/therealutkarshpriyadarshi/shortgen/internal/publish"
	"github.com/therealutkarshpriyadarshi/shortgen/internal/timeline"
	"github.com/therealutkarshpriyadarshi/shortgen/pkg/models"
)

// Request describes one pipeline run. Zero values fall back to configuration.
type Request struct {
	JobID          string
	Profile        string
	Topics         []string
	Languages      []string
	TargetSeconds  float64
	ImagesPerVideo int
	Theme          string
	Publish        bool
	// Progress, when set, receives the percentage of topics processed
	Progress func(percent float64)
}

// RequestFromJob builds the request of a queued job
func RequestFromJob(job *models.Job) Request {
	req := Request{
		JobID:          job.ID,
		Profile:        job.Config.Profile,
		Languages:      job.Config.Languages,
		TargetSeconds:  job.Config.TargetSeconds,
		ImagesPerVideo: job.Config.ImagesPerVideo,
		Theme:          job.Config.Theme,
		Publish:        job.Config.Publish,
	}
	if job.Topic != "" {
		req.Topics = []string{job.Topic}
	}
	return req
}

// SubtitleResult is one caption file
type SubtitleResult struct {
	Language string `json:"language"`
	Path     string `json:"path,omitempty"`
	Key      string `json:"key,omitempty"`
	URL      string `json:"url,omitempty"`
	Entries  int    `json:"entries"`
	Degraded bool   `json:"degraded"`
	// Narration is the subtitle language's own voice-over, when one was made
	Narration    string `json:"narration,omitempty"`
	NarrationKey string `json:"narration_key,omitempty"`
	Err          error  `json:"-"`
}

// VideoResult is one rendered video with its captions
type VideoResult struct {
	Language  string          `json:"language"`
	Path      string          `json:"path,omitempty"`
	Key       string          `json:"key,omitempty"`
	URL       string          `json:"url,omitempty"`
	Duration  float64         `json:"duration"`
	Plan      *timeline.Plan  `json:"plan,omitempty"`
	Subtitle  SubtitleResult  `json:"subtitle"`
	Degraded  bool            `json:"degraded"`
	Published *publish.Result `json:"published,omitempty"`
	Err       error           `json:"-"`

	script *models.Script
}

// TopicResult is the outcome of one topic. A failed language never stops
// the others.
type TopicResult struct {
	Topic     string           `json:"topic"`
	Slug      string           `json:"slug"`
	Skipped   bool             `json:"skipped"`
	Reason    string           `json:"reason,omitempty"`
	Videos    []VideoResult    `json:"videos"`
	Subtitles []SubtitleResult `json:"subtitles,omitempty"`
	Err       error            `json:"-"`
}

// Errors returns the topic error followed by every video and subtitle error
func (t *TopicResult) Errors() []error {
	var errs []error
	if t.Err != nil {
		errs = append(errs, t.Err)
	}
	for _, v := range t.Videos {
		if v.Err != nil {
			errs = append(errs, v.Err)
		}
	}
	for _, s := range t.Subtitles {
		if s.Err != nil {
			errs = append(errs, s.Err)
		}
	}
	return errs
}

// Status summarises the topic as a job status
func (t *TopicResult) Status() string {
	if t.Skipped {
		return models.JobStatusSkipped
	}
	if t.Err != nil {
		return models.JobStatusFailed
	}

	ok, failed := 0, 0
	for _, v := range t.Videos {
		if v.Err != nil {
			failed++
		} else {
			ok++
		}
	}
	for _, s := range t.Subtitles {
		if s.Err != nil {
			failed++
		}
	}

	switch {
	case ok == 0:
		return models.JobStatusFailed
	case failed > 0:
		return models.JobStatusPartial
	}
	return models.JobStatusCompleted
}

// RunResult is the outcome of a run
type RunResult struct {
	Profile     string         `json:"profile"`
	TopicSource string         `json:"topic_source"`
	Topics      []*TopicResult `json:"topics"`
}

// Status summarises the run as a job status
func (r *RunResult) Status() string {
	if len(r.Topics) == 0 {
		return models.JobStatusSkipped
	}

	counts := map[string]int{}
	for _, t := range r.Topics {
		counts[t.Status()]++
	}

	switch {
	case counts[models.JobStatusCompleted] == len(r.Topics):
		return models.JobStatusCompleted
	case counts[models.JobStatusSkipped] == len(r.Topics):
		return models.JobStatusSkipped
	case counts[models.JobStatusCompleted] > 0 || counts[models.JobStatusPartial] > 0:
		return models.JobStatusPartial
	}
	return models.JobStatusFailed
}

// Videos returns every successfully rendered video of the run
func (r *RunResult) Videos() []VideoResult {
	var out []VideoResult
	for _, t := range r.Topics {
		for _, v := range t.Videos {
			if v.Err == nil {
				out = append(out, v)
			}
		}
	}
	return out
}
