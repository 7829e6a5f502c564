package main

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/therealutkarshpriyadarshi/shortgen/internal/metrics"
	"github.com/therealutkarshpriyadarshi/shortgen/internal/timeline"
	"github.com/therealutkarshpriyadarshi/shortgen/pkg/models"
)

// timelineError answers 400 for invalid input and 500 otherwise
func timelineError(c *gin.Context, stage string, err error) {
	if errors.Is(err, timeline.ErrInvalidInput) {
		metrics.RecordInvalidInput(stage)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

type normalizeRequest struct {
	Durations     []float64 `json:"durations"`
	TargetSeconds *float64  `json:"target_seconds"`
	MinSegment    *float64  `json:"min_segment"`
	PadEpsilon    *float64  `json:"pad_epsilon"`
	Padding       string    `json:"padding"`
}

// options overlays the request on the configured timeline settings
func (r normalizeRequest) options(base timeline.Options) (timeline.Options, error) {
	opts := base
	if r.TargetSeconds != nil {
		opts.TargetTotal = *r.TargetSeconds
	}
	if r.MinSegment != nil {
		opts.MinSegment = *r.MinSegment
	}
	if r.PadEpsilon != nil {
		opts.PadEpsilon = *r.PadEpsilon
	}
	if r.Padding != "" {
		policy, err := timeline.ParsePaddingPolicy(r.Padding)
		if err != nil {
			return opts, err
		}
		opts.Padding = policy
	}
	return opts, nil
}

// Normalize durations endpoint
func (api *API) normalize(c *gin.Context) {
	var req normalizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	opts, err := req.options(api.timeline)
	if err != nil {
		timelineError(c, "normalize", err)
		return
	}

	durations, err := timeline.Normalize(req.Durations, opts)
	if err != nil {
		timelineError(c, "normalize", err)
		return
	}

	padding := 0.0
	if len(durations) > len(req.Durations) {
		padding = durations[len(durations)-1]
	}

	c.JSON(http.StatusOK, gin.H{
		"durations": durations,
		"padding":   padding,
		"total":     timeline.Sum(durations),
	})
}

// Build subtitles endpoint. Answers SRT text unless format=json is asked.
func (api *API) subtitles(c *gin.Context) {
	var req struct {
		Segments []models.Segment `json:"segments"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	captions, err := timeline.BuildTimeline(req.Segments)
	if err != nil {
		timelineError(c, "subtitles", err)
		return
	}

	srt := timeline.FormatSRT(captions)
	if c.Query("format") == "json" {
		c.JSON(http.StatusOK, gin.H{
			"entries": captions,
			"end":     timeline.End(captions),
			"srt":     srt,
		})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="captions.srt"`)
	c.Data(http.StatusOK, "application/x-subrip; charset=utf-8", []byte(srt))
}

// Allocate visual slots endpoint. Windows above the asset count cycle the
// assets over the total duration.
func (api *API) slots(c *gin.Context) {
	var req struct {
		AssetCount   int      `json:"asset_count"`
		TotalSeconds float64  `json:"total_seconds"`
		MinSlot      *float64 `json:"min_slot"`
		Windows      int      `json:"windows"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	minSlot := api.timeline.MinSlot
	if req.MinSlot != nil {
		minSlot = *req.MinSlot
	}

	slots, err := timeline.Layout(req.AssetCount, req.Windows, req.TotalSeconds, minSlot)
	if err != nil {
		timelineError(c, "slots", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"slots": slots,
		"total": timeline.TotalDuration(slots),
		"drift": timeline.Drift(slots, req.TotalSeconds),
	})
}
