package timeline

import "github.com/therealutkarshpriyadarshi/shortgen/pkg/models"

// Plan is the full timing of one rendered video
type Plan struct {
	// Durations are the normalized narration durations, pad included
	Durations []float64 `json:"durations"`
	// Padding is the length of the appended pad, zero when none was added
	Padding float64 `json:"padding"`
	// Captions cover the narrated segments only, never the pad
	Captions []models.TimedSegment `json:"captions"`
	Slots    []models.VisualSlot   `json:"slots"`
	// Total is the narration length the visuals were spread over
	Total float64 `json:"total"`
	Drift float64 `json:"drift"`
}

// NewPlan runs the normalizer, the caption builder and the allocator over
// one language's narration and the shared image inventory.
func NewPlan(segments []models.Segment, assetCount int, opts Options) (*Plan, error) {
	durations := make([]float64, len(segments))
	for i, seg := range segments {
		durations[i] = seg.Duration
	}

	normalized, err := Normalize(durations, opts)
	if err != nil {
		return nil, err
	}

	captions, err := BuildTimeline(segments)
	if err != nil {
		return nil, err
	}

	total := Sum(normalized)
	slots, err := Allocate(assetCount, total, opts.MinSlot)
	if err != nil {
		return nil, err
	}

	plan := &Plan{
		Durations: normalized,
		Captions:  captions,
		Slots:     slots,
		Total:     total,
		Drift:     Drift(slots, total),
	}
	if len(normalized) > len(durations) {
		plan.Padding = normalized[len(normalized)-1]
	}

	return plan, nil
}

// SRT returns the SubRip text for the plan's captions
func (p *Plan) SRT() string {
	return FormatSRT(p.Captions)
}

// Repeat re-lays the plan's slots over windows display windows when there
// are fewer images than windows
func (p *Plan) Repeat(assetCount, windows int, minSlot float64) error {
	slots, err := Layout(assetCount, windows, p.Total, minSlot)
	if err != nil {
		return err
	}
	p.Slots = slots
	p.Drift = Drift(slots, p.Total)
	return nil
}

// Extend stretches the plan's visuals to total when the narration outlasts
// the planned length, keeping the current number of display windows.
// A shorter total leaves the plan unchanged.
func (p *Plan) Extend(total float64, assetCount int, minSlot float64) error {
	if total <= p.Total {
		return nil
	}
	windows := len(p.Slots)
	if windows < assetCount {
		windows = assetCount
	}
	slots, err := Layout(assetCount, windows, total, minSlot)
	if err != nil {
		return err
	}
	p.Slots = slots
	p.Total = total
	p.Drift = Drift(slots, total)
	return nil
}
