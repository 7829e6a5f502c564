package models

// Segment is one unit of narration with its measured audio duration in seconds
type Segment struct {
	Text     string  `json:"text"`
	Duration float64 `json:"duration"`
}

// TimedSegment is a Segment placed on the narration timeline
type TimedSegment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Duration returns the length of the interval
func (ts TimedSegment) Duration() float64 {
	return ts.End - ts.Start
}

// VisualSlot is the display window assigned to one image asset
type VisualSlot struct {
	AssetIndex int     `json:"asset_index"`
	Duration   float64 `json:"duration"`
	Order      int     `json:"order"`
}

// SegmentsFromTexts pairs texts with durations by position.
// Extra entries on either side are ignored.
func SegmentsFromTexts(texts []string, durations []float64) []Segment {
	n := len(texts)
	if len(durations) < n {
		n = len(durations)
	}

	segments := make([]Segment, n)
	for i := 0; i < n; i++ {
		segments[i] = Segment{Text: texts[i], Duration: durations[i]}
	}
	return segments
}

// SegmentsFromLines gives every line the same fixed duration
func SegmentsFromLines(lines []string, perLine float64) []Segment {
	segments := make([]Segment, len(lines))
	for i, line := range lines {
		segments[i] = Segment{Text: line, Duration: perLine}
	}
	return segments
}
