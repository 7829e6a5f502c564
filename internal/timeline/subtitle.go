package timeline

import (
	"fmt"
	"io"
	"strings"

	"github.com/therealutkarshpriyadarshi/shortgen/pkg/models"
)

// msTolerance absorbs float error from prefix sums (0.7+0.1 must print ,800)
const msTolerance = 1e-6

// BuildTimeline places segments back to back starting at zero.
// Segment i+1 starts at exactly the end of segment i, and the last end equals
// the sum of the durations. Empty texts are kept; order is preserved.
func BuildTimeline(segments []models.Segment) ([]models.TimedSegment, error) {
	out := make([]models.TimedSegment, 0, len(segments))

	t := 0.0
	for i, seg := range segments {
		if !positive(seg.Duration) {
			return nil, invalid("segment %d has non-positive duration %v", i, seg.Duration)
		}
		end := t + seg.Duration
		out = append(out, models.TimedSegment{
			Text:  seg.Text,
			Start: t,
			End:   end,
		})
		t = end
	}

	return out, nil
}

// FormatTimestamp renders seconds as HH:MM:SS,mmm.
// Milliseconds are truncated; hours are not wrapped. Values within
// msTolerance below a whole millisecond round up to it, so a caption start
// summed as 0.7+0.1 prints ,800 where a bare cast would give ,799.
func FormatTimestamp(seconds float64) string {
	if !nonNegative(seconds) {
		seconds = 0
	}

	totalMs := int64(seconds*1000 + msTolerance)
	h := totalMs / 3600000
	m := (totalMs / 60000) % 60
	s := (totalMs / 1000) % 60
	ms := totalMs % 1000

	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}

// FormatSRT serialises a timeline as SubRip. Each entry is
// "index\nstart --> end\ntext\n" and entries are separated by one blank line.
// An empty timeline yields "".
func FormatSRT(timeline []models.TimedSegment) string {
	var sb strings.Builder
	for i, ts := range timeline {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "%d\n%s --> %s\n%s\n",
			i+1, FormatTimestamp(ts.Start), FormatTimestamp(ts.End), ts.Text)
	}
	return sb.String()
}

// WriteSRT writes the SubRip form of timeline to w
func WriteSRT(w io.Writer, timeline []models.TimedSegment) error {
	if _, err := io.WriteString(w, FormatSRT(timeline)); err != nil {
		return fmt.Errorf("failed to write subtitles: %w", err)
	}
	return nil
}

// DropEmpty removes entries with blank text, keeping the timings of the rest
func DropEmpty(timeline []models.TimedSegment) []models.TimedSegment {
	out := make([]models.TimedSegment, 0, len(timeline))
	for _, ts := range timeline {
		if strings.TrimSpace(ts.Text) == "" {
			continue
		}
		out = append(out, ts)
	}
	return out
}

// End returns the end of the last entry, or zero for an empty timeline
func End(timeline []models.TimedSegment) float64 {
	if len(timeline) == 0 {
		return 0
	}
	return timeline[len(timeline)-1].End
}
