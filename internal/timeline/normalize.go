package timeline

// Normalize reconciles measured segment durations with a target total.
//
// When the durations fall short of the target by more than the pad epsilon,
// a single trailing pad covering the deficit is appended (never spread over
// the other segments); the pad is raised to minSegment if smaller. Durations
// that already reach the target are returned unchanged, with no truncation.
// An empty input yields a single pad equal to the target under every
// padding policy.
//
// The result is always a fresh slice.
func Normalize(durations []float64, opts Options) ([]float64, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	sum := 0.0
	for i, d := range durations {
		if !nonNegative(d) {
			return nil, invalid("segment %d has duration %v", i, d)
		}
		sum += d
	}

	out := make([]float64, len(durations), len(durations)+1)
	copy(out, durations)

	if len(durations) == 0 {
		return []float64{opts.TargetTotal}, nil
	}

	if opts.Padding == PaddingNone {
		return out, nil
	}

	if sum < opts.TargetTotal-opts.PadEpsilon {
		pad := opts.TargetTotal - sum
		if pad < opts.MinSegment {
			pad = opts.MinSegment
		}
		out = append(out, pad)
	}

	return out, nil
}

// NormalizeDurations is Normalize with the default epsilon and trailing
// silence padding.
func NormalizeDurations(durations []float64, targetTotal, minSegment float64) ([]float64, error) {
	opts := DefaultOptions()
	opts.TargetTotal = targetTotal
	opts.MinSegment = minSegment
	return Normalize(durations, opts)
}

// Sum adds up durations
func Sum(durations []float64) float64 {
	total := 0.0
	for _, d := range durations {
		total += d
	}
	return total
}
