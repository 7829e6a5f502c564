// Package timeline turns measured narration into caption timings and
// spreads a set of images across the length of a video.
//
// Every function here is pure: no I/O and no package state, so callers
// may run them concurrently for independent pipeline runs.
package timeline

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidInput is returned for zero assets, non-positive targets and
// negative or non-finite durations.
var ErrInvalidInput = errors.New("invalid input")

// PaddingPolicy selects how a short narration is reconciled with the target
type PaddingPolicy string

const (
	// PaddingTrailingSilence appends one synthetic segment covering the deficit
	PaddingTrailingSilence PaddingPolicy = "trailing-silence"
	// PaddingNone leaves the measured durations untouched
	PaddingNone PaddingPolicy = "none"
)

// Defaults used when a configuration value is left at zero
const (
	DefaultTargetTotal = 60.0
	DefaultMinSegment  = 2.0
	DefaultMinSlot     = 2.0
	DefaultPadEpsilon  = 1.0
)

// Options carries the scalar settings of one pipeline run
type Options struct {
	TargetTotal float64
	MinSegment  float64
	MinSlot     float64
	PadEpsilon  float64
	Padding     PaddingPolicy
}

// DefaultOptions returns the recognised defaults
func DefaultOptions() Options {
	return Options{
		TargetTotal: DefaultTargetTotal,
		MinSegment:  DefaultMinSegment,
		MinSlot:     DefaultMinSlot,
		PadEpsilon:  DefaultPadEpsilon,
		Padding:     PaddingTrailingSilence,
	}
}

// Validate checks the options and reports the first problem found
func (o Options) Validate() error {
	if !positive(o.TargetTotal) {
		return invalid("target total must be positive, got %v", o.TargetTotal)
	}
	if !nonNegative(o.MinSegment) {
		return invalid("min segment must be >= 0, got %v", o.MinSegment)
	}
	if !nonNegative(o.MinSlot) {
		return invalid("min slot must be >= 0, got %v", o.MinSlot)
	}
	if !nonNegative(o.PadEpsilon) {
		return invalid("pad epsilon must be >= 0, got %v", o.PadEpsilon)
	}
	switch o.Padding {
	case PaddingTrailingSilence, PaddingNone:
	default:
		return invalid("unknown padding policy %q", o.Padding)
	}
	return nil
}

// ParsePaddingPolicy maps a configuration string to a policy.
// An empty string selects trailing silence.
func ParsePaddingPolicy(s string) (PaddingPolicy, error) {
	switch PaddingPolicy(s) {
	case "", PaddingTrailingSilence:
		return PaddingTrailingSilence, nil
	case PaddingNone:
		return PaddingNone, nil
	}
	return "", invalid("unknown padding policy %q", s)
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}

// nonNegative is false for NaN
func nonNegative(v float64) bool {
	return v >= 0 && !math.IsInf(v, 0)
}
