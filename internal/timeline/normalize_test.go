package timeline

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name      string
		durations []float64
		target    float64
		minSeg    float64
		want      []float64
	}{
		{
			name:      "pads deficit with one trailing segment",
			durations: []float64{10, 10},
			target:    30,
			want:      []float64{10, 10, 10},
		},
		{
			name:      "sufficient input is unchanged",
			durations: []float64{20, 25, 15},
			target:    60,
			want:      []float64{20, 25, 15},
		},
		{
			name:      "longer than target is not truncated",
			durations: []float64{40, 30},
			target:    60,
			want:      []float64{40, 30},
		},
		{
			name:      "deficit within epsilon is not padded",
			durations: []float64{29.5},
			target:    30,
			want:      []float64{29.5},
		},
		{
			name:      "empty input yields the target",
			durations: nil,
			target:    60,
			want:      []float64{60},
		},
		{
			name:      "pad is raised to the minimum segment",
			durations: []float64{28.5},
			target:    30,
			minSeg:    2,
			want:      []float64{28.5, 2},
		},
		{
			name:      "zero durations are accepted",
			durations: []float64{0, 0},
			target:    5,
			want:      []float64{0, 0, 5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeDurations(tt.durations, tt.target, tt.minSeg)
			require.NoError(t, err)
			assert.InDeltaSlice(t, tt.want, got, 1e-9)
		})
	}
}

func TestNormalize_DoesNotAliasInput(t *testing.T) {
	in := []float64{10, 10}
	out, err := NormalizeDurations(in, 30, 0)
	require.NoError(t, err)

	out[0] = 99
	assert.Equal(t, 10.0, in[0])
	assert.Len(t, in, 2)
}

func TestNormalize_PaddingNone(t *testing.T) {
	opts := DefaultOptions()
	opts.Padding = PaddingNone

	got, err := Normalize([]float64{5, 5}, opts)
	require.NoError(t, err)
	assert.Equal(t, []float64{5, 5}, got)
}

func TestNormalize_PaddingNoneEmptyInput(t *testing.T) {
	opts := DefaultOptions()
	opts.Padding = PaddingNone
	opts.TargetTotal = 45

	got, err := Normalize(nil, opts)
	require.NoError(t, err)
	assert.Equal(t, []float64{45}, got)
}

func TestNormalize_InvalidInput(t *testing.T) {
	tests := []struct {
		name      string
		durations []float64
		target    float64
		minSeg    float64
	}{
		{"zero target", []float64{1}, 0, 0},
		{"negative target", []float64{1}, -5, 0},
		{"infinite target", []float64{1}, math.Inf(1), 0},
		{"negative duration", []float64{1, -1}, 10, 0},
		{"nan duration", []float64{math.NaN()}, 10, 0},
		{"negative minimum", []float64{1}, 10, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NormalizeDurations(tt.durations, tt.target, tt.minSeg)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestOptionsValidate(t *testing.T) {
	assert.NoError(t, DefaultOptions().Validate())

	opts := DefaultOptions()
	opts.Padding = "stretch"
	assert.ErrorIs(t, opts.Validate(), ErrInvalidInput)
}

func TestParsePaddingPolicy(t *testing.T) {
	p, err := ParsePaddingPolicy("")
	require.NoError(t, err)
	assert.Equal(t, PaddingTrailingSilence, p)

	p, err = ParsePaddingPolicy("none")
	require.NoError(t, err)
	assert.Equal(t, PaddingNone, p)

	_, err = ParsePaddingPolicy("loop")
	assert.ErrorIs(t, err, ErrInvalidInput)
}
