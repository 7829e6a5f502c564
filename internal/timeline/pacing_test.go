package timeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocate_Proportional(t *testing.T) {
	slots, err := Allocate(6, 60, 2)
	require.NoError(t, err)
	require.Len(t, slots, 6)

	for i, s := range slots {
		assert.Equal(t, i, s.AssetIndex)
		assert.Equal(t, i, s.Order)
		assert.InDelta(t, 10.0, s.Duration, 1e-9)
	}
	assert.InDelta(t, 60.0, TotalDuration(slots), 1.0/30)
	assert.Zero(t, Drift(slots, 60))
}

func TestAllocate_MinimumSlotDrift(t *testing.T) {
	slots, err := Allocate(10, 10, 2)
	require.NoError(t, err)

	for _, s := range slots {
		assert.Equal(t, 2.0, s.Duration)
	}
	assert.InDelta(t, 10.0, Drift(slots, 10), 1e-9)
}

func TestAllocate_InvalidInput(t *testing.T) {
	_, err := Allocate(0, 60, 2)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = Allocate(-1, 60, 2)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = Allocate(3, 0, 2)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = Allocate(3, 9, -1)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCycle_WrapsAssets(t *testing.T) {
	slots, err := Allocate(3, 9, 2)
	require.NoError(t, err)

	windows, err := Cycle(slots, 5)
	require.NoError(t, err)

	indices := make([]int, len(windows))
	for i, w := range windows {
		indices[i] = w.AssetIndex
		assert.Equal(t, i, w.Order)
		assert.Equal(t, 3.0, w.Duration)
	}
	assert.Equal(t, []int{0, 1, 2, 0, 1}, indices)
}

func TestCycle_Invalid(t *testing.T) {
	_, err := Cycle(nil, 3)
	assert.ErrorIs(t, err, ErrInvalidInput)

	slots, err := Allocate(2, 4, 0)
	require.NoError(t, err)
	_, err = Cycle(slots, -1)
	assert.ErrorIs(t, err, ErrInvalidInput)

	windows, err := Cycle(slots, 0)
	require.NoError(t, err)
	assert.Empty(t, windows)
}

func TestLayout_RepeatsImagesOverWindows(t *testing.T) {
	slots, err := Layout(2, 6, 60, 2)
	require.NoError(t, err)
	require.Len(t, slots, 6)

	indices := make([]int, len(slots))
	for i, s := range slots {
		indices[i] = s.AssetIndex
		assert.Equal(t, i, s.Order)
		assert.InDelta(t, 10.0, s.Duration, 1e-9)
	}
	assert.Equal(t, []int{0, 1, 0, 1, 0, 1}, indices)
	assert.Zero(t, Drift(slots, 60))
}

func TestLayout_EnoughImages(t *testing.T) {
	slots, err := Layout(6, 4, 60, 2)
	require.NoError(t, err)
	require.Len(t, slots, 6)
	assert.InDelta(t, 10.0, slots[0].Duration, 1e-9)
}

func TestLayout_InvalidInput(t *testing.T) {
	_, err := Layout(0, 6, 60, 2)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = Layout(2, 6, 0, 2)
	assert.ErrorIs(t, err, ErrInvalidInput)
}
