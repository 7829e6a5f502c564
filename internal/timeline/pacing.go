package timeline

import "github.com/therealutkarshpriyadarshi/shortgen/pkg/models"

// Allocate gives each of assetCount images one display slot of
// max(minSlot, totalDuration/assetCount) seconds, in ascending asset order.
//
// When minSlot wins, the slots add up to more than totalDuration. That drift
// is kept as is; Drift reports it.
func Allocate(assetCount int, totalDuration, minSlot float64) ([]models.VisualSlot, error) {
	if assetCount <= 0 {
		return nil, invalid("asset count must be >= 1, got %d", assetCount)
	}
	if !positive(totalDuration) {
		return nil, invalid("total duration must be positive, got %v", totalDuration)
	}
	if !nonNegative(minSlot) {
		return nil, invalid("min slot must be >= 0, got %v", minSlot)
	}

	perSlot := totalDuration / float64(assetCount)
	if perSlot < minSlot {
		perSlot = minSlot
	}

	slots := make([]models.VisualSlot, assetCount)
	for i := range slots {
		slots[i] = models.VisualSlot{
			AssetIndex: i,
			Duration:   perSlot,
			Order:      i,
		}
	}
	return slots, nil
}

// Cycle lays out windows display slots over the allocated assets, wrapping
// with asset = position mod len(slots). Each window keeps the duration
// allocated to its asset.
func Cycle(slots []models.VisualSlot, windows int) ([]models.VisualSlot, error) {
	if len(slots) == 0 {
		return nil, invalid("no slots to cycle over")
	}
	if windows < 0 {
		return nil, invalid("window count must be >= 0, got %d", windows)
	}

	out := make([]models.VisualSlot, windows)
	for i := range out {
		src := slots[i%len(slots)]
		out[i] = models.VisualSlot{
			AssetIndex: src.AssetIndex,
			Duration:   src.Duration,
			Order:      i,
		}
	}
	return out, nil
}

// TotalDuration adds up slot durations
func TotalDuration(slots []models.VisualSlot) float64 {
	total := 0.0
	for _, s := range slots {
		total += s.Duration
	}
	return total
}

const driftTolerance = 1e-9

// Drift is how far the slots overshoot totalDuration; zero when they fit
func Drift(slots []models.VisualSlot, totalDuration float64) float64 {
	d := TotalDuration(slots) - totalDuration
	if d < driftTolerance {
		return 0
	}
	return d
}

// Layout spreads totalDuration over windows display slots using assetCount
// images. With fewer images than windows the images repeat in order, each
// window lasting max(minSlot, totalDuration/windows); otherwise it is Allocate.
func Layout(assetCount, windows int, totalDuration, minSlot float64) ([]models.VisualSlot, error) {
	if windows <= assetCount {
		return Allocate(assetCount, totalDuration, minSlot)
	}
	if assetCount <= 0 {
		return nil, invalid("asset count must be >= 1, got %d", assetCount)
	}

	share := totalDuration * float64(assetCount) / float64(windows)
	slots, err := Allocate(assetCount, share, minSlot)
	if err != nil {
		return nil, err
	}
	return Cycle(slots, windows)
}
