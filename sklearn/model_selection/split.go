package model_selection

import (
	"math"
	"math/rand/v2"
	"sort"

	"github.com/YuminosukeSato/severity/dataset"
	scierrors "github.com/YuminosukeSato/severity/pkg/errors"
)

// SampleByLabel draws round(fraction·count) rows of every label with a
// seeded shuffle and returns them as train; the remaining rows form test.
// Both keep the original row order and carry weights when present.
func SampleByLabel(data *dataset.Labeled, fraction float64, seed uint64) (train, test *dataset.Labeled, err error) {
	if fraction <= 0 || fraction >= 1 || math.IsNaN(fraction) {
		return nil, nil, scierrors.NewValidationError("fraction", "must be in (0, 1)", fraction)
	}
	if data.Len() == 0 {
		return nil, nil, scierrors.NewValueError("SampleByLabel", "empty dataset")
	}

	byLabel := make(map[float64][]int)
	for i, l := range data.Label {
		byLabel[l] = append(byLabel[l], i)
	}
	labels := make([]float64, 0, len(byLabel))
	for l := range byLabel {
		labels = append(labels, l)
	}
	sort.Float64s(labels)

	r := rand.New(rand.NewPCG(seed, seed))
	selected := make([]bool, data.Len())
	for _, l := range labels {
		rows := byLabel[l]
		r.Shuffle(len(rows), func(i, j int) { rows[i], rows[j] = rows[j], rows[i] })
		take := int(math.Round(fraction * float64(len(rows))))
		for _, idx := range rows[:take] {
			selected[idx] = true
		}
	}

	var trainIdx, testIdx []int
	for i, s := range selected {
		if s {
			trainIdx = append(trainIdx, i)
		} else {
			testIdx = append(testIdx, i)
		}
	}
	return data.Subset(trainIdx), data.Subset(testIdx), nil
}
