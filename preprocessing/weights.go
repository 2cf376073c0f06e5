package preprocessing

import (
	"sort"

	"github.com/YuminosukeSato/severity/dataset"
)

// ClassWeights returns total/count(label) for every label present. A single
// label therefore gets weight 1.
func ClassWeights(labels []float64) map[float64]float64 {
	counts := make(map[float64]int)
	for _, l := range labels {
		counts[l]++
	}
	total := float64(len(labels))
	weights := make(map[float64]float64, len(counts))
	for l, c := range counts {
		weights[l] = total / float64(c)
	}
	return weights
}

// AttachWeights returns a copy of data whose Weight column holds the
// inverse-frequency weight of each row's label. Weights are relative to the
// rows passed in: a different subset gets different weights.
func AttachWeights(data *dataset.Labeled) *dataset.Labeled {
	weights := ClassWeights(data.Label)
	w := make([]float64, len(data.Label))
	for i, l := range data.Label {
		w[i] = weights[l]
	}
	return data.WithWeights(w)
}

// SortedLabels returns the keys of a weight map in ascending order.
func SortedLabels(weights map[float64]float64) []float64 {
	labels := make([]float64, 0, len(weights))
	for l := range weights {
		labels = append(labels, l)
	}
	sort.Float64s(labels)
	return labels
}
