// Package tree implements CART-style decision trees over quantile-binned
// features. Classification trees split on gini or entropy impurity and
// regression trees (used by gradient boosting) on variance.
package tree

import (
	"sort"

	"gonum.org/v1/gonum/mat"
)

// DefaultMaxBins is the number of candidate bins per feature.
const DefaultMaxBins = 32

// Binned holds training rows discretised into per-feature bins. A value v
// falls into bin b when Thresholds[f][b-1] < v <= Thresholds[f][b]; split
// b sends bins 0..b to the left child.
//
// Ensembles build one Binned and share it across their trees.
type Binned struct {
	Thresholds [][]float64
	bins       [][]int32 // feature-major
	nRows      int
}

// NewBinned computes at most maxBins-1 candidate thresholds per feature from
// the distinct values of X and bins every row.
func NewBinned(X mat.Matrix, maxBins int) *Binned {
	if maxBins < 2 {
		maxBins = 2
	}
	r, c := X.Dims()
	b := &Binned{
		Thresholds: make([][]float64, c),
		bins:       make([][]int32, c),
		nRows:      r,
	}
	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, X)
		thr := thresholds(col, maxBins)
		b.Thresholds[j] = thr
		idx := make([]int32, r)
		for i, v := range col {
			idx[i] = int32(sort.SearchFloat64s(thr, v))
		}
		b.bins[j] = idx
	}
	return b
}

// NFeatures returns the number of binned columns.
func (b *Binned) NFeatures() int { return len(b.bins) }

// NRows returns the number of binned rows.
func (b *Binned) NRows() int { return b.nRows }

func thresholds(values []float64, maxBins int) []float64 {
	uniq := append([]float64(nil), values...)
	sort.Float64s(uniq)
	k := 0
	for i, v := range uniq {
		if i == 0 || v != uniq[k-1] {
			uniq[k] = v
			k++
		}
	}
	uniq = uniq[:k]
	if len(uniq) < 2 {
		return nil
	}

	if len(uniq) <= maxBins {
		out := make([]float64, len(uniq)-1)
		for i := range out {
			out[i] = (uniq[i] + uniq[i+1]) / 2
		}
		return out
	}

	out := make([]float64, 0, maxBins-1)
	for q := 1; q < maxBins; q++ {
		pos := q * len(uniq) / maxBins
		t := (uniq[pos-1] + uniq[pos]) / 2
		if len(out) == 0 || t > out[len(out)-1] {
			out = append(out, t)
		}
	}
	return out
}
