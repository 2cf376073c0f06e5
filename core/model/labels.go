package model

import (
	"sort"

	"gonum.org/v1/gonum/mat"

	scierrors "github.com/YuminosukeSato/severity/pkg/errors"
)

// ValidateXY checks that X and y are non-empty and that y is an n×1 column.
func ValidateXY(op string, X, y mat.Matrix) (nSamples, nFeatures int, err error) {
	nSamples, nFeatures = X.Dims()
	if nSamples == 0 || nFeatures == 0 {
		return 0, 0, scierrors.Wrap(scierrors.ErrEmptyData, op)
	}
	yRows, yCols := y.Dims()
	if yRows != nSamples {
		return 0, 0, scierrors.NewDimensionError(op, nSamples, yRows, 0)
	}
	if yCols != 1 {
		return 0, 0, scierrors.NewDimensionError(op, 1, yCols, 1)
	}
	return nSamples, nFeatures, nil
}

// Labels copies the first column of y.
func Labels(y mat.Matrix) []float64 {
	rows, _ := y.Dims()
	out := make([]float64, rows)
	for i := range out {
		out[i] = y.At(i, 0)
	}
	return out
}

// UniqueClasses returns the distinct labels in ascending order.
func UniqueClasses(labels []float64) []float64 {
	seen := make(map[float64]struct{}, 8)
	for _, l := range labels {
		seen[l] = struct{}{}
	}
	classes := make([]float64, 0, len(seen))
	for c := range seen {
		classes = append(classes, c)
	}
	sort.Float64s(classes)
	return classes
}

// ClassIndex maps each class label to its position in classes.
func ClassIndex(classes []float64) map[float64]int {
	idx := make(map[float64]int, len(classes))
	for i, c := range classes {
		idx[c] = i
	}
	return idx
}

// ArgmaxRows turns a probability matrix into a column of class labels.
// Ties resolve to the lowest class index.
func ArgmaxRows(proba mat.Matrix, classes []float64) *mat.VecDense {
	rows, cols := proba.Dims()
	out := mat.NewVecDense(rows, nil)
	for i := 0; i < rows; i++ {
		best := 0
		for j := 1; j < cols; j++ {
			if proba.At(i, j) > proba.At(i, best) {
				best = j
			}
		}
		out.SetVec(i, classes[best])
	}
	return out
}
