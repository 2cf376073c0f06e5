package dataset

import (
	"gonum.org/v1/gonum/mat"

	scierrors "github.com/YuminosukeSato/severity/pkg/errors"
)

// Labeled is the (features, label, weight) projection consumed by training
// and evaluation. Treat it as immutable: Subset and WithWeights copy.
type Labeled struct {
	Features *mat.Dense
	Label    []float64
	// Weight is nil until class weights are attached.
	Weight []float64
}

// NewLabeled validates that features and labels agree on the row count.
func NewLabeled(features *mat.Dense, label []float64) (*Labeled, error) {
	r, _ := features.Dims()
	if r != len(label) {
		return nil, scierrors.NewDimensionError("NewLabeled", r, len(label), 0)
	}
	return &Labeled{Features: features, Label: label}, nil
}

// Len returns the number of rows.
func (l *Labeled) Len() int { return len(l.Label) }

// Width returns the feature vector width.
func (l *Labeled) Width() int {
	_, c := l.Features.Dims()
	return c
}

// LabelVec returns the labels as an n×1 vector.
func (l *Labeled) LabelVec() *mat.VecDense {
	return mat.NewVecDense(len(l.Label), append([]float64(nil), l.Label...))
}

// Row returns a copy of feature row i.
func (l *Labeled) Row(i int) []float64 {
	return mat.Row(nil, i, l.Features)
}

// Subset copies rows idx in order, carrying weights when present.
func (l *Labeled) Subset(idx []int) *Labeled {
	if len(idx) == 0 {
		return &Labeled{Features: &mat.Dense{}, Label: []float64{}}
	}
	_, c := l.Features.Dims()
	feats := mat.NewDense(len(idx), c, nil)
	label := make([]float64, len(idx))
	var weight []float64
	if l.Weight != nil {
		weight = make([]float64, len(idx))
	}
	for j, i := range idx {
		feats.SetRow(j, l.Features.RawRowView(i))
		label[j] = l.Label[i]
		if weight != nil {
			weight[j] = l.Weight[i]
		}
	}
	return &Labeled{Features: feats, Label: label, Weight: weight}
}

// WithWeights returns a shallow copy carrying w.
func (l *Labeled) WithWeights(w []float64) *Labeled {
	return &Labeled{Features: l.Features, Label: l.Label, Weight: w}
}

// Weights returns the instance weights, or all ones when none are attached.
func (l *Labeled) Weights() []float64 {
	if l.Weight != nil {
		return l.Weight
	}
	ones := make([]float64, len(l.Label))
	for i := range ones {
		ones[i] = 1
	}
	return ones
}
