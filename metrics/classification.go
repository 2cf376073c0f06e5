// Package metrics implements the multiclass evaluation metrics used for
// model selection and reporting.
package metrics

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/severity/pkg/errors"
)

// Metric names a multiclass evaluation metric.
type Metric string

const (
	WeightedFMeasure  Metric = "weightedFMeasure"
	AccuracyMetric    Metric = "accuracy"
	F1                Metric = "f1"
	WeightedPrecision Metric = "weightedPrecision"
	WeightedRecall    Metric = "weightedRecall"
)

// ReportMetrics is the column order of the evaluation report.
var ReportMetrics = []Metric{WeightedFMeasure, AccuracyMetric, F1, WeightedPrecision, WeightedRecall}

// ParseMetric validates a metric name.
func ParseMetric(name string) (Metric, error) {
	for _, m := range ReportMetrics {
		if string(m) == name {
			return m, nil
		}
	}
	return "", errors.NewInvalidArgumentError("ParseMetric", "metric", name)
}

// Accuracy は正解率（重みなし）を計算する
func Accuracy(yTrue, yPred *mat.VecDense) (float64, error) {
	if err := checkVectors("Accuracy", yTrue, yPred); err != nil {
		return 0, err
	}
	n := yTrue.Len()
	correct := 0
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) == yPred.AtVec(i) {
			correct++
		}
	}
	return float64(correct) / float64(n), nil
}

// Confusion is a weighted confusion matrix. Counts[i][j] is the weight of
// rows with true label Labels[i] predicted as Labels[j].
type Confusion struct {
	Labels []float64
	Counts *mat.Dense
}

// NewConfusion builds the confusion matrix over the union of true and
// predicted labels. weights may be nil for unit weights.
func NewConfusion(yTrue, yPred *mat.VecDense, weights []float64) (*Confusion, error) {
	if err := checkVectors("NewConfusion", yTrue, yPred); err != nil {
		return nil, err
	}
	n := yTrue.Len()
	if weights != nil && len(weights) != n {
		return nil, errors.NewDimensionError("NewConfusion", n, len(weights), 0)
	}

	seen := make(map[float64]struct{})
	for i := 0; i < n; i++ {
		seen[yTrue.AtVec(i)] = struct{}{}
		seen[yPred.AtVec(i)] = struct{}{}
	}
	labels := make([]float64, 0, len(seen))
	for l := range seen {
		labels = append(labels, l)
	}
	sort.Float64s(labels)
	idx := make(map[float64]int, len(labels))
	for i, l := range labels {
		idx[l] = i
	}

	counts := mat.NewDense(len(labels), len(labels), nil)
	for i := 0; i < n; i++ {
		w := 1.0
		if weights != nil {
			w = weights[i]
		}
		r, c := idx[yTrue.AtVec(i)], idx[yPred.AtVec(i)]
		counts.Set(r, c, counts.At(r, c)+w)
	}
	return &Confusion{Labels: labels, Counts: counts}, nil
}

// ClassStats holds per-label precision, recall and F-measure plus the
// label's true weight mass.
type ClassStats struct {
	Label     float64
	Support   float64
	Precision float64
	Recall    float64
	FMeasure  float64
	// PrecisionDefined is false when the label was never predicted.
	PrecisionDefined bool
}

// PerClass returns statistics for every label. Undefined precision, recall
// or F-measure count as 0.
func (c *Confusion) PerClass() []ClassStats {
	k := len(c.Labels)
	out := make([]ClassStats, k)
	for i := 0; i < k; i++ {
		tp := c.Counts.At(i, i)
		actual := mat.Sum(c.Counts.RowView(i))
		predicted := mat.Sum(c.Counts.ColView(i))
		p := errors.SafeDivide(tp, predicted)
		r := errors.SafeDivide(tp, actual)
		out[i] = ClassStats{
			Label:            c.Labels[i],
			Support:          actual,
			Precision:        p,
			Recall:           r,
			FMeasure:         errors.SafeDivide(2*p*r, p+r),
			PrecisionDefined: predicted > 0,
		}
	}
	return out
}

// Weighted averages a per-class statistic by each label's share of the
// true weight mass.
func (c *Confusion) Weighted(stat func(ClassStats) float64) float64 {
	total := mat.Sum(c.Counts)
	sum := 0.0
	for _, s := range c.PerClass() {
		sum += errors.SafeDivide(s.Support, total) * stat(s)
	}
	return sum
}

// Compute evaluates metric on predictions. weights are used by the weighted
// metrics; accuracy and f1 ignore them.
func Compute(metric Metric, yTrue, yPred *mat.VecDense, weights []float64) (float64, error) {
	switch metric {
	case AccuracyMetric:
		return Accuracy(yTrue, yPred)
	case F1:
		weights = nil
	case WeightedFMeasure, WeightedPrecision, WeightedRecall:
	default:
		return 0, errors.NewInvalidArgumentError("metrics.Compute", "metric", metric)
	}

	conf, err := NewConfusion(yTrue, yPred, weights)
	if err != nil {
		return 0, err
	}
	if metric == WeightedPrecision || metric == WeightedFMeasure || metric == F1 {
		warnUndefinedPrecision(metric, conf)
	}
	switch metric {
	case WeightedPrecision:
		return conf.Weighted(func(s ClassStats) float64 { return s.Precision }), nil
	case WeightedRecall:
		return conf.Weighted(func(s ClassStats) float64 { return s.Recall }), nil
	default:
		return conf.Weighted(func(s ClassStats) float64 { return s.FMeasure }), nil
	}
}

func warnUndefinedPrecision(metric Metric, conf *Confusion) {
	var missing []float64
	for _, s := range conf.PerClass() {
		if !s.PrecisionDefined && s.Support > 0 {
			missing = append(missing, s.Label)
		}
	}
	if len(missing) > 0 {
		errors.Warn(errors.NewUndefinedMetricWarning(string(metric),
			fmt.Sprintf("labels %v were never predicted", missing), 0))
	}
}

// WeightedFMeasureScore is Compute(WeightedFMeasure, ...).
func WeightedFMeasureScore(yTrue, yPred *mat.VecDense, weights []float64) (float64, error) {
	return Compute(WeightedFMeasure, yTrue, yPred, weights)
}

// WeightedPrecisionScore is Compute(WeightedPrecision, ...).
func WeightedPrecisionScore(yTrue, yPred *mat.VecDense, weights []float64) (float64, error) {
	return Compute(WeightedPrecision, yTrue, yPred, weights)
}

// WeightedRecallScore is Compute(WeightedRecall, ...).
func WeightedRecallScore(yTrue, yPred *mat.VecDense, weights []float64) (float64, error) {
	return Compute(WeightedRecall, yTrue, yPred, weights)
}

// F1Score is the weighted F-measure with unit weights.
func F1Score(yTrue, yPred *mat.VecDense) (float64, error) {
	return Compute(F1, yTrue, yPred, nil)
}

// ToVec copies the first column of m into a vector.
func ToVec(m mat.Matrix) *mat.VecDense {
	if v, ok := m.(*mat.VecDense); ok {
		return v
	}
	r, _ := m.Dims()
	out := mat.NewVecDense(r, nil)
	for i := 0; i < r; i++ {
		out.SetVec(i, m.At(i, 0))
	}
	return out
}

func checkVectors(op string, yTrue, yPred *mat.VecDense) error {
	if yTrue == nil || yPred == nil || yTrue.Len() == 0 {
		return errors.NewValueError(op, "empty vector")
	}
	if yPred.Len() != yTrue.Len() {
		return errors.NewDimensionError(op, yTrue.Len(), yPred.Len(), 0)
	}
	return nil
}
