package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	scierrors "github.com/YuminosukeSato/severity/pkg/errors"
)

func vec(v ...float64) *mat.VecDense { return mat.NewVecDense(len(v), v) }

func TestAccuracy(t *testing.T) {
	tests := []struct {
		name    string
		yTrue   *mat.VecDense
		yPred   *mat.VecDense
		want    float64
		wantErr bool
	}{
		{name: "Perfect", yTrue: vec(1, 2, 3, 4), yPred: vec(1, 2, 3, 4), want: 1},
		{name: "Half", yTrue: vec(1, 1, 2, 2), yPred: vec(1, 2, 1, 2), want: 0.5},
		{name: "None", yTrue: vec(1, 1), yPred: vec(2, 2), want: 0},
		{name: "Length mismatch", yTrue: vec(1, 2), yPred: vec(1), wantErr: true},
		{name: "Nil", yTrue: nil, yPred: vec(1), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Accuracy(tt.yTrue, tt.yPred)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestConfusion(t *testing.T) {
	conf, err := NewConfusion(vec(1, 1, 2, 3), vec(1, 2, 2, 4), []float64{1, 2, 3, 4})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3, 4}, conf.Labels)
	assert.Equal(t, 1.0, conf.Counts.At(0, 0))
	assert.Equal(t, 2.0, conf.Counts.At(0, 1))
	assert.Equal(t, 3.0, conf.Counts.At(1, 1))
	assert.Equal(t, 4.0, conf.Counts.At(2, 3))
	assert.Equal(t, 10.0, mat.Sum(conf.Counts))

	_, err = NewConfusion(vec(1, 2), vec(1, 2), []float64{1})
	assert.Error(t, err)
}

func TestWeightedMetricsUnitWeights(t *testing.T) {
	yTrue, yPred := vec(1, 1, 2, 2), vec(1, 2, 2, 2)

	// label 1: p=1 r=0.5 f=2/3, label 2: p=2/3 r=1 f=0.8
	f, err := WeightedFMeasureScore(yTrue, yPred, nil)
	require.NoError(t, err)
	assert.InDelta(t, 0.5*2.0/3.0+0.5*0.8, f, 1e-12)

	p, err := WeightedPrecisionScore(yTrue, yPred, nil)
	require.NoError(t, err)
	assert.InDelta(t, 0.5+0.5*2.0/3.0, p, 1e-12)

	r, err := WeightedRecallScore(yTrue, yPred, nil)
	require.NoError(t, err)
	assert.InDelta(t, 0.75, r, 1e-12)

	f1, err := F1Score(yTrue, yPred)
	require.NoError(t, err)
	assert.InDelta(t, f, f1, 1e-12)
}

func TestWeightedMetricsUseWeights(t *testing.T) {
	yTrue, yPred := vec(1, 1, 2, 2), vec(1, 2, 2, 2)
	w := []float64{1, 1, 2, 2}

	// label 1: p=1 r=0.5, label 2: p=4/5 r=1, shares 1/3 and 2/3
	f, err := Compute(WeightedFMeasure, yTrue, yPred, w)
	require.NoError(t, err)
	assert.InDelta(t, (2.0/3.0)/3.0+(8.0/9.0)*2.0/3.0, f, 1e-12)

	// f1 and accuracy ignore weights
	f1, err := Compute(F1, yTrue, yPred, w)
	require.NoError(t, err)
	assert.InDelta(t, 0.5*2.0/3.0+0.5*0.8, f1, 1e-12)

	acc, err := Compute(AccuracyMetric, yTrue, yPred, w)
	require.NoError(t, err)
	assert.InDelta(t, 0.75, acc, 1e-12)
}

func TestUndefinedPrecisionWarns(t *testing.T) {
	var warnings []error
	scierrors.SetZerologWarnFunc(nil)
	scierrors.SetWarningHandler(func(w error) { warnings = append(warnings, w) })
	defer scierrors.SetWarningHandler(nil)

	p, err := WeightedPrecisionScore(vec(1, 2), vec(1, 1), nil)
	require.NoError(t, err)
	// label 1: p=0.5, label 2 never predicted: 0
	assert.InDelta(t, 0.25, p, 1e-12)
	require.Len(t, warnings, 1)
	var umw *scierrors.UndefinedMetricWarning
	assert.ErrorAs(t, warnings[0], &umw)
	assert.Equal(t, "weightedPrecision", umw.Metric)

	warnings = nil
	_, err = WeightedRecallScore(vec(1, 2), vec(1, 1), nil)
	require.NoError(t, err)
	assert.Empty(t, warnings)
}

func TestParseMetric(t *testing.T) {
	for _, m := range ReportMetrics {
		got, err := ParseMetric(string(m))
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}
	_, err := ParseMetric("auc")
	assert.Error(t, err)

	_, err = Compute(Metric("auc"), vec(1), vec(1), nil)
	assert.Error(t, err)
}

func TestToVec(t *testing.T) {
	m := mat.NewDense(3, 1, []float64{1, 2, 3})
	v := ToVec(m)
	assert.Equal(t, []float64{1, 2, 3}, v.RawVector().Data)

	orig := vec(4, 5)
	assert.Same(t, orig, ToVec(orig))
}
