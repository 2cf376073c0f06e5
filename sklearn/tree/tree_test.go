package tree

import (
	"bytes"
	"encoding/gob"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	scierrors "github.com/YuminosukeSato/severity/pkg/errors"
)

func TestDecisionTreeClassifier_FitPredict_Binary(t *testing.T) {
	X := mat.NewDense(8, 2, []float64{
		0, 0,
		0, 1,
		1, 0,
		1, 1,
		3, 3,
		3, 4,
		4, 3,
		4, 4,
	})
	y := mat.NewDense(8, 1, []float64{0, 0, 0, 0, 1, 1, 1, 1})

	dt := NewDecisionTreeClassifier(WithCriterion("gini"), WithMaxDepth(5))
	require.NoError(t, dt.Fit(X, y))

	pred, err := dt.Predict(X)
	require.NoError(t, err)
	for i := 0; i < 8; i++ {
		assert.Equal(t, y.At(i, 0), pred.At(i, 0), "sample %d", i)
	}

	XTest := mat.NewDense(2, 2, []float64{
		0.5, 0.5,
		3.5, 3.5,
	})
	testPreds, err := dt.Predict(XTest)
	require.NoError(t, err)
	assert.Equal(t, 0.0, testPreds.At(0, 0))
	assert.Equal(t, 1.0, testPreds.At(1, 0))
	assert.Equal(t, 1, dt.GetDepth(), "one split separates the clusters")
}

func TestDecisionTreeClassifier_PredictProba(t *testing.T) {
	X := mat.NewDense(6, 2, []float64{
		0, 0,
		0, 1,
		1, 0,
		2, 2,
		2, 3,
		3, 2,
	})
	y := mat.NewDense(6, 1, []float64{0, 0, 0, 1, 1, 1})

	dt := NewDecisionTreeClassifier(WithMaxDepth(3))
	require.NoError(t, dt.Fit(X, y))

	probas, err := dt.PredictProba(X)
	require.NoError(t, err)
	rows, cols := probas.Dims()
	assert.Equal(t, 6, rows)
	assert.Equal(t, 2, cols)
	for i := 0; i < rows; i++ {
		assert.InDelta(t, 1.0, probas.At(i, 0)+probas.At(i, 1), 1e-9)
	}
}

func TestDecisionTreeClassifier_Score(t *testing.T) {
	// XOR-like: class 0 when both features are low or both are high
	X := mat.NewDense(8, 2, []float64{
		0.0, 0.0,
		0.0, 0.1,
		0.1, 1.0,
		0.0, 0.9,
		1.0, 0.0,
		0.9, 0.0,
		1.0, 1.0,
		0.9, 0.9,
	})
	y := mat.NewDense(8, 1, []float64{0, 0, 1, 1, 1, 1, 0, 0})

	dt := NewDecisionTreeClassifier(WithMaxDepth(5), WithMinSamplesLeaf(1))
	require.NoError(t, dt.Fit(X, y))
	score, err := dt.Score(X, y)
	require.NoError(t, err)
	assert.Equal(t, 1.0, score)
}

func TestDecisionTreeClassifier_Multiclass(t *testing.T) {
	X := mat.NewDense(9, 2, []float64{
		0, 0,
		0, 1,
		1, 0,
		3, 3,
		3, 4,
		4, 3,
		6, 6,
		6, 7,
		7, 6,
	})
	y := mat.NewDense(9, 1, []float64{1, 1, 1, 2, 2, 2, 3, 3, 3})

	dt := NewDecisionTreeClassifier(WithCriterion("gini"), WithMaxDepth(5))
	require.NoError(t, dt.Fit(X, y))
	assert.Equal(t, []float64{1, 2, 3}, dt.Classes())

	score, err := dt.Score(X, y)
	require.NoError(t, err)
	assert.Equal(t, 1.0, score)
}

func TestDecisionTreeClassifier_Entropy(t *testing.T) {
	X := mat.NewDense(6, 2, []float64{
		0, 0,
		0, 1,
		1, 0,
		5, 5,
		5, 6,
		6, 5,
	})
	y := mat.NewDense(6, 1, []float64{0, 0, 0, 1, 1, 1})

	gini := NewDecisionTreeClassifier(WithCriterion("gini"), WithMaxDepth(3))
	entropy := NewDecisionTreeClassifier(WithCriterion("entropy"), WithMaxDepth(3))
	require.NoError(t, gini.Fit(X, y))
	require.NoError(t, entropy.Fit(X, y))

	assert.InDelta(t, 0.5, gini.Nodes[0].Impurity, 1e-12)
	assert.InDelta(t, 1.0, entropy.Nodes[0].Impurity, 1e-12, "balanced binary entropy is one bit")

	score, err := entropy.Score(X, y)
	require.NoError(t, err)
	assert.Equal(t, 1.0, score)
}

func TestDecisionTreeClassifier_FeatureImportance(t *testing.T) {
	// feature 0 determines the class
	X := mat.NewDense(8, 3, []float64{
		0, 0, 0,
		0, 1, 1,
		0, 0, 1,
		0, 1, 0,
		1, 0, 0,
		1, 1, 1,
		1, 0, 1,
		1, 1, 0,
	})
	y := mat.NewDense(8, 1, []float64{0, 0, 0, 0, 1, 1, 1, 1})

	dt := NewDecisionTreeClassifier()
	require.NoError(t, dt.Fit(X, y))

	importances := dt.GetFeatureImportances()
	require.Len(t, importances, 3)
	assert.Greater(t, importances[0], importances[1])
	assert.Greater(t, importances[0], importances[2])
	assert.InDelta(t, 1.0, importances[0]+importances[1]+importances[2], 1e-9)
}

func TestDecisionTreeClassifier_MaxDepth(t *testing.T) {
	X := mat.NewDense(16, 2, nil)
	y := mat.NewDense(16, 1, nil)
	for i := 0; i < 16; i++ {
		X.Set(i, 0, float64(i))
		X.Set(i, 1, float64(i%4))
		y.Set(i, 0, float64(i%2))
	}

	dt := NewDecisionTreeClassifier(WithMaxDepth(2))
	require.NoError(t, dt.Fit(X, y))
	assert.LessOrEqual(t, dt.GetDepth(), 2)

	stump := NewDecisionTreeClassifier(WithMaxDepth(0))
	require.NoError(t, stump.Fit(X, y))
	assert.Equal(t, 1, stump.GetNLeaves())
}

func TestDecisionTreeClassifier_MinSamples(t *testing.T) {
	X := mat.NewDense(10, 2, nil)
	y := mat.NewDense(10, 1, nil)
	for i := 0; i < 10; i++ {
		X.Set(i, 0, float64(i))
		X.Set(i, 1, float64(i%3))
		y.Set(i, 0, float64(i%2))
	}

	dt := NewDecisionTreeClassifier(WithMinSamplesSplit(5), WithMinSamplesLeaf(2))
	require.NoError(t, dt.Fit(X, y))
	assert.LessOrEqual(t, dt.GetNLeaves(), 5)
	for _, n := range dt.Nodes {
		if n.Leaf {
			assert.GreaterOrEqual(t, n.Samples, 2)
		}
	}
}

func TestDecisionTreeClassifier_MaxBins(t *testing.T) {
	X := mat.NewDense(100, 1, nil)
	y := mat.NewDense(100, 1, nil)
	for i := 0; i < 100; i++ {
		X.Set(i, 0, float64(i))
		if i >= 50 {
			y.Set(i, 0, 1)
		}
	}
	b := NewBinned(X, 8)
	assert.LessOrEqual(t, len(b.Thresholds[0]), 7)

	dt := NewDecisionTreeClassifier(WithMaxBins(8))
	require.NoError(t, dt.Fit(X, y))
	score, err := dt.Score(X, y)
	require.NoError(t, err)
	assert.Equal(t, 1.0, score, "the median is one of the quantile thresholds")
}

func TestDecisionTreeClassifier_GetSetParams(t *testing.T) {
	dt := NewDecisionTreeClassifier()
	params := dt.GetParams()
	assert.Equal(t, "gini", params["criterion"])
	assert.Equal(t, 2, params["min_samples_split"])

	require.NoError(t, dt.SetParams(map[string]interface{}{
		"criterion":         "entropy",
		"max_depth":         10,
		"min_samples_split": 4,
		"min_samples_leaf":  2,
	}))
	assert.Equal(t, "entropy", dt.Criterion)
	assert.Equal(t, 10, dt.MaxDepth)
	assert.Equal(t, 4, dt.MinSamplesSplit)
	assert.Equal(t, 2, dt.MinSamplesLeaf)

	require.NoError(t, dt.SetParams(dt.GetParams()), "GetParams output round-trips")
	assert.Error(t, dt.SetParams(map[string]interface{}{"splitter": "best"}))

	dt.Criterion = "mse"
	var ve *scierrors.ValidationError
	assert.True(t, scierrors.As(dt.Fit(mat.NewDense(2, 1, []float64{0, 1}), mat.NewDense(2, 1, []float64{0, 1})), &ve))
}

func TestDecisionTreeClassifier_NotFitted(t *testing.T) {
	dt := NewDecisionTreeClassifier()
	X := mat.NewDense(2, 2, []float64{1, 2, 3, 4})

	_, err := dt.Predict(X)
	var nf *scierrors.NotFittedError
	assert.True(t, scierrors.As(err, &nf))

	_, err = dt.PredictProba(X)
	assert.Error(t, err)
}

func TestDecisionTreeClassifier_CloneAndGob(t *testing.T) {
	X := mat.NewDense(6, 1, []float64{0, 1, 2, 10, 11, 12})
	y := mat.NewDense(6, 1, []float64{1, 1, 1, 3, 3, 3})
	dt := NewDecisionTreeClassifier(WithCriterion("entropy"), WithMaxDepth(10))
	require.NoError(t, dt.Fit(X, y))

	clone := dt.Clone().(*DecisionTreeClassifier)
	assert.False(t, clone.IsFitted())
	assert.Equal(t, dt.GetParams(), clone.GetParams())

	var buf bytes.Buffer
	require.NoError(t, gob.NewEncoder(&buf).Encode(dt))
	var restored DecisionTreeClassifier
	require.NoError(t, gob.NewDecoder(&buf).Decode(&restored))
	p1, _ := dt.Predict(X)
	p2, err := restored.Predict(X)
	require.NoError(t, err)
	assert.True(t, mat.Equal(p1, p2))
}

func TestDecisionTreeRegressor(t *testing.T) {
	X := mat.NewDense(6, 1, []float64{0, 1, 2, 10, 11, 12})
	y := mat.NewDense(6, 1, []float64{1, 1, 1, 5, 5, 7})

	reg := NewDecisionTreeRegressor(1)
	require.NoError(t, reg.Fit(X, y))
	pred, err := reg.Predict(X)
	require.NoError(t, err)
	assert.Equal(t, 1.0, pred.At(0, 0))
	assert.InDelta(t, 17.0/3, pred.At(4, 0), 1e-12)
	assert.Equal(t, 1, reg.GetDepth())
}
