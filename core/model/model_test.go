package model

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	scierrors "github.com/YuminosukeSato/severity/pkg/errors"
)

func TestStateManager(t *testing.T) {
	s := NewStateManager()
	assert.False(t, s.IsFitted())

	err := s.RequireFitted("PCA", "Transform")
	var nf *scierrors.NotFittedError
	require.True(t, scierrors.As(err, &nf))
	assert.Equal(t, "PCA", nf.ModelName)

	s.SetFitted(4, 10)
	assert.NoError(t, s.RequireFitted("PCA", "Transform"))
	f, n := s.GetDimensions()
	assert.Equal(t, 4, f)
	assert.Equal(t, 10, n)

	assert.NoError(t, s.RequireFeatures("Transform", mat.NewDense(2, 4, nil)))
	var dimErr *scierrors.DimensionError
	assert.True(t, scierrors.As(s.RequireFeatures("Transform", mat.NewDense(2, 3, nil)), &dimErr))

	s.Reset()
	assert.False(t, s.IsFitted())
}

func TestParamConversions(t *testing.T) {
	i, err := ParamInt("k", 50)
	require.NoError(t, err)
	assert.Equal(t, 50, i)

	i, err = ParamInt("k", 100.0)
	require.NoError(t, err)
	assert.Equal(t, 100, i)

	_, err = ParamInt("k", 1.5)
	assert.Error(t, err)

	f, err := ParamFloat("reg_param", 1)
	require.NoError(t, err)
	assert.Equal(t, 1.0, f)

	_, err = ParamString("criterion", 3)
	assert.Error(t, err)

	b, err := ParamBool("drop_last", true)
	require.NoError(t, err)
	assert.True(t, b)

	var ve *scierrors.ValueError
	assert.True(t, scierrors.As(UnknownParam("PCA", "alpha"), &ve))
}

func TestLabelsHelpers(t *testing.T) {
	y := mat.NewVecDense(5, []float64{3, 1, 3, 2, 1})
	_, _, err := ValidateXY("Fit", mat.NewDense(5, 2, nil), y)
	require.NoError(t, err)

	_, _, err = ValidateXY("Fit", mat.NewDense(4, 2, nil), y)
	assert.Error(t, err)

	classes := UniqueClasses(Labels(y))
	assert.Equal(t, []float64{1, 2, 3}, classes)
	assert.Equal(t, 2, ClassIndex(classes)[3])

	proba := mat.NewDense(2, 3, []float64{
		0.2, 0.5, 0.3,
		0.4, 0.4, 0.2,
	})
	pred := ArgmaxRows(proba, classes)
	assert.Equal(t, 2.0, pred.AtVec(0))
	assert.Equal(t, 1.0, pred.AtVec(1), "ties go to the lowest class")
}

type persisted struct {
	Name  string
	State *StateManager
	Coef  *mat.Dense
}

func TestPersistenceRoundTrip(t *testing.T) {
	in := persisted{Name: "pca", State: NewStateManager(), Coef: mat.NewDense(2, 2, []float64{1, 2, 3, 4})}
	in.State.SetFitted(2, 7)

	path := filepath.Join(t.TempDir(), "model1")
	require.NoError(t, SaveModel(&in, path))

	var out persisted
	require.NoError(t, LoadModel(&out, path))
	assert.Equal(t, "pca", out.Name)
	assert.True(t, out.State.IsFitted())
	assert.True(t, mat.Equal(in.Coef, out.Coef))

	var buf bytes.Buffer
	require.NoError(t, SaveModelToWriter(&in, &buf))
	var again persisted
	require.NoError(t, LoadModelFromReader(&again, &buf))
	assert.Equal(t, 7, again.State.NSamples)

	assert.Error(t, LoadModel(&out, filepath.Join(t.TempDir(), "missing")))
}

func TestModelCard(t *testing.T) {
	card := &ModelCard{
		ModelID:         2,
		Description:     "PCA+DecisionTrees",
		Hyperparameters: map[string]interface{}{"dtc__max_depth": 5.0},
		Metric:          "weightedFMeasure",
		CVScore:         0.61,
		NFeatures:       197,
	}
	require.NoError(t, card.Validate())

	data, err := card.ToJSON()
	require.NoError(t, err)

	var decoded ModelCard
	require.NoError(t, decoded.FromJSON(data))
	assert.Equal(t, card.Hyperparameters, decoded.Hyperparameters)

	assert.Error(t, (&ModelCard{Description: "x", NFeatures: 1}).Validate())
}
