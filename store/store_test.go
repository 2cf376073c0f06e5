package store

import (
	"context"
	"encoding/json"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/severity/core/model"
	"github.com/YuminosukeSato/severity/dataset"
	"github.com/YuminosukeSato/severity/decomposition"
	scierrors "github.com/YuminosukeSato/severity/pkg/errors"
	"github.com/YuminosukeSato/severity/pkg/log"
	"github.com/YuminosukeSato/severity/sklearn/pipeline"
	"github.com/YuminosukeSato/severity/sklearn/tree"
)

func newStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	logger, _ := log.NewTestLogger(log.LevelError)
	return New(t.TempDir(), append([]Option{WithLogger(logger)}, opts...)...)
}

func sampleData(n int) *dataset.Labeled {
	X := mat.NewDense(n, 2, nil)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		c := float64(i % 2)
		X.SetRow(i, []float64{c*10 + float64(i)*0.1, -c})
		y[i] = c + 1
	}
	l, err := dataset.NewLabeled(X, y)
	if err != nil {
		panic(err)
	}
	return l
}

func TestSaveDatasetAndConsolidate(t *testing.T) {
	s := newStore(t, WithPartitions(3))
	data := sampleData(10)
	data = data.WithWeights([]float64{1, 2, 1, 2, 1, 2, 1, 2, 1, 2})

	require.NoError(t, s.SaveDataset(context.Background(), data, "train"))
	parts, err := filepath.Glob(filepath.Join(s.PartitionDir("train"), "part-*.json"))
	require.NoError(t, err)
	assert.Len(t, parts, 3)
	assert.Equal(t, "part-00000.json", filepath.Base(parts[0]))

	path, err := s.Consolidate("train")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(s.Root, "data", "train.json"), path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 10)
	assert.JSONEq(t, `{"features":[0,0],"label":1}`, lines[0])
	for i, line := range lines {
		var fields map[string]json.RawMessage
		require.NoError(t, json.Unmarshal([]byte(line), &fields))
		assert.ElementsMatch(t, []string{"features", "label"}, slices.Collect(maps.Keys(fields)), "line %d", i)
	}

	back, err := s.LoadDataset("train")
	require.NoError(t, err)
	assert.True(t, mat.Equal(data.Features, back.Features))
	assert.Equal(t, data.Label, back.Label)
	assert.Equal(t, []float64{2, 2, 2, 2, 2, 2, 2, 2, 2, 2}, back.Weight, "weights come from label counts, not the saved rows")
}

func TestLoadDatasetReweightsByLabel(t *testing.T) {
	s := newStore(t, WithPartitions(2))
	X := mat.NewDense(4, 1, []float64{1, 2, 3, 4})
	data, err := dataset.NewLabeled(X, []float64{1, 1, 1, 3})
	require.NoError(t, err)
	data = data.WithWeights([]float64{9, 9, 9, 9})

	require.NoError(t, s.SaveDataset(context.Background(), data, "skewed"))
	_, err = s.Consolidate("skewed")
	require.NoError(t, err)

	back, err := s.LoadDataset("skewed")
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{4.0 / 3, 4.0 / 3, 4.0 / 3, 4}, back.Weight, 1e-12)
}

func TestSaveDatasetOverwrites(t *testing.T) {
	s := newStore(t, WithPartitions(4))
	ctx := context.Background()
	require.NoError(t, s.SaveDataset(ctx, sampleData(8), "test"))
	require.NoError(t, s.SaveDataset(ctx, sampleData(3), "test"))

	_, err := s.Consolidate("test")
	require.NoError(t, err)
	back, err := s.LoadDataset("test")
	require.NoError(t, err)
	assert.Equal(t, 3, back.Len(), "empty partitions are allowed and stale rows are gone")
}

func TestConsolidateMissing(t *testing.T) {
	s := newStore(t)
	_, err := s.Consolidate("nope")
	assert.Error(t, err)
	_, err = s.LoadDataset("nope")
	assert.Error(t, err)
}

func fittedPipeline(t *testing.T) *pipeline.Pipeline {
	t.Helper()
	p := pipeline.MustNew(
		pipeline.Step{Name: "pca", Estimator: decomposition.NewPCA(2)},
		pipeline.Step{Name: "dtc", Estimator: tree.NewDecisionTreeClassifier()},
	)
	data := sampleData(12)
	require.NoError(t, p.Fit(data.Features, data.LabelVec()))
	return p
}

func TestSaveLoadModel(t *testing.T) {
	s := newStore(t)
	p := fittedPipeline(t)
	card := &model.ModelCard{
		ModelID:         2,
		Description:     "PCA+DecisionTrees",
		RunID:           "run",
		Hyperparameters: map[string]interface{}{"dtc__max_depth": 5},
		Metric:          "weightedFMeasure",
		CVScore:         0.9,
		NFeatures:       2,
		Classes:         []float64{1, 2},
		TrainedAt:       time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.SaveModel(p, 2, card))
	assert.FileExists(t, filepath.Join(s.Root, "models", "model2"))

	loaded, err := s.LoadModel(2)
	require.NoError(t, err)
	data := sampleData(12)
	want, err := p.Predict(data.Features)
	require.NoError(t, err)
	got, err := loaded.Predict(data.Features)
	require.NoError(t, err)
	assert.True(t, mat.Equal(want, got))

	c, err := s.LoadCard(2)
	require.NoError(t, err)
	assert.Equal(t, "PCA+DecisionTrees", c.Description)
	assert.Equal(t, 0.9, c.CVScore)

	_, err = s.LoadModel(9)
	assert.Error(t, err)
}

func TestSaveModelRejectsUnfitted(t *testing.T) {
	s := newStore(t)
	p := pipeline.MustNew(pipeline.Step{Name: "dtc", Estimator: tree.NewDecisionTreeClassifier()})
	err := s.SaveModel(p, 1, nil)
	var nf *scierrors.NotFittedError
	assert.ErrorAs(t, err, &nf)

	bad := &model.ModelCard{ModelID: 0}
	assert.Error(t, s.SaveModel(fittedPipeline(t), 1, bad))
}

func TestExportPredictions(t *testing.T) {
	s := newStore(t)
	p := fittedPipeline(t)
	path, err := s.ExportPredictions(p, 3, sampleData(4))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(s.Root, "output", "model3_predictions.csv"), path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "label,prediction\n1,1\n2,2\n1,1\n2,2\n", string(raw))
}
