// Package ensemble provides tree ensembles: a bagged random forest and a
// binary gradient-boosted tree classifier.
package ensemble

import (
	"context"
	"encoding/gob"
	"fmt"
	"math"
	"math/rand/v2"
	"runtime"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/severity/core/model"
	"github.com/YuminosukeSato/severity/core/parallel"
	scierrors "github.com/YuminosukeSato/severity/pkg/errors"
	"github.com/YuminosukeSato/severity/sklearn/tree"
)

func init() {
	gob.Register(&RandomForestClassifier{})
	gob.Register(&GBTClassifier{})
}

// RandomForestClassifier averages the class distributions of NEstimators
// trees, each grown on a bootstrap sample with sqrt(features) candidates
// per node.
type RandomForestClassifier struct {
	State *model.StateManager

	NEstimators     int
	Criterion       string
	MaxDepth        int
	MinSamplesLeaf  int
	MaxBins         int
	SubsamplingRate float64
	// FeatureSubset is "auto"/"sqrt", "log2", "all" or "onethird".
	FeatureSubset string
	Seed          uint64

	ClassLabels        []float64
	Trees              []*tree.DecisionTreeClassifier
	FeatureImportances []float64
}

// NewRandomForestClassifier returns an unfitted forest of 20 depth-5 trees.
func NewRandomForestClassifier() *RandomForestClassifier {
	return &RandomForestClassifier{
		State:           model.NewStateManager(),
		NEstimators:     20,
		Criterion:       "gini",
		MaxDepth:        5,
		MinSamplesLeaf:  1,
		MaxBins:         tree.DefaultMaxBins,
		SubsamplingRate: 1.0,
		FeatureSubset:   "auto",
	}
}

func (f *RandomForestClassifier) featuresPerNode(d int) (int, error) {
	var k float64
	switch f.FeatureSubset {
	case "auto", "sqrt":
		k = math.Sqrt(float64(d))
	case "log2":
		k = math.Log2(float64(d))
	case "onethird":
		k = float64(d) / 3
	case "all":
		return d, nil
	default:
		return 0, scierrors.NewValidationError("feature_subset", "unknown strategy", f.FeatureSubset)
	}
	return max(1, min(d, int(math.Ceil(k)))), nil
}

// Fit grows the trees concurrently. Tree i draws its bootstrap sample and
// feature subsets from Seed+i, so the result does not depend on scheduling.
func (f *RandomForestClassifier) Fit(X, y mat.Matrix) error {
	if f.NEstimators < 1 {
		return scierrors.NewValidationError("n_estimators", "must be >= 1", f.NEstimators)
	}
	if f.SubsamplingRate <= 0 || f.SubsamplingRate > 1 {
		return scierrors.NewValidationError("subsampling_rate", "must be in (0, 1]", f.SubsamplingRate)
	}
	nSamples, nFeatures, err := model.ValidateXY("RandomForestClassifier.Fit", X, y)
	if err != nil {
		return err
	}
	perNode, err := f.featuresPerNode(nFeatures)
	if err != nil {
		return err
	}

	labels := model.Labels(y)
	classes := model.UniqueClasses(labels)
	idx := model.ClassIndex(classes)
	target := make([]int, nSamples)
	for i, l := range labels {
		target[i] = idx[l]
	}
	data := tree.NewBinned(X, f.MaxBins)
	sampleSize := max(1, int(math.Round(f.SubsamplingRate*float64(nSamples))))

	trees := make([]*tree.DecisionTreeClassifier, f.NEstimators)
	err = parallel.ForEach(context.Background(), f.NEstimators, runtime.NumCPU(), func(_ context.Context, i int) error {
		seed := f.Seed + uint64(i)
		rng := rand.New(rand.NewPCG(seed, seed))
		weights := make([]float64, nSamples)
		for s := 0; s < sampleSize; s++ {
			weights[rng.IntN(nSamples)]++
		}
		rows := make([]int, 0, nSamples)
		for r, w := range weights {
			if w > 0 {
				rows = append(rows, r)
			}
		}
		t := tree.NewDecisionTreeClassifier(
			tree.WithCriterion(f.Criterion),
			tree.WithMaxDepth(f.MaxDepth),
			tree.WithMinSamplesLeaf(f.MinSamplesLeaf),
			tree.WithMaxBins(f.MaxBins),
			tree.WithMaxFeatures(perNode),
			tree.WithSeed(seed),
		)
		if err := t.FitBinned(data, target, classes, rows, weights); err != nil {
			return scierrors.Wrapf(err, "tree %d", i)
		}
		trees[i] = t
		return nil
	})
	if err != nil {
		return err
	}

	f.Trees = trees
	f.ClassLabels = classes
	f.FeatureImportances = make([]float64, nFeatures)
	for _, t := range trees {
		for j, v := range t.FeatureImportances {
			f.FeatureImportances[j] += v / float64(len(trees))
		}
	}
	f.State.SetFitted(nFeatures, nSamples)
	return nil
}

// PredictProba averages the per-tree leaf distributions.
func (f *RandomForestClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if err := f.State.RequireFitted("RandomForestClassifier", "PredictProba"); err != nil {
		return nil, err
	}
	if err := f.State.RequireFeatures("RandomForestClassifier.PredictProba", X); err != nil {
		return nil, err
	}
	n, _ := X.Dims()
	out := mat.NewDense(n, len(f.ClassLabels), nil)
	for _, t := range f.Trees {
		p, err := t.PredictProba(X)
		if err != nil {
			return nil, err
		}
		out.Add(out, p)
	}
	out.Scale(1/float64(len(f.Trees)), out)
	return out, nil
}

// Predict returns the class with the highest averaged probability.
func (f *RandomForestClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	proba, err := f.PredictProba(X)
	if err != nil {
		return nil, err
	}
	return model.ArgmaxRows(proba, f.ClassLabels), nil
}

// Classes returns the sorted labels seen during fitting.
func (f *RandomForestClassifier) Classes() []float64 { return f.ClassLabels }

// IsFitted reports whether Fit has completed.
func (f *RandomForestClassifier) IsFitted() bool { return f.State.IsFitted() }

// GetParams returns the hyperparameters.
func (f *RandomForestClassifier) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"n_estimators":     f.NEstimators,
		"criterion":        f.Criterion,
		"max_depth":        f.MaxDepth,
		"min_samples_leaf": f.MinSamplesLeaf,
		"max_bins":         f.MaxBins,
		"subsampling_rate": f.SubsamplingRate,
		"feature_subset":   f.FeatureSubset,
		"seed":             f.Seed,
	}
}

// SetParams sets hyperparameters by name.
func (f *RandomForestClassifier) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		var err error
		switch key {
		case "n_estimators":
			f.NEstimators, err = model.ParamInt(key, value)
		case "criterion":
			f.Criterion, err = model.ParamString(key, value)
		case "max_depth":
			f.MaxDepth, err = model.ParamInt(key, value)
		case "min_samples_leaf":
			f.MinSamplesLeaf, err = model.ParamInt(key, value)
		case "max_bins":
			f.MaxBins, err = model.ParamInt(key, value)
		case "subsampling_rate":
			f.SubsamplingRate, err = model.ParamFloat(key, value)
		case "feature_subset":
			f.FeatureSubset, err = model.ParamString(key, value)
		case "seed":
			var s int
			s, err = model.ParamInt(key, value)
			f.Seed = uint64(s)
		default:
			return model.UnknownParam("RandomForestClassifier", key)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Clone returns an unfitted forest with the same hyperparameters.
func (f *RandomForestClassifier) Clone() model.Estimator {
	c := *f
	c.State = model.NewStateManager()
	c.ClassLabels, c.Trees, c.FeatureImportances = nil, nil, nil
	return &c
}

func (f *RandomForestClassifier) String() string {
	return fmt.Sprintf("RandomForestClassifier(n_estimators=%d, max_depth=%d, criterion=%s)",
		f.NEstimators, f.MaxDepth, f.Criterion)
}
