package tree

import (
	"encoding/gob"
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/severity/core/model"
	scierrors "github.com/YuminosukeSato/severity/pkg/errors"
)

func init() {
	gob.Register(&DecisionTreeClassifier{})
	gob.Register(&DecisionTreeRegressor{})
}

// DecisionTreeClassifier is a CART classifier.
//
//	dt := tree.NewDecisionTreeClassifier(tree.WithCriterion("entropy"), tree.WithMaxDepth(10))
//	err := dt.Fit(X, y)
type DecisionTreeClassifier struct {
	State *model.StateManager

	Criterion       string // "gini" or "entropy"
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	MinInfoGain     float64
	MaxBins         int
	// MaxFeatures is the number of features drawn per node; 0 means all.
	MaxFeatures int
	Seed        uint64

	ClassLabels        []float64
	Nodes              []Node
	FeatureImportances []float64
}

// Option configures a DecisionTreeClassifier.
type Option func(*DecisionTreeClassifier)

// WithCriterion sets the impurity measure ("gini" or "entropy").
func WithCriterion(c string) Option { return func(t *DecisionTreeClassifier) { t.Criterion = c } }

// WithMaxDepth sets the maximum depth; the root has depth 0.
func WithMaxDepth(d int) Option { return func(t *DecisionTreeClassifier) { t.MaxDepth = d } }

// WithMinSamplesSplit sets the minimum rows required to split a node.
func WithMinSamplesSplit(n int) Option {
	return func(t *DecisionTreeClassifier) { t.MinSamplesSplit = n }
}

// WithMinSamplesLeaf sets the minimum rows in each child.
func WithMinSamplesLeaf(n int) Option {
	return func(t *DecisionTreeClassifier) { t.MinSamplesLeaf = n }
}

// WithMaxBins sets the number of candidate bins per feature.
func WithMaxBins(n int) Option { return func(t *DecisionTreeClassifier) { t.MaxBins = n } }

// WithMaxFeatures sets the per-node feature subset size.
func WithMaxFeatures(n int) Option { return func(t *DecisionTreeClassifier) { t.MaxFeatures = n } }

// WithSeed sets the seed for feature subsampling.
func WithSeed(seed uint64) Option { return func(t *DecisionTreeClassifier) { t.Seed = seed } }

// NewDecisionTreeClassifier returns an unfitted tree with gini impurity and
// depth 5.
func NewDecisionTreeClassifier(opts ...Option) *DecisionTreeClassifier {
	t := &DecisionTreeClassifier{
		State:           model.NewStateManager(),
		Criterion:       "gini",
		MaxDepth:        5,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		MaxBins:         DefaultMaxBins,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *DecisionTreeClassifier) validate() error {
	if t.Criterion != "gini" && t.Criterion != "entropy" {
		return scierrors.NewValidationError("criterion", "must be gini or entropy", t.Criterion)
	}
	if t.MaxDepth < 0 {
		return scierrors.NewValidationError("max_depth", "must be >= 0", t.MaxDepth)
	}
	if t.MinSamplesLeaf < 1 {
		return scierrors.NewValidationError("min_samples_leaf", "must be >= 1", t.MinSamplesLeaf)
	}
	return nil
}

// Fit grows the tree on X and the labels in y.
func (t *DecisionTreeClassifier) Fit(X, y mat.Matrix) error {
	if err := t.validate(); err != nil {
		return err
	}
	nSamples, _, err := model.ValidateXY("DecisionTreeClassifier.Fit", X, y)
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
	rows := make([]int, nSamples)
	for i := range rows {
		rows[i] = i
	}
	return t.FitBinned(NewBinned(X, t.MaxBins), target, classes, rows, nil)
}

// FitBinned grows the tree over the given rows of pre-binned data. target
// holds class indices into classes; weights may be nil.
func (t *DecisionTreeClassifier) FitBinned(data *Binned, target []int, classes []float64, rows []int, weights []float64) error {
	if err := t.validate(); err != nil {
		return err
	}
	if len(rows) == 0 {
		return scierrors.Wrap(scierrors.ErrEmptyData, "DecisionTreeClassifier.Fit")
	}
	crit := &giniCriterion{target: target, nClasses: len(classes), entropy: t.Criterion == "entropy"}
	cfg := growConfig{
		maxDepth:    t.MaxDepth,
		minSplit:    max(t.MinSamplesSplit, 2),
		minLeaf:     t.MinSamplesLeaf,
		minInfoGain: t.MinInfoGain,
		maxFeatures: t.MaxFeatures,
	}
	rng := rand.New(rand.NewPCG(t.Seed, t.Seed^0x9e3779b97f4a7c15))

	t.Nodes, t.FeatureImportances = newBuilder(cfg, data, crit, weights, rng).build(rows)
	t.ClassLabels = append([]float64(nil), classes...)
	t.State.SetFitted(data.NFeatures(), len(rows))
	return nil
}

// PredictProba returns the class distribution of the leaf each row reaches.
func (t *DecisionTreeClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if err := t.State.RequireFitted("DecisionTreeClassifier", "PredictProba"); err != nil {
		return nil, err
	}
	if err := t.State.RequireFeatures("DecisionTreeClassifier.PredictProba", X); err != nil {
		return nil, err
	}
	n, d := X.Dims()
	out := mat.NewDense(n, len(t.ClassLabels), nil)
	row := make([]float64, d)
	for i := 0; i < n; i++ {
		mat.Row(row, i, X)
		out.SetRow(i, leafFor(t.Nodes, row).Value)
	}
	return out, nil
}

// Predict returns the majority class of each row's leaf.
func (t *DecisionTreeClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	proba, err := t.PredictProba(X)
	if err != nil {
		return nil, err
	}
	return model.ArgmaxRows(proba, t.ClassLabels), nil
}

// Score returns the accuracy on (X, y).
func (t *DecisionTreeClassifier) Score(X, y mat.Matrix) (float64, error) {
	pred, err := t.Predict(X)
	if err != nil {
		return 0, err
	}
	n, _ := X.Dims()
	correct := 0
	for i := 0; i < n; i++ {
		if pred.At(i, 0) == y.At(i, 0) {
			correct++
		}
	}
	return float64(correct) / float64(n), nil
}

// Classes returns the sorted labels seen during fitting.
func (t *DecisionTreeClassifier) Classes() []float64 { return t.ClassLabels }

// IsFitted reports whether Fit has completed.
func (t *DecisionTreeClassifier) IsFitted() bool { return t.State.IsFitted() }

// GetFeatureImportances returns the normalised impurity decrease per feature.
func (t *DecisionTreeClassifier) GetFeatureImportances() []float64 { return t.FeatureImportances }

// GetDepth returns the depth of the deepest leaf.
func (t *DecisionTreeClassifier) GetDepth() int {
	if len(t.Nodes) == 0 {
		return 0
	}
	return depthOf(t.Nodes, 0)
}

// GetNLeaves returns the number of leaves.
func (t *DecisionTreeClassifier) GetNLeaves() int { return countLeaves(t.Nodes) }

// GetParams returns the hyperparameters.
func (t *DecisionTreeClassifier) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"criterion":         t.Criterion,
		"max_depth":         t.MaxDepth,
		"min_samples_split": t.MinSamplesSplit,
		"min_samples_leaf":  t.MinSamplesLeaf,
		"min_info_gain":     t.MinInfoGain,
		"max_bins":          t.MaxBins,
		"max_features":      t.MaxFeatures,
		"seed":              t.Seed,
	}
}

// SetParams sets hyperparameters by name.
func (t *DecisionTreeClassifier) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		var err error
		switch key {
		case "criterion":
			t.Criterion, err = model.ParamString(key, value)
		case "max_depth":
			t.MaxDepth, err = model.ParamInt(key, value)
		case "min_samples_split":
			t.MinSamplesSplit, err = model.ParamInt(key, value)
		case "min_samples_leaf":
			t.MinSamplesLeaf, err = model.ParamInt(key, value)
		case "min_info_gain":
			t.MinInfoGain, err = model.ParamFloat(key, value)
		case "max_bins":
			t.MaxBins, err = model.ParamInt(key, value)
		case "max_features":
			t.MaxFeatures, err = model.ParamInt(key, value)
		case "seed":
			var s int
			s, err = model.ParamInt(key, value)
			t.Seed = uint64(s)
		default:
			return model.UnknownParam("DecisionTreeClassifier", key)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Clone returns an unfitted tree with the same hyperparameters.
func (t *DecisionTreeClassifier) Clone() model.Estimator {
	c := *t
	c.State = model.NewStateManager()
	c.ClassLabels, c.Nodes, c.FeatureImportances = nil, nil, nil
	return &c
}

func (t *DecisionTreeClassifier) String() string {
	return fmt.Sprintf("DecisionTreeClassifier(criterion=%s, max_depth=%d)", t.Criterion, t.MaxDepth)
}
