package tree

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/severity/core/model"
	scierrors "github.com/YuminosukeSato/severity/pkg/errors"
)

// DecisionTreeRegressor is a variance-reduction regression tree. Gradient
// boosting fits one per round against the pseudo-residuals.
type DecisionTreeRegressor struct {
	State *model.StateManager

	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	MinInfoGain     float64
	MaxBins         int
	MaxFeatures     int
	Seed            uint64

	Nodes              []Node
	FeatureImportances []float64
}

// NewDecisionTreeRegressor returns an unfitted regression tree of the given depth.
func NewDecisionTreeRegressor(maxDepth int) *DecisionTreeRegressor {
	return &DecisionTreeRegressor{
		State:           model.NewStateManager(),
		MaxDepth:        maxDepth,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		MaxBins:         DefaultMaxBins,
	}
}

// Fit grows the tree on X and the targets in y.
func (t *DecisionTreeRegressor) Fit(X, y mat.Matrix) error {
	nSamples, _, err := model.ValidateXY("DecisionTreeRegressor.Fit", X, y)
	if err != nil {
		return err
	}
	rows := make([]int, nSamples)
	for i := range rows {
		rows[i] = i
	}
	return t.FitBinned(NewBinned(X, t.MaxBins), model.Labels(y), rows, nil)
}

// FitBinned grows the tree over rows of pre-binned data.
func (t *DecisionTreeRegressor) FitBinned(data *Binned, target []float64, rows []int, weights []float64) error {
	if t.MaxDepth < 0 {
		return scierrors.NewValidationError("max_depth", "must be >= 0", t.MaxDepth)
	}
	if len(rows) == 0 {
		return scierrors.Wrap(scierrors.ErrEmptyData, "DecisionTreeRegressor.Fit")
	}
	cfg := growConfig{
		maxDepth:    t.MaxDepth,
		minSplit:    max(t.MinSamplesSplit, 2),
		minLeaf:     max(t.MinSamplesLeaf, 1),
		minInfoGain: t.MinInfoGain,
		maxFeatures: t.MaxFeatures,
	}
	rng := rand.New(rand.NewPCG(t.Seed, t.Seed^0x9e3779b97f4a7c15))
	t.Nodes, t.FeatureImportances = newBuilder(cfg, data, &varianceCriterion{target: target}, weights, rng).build(rows)
	t.State.SetFitted(data.NFeatures(), len(rows))
	return nil
}

// PredictRow returns the leaf mean for one row.
func (t *DecisionTreeRegressor) PredictRow(row []float64) float64 {
	return leafFor(t.Nodes, row).Value[0]
}

// Predict returns the leaf mean for every row.
func (t *DecisionTreeRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := t.State.RequireFitted("DecisionTreeRegressor", "Predict"); err != nil {
		return nil, err
	}
	if err := t.State.RequireFeatures("DecisionTreeRegressor.Predict", X); err != nil {
		return nil, err
	}
	n, d := X.Dims()
	out := mat.NewVecDense(n, nil)
	row := make([]float64, d)
	for i := 0; i < n; i++ {
		mat.Row(row, i, X)
		out.SetVec(i, t.PredictRow(row))
	}
	return out, nil
}

// IsFitted reports whether Fit has completed.
func (t *DecisionTreeRegressor) IsFitted() bool { return t.State.IsFitted() }

// GetDepth returns the depth of the deepest leaf.
func (t *DecisionTreeRegressor) GetDepth() int {
	if len(t.Nodes) == 0 {
		return 0
	}
	return depthOf(t.Nodes, 0)
}

func (t *DecisionTreeRegressor) String() string {
	return fmt.Sprintf("DecisionTreeRegressor(max_depth=%d)", t.MaxDepth)
}
