package ensemble

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/severity/core/model"
	scierrors "github.com/YuminosukeSato/severity/pkg/errors"
	"github.com/YuminosukeSato/severity/sklearn/tree"
)

// GBTClassifier is a binary gradient-boosted tree classifier with log loss.
// Labels are mapped to ±1 (first class −1); the margin F gives
// P(second class) = 1/(1+exp(−2F)). The first tree is fitted to the labels
// with weight 1, every later one to the pseudo-residuals with StepSize.
type GBTClassifier struct {
	State *model.StateManager

	MaxIter         int
	MaxDepth        int
	StepSize        float64
	MaxBins         int
	MinSamplesLeaf  int
	SubsamplingRate float64
	Seed            uint64

	ClassLabels []float64
	Trees       []*tree.DecisionTreeRegressor
	TreeWeights []float64
}

// NewGBTClassifier returns an unfitted booster: 20 rounds of depth-5 trees, step 0.1.
func NewGBTClassifier() *GBTClassifier {
	return &GBTClassifier{
		State:           model.NewStateManager(),
		MaxIter:         20,
		MaxDepth:        5,
		StepSize:        0.1,
		MaxBins:         tree.DefaultMaxBins,
		MinSamplesLeaf:  1,
		SubsamplingRate: 1.0,
	}
}

func (g *GBTClassifier) validate() error {
	if g.MaxIter < 1 {
		return scierrors.NewValidationError("max_iter", "must be >= 1", g.MaxIter)
	}
	if g.StepSize <= 0 || g.StepSize > 1 {
		return scierrors.NewValidationError("step_size", "must be in (0, 1]", g.StepSize)
	}
	if g.SubsamplingRate <= 0 || g.SubsamplingRate > 1 {
		return scierrors.NewValidationError("subsampling_rate", "must be in (0, 1]", g.SubsamplingRate)
	}
	return nil
}

// Fit boosts MaxIter regression trees. More than two distinct labels is an
// InvalidArgumentError; wrap the booster in OneVsRest for multiclass data.
func (g *GBTClassifier) Fit(X, y mat.Matrix) error {
	if err := g.validate(); err != nil {
		return err
	}
	nSamples, nFeatures, err := model.ValidateXY("GBTClassifier.Fit", X, y)
	if err != nil {
		return err
	}
	labels := model.Labels(y)
	classes := model.UniqueClasses(labels)
	if len(classes) > 2 {
		return scierrors.NewInvalidArgumentError("GBTClassifier.Fit", "classes", len(classes))
	}

	g.ClassLabels = classes
	g.Trees = nil
	g.TreeWeights = nil
	if len(classes) < 2 {
		g.State.SetFitted(nFeatures, nSamples)
		return nil
	}

	signed := make([]float64, nSamples)
	for i, l := range labels {
		signed[i] = -1
		if l == classes[1] {
			signed[i] = 1
		}
	}

	data := tree.NewBinned(X, g.MaxBins)
	rows := make([]int, nSamples)
	for i := range rows {
		rows[i] = i
	}
	rng := rand.New(rand.NewPCG(g.Seed, g.Seed))
	margin := make([]float64, nSamples)
	target := signed
	rowBuf := make([]float64, nFeatures)

	for m := 0; m < g.MaxIter; m++ {
		t := tree.NewDecisionTreeRegressor(g.MaxDepth)
		t.MaxBins = g.MaxBins
		t.MinSamplesLeaf = g.MinSamplesLeaf
		t.Seed = g.Seed + uint64(m)
		if err := t.FitBinned(data, target, g.subsample(rng, rows), nil); err != nil {
			return scierrors.Wrapf(err, "GBTClassifier.Fit: round %d", m)
		}
		w := g.StepSize
		if m == 0 {
			w = 1
		}
		g.Trees = append(g.Trees, t)
		g.TreeWeights = append(g.TreeWeights, w)

		residual := make([]float64, nSamples)
		for i := 0; i < nSamples; i++ {
			mat.Row(rowBuf, i, X)
			margin[i] += w * t.PredictRow(rowBuf)
			// negative gradient of 2·log(1+exp(−2yF))
			residual[i] = 4 * signed[i] / (1 + math.Exp(2*signed[i]*margin[i]))
		}
		target = residual
	}

	g.State.SetFitted(nFeatures, nSamples)
	return nil
}

func (g *GBTClassifier) subsample(rng *rand.Rand, rows []int) []int {
	if g.SubsamplingRate >= 1 {
		return rows
	}
	out := make([]int, 0, int(float64(len(rows))*g.SubsamplingRate)+1)
	for _, r := range rows {
		if rng.Float64() < g.SubsamplingRate {
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		out = append(out, rows[rng.IntN(len(rows))])
	}
	return out
}

// Margin returns the boosted score F for every row.
func (g *GBTClassifier) Margin(X mat.Matrix) ([]float64, error) {
	if err := g.State.RequireFitted("GBTClassifier", "Predict"); err != nil {
		return nil, err
	}
	if err := g.State.RequireFeatures("GBTClassifier.Predict", X); err != nil {
		return nil, err
	}
	n, d := X.Dims()
	out := make([]float64, n)
	row := make([]float64, d)
	for i := 0; i < n; i++ {
		mat.Row(row, i, X)
		for k, t := range g.Trees {
			out[i] += g.TreeWeights[k] * t.PredictRow(row)
		}
	}
	return out, nil
}

// PredictProba returns [P(first class), P(second class)] per row.
func (g *GBTClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	margin, err := g.Margin(X)
	if err != nil {
		return nil, err
	}
	n := len(margin)
	out := mat.NewDense(n, len(g.ClassLabels), nil)
	for i, f := range margin {
		if len(g.ClassLabels) == 1 {
			out.Set(i, 0, 1)
			continue
		}
		p := scierrors.StableSigmoid(2 * f)
		out.Set(i, 0, 1-p)
		out.Set(i, 1, p)
	}
	return out, nil
}

// Predict returns the more probable class.
func (g *GBTClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	proba, err := g.PredictProba(X)
	if err != nil {
		return nil, err
	}
	return model.ArgmaxRows(proba, g.ClassLabels), nil
}

// Classes returns the sorted labels seen during fitting.
func (g *GBTClassifier) Classes() []float64 { return g.ClassLabels }

// IsFitted reports whether Fit has completed.
func (g *GBTClassifier) IsFitted() bool { return g.State.IsFitted() }

// GetParams returns the hyperparameters.
func (g *GBTClassifier) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"max_iter":         g.MaxIter,
		"max_depth":        g.MaxDepth,
		"step_size":        g.StepSize,
		"max_bins":         g.MaxBins,
		"min_samples_leaf": g.MinSamplesLeaf,
		"subsampling_rate": g.SubsamplingRate,
		"seed":             g.Seed,
	}
}

// SetParams sets hyperparameters by name.
func (g *GBTClassifier) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		var err error
		switch key {
		case "max_iter":
			g.MaxIter, err = model.ParamInt(key, value)
		case "max_depth":
			g.MaxDepth, err = model.ParamInt(key, value)
		case "step_size":
			g.StepSize, err = model.ParamFloat(key, value)
		case "max_bins":
			g.MaxBins, err = model.ParamInt(key, value)
		case "min_samples_leaf":
			g.MinSamplesLeaf, err = model.ParamInt(key, value)
		case "subsampling_rate":
			g.SubsamplingRate, err = model.ParamFloat(key, value)
		case "seed":
			var s int
			s, err = model.ParamInt(key, value)
			g.Seed = uint64(s)
		default:
			return model.UnknownParam("GBTClassifier", key)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Clone returns an unfitted booster with the same hyperparameters.
func (g *GBTClassifier) Clone() model.Estimator {
	c := *g
	c.State = model.NewStateManager()
	c.ClassLabels, c.Trees, c.TreeWeights = nil, nil, nil
	return &c
}

func (g *GBTClassifier) String() string {
	return fmt.Sprintf("GBTClassifier(max_iter=%d, max_depth=%d, step_size=%g)", g.MaxIter, g.MaxDepth, g.StepSize)
}
