// Package linear_model provides linear classifiers.
package linear_model

import (
	"encoding/gob"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"

	"github.com/YuminosukeSato/severity/core/model"
	"github.com/YuminosukeSato/severity/core/parallel"
	scierrors "github.com/YuminosukeSato/severity/pkg/errors"
	"github.com/YuminosukeSato/severity/pkg/log"
	"github.com/YuminosukeSato/severity/preprocessing"
)

func init() {
	gob.Register(&LogisticRegression{})
}

// LogisticRegression is a multinomial (softmax) logistic regression trained
// with L-BFGS on standardised features. Coefficients are reported on the
// original feature scale.
type LogisticRegression struct {
	State *model.StateManager

	// RegParam is the L2 penalty λ applied to coefficients, not intercepts.
	RegParam float64
	// AggregationDepth controls how the gradient is reduced: the rows are
	// summed in 2^AggregationDepth partitions in parallel.
	AggregationDepth int
	MaxIter          int
	Tol              float64
	FitIntercept     bool
	Standardization  bool

	ClassLabels []float64
	Coef        *mat.Dense // classes × features
	Intercept   []float64
	NIter       int
}

// LogisticRegressionOption is a functional option for LogisticRegression
type LogisticRegressionOption func(*LogisticRegression)

// NewLogisticRegression creates a new LogisticRegression classifier
func NewLogisticRegression(opts ...LogisticRegressionOption) *LogisticRegression {
	lr := &LogisticRegression{
		State:            model.NewStateManager(),
		RegParam:         0,
		AggregationDepth: 2,
		MaxIter:          100,
		Tol:              1e-6,
		FitIntercept:     true,
		Standardization:  true,
	}
	for _, opt := range opts {
		opt(lr)
	}
	return lr
}

// WithLRRegParam sets the L2 regularization strength
func WithLRRegParam(reg float64) LogisticRegressionOption {
	return func(lr *LogisticRegression) { lr.RegParam = reg }
}

// WithLRAggregationDepth sets the gradient aggregation depth
func WithLRAggregationDepth(depth int) LogisticRegressionOption {
	return func(lr *LogisticRegression) { lr.AggregationDepth = depth }
}

// WithLRMaxIter sets the maximum number of iterations
func WithLRMaxIter(maxIter int) LogisticRegressionOption {
	return func(lr *LogisticRegression) { lr.MaxIter = maxIter }
}

// WithLRTol sets the gradient norm tolerance for stopping
func WithLRTol(tol float64) LogisticRegressionOption {
	return func(lr *LogisticRegression) { lr.Tol = tol }
}

// WithLogisticFitIntercept sets whether to fit intercept
func WithLogisticFitIntercept(fit bool) LogisticRegressionOption {
	return func(lr *LogisticRegression) { lr.FitIntercept = fit }
}

func (lr *LogisticRegression) validate() error {
	if lr.RegParam < 0 {
		return scierrors.NewValidationError("reg_param", "must be >= 0", lr.RegParam)
	}
	if lr.AggregationDepth < 1 {
		return scierrors.NewValidationError("aggregation_depth", "must be >= 1", lr.AggregationDepth)
	}
	if lr.MaxIter < 1 {
		return scierrors.NewValidationError("max_iter", "must be >= 1", lr.MaxIter)
	}
	return nil
}

// Fit trains the logistic regression model
func (lr *LogisticRegression) Fit(X, y mat.Matrix) error {
	if err := lr.validate(); err != nil {
		return err
	}
	nSamples, nFeatures, err := model.ValidateXY("LogisticRegression.Fit", X, y)
	if err != nil {
		return err
	}

	labels := model.Labels(y)
	lr.ClassLabels = model.UniqueClasses(labels)
	nClasses := len(lr.ClassLabels)
	classIdx := model.ClassIndex(lr.ClassLabels)
	target := make([]int, nSamples)
	for i, l := range labels {
		target[i] = classIdx[l]
	}

	scaler := preprocessing.NewStandardScaler(lr.FitIntercept, lr.Standardization)
	Xs, err := scaler.FitTransform(X)
	if err != nil {
		return scierrors.Wrap(err, "LogisticRegression.Fit: standardize")
	}

	lr.Coef = mat.NewDense(nClasses, nFeatures, nil)
	lr.Intercept = make([]float64, nClasses)
	lr.NIter = 0

	if nClasses > 1 {
		obj := &softmaxObjective{
			X:         mat.DenseCopyOf(Xs),
			target:    target,
			nClasses:  nClasses,
			reg:       lr.RegParam,
			intercept: lr.FitIntercept,
			parts:     1 << lr.AggregationDepth,
		}
		w, iters, err := lr.minimize(obj)
		if err != nil {
			return err
		}
		lr.NIter = iters
		lr.unscale(w, scaler, nFeatures)
	}

	lr.State.SetFitted(nFeatures, nSamples)
	return nil
}

func (lr *LogisticRegression) minimize(obj *softmaxObjective) ([]float64, int, error) {
	_, nFeatures := obj.X.Dims()
	init := make([]float64, obj.nClasses*(nFeatures+1))

	problem := optimize.Problem{
		Func: obj.Func,
		Grad: obj.Grad,
	}
	settings := &optimize.Settings{
		MajorIterations:   lr.MaxIter,
		GradientThreshold: lr.Tol,
	}
	result, err := optimize.Minimize(problem, init, settings, &optimize.LBFGS{})
	if result == nil {
		return nil, 0, scierrors.NewModelError("LogisticRegression.Fit", "optimize", err)
	}
	if stab := scierrors.CheckScalar("LogisticRegression.Fit loss", result.F, result.Stats.MajorIterations); stab != nil {
		return nil, 0, stab
	}
	if stab := scierrors.CheckNumericalStability("LogisticRegression.Fit", result.X, result.Stats.MajorIterations); stab != nil {
		return nil, 0, stab
	}
	if err != nil || result.Status == optimize.IterationLimit {
		msg := fmt.Sprintf("stopped with status %v", result.Status)
		if err != nil {
			msg = err.Error()
		}
		scierrors.Warn(scierrors.NewConvergenceWarning("lbfgs", result.Stats.MajorIterations, msg))
	}
	log.GetLoggerWithName("LogisticRegression").Debug("Optimization finished",
		log.OperationKey, log.OperationFit,
		log.IterationKey, result.Stats.MajorIterations,
		log.LossKey, result.F,
		log.RegularizationKey, obj.reg,
	)
	return result.X, result.Stats.MajorIterations, nil
}

// unscale maps coefficients learned on standardised inputs back to the
// original feature scale.
func (lr *LogisticRegression) unscale(w []float64, scaler *preprocessing.StandardScaler, nFeatures int) {
	stride := nFeatures + 1
	for k := range lr.ClassLabels {
		b := w[k*stride+nFeatures]
		for j := 0; j < nFeatures; j++ {
			c := w[k*stride+j] / scaler.Scale[j]
			lr.Coef.Set(k, j, c)
			b -= c * scaler.Mean[j]
		}
		lr.Intercept[k] = b
	}
}

// softmaxObjective is the mean multinomial log loss plus ½λ‖W‖².
// Parameters are laid out per class as [w_1 … w_d, b].
type softmaxObjective struct {
	X         *mat.Dense
	target    []int
	nClasses  int
	reg       float64
	intercept bool
	parts     int

	lastX    []float64
	lastLoss float64
	lastGrad []float64
}

func (o *softmaxObjective) Func(w []float64) float64 {
	o.evaluate(w)
	return o.lastLoss
}

func (o *softmaxObjective) Grad(grad, w []float64) {
	o.evaluate(w)
	copy(grad, o.lastGrad)
}

func (o *softmaxObjective) evaluate(w []float64) {
	if o.lastX != nil && floats.Equal(o.lastX, w) {
		return
	}
	n, d := o.X.Dims()
	stride := d + 1

	type partial struct {
		loss float64
		grad []float64
	}
	chunk := (n + o.parts - 1) / o.parts
	partials := make([]partial, o.parts)

	parallel.ParallelizeN(n, o.parts, func(start, end int) {
		p := partial{grad: make([]float64, len(w))}
		scores := make([]float64, o.nClasses)
		for i := start; i < end; i++ {
			row := o.X.RawRowView(i)
			for k := 0; k < o.nClasses; k++ {
				s := floats.Dot(row, w[k*stride:k*stride+d])
				if o.intercept {
					s += w[k*stride+d]
				}
				scores[k] = s
			}
			lse := scierrors.LogSumExp(scores)
			p.loss += lse - scores[o.target[i]]
			for k := 0; k < o.nClasses; k++ {
				coeff := math.Exp(scores[k] - lse)
				if k == o.target[i] {
					coeff--
				}
				floats.AddScaled(p.grad[k*stride:k*stride+d], coeff, row)
				if o.intercept {
					p.grad[k*stride+d] += coeff
				}
			}
		}
		partials[start/chunk] = p
	})

	loss := 0.0
	grad := make([]float64, len(w))
	for _, p := range partials {
		if p.grad == nil {
			continue
		}
		loss += p.loss
		floats.Add(grad, p.grad)
	}
	inv := 1 / float64(n)
	loss *= inv
	floats.Scale(inv, grad)

	if o.reg > 0 {
		for k := 0; k < o.nClasses; k++ {
			wk := w[k*stride : k*stride+d]
			loss += 0.5 * o.reg * floats.Dot(wk, wk)
			floats.AddScaled(grad[k*stride:k*stride+d], o.reg, wk)
		}
	}

	o.lastX = append(o.lastX[:0], w...)
	o.lastLoss = loss
	o.lastGrad = grad
}

func (lr *LogisticRegression) decision(X mat.Matrix) (*mat.Dense, error) {
	if err := lr.State.RequireFitted("LogisticRegression", "Predict"); err != nil {
		return nil, err
	}
	if err := lr.State.RequireFeatures("LogisticRegression.Predict", X); err != nil {
		return nil, err
	}
	n, _ := X.Dims()
	scores := mat.NewDense(n, len(lr.ClassLabels), nil)
	scores.Mul(X, lr.Coef.T())
	scores.Apply(func(_, k int, v float64) float64 { return v + lr.Intercept[k] }, scores)
	return scores, nil
}

// PredictProba returns softmax class probabilities, one column per class
// in Classes() order.
func (lr *LogisticRegression) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	scores, err := lr.decision(X)
	if err != nil {
		return nil, err
	}
	n, k := scores.Dims()
	for i := 0; i < n; i++ {
		row := scores.RawRowView(i)
		lse := scierrors.LogSumExp(row)
		for j := 0; j < k; j++ {
			row[j] = math.Exp(row[j] - lse)
		}
	}
	return scores, nil
}

// Predict returns the most probable class for each row
func (lr *LogisticRegression) Predict(X mat.Matrix) (mat.Matrix, error) {
	scores, err := lr.decision(X)
	if err != nil {
		return nil, err
	}
	return model.ArgmaxRows(scores, lr.ClassLabels), nil
}

// Score returns the mean accuracy on the given test data and labels
func (lr *LogisticRegression) Score(X, y mat.Matrix) (float64, error) {
	pred, err := lr.Predict(X)
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

// Classes returns the sorted labels seen during fitting
func (lr *LogisticRegression) Classes() []float64 { return lr.ClassLabels }

// IsFitted reports whether Fit has completed
func (lr *LogisticRegression) IsFitted() bool { return lr.State.IsFitted() }

// GetParams returns the model hyperparameters
func (lr *LogisticRegression) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"reg_param":         lr.RegParam,
		"aggregation_depth": lr.AggregationDepth,
		"max_iter":          lr.MaxIter,
		"tol":               lr.Tol,
		"fit_intercept":     lr.FitIntercept,
		"standardization":   lr.Standardization,
	}
}

// SetParams sets the model hyperparameters
func (lr *LogisticRegression) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		var err error
		switch key {
		case "reg_param":
			lr.RegParam, err = model.ParamFloat(key, value)
		case "aggregation_depth":
			lr.AggregationDepth, err = model.ParamInt(key, value)
		case "max_iter":
			lr.MaxIter, err = model.ParamInt(key, value)
		case "tol":
			lr.Tol, err = model.ParamFloat(key, value)
		case "fit_intercept":
			lr.FitIntercept, err = model.ParamBool(key, value)
		case "standardization":
			lr.Standardization, err = model.ParamBool(key, value)
		default:
			return model.UnknownParam("LogisticRegression", key)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Clone returns an unfitted copy with the same hyperparameters
func (lr *LogisticRegression) Clone() model.Estimator {
	return &LogisticRegression{
		State:            model.NewStateManager(),
		RegParam:         lr.RegParam,
		AggregationDepth: lr.AggregationDepth,
		MaxIter:          lr.MaxIter,
		Tol:              lr.Tol,
		FitIntercept:     lr.FitIntercept,
		Standardization:  lr.Standardization,
	}
}

func (lr *LogisticRegression) String() string {
	return fmt.Sprintf("LogisticRegression(reg_param=%g, aggregation_depth=%d, max_iter=%d)",
		lr.RegParam, lr.AggregationDepth, lr.MaxIter)
}
