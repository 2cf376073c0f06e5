// Package multiclass adapts binary classifiers to multiclass problems.
package multiclass

import (
	"encoding/gob"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/severity/core/model"
	scierrors "github.com/YuminosukeSato/severity/pkg/errors"
)

func init() {
	gob.Register(&OneVsRest{})
}

// OneVsRest trains one binary copy of Base per class (class vs. the rest)
// and predicts the class whose model is most confident.
//
// GetParams and SetParams pass straight through to Base, so a grid entry
// such as "ovr__max_depth" reaches the wrapped classifier.
type OneVsRest struct {
	State *model.StateManager

	Base model.Classifier

	ClassLabels []float64
	Models      []model.Classifier
}

// NewOneVsRest wraps base.
func NewOneVsRest(base model.Classifier) *OneVsRest {
	return &OneVsRest{State: model.NewStateManager(), Base: base}
}

// Fit trains one clone of Base per class on labels {1: class, 0: rest}.
func (o *OneVsRest) Fit(X, y mat.Matrix) error {
	if o.Base == nil {
		return scierrors.NewValueError("OneVsRest.Fit", "no base classifier")
	}
	nSamples, nFeatures, err := model.ValidateXY("OneVsRest.Fit", X, y)
	if err != nil {
		return err
	}
	labels := model.Labels(y)
	classes := model.UniqueClasses(labels)

	models := make([]model.Classifier, len(classes))
	binary := mat.NewDense(nSamples, 1, nil)
	for k, c := range classes {
		for i, l := range labels {
			v := 0.0
			if l == c {
				v = 1
			}
			binary.Set(i, 0, v)
		}
		m, ok := o.Base.Clone().(model.Classifier)
		if !ok {
			return scierrors.NewValueError("OneVsRest.Fit", fmt.Sprintf("%T is not a classifier", o.Base))
		}
		if err := m.Fit(X, binary); err != nil {
			return scierrors.Wrapf(err, "OneVsRest.Fit: class %v", c)
		}
		models[k] = m
	}

	o.ClassLabels = classes
	o.Models = models
	o.State.SetFitted(nFeatures, nSamples)
	return nil
}

// confidence returns P(positive) from each binary model, one column per class.
func (o *OneVsRest) confidence(X mat.Matrix) (*mat.Dense, error) {
	if err := o.State.RequireFitted("OneVsRest", "Predict"); err != nil {
		return nil, err
	}
	if err := o.State.RequireFeatures("OneVsRest.Predict", X); err != nil {
		return nil, err
	}
	n, _ := X.Dims()
	out := mat.NewDense(n, len(o.Models), nil)
	for k, m := range o.Models {
		proba, err := m.PredictProba(X)
		if err != nil {
			return nil, err
		}
		pos := -1
		for j, c := range m.Classes() {
			if c == 1 {
				pos = j
			}
		}
		if pos < 0 {
			// each binary target contains its own class, so label 1 is always seen
			return nil, scierrors.NewModelError("OneVsRest.Predict", "confidence",
				fmt.Errorf("model %d has no positive class", k))
		}
		for i := 0; i < n; i++ {
			out.Set(i, k, proba.At(i, pos))
		}
	}
	return out, nil
}

// PredictProba normalises the per-class confidences to sum to one.
func (o *OneVsRest) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	conf, err := o.confidence(X)
	if err != nil {
		return nil, err
	}
	n, k := conf.Dims()
	for i := 0; i < n; i++ {
		row := conf.RawRowView(i)
		sum := 0.0
		for _, v := range row {
			sum += v
		}
		for j := range row {
			if sum > 0 {
				row[j] /= sum
			} else {
				row[j] = 1 / float64(k)
			}
		}
	}
	return conf, nil
}

// Predict returns the class with the highest confidence.
func (o *OneVsRest) Predict(X mat.Matrix) (mat.Matrix, error) {
	conf, err := o.confidence(X)
	if err != nil {
		return nil, err
	}
	return model.ArgmaxRows(conf, o.ClassLabels), nil
}

// Classes returns the sorted labels seen during fitting.
func (o *OneVsRest) Classes() []float64 { return o.ClassLabels }

// IsFitted reports whether Fit has completed.
func (o *OneVsRest) IsFitted() bool { return o.State.IsFitted() }

// GetParams returns the base classifier's hyperparameters.
func (o *OneVsRest) GetParams() map[string]interface{} {
	if o.Base == nil {
		return map[string]interface{}{}
	}
	return o.Base.GetParams()
}

// SetParams forwards every key to the base classifier.
func (o *OneVsRest) SetParams(params map[string]interface{}) error {
	if o.Base == nil {
		return scierrors.NewValueError("OneVsRest.SetParams", "no base classifier")
	}
	return o.Base.SetParams(params)
}

// Clone returns an unfitted OneVsRest around a clone of Base.
func (o *OneVsRest) Clone() model.Estimator {
	var base model.Classifier
	if o.Base != nil {
		base, _ = o.Base.Clone().(model.Classifier)
	}
	return NewOneVsRest(base)
}

func (o *OneVsRest) String() string {
	return fmt.Sprintf("OneVsRest(%v)", o.Base)
}
