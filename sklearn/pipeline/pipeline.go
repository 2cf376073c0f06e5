// Package pipeline chains transformers and a final classifier into one
// estimator that can be cloned, tuned by "step__param" keys and persisted.
package pipeline

import (
	"encoding/gob"
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/severity/core/model"
	scierrors "github.com/YuminosukeSato/severity/pkg/errors"
)

func init() {
	gob.Register(&Pipeline{})
}

// Step is one named stage. Every stage but the last must be a
// model.Transformer; the last must be a model.Classifier.
//
// RawInput on the final stage makes it consume the pipeline's input
// instead of the output of the preceding transformers. The transformers
// are still fitted.
type Step struct {
	Name      string
	Estimator model.Estimator
	RawInput  bool
}

// Pipeline は変換器と分類器を順に適用する
type Pipeline struct {
	State *model.StateManager
	Steps []Step
}

// New validates the step layout and returns an unfitted pipeline.
func New(steps ...Step) (*Pipeline, error) {
	if len(steps) == 0 {
		return nil, scierrors.NewValueError("pipeline.New", "no steps")
	}
	seen := make(map[string]struct{}, len(steps))
	for i, s := range steps {
		if s.Name == "" || strings.Contains(s.Name, "__") {
			return nil, scierrors.NewInvalidArgumentError("pipeline.New", "name", s.Name)
		}
		if _, dup := seen[s.Name]; dup {
			return nil, scierrors.NewInvalidArgumentError("pipeline.New", "name", s.Name)
		}
		seen[s.Name] = struct{}{}

		last := i == len(steps)-1
		if _, ok := s.Estimator.(model.Transformer); !last && !ok {
			return nil, scierrors.NewValueError("pipeline.New", fmt.Sprintf("step %q is not a transformer", s.Name))
		}
		if _, ok := s.Estimator.(model.Classifier); last && !ok {
			return nil, scierrors.NewValueError("pipeline.New", fmt.Sprintf("step %q is not a classifier", s.Name))
		}
		if s.RawInput && !last {
			return nil, scierrors.NewInvalidArgumentError("pipeline.New", "raw_input", s.Name)
		}
	}
	return &Pipeline{State: model.NewStateManager(), Steps: steps}, nil
}

// MustNew is New that panics on an invalid layout, for static definitions.
func MustNew(steps ...Step) *Pipeline {
	p, err := New(steps...)
	if err != nil {
		panic(err)
	}
	return p
}

func (p *Pipeline) final() model.Classifier {
	return p.Steps[len(p.Steps)-1].Estimator.(model.Classifier)
}

// Fit fits every transformer in order on the running output, then the
// classifier.
func (p *Pipeline) Fit(X, y mat.Matrix) error {
	nSamples, nFeatures, err := model.ValidateXY("Pipeline.Fit", X, y)
	if err != nil {
		return err
	}
	cur := X
	for _, s := range p.Steps[:len(p.Steps)-1] {
		cur, err = s.Estimator.(model.Transformer).FitTransform(cur)
		if err != nil {
			return scierrors.Wrapf(err, "pipeline step %s", s.Name)
		}
	}
	last := p.Steps[len(p.Steps)-1]
	input := cur
	if last.RawInput {
		input = X
	}
	if err := p.final().Fit(input, y); err != nil {
		return scierrors.Wrapf(err, "pipeline step %s", last.Name)
	}
	p.State.SetFitted(nFeatures, nSamples)
	return nil
}

func (p *Pipeline) transform(X mat.Matrix) (mat.Matrix, error) {
	if err := p.State.RequireFitted("Pipeline", "Predict"); err != nil {
		return nil, err
	}
	if err := p.State.RequireFeatures("Pipeline.Predict", X); err != nil {
		return nil, err
	}
	if p.Steps[len(p.Steps)-1].RawInput {
		return X, nil
	}
	cur := X
	var err error
	for _, s := range p.Steps[:len(p.Steps)-1] {
		cur, err = s.Estimator.(model.Transformer).Transform(cur)
		if err != nil {
			return nil, scierrors.Wrapf(err, "pipeline step %s", s.Name)
		}
	}
	return cur, nil
}

// Predict runs the transformers and returns the classifier's labels.
func (p *Pipeline) Predict(X mat.Matrix) (mat.Matrix, error) {
	Xt, err := p.transform(X)
	if err != nil {
		return nil, err
	}
	return p.final().Predict(Xt)
}

// PredictProba runs the transformers and returns class probabilities.
func (p *Pipeline) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	Xt, err := p.transform(X)
	if err != nil {
		return nil, err
	}
	return p.final().PredictProba(Xt)
}

// Classes returns the final classifier's classes.
func (p *Pipeline) Classes() []float64 { return p.final().Classes() }

// IsFitted reports whether Fit has completed.
func (p *Pipeline) IsFitted() bool { return p.State.IsFitted() }

// Step returns the named stage's estimator.
func (p *Pipeline) Step(name string) (model.Estimator, bool) {
	for _, s := range p.Steps {
		if s.Name == name {
			return s.Estimator, true
		}
	}
	return nil, false
}

// GetParams returns every step's hyperparameters keyed "step__param".
func (p *Pipeline) GetParams() map[string]interface{} {
	out := make(map[string]interface{})
	for _, s := range p.Steps {
		for k, v := range s.Estimator.GetParams() {
			out[s.Name+"__"+k] = v
		}
	}
	return out
}

// SetParams routes "step__param" keys to the named step.
func (p *Pipeline) SetParams(params map[string]interface{}) error {
	byStep := make(map[string]map[string]interface{})
	for key, value := range params {
		name, param, ok := strings.Cut(key, "__")
		if !ok {
			return scierrors.NewInvalidArgumentError("Pipeline.SetParams", key, value)
		}
		if _, found := p.Step(name); !found {
			return scierrors.NewInvalidArgumentError("Pipeline.SetParams", key, value)
		}
		if byStep[name] == nil {
			byStep[name] = make(map[string]interface{})
		}
		byStep[name][param] = value
	}
	for _, s := range p.Steps {
		if ps, ok := byStep[s.Name]; ok {
			if err := s.Estimator.SetParams(ps); err != nil {
				return scierrors.Wrapf(err, "pipeline step %s", s.Name)
			}
		}
	}
	return nil
}

// Clone returns an unfitted pipeline of cloned steps.
func (p *Pipeline) Clone() model.Estimator {
	steps := make([]Step, len(p.Steps))
	for i, s := range p.Steps {
		steps[i] = Step{Name: s.Name, Estimator: s.Estimator.Clone(), RawInput: s.RawInput}
	}
	return &Pipeline{State: model.NewStateManager(), Steps: steps}
}

func (p *Pipeline) String() string {
	names := make([]string, len(p.Steps))
	for i, s := range p.Steps {
		names[i] = s.Name
		if s.RawInput {
			names[i] += "(raw)"
		}
	}
	return "Pipeline(" + strings.Join(names, " -> ") + ")"
}
