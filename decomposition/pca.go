// Package decomposition provides dimensionality reduction transformers.
package decomposition

import (
	"encoding/gob"
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/severity/core/model"
	scierrors "github.com/YuminosukeSato/severity/pkg/errors"
)

func init() {
	gob.Register(&PCA{})
}

// PCA projects centred rows onto the top K principal directions.
//
// K larger than the number of input features (or the rank bound
// min(samples, features)) is clamped at fit time; KEffective records the
// width actually produced.
type PCA struct {
	State *model.StateManager

	K int

	Mean              []float64
	Components        *mat.Dense // features × KEffective
	ExplainedVariance []float64
	KEffective        int
}

// NewPCA returns an unfitted PCA keeping k components.
func NewPCA(k int) *PCA {
	return &PCA{State: model.NewStateManager(), K: k}
}

// Fit computes the principal directions of X with gonum's stat.PC.
func (p *PCA) Fit(X mat.Matrix) error {
	if p.K < 1 {
		return scierrors.NewValidationError("k", "must be >= 1", p.K)
	}
	r, c := X.Dims()
	if r < 2 || c == 0 {
		return scierrors.Wrapf(scierrors.ErrEmptyData, "PCA.Fit: need at least 2 rows, got %d", r)
	}

	var pc stat.PC
	if ok := pc.PrincipalComponents(X, nil); !ok {
		return scierrors.NewModelError("PCA.Fit", "svd", scierrors.ErrSingularMatrix)
	}
	var vecs mat.Dense
	pc.VectorsTo(&vecs)
	vars := pc.VarsTo(nil)

	_, available := vecs.Dims()
	k := min(p.K, c, available)

	p.Components = mat.DenseCopyOf(vecs.Slice(0, c, 0, k))
	p.ExplainedVariance = append([]float64(nil), vars[:k]...)
	p.KEffective = k

	p.Mean = make([]float64, c)
	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, X)
		p.Mean[j] = stat.Mean(col, nil)
	}

	p.State.SetFitted(c, r)
	return nil
}

// Transform returns (X − Mean) · Components.
func (p *PCA) Transform(X mat.Matrix) (mat.Matrix, error) {
	if err := p.State.RequireFitted("PCA", "Transform"); err != nil {
		return nil, err
	}
	if err := p.State.RequireFeatures("PCA.Transform", X); err != nil {
		return nil, err
	}
	r, c := X.Dims()
	centred := mat.NewDense(r, c, nil)
	centred.Apply(func(_, j int, v float64) float64 { return v - p.Mean[j] }, X)

	out := mat.NewDense(r, p.KEffective, nil)
	out.Mul(centred, p.Components)
	return out, nil
}

// FitTransform fits on X and projects it.
func (p *PCA) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := p.Fit(X); err != nil {
		return nil, err
	}
	return p.Transform(X)
}

// ExplainedVarianceRatio returns each kept component's share of the kept variance.
func (p *PCA) ExplainedVarianceRatio() []float64 {
	total := 0.0
	for _, v := range p.ExplainedVariance {
		total += v
	}
	out := make([]float64, len(p.ExplainedVariance))
	for i, v := range p.ExplainedVariance {
		out[i] = scierrors.SafeDivide(v, total)
	}
	return out
}

// IsFitted reports whether Fit has completed.
func (p *PCA) IsFitted() bool { return p.State.IsFitted() }

// GetParams returns {"k": K}.
func (p *PCA) GetParams() map[string]interface{} {
	return map[string]interface{}{"k": p.K}
}

// SetParams accepts "k".
func (p *PCA) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		switch key {
		case "k":
			k, err := model.ParamInt(key, value)
			if err != nil {
				return err
			}
			p.K = k
		default:
			return model.UnknownParam("PCA", key)
		}
	}
	return nil
}

// Clone returns an unfitted PCA with the same K.
func (p *PCA) Clone() model.Estimator { return NewPCA(p.K) }

func (p *PCA) String() string {
	if !p.IsFitted() {
		return fmt.Sprintf("PCA(k=%d)", p.K)
	}
	return fmt.Sprintf("PCA(k=%d, fitted=%d)", p.K, p.KEffective)
}
