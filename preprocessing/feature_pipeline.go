package preprocessing

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/severity/dataset"
	scierrors "github.com/YuminosukeSato/severity/pkg/errors"
)

// StepKind tags the variant held by a Step.
type StepKind int

const (
	StepIndex StepKind = iota
	StepClip
	StepOneHot
	StepAssemble
)

func (k StepKind) String() string {
	switch k {
	case StepIndex:
		return "index"
	case StepClip:
		return "clip"
	case StepOneHot:
		return "onehot"
	case StepAssemble:
		return "assemble"
	default:
		return fmt.Sprintf("StepKind(%d)", int(k))
	}
}

// Step is one named transform of a FeaturePipeline. Exactly the field that
// matches Kind is set.
type Step struct {
	Kind     StepKind
	Index    *StringIndexer
	Clip     CategoryClip
	OneHot   *OneHotEncoder
	Assemble *VectorAssembler
}

// Name returns the output column the step produces.
func (s Step) Name() string {
	switch s.Kind {
	case StepIndex:
		return s.Index.OutputCol
	case StepClip:
		return s.Clip.OutputCol
	case StepOneHot:
		return s.OneHot.OutputCol
	case StepAssemble:
		return s.Assemble.OutputCol
	}
	return ""
}

// FeaturesCol is the name of the assembled vector.
const FeaturesCol = "features"

// FeaturePipeline turns a frame into a dense feature matrix. Fit freezes
// every vocabulary and block width; Transform only applies them.
type FeaturePipeline struct {
	Steps       []Step
	Categorical []string
	Numerical   []string

	fitted bool
	width  int
}

// BuildFeaturePipeline lays out Index, Clip and OneHot steps for every
// categorical column, followed by one Assemble step over the encoded blocks
// and then the numerical columns, in declared order.
func BuildFeaturePipeline(categorical, numerical []string, threshold int) *FeaturePipeline {
	p := &FeaturePipeline{
		Categorical: append([]string(nil), categorical...),
		Numerical:   append([]string(nil), numerical...),
	}

	indexed := make([]string, len(categorical))
	for i, c := range categorical {
		indexed[i] = c + "_indexed"
		p.Steps = append(p.Steps, Step{Kind: StepIndex, Index: &StringIndexer{InputCol: c, OutputCol: indexed[i]}})
	}
	clipped := make([]string, len(categorical))
	for i := range categorical {
		clipped[i] = indexed[i] + "_clipped"
		p.Steps = append(p.Steps, Step{Kind: StepClip, Clip: CategoryClip{
			InputCol:  indexed[i],
			OutputCol: clipped[i],
			Threshold: threshold,
		}})
	}
	encoded := make([]string, len(categorical))
	for i := range categorical {
		encoded[i] = clipped[i] + "_encoded"
		p.Steps = append(p.Steps, Step{Kind: StepOneHot, OneHot: &OneHotEncoder{InputCol: clipped[i], OutputCol: encoded[i]}})
	}
	p.Steps = append(p.Steps, Step{Kind: StepAssemble, Assemble: &VectorAssembler{
		InputCols: append(encoded, numerical...),
		OutputCol: FeaturesCol,
	}})
	return p
}

// Fit learns vocabularies and one-hot widths from frame.
func (p *FeaturePipeline) Fit(frame *dataset.Frame) error {
	_, err := p.FitTransform(frame)
	return err
}

// FitTransform fits the pipeline on frame and returns its features.
func (p *FeaturePipeline) FitTransform(frame *dataset.Frame) (*mat.Dense, error) {
	out, err := p.applySequence(frame, true)
	if err != nil {
		return nil, err
	}
	_, p.width = out.Dims()
	p.fitted = true
	return out, nil
}

// Transform applies the frozen pipeline to frame.
func (p *FeaturePipeline) Transform(frame *dataset.Frame) (*mat.Dense, error) {
	if !p.fitted {
		return nil, scierrors.NewNotFittedError("FeaturePipeline", "Transform")
	}
	out, err := p.applySequence(frame, false)
	if err != nil {
		return nil, err
	}
	if _, c := out.Dims(); c != p.width {
		return nil, scierrors.NewDimensionError("FeaturePipeline.Transform", p.width, c, 1)
	}
	return out, nil
}

// Width returns the frozen feature vector width, or 0 before Fit.
func (p *FeaturePipeline) Width() int { return p.width }

// IsFitted reports whether Fit has completed.
func (p *FeaturePipeline) IsFitted() bool { return p.fitted }

// Cardinalities returns the fitted vocabulary size of every categorical column.
func (p *FeaturePipeline) Cardinalities() map[string]int {
	out := make(map[string]int)
	for _, s := range p.Steps {
		if s.Kind == StepIndex {
			out[s.Index.InputCol] = s.Index.Cardinality()
		}
	}
	return out
}

// FeatureNames names every output column, e.g. "state=CA" for one-hot slots
// and the column name for numeric inputs. Clipped overflow slots are named
// "<col>=<other>".
func (p *FeaturePipeline) FeatureNames() []string {
	labels := make(map[string][]string)
	source := make(map[string]string)
	for _, s := range p.Steps {
		switch s.Kind {
		case StepIndex:
			labels[s.Index.OutputCol] = s.Index.Labels
			source[s.Index.OutputCol] = s.Index.InputCol
		case StepClip:
			labels[s.Clip.OutputCol] = labels[s.Clip.InputCol]
			source[s.Clip.OutputCol] = source[s.Clip.InputCol]
		case StepOneHot:
			labels[s.OneHot.OutputCol] = labels[s.OneHot.InputCol]
			source[s.OneHot.OutputCol] = source[s.OneHot.InputCol]
		}
	}

	var names []string
	for _, s := range p.Steps {
		switch s.Kind {
		case StepOneHot:
			lbl := labels[s.OneHot.OutputCol]
			for i := 0; i < s.OneHot.Width(); i++ {
				name := "<other>"
				if i < len(lbl) && (i < s.OneHot.Size-1 || len(lbl) <= s.OneHot.Size) {
					name = lbl[i]
				}
				names = append(names, source[s.OneHot.OutputCol]+"="+name)
			}
		case StepAssemble:
			for _, c := range s.Assemble.InputCols {
				if _, encoded := labels[c]; !encoded {
					names = append(names, c)
				}
			}
		}
	}
	return names
}

// applySequence runs every step in order. Index and OneHot steps learn their
// state when fit is true; Clip and Assemble are stateless.
func (p *FeaturePipeline) applySequence(frame *dataset.Frame, fit bool) (*mat.Dense, error) {
	cur := frame
	blocks := make(map[string]*mat.Dense)
	var out *mat.Dense

	for _, step := range p.Steps {
		var err error
		switch step.Kind {
		case StepIndex:
			if fit {
				if err = step.Index.Fit(cur); err != nil {
					break
				}
			}
			cur, err = step.Index.Transform(cur)
		case StepClip:
			cur, err = step.Clip.Transform(cur)
		case StepOneHot:
			if fit {
				if err = step.OneHot.Fit(cur); err != nil {
					break
				}
			}
			var block *mat.Dense
			if block, err = step.OneHot.Encode(cur); err == nil {
				blocks[step.OneHot.OutputCol] = block
			}
		case StepAssemble:
			out, err = step.Assemble.Assemble(cur, blocks)
		default:
			err = scierrors.NewInvalidArgumentError("FeaturePipeline", "step", step.Kind)
		}
		if err != nil {
			return nil, scierrors.Wrapf(err, "feature step %s (%s)", step.Kind, step.Name())
		}
	}
	if out == nil {
		return nil, scierrors.NewValueError("FeaturePipeline", "pipeline has no assemble step")
	}
	return out, nil
}
