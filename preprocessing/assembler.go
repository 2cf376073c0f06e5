package preprocessing

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/severity/dataset"
	scierrors "github.com/YuminosukeSato/severity/pkg/errors"
)

// VectorAssembler concatenates one-hot blocks and numeric columns, in
// InputCols order, into a dense feature matrix.
type VectorAssembler struct {
	InputCols []string
	OutputCol string
}

// Assemble builds the feature matrix. blocks holds the encoded vector
// columns by name; every other input must be a numeric frame column.
func (a *VectorAssembler) Assemble(frame *dataset.Frame, blocks map[string]*mat.Dense) (*mat.Dense, error) {
	n := frame.Len()
	if n == 0 {
		return nil, scierrors.Wrap(scierrors.ErrEmptyData, "VectorAssembler.Assemble")
	}

	width := 0
	for _, name := range a.InputCols {
		if b, ok := blocks[name]; ok {
			_, c := b.Dims()
			width += c
			continue
		}
		col, err := frame.Column(name)
		if err != nil {
			return nil, err
		}
		if col.Kind != dataset.KindFloat && col.Kind != dataset.KindInt && col.Kind != dataset.KindBool {
			return nil, scierrors.NewSchemaError("VectorAssembler.Assemble", name, "column of kind "+col.Kind.String()+" is not numeric")
		}
		width++
	}

	out := mat.NewDense(n, width, nil)
	offset := 0
	for _, name := range a.InputCols {
		if b, ok := blocks[name]; ok {
			_, c := b.Dims()
			out.Slice(0, n, offset, offset+c).(*mat.Dense).Copy(b)
			offset += c
			continue
		}
		col, _ := frame.Column(name)
		for i := 0; i < n; i++ {
			if col.IsNull(i) {
				return nil, scierrors.NewSchemaError("VectorAssembler.Assemble", name, "null value")
			}
			v, err := col.Float(i)
			if err != nil {
				return nil, err
			}
			out.Set(i, offset, v)
		}
		offset++
	}
	return out, nil
}
