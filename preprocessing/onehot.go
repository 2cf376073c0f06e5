package preprocessing

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/severity/dataset"
	scierrors "github.com/YuminosukeSato/severity/pkg/errors"
)

// OneHotEncoder expands an integer index column into a block of indicator
// columns. Size is the number of categories learned at fit time.
type OneHotEncoder struct {
	InputCol  string
	OutputCol string

	// DropLast omits the indicator of the last category, leaving it as the
	// all-zero row.
	DropLast bool

	Size int
}

// Fit sets Size to the largest observed index plus one.
func (o *OneHotEncoder) Fit(frame *dataset.Frame) error {
	col, err := o.indexColumn(frame)
	if err != nil {
		return err
	}
	maxIdx := int64(-1)
	for _, v := range col.Ints {
		if v < 0 {
			return scierrors.NewValidationError(o.InputCol, "negative category index", v)
		}
		if v > maxIdx {
			maxIdx = v
		}
	}
	o.Size = int(maxIdx) + 1
	return nil
}

// Width returns the number of output columns.
func (o *OneHotEncoder) Width() int {
	if o.DropLast && o.Size > 0 {
		return o.Size - 1
	}
	return o.Size
}

// Encode returns the n × Width() indicator block.
func (o *OneHotEncoder) Encode(frame *dataset.Frame) (*mat.Dense, error) {
	col, err := o.indexColumn(frame)
	if err != nil {
		return nil, err
	}
	n, w := len(col.Ints), o.Width()
	if n == 0 || w == 0 {
		return nil, scierrors.NewSchemaError("OneHotEncoder.Encode", o.InputCol, "empty one-hot block")
	}
	block := mat.NewDense(n, w, nil)
	for i, v := range col.Ints {
		if v < 0 || int(v) >= o.Size {
			return nil, scierrors.NewInvalidArgumentError("OneHotEncoder.Encode", o.InputCol, v)
		}
		if int(v) < w {
			block.Set(i, int(v), 1)
		}
	}
	return block, nil
}

func (o *OneHotEncoder) indexColumn(frame *dataset.Frame) (*dataset.Column, error) {
	col, err := frame.Column(o.InputCol)
	if err != nil {
		return nil, err
	}
	if col.Kind != dataset.KindInt {
		return nil, scierrors.NewSchemaError("OneHotEncoder", o.InputCol, "expected an integer index column")
	}
	return col, nil
}
