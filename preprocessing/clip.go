package preprocessing

import (
	"github.com/YuminosukeSato/severity/dataset"
	scierrors "github.com/YuminosukeSato/severity/pkg/errors"
)

// DefaultClipThreshold caps category indices so every index at or above it
// shares one bucket.
const DefaultClipThreshold = 20

// CategoryClip caps an integer category-index column at Threshold.
// It is a plain value: copy it freely, it holds no fitted state.
type CategoryClip struct {
	InputCol  string
	OutputCol string
	Threshold int
}

// Validate rejects negative thresholds.
func (c CategoryClip) Validate() error {
	if c.Threshold < 0 {
		return scierrors.NewValidationError("threshold", "must be >= 0", c.Threshold)
	}
	return nil
}

// Apply returns min(v, Threshold).
func (c CategoryClip) Apply(v int64) int64 {
	if v >= int64(c.Threshold) {
		return int64(c.Threshold)
	}
	return v
}

// Transform adds OutputCol with every InputCol value clipped.
func (c CategoryClip) Transform(frame *dataset.Frame) (*dataset.Frame, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	col, err := frame.Column(c.InputCol)
	if err != nil {
		return nil, err
	}
	if col.Kind != dataset.KindInt {
		return nil, scierrors.NewSchemaError("CategoryClip.Transform", c.InputCol, "expected an integer index column")
	}

	out := make([]int64, len(col.Ints))
	for i, v := range col.Ints {
		out[i] = c.Apply(v)
	}
	var valid []bool
	if col.Valid != nil {
		valid = append([]bool(nil), col.Valid...)
	}
	return frame.WithColumn(dataset.NewIntColumn(c.OutputCol, out, valid))
}
