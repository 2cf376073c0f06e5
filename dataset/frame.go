// Package dataset holds the in-memory tables the pipeline passes between
// stages: Frame for raw typed records and Labeled for dense feature matrices.
package dataset

import (
	"fmt"

	scierrors "github.com/YuminosukeSato/severity/pkg/errors"
)

// Frame is an ordered set of equal-length named columns. Every operation
// returns a new Frame and leaves the receiver untouched; column data is
// shared between frames and must not be mutated in place.
type Frame struct {
	cols  []*Column
	index map[string]int
	n     int
}

// NewFrame builds a frame, rejecting duplicate names and ragged columns.
func NewFrame(cols ...*Column) (*Frame, error) {
	f := &Frame{index: make(map[string]int, len(cols))}
	for i, c := range cols {
		if _, dup := f.index[c.Name]; dup {
			return nil, scierrors.NewSchemaError("NewFrame", c.Name, "duplicate column")
		}
		if i == 0 {
			f.n = c.Len()
		} else if c.Len() != f.n {
			return nil, scierrors.NewSchemaError("NewFrame", c.Name,
				fmt.Sprintf("length %d differs from %d", c.Len(), f.n))
		}
		if c.Valid != nil && len(c.Valid) != c.Len() {
			return nil, scierrors.NewSchemaError("NewFrame", c.Name, "validity mask length mismatch")
		}
		f.index[c.Name] = i
		f.cols = append(f.cols, c)
	}
	return f, nil
}

// Len returns the number of rows.
func (f *Frame) Len() int { return f.n }

// Names returns the column names in order.
func (f *Frame) Names() []string {
	names := make([]string, len(f.cols))
	for i, c := range f.cols {
		names[i] = c.Name
	}
	return names
}

// Has reports whether the frame contains name.
func (f *Frame) Has(name string) bool {
	_, ok := f.index[name]
	return ok
}

// Column returns the named column or a SchemaError.
func (f *Frame) Column(name string) (*Column, error) {
	i, ok := f.index[name]
	if !ok {
		return nil, scierrors.NewSchemaError("Frame.Column", name, "column not found")
	}
	return f.cols[i], nil
}

// Select projects the frame onto names, in that order.
func (f *Frame) Select(names ...string) (*Frame, error) {
	cols := make([]*Column, 0, len(names))
	for _, name := range names {
		i, ok := f.index[name]
		if !ok {
			return nil, scierrors.NewSchemaError("Frame.Select", name, "column not found")
		}
		cols = append(cols, f.cols[i])
	}
	return NewFrame(cols...)
}

// DropNulls removes every row that has a missing cell in any column.
func (f *Frame) DropNulls() *Frame {
	keep := make([]int, 0, f.n)
	for r := 0; r < f.n; r++ {
		ok := true
		for _, c := range f.cols {
			if c.IsNull(r) {
				ok = false
				break
			}
		}
		if ok {
			keep = append(keep, r)
		}
	}
	if len(keep) == f.n {
		return f
	}
	return f.Take(keep)
}

// Take returns the rows idx in that order.
func (f *Frame) Take(idx []int) *Frame {
	cols := make([]*Column, len(f.cols))
	for i, c := range f.cols {
		cols[i] = c.Take(idx)
	}
	out, _ := NewFrame(cols...)
	if len(cols) == 0 {
		out.n = len(idx)
	}
	return out
}

// Rename renames one column.
func (f *Frame) Rename(oldName, newName string) (*Frame, error) {
	i, ok := f.index[oldName]
	if !ok {
		return nil, scierrors.NewSchemaError("Frame.Rename", oldName, "column not found")
	}
	cols := append([]*Column(nil), f.cols...)
	cols[i] = f.cols[i].renamed(newName)
	return NewFrame(cols...)
}

// WithColumn appends col, replacing an existing column of the same name in place.
func (f *Frame) WithColumn(col *Column) (*Frame, error) {
	if len(f.cols) > 0 && col.Len() != f.n {
		return nil, scierrors.NewSchemaError("Frame.WithColumn", col.Name,
			fmt.Sprintf("length %d differs from %d", col.Len(), f.n))
	}
	cols := append([]*Column(nil), f.cols...)
	if i, ok := f.index[col.Name]; ok {
		cols[i] = col
	} else {
		cols = append(cols, col)
	}
	return NewFrame(cols...)
}

// Drop removes the named columns. Unknown names are ignored.
func (f *Frame) Drop(names ...string) *Frame {
	drop := make(map[string]struct{}, len(names))
	for _, n := range names {
		drop[n] = struct{}{}
	}
	cols := make([]*Column, 0, len(f.cols))
	for _, c := range f.cols {
		if _, ok := drop[c.Name]; !ok {
			cols = append(cols, c)
		}
	}
	out, _ := NewFrame(cols...)
	if len(cols) == 0 {
		out.n = f.n
	}
	return out
}
