package dataset

import (
	"fmt"
	"strconv"
	"time"

	scierrors "github.com/YuminosukeSato/severity/pkg/errors"
)

// Kind is the logical type of a column.
type Kind int

const (
	KindFloat Kind = iota
	KindInt
	KindString
	KindTime
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindFloat:
		return "float"
	case KindInt:
		return "int"
	case KindString:
		return "string"
	case KindTime:
		return "time"
	case KindBool:
		return "bool"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Column is a named, typed vector with a validity mask. Only the slice that
// matches Kind is populated. A nil Valid slice means every cell is present.
type Column struct {
	Name    string
	Kind    Kind
	Floats  []float64
	Ints    []int64
	Strings []string
	Times   []time.Time
	Bools   []bool
	Valid   []bool
}

// NewFloatColumn creates a float column. valid may be nil.
func NewFloatColumn(name string, values []float64, valid []bool) *Column {
	return &Column{Name: name, Kind: KindFloat, Floats: values, Valid: valid}
}

// NewIntColumn creates an integer column. valid may be nil.
func NewIntColumn(name string, values []int64, valid []bool) *Column {
	return &Column{Name: name, Kind: KindInt, Ints: values, Valid: valid}
}

// NewStringColumn creates a string column. valid may be nil.
func NewStringColumn(name string, values []string, valid []bool) *Column {
	return &Column{Name: name, Kind: KindString, Strings: values, Valid: valid}
}

// NewTimeColumn creates a timestamp column. valid may be nil.
func NewTimeColumn(name string, values []time.Time, valid []bool) *Column {
	return &Column{Name: name, Kind: KindTime, Times: values, Valid: valid}
}

// NewBoolColumn creates a boolean column. valid may be nil.
func NewBoolColumn(name string, values []bool, valid []bool) *Column {
	return &Column{Name: name, Kind: KindBool, Bools: values, Valid: valid}
}

// Len returns the number of cells.
func (c *Column) Len() int {
	switch c.Kind {
	case KindFloat:
		return len(c.Floats)
	case KindInt:
		return len(c.Ints)
	case KindString:
		return len(c.Strings)
	case KindTime:
		return len(c.Times)
	case KindBool:
		return len(c.Bools)
	}
	return 0
}

// IsNull reports whether cell i is missing.
func (c *Column) IsNull(i int) bool {
	return c.Valid != nil && !c.Valid[i]
}

// Float returns cell i as a number. Booleans map to 0/1.
func (c *Column) Float(i int) (float64, error) {
	switch c.Kind {
	case KindFloat:
		return c.Floats[i], nil
	case KindInt:
		return float64(c.Ints[i]), nil
	case KindBool:
		if c.Bools[i] {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, scierrors.NewSchemaError("Column.Float", c.Name, "column of kind "+c.Kind.String()+" is not numeric")
	}
}

// Category returns cell i as a category label. Non-string kinds are
// formatted so low-cardinality numeric codes can be indexed too.
func (c *Column) Category(i int) string {
	switch c.Kind {
	case KindString:
		return c.Strings[i]
	case KindInt:
		return strconv.FormatInt(c.Ints[i], 10)
	case KindFloat:
		return strconv.FormatFloat(c.Floats[i], 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(c.Bools[i])
	case KindTime:
		return c.Times[i].UTC().Format(time.RFC3339)
	}
	return ""
}

// Take returns a new column holding rows idx in that order.
func (c *Column) Take(idx []int) *Column {
	out := &Column{Name: c.Name, Kind: c.Kind}
	switch c.Kind {
	case KindFloat:
		out.Floats = make([]float64, len(idx))
		for j, i := range idx {
			out.Floats[j] = c.Floats[i]
		}
	case KindInt:
		out.Ints = make([]int64, len(idx))
		for j, i := range idx {
			out.Ints[j] = c.Ints[i]
		}
	case KindString:
		out.Strings = make([]string, len(idx))
		for j, i := range idx {
			out.Strings[j] = c.Strings[i]
		}
	case KindTime:
		out.Times = make([]time.Time, len(idx))
		for j, i := range idx {
			out.Times[j] = c.Times[i]
		}
	case KindBool:
		out.Bools = make([]bool, len(idx))
		for j, i := range idx {
			out.Bools[j] = c.Bools[i]
		}
	}
	if c.Valid != nil {
		out.Valid = make([]bool, len(idx))
		for j, i := range idx {
			out.Valid[j] = c.Valid[i]
		}
	}
	return out
}

func (c *Column) renamed(name string) *Column {
	cp := *c
	cp.Name = name
	return &cp
}
