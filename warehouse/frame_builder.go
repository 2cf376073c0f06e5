package warehouse

import (
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/YuminosukeSato/severity/dataset"
	scierrors "github.com/YuminosukeSato/severity/pkg/errors"
)

// frameBuilder accumulates typed cells column by column.
type frameBuilder struct {
	fields  []dataset.Field
	floats  [][]float64
	ints    [][]int64
	strs    [][]string
	times   [][]time.Time
	bools   [][]bool
	valid   [][]bool
	numRows int
}

func newFrameBuilder(fields []dataset.Field) *frameBuilder {
	n := len(fields)
	return &frameBuilder{
		fields: fields,
		floats: make([][]float64, n),
		ints:   make([][]int64, n),
		strs:   make([][]string, n),
		times:  make([][]time.Time, n),
		bools:  make([][]bool, n),
		valid:  make([][]bool, n),
	}
}

func (b *frameBuilder) scanTargets() []interface{} {
	dest := make([]interface{}, len(b.fields))
	for j, f := range b.fields {
		switch f.Kind {
		case dataset.KindFloat:
			dest[j] = new(sql.NullFloat64)
		case dataset.KindInt:
			dest[j] = new(sql.NullInt64)
		case dataset.KindBool:
			dest[j] = new(sql.NullBool)
		default:
			dest[j] = new(sql.NullString)
		}
	}
	return dest
}

func (b *frameBuilder) appendScanned(dest []interface{}) error {
	for j, f := range b.fields {
		switch v := dest[j].(type) {
		case *sql.NullFloat64:
			b.floats[j] = append(b.floats[j], v.Float64)
			b.valid[j] = append(b.valid[j], v.Valid)
		case *sql.NullInt64:
			b.ints[j] = append(b.ints[j], v.Int64)
			b.valid[j] = append(b.valid[j], v.Valid)
		case *sql.NullBool:
			b.bools[j] = append(b.bools[j], v.Bool)
			b.valid[j] = append(b.valid[j], v.Valid)
		case *sql.NullString:
			if f.Kind == dataset.KindTime {
				var t time.Time
				if v.Valid {
					var err error
					if t, err = ParseTime(v.String); err != nil {
						return scierrors.NewSchemaError("warehouse.LoadDataset", f.Name, err.Error())
					}
				}
				b.times[j] = append(b.times[j], t)
			} else {
				b.strs[j] = append(b.strs[j], v.String)
			}
			b.valid[j] = append(b.valid[j], v.Valid)
		}
	}
	b.numRows++
	return nil
}

// appendText parses one CSV record; empty cells are null.
func (b *frameBuilder) appendText(cells []string) error {
	for j, f := range b.fields {
		s := strings.TrimSpace(cells[j])
		ok := s != ""
		switch f.Kind {
		case dataset.KindFloat:
			var v float64
			if ok {
				var err error
				if v, err = strconv.ParseFloat(s, 64); err != nil {
					return scierrors.NewSchemaError("warehouse.ReadCSV", f.Name, err.Error())
				}
			}
			b.floats[j] = append(b.floats[j], v)
		case dataset.KindInt:
			var v int64
			if ok {
				var err error
				if v, err = strconv.ParseInt(s, 10, 64); err != nil {
					return scierrors.NewSchemaError("warehouse.ReadCSV", f.Name, err.Error())
				}
			}
			b.ints[j] = append(b.ints[j], v)
		case dataset.KindBool:
			var v bool
			if ok {
				var err error
				if v, err = strconv.ParseBool(s); err != nil {
					return scierrors.NewSchemaError("warehouse.ReadCSV", f.Name, err.Error())
				}
			}
			b.bools[j] = append(b.bools[j], v)
		case dataset.KindTime:
			var t time.Time
			if ok {
				var err error
				if t, err = ParseTime(s); err != nil {
					return scierrors.NewSchemaError("warehouse.ReadCSV", f.Name, err.Error())
				}
			}
			b.times[j] = append(b.times[j], t)
		default:
			b.strs[j] = append(b.strs[j], s)
		}
		b.valid[j] = append(b.valid[j], ok)
	}
	b.numRows++
	return nil
}

func (b *frameBuilder) frame() (*dataset.Frame, error) {
	cols := make([]*dataset.Column, len(b.fields))
	for j, f := range b.fields {
		switch f.Kind {
		case dataset.KindFloat:
			cols[j] = dataset.NewFloatColumn(f.Name, orEmpty(b.floats[j]), orEmpty(b.valid[j]))
		case dataset.KindInt:
			cols[j] = dataset.NewIntColumn(f.Name, orEmpty(b.ints[j]), orEmpty(b.valid[j]))
		case dataset.KindBool:
			cols[j] = dataset.NewBoolColumn(f.Name, orEmpty(b.bools[j]), orEmpty(b.valid[j]))
		case dataset.KindTime:
			cols[j] = dataset.NewTimeColumn(f.Name, orEmpty(b.times[j]), orEmpty(b.valid[j]))
		default:
			cols[j] = dataset.NewStringColumn(f.Name, orEmpty(b.strs[j]), orEmpty(b.valid[j]))
		}
	}
	return dataset.NewFrame(cols...)
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
