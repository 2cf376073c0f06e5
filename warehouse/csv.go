package warehouse

import (
	"encoding/csv"
	"io"
	"math/rand/v2"
	"sort"
	"strings"

	"github.com/YuminosukeSato/severity/dataset"
	scierrors "github.com/YuminosukeSato/severity/pkg/errors"
)

var headerReplacer = strings.NewReplacer("(%)", "_percent", "(", "_", ")", "", " ", "_")

// NormalizeHeader maps a raw CSV header such as "Humidity(%)" or
// "Distance(mi)" to the table column name ("humidity_percent",
// "distance_mi").
func NormalizeHeader(h string) string {
	return strings.ToLower(headerReplacer.Replace(strings.TrimSpace(h)))
}

// ReadCSV parses the raw accidents export into a frame with the record
// schema. Extra columns are ignored; a missing record column is a
// SchemaError. Empty cells are null.
func ReadCSV(r io.Reader) (*dataset.Frame, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true
	header, err := cr.Read()
	if err != nil {
		return nil, scierrors.Wrap(err, "read csv header")
	}
	pos := make(map[string]int, len(header))
	for i, h := range header {
		pos[NormalizeHeader(h)] = i
	}
	index := make([]int, len(dataset.RecordSchema))
	for j, f := range dataset.RecordSchema {
		i, ok := pos[f.Name]
		if !ok {
			return nil, scierrors.NewSchemaError("warehouse.ReadCSV", f.Name, "missing from csv header")
		}
		index[j] = i
	}

	b := newFrameBuilder(dataset.RecordSchema)
	cells := make([]string, len(index))
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, scierrors.Wrap(err, "read csv")
		}
		for j, i := range index {
			cells[j] = rec[i]
		}
		if err := b.appendText(cells); err != nil {
			return nil, err
		}
	}
	return b.frame()
}

// Sample returns n rows drawn without replacement with a seeded shuffle,
// kept in their original order. n >= Len returns the frame unchanged.
func Sample(frame *dataset.Frame, n int, seed uint64) *dataset.Frame {
	if n <= 0 || n >= frame.Len() {
		return frame
	}
	r := rand.New(rand.NewPCG(seed, seed))
	idx := r.Perm(frame.Len())[:n]
	sort.Ints(idx)
	return frame.Take(idx)
}
