package preprocessing

import (
	"sort"

	"github.com/YuminosukeSato/severity/dataset"
	scierrors "github.com/YuminosukeSato/severity/pkg/errors"
)

// StringIndexer maps category strings to integer indices. Index 0 is the
// most frequent value; ties are broken by ascending string order.
type StringIndexer struct {
	InputCol  string
	OutputCol string

	// Labels is the fitted vocabulary in index order.
	Labels []string

	index map[string]int
}

// Fit learns the vocabulary of InputCol.
func (s *StringIndexer) Fit(frame *dataset.Frame) error {
	col, err := frame.Column(s.InputCol)
	if err != nil {
		return err
	}

	counts := make(map[string]int)
	for i := 0; i < col.Len(); i++ {
		if col.IsNull(i) {
			continue
		}
		counts[col.Category(i)]++
	}

	labels := make([]string, 0, len(counts))
	for v := range counts {
		labels = append(labels, v)
	}
	sort.Slice(labels, func(a, b int) bool {
		ca, cb := counts[labels[a]], counts[labels[b]]
		if ca != cb {
			return ca > cb
		}
		return labels[a] < labels[b]
	})

	s.Labels = labels
	s.buildIndex()
	return nil
}

func (s *StringIndexer) buildIndex() {
	s.index = make(map[string]int, len(s.Labels))
	for i, l := range s.Labels {
		s.index[l] = i
	}
}

// Cardinality returns the vocabulary size.
func (s *StringIndexer) Cardinality() int { return len(s.Labels) }

// Transform adds OutputCol holding the index of every value. A value outside
// the fitted vocabulary fails the whole batch with UnseenCategoryError.
func (s *StringIndexer) Transform(frame *dataset.Frame) (*dataset.Frame, error) {
	if s.Labels == nil {
		return nil, scierrors.NewNotFittedError("StringIndexer", "Transform")
	}
	if s.index == nil {
		s.buildIndex()
	}
	col, err := frame.Column(s.InputCol)
	if err != nil {
		return nil, err
	}

	out := make([]int64, col.Len())
	for i := range out {
		if col.IsNull(i) {
			return nil, scierrors.NewSchemaError("StringIndexer.Transform", s.InputCol, "null value")
		}
		v := col.Category(i)
		idx, ok := s.index[v]
		if !ok {
			return nil, scierrors.NewUnseenCategoryError(s.InputCol, v, i)
		}
		out[i] = int64(idx)
	}
	return frame.WithColumn(dataset.NewIntColumn(s.OutputCol, out, nil))
}
