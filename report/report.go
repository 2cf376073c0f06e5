// Package report evaluates fitted models on held-out data and renders the
// comparison of the candidates as CSV, a console table and a bar chart.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/severity/dataset"
	"github.com/YuminosukeSato/severity/metrics"
	scierrors "github.com/YuminosukeSato/severity/pkg/errors"
)

// Header is the column layout of the comparison table.
var Header = []string{"model", "Weighted_F_score", "Accuracy", "F1", "Weighted_Precision", "Weighted_Recall"}

// Predictor is the part of a fitted model Evaluate needs.
type Predictor interface {
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Evaluate predicts data and computes the named metrics in order. Weighted
// metrics use the instance weights attached to data.
func Evaluate(m Predictor, data *dataset.Labeled, names []metrics.Metric) ([]float64, error) {
	if data.Len() == 0 {
		return nil, scierrors.NewValueError("report.Evaluate", "empty dataset")
	}
	pred, err := m.Predict(data.Features)
	if err != nil {
		return nil, scierrors.Wrap(err, "report.Evaluate: predict")
	}
	yTrue, yPred := data.LabelVec(), metrics.ToVec(pred)
	out := make([]float64, len(names))
	for i, name := range names {
		if out[i], err = metrics.Compute(name, yTrue, yPred, data.Weight); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ComparisonRow is one model's metrics in Header order.
type ComparisonRow struct {
	Model  string
	Values [5]float64
}

// Comparison is the table of all evaluated candidates.
type Comparison struct {
	Rows []ComparisonRow
}

// Compare zips model descriptions with their metric vectors, each in
// metrics.ReportMetrics order.
func Compare(descriptions []string, results [][]float64) (*Comparison, error) {
	if len(descriptions) != len(results) {
		return nil, scierrors.NewDimensionError("report.Compare", len(descriptions), len(results), 0)
	}
	c := &Comparison{Rows: make([]ComparisonRow, len(results))}
	for i, r := range results {
		if len(r) != len(Header)-1 {
			return nil, scierrors.NewDimensionError("report.Compare", len(Header)-1, len(r), 1)
		}
		c.Rows[i].Model = descriptions[i]
		copy(c.Rows[i].Values[:], r)
	}
	return c, nil
}

// Best returns the row with the highest weighted F-measure.
func (c *Comparison) Best() (ComparisonRow, bool) {
	if len(c.Rows) == 0 {
		return ComparisonRow{}, false
	}
	best := c.Rows[0]
	for _, r := range c.Rows[1:] {
		if r.Values[0] > best.Values[0] {
			best = r
		}
	}
	return best, true
}

// WriteCSV writes the header and one line per model.
func (c *Comparison) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, r := range c.Rows {
		rec := make([]string, 0, len(Header))
		rec = append(rec, r.Model)
		for _, v := range r.Values {
			rec = append(rec, strconv.FormatFloat(v, 'f', -1, 64))
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// SaveCSV writes the table to path, creating parent directories.
func (c *Comparison) SaveCSV(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return scierrors.Wrapf(err, "create %s", filepath.Dir(path))
	}
	f, err := os.Create(path)
	if err != nil {
		return scierrors.Wrapf(err, "create %s", path)
	}
	if err := c.WriteCSV(f); err != nil {
		f.Close()
		return scierrors.Wrapf(err, "write %s", path)
	}
	return f.Close()
}

// ReadCSV parses a table written by WriteCSV.
func ReadCSV(r io.Reader) (*Comparison, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, scierrors.Wrap(err, "read comparison csv")
	}
	if len(records) == 0 || strings.Join(records[0], ",") != strings.Join(Header, ",") {
		return nil, scierrors.NewSchemaError("report.ReadCSV", "header", "unexpected header")
	}
	c := &Comparison{}
	for _, rec := range records[1:] {
		row := ComparisonRow{Model: rec[0]}
		for j := range row.Values {
			v, err := strconv.ParseFloat(rec[j+1], 64)
			if err != nil {
				return nil, scierrors.NewSchemaError("report.ReadCSV", Header[j+1], err.Error())
			}
			row.Values[j] = v
		}
		c.Rows = append(c.Rows, row)
	}
	return c, nil
}

// Table renders an aligned console table with values fixed to 4 places.
func (c *Comparison) Table() string {
	cells := make([][]string, 0, len(c.Rows)+1)
	cells = append(cells, Header)
	for _, r := range c.Rows {
		line := []string{r.Model}
		for _, v := range r.Values {
			line = append(line, decimal.NewFromFloat(v).StringFixed(4))
		}
		cells = append(cells, line)
	}

	widths := make([]int, len(Header))
	for _, line := range cells {
		for j, cell := range line {
			if len(cell) > widths[j] {
				widths[j] = len(cell)
			}
		}
	}

	var b strings.Builder
	for _, line := range cells {
		for j, cell := range line {
			if j == 0 {
				fmt.Fprintf(&b, "%-*s", widths[j], cell)
			} else {
				fmt.Fprintf(&b, "  %*s", widths[j], cell)
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}
