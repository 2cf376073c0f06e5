package report

import (
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	scierrors "github.com/YuminosukeSato/severity/pkg/errors"
)

// SavePlot draws a grouped bar chart, one group per metric and one bar per
// model, and saves it to path. The format follows the file extension.
func (c *Comparison) SavePlot(path string) error {
	if len(c.Rows) == 0 {
		return scierrors.NewValueError("Comparison.SavePlot", "no rows")
	}
	p := plot.New()
	p.Title.Text = "Model comparison"
	p.Y.Label.Text = "score"
	p.Y.Min, p.Y.Max = 0, 1

	width := vg.Points(12)
	for i, r := range c.Rows {
		values := make(plotter.Values, len(r.Values))
		copy(values, r.Values[:])
		bars, err := plotter.NewBarChart(values, width)
		if err != nil {
			return scierrors.Wrap(err, "bar chart")
		}
		bars.LineStyle.Width = vg.Length(0)
		bars.Color = plotutil.Color(i)
		bars.Offset = width * vg.Length(2*i-len(c.Rows)+1) / 2
		p.Add(bars)
		p.Legend.Add(r.Model, bars)
	}
	p.Legend.Top = true
	p.NominalX(Header[1:]...)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return scierrors.Wrapf(err, "create %s", filepath.Dir(path))
	}
	if err := p.Save(10*vg.Inch, 5*vg.Inch, path); err != nil {
		return scierrors.Wrapf(err, "save %s", path)
	}
	return nil
}
