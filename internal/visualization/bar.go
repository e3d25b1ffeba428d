package visualization

import (
	"errors"
	"fmt"
	"strings"

	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"datacheck/pkg/contracts/domain"
)

var errNoRows = errors.New("no rows to plot")

// BarChart draws one bar per row, grouped side by side when several
// y columns are given
type BarChart struct {
	base
}

// Plot implements Chart. Rows with a missing value in any y column are skipped.
func (c *BarChart) Plot(tbl *domain.Table, opts Options) error {
	if len(opts.Y) == 0 {
		return renderError(c.kind, errors.New("bar chart needs at least one y column"))
	}

	names, err := labels(tbl, opts.X)
	if err != nil {
		return renderError(c.kind, err)
	}

	series := make([][]float64, len(opts.Y))
	keep := make([]bool, tbl.RowCount())
	for i := range keep {
		keep[i] = true
	}
	for s, col := range opts.Y {
		vals, ok, err := numbers(tbl, col)
		if err != nil {
			return renderError(c.kind, err)
		}
		series[s] = vals
		for r := range keep {
			keep[r] = keep[r] && ok[r]
		}
	}

	var kept []string
	values := make([]plotter.Values, len(opts.Y))
	for r, k := range keep {
		if !k {
			continue
		}
		kept = append(kept, names[r])
		for s := range series {
			values[s] = append(values[s], series[s][r])
		}
	}
	if len(kept) == 0 {
		return renderError(c.kind, errNoRows)
	}

	p := c.newPlot(opts, opts.X, strings.Join(opts.Y, ", "))
	if opts.Horizontal {
		p.X.Label.Text, p.Y.Label.Text = p.Y.Label.Text, p.X.Label.Text
	}

	width := vg.Points(40) / vg.Length(len(opts.Y))
	for s, col := range opts.Y {
		bar, err := plotter.NewBarChart(values[s], width)
		if err != nil {
			return renderError(c.kind, fmt.Errorf("column '%s': %w", col, err))
		}
		colorName := opts.Color
		if len(opts.Y) > 1 {
			colorName = ""
		}
		clr, err := seriesColor(colorName, s)
		if err != nil {
			return renderError(c.kind, err)
		}
		bar.Color = clr
		bar.LineStyle.Width = vg.Length(0)
		bar.Horizontal = opts.Horizontal
		bar.Offset = vg.Length(float64(s)-float64(len(opts.Y)-1)/2) * width

		p.Add(bar)
		if len(opts.Y) > 1 {
			p.Legend.Add(col, bar)
		}
	}

	if opts.Horizontal {
		p.NominalY(kept...)
	} else {
		p.NominalX(kept...)
	}

	c.finish(p, opts)
	c.logger.Debug("bar chart plotted", "bars", len(kept), "series", len(opts.Y))
	return nil
}
