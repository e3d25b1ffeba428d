package visualization

import (
	"errors"

	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"datacheck/pkg/contracts/domain"
)

// ScatterPlot draws the first y column against the numeric x column
type ScatterPlot struct {
	base
}

// Plot implements Chart
func (c *ScatterPlot) Plot(tbl *domain.Table, opts Options) error {
	if opts.X == "" || len(opts.Y) == 0 {
		return renderError(c.kind, errors.New("scatter plot needs an x and a y column"))
	}

	xs, xok, err := numbers(tbl, opts.X)
	if err != nil {
		return renderError(c.kind, err)
	}
	ys, yok, err := numbers(tbl, opts.Y[0])
	if err != nil {
		return renderError(c.kind, err)
	}

	var xys plotter.XYs
	for r := range xs {
		if xok[r] && yok[r] {
			xys = append(xys, plotter.XY{X: xs[r], Y: ys[r]})
		}
	}
	if len(xys) == 0 {
		return renderError(c.kind, errNoRows)
	}

	sc, err := plotter.NewScatter(xys)
	if err != nil {
		return renderError(c.kind, err)
	}
	clr, err := seriesColor(opts.Color, 0)
	if err != nil {
		return renderError(c.kind, err)
	}
	sc.GlyphStyle.Color = clr
	sc.GlyphStyle.Shape = draw.CircleGlyph{}
	sc.GlyphStyle.Radius = vg.Points(3)
	if opts.PointSize > 0 {
		sc.GlyphStyle.Radius = vg.Points(opts.PointSize)
	}

	p := c.newPlot(opts, opts.X, opts.Y[0])
	p.Add(plotter.NewGrid(), sc)

	c.finish(p, opts)
	c.logger.Debug("scatter plot plotted", "points", len(xys))
	return nil
}
