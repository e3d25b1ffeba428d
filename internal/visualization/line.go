package visualization

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"

	"datacheck/pkg/contracts/domain"
)

// LineChart draws one line per y column against the x column
type LineChart struct {
	base
}

// Plot implements Chart. Points are sorted by x; points with a missing x or
// y are skipped.
func (c *LineChart) Plot(tbl *domain.Table, opts Options) error {
	if len(opts.Y) == 0 {
		return renderError(c.kind, errors.New("line chart needs at least one y column"))
	}

	ax, err := readX(tbl, opts.X)
	if err != nil {
		return renderError(c.kind, err)
	}

	p := c.newPlot(opts, opts.X, strings.Join(opts.Y, ", "))
	switch {
	case ax.times:
		p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01-02"}
	case ax.labels != nil:
		p.NominalX(ax.labels...)
	}

	points := 0
	for s, col := range opts.Y {
		vals, ok, err := numbers(tbl, col)
		if err != nil {
			return renderError(c.kind, err)
		}

		var xys plotter.XYs
		for r := range vals {
			if ok[r] && ax.ok[r] {
				xys = append(xys, plotter.XY{X: ax.values[r], Y: vals[r]})
			}
		}
		if len(xys) == 0 {
			continue
		}
		sort.Slice(xys, func(i, j int) bool { return xys[i].X < xys[j].X })

		colorName := opts.Color
		if len(opts.Y) > 1 {
			colorName = ""
		}
		clr, err := seriesColor(colorName, s)
		if err != nil {
			return renderError(c.kind, err)
		}

		if opts.Markers {
			line, pts, err := plotter.NewLinePoints(xys)
			if err != nil {
				return renderError(c.kind, fmt.Errorf("column '%s': %w", col, err))
			}
			line.Color = clr
			pts.Color = clr
			p.Add(line, pts)
			p.Legend.Add(col, line, pts)
		} else {
			line, err := plotter.NewLine(xys)
			if err != nil {
				return renderError(c.kind, fmt.Errorf("column '%s': %w", col, err))
			}
			line.Color = clr
			p.Add(line)
			p.Legend.Add(col, line)
		}
		points += len(xys)
	}
	if points == 0 {
		return renderError(c.kind, errNoRows)
	}

	c.finish(p, opts)
	c.logger.Debug("line chart plotted", "points", points, "series", len(opts.Y))
	return nil
}
