package visualization

import (
	"fmt"
	"math"

	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"

	"datacheck/internal/dataprocessing"
	"datacheck/pkg/contracts/domain"
)

// HeatMap draws either the correlation matrix of numeric columns or the
// columns' raw values, one cell per row and column
type HeatMap struct {
	base
}

// grid adapts a row-major matrix to plotter.GridXYZ. Undefined cells are
// drawn at the palette's midpoint.
type grid struct {
	cells [][]float64
	fill  float64
}

func (g grid) Dims() (c, r int) {
	if len(g.cells) == 0 {
		return 0, 0
	}
	return len(g.cells[0]), len(g.cells)
}

func (g grid) Z(c, r int) float64 {
	v := g.cells[r][c]
	if math.IsNaN(v) {
		return g.fill
	}
	return v
}

func (g grid) X(c int) float64 { return float64(c) }

func (g grid) Y(r int) float64 { return float64(r) }

// Plot implements Chart. Columns default to every numeric column.
func (c *HeatMap) Plot(tbl *domain.Table, opts Options) error {
	columns := opts.Y
	if len(columns) == 0 {
		columns = tbl.ColumnsOfType(domain.ColumnTypeNumeric)
	}
	if len(columns) == 0 {
		return renderError(c.kind, fmt.Errorf("heat map needs at least one numeric column"))
	}

	var (
		g        grid
		rowNames []string
	)
	if opts.Correlation {
		m, err := dataprocessing.NewAnalyzer(c.logger).Correlation(tbl, columns...)
		if err != nil {
			return renderError(c.kind, err)
		}
		g = grid{cells: m.Values}
		rowNames = columns
	} else {
		cells := make([][]float64, tbl.RowCount())
		for r := range cells {
			cells[r] = make([]float64, len(columns))
		}
		for col, name := range columns {
			vals, ok, err := numbers(tbl, name)
			if err != nil {
				return renderError(c.kind, err)
			}
			for r := range vals {
				cells[r][col] = math.NaN()
				if ok[r] {
					cells[r][col] = vals[r]
				}
			}
		}
		names, err := labels(tbl, opts.X)
		if err != nil {
			return renderError(c.kind, err)
		}
		g = grid{cells: cells}
		rowNames = names
	}
	if len(g.cells) == 0 {
		return renderError(c.kind, errNoRows)
	}

	lo, hi := bounds(g.cells)
	if opts.Correlation {
		lo, hi = -1, 1
	}
	g.fill = (lo + hi) / 2

	if lo >= hi {
		lo, hi = lo-0.5, hi+0.5
	}

	hm := plotter.NewHeatMap(g, palette.Heat(12, 1))
	hm.Min, hm.Max = lo, hi

	p := c.newPlot(opts, "", "")
	p.Add(hm)
	p.NominalX(columns...)
	p.NominalY(rowNames...)

	c.finish(p, opts)
	c.logger.Debug("heat map plotted", "columns", len(columns), "rows", len(g.cells), "correlation", opts.Correlation)
	return nil
}

// bounds returns the smallest and largest defined cell
func bounds(cells [][]float64) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, row := range cells {
		for _, v := range row {
			if math.IsNaN(v) {
				continue
			}
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	if math.IsInf(lo, 1) {
		return 0, 0
	}
	return lo, hi
}
