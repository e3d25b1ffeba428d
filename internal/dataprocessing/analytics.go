package dataprocessing

import (
	"context"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"datacheck/pkg/contracts/domain"
)

// Analyzer computes summaries and statistics of tables
type Analyzer struct {
	logger *slog.Logger
}

// NewAnalyzer creates an Analyzer. A nil logger means slog.Default().
func NewAnalyzer(logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{logger: logger.With(slog.String("component", "analyzer"))}
}

// Summary describes the columns of tbl and counts their missing cells
func (a *Analyzer) Summary(ctx context.Context, tbl *domain.Table) DataSummary {
	columns := tbl.Columns()
	summary := DataSummary{
		RowCount:           tbl.RowCount(),
		ColumnCount:        tbl.ColumnCount(),
		Columns:            columns,
		MissingValues:      make(map[string]int, len(columns)),
		NumericColumns:     nonNil(tbl.ColumnsOfType(domain.ColumnTypeNumeric)),
		CategoricalColumns: nonNil(tbl.ColumnsOfType(domain.ColumnTypeCategorical)),
		DatetimeColumns:    nonNil(tbl.ColumnsOfType(domain.ColumnTypeDatetime)),
	}
	for _, col := range columns {
		values, _ := tbl.Values(col)
		missing := 0
		for _, v := range values {
			if domain.IsMissing(v) {
				missing++
			}
		}
		summary.MissingValues[col] = missing
	}

	a.logger.InfoContext(ctx, "generated data summary",
		slog.Int("rows", summary.RowCount),
		slog.Int("columns", summary.ColumnCount))
	return summary
}

// NumericStats computes ColumnStats for the given columns, or for every
// numeric column when none are given. Columns that are absent or not numeric
// are skipped.
func (a *Analyzer) NumericStats(ctx context.Context, tbl *domain.Table, columns ...string) []ColumnStats {
	if len(columns) == 0 {
		columns = tbl.ColumnsOfType(domain.ColumnTypeNumeric)
	}

	stats := make([]ColumnStats, 0, len(columns))
	for _, col := range columns {
		if ct, ok := tbl.Type(col); !ok || ct != domain.ColumnTypeNumeric {
			a.logger.DebugContext(ctx, "skipping non-numeric column", slog.String("column", col))
			continue
		}
		nums, err := numericCells(tbl, col)
		if err != nil {
			continue
		}
		stats = append(stats, describe(col, nums))
	}
	return stats
}

func describe(column string, nums numeric) ColumnStats {
	present := nums.present()
	s := ColumnStats{
		Column:  column,
		Missing: len(nums.values) - len(present),
		Min:     math.NaN(),
		Max:     math.NaN(),
		Mean:    math.NaN(),
		Median:  math.NaN(),
		Std:     math.NaN(),
	}
	if len(present) == 0 {
		return s
	}

	s.Min = floats.Min(present)
	s.Max = floats.Max(present)
	s.Mean = stat.Mean(present, nil)
	s.Median = median(sortedCopy(present))
	if len(present) > 1 {
		s.Std = stat.StdDev(present, nil)
	}
	for _, v := range present {
		if v == 0 {
			s.Zeros++
		}
		if v < 0 {
			s.Negatives++
		}
	}
	return s
}

// Correlation computes the Pearson correlation of every pair of the given
// numeric columns, or of all numeric columns when none are given. Each pair
// uses the rows where both cells are present.
func (a *Analyzer) Correlation(tbl *domain.Table, columns ...string) (CorrelationMatrix, error) {
	if len(columns) == 0 {
		columns = tbl.ColumnsOfType(domain.ColumnTypeNumeric)
	}

	cells := make([]numeric, len(columns))
	for i, col := range columns {
		nums, err := numericCells(tbl, col)
		if err != nil {
			return CorrelationMatrix{}, err
		}
		cells[i] = nums
	}

	m := CorrelationMatrix{Columns: columns, Values: make([][]float64, len(columns))}
	for i := range columns {
		m.Values[i] = make([]float64, len(columns))
	}
	for i := range columns {
		m.Values[i][i] = 1
		for j := i + 1; j < len(columns); j++ {
			var x, y []float64
			for r := range cells[i].values {
				if cells[i].ok[r] && cells[j].ok[r] {
					x = append(x, cells[i].values[r])
					y = append(y, cells[j].values[r])
				}
			}
			c := math.NaN()
			if len(x) > 1 {
				c = stat.Correlation(x, y, nil)
			}
			m.Values[i][j], m.Values[j][i] = c, c
		}
	}
	return m, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
