package dataprocessing

import (
	"fmt"
	"log/slog"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"datacheck/pkg/contracts/domain"
)

// Utility holds the table clean-up operations. Every method returns a new
// table and leaves its input untouched.
type Utility struct {
	logger *slog.Logger
}

// NewUtility creates a Utility. A nil logger means slog.Default().
func NewUtility(logger *slog.Logger) *Utility {
	if logger == nil {
		logger = slog.Default()
	}
	return &Utility{logger: logger.With(slog.String("component", "utility"))}
}

// RemoveOutliers drops the rows whose value in column is an outlier.
// Rows with a missing or non-numeric value are dropped as well.
func (u *Utility) RemoveOutliers(tbl *domain.Table, column string, method OutlierMethod, threshold float64) (*domain.Table, error) {
	nums, err := numericCells(tbl, column)
	if err != nil {
		return nil, err
	}
	present := nums.present()

	var keep func(v float64) bool
	switch method {
	case OutlierZScore:
		mean, std := stat.MeanStdDev(present, nil)
		keep = func(v float64) bool {
			if std == 0 || math.IsNaN(std) {
				return true
			}
			return math.Abs((v-mean)/std) <= threshold
		}
	case OutlierIQR:
		sorted := sortedCopy(present)
		q1, q3 := quantile(sorted, 0.25), quantile(sorted, 0.75)
		iqr := q3 - q1
		lower, upper := q1-threshold*iqr, q3+threshold*iqr
		keep = func(v float64) bool { return v >= lower && v <= upper }
	default:
		return nil, unknownMethod("outlier removal", method)
	}

	out := tbl.FilterRows(func(row int) bool {
		return nums.ok[row] && keep(nums.values[row])
	})
	u.logger.Debug("outliers removed",
		slog.String("column", column),
		slog.String("method", string(method)),
		slog.Int("dropped", tbl.RowCount()-out.RowCount()))
	return out, nil
}

// ImputeMissing replaces the missing cells of column. Mean and median need a
// numeric column; mode works on any column; constant writes the given value.
func (u *Utility) ImputeMissing(tbl *domain.Table, column string, method ImputeMethod, constant any) (*domain.Table, error) {
	values, ok := tbl.Values(column)
	if !ok {
		return nil, columnNotFound(column)
	}

	missing := 0
	for _, v := range values {
		if domain.IsMissing(v) {
			missing++
		}
	}
	if missing == 0 {
		return tbl.Clone(), nil
	}

	var fill any
	switch method {
	case ImputeMean, ImputeMedian:
		nums, err := numericCells(tbl, column)
		if err != nil {
			return nil, err
		}
		present := nums.present()
		if len(present) == 0 {
			return nil, fmt.Errorf("column '%s' has no values to impute from", column)
		}
		if method == ImputeMean {
			fill = stat.Mean(present, nil)
		} else {
			fill = median(sortedCopy(present))
		}
	case ImputeMode:
		m, found := mode(values)
		if !found {
			return nil, fmt.Errorf("column '%s' has no values to impute from", column)
		}
		fill = m
	case ImputeConstant:
		fill = constant
	default:
		return nil, unknownMethod("imputation", method)
	}

	for i, v := range values {
		if domain.IsMissing(v) {
			values[i] = fill
		}
	}
	u.logger.Debug("missing values imputed",
		slog.String("column", column),
		slog.String("method", string(method)),
		slog.Int("filled", missing))
	return tbl.WithValues(column, values)
}

// NormalizeColumn rescales column. A constant column is left unchanged;
// missing cells stay missing.
func (u *Utility) NormalizeColumn(tbl *domain.Table, column string, method NormalizeMethod) (*domain.Table, error) {
	nums, err := numericCells(tbl, column)
	if err != nil {
		return nil, err
	}
	present := nums.present()

	var scale func(v float64) float64
	switch method {
	case NormalizeMinMax:
		if len(present) == 0 {
			return tbl.Clone(), nil
		}
		lo, hi := floats.Min(present), floats.Max(present)
		if hi <= lo {
			return tbl.Clone(), nil
		}
		scale = func(v float64) float64 { return (v - lo) / (hi - lo) }
	case NormalizeZScore:
		mean, std := stat.MeanStdDev(present, nil)
		if !(std > 0) {
			return tbl.Clone(), nil
		}
		scale = func(v float64) float64 { return (v - mean) / std }
	default:
		return nil, unknownMethod("normalization", method)
	}

	values := make([]any, tbl.RowCount())
	for i := range values {
		if nums.ok[i] {
			values[i] = scale(nums.values[i])
		}
	}
	return tbl.WithValues(column, values)
}

// Clean applies the imputation, outlier removal and normalization of opts to
// each column
func (u *Utility) Clean(tbl *domain.Table, opts CleaningOptions) (*domain.Table, error) {
	columns := opts.Columns
	if len(columns) == 0 {
		columns = tbl.ColumnsOfType(domain.ColumnTypeNumeric)
	}

	out := tbl
	var err error
	for _, col := range columns {
		if opts.Impute != "" {
			if out, err = u.ImputeMissing(out, col, opts.Impute, fillValue(opts.FillValue)); err != nil {
				return nil, err
			}
		}
		if opts.OutlierMethod != "" {
			if out, err = u.RemoveOutliers(out, col, opts.OutlierMethod, opts.Threshold); err != nil {
				return nil, err
			}
		}
		if opts.Normalize != "" {
			if out, err = u.NormalizeColumn(out, col, opts.Normalize); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

// fillValue reads a configured constant as a number when it is one
func fillValue(s string) any {
	if f, ok := domain.ToFloat(s); ok {
		return f
	}
	return s
}

func columnNotFound(column string) error {
	return fmt.Errorf("column '%s' not found", column)
}

// numeric is a column read as float64, with ok marking the present cells
type numeric struct {
	values []float64
	ok     []bool
}

func (n numeric) present() []float64 {
	out := make([]float64, 0, len(n.values))
	for i, v := range n.values {
		if n.ok[i] {
			out = append(out, v)
		}
	}
	return out
}

// numericCells reads column as numbers. Present cells that are not numbers
// make the column non-numeric, which is an error.
func numericCells(tbl *domain.Table, column string) (numeric, error) {
	values, ok := tbl.Values(column)
	if !ok {
		return numeric{}, columnNotFound(column)
	}
	n := numeric{values: make([]float64, len(values)), ok: make([]bool, len(values))}
	for i, v := range values {
		if domain.IsMissing(v) {
			continue
		}
		f, ok := domain.ToFloat(v)
		if !ok {
			return numeric{}, fmt.Errorf("column '%s' is not numeric: row %d holds '%s'", column, i, domain.CellString(v))
		}
		n.values[i], n.ok[i] = f, true
	}
	return n, nil
}

func sortedCopy(xs []float64) []float64 {
	out := make([]float64, len(xs))
	copy(out, xs)
	sort.Float64s(out)
	return out
}

// quantile interpolates linearly between the closest ranks of sorted
func quantile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	pos := p * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

func median(sorted []float64) float64 {
	return quantile(sorted, 0.5)
}

// mode returns the most frequent present cell. Ties go to the smallest
// value, comparing numbers numerically and anything else by its text.
func mode(values []any) (any, bool) {
	type entry struct {
		value any
		count int
	}
	counts := make(map[string]*entry)
	for _, v := range values {
		if domain.IsMissing(v) {
			continue
		}
		key := domain.CellString(v)
		if e, ok := counts[key]; ok {
			e.count++
			continue
		}
		counts[key] = &entry{value: v, count: 1}
	}
	if len(counts) == 0 {
		return nil, false
	}

	entries := make([]*entry, 0, len(counts))
	for _, e := range counts {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		fi, iok := domain.ToFloat(entries[i].value)
		fj, jok := domain.ToFloat(entries[j].value)
		if iok && jok {
			return fi < fj
		}
		return domain.CellString(entries[i].value) < domain.CellString(entries[j].value)
	})
	return entries[0].value, true
}
