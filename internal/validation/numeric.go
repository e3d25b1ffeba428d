package validation

import (
	"fmt"
	"math"
	"strconv"

	"datacheck/pkg/contracts/domain"
)

// Numeric requires cells to parse as numbers within an optional inclusive range.
// Cells that parse are coerced to float64; the rest are left as they were.
type Numeric struct {
	columns []string
	min     *float64
	max     *float64
}

// NumericOption configures a Numeric rule
type NumericOption func(*Numeric)

// WithMin sets the inclusive lower bound
func WithMin(v float64) NumericOption {
	return func(n *Numeric) { n.min = &v }
}

// WithMax sets the inclusive upper bound
func WithMax(v float64) NumericOption {
	return func(n *Numeric) { n.max = &v }
}

// NewNumeric creates a numeric rule. With no columns it scans every column
// whose cells mostly parse as numbers.
func NewNumeric(columns []string, opts ...NumericOption) *Numeric {
	n := &Numeric{columns: append([]string(nil), columns...)}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

func (n *Numeric) Kind() string { return KindNumeric }

func (n *Numeric) Validate(table *domain.Table) (*Result, error) {
	if table == nil {
		return nil, configError(KindNumeric, "nil table")
	}
	if n.min != nil && n.max != nil && *n.min > *n.max {
		return nil, configError(KindNumeric, "min %s is greater than max %s", formatNumber(*n.min), formatNumber(*n.max))
	}

	var errs []string
	invalid := make(map[int]struct{})
	out := table

	for _, column := range resolveColumns(table, n.columns, looksNumeric) {
		values, ok := out.Values(column)
		if !ok {
			errs = append(errs, notFound(column))
			continue
		}

		for row, cell := range values {
			v, ok := domain.ToFloat(cell)
			if !ok {
				errs = append(errs, fmt.Sprintf("Row %d: '%s' is not a valid number in column '%s'", row, domain.CellString(cell), column))
				invalid[row] = struct{}{}
				continue
			}
			values[row] = v
			if !n.inRange(v) {
				errs = append(errs, fmt.Sprintf("Row %d: value %s in column '%s' is outside allowed range [%s, %s]",
					row, formatNumber(v), column, n.lowerBound(), n.upperBound()))
				invalid[row] = struct{}{}
			}
		}

		next, err := out.WithValues(column, values)
		if err != nil {
			return nil, fmt.Errorf("coerce column %s: %w", column, err)
		}
		out = next
	}

	return newResult(out, errs, invalid), nil
}

func (n *Numeric) inRange(v float64) bool {
	if n.min != nil && v < *n.min {
		return false
	}
	if n.max != nil && v > *n.max {
		return false
	}
	return true
}

func (n *Numeric) lowerBound() string {
	if n.min == nil {
		return "-inf"
	}
	return formatNumber(*n.min)
}

func (n *Numeric) upperBound() string {
	if n.max == nil {
		return "inf"
	}
	return formatNumber(*n.max)
}

func looksNumeric(col domain.Column) bool {
	if col.Type == domain.ColumnTypeNumeric {
		return true
	}
	if col.Type != domain.ColumnTypeCategorical {
		return false
	}
	return mostlyParse(col.Values, func(v any) bool {
		_, ok := domain.ToFloat(v)
		return ok
	})
}

func formatNumber(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
