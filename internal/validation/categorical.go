package validation

import (
	"fmt"

	"golang.org/x/text/cases"

	"datacheck/pkg/contracts/domain"
)

// Categorical requires cells to belong to a fixed set of values. Missing
// cells never belong to the set. Cells are compared as written, surrounding
// whitespace included. The table passes through unchanged.
type Categorical struct {
	columns       []string
	allowed       []string
	caseSensitive bool
}

// CategoricalOption configures a Categorical rule
type CategoricalOption func(*Categorical)

// WithCaseSensitive controls whether comparison is exact (the default) or
// uses Unicode case folding
func WithCaseSensitive(sensitive bool) CategoricalOption {
	return func(c *Categorical) { c.caseSensitive = sensitive }
}

// NewCategorical creates a categorical rule. With no columns it scans the
// columns tagged categorical.
func NewCategorical(columns []string, allowed []string, opts ...CategoricalOption) *Categorical {
	c := &Categorical{
		columns:       append([]string(nil), columns...),
		allowed:       append([]string(nil), allowed...),
		caseSensitive: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Categorical) Kind() string { return KindCategorical }

func (c *Categorical) Validate(table *domain.Table) (*Result, error) {
	if table == nil {
		return nil, configError(KindCategorical, "nil table")
	}
	if len(c.allowed) == 0 {
		return nil, configError(KindCategorical, "allowed values must not be empty")
	}

	// a Caser keeps state between calls, so each Validate gets its own
	fold := func(s string) string { return s }
	if !c.caseSensitive {
		caser := cases.Fold()
		fold = caser.String
	}

	allowed := make(map[string]struct{}, len(c.allowed))
	for _, v := range c.allowed {
		allowed[fold(v)] = struct{}{}
	}

	var errs []string
	invalid := make(map[int]struct{})

	for _, column := range resolveColumns(table, c.columns, isCategorical) {
		values, ok := table.Values(column)
		if !ok {
			errs = append(errs, notFound(column))
			continue
		}

		for row, cell := range values {
			s := domain.CellString(cell)
			if _, ok := allowed[fold(s)]; ok && !domain.IsMissing(cell) {
				continue
			}
			errs = append(errs, fmt.Sprintf("Row %d: '%s' is not an allowed value in column '%s'", row, s, column))
			invalid[row] = struct{}{}
		}
	}

	return newResult(table, errs, invalid), nil
}

func isCategorical(col domain.Column) bool {
	return col.Type == domain.ColumnTypeCategorical
}
