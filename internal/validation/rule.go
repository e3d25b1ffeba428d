package validation

import (
	"errors"
	"fmt"
	"sort"

	apperrors "datacheck/internal/errors"
	"datacheck/pkg/contracts/domain"
)

// Rule kinds known to the default registry
const (
	KindNumeric     = "numeric"
	KindDate        = "date"
	KindCategorical = "categorical"
	KindComposite   = "composite"
)

// ErrInvalidRuleConfig marks structural faults: a rule whose configuration
// cannot be applied to any table. Data problems never produce it.
var ErrInvalidRuleConfig = errors.New("invalid rule configuration")

// Rule checks one or more columns of a table.
//
// Validate reports every bad cell as a message in the returned Result and
// never fails because of the data. A non-nil error means the rule itself is
// misconfigured; such errors wrap ErrInvalidRuleConfig.
type Rule interface {
	Kind() string
	Validate(table *domain.Table) (*Result, error)
}

// Result is the outcome of one Validate call. It is never modified after
// construction and its accessors return copies.
type Result struct {
	data        *domain.Table
	errors      []string
	invalidRows []int
}

func newResult(data *domain.Table, errs []string, invalid map[int]struct{}) *Result {
	rows := make([]int, 0, len(invalid))
	for r := range invalid {
		rows = append(rows, r)
	}
	sort.Ints(rows)

	return &Result{
		data:        data,
		errors:      append([]string(nil), errs...),
		invalidRows: rows,
	}
}

// IsValid reports whether no violation was found
func (r *Result) IsValid() bool {
	return len(r.errors) == 0
}

// Data returns the table as transformed by the rule
func (r *Result) Data() *domain.Table {
	return r.data
}

// Errors returns the violation messages in detection order
func (r *Result) Errors() []string {
	return append([]string(nil), r.errors...)
}

// InvalidRows returns, ascending, the rows that carry at least one cell violation
func (r *Result) InvalidRows() []int {
	return append([]int(nil), r.invalidRows...)
}

// ValidData returns Data without the rows listed by InvalidRows. Column
// types are inferred again on what remains.
func (r *Result) ValidData() *domain.Table {
	if len(r.invalidRows) == 0 {
		return r.data
	}
	skip := make(map[int]struct{}, len(r.invalidRows))
	for _, row := range r.invalidRows {
		skip[row] = struct{}{}
	}
	return r.data.FilterRows(func(row int) bool {
		_, bad := skip[row]
		return !bad
	}).WithInferredTypes()
}

func (r *Result) String() string {
	if r.IsValid() {
		return fmt.Sprintf("Validation successful: %d valid records", r.data.RowCount())
	}
	return fmt.Sprintf("Validation failed with %d errors", len(r.errors))
}

func configError(kind, format string, args ...any) error {
	msg := fmt.Sprintf("%s rule: %s", kind, fmt.Sprintf(format, args...))
	return apperrors.NewConfigError(msg, ErrInvalidRuleConfig)
}

func notFound(column string) string {
	return fmt.Sprintf("column '%s' not found", column)
}
