package domain

import (
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ColumnType classifies the values held by a column
type ColumnType string

const (
	ColumnTypeNumeric     ColumnType = "numeric"
	ColumnTypeCategorical ColumnType = "categorical"
	ColumnTypeDatetime    ColumnType = "datetime"
)

// Column is a named, typed sequence of cell values
type Column struct {
	Name   string     `json:"name"`
	Type   ColumnType `json:"type"`
	Values []any      `json:"values"`
}

// Table is a rectangular, row-ordered, in-memory dataset with uniquely named columns.
// Cells are positionally aligned across columns. A Table is never modified in place:
// every transforming method returns a new Table and readers receive copies.
type Table struct {
	columns []Column
	index   map[string]int
	rows    int
}

// NewTable builds a table from the given columns. Column types left empty are inferred.
func NewTable(columns ...Column) (*Table, error) {
	t := &Table{
		columns: make([]Column, 0, len(columns)),
		index:   make(map[string]int, len(columns)),
	}

	for i, col := range columns {
		if col.Name == "" {
			return nil, fmt.Errorf("column %d has an empty name", i)
		}
		if _, exists := t.index[col.Name]; exists {
			return nil, fmt.Errorf("duplicate column name: %s", col.Name)
		}
		if i == 0 {
			t.rows = len(col.Values)
		} else if len(col.Values) != t.rows {
			return nil, fmt.Errorf("column %s has %d rows, expected %d", col.Name, len(col.Values), t.rows)
		}

		values := copyValues(col.Values)
		colType := col.Type
		if colType == "" {
			colType = InferColumnType(values)
		}

		t.index[col.Name] = len(t.columns)
		t.columns = append(t.columns, Column{Name: col.Name, Type: colType, Values: values})
	}

	return t, nil
}

// MustNewTable is like NewTable but panics on error. Intended for fixtures.
func MustNewTable(columns ...Column) *Table {
	t, err := NewTable(columns...)
	if err != nil {
		panic(err)
	}
	return t
}

// Columns returns the column names in order
func (t *Table) Columns() []string {
	names := make([]string, len(t.columns))
	for i, col := range t.columns {
		names[i] = col.Name
	}
	return names
}

// ColumnCount returns the number of columns
func (t *Table) ColumnCount() int {
	return len(t.columns)
}

// RowCount returns the number of rows
func (t *Table) RowCount() int {
	return t.rows
}

// HasColumn reports whether the table has a column with the given name
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Column returns a copy of the named column
func (t *Table) Column(name string) (Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return Column{}, false
	}
	col := t.columns[i]
	return Column{Name: col.Name, Type: col.Type, Values: copyValues(col.Values)}, true
}

// Values returns a copy of the named column's cells
func (t *Table) Values(name string) ([]any, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return copyValues(t.columns[i].Values), true
}

// Type returns the type tag of the named column
func (t *Table) Type(name string) (ColumnType, bool) {
	i, ok := t.index[name]
	if !ok {
		return "", false
	}
	return t.columns[i].Type, true
}

// ColumnsOfType returns, in table order, the names of the columns tagged with ct
func (t *Table) ColumnsOfType(ct ColumnType) []string {
	var names []string
	for _, col := range t.columns {
		if col.Type == ct {
			names = append(names, col.Name)
		}
	}
	return names
}

// Row returns the cells of row i in column order
func (t *Table) Row(i int) []any {
	if i < 0 || i >= t.rows {
		return nil
	}
	row := make([]any, len(t.columns))
	for c, col := range t.columns {
		row[c] = col.Values[i]
	}
	return row
}

// WithValues returns a new table in which the named column holds values.
// The column keeps its position; its type tag is re-inferred.
func (t *Table) WithValues(name string, values []any) (*Table, error) {
	i, ok := t.index[name]
	if !ok {
		return nil, fmt.Errorf("column '%s' not found", name)
	}
	if len(values) != t.rows {
		return nil, fmt.Errorf("column %s: got %d values, expected %d", name, len(values), t.rows)
	}

	out := t.Clone()
	vals := copyValues(values)
	out.columns[i] = Column{Name: name, Type: InferColumnType(vals), Values: vals}
	return out, nil
}

// FilterRows returns a new table holding only the rows for which keep returns true.
// Row order is preserved; kept rows are renumbered from zero.
func (t *Table) FilterRows(keep func(row int) bool) *Table {
	kept := make([]int, 0, t.rows)
	for r := 0; r < t.rows; r++ {
		if keep(r) {
			kept = append(kept, r)
		}
	}

	out := &Table{
		columns: make([]Column, len(t.columns)),
		index:   make(map[string]int, len(t.index)),
		rows:    len(kept),
	}
	for c, col := range t.columns {
		values := make([]any, len(kept))
		for j, r := range kept {
			values[j] = col.Values[r]
		}
		out.columns[c] = Column{Name: col.Name, Type: col.Type, Values: values}
		out.index[col.Name] = c
	}
	return out
}

// Head returns a table with at most the first n rows
func (t *Table) Head(n int) *Table {
	return t.FilterRows(func(row int) bool { return row < n })
}

// WithInferredTypes returns a copy of the table with every column's type tag
// inferred from its current cells
func (t *Table) WithInferredTypes() *Table {
	out := t.Clone()
	for i, col := range out.columns {
		out.columns[i].Type = InferColumnType(col.Values)
	}
	return out
}

// Clone returns a deep copy of the table's structure and cell slices
func (t *Table) Clone() *Table {
	out := &Table{
		columns: make([]Column, len(t.columns)),
		index:   make(map[string]int, len(t.index)),
		rows:    t.rows,
	}
	for i, col := range t.columns {
		out.columns[i] = Column{Name: col.Name, Type: col.Type, Values: copyValues(col.Values)}
		out.index[col.Name] = i
	}
	return out
}

// Equal reports whether both tables have the same columns, types and cells
func (t *Table) Equal(other *Table) bool {
	if t == nil || other == nil {
		return t == other
	}
	if t.rows != other.rows || len(t.columns) != len(other.columns) {
		return false
	}
	for i, col := range t.columns {
		o := other.columns[i]
		if col.Name != o.Name || col.Type != o.Type {
			return false
		}
		for r := range col.Values {
			if !cellEqual(col.Values[r], o.Values[r]) {
				return false
			}
		}
	}
	return true
}

// InferColumnType classifies a column: numeric when every present cell is a number,
// datetime when every present cell is a time, categorical otherwise.
// A column without any present cell is categorical.
func InferColumnType(values []any) ColumnType {
	present := 0
	numeric, datetime := true, true
	for _, v := range values {
		if IsMissing(v) {
			continue
		}
		present++
		switch v.(type) {
		case float64, float32, int, int64, int32:
			datetime = false
		case time.Time:
			numeric = false
		default:
			numeric, datetime = false, false
		}
	}

	switch {
	case present == 0:
		return ColumnTypeCategorical
	case numeric:
		return ColumnTypeNumeric
	case datetime:
		return ColumnTypeDatetime
	default:
		return ColumnTypeCategorical
	}
}

// IsMissing reports whether a cell holds no value
func IsMissing(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case float64:
		return math.IsNaN(x)
	case time.Time:
		return x.IsZero()
	}
	return false
}

// CellString renders a cell the way it appears in messages and exports.
// Missing cells render as the empty string.
func CellString(v any) string {
	if IsMissing(v) {
		return ""
	}
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			return x.Format("2006-01-02")
		}
		return x.Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", x)
	}
}

// groupedNumber matches a decimal with comma thousands separators in groups of three
var groupedNumber = regexp.MustCompile(`^[+-]?\d{1,3}(,\d{3})+(\.\d*)?([eE][+-]?\d+)?$`)

// ToFloat converts a cell to a float64. Strings are trimmed and may carry thousands separators.
func ToFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) {
			return 0, false
		}
		return x, true
	case float32:
		return float64(x), true
	case int64:
		return float64(x), true
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case string:
		s := strings.TrimSpace(x)
		if strings.Contains(s, ",") {
			if !groupedNumber.MatchString(s) {
				return 0, false
			}
			s = strings.ReplaceAll(s, ",", "")
		}
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

func copyValues(values []any) []any {
	out := make([]any, len(values))
	copy(out, values)
	return out
}

func cellEqual(a, b any) bool {
	if IsMissing(a) && IsMissing(b) {
		return true
	}
	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		return ok && ta.Equal(tb)
	}
	return reflect.DeepEqual(a, b)
}
