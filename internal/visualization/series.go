package visualization

import (
	"fmt"
	"time"

	"datacheck/pkg/contracts/domain"
)

// column reads a column or reports it missing
func column(tbl *domain.Table, name string) ([]any, domain.ColumnType, error) {
	values, ok := tbl.Values(name)
	if !ok {
		return nil, "", fmt.Errorf("column '%s' not found", name)
	}
	ct, _ := tbl.Type(name)
	return values, ct, nil
}

// numbers reads a column as float64; ok is false for missing or non-numeric cells
func numbers(tbl *domain.Table, name string) (vals []float64, ok []bool, err error) {
	values, _, err := column(tbl, name)
	if err != nil {
		return nil, nil, err
	}
	vals = make([]float64, len(values))
	ok = make([]bool, len(values))
	found := false
	for i, v := range values {
		if f, good := domain.ToFloat(v); good {
			vals[i], ok[i] = f, true
			found = true
		}
	}
	if !found && len(values) > 0 {
		return nil, nil, fmt.Errorf("column '%s' has no numeric values", name)
	}
	return vals, ok, nil
}

// xAxis is the x position of each row and how to label it
type xAxis struct {
	values []float64
	ok     []bool
	labels []string // set for label axes
	times  bool     // values are Unix seconds
}

// readX turns the x column into positions. Numeric columns are used as is,
// datetime columns become Unix seconds and anything else becomes evenly
// spaced labelled positions. An empty name means the row index.
func readX(tbl *domain.Table, name string) (xAxis, error) {
	n := tbl.RowCount()
	if name == "" {
		ax := xAxis{values: make([]float64, n), ok: make([]bool, n)}
		for i := range ax.values {
			ax.values[i], ax.ok[i] = float64(i), true
		}
		return ax, nil
	}

	values, ct, err := column(tbl, name)
	if err != nil {
		return xAxis{}, err
	}
	ax := xAxis{values: make([]float64, n), ok: make([]bool, n)}
	switch ct {
	case domain.ColumnTypeNumeric:
		for i, v := range values {
			ax.values[i], ax.ok[i] = domain.ToFloat(v)
		}
	case domain.ColumnTypeDatetime:
		ax.times = true
		for i, v := range values {
			if t, ok := v.(time.Time); ok && !t.IsZero() {
				ax.values[i] = float64(t.Unix())
				ax.ok[i] = true
			}
		}
	default:
		ax.labels = make([]string, n)
		for i, v := range values {
			ax.values[i], ax.ok[i] = float64(i), true
			ax.labels[i] = domain.CellString(v)
		}
	}
	return ax, nil
}

// labels returns one label per row, the row index when name is empty
func labels(tbl *domain.Table, name string) ([]string, error) {
	out := make([]string, tbl.RowCount())
	if name == "" {
		for i := range out {
			out[i] = fmt.Sprintf("%d", i)
		}
		return out, nil
	}
	values, _, err := column(tbl, name)
	if err != nil {
		return nil, err
	}
	for i, v := range values {
		out[i] = domain.CellString(v)
	}
	return out, nil
}
