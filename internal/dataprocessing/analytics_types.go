package dataprocessing

import (
	"encoding/json"
	"math"
)

// DataSummary describes the shape of a table
type DataSummary struct {
	RowCount           int            `json:"row_count"`
	ColumnCount        int            `json:"column_count"`
	Columns            []string       `json:"columns"`
	MissingValues      map[string]int `json:"missing_values"`
	NumericColumns     []string       `json:"numeric_columns"`
	CategoricalColumns []string       `json:"categorical_columns"`
	DatetimeColumns    []string       `json:"datetime_columns"`
	// ValidRowCount is set when the summary describes a validated table
	ValidRowCount *int `json:"valid_row_count,omitempty"`
}

// ColumnStats holds the descriptive statistics of one numeric column.
// Statistics undefined for the column's values are NaN.
type ColumnStats struct {
	Column    string  `json:"column"`
	Min       float64 `json:"min"`
	Max       float64 `json:"max"`
	Mean      float64 `json:"mean"`
	Median    float64 `json:"median"`
	Std       float64 `json:"std"`
	Missing   int     `json:"missing"`
	Zeros     int     `json:"zeros"`
	Negatives int     `json:"negatives"`
}

// MarshalJSON writes NaN statistics as null
func (s ColumnStats) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Column    string   `json:"column"`
		Min       *float64 `json:"min"`
		Max       *float64 `json:"max"`
		Mean      *float64 `json:"mean"`
		Median    *float64 `json:"median"`
		Std       *float64 `json:"std"`
		Missing   int      `json:"missing"`
		Zeros     int      `json:"zeros"`
		Negatives int      `json:"negatives"`
	}{
		Column:    s.Column,
		Min:       finite(s.Min),
		Max:       finite(s.Max),
		Mean:      finite(s.Mean),
		Median:    finite(s.Median),
		Std:       finite(s.Std),
		Missing:   s.Missing,
		Zeros:     s.Zeros,
		Negatives: s.Negatives,
	})
}

func finite(f float64) *float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// CorrelationMatrix holds pairwise Pearson correlations. Values[i][j]
// correlates Columns[i] with Columns[j].
type CorrelationMatrix struct {
	Columns []string
	Values  [][]float64
}
