package dataprocessing

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datacheck/internal/shared/testutil"
	"datacheck/pkg/contracts/domain"
)

func TestAnalyzer_Summary(t *testing.T) {
	logger, handler := testutil.NewTestLogger(t)
	a := NewAnalyzer(logger)

	tbl, err := domain.NewTable(
		domain.Column{Name: "temp", Values: []any{21.5, nil, 30.0}},
		domain.Column{Name: "city", Values: []any{"Chicago", "Miami", nil}},
		domain.Column{Name: "day", Values: []any{testutil.Day(2023, 1, 1), testutil.Day(2023, 1, 2), testutil.Day(2023, 1, 3)}},
	)
	require.NoError(t, err)

	s := a.Summary(context.Background(), tbl)

	assert.Equal(t, 3, s.RowCount)
	assert.Equal(t, 3, s.ColumnCount)
	assert.Equal(t, []string{"temp", "city", "day"}, s.Columns)
	assert.Equal(t, map[string]int{"temp": 1, "city": 1, "day": 0}, s.MissingValues)
	assert.Equal(t, []string{"temp"}, s.NumericColumns)
	assert.Equal(t, []string{"city"}, s.CategoricalColumns)
	assert.Equal(t, []string{"day"}, s.DatetimeColumns)
	assert.Nil(t, s.ValidRowCount)

	testutil.AssertLogContains(t, handler, slog.LevelInfo, "generated data summary")
}

func TestAnalyzer_SummaryEmptyGroups(t *testing.T) {
	tbl, err := domain.NewTable(domain.Column{Name: "city", Values: []any{"a"}})
	require.NoError(t, err)

	s := NewAnalyzer(nil).Summary(context.Background(), tbl)
	raw, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"numeric_columns":[]`)
	assert.NotContains(t, string(raw), "valid_row_count")
}

func TestAnalyzer_NumericStats(t *testing.T) {
	tbl, err := domain.NewTable(
		domain.Column{Name: "x", Values: []any{-2.0, 0.0, 4.0, nil, 8.0}},
		domain.Column{Name: "y", Values: []any{1.0, 1.0, 1.0, 1.0, 1.0}},
		domain.Column{Name: "name", Values: []any{"a", "b", "c", "d", "e"}},
	)
	require.NoError(t, err)
	a := NewAnalyzer(nil)

	stats := a.NumericStats(context.Background(), tbl)
	require.Len(t, stats, 2)

	x := stats[0]
	assert.Equal(t, "x", x.Column)
	assert.Equal(t, -2.0, x.Min)
	assert.Equal(t, 8.0, x.Max)
	assert.InDelta(t, 2.5, x.Mean, 1e-9)
	assert.InDelta(t, 2.0, x.Median, 1e-9)
	assert.InDelta(t, math.Sqrt(59.0/3), x.Std, 1e-9)
	assert.Equal(t, 1, x.Missing)
	assert.Equal(t, 1, x.Zeros)
	assert.Equal(t, 1, x.Negatives)

	assert.Equal(t, 0.0, stats[1].Std)

	t.Run("explicit columns skip absent and non-numeric", func(t *testing.T) {
		got := a.NumericStats(context.Background(), tbl, "name", "missing", "y")
		require.Len(t, got, 1)
		assert.Equal(t, "y", got[0].Column)
	})
}

func TestAnalyzer_NumericStatsOnValidatedWeather(t *testing.T) {
	tbl := testutil.WeatherTable(t)
	valid := tbl.FilterRows(func(row int) bool { return row != 3 && row != 7 })
	valid, err := valid.WithValues("temperature", []any{25.5, 27.1, 22.3, 24.8, 26.2, 23.9, 28.7, 29.3, 24.1, 22.8, 25.0})
	require.NoError(t, err)

	stats := NewAnalyzer(nil).NumericStats(context.Background(), valid)
	require.Len(t, stats, 3)
	assert.Equal(t, "temperature", stats[0].Column)
	assert.Equal(t, 22.3, stats[0].Min)
	assert.Equal(t, 29.3, stats[0].Max)
	assert.InDelta(t, 25.4273, stats[0].Mean, 1e-4)
	assert.Equal(t, 0, stats[0].Missing)
}

func TestColumnStats_MarshalJSON(t *testing.T) {
	s := describe("single", numeric{values: []float64{5}, ok: []bool{true}})
	assert.True(t, math.IsNaN(s.Std))

	raw, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{"column":"single","min":5,"max":5,"mean":5,"median":5,"std":null,"missing":0,"zeros":0,"negatives":0}`, string(raw))
}

func TestAnalyzer_Correlation(t *testing.T) {
	tbl, err := domain.NewTable(
		domain.Column{Name: "a", Values: []any{1.0, 2.0, 3.0, 4.0}},
		domain.Column{Name: "b", Values: []any{2.0, 4.0, 6.0, nil}},
		domain.Column{Name: "c", Values: []any{4.0, 3.0, 2.0, 1.0}},
	)
	require.NoError(t, err)

	m, err := NewAnalyzer(nil).Correlation(tbl)
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "c"}, m.Columns)
	assert.Equal(t, 1.0, m.Values[0][0])
	assert.InDelta(t, 1.0, m.Values[0][1], 1e-9)
	assert.InDelta(t, -1.0, m.Values[0][2], 1e-9)
	assert.Equal(t, m.Values[1][2], m.Values[2][1])

	_, err = NewAnalyzer(nil).Correlation(tbl, "a", "nope")
	assert.EqualError(t, err, "column 'nope' not found")
}
