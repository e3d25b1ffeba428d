package dataprocessing

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	apperrors "datacheck/internal/errors"
	"datacheck/internal/shared/testutil"
	"datacheck/pkg/contracts/domain"
)

func TestNewLoader(t *testing.T) {
	tests := []struct {
		path     string
		wantType any
		wantErr  bool
	}{
		{path: "data.csv", wantType: &CSVLoader{}},
		{path: "DATA.CSV", wantType: &CSVLoader{}},
		{path: "data.json", wantType: &JSONLoader{}},
		{path: "book.xlsx", wantType: &ExcelLoader{}},
		{path: "book.xlsm", wantType: &ExcelLoader{}},
		{path: "legacy.xls", wantErr: true},
		{path: "notes.txt", wantErr: true},
		{path: "noext", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			l, err := NewLoader(tt.path, LoaderOptions{})
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrUnsupportedFormat)
				assert.Equal(t, "unsupported file format: "+tt.path, err.Error())
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.wantType, l)
			assert.Equal(t, tt.path, l.Path())
		})
	}
}

func TestCSVLoader_Weather(t *testing.T) {
	logger, handler := testutil.NewTestLogger(t)
	path := testutil.WriteFile(t, "weather.csv", testutil.WeatherCSV)

	l, err := NewLoader(path, LoaderOptions{Logger: logger})
	require.NoError(t, err)

	tbl, err := l.Load(context.Background())
	require.NoError(t, err)

	assert.True(t, testutil.WeatherTable(t).Equal(tbl))
	assert.Equal(t, []string{"humidity", "precipitation"}, tbl.ColumnsOfType(domain.ColumnTypeNumeric))

	testutil.AssertLogContains(t, handler, slog.LevelInfo, "dataset loaded")
	testutil.AssertLogAttr(t, handler, "rows", int64(13))
}

func TestCSVLoader_Shapes(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		delimiter rune
		columns   []string
		check     func(t *testing.T, tbl *domain.Table)
	}{
		{
			name:    "utf8 bom is stripped",
			content: "\ufeffid,name\n1,a\n2,b\n",
			columns: []string{"id", "name"},
			check: func(t *testing.T, tbl *domain.Table) {
				ids, _ := tbl.Values("id")
				assert.Equal(t, []any{1.0, 2.0}, ids)
			},
		},
		{
			name:      "semicolon delimiter",
			content:   "a;b\n1;x\n",
			delimiter: ';',
			columns:   []string{"a", "b"},
		},
		{
			name:    "empty cells are missing",
			content: "a,b\n1,\n,y\n",
			columns: []string{"a", "b"},
			check: func(t *testing.T, tbl *domain.Table) {
				a, _ := tbl.Values("a")
				assert.Equal(t, []any{1.0, nil}, a)
				b, _ := tbl.Values("b")
				assert.Equal(t, []any{nil, "y"}, b)
			},
		},
		{
			name:    "short rows are padded",
			content: "a,b,c\n1,2\n4,5,6\n",
			columns: []string{"a", "b", "c"},
			check: func(t *testing.T, tbl *domain.Table) {
				c, _ := tbl.Values("c")
				assert.Equal(t, []any{nil, 6.0}, c)
			},
		},
		{
			name:    "duplicate and blank headers",
			content: "x,x,,x\n1,2,3,4\n",
			columns: []string{"x", "x.1", "Unnamed: 2", "x.2"},
		},
		{
			name:    "header only",
			content: "a,b\n",
			columns: []string{"a", "b"},
			check: func(t *testing.T, tbl *domain.Table) {
				assert.Equal(t, 0, tbl.RowCount())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := testutil.WriteFile(t, "data.csv", tt.content)
			l := NewCSVLoader(path, LoaderOptions{Delimiter: tt.delimiter})

			tbl, err := l.Load(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.columns, tbl.Columns())
			if tt.check != nil {
				tt.check(t, tbl)
			}
		})
	}
}

func TestCSVLoader_Errors(t *testing.T) {
	t.Run("empty file", func(t *testing.T) {
		path := testutil.WriteFile(t, "empty.csv", "")
		_, err := NewCSVLoader(path, LoaderOptions{}).Load(context.Background())
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrTypeParsing))
	})

	t.Run("missing file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nope.csv")
		_, err := NewCSVLoader(path, LoaderOptions{}).Load(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "does not exist")
	})

	t.Run("malformed quoting", func(t *testing.T) {
		path := testutil.WriteFile(t, "bad.csv", "a,b\n\"1,2\n")
		_, err := NewCSVLoader(path, LoaderOptions{}).Load(context.Background())
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrTypeParsing))
	})

	t.Run("canceled context", func(t *testing.T) {
		path := testutil.WriteFile(t, "weather.csv", testutil.WeatherCSV)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := NewCSVLoader(path, LoaderOptions{}).Load(ctx)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestCSVLoader_LoadRaw(t *testing.T) {
	path := testutil.WriteFile(t, "weather.csv", testutil.WeatherCSV)

	records, err := NewCSVLoader(path, LoaderOptions{}).LoadRaw(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 14)
	assert.Equal(t, []string{"date", "temperature", "humidity", "precipitation", "location"}, records[0])
	assert.Equal(t, "invalid", records[4][1])
}

func TestJSONLoader(t *testing.T) {
	tests := []struct {
		name    string
		content string
		columns []string
		check   func(t *testing.T, tbl *domain.Table)
	}{
		{
			name:    "records keep first-seen key order",
			content: `[{"b": "x", "a": 1}, {"a": 2.5, "c": null}, {"c": true}]`,
			columns: []string{"b", "a", "c"},
			check: func(t *testing.T, tbl *domain.Table) {
				assert.Equal(t, 3, tbl.RowCount())
				a, _ := tbl.Values("a")
				assert.Equal(t, []any{1.0, 2.5, nil}, a)
				b, _ := tbl.Values("b")
				assert.Equal(t, []any{"x", nil, nil}, b)
				c, _ := tbl.Values("c")
				assert.Equal(t, []any{nil, nil, true}, c)
			},
		},
		{
			name:    "columns form",
			content: `{"temp": [21, "22.5", null], "city": ["Miami", ""]}`,
			columns: []string{"temp", "city"},
			check: func(t *testing.T, tbl *domain.Table) {
				temp, _ := tbl.Values("temp")
				assert.Equal(t, []any{21.0, 22.5, nil}, temp)
				city, _ := tbl.Values("city")
				assert.Equal(t, []any{"Miami", nil, nil}, city)
				ct, _ := tbl.Type("temp")
				assert.Equal(t, domain.ColumnTypeNumeric, ct)
			},
		},
		{
			name:    "nested values become json text",
			content: `[{"tags": ["a", "b"]}]`,
			columns: []string{"tags"},
			check: func(t *testing.T, tbl *domain.Table) {
				tags, _ := tbl.Values("tags")
				assert.Equal(t, []any{`["a","b"]`}, tags)
			},
		},
		{
			name:    "empty array",
			content: `[]`,
			columns: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := testutil.WriteFile(t, "data.json", tt.content)
			tbl, err := NewJSONLoader(path, LoaderOptions{}).Load(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.columns, tbl.Columns())
			if tt.check != nil {
				tt.check(t, tbl)
			}
		})
	}
}

func TestJSONLoader_Errors(t *testing.T) {
	for name, content := range map[string]string{
		"scalar":         `42`,
		"record scalar":  `[1, 2]`,
		"truncated":      `[{"a": 1}`,
		"column scalars": `{"a": 1}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := NewJSONLoader("upload.json", LoaderOptions{}).Read(context.Background(), strings.NewReader(content))
			require.Error(t, err)
			assert.True(t, apperrors.IsType(err, apperrors.ErrTypeParsing))
		})
	}
}

func writeWorkbook(t *testing.T, sheets map[string][][]any) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "book.xlsx")
	f := excelize.NewFile()
	defer f.Close()

	for name, rows := range sheets {
		if name != "Sheet1" {
			_, err := f.NewSheet(name)
			require.NoError(t, err)
		}
		for r, row := range rows {
			for c, v := range row {
				cell, err := excelize.CoordinatesToCellName(c+1, r+1)
				require.NoError(t, err)
				require.NoError(t, f.SetCellValue(name, cell, v))
			}
		}
	}
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestExcelLoader(t *testing.T) {
	path := writeWorkbook(t, map[string][][]any{
		"Sheet1": {
			{"city", "temp", "note"},
			{"Chicago", 21.5, "cold"},
			{"Miami", 30},
		},
		"Extra": {
			{},
			{"id"},
			{7},
		},
	})

	t.Run("first sheet by default", func(t *testing.T) {
		l, err := NewLoader(path, LoaderOptions{})
		require.NoError(t, err)
		got, err := l.Load(context.Background())
		require.NoError(t, err)

		assert.Equal(t, []string{"city", "temp", "note"}, got.Columns())
		temp, _ := got.Values("temp")
		assert.Equal(t, []any{21.5, 30.0}, temp)
		note, _ := got.Values("note")
		assert.Equal(t, []any{"cold", nil}, note)
	})

	t.Run("sheet by name skips leading blank rows", func(t *testing.T) {
		got, err := NewExcelLoader(path, LoaderOptions{Sheet: "extra"}).Load(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"id"}, got.Columns())
		ids, _ := got.Values("id")
		assert.Equal(t, []any{7.0}, ids)
	})

	t.Run("unknown sheet", func(t *testing.T) {
		_, err := NewExcelLoader(path, LoaderOptions{Sheet: "Missing"}).Load(context.Background())
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrTypeNotFound))
	})

	t.Run("sheet list", func(t *testing.T) {
		sheets, err := NewExcelLoader(path, LoaderOptions{}).Sheets()
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"Sheet1", "Extra"}, sheets)
	})

	t.Run("not a workbook", func(t *testing.T) {
		bad := testutil.WriteFile(t, "bad.xlsx", "plain text")
		_, err := NewExcelLoader(bad, LoaderOptions{}).Load(context.Background())
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrTypeParsing))
	})
}

func TestReadNamedAndPreview(t *testing.T) {
	tbl, err := ReadNamed(context.Background(), "upload.csv", strings.NewReader(testutil.WeatherCSV), LoaderOptions{})
	require.NoError(t, err)
	assert.Equal(t, 13, tbl.RowCount())

	_, err = ReadNamed(context.Background(), "upload.parquet", strings.NewReader(""), LoaderOptions{})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	path := testutil.WriteFile(t, "weather.csv", testutil.WeatherCSV)
	head, err := Preview(context.Background(), NewCSVLoader(path, LoaderOptions{}), 5)
	require.NoError(t, err)
	assert.Equal(t, 5, head.RowCount())
}
