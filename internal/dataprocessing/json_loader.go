package dataprocessing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	apperrors "datacheck/internal/errors"
	"datacheck/pkg/contracts/domain"
)

// JSONLoader reads either an array of records, [{"a": 1}, ...], or an
// object of columns, {"a": [1, ...]}. Column order follows first appearance.
type JSONLoader struct {
	source
}

// NewJSONLoader creates a JSON loader for path
func NewJSONLoader(path string, opts LoaderOptions) *JSONLoader {
	return &JSONLoader{source: newSource(path, opts)}
}

// Load reads the file into a table
func (l *JSONLoader) Load(ctx context.Context) (*domain.Table, error) {
	if err := l.check(); err != nil {
		return nil, err
	}
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", l.path, err)
	}
	defer f.Close()

	return l.Read(ctx, f)
}

// Read parses JSON from r
func (l *JSONLoader) Read(ctx context.Context, r io.Reader) (*domain.Table, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, l.parseError(err)
	}

	var cols *orderedColumns
	switch tok {
	case json.Delim('['):
		cols, err = l.readRecords(ctx, dec)
	case json.Delim('{'):
		cols, err = l.readColumns(dec)
	default:
		err = fmt.Errorf("expected an array of records or an object of columns, got %v", tok)
	}
	if err != nil {
		return nil, l.parseError(err)
	}

	tbl, err := cols.table()
	if err != nil {
		return nil, l.parseError(err)
	}
	l.loaded(ctx, "json", tbl)
	return tbl, nil
}

func (l *JSONLoader) parseError(err error) error {
	return apperrors.NewParsingError(fmt.Sprintf("failed to read JSON %s", l.path), err)
}

func (l *JSONLoader) readRecords(ctx context.Context, dec *json.Decoder) (*orderedColumns, error) {
	cols := newOrderedColumns()
	row := 0
	for dec.More() {
		if row%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		if tok != json.Delim('{') {
			return nil, fmt.Errorf("record %d is not an object", row)
		}
		for dec.More() {
			key, err := objectKey(dec)
			if err != nil {
				return nil, err
			}
			var v any
			if err := dec.Decode(&v); err != nil {
				return nil, err
			}
			cols.set(key, row, jsonCell(v))
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		row++
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	cols.rows = row
	return cols, nil
}

func (l *JSONLoader) readColumns(dec *json.Decoder) (*orderedColumns, error) {
	cols := newOrderedColumns()
	for dec.More() {
		key, err := objectKey(dec)
		if err != nil {
			return nil, err
		}
		var values []any
		if err := dec.Decode(&values); err != nil {
			return nil, fmt.Errorf("column %s: %w", key, err)
		}
		if len(values) > cols.rows {
			cols.rows = len(values)
		}
		for i, v := range values {
			cols.set(key, i, jsonCell(v))
		}
		cols.touch(key)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return cols, nil
}

func objectKey(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", err
	}
	key, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("expected object key, got %v", tok)
	}
	return key, nil
}

// jsonCell maps decoded JSON onto table cells. Nested values are kept as
// their JSON text.
func jsonCell(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case json.Number:
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case string:
		return cellFromString(x)
	case bool:
		return x
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprintf("%v", x)
		}
		return string(b)
	}
}

type orderedColumns struct {
	names []string
	cells map[string]map[int]any
	rows  int
}

func newOrderedColumns() *orderedColumns {
	return &orderedColumns{cells: make(map[string]map[int]any)}
}

func (c *orderedColumns) touch(name string) {
	if _, ok := c.cells[name]; !ok {
		c.names = append(c.names, name)
		c.cells[name] = make(map[int]any)
	}
}

func (c *orderedColumns) set(name string, row int, v any) {
	c.touch(name)
	c.cells[name][row] = v
}

func (c *orderedColumns) table() (*domain.Table, error) {
	columns := make([]domain.Column, len(c.names))
	for i, name := range c.names {
		values := make([]any, c.rows)
		for row, v := range c.cells[name] {
			values[row] = v
		}
		columns[i] = domain.Column{Name: name, Values: coerceNumeric(values)}
	}
	return domain.NewTable(columns...)
}
