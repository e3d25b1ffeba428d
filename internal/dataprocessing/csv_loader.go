package dataprocessing

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	apperrors "datacheck/internal/errors"
	"datacheck/pkg/contracts/domain"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVLoader reads delimited text with a header row
type CSVLoader struct {
	source
	delimiter rune
}

// NewCSVLoader creates a CSV loader for path
func NewCSVLoader(path string, opts LoaderOptions) *CSVLoader {
	delim := opts.Delimiter
	if delim == 0 {
		delim = ','
	}
	return &CSVLoader{source: newSource(path, opts), delimiter: delim}
}

// Load reads the file into a table
func (l *CSVLoader) Load(ctx context.Context) (*domain.Table, error) {
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

// Read parses CSV from r
func (l *CSVLoader) Read(ctx context.Context, r io.Reader) (*domain.Table, error) {
	records, err := l.readRecords(ctx, r)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, apperrors.NewParsingError(fmt.Sprintf("%s: no header row", l.path), nil)
	}

	tbl, err := buildTable(records[0], records[1:])
	if err != nil {
		return nil, apperrors.NewParsingError(fmt.Sprintf("%s: invalid table", l.path), err)
	}
	l.loaded(ctx, "csv", tbl)
	return tbl, nil
}

// LoadRaw returns every record of the file, header included, without any conversion
func (l *CSVLoader) LoadRaw(ctx context.Context) ([][]string, error) {
	if err := l.check(); err != nil {
		return nil, err
	}
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", l.path, err)
	}
	defer f.Close()

	return l.readRecords(ctx, f)
}

func (l *CSVLoader) readRecords(ctx context.Context, r io.Reader) ([][]string, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		br.Discard(len(utf8BOM))
	}

	reader := csv.NewReader(br)
	reader.Comma = l.delimiter
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var records [][]string
	for {
		if len(records)%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, apperrors.NewParsingError(fmt.Sprintf("failed to read CSV %s", l.path), err)
		}
		records = append(records, rec)
	}
	return records, nil
}
