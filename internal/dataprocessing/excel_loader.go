package dataprocessing

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	apperrors "datacheck/internal/errors"
	"datacheck/pkg/contracts/domain"
)

// ExcelLoader reads one worksheet of an .xlsx or .xlsm workbook. The first
// non-empty row is the header.
type ExcelLoader struct {
	source
	sheet string
}

// NewExcelLoader creates an Excel loader for path
func NewExcelLoader(path string, opts LoaderOptions) *ExcelLoader {
	return &ExcelLoader{source: newSource(path, opts), sheet: opts.Sheet}
}

// Load reads the workbook into a table
func (l *ExcelLoader) Load(ctx context.Context) (*domain.Table, error) {
	if err := l.check(); err != nil {
		return nil, err
	}
	f, err := excelize.OpenFile(l.path)
	if err != nil {
		return nil, apperrors.NewParsingError(fmt.Sprintf("failed to open workbook %s", l.path), err)
	}
	defer f.Close()

	return l.fromWorkbook(ctx, f)
}

// Read parses a workbook from r
func (l *ExcelLoader) Read(ctx context.Context, r io.Reader) (*domain.Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, apperrors.NewParsingError(fmt.Sprintf("failed to open workbook %s", l.path), err)
	}
	defer f.Close()

	return l.fromWorkbook(ctx, f)
}

// Sheets lists the worksheet names of the workbook
func (l *ExcelLoader) Sheets() ([]string, error) {
	if err := l.check(); err != nil {
		return nil, err
	}
	f, err := excelize.OpenFile(l.path)
	if err != nil {
		return nil, apperrors.NewParsingError(fmt.Sprintf("failed to open workbook %s", l.path), err)
	}
	defer f.Close()
	return f.GetSheetList(), nil
}

func (l *ExcelLoader) fromWorkbook(ctx context.Context, f *excelize.File) (*domain.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sheet, err := l.pickSheet(f)
	if err != nil {
		return nil, err
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, apperrors.NewParsingError(fmt.Sprintf("failed to read sheet %s", sheet), err)
	}

	start := 0
	for start < len(rows) && blankRow(rows[start]) {
		start++
	}
	if start == len(rows) {
		return nil, apperrors.NewParsingError(fmt.Sprintf("%s: sheet %s has no header row", l.path, sheet), nil)
	}

	header := rows[start]
	records := rows[start+1:]
	for _, rec := range records {
		if len(rec) > len(header) {
			header = padRow(header, len(rec))
		}
	}

	tbl, err := buildTable(header, records)
	if err != nil {
		return nil, apperrors.NewParsingError(fmt.Sprintf("%s: invalid table", l.path), err)
	}
	l.logger.DebugContext(ctx, "worksheet selected", "sheet", sheet)
	l.loaded(ctx, "excel", tbl)
	return tbl, nil
}

func (l *ExcelLoader) pickSheet(f *excelize.File) (string, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return "", apperrors.NewParsingError(fmt.Sprintf("%s: workbook has no sheets", l.path), nil)
	}
	if l.sheet == "" {
		return sheets[0], nil
	}
	for _, sh := range sheets {
		if strings.EqualFold(sh, l.sheet) {
			return sh, nil
		}
	}
	return "", apperrors.NewNotFoundError(fmt.Sprintf("sheet '%s'", l.sheet))
}

func blankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func padRow(row []string, n int) []string {
	out := make([]string, n)
	copy(out, row)
	return out
}
