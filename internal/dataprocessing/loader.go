package dataprocessing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"datacheck/internal/validation"
	"datacheck/pkg/contracts/domain"
)

// ErrUnsupportedFormat is returned for files whose extension no loader handles
var ErrUnsupportedFormat = errors.New("unsupported file format")

// Loader reads a dataset into a table
type Loader interface {
	// Load opens the source and parses it
	Load(ctx context.Context) (*domain.Table, error)
	// Read parses an already opened source
	Read(ctx context.Context, r io.Reader) (*domain.Table, error)
	// Path returns the source path
	Path() string
}

// LoaderOptions configures the loaders built by NewLoader
type LoaderOptions struct {
	// Delimiter separates CSV fields. Zero means ','.
	Delimiter rune
	// Sheet selects the Excel worksheet. Empty means the first sheet.
	Sheet string
	Logger *slog.Logger
}

func (o LoaderOptions) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

// Extensions lists the file extensions NewLoader accepts
var Extensions = []string{".csv", ".json", ".xlsx", ".xlsm"}

// NewLoader picks a loader from the file extension of path
func NewLoader(path string, opts LoaderOptions) (Loader, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return NewCSVLoader(path, opts), nil
	case ".json":
		return NewJSONLoader(path, opts), nil
	case ".xlsx", ".xlsm":
		return NewExcelLoader(path, opts), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// Preview loads the source and returns at most its first n rows
func Preview(ctx context.Context, l Loader, n int) (*domain.Table, error) {
	tbl, err := l.Load(ctx)
	if err != nil {
		return nil, err
	}
	return tbl.Head(n), nil
}

// source is the file handling shared by every loader
type source struct {
	path   string
	logger *slog.Logger
	files  *validation.FileValidator
}

func newSource(path string, opts LoaderOptions) source {
	logger := opts.logger().With(slog.String("component", "loader"))
	return source{
		path:   path,
		logger: logger,
		files:  validation.NewFileValidator(logger),
	}
}

func (s source) Path() string { return s.path }

func (s source) check() error {
	return s.files.ValidateFileType(s.path, Extensions...)
}

func (s source) loaded(ctx context.Context, format string, tbl *domain.Table) {
	s.logger.InfoContext(ctx, "dataset loaded",
		slog.String("path", s.path),
		slog.String("format", format),
		slog.Int("rows", tbl.RowCount()),
		slog.Int("columns", tbl.ColumnCount()))
}

// buildTable turns a header and string records into a table. Empty cells
// become nil; columns whose present cells all parse as numbers become float64.
func buildTable(header []string, records [][]string) (*domain.Table, error) {
	names := uniqueHeaders(header)
	columns := make([]domain.Column, len(names))
	for c, name := range names {
		values := make([]any, len(records))
		for r, rec := range records {
			if c < len(rec) {
				values[r] = cellFromString(rec[c])
			}
		}
		columns[c] = domain.Column{Name: name, Values: coerceNumeric(values)}
	}
	return domain.NewTable(columns...)
}

func cellFromString(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}

// coerceNumeric converts the column to float64 when every present cell is a
// number or numeric text. Otherwise the cells are returned as they were.
func coerceNumeric(values []any) []any {
	out := make([]any, len(values))
	present := 0
	for i, v := range values {
		if domain.IsMissing(v) {
			continue
		}
		present++
		switch x := v.(type) {
		case float64:
			out[i] = x
		case string:
			f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
			if err != nil {
				return values
			}
			out[i] = f
		default:
			return values
		}
	}
	if present == 0 {
		return values
	}
	return out
}

// uniqueHeaders names blank headers "Unnamed: <i>" and suffixes repeats
// with ".1", ".2" and so on
func uniqueHeaders(header []string) []string {
	seen := make(map[string]int, len(header))
	names := make([]string, len(header))
	for i, h := range header {
		base := strings.TrimSpace(h)
		if base == "" {
			base = fmt.Sprintf("Unnamed: %d", i)
		}
		name := base
		if n, dup := seen[base]; dup {
			name = fmt.Sprintf("%s.%d", base, n)
			seen[base] = n + 1
		} else {
			seen[base] = 1
		}
		names[i] = name
	}
	return names
}

// ReadNamed parses r with the loader that NewLoader would pick for name.
// It serves uploads, where name is the client-supplied file name.
func ReadNamed(ctx context.Context, name string, r io.Reader, opts LoaderOptions) (*domain.Table, error) {
	l, err := NewLoader(name, opts)
	if err != nil {
		return nil, err
	}
	return l.Read(ctx, r)
}
