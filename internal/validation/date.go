package validation

import (
	"fmt"
	"strings"
	"time"

	"github.com/itchyny/timefmt-go"

	"datacheck/pkg/contracts/domain"
)

// DefaultDateFormat is used when a Date rule is given no format
const DefaultDateFormat = "%Y-%m-%d"

// strftime directives the parser understands
const supportedDirectives = "YyCmdejHIMSfpbBhaAzZFTDRnt%"

// Date requires cells to parse with a strftime format and, optionally, to
// fall within an inclusive [start, end] window. Parsed cells are coerced to
// time.Time.
type Date struct {
	columns []string
	format  string
	start   string
	end     string
}

// DateOption configures a Date rule
type DateOption func(*Date)

// WithFormat sets the strftime format cells must match
func WithFormat(format string) DateOption {
	return func(d *Date) { d.format = format }
}

// WithStart sets the earliest accepted date, written in the rule's format
func WithStart(start string) DateOption {
	return func(d *Date) { d.start = start }
}

// WithEnd sets the latest accepted date, written in the rule's format
func WithEnd(end string) DateOption {
	return func(d *Date) { d.end = end }
}

// NewDate creates a date rule. With no columns it scans datetime columns and
// text columns whose cells mostly parse with the format.
func NewDate(columns []string, opts ...DateOption) *Date {
	d := &Date{
		columns: append([]string(nil), columns...),
		format:  DefaultDateFormat,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.format == "" {
		d.format = DefaultDateFormat
	}
	return d
}

func (d *Date) Kind() string { return KindDate }

// Format returns the strftime format the rule parses with
func (d *Date) Format() string { return d.format }

type dateWindow struct {
	start, end *time.Time
}

// compile checks the format and parses the window bounds
func (d *Date) compile() (dateWindow, error) {
	var w dateWindow
	if err := checkFormat(d.format); err != nil {
		return w, configError(KindDate, "%v", err)
	}

	parseBound := func(name, value string) (*time.Time, error) {
		if value == "" {
			return nil, nil
		}
		t, err := d.parseString(value)
		if err != nil {
			return nil, configError(KindDate, "%s date '%s' does not match format '%s'", name, value, d.format)
		}
		return &t, nil
	}

	var err error
	if w.start, err = parseBound("start", d.start); err != nil {
		return w, err
	}
	if w.end, err = parseBound("end", d.end); err != nil {
		return w, err
	}
	if w.start != nil && w.end != nil && w.start.After(*w.end) {
		return w, configError(KindDate, "start date '%s' is after end date '%s'", d.start, d.end)
	}
	return w, nil
}

func (d *Date) Validate(table *domain.Table) (*Result, error) {
	if table == nil {
		return nil, configError(KindDate, "nil table")
	}
	window, err := d.compile()
	if err != nil {
		return nil, err
	}

	var errs []string
	invalid := make(map[int]struct{})
	out := table

	for _, column := range resolveColumns(table, d.columns, d.looksDate) {
		values, ok := out.Values(column)
		if !ok {
			errs = append(errs, notFound(column))
			continue
		}

		for row, cell := range values {
			t, ok := d.parse(cell)
			if !ok {
				errs = append(errs, fmt.Sprintf("Row %d: '%s' is not a valid date in format '%s'", row, domain.CellString(cell), d.format))
				invalid[row] = struct{}{}
				continue
			}
			values[row] = t
			if !window.contains(t) {
				errs = append(errs, fmt.Sprintf("Row %d: date %s in column '%s' is outside allowed range [%s, %s]",
					row, timefmt.Format(t, d.format), column, d.boundString(window.start, "-inf"), d.boundString(window.end, "inf")))
				invalid[row] = struct{}{}
			}
		}

		next, err := out.WithValues(column, values)
		if err != nil {
			return nil, fmt.Errorf("coerce column %s: %w", column, err)
		}
		out = next
	}

	return newResult(out, errs, invalid), nil
}

func (d *Date) parse(cell any) (time.Time, bool) {
	if domain.IsMissing(cell) {
		return time.Time{}, false
	}
	if t, ok := cell.(time.Time); ok {
		return t, true
	}
	s := strings.TrimSpace(domain.CellString(cell))
	if s == "" {
		return time.Time{}, false
	}
	t, err := d.parseString(s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// parseString parses s and rejects days past the end of their month, which
// timefmt.Parse would otherwise roll into the next month
func (d *Date) parseString(s string) (time.Time, error) {
	t, err := timefmt.Parse(s, d.format)
	if err != nil {
		return time.Time{}, err
	}
	if hasDayDirective(d.format) && !sameFields(s, timefmt.Format(t, d.format)) {
		return time.Time{}, fmt.Errorf("'%s' is not a calendar date", s)
	}
	return t, nil
}

func (d *Date) looksDate(col domain.Column) bool {
	switch col.Type {
	case domain.ColumnTypeDatetime:
		return true
	case domain.ColumnTypeCategorical:
		return mostlyParse(col.Values, func(v any) bool {
			_, ok := d.parse(v)
			return ok
		})
	}
	return false
}

func (d *Date) boundString(t *time.Time, open string) string {
	if t == nil {
		return open
	}
	return timefmt.Format(*t, d.format)
}

func (w dateWindow) contains(t time.Time) bool {
	if w.start != nil && t.Before(*w.start) {
		return false
	}
	if w.end != nil && t.After(*w.end) {
		return false
	}
	return true
}

// checkFormat rejects formats with unknown or dangling directives, and
// formats without any directive at all
func checkFormat(format string) error {
	directives := 0
	for i := 0; i < len(format); i++ {
		if format[i] != '%' {
			continue
		}
		if i+1 >= len(format) {
			return fmt.Errorf("format '%s' ends with a dangling '%%'", format)
		}
		i++
		c := format[i]
		if c == ':' && i+1 < len(format) && format[i+1] == 'z' {
			i++
			directives++
			continue
		}
		if !strings.ContainsRune(supportedDirectives, rune(c)) {
			return fmt.Errorf("unsupported directive '%%%c' in format '%s'", c, format)
		}
		if c != '%' && c != 'n' && c != 't' {
			directives++
		}
	}
	if directives == 0 {
		return fmt.Errorf("format '%s' has no date directives", format)
	}
	return nil
}

// hasDayDirective reports whether the format sets a day of the month or year
func hasDayDirective(format string) bool {
	for i := 0; i+1 < len(format); i++ {
		if format[i] != '%' {
			continue
		}
		i++
		switch format[i] {
		case 'd', 'e', 'j', 'F', 'D':
			return true
		}
	}
	return false
}

// sameFields compares a parsed cell with its reformatted time field by field.
// Digit runs compare by value so unpadded input matches, text compares
// case-insensitively and whitespace is ignored.
func sameFields(input, formatted string) bool {
	a, b := fieldTokens(input), fieldTokens(formatted)
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func fieldTokens(s string) []string {
	var tokens []string
	var prev byte
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case isDigit(c):
			j := i
			for j < len(s) && isDigit(s[j]) {
				j++
			}
			run := s[i:j]
			// fractional seconds come back padded to six digits
			if prev == '.' || prev == ',' {
				run = strings.TrimRight(run, "0")
			}
			tokens = append(tokens, "#"+strings.TrimLeft(run, "0"))
			prev = 0
			i = j
		case isSpace(c):
			prev = 0
			i++
		default:
			j := i
			for j < len(s) && !isDigit(s[j]) && !isSpace(s[j]) {
				j++
			}
			tokens = append(tokens, strings.ToLower(s[i:j]))
			prev = s[j-1]
			i = j
		}
	}
	return tokens
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isSpace(c byte) bool { return c == ' ' || c == '\t' || c == '\n' }
