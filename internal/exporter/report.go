package exporter

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"datacheck/internal/config"
	"datacheck/internal/dataprocessing"
	apperrors "datacheck/internal/errors"
)

// Report sections, in the order they are written
const (
	SectionDataSummary       = "Data Summary"
	SectionNumericStatistics = "Numeric Statistics"
	SectionValidationErrors  = "Validation Errors"
	SectionValidationStatus  = "Validation Status"
)

const (
	reportTitle     = "Data Validation Report"
	reportTitleRule = "====================="
)

// Report is the content of a validation report
type Report struct {
	Summary     dataprocessing.DataSummary   `json:"data_summary"`
	Statistics  []dataprocessing.ColumnStats `json:"numeric_statistics"`
	Errors      []string                     `json:"validation_errors"`
	Valid       bool                         `json:"-"`
	GeneratedAt time.Time                    `json:"generated_at"`
}

// Status returns "Passed" or "Failed"
func (r Report) Status() string {
	if r.Valid {
		return "Passed"
	}
	return "Failed"
}

// MarshalJSON adds the status string next to the report fields
func (r Report) MarshalJSON() ([]byte, error) {
	type plain Report
	errs := r.Errors
	if errs == nil {
		errs = []string{}
	}
	stats := r.Statistics
	if stats == nil {
		stats = []dataprocessing.ColumnStats{}
	}
	p := plain(r)
	p.Errors, p.Statistics = errs, stats
	return json.Marshal(struct {
		plain
		Status string `json:"validation_status"`
	}{plain: p, Status: r.Status()})
}

// ReportWriter persists reports as text with a JSON companion
type ReportWriter struct {
	paths  *config.Paths
	logger *slog.Logger
}

// NewReportWriter creates a report writer. Relative file names are placed in
// the reports directory of paths.
func NewReportWriter(paths *config.Paths, logger *slog.Logger) *ReportWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportWriter{paths: paths, logger: logger.With(slog.String("component", "report_writer"))}
}

// Save writes the text report to filename and the same report as JSON next
// to it, returning both paths
func (w *ReportWriter) Save(report Report, filename string) (textPath, jsonPath string, err error) {
	textPath = filename
	if !filepath.IsAbs(filename) && w.paths != nil {
		textPath = w.paths.GetReportPath(filename)
	}
	jsonPath = strings.TrimSuffix(textPath, filepath.Ext(textPath)) + ".json"

	if err := os.MkdirAll(filepath.Dir(textPath), 0755); err != nil {
		return "", "", apperrors.NewStorageError("failed to create report directory", err)
	}

	if err := writeFile(textPath, func(out io.Writer) error { return WriteText(out, report) }); err != nil {
		return "", "", apperrors.NewStorageError(fmt.Sprintf("failed to write report %s", textPath), err)
	}
	if err := writeFile(jsonPath, func(out io.Writer) error { return WriteJSON(out, report) }); err != nil {
		return "", "", apperrors.NewStorageError(fmt.Sprintf("failed to write report %s", jsonPath), err)
	}

	w.logger.Info("Report saved",
		slog.String("path", textPath),
		slog.String("json_path", jsonPath),
		slog.String("status", report.Status()),
		slog.Int("errors", len(report.Errors)))
	return textPath, jsonPath, nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteJSON encodes the report as indented JSON
func WriteJSON(out io.Writer, report Report) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

// WriteText renders the report in its plain text layout: a banner, then the
// four sections in fixed order, each titled in upper case and underlined
// with one dash per character of its name
func WriteText(out io.Writer, report Report) error {
	bw := bufio.NewWriter(out)

	fmt.Fprintf(bw, "%s\n%s\n\n", reportTitle, reportTitleRule)

	section(bw, SectionDataSummary)
	for _, line := range summaryLines(report.Summary) {
		fmt.Fprintln(bw, line)
	}
	fmt.Fprintln(bw)

	section(bw, SectionNumericStatistics)
	for _, s := range report.Statistics {
		fmt.Fprintf(bw, "%s: %s\n", s.Column, statsPairs(s))
	}
	fmt.Fprintln(bw)

	section(bw, SectionValidationErrors)
	for _, e := range report.Errors {
		fmt.Fprintf(bw, "- %s\n", e)
	}
	fmt.Fprintln(bw)

	section(bw, SectionValidationStatus)
	fmt.Fprintf(bw, "%s\n\n", report.Status())

	return bw.Flush()
}

func section(w io.Writer, name string) {
	fmt.Fprintf(w, "%s\n%s\n", strings.ToUpper(name), strings.Repeat("-", len(name)))
}

func summaryLines(s dataprocessing.DataSummary) []string {
	missing := make([]string, len(s.Columns))
	for i, col := range s.Columns {
		missing[i] = strconv.Itoa(s.MissingValues[col])
	}

	lines := []string{
		"row_count: " + strconv.Itoa(s.RowCount),
		"column_count: " + strconv.Itoa(s.ColumnCount),
		"columns: " + formatList(s.Columns),
		"missing_values: " + formatPairs(s.Columns, missing),
		"numeric_columns: " + formatList(s.NumericColumns),
		"categorical_columns: " + formatList(s.CategoricalColumns),
		"datetime_columns: " + formatList(s.DatetimeColumns),
	}
	if s.ValidRowCount != nil {
		lines = append(lines, "valid_row_count: "+strconv.Itoa(*s.ValidRowCount))
	}
	return lines
}

func statsPairs(s dataprocessing.ColumnStats) string {
	return formatPairs(
		[]string{"min", "max", "mean", "median", "std", "missing", "zeros", "negatives"},
		[]string{
			formatFloat(s.Min),
			formatFloat(s.Max),
			formatFloat(s.Mean),
			formatFloat(s.Median),
			formatFloat(s.Std),
			strconv.Itoa(s.Missing),
			strconv.Itoa(s.Zeros),
			strconv.Itoa(s.Negatives),
		},
	)
}
