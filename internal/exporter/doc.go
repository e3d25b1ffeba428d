// Package exporter persists pipeline output.
//
// ReportWriter saves a validation Report as plain text, with sections
// DATA SUMMARY, NUMERIC STATISTICS, VALIDATION ERRORS and VALIDATION STATUS
// in that order, plus a JSON file holding the same content.
//
// CSVWriter writes tables and raw records to CSV with a UTF-8 BOM so that
// spreadsheet applications detect the encoding.
//
//	writer := exporter.NewReportWriter(paths, logger)
//	textPath, jsonPath, err := writer.Save(report, "data_report.txt")
package exporter
