// Package dataprocessing loads tabular datasets and derives statistics from them.
//
// # Loading
//
// NewLoader picks a Loader from the file extension:
//
//	loader, err := dataprocessing.NewLoader("weather.csv", dataprocessing.LoaderOptions{})
//	if err != nil {
//	    return err
//	}
//	tbl, err := loader.Load(ctx)
//
// CSV, JSON (records or columns) and Excel workbooks are supported. Empty
// cells load as missing. A column whose present cells all parse as numbers
// loads as float64; anything else stays text until a validation rule
// coerces it.
//
// # Utilities
//
// Utility removes outliers, imputes missing cells and normalizes columns.
// Analyzer summarizes a table and computes per-column statistics and
// correlations. Neither modifies its input table.
package dataprocessing
