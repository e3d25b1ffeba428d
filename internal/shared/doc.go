// Package shared holds helpers used across the datacheck packages that do not
// belong to a single domain layer.
//
// The testutil subpackage provides:
//
//   - BufferedSlogHandler for asserting on structured log output
//   - dataset fixtures (CSV, JSON, rule files) written into t.TempDir()
//   - a reference weather table used by validation, report and pipeline tests
//
// Example usage:
//
//	func TestSomething(t *testing.T) {
//	    logger, logs := testutil.NewTestLogger(t)
//	    path := testutil.WriteFile(t, "weather.csv", testutil.WeatherCSV)
//	    ...
//	    testutil.AssertNoErrors(t, logs)
//	}
//
// Nothing in this package may import business packages.
package shared
