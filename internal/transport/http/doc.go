// Package http implements the HTTP handlers of the datacheck service. Handlers
// stay thin: they parse the request, call a service interface, and render the
// result or hand the error to the shared ErrorHandler.
//
// # Routes
//
//	POST /api/v1/validate            multipart upload: "file" dataset, "rules" YAML
//	GET  /api/v1/rules/kinds         registered rule kinds
//	GET  /api/v1/steps               pipeline steps in dependency order
//	GET  /api/v1/runs                runs in flight
//	POST /api/v1/runs/{id}/cancel    cancel a run
//	GET  /api/v1/catalog/datasets    datasets in the data directory
//	GET  /api/v1/catalog/rules       rule sets in the rules directory
//	GET  /api/v1/catalog/reports     report runs, newest first
//	GET  /api/v1/catalog/reports/latest
//	GET  /api/health                 health status, 503 when unhealthy
//	GET  /api/version                build information
//	GET  /metrics                    Prometheus exposition
//
// POST /validate accepts these query parameters:
//
//	charts=true             render charts for numeric columns
//	clean=true              write a cleaned copy of the dataset
//	sheet=NAME              worksheet to read from Excel uploads
//	outlier=zscore|iqr      outlier method for cleaning
//	threshold=N             outlier threshold
//	normalize=minmax|zscore normalization for cleaning
//	columns=a,b             columns to clean
//
// # Error Handling
//
// Errors are rendered as RFC 7807 problem details. A dataset that violates
// its rules is not an error: the response is 200 with "valid": false and the
// collected validation errors. Rule sets that do not parse or build answer
// 422 INVALID_RULES and unreadable datasets answer 422 UNREADABLE_DATA.
package http
