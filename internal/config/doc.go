// Package config loads the application configuration and resolves its
// file system layout.
//
// # Configuration Sources
//
// Configuration is layered, later sources winning:
//
//	1. Default() values
//	2. A YAML file (datacheck.yaml, configs/datacheck.yaml, or DATACHECK_CONFIG_FILE)
//	3. Environment variables
//
// # Environment Variables
//
// Variables are namespaced with DATACHECK and follow the struct nesting:
//
//	DATACHECK_SERVER_PORT=8080
//	DATACHECK_LOGGING_LEVEL=debug
//	DATACHECK_PIPELINE_RULES_FILE=rules/weather.yaml
//	DATACHECK_PIPELINE_CHARTS=true
//
// # Path Management
//
// Paths holds absolute directories for datasets, reports, charts, rule sets
// and logs. Relative settings are resolved against the base directory, which
// defaults to the executable's directory:
//
//	cfg, err := config.Load()
//	paths, err := cfg.ResolvePaths()
//	report := paths.GetReportPath("data_report.txt")
package config
