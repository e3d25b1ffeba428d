package config

// Application constants
const (
	AppName = "datacheck"

	DefaultReportName  = "data_report.txt"
	DefaultCleanedName = "cleaned_data.csv"
	DefaultRulesName   = "rules.yaml"
	HistoryName        = "validation_history.csv"

	APIBasePath     = "/api/v1"
	HealthEndpoint  = "/api/health"
	VersionEndpoint = "/api/version"
	MetricsEndpoint = "/metrics"
)
