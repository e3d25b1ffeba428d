package http

import (
	"context"
	"time"

	"datacheck/internal/files"
	"datacheck/internal/operations"
	"datacheck/internal/services"
	"datacheck/pkg/contracts"
)

// ValidationService is the pipeline surface the validation handler needs
type ValidationService interface {
	Validate(ctx context.Context, in services.ValidateInput) (*operations.OperationResponse, error)
	RuleKinds() []string
	Steps() ([]operations.OperationType, error)
	ActiveRuns() []services.RunSummary
	CancelRun(id string) error
}

// HealthService reports service status and build information
type HealthService interface {
	HealthCheck(ctx context.Context) services.HealthStatus
	Version() contracts.VersionInfo
}

// CatalogService lists the datasets, rule sets and reports on disk
type CatalogService interface {
	Datasets() ([]files.FileInfo, error)
	RuleSets() ([]files.FileInfo, error)
	Reports(since, until time.Time) ([]files.FileInfo, error)
	LatestReport() (files.FileInfo, error)
	ReportFiles(run string) ([]files.FileInfo, error)
}
