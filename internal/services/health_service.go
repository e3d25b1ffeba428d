package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"datacheck/internal/config"
	"datacheck/pkg/contracts"
)

// RunCounter reports how many pipeline runs are executing
type RunCounter interface {
	ActiveRuns() []RunSummary
}

// HealthService provides health check functionality
type HealthService struct {
	version   contracts.VersionInfo
	paths     *config.Paths
	runs      RunCounter
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                   `json:"status"`
	Timestamp time.Time                `json:"timestamp"`
	Version   string                   `json:"version"`
	Uptime    string                   `json:"uptime"`
	Runtime   map[string]interface{}   `json:"runtime,omitempty"`
	Services  map[string]ServiceHealth `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// NewHealthService creates a health service. paths and runs may be nil.
func NewHealthService(paths *config.Paths, runs RunCounter, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	version := contracts.GetVersionInfo()
	logger.Info("HealthService initialized",
		slog.String("version", version.Version),
		slog.String("git_commit", version.GitCommit))

	return &HealthService{
		version:   version,
		paths:     paths,
		runs:      runs,
		startTime: time.Now(),
		logger:    logger.With(slog.String("service", "health")),
	}
}

// HealthCheck reports the service status. The report directory must be
// writable for the service to be healthy.
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	services := map[string]ServiceHealth{
		"storage":  hs.checkStorage(),
		"pipeline": hs.checkPipeline(),
	}

	status := StatusHealthy
	for _, s := range services {
		if s.Status == StatusUnhealthy {
			status = StatusUnhealthy
			break
		}
		if s.Status == StatusDegraded {
			status = StatusDegraded
		}
	}
	if status != StatusHealthy {
		hs.logger.WarnContext(ctx, "health check not healthy", slog.String("status", status))
	}

	return HealthStatus{
		Status:    status,
		Timestamp: time.Now().UTC(),
		Version:   hs.version.Version,
		Uptime:    time.Since(hs.startTime).Round(time.Second).String(),
		Runtime: map[string]interface{}{
			"goroutines": runtime.NumGoroutine(),
			"go_version": runtime.Version(),
		},
		Services: services,
	}
}

// Version returns version information
func (hs *HealthService) Version() contracts.VersionInfo {
	return hs.version
}

func (hs *HealthService) checkStorage() ServiceHealth {
	if hs.paths == nil {
		return ServiceHealth{Status: StatusDegraded, Message: "paths not configured"}
	}
	info, err := os.Stat(hs.paths.ReportsDir)
	if err != nil {
		return ServiceHealth{Status: StatusUnhealthy, Message: fmt.Sprintf("reports directory unavailable: %v", err)}
	}
	if !info.IsDir() {
		return ServiceHealth{Status: StatusUnhealthy, Message: "reports path is not a directory"}
	}
	return ServiceHealth{Status: StatusHealthy, Message: hs.paths.ReportsDir}
}

func (hs *HealthService) checkPipeline() ServiceHealth {
	if hs.runs == nil {
		return ServiceHealth{Status: StatusHealthy}
	}
	return ServiceHealth{
		Status:  StatusHealthy,
		Message: fmt.Sprintf("%d active runs", len(hs.runs.ActiveRuns())),
	}
}
