package services

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"datacheck/internal/config"
	apperrors "datacheck/internal/errors"
	"datacheck/internal/files"
	"datacheck/internal/operations"
)

// CatalogService lists what the working directories hold
type CatalogService struct {
	discovery *files.Discovery
	paths     *config.Paths
	logger    *slog.Logger
}

// NewCatalogService creates a catalogue over the resolved paths
func NewCatalogService(paths *config.Paths, logger *slog.Logger) *CatalogService {
	if logger == nil {
		logger = slog.Default()
	}
	return &CatalogService{
		discovery: files.NewDiscovery(paths.BaseDir),
		paths:     paths,
		logger:    logger.With(slog.String("service", "catalog")),
	}
}

// Datasets lists the loadable files in the data directory, oldest first
func (s *CatalogService) Datasets() ([]files.FileInfo, error) {
	return s.list("datasets", s.paths.DataDir, s.discovery.FindDatasets)
}

// RuleSets lists the YAML rule sets in the rules directory, oldest first
func (s *CatalogService) RuleSets() ([]files.FileInfo, error) {
	return s.list("rule sets", s.paths.RulesDir, s.discovery.FindRuleSets)
}

// Reports lists the run directories under the reports directory, newest
// first, keeping those modified within [since, until]. A zero bound is open.
// The charts directory is not a run.
func (s *CatalogService) Reports(since, until time.Time) ([]files.FileInfo, error) {
	dirs, err := s.list("reports", s.paths.ReportsDir, s.discovery.ListDirectories)
	if err != nil {
		return nil, err
	}
	dirs = files.FilterFilesByDateRange(dirs, since, until)

	runs := make([]files.FileInfo, 0, len(dirs))
	for i := len(dirs) - 1; i >= 0; i-- {
		if dirs[i].Path == s.paths.ChartsDir {
			continue
		}
		runs = append(runs, dirs[i])
	}
	return runs, nil
}

// LatestReport returns the most recent run directory
func (s *CatalogService) LatestReport() (files.FileInfo, error) {
	runs, err := s.Reports(time.Time{}, time.Time{})
	if err != nil {
		return files.FileInfo{}, err
	}
	latest, ok := files.GetLatestFile(runs)
	if !ok {
		return files.FileInfo{}, apperrors.NewNotFoundError("report")
	}
	return latest, nil
}

// ReportFiles lists the artifacts of one run, charts included. run is the
// directory name as returned by Reports.
func (s *CatalogService) ReportFiles(run string) ([]files.FileInfo, error) {
	if run == "" || run == "." || run == ".." || run != filepath.Base(run) {
		return nil, apperrors.NewAppValidationError(fmt.Sprintf("invalid report name '%s'", run))
	}

	dir := filepath.Join(s.paths.ReportsDir, run)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() || dir == s.paths.ChartsDir {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("report '%s'", run))
	}

	found := []files.FileInfo{}
	for _, d := range []string{dir, filepath.Join(dir, operations.ChartsDirName)} {
		matches, err := s.discovery.FindFilesByPattern(d, "*")
		if err != nil {
			return nil, apperrors.NewStorageError("failed to list report files", err)
		}
		found = append(found, matches...)
	}
	return found, nil
}

// list treats a missing directory as empty
func (s *CatalogService) list(what, dir string, find func(string) ([]files.FileInfo, error)) ([]files.FileInfo, error) {
	found, err := find(dir)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Debug("catalogue directory missing", slog.String("kind", what), slog.String("dir", dir))
		return []files.FileInfo{}, nil
	}
	if err != nil {
		return nil, apperrors.NewStorageError("failed to list "+what, err)
	}
	return found, nil
}
