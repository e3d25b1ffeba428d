package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"datacheck/internal/config"
	"datacheck/internal/shared/testutil"
	"datacheck/pkg/contracts"
)

type mockRunCounter struct {
	mock.Mock
}

func (m *mockRunCounter) ActiveRuns() []RunSummary {
	args := m.Called()
	return args.Get(0).([]RunSummary)
}

func TestHealthService_HealthCheck(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(t *testing.T) *config.Paths
		wantStatus string
		wantStore  string
	}{
		{
			name: "reports directory present",
			setup: func(t *testing.T) *config.Paths {
				paths := config.NewPaths(t.TempDir())
				require.NoError(t, paths.EnsureDirectories())
				return paths
			},
			wantStatus: StatusHealthy,
			wantStore:  StatusHealthy,
		},
		{
			name: "reports directory missing",
			setup: func(t *testing.T) *config.Paths {
				return config.NewPaths(filepath.Join(t.TempDir(), "absent"))
			},
			wantStatus: StatusUnhealthy,
			wantStore:  StatusUnhealthy,
		},
		{
			name: "reports path is a file",
			setup: func(t *testing.T) *config.Paths {
				paths := config.NewPaths(t.TempDir())
				require.NoError(t, os.WriteFile(paths.ReportsDir, []byte("x"), 0644))
				return paths
			},
			wantStatus: StatusUnhealthy,
			wantStore:  StatusUnhealthy,
		},
		{
			name:       "no paths configured",
			setup:      func(t *testing.T) *config.Paths { return nil },
			wantStatus: StatusDegraded,
			wantStore:  StatusDegraded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, _ := testutil.NewTestLogger(t)
			runs := &mockRunCounter{}
			runs.On("ActiveRuns").Return([]RunSummary{{ID: "a"}, {ID: "b"}})

			hs := NewHealthService(tt.setup(t), runs, logger)
			status := hs.HealthCheck(context.Background())

			assert.Equal(t, tt.wantStatus, status.Status)
			assert.Equal(t, tt.wantStore, status.Services["storage"].Status)
			assert.Equal(t, "2 active runs", status.Services["pipeline"].Message)
			assert.Equal(t, contracts.Version, status.Version)
			assert.Contains(t, status.Runtime, "goroutines")
			runs.AssertExpectations(t)
		})
	}
}

func TestHealthService_Version(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	hs := NewHealthService(nil, nil, logger)

	assert.Equal(t, contracts.GetVersionInfo(), hs.Version())
	assert.True(t, logs.ContainsMessage("HealthService initialized"))
	assert.Equal(t, StatusHealthy, hs.checkPipeline().Status)
}
