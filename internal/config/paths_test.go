package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datacheck/internal/shared/testutil"
)

func TestGetPaths(t *testing.T) {
	paths, err := GetPaths()
	require.NoError(t, err)

	assert.True(t, filepath.IsAbs(paths.BaseDir), "BaseDir should be absolute")
	assert.Equal(t, filepath.Join(paths.BaseDir, "data"), paths.DataDir)
	assert.Equal(t, filepath.Join(paths.BaseDir, "reports"), paths.ReportsDir)
	assert.Equal(t, filepath.Join(paths.ReportsDir, "charts"), paths.ChartsDir)
	assert.Equal(t, filepath.Join(paths.BaseDir, "logs"), paths.LogsDir)
}

func TestConfig_ResolvePaths(t *testing.T) {
	base := t.TempDir()
	abs := filepath.Join(t.TempDir(), "elsewhere")

	cfg := Default()
	cfg.Paths.BaseDir = base
	cfg.Paths.ReportsDir = abs

	paths, err := cfg.ResolvePaths()
	require.NoError(t, err)

	assert.Equal(t, base, paths.BaseDir)
	assert.Equal(t, filepath.Join(base, "data"), paths.DataDir)
	assert.Equal(t, abs, paths.ReportsDir)
	assert.Equal(t, filepath.Join(abs, "charts"), paths.ChartsDir)
	assert.Equal(t, filepath.Join(base, "rules"), paths.RulesDir)
}

func TestPaths_EnsureDirectories(t *testing.T) {
	paths := NewPaths(filepath.Join(t.TempDir(), "app"))
	require.NoError(t, paths.EnsureDirectories())

	for _, dir := range []string{paths.DataDir, paths.ReportsDir, paths.ChartsDir, paths.RulesDir, paths.LogsDir} {
		info, err := os.Stat(dir)
		require.NoError(t, err, dir)
		assert.True(t, info.IsDir())
	}

	// idempotent
	require.NoError(t, paths.EnsureDirectories())
}

func TestPaths_Getters(t *testing.T) {
	paths := NewPaths("/srv/datacheck")

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"data", paths.GetDataPath("weather.csv"), "/srv/datacheck/data/weather.csv"},
		{"report", paths.GetReportPath("data_report.txt"), "/srv/datacheck/reports/data_report.txt"},
		{"chart", paths.GetChartPath("bar.png"), "/srv/datacheck/reports/charts/bar.png"},
		{"rules", paths.GetRulesPath("rules.yaml"), "/srv/datacheck/rules/rules.yaml"},
		{"log", paths.GetLogPath("app.log"), "/srv/datacheck/logs/app.log"},
		{"resolve relative", paths.Resolve("rules/x.yaml"), "/srv/datacheck/rules/x.yaml"},
		{"resolve absolute", paths.Resolve("/tmp/x.yaml"), "/tmp/x.yaml"},
		{"resolve empty", paths.Resolve(""), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, filepath.FromSlash(tt.want), tt.got)
		})
	}
}

func TestPaths_RunDir(t *testing.T) {
	paths := NewPaths("/srv/datacheck")
	started := time.Date(2024, 1, 15, 15, 4, 5, 0, time.UTC)

	dir := paths.RunDir(started, "3f2a9c1e-aaaa-bbbb-cccc-1234567890ab")
	assert.Equal(t, filepath.Join(paths.ReportsDir, "20240115-150405-3f2a9c1e"), dir)
	assert.True(t, strings.HasPrefix(dir, paths.ReportsDir))
}

func TestPaths_LogPathResolution(t *testing.T) {
	logger, handler := testutil.NewTestLogger(t)
	NewPaths("/srv/datacheck").LogPathResolution(logger)

	assert.True(t, handler.ContainsMessage("Path resolution summary"))
}

func TestFileExists(t *testing.T) {
	path := testutil.WriteFile(t, "x.txt", "x")
	assert.True(t, FileExists(path))
	assert.False(t, FileExists(filepath.Join(t.TempDir(), "nope")))
}
