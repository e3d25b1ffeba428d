package validation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datacheck/internal/shared/testutil"
)

func TestFileValidator_ValidateFileType(t *testing.T) {
	tests := []struct {
		name          string
		setupFunc     func(t *testing.T) string
		exts          []string
		wantErr       bool
		errorContains string
	}{
		{
			name: "csv accepted",
			setupFunc: func(t *testing.T) string {
				return testutil.WriteFile(t, "weather.csv", testutil.WeatherCSV)
			},
			exts: []string{".csv", ".json"},
		},
		{
			name: "extension compared case-insensitively",
			setupFunc: func(t *testing.T) string {
				return testutil.WriteFile(t, "WEATHER.CSV", testutil.WeatherCSV)
			},
			exts: []string{".csv"},
		},
		{
			name: "unsupported extension",
			setupFunc: func(t *testing.T) string {
				return testutil.WriteFile(t, "weather.txt", "x")
			},
			exts:          []string{".csv"},
			wantErr:       true,
			errorContains: "unsupported extension",
		},
		{
			name: "office lock file",
			setupFunc: func(t *testing.T) string {
				return testutil.WriteFile(t, "~$weather.xlsx", "x")
			},
			exts:          []string{".xlsx"},
			wantErr:       true,
			errorContains: "temporary office file",
		},
		{
			name: "missing file",
			setupFunc: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "absent.csv")
			},
			exts:          []string{".csv"},
			wantErr:       true,
			errorContains: "does not exist",
		},
		{
			name: "directory instead of file",
			setupFunc: func(t *testing.T) string {
				return t.TempDir()
			},
			exts:          []string{".csv"},
			wantErr:       true,
			errorContains: "is a directory",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, _ := testutil.NewTestLogger(t)
			v := NewFileValidator(logger)

			err := v.ValidateFileType(tt.setupFunc(t), tt.exts...)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorContains)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestFileValidator_ValidateRulesFile(t *testing.T) {
	v := NewFileValidator(nil)

	assert.NoError(t, v.ValidateRulesFile(testutil.WriteFile(t, "rules.yaml", testutil.WeatherRules)))
	assert.NoError(t, v.ValidateRulesFile(testutil.WriteFile(t, "rules.json", "{}")))
	assert.Error(t, v.ValidateRulesFile(testutil.WriteFile(t, "rules.toml", "")))
}

func TestFileValidator_ValidateOutputDirectory(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	v := NewFileValidator(logger)

	dir := filepath.Join(t.TempDir(), "reports", "nested")
	require.NoError(t, v.ValidateOutputDirectory(dir))

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "write probe must be removed")
	testutil.AssertNoErrors(t, logs)
}

func TestFileValidator_ValidateOutputDirectoryOnFile(t *testing.T) {
	v := NewFileValidator(nil)
	file := testutil.WriteFile(t, "occupied", "x")

	err := v.ValidateOutputDirectory(filepath.Join(file, "sub"))
	assert.Error(t, err)
}
