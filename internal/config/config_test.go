package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "datacheck.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadFile(t *testing.T) {
	tests := []struct {
		name        string
		env         map[string]string
		file        string
		wantErr     string
		validateCfg func(*testing.T, *Config)
	}{
		{
			name: "defaults without file or env",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, int64(32<<20), cfg.Server.MaxUploadBytes)
				assert.Equal(t, []string{"http://localhost:8080"}, cfg.Security.AllowedOrigins)
				assert.True(t, cfg.Security.RateLimit.Enabled)
				assert.Equal(t, 100.0, cfg.Security.RateLimit.RPS)
				assert.Equal(t, "info", cfg.Logging.Level)
				assert.Equal(t, "json", cfg.Logging.Format)
				assert.Equal(t, "both", cfg.Logging.Output)
				assert.Equal(t, "data", cfg.Paths.DataDir)
				assert.Equal(t, "zscore", cfg.Pipeline.OutlierMethod)
				assert.Equal(t, 3.0, cfg.Pipeline.Threshold)
				assert.Equal(t, DefaultReportName, cfg.Pipeline.ReportName)
				assert.Equal(t, AppName, cfg.Telemetry.ServiceName)
				assert.True(t, cfg.Telemetry.EnableMetrics)
			},
		},
		{
			name: "environment overrides defaults",
			env: map[string]string{
				"DATACHECK_SERVER_PORT":              "9090",
				"DATACHECK_SERVER_READ_TIMEOUT":      "30s",
				"DATACHECK_SECURITY_ALLOWED_ORIGINS": "http://example.com,https://example.com",
				"DATACHECK_LOGGING_LEVEL":            "debug",
				"DATACHECK_LOGGING_FORMAT":           "text",
				"DATACHECK_PIPELINE_CHARTS":          "true",
				"DATACHECK_PIPELINE_THRESHOLD":       "2.5",
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9090, cfg.Server.Port)
				assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, []string{"http://example.com", "https://example.com"}, cfg.Security.AllowedOrigins)
				assert.Equal(t, "debug", cfg.Logging.Level)
				assert.Equal(t, "json", cfg.Logging.Format)
				assert.True(t, cfg.Pipeline.Charts)
				assert.Equal(t, 2.5, cfg.Pipeline.Threshold)
			},
		},
		{
			name: "file overrides defaults and env overrides file",
			file: `
server:
  port: 7070
  write_timeout: 2m
pipeline:
  rules_file: rules/weather.yaml
  clean: true
  normalize: minmax
`,
			env: map[string]string{"DATACHECK_SERVER_PORT": "6060"},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 6060, cfg.Server.Port)
				assert.Equal(t, 2*time.Minute, cfg.Server.WriteTimeout)
				assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, "rules/weather.yaml", cfg.Pipeline.RulesFile)
				assert.True(t, cfg.Pipeline.Clean)
				assert.Equal(t, "minmax", cfg.Pipeline.Normalize)
			},
		},
		{
			name:    "unknown file key",
			file:    "server:\n  prot: 1\n",
			wantErr: "failed to load config from file",
		},
		{
			name:    "invalid port",
			env:     map[string]string{"DATACHECK_SERVER_PORT": "99999"},
			wantErr: "invalid server port",
		},
		{
			name:    "non numeric port",
			env:     map[string]string{"DATACHECK_SERVER_PORT": "abc"},
			wantErr: "failed to load config from env",
		},
		{
			name:    "invalid log level",
			env:     map[string]string{"DATACHECK_LOGGING_LEVEL": "loud"},
			wantErr: "invalid log level",
		},
		{
			name:    "invalid outlier method",
			env:     map[string]string{"DATACHECK_PIPELINE_OUTLIER_METHOD": "mad"},
			wantErr: "invalid outlier method",
		},
		{
			name:    "invalid normalization",
			file:    "pipeline:\n  normalize: log\n",
			wantErr: "invalid normalization method",
		},
		{
			name:    "constant imputation without fill value",
			file:    "pipeline:\n  impute: constant\n",
			wantErr: "needs a fill value",
		},
		{
			name:    "invalid imputation",
			env:     map[string]string{"DATACHECK_PIPELINE_IMPUTE": "interpolate"},
			wantErr: "invalid imputation method",
		},
		{
			name:    "negative chart workers",
			env:     map[string]string{"DATACHECK_PIPELINE_CHART_WORKERS": "-1"},
			wantErr: "chart workers must not be negative",
		},
		{
			name:    "multi character delimiter",
			env:     map[string]string{"DATACHECK_PIPELINE_DELIMITER": ";;"},
			wantErr: "single character",
		},
		{
			name:    "rate limit without rps",
			file:    "security:\n  rate_limit:\n    enabled: true\n    rps: 0\n",
			wantErr: "rps must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			if tt.file != "" {
				path = writeConfig(t, tt.file)
			}

			cfg, err := LoadFile(path)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.validateCfg(t, cfg)
		})
	}
}

func TestLoad_ConfigFileFromEnv(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 5050\n")
	t.Setenv("DATACHECK_CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5050, cfg.Server.Port)
}

func TestLoadFile_MissingFile(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestPipelineConfig_DelimiterRune(t *testing.T) {
	assert.Equal(t, ',', PipelineConfig{}.DelimiterRune())
	assert.Equal(t, ';', PipelineConfig{Delimiter: ";"}.DelimiterRune())
	assert.Equal(t, '\t', PipelineConfig{Delimiter: "\t"}.DelimiterRune())
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.validate())
}
