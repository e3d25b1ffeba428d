package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix namespaces every environment variable, e.g. DATACHECK_SERVER_PORT
const EnvPrefix = "DATACHECK"

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`
	Pipeline  PipelineConfig  `yaml:"pipeline" envconfig:"PIPELINE"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	// MaxUploadBytes caps the multipart body of a validation request
	MaxUploadBytes int64 `yaml:"max_upload_bytes" envconfig:"MAX_UPLOAD_BYTES"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS"`
	Burst   int     `yaml:"burst" envconfig:"BURST"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL"`
	Format   string `yaml:"format" envconfig:"FORMAT"`
	Output   string `yaml:"output" envconfig:"OUTPUT"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// PathsConfig contains file system paths configuration. Relative
// directories are resolved against BaseDir, which defaults to the
// executable's directory.
type PathsConfig struct {
	BaseDir    string `yaml:"base_dir" envconfig:"BASE_DIR"`
	DataDir    string `yaml:"data_dir" envconfig:"DATA_DIR"`
	ReportsDir string `yaml:"reports_dir" envconfig:"REPORTS_DIR"`
	RulesDir   string `yaml:"rules_dir" envconfig:"RULES_DIR"`
	LogsDir    string `yaml:"logs_dir" envconfig:"LOGS_DIR"`
}

// PipelineConfig controls the validation pipeline
type PipelineConfig struct {
	// RulesFile is the rule set used when a run names none
	RulesFile string `yaml:"rules_file" envconfig:"RULES_FILE"`
	// Delimiter separates CSV fields
	Delimiter string `yaml:"delimiter" envconfig:"DELIMITER"`
	// Sheet selects the Excel worksheet; empty means the first one
	Sheet string `yaml:"sheet" envconfig:"SHEET"`

	Charts bool `yaml:"charts" envconfig:"CHARTS"`
	Clean  bool `yaml:"clean" envconfig:"CLEAN"`

	OutlierMethod string  `yaml:"outlier_method" envconfig:"OUTLIER_METHOD"`
	Threshold     float64 `yaml:"threshold" envconfig:"THRESHOLD"`
	Normalize     string  `yaml:"normalize" envconfig:"NORMALIZE"`
	Impute        string  `yaml:"impute" envconfig:"IMPUTE"`
	FillValue     string  `yaml:"fill_value" envconfig:"FILL_VALUE"`

	ReportName  string        `yaml:"report_name" envconfig:"REPORT_NAME"`
	CleanedName string        `yaml:"cleaned_name" envconfig:"CLEANED_NAME"`
	Timeout     time.Duration `yaml:"timeout" envconfig:"TIMEOUT"`

	// ContinueOnError lets steps that do not depend on a failed step still run
	ContinueOnError bool `yaml:"continue_on_error" envconfig:"CONTINUE_ON_ERROR"`
	ChartWorkers    int  `yaml:"chart_workers" envconfig:"CHART_WORKERS"`
}

// TelemetryConfig controls tracing and metrics
type TelemetryConfig struct {
	ServiceName   string `yaml:"service_name" envconfig:"SERVICE_NAME"`
	EnableMetrics bool   `yaml:"enable_metrics" envconfig:"ENABLE_METRICS"`
	EnableTracing bool   `yaml:"enable_tracing" envconfig:"ENABLE_TRACING"`
}

// Load builds the configuration from defaults, the first config file found
// in the usual locations, and DATACHECK_* environment variables, in that order
// of increasing precedence
func Load() (*Config, error) {
	return LoadFile(getConfigFilePath())
}

// LoadFile is Load with an explicit config file. An empty path skips the file.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// Unset variables leave the field as is, so the file and defaults survive
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// mergeFile overlays the YAML file onto the configuration
func (c *Config) mergeFile(filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.UnmarshalStrict(data, c)
}

// ResolvePaths turns the configured directories into absolute Paths
func (c *Config) ResolvePaths() (*Paths, error) {
	base := c.Paths.BaseDir
	if base == "" {
		exeDir, err := executableDir()
		if err != nil {
			return nil, err
		}
		base = exeDir
	}
	base, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base directory: %w", err)
	}

	resolve := func(dir string) string {
		if filepath.IsAbs(dir) {
			return dir
		}
		return filepath.Join(base, dir)
	}

	return &Paths{
		BaseDir:    base,
		DataDir:    resolve(c.Paths.DataDir),
		ReportsDir: resolve(c.Paths.ReportsDir),
		ChartsDir:  filepath.Join(resolve(c.Paths.ReportsDir), "charts"),
		RulesDir:   resolve(c.Paths.RulesDir),
		LogsDir:    resolve(c.Paths.LogsDir),
	}, nil
}

// DelimiterRune returns the configured CSV delimiter as a rune
func (p PipelineConfig) DelimiterRune() rune {
	if p.Delimiter == "" {
		return ','
	}
	return []rune(p.Delimiter)[0]
}

// validate validates the configuration
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("max upload bytes must be positive")
	}

	if c.Security.RateLimit.Enabled && c.Security.RateLimit.RPS <= 0 {
		return fmt.Errorf("rate limit rps must be positive when enabled")
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	// Logs are always JSON
	c.Logging.Format = "json"

	switch c.Logging.Output {
	case "console", "file", "both":
	default:
		c.Logging.Output = "both"
	}

	if c.Logging.FilePath == "" {
		c.Logging.FilePath = "logs/app.log"
	}

	if n := len([]rune(c.Pipeline.Delimiter)); n > 1 {
		return fmt.Errorf("csv delimiter must be a single character, got %q", c.Pipeline.Delimiter)
	}

	switch c.Pipeline.OutlierMethod {
	case "", "zscore", "iqr":
	default:
		return fmt.Errorf("invalid outlier method: %s", c.Pipeline.OutlierMethod)
	}

	switch c.Pipeline.Normalize {
	case "", "minmax", "zscore":
	default:
		return fmt.Errorf("invalid normalization method: %s", c.Pipeline.Normalize)
	}

	if c.Pipeline.Threshold < 0 {
		return fmt.Errorf("outlier threshold must not be negative")
	}

	switch c.Pipeline.Impute {
	case "", "mean", "median", "mode":
	case "constant":
		if c.Pipeline.FillValue == "" {
			return fmt.Errorf("constant imputation needs a fill value")
		}
	default:
		return fmt.Errorf("invalid imputation method: %s", c.Pipeline.Impute)
	}

	if c.Pipeline.ChartWorkers < 0 {
		return fmt.Errorf("chart workers must not be negative")
	}

	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	if p := os.Getenv(EnvPrefix + "_CONFIG_FILE"); p != "" {
		return p
	}

	locations := []string{
		"datacheck.yaml",
		"configs/datacheck.yaml",
		"../configs/datacheck.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use env vars only
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			IdleTimeout:     60 * time.Second,
			MaxHeaderBytes:  1 << 20, // 1MB
			ShutdownTimeout: 30 * time.Second,
			MaxUploadBytes:  32 << 20,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8080"},
			EnableCORS:     true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     100,
				Burst:   50,
			},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "both",
			FilePath: "logs/app.log",
		},
		Paths: PathsConfig{
			DataDir:    "data",
			ReportsDir: "reports",
			RulesDir:   "rules",
			LogsDir:    "logs",
		},
		Pipeline: PipelineConfig{
			Delimiter:     ",",
			OutlierMethod: "zscore",
			Threshold:     3,
			ReportName:    DefaultReportName,
			CleanedName:   DefaultCleanedName,
			Timeout:       10 * time.Minute,
		},
		Telemetry: TelemetryConfig{
			ServiceName:   AppName,
			EnableMetrics: true,
		},
	}
}
