package operations

import (
	"time"

	"datacheck/internal/config"
)

// Config represents the pipeline execution configuration
type Config struct {
	// Step-specific timeouts
	StepTimeouts map[string]time.Duration `json:"step_timeouts"`

	// Retry configuration for steps
	RetryConfig RetryConfig `json:"retry_config"`

	// Whether later steps run after an unrelated step fails
	ContinueOnError bool `json:"continue_on_error"`

	// RunTimeout bounds a whole run; zero means no limit
	RunTimeout time.Duration `json:"run_timeout"`

	// MaxChartWorkers caps concurrent chart rendering
	MaxChartWorkers int `json:"max_chart_workers"`
}

// NewConfig returns the default pipeline configuration
func NewConfig() *Config {
	return &Config{
		StepTimeouts: map[string]time.Duration{
			StepIDVisualize: DefaultVisualizeTimeout,
		},
		RetryConfig:     NewRetryConfig(),
		MaxChartWorkers: 4,
	}
}

// ConfigFromPipeline derives the execution configuration from application settings
func ConfigFromPipeline(p config.PipelineConfig) *Config {
	return NewConfigBuilder().
		WithRunTimeout(p.Timeout).
		WithContinueOnError(p.ContinueOnError).
		WithMaxChartWorkers(p.ChartWorkers).
		Build()
}

// GetStepTimeout returns the timeout for a specific Step
func (c *Config) GetStepTimeout(stepID string) time.Duration {
	if timeout, ok := c.StepTimeouts[stepID]; ok && timeout > 0 {
		return timeout
	}
	return DefaultStepTimeout
}

// SetStepTimeout sets the timeout for a specific Step
func (c *Config) SetStepTimeout(stepID string, timeout time.Duration) {
	if c.StepTimeouts == nil {
		c.StepTimeouts = make(map[string]time.Duration)
	}
	c.StepTimeouts[stepID] = timeout
}

// ConfigBuilder provides a fluent interface for building pipeline configurations
type ConfigBuilder struct {
	config *Config
}

// NewConfigBuilder creates a new configuration builder
func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{
		config: NewConfig(),
	}
}

// WithStepTimeout sets the timeout for a Step
func (b *ConfigBuilder) WithStepTimeout(stepID string, timeout time.Duration) *ConfigBuilder {
	b.config.SetStepTimeout(stepID, timeout)
	return b
}

// WithRetryConfig sets the retry configuration
func (b *ConfigBuilder) WithRetryConfig(config RetryConfig) *ConfigBuilder {
	b.config.RetryConfig = config
	return b
}

// WithContinueOnError sets whether to continue on errors
func (b *ConfigBuilder) WithContinueOnError(continueOnError bool) *ConfigBuilder {
	b.config.ContinueOnError = continueOnError
	return b
}

// WithRunTimeout bounds a whole run
func (b *ConfigBuilder) WithRunTimeout(timeout time.Duration) *ConfigBuilder {
	b.config.RunTimeout = timeout
	return b
}

// WithMaxChartWorkers sets the chart rendering concurrency
func (b *ConfigBuilder) WithMaxChartWorkers(n int) *ConfigBuilder {
	if n > 0 {
		b.config.MaxChartWorkers = n
	}
	return b
}

// Build returns the built configuration
func (b *ConfigBuilder) Build() *Config {
	return b.config
}
