package operations

import (
	"time"

	"datacheck/internal/dataprocessing"
	"datacheck/internal/exporter"
	"datacheck/internal/validation"
	"datacheck/internal/visualization"
	"datacheck/pkg/contracts/domain"
)

// Pipeline step identifiers
const (
	StepIDLoad      = "load"
	StepIDValidate  = "validate"
	StepIDReport    = "report"
	StepIDVisualize = "visualize"
	StepIDClean     = "clean"
)

// Pipeline step names
const (
	StepNameLoad      = "Data Loading"
	StepNameValidate  = "Rule Validation"
	StepNameReport    = "Report Generation"
	StepNameVisualize = "Chart Rendering"
	StepNameClean     = "Data Cleaning"
)

// Context keys for values passed between steps
const (
	ContextKeyTable     = "table"
	ContextKeyResult    = "result"
	ContextKeyRuleSet   = "rule_set"
	ContextKeyReport    = "report"
	ContextKeyOutputDir = "output_dir"
)

// Default timeouts
const (
	DefaultStepTimeout      = 10 * time.Minute
	DefaultVisualizeTimeout = 5 * time.Minute
)

// Artifact kinds
const (
	ArtifactReport     = "report"
	ArtifactReportJSON = "report_json"
	ArtifactChart      = "chart"
	ArtifactCleaned    = "cleaned_data"
)

// RetryConfig defines retry behavior for steps
type RetryConfig struct {
	MaxAttempts  int           `json:"max_attempts"`
	InitialDelay time.Duration `json:"initial_delay"`
	MaxDelay     time.Duration `json:"max_delay"`
	Multiplier   float64       `json:"multiplier"`
}

// NewRetryConfig returns the default retry configuration
func NewRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 1 * time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
}

// ChartRequest describes one chart to render from the validated data
type ChartRequest struct {
	Kind    visualization.Kind    `json:"kind" yaml:"kind" validate:"required,oneof=bar line scatter heatmap"`
	Title   string                `json:"title" yaml:"title"`
	File    string                `json:"file" yaml:"file"`
	Options visualization.Options `json:"options" yaml:"options"`
}

// OperationRequest describes one pipeline run. The dataset comes from Table
// when set, otherwise from InputPath; the rules come from RuleSet when set,
// otherwise from RulesPath.
type OperationRequest struct {
	ID string `json:"id"`

	InputPath string        `json:"input_path,omitempty"`
	Table     *domain.Table `json:"-"`
	// Source names the dataset in logs and reports when Table is given
	Source string `json:"source,omitempty"`

	RulesPath string              `json:"rules_path,omitempty"`
	RuleSet   *validation.RuleSet `json:"rule_set,omitempty"`

	// OutputDir receives the artifacts. Empty means a fresh run directory
	// under the configured reports directory.
	OutputDir string `json:"output_dir,omitempty"`

	// Steps restricts the run to these step IDs. Empty means every registered step.
	Steps []string `json:"steps,omitempty"`

	Charts   bool           `json:"charts"`
	ChartSet []ChartRequest `json:"chart_set,omitempty"`

	Clean    bool                            `json:"clean"`
	Cleaning *dataprocessing.CleaningOptions `json:"cleaning,omitempty"`

	Parameters map[string]interface{} `json:"parameters,omitempty"`
}

// Artifact is a file produced by a run
type Artifact struct {
	Kind string `json:"kind"`
	Step string `json:"step"`
	Path string `json:"path"`
}

// OperationResponse is the outcome of a pipeline run
type OperationResponse struct {
	ID        string                `json:"id"`
	Status    OperationStatusValue  `json:"status"`
	Duration  time.Duration         `json:"duration"`
	Steps     map[string]*StepState `json:"steps"`
	Error     string                `json:"error,omitempty"`
	Valid     bool                  `json:"valid"`
	Errors    []string              `json:"validation_errors"`
	Report    *exporter.Report      `json:"report,omitempty"`
	Artifacts []Artifact            `json:"artifacts"`
}

// OperationType describes a registered step for API listings
type OperationType struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Dependencies []string `json:"dependencies"`
}
