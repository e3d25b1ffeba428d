package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sort"

	"datacheck/internal/config"
	"datacheck/internal/dataprocessing"
	apperrors "datacheck/internal/errors"
	"datacheck/internal/operations"
	"datacheck/internal/validation"
)

// ValidateInput is one uploaded dataset plus the rule set to check it against
type ValidateInput struct {
	Filename string
	Data     io.Reader
	Rules    []byte

	// Sheet overrides the configured worksheet for Excel uploads
	Sheet    string
	Charts   bool
	Clean    bool
	Cleaning *dataprocessing.CleaningOptions
}

// RunSummary describes an in-flight pipeline run
type RunSummary struct {
	ID     string                          `json:"id"`
	Status operations.OperationStatusValue `json:"status"`
	Source string                          `json:"source,omitempty"`
	Steps  map[string]*operations.StepState `json:"steps"`
}

// ValidationService runs uploaded datasets through the pipeline
type ValidationService struct {
	manager  *operations.Manager
	rules    *validation.Registry
	pipeline config.PipelineConfig
	logger   *slog.Logger
}

// NewValidationService creates the service. rules must be the registry the
// pipeline's validate step builds with; nil means the default registry.
func NewValidationService(manager *operations.Manager, rules *validation.Registry, pipeline config.PipelineConfig, logger *slog.Logger) *ValidationService {
	if logger == nil {
		logger = slog.Default()
	}
	if rules == nil {
		rules = validation.DefaultRegistry()
	}
	return &ValidationService{
		manager:  manager,
		rules:    rules,
		pipeline: pipeline,
		logger:   logger.With(slog.String("service", "validation")),
	}
}

// Validate loads the upload, checks the rule set builds, and runs the pipeline.
// Data violations come back in the response with Valid=false and a nil error.
// An unreadable dataset is a PARSING error and a rule set that cannot be built
// is a CONFIG error, both before any step runs.
func (s *ValidationService) Validate(ctx context.Context, in ValidateInput) (*operations.OperationResponse, error) {
	if in.Data == nil {
		return nil, apperrors.NewAppValidationError(ErrNoData.Error())
	}
	if len(in.Rules) == 0 {
		return nil, apperrors.NewAppValidationError(ErrNoRules.Error())
	}

	set, err := validation.ParseRuleSet(in.Rules)
	if err != nil {
		return nil, err
	}
	if set.Name == "" {
		set.Name = "upload"
	}
	if _, err := set.Build(s.rules); err != nil {
		return nil, err
	}

	sheet := in.Sheet
	if sheet == "" {
		sheet = s.pipeline.Sheet
	}
	source := filepath.Base(in.Filename)
	tbl, err := dataprocessing.ReadNamed(ctx, source, in.Data, dataprocessing.LoaderOptions{
		Delimiter: s.pipeline.DelimiterRune(),
		Sheet:     sheet,
		Logger:    s.logger,
	})
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrTypeParsing) {
			return nil, err
		}
		return nil, apperrors.NewParsingError(fmt.Sprintf("failed to load %s", source), err)
	}

	s.logger.InfoContext(ctx, "upload accepted",
		slog.String("source", source),
		slog.String("rule_set", set.Name),
		slog.Int("rows", tbl.RowCount()),
		slog.Bool("charts", in.Charts),
		slog.Bool("clean", in.Clean))

	return s.manager.Execute(ctx, operations.OperationRequest{
		Table:    tbl,
		Source:   source,
		RuleSet:  set,
		Charts:   in.Charts,
		Clean:    in.Clean,
		Cleaning: in.Cleaning,
	})
}

// RuleKinds lists the rule kinds a rule set may use
func (s *ValidationService) RuleKinds() []string {
	return s.rules.Kinds()
}

// Steps lists the pipeline steps in execution order
func (s *ValidationService) Steps() ([]operations.OperationType, error) {
	ordered, err := s.manager.GetRegistry().GetDependencyOrder()
	if err != nil {
		return nil, err
	}
	types := s.manager.GetRegistry().Types()
	byID := make(map[string]operations.OperationType, len(types))
	for _, t := range types {
		byID[t.ID] = t
	}
	out := make([]operations.OperationType, 0, len(ordered))
	for _, step := range ordered {
		out = append(out, byID[step.ID()])
	}
	return out, nil
}

// ActiveRuns lists the runs currently executing, ordered by ID
func (s *ValidationService) ActiveRuns() []RunSummary {
	states := s.manager.ListOperations()
	out := make([]RunSummary, 0, len(states))
	for _, st := range states {
		out = append(out, RunSummary{
			ID:     st.ID,
			Status: st.GetStatus(),
			Source: st.Request.Source,
			Steps:  st.Steps,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// CancelRun stops an executing run
func (s *ValidationService) CancelRun(id string) error {
	if err := s.manager.CancelOperation(id); err != nil {
		if errors.Is(err, operations.ErrOperationNotFound) {
			return apperrors.NewNotFoundError(fmt.Sprintf("run '%s'", id))
		}
		return err
	}
	s.logger.Info("run cancellation requested", slog.String("operation_id", id))
	return nil
}
