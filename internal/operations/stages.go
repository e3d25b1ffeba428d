package operations

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"

	"datacheck/internal/config"
	"datacheck/internal/dataprocessing"
	"datacheck/internal/exporter"
	"datacheck/internal/infrastructure"
	"datacheck/internal/validation"
	"datacheck/internal/visualization"
	"datacheck/pkg/contracts/domain"
)

// ChartsDirName is the run subdirectory receiving rendered charts
const ChartsDirName = "charts"

// StepDeps carries what the pipeline steps share
type StepDeps struct {
	Logger *slog.Logger
	// Rules builds rule sets; nil means validation.DefaultRegistry()
	Rules *validation.Registry
	// Paths resolves relative inputs and the default run directory
	Paths    *config.Paths
	Pipeline config.PipelineConfig
	Metrics  *infrastructure.BusinessMetrics
	// MaxChartWorkers caps concurrent chart rendering; zero means 4
	MaxChartWorkers int
	// Now stamps reports; nil means time.Now
	Now func() time.Time
}

func (d StepDeps) logger(step string) *slog.Logger {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With(slog.String("step", step))
}

func (d StepDeps) resolve(path string) string {
	if d.Paths == nil {
		return path
	}
	return d.Paths.Resolve(path)
}

func (d StepDeps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// outputDir returns the run's artifact directory, fixing it on first use
func (d StepDeps) outputDir(state *OperationState) (string, error) {
	if v, ok := state.GetContext(ContextKeyOutputDir); ok {
		if dir, ok := v.(string); ok && dir != "" {
			return dir, nil
		}
	}

	var dir string
	switch {
	case state.Request.OutputDir != "":
		dir = d.resolve(state.Request.OutputDir)
	case d.Paths != nil:
		dir = d.Paths.RunDir(state.StartTime, state.ID)
	default:
		return "", fmt.Errorf("no output directory: set one on the request or configure the reports directory")
	}
	state.SetContext(ContextKeyOutputDir, dir)
	return dir, nil
}

// NewPipelineRegistry registers the load, validate, report, visualize and
// clean steps in execution order
func NewPipelineRegistry(deps StepDeps) (*Registry, error) {
	if deps.Rules == nil {
		deps.Rules = validation.DefaultRegistry()
	}

	registry := NewRegistry()
	for _, step := range []Step{
		NewLoadStep(deps),
		NewValidateStep(deps),
		NewReportStep(deps),
		NewVisualizeStep(deps),
		NewCleanStep(deps),
	} {
		if err := registry.Register(step); err != nil {
			return nil, err
		}
	}
	if err := registry.ValidateDependencies(); err != nil {
		return nil, err
	}
	return registry, nil
}

// LoadStep reads the dataset
type LoadStep struct {
	BaseStep
	deps   StepDeps
	logger *slog.Logger
}

// NewLoadStep creates the load step
func NewLoadStep(deps StepDeps) *LoadStep {
	return &LoadStep{
		BaseStep: NewBaseStep(StepIDLoad, StepNameLoad),
		deps:     deps,
		logger:   deps.logger(StepIDLoad),
	}
}

// Validate requires a dataset source
func (s *LoadStep) Validate(state *OperationState) error {
	if state.Request.Table == nil && state.Request.InputPath == "" {
		return fmt.Errorf("no dataset: set an input path or provide a table")
	}
	return nil
}

// Execute stores the request's table, or loads it from the input path
func (s *LoadStep) Execute(ctx context.Context, state *OperationState) error {
	stepState := state.GetStep(s.ID())

	tbl := state.Request.Table
	source := state.Request.Source
	if tbl == nil {
		path := s.deps.resolve(state.Request.InputPath)
		source = path

		loader, err := dataprocessing.NewLoader(path, dataprocessing.LoaderOptions{
			Delimiter: s.deps.Pipeline.DelimiterRune(),
			Sheet:     s.deps.Pipeline.Sheet,
			Logger:    s.deps.Logger,
		})
		if err != nil {
			return err
		}
		if tbl, err = loader.Load(ctx); err != nil {
			return err
		}
	}

	state.SetContext(ContextKeyTable, tbl)
	stepState.SetMetadata("source", source)
	stepState.SetMetadata("rows", tbl.RowCount())
	stepState.SetMetadata("columns", tbl.ColumnCount())

	s.logger.InfoContext(ctx, "dataset ready",
		slog.String("operation_id", state.ID),
		slog.String("source", source),
		slog.Int("rows", tbl.RowCount()),
		slog.Int("columns", tbl.ColumnCount()))
	return nil
}

// ValidateStep applies the rule set to the loaded table
type ValidateStep struct {
	BaseStep
	deps   StepDeps
	files  *validation.FileValidator
	logger *slog.Logger
}

// NewValidateStep creates the validate step
func NewValidateStep(deps StepDeps) *ValidateStep {
	logger := deps.logger(StepIDValidate)
	return &ValidateStep{
		BaseStep: NewBaseStep(StepIDValidate, StepNameValidate, StepIDLoad),
		deps:     deps,
		files:    validation.NewFileValidator(logger),
		logger:   logger,
	}
}

// Validate requires a rule set source
func (s *ValidateStep) Validate(state *OperationState) error {
	if state.Request.RuleSet == nil && state.Request.RulesPath == "" && s.deps.Pipeline.RulesFile == "" {
		return fmt.Errorf("no rule set: set a rules file or provide a rule set")
	}
	return nil
}

func (s *ValidateStep) ruleSet(state *OperationState) (*validation.RuleSet, error) {
	if state.Request.RuleSet != nil {
		return state.Request.RuleSet, nil
	}

	path := state.Request.RulesPath
	if path == "" {
		path = s.deps.Pipeline.RulesFile
	}
	path = s.deps.resolve(path)
	if err := s.files.ValidateRulesFile(path); err != nil {
		return nil, err
	}
	return validation.LoadRuleSet(path)
}

// Execute builds the composite rule and validates the table. Violations end
// up in the result; only a misconfigured rule fails the step.
func (s *ValidateStep) Execute(ctx context.Context, state *OperationState) error {
	stepState := state.GetStep(s.ID())

	tbl, ok := state.Table()
	if !ok {
		return NewFatalError("no table loaded", nil)
	}

	set, err := s.ruleSet(state)
	if err != nil {
		return err
	}
	composite, err := set.Build(s.deps.Rules)
	if err != nil {
		return err
	}

	result, err := composite.Validate(tbl)
	if err != nil {
		return err
	}

	state.SetContext(ContextKeyRuleSet, set)
	state.SetContext(ContextKeyResult, result)

	invalid := len(result.InvalidRows())
	infrastructure.RecordValidationRun(ctx, s.deps.Metrics, set.Name, result.IsValid(), len(result.Errors()), tbl.RowCount(), invalid)
	infrastructure.AddSpanEvent(ctx, "rules_applied", map[string]interface{}{
		"rule_set":     set.Name,
		"rules":        composite.Len(),
		"valid":        result.IsValid(),
		"errors":       len(result.Errors()),
		"invalid_rows": invalid,
	})

	stepState.SetMetadata("rule_set", set.Name)
	stepState.SetMetadata("rules", composite.Len())
	stepState.SetMetadata("valid", result.IsValid())
	stepState.SetMetadata("errors", len(result.Errors()))
	stepState.SetMetadata("invalid_rows", invalid)

	s.logger.InfoContext(ctx, result.String(),
		slog.String("operation_id", state.ID),
		slog.String("rule_set", set.Name),
		slog.Int("rules", composite.Len()),
		slog.Int("errors", len(result.Errors())),
		slog.Int("invalid_rows", invalid))
	return nil
}

// BuildReport assembles the report for a validation result. The summary
// describes the whole validated table; statistics cover the valid rows.
func BuildReport(ctx context.Context, analyzer *dataprocessing.Analyzer, result *validation.Result, now time.Time) exporter.Report {
	summary := analyzer.Summary(ctx, result.Data())
	valid := result.ValidData()
	validRows := valid.RowCount()
	summary.ValidRowCount = &validRows

	return exporter.Report{
		Summary:     summary,
		Statistics:  analyzer.NumericStats(ctx, valid),
		Errors:      result.Errors(),
		Valid:       result.IsValid(),
		GeneratedAt: now,
	}
}

// ReportStep writes the validation report
type ReportStep struct {
	BaseStep
	deps     StepDeps
	analyzer *dataprocessing.Analyzer
	writer   *exporter.ReportWriter
	history  *exporter.CSVWriter
	files    *validation.FileValidator
	logger   *slog.Logger
}

// historyHeaders are the columns of the run history kept next to the reports
var historyHeaders = []string{"generated_at", "operation_id", "source", "rule_set", "rows", "errors", "status"}

// NewReportStep creates the report step
func NewReportStep(deps StepDeps) *ReportStep {
	logger := deps.logger(StepIDReport)
	return &ReportStep{
		BaseStep: NewBaseStep(StepIDReport, StepNameReport, StepIDValidate),
		deps:     deps,
		analyzer: dataprocessing.NewAnalyzer(logger),
		writer:   exporter.NewReportWriter(deps.Paths, logger),
		history:  exporter.NewCSVWriter(deps.Paths, logger),
		files:    validation.NewFileValidator(logger),
		logger:   logger,
	}
}

// Validate requires somewhere to write
func (s *ReportStep) Validate(state *OperationState) error {
	_, err := s.deps.outputDir(state)
	return err
}

// Execute summarizes the result and saves the text and JSON reports
func (s *ReportStep) Execute(ctx context.Context, state *OperationState) error {
	result, ok := state.Result()
	if !ok {
		return NewFatalError("no validation result", nil)
	}
	outDir, err := s.deps.outputDir(state)
	if err != nil {
		return err
	}
	if err := s.files.ValidateOutputDirectory(outDir); err != nil {
		return err
	}

	report := BuildReport(ctx, s.analyzer, result, s.deps.now())

	name := s.deps.Pipeline.ReportName
	if name == "" {
		name = config.DefaultReportName
	}
	textPath, jsonPath, err := s.writer.Save(report, filepath.Join(outDir, name))
	if err != nil {
		return err
	}

	state.SetContext(ContextKeyReport, &report)
	state.AddArtifact(ArtifactReport, s.ID(), textPath)
	state.AddArtifact(ArtifactReportJSON, s.ID(), jsonPath)
	state.GetStep(s.ID()).SetMetadata("status", report.Status())

	// the history is a convenience; losing a line does not fail the run
	if path, err := s.appendHistory(state, report, outDir); err != nil {
		s.logger.WarnContext(ctx, "history not updated",
			slog.String("operation_id", state.ID),
			slog.String("error", err.Error()))
	} else {
		state.GetStep(s.ID()).SetMetadata("history", path)
	}

	s.logger.InfoContext(ctx, "report written",
		slog.String("operation_id", state.ID),
		slog.String("path", textPath),
		slog.String("status", report.Status()))
	return nil
}

func (s *ReportStep) appendHistory(state *OperationState, report exporter.Report, outDir string) (string, error) {
	source := state.Request.Source
	if source == "" && state.Request.InputPath != "" {
		source = filepath.Base(state.Request.InputPath)
	}
	ruleSet := ""
	if v, ok := state.GetContext(ContextKeyRuleSet); ok {
		if set, ok := v.(*validation.RuleSet); ok {
			ruleSet = set.Name
		}
	}
	record := []string{
		report.GeneratedAt.Format(time.RFC3339),
		state.ID,
		source,
		ruleSet,
		strconv.Itoa(report.Summary.RowCount),
		strconv.Itoa(len(report.Errors)),
		report.Status(),
	}
	// generated run directories share one history in the reports directory
	dir := outDir
	if state.Request.OutputDir == "" && s.deps.Paths != nil {
		dir = s.deps.Paths.ReportsDir
	}
	return s.history.AppendToCSV(filepath.Join(dir, config.HistoryName), historyHeaders, [][]string{record})
}

// VisualizeStep renders charts of the valid rows
type VisualizeStep struct {
	BaseStep
	deps   StepDeps
	logger *slog.Logger
}

// NewVisualizeStep creates the visualize step
func NewVisualizeStep(deps StepDeps) *VisualizeStep {
	return &VisualizeStep{
		BaseStep: NewBaseStep(StepIDVisualize, StepNameVisualize, StepIDValidate),
		deps:     deps,
		logger:   deps.logger(StepIDVisualize),
	}
}

// ShouldSkip skips unless charts were requested and valid rows remain
func (s *VisualizeStep) ShouldSkip(state *OperationState) (bool, string) {
	if !state.Request.Charts && len(state.Request.ChartSet) == 0 {
		return true, "charts not requested"
	}
	if result, ok := state.Result(); ok && result.ValidData().RowCount() == 0 {
		return true, "no valid rows to plot"
	}
	return false, ""
}

// Validate requires somewhere to write
func (s *VisualizeStep) Validate(state *OperationState) error {
	_, err := s.deps.outputDir(state)
	return err
}

// DefaultCharts picks the charts drawn when none are requested: the
// correlation heat map of the numeric columns and the first numeric column
// over the first datetime column
func DefaultCharts(tbl *domain.Table) []ChartRequest {
	numeric := tbl.ColumnsOfType(domain.ColumnTypeNumeric)
	datetime := tbl.ColumnsOfType(domain.ColumnTypeDatetime)

	var charts []ChartRequest
	if len(numeric) >= 2 {
		charts = append(charts, ChartRequest{
			Kind:    visualization.KindHeatMap,
			Title:   "Correlation Matrix",
			File:    "correlation_heatmap.png",
			Options: visualization.Options{Y: numeric, Correlation: true},
		})
	}
	if len(numeric) > 0 && len(datetime) > 0 {
		charts = append(charts, ChartRequest{
			Kind:    visualization.KindLine,
			Title:   fmt.Sprintf("%s over %s", numeric[0], datetime[0]),
			File:    fmt.Sprintf("%s_trend.png", numeric[0]),
			Options: visualization.Options{X: datetime[0], Y: numeric[:1], Markers: true},
		})
	}
	return charts
}

// Execute renders the charts concurrently. The first failure cancels the rest.
func (s *VisualizeStep) Execute(ctx context.Context, state *OperationState) error {
	result, ok := state.Result()
	if !ok {
		return NewFatalError("no validation result", nil)
	}
	outDir, err := s.deps.outputDir(state)
	if err != nil {
		return err
	}

	tbl := result.ValidData()
	requests := state.Request.ChartSet
	if len(requests) == 0 {
		requests = DefaultCharts(tbl)
	}

	workers := s.deps.MaxChartWorkers
	if workers <= 0 {
		workers = 4
	}

	paths := make([]string, len(requests))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, req := range requests {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			path, err := s.render(tbl, req, i, outDir)
			if err != nil {
				return err
			}
			paths[i] = path
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	rendered := make(map[visualization.Kind]int)
	for i, path := range paths {
		state.AddArtifact(ArtifactChart, s.ID(), path)
		rendered[requests[i].Kind]++
	}
	for kind, n := range rendered {
		infrastructure.RecordChartsRendered(ctx, s.deps.Metrics, string(kind), n)
	}
	state.GetStep(s.ID()).SetMetadata("charts", len(paths))

	s.logger.InfoContext(ctx, "charts rendered",
		slog.String("operation_id", state.ID),
		slog.Int("charts", len(paths)),
		slog.Int("workers", workers))
	return nil
}

func (s *VisualizeStep) render(tbl *domain.Table, req ChartRequest, i int, outDir string) (string, error) {
	title := req.Title
	if title == "" {
		title = fmt.Sprintf("%s chart", req.Kind)
	}
	chart, err := visualization.NewChartWithLogger(req.Kind, title, s.deps.Logger)
	if err != nil {
		return "", err
	}
	if err := chart.Plot(tbl, req.Options); err != nil {
		return "", fmt.Errorf("chart %q: %w", title, err)
	}

	file := req.File
	if file == "" {
		file = fmt.Sprintf("%02d_%s.png", i+1, req.Kind)
	}
	path := file
	if !filepath.IsAbs(file) {
		path = filepath.Join(outDir, ChartsDirName, file)
	}
	if err := chart.Save(path); err != nil {
		return "", err
	}
	return path, nil
}

// CleanStep exports the valid rows after outlier removal and normalization
type CleanStep struct {
	BaseStep
	deps     StepDeps
	utility  *dataprocessing.Utility
	writer   *exporter.CSVWriter
	validate *validator.Validate
	logger   *slog.Logger
}

// NewCleanStep creates the clean step
func NewCleanStep(deps StepDeps) *CleanStep {
	logger := deps.logger(StepIDClean)
	return &CleanStep{
		BaseStep: NewBaseStep(StepIDClean, StepNameClean, StepIDValidate),
		deps:     deps,
		utility:  dataprocessing.NewUtility(logger),
		writer:   exporter.NewCSVWriter(deps.Paths, logger),
		validate: validator.New(),
		logger:   logger,
	}
}

// ShouldSkip skips unless cleaning was requested
func (s *CleanStep) ShouldSkip(state *OperationState) (bool, string) {
	if !state.Request.Clean && state.Request.Cleaning == nil {
		return true, "cleaning not requested"
	}
	return false, ""
}

// options returns the request's cleaning options, falling back to the
// pipeline configuration and then to the defaults
func (s *CleanStep) options(state *OperationState) dataprocessing.CleaningOptions {
	if state.Request.Cleaning != nil {
		return *state.Request.Cleaning
	}
	opts := dataprocessing.DefaultCleaningOptions()
	if p := s.deps.Pipeline; p.OutlierMethod != "" {
		opts.OutlierMethod = dataprocessing.OutlierMethod(p.OutlierMethod)
		opts.Threshold = p.Threshold
	}
	if s.deps.Pipeline.Normalize != "" {
		opts.Normalize = dataprocessing.NormalizeMethod(s.deps.Pipeline.Normalize)
	}
	opts.Impute = dataprocessing.ImputeMethod(s.deps.Pipeline.Impute)
	opts.FillValue = s.deps.Pipeline.FillValue
	return opts
}

// Validate checks the cleaning options and the output directory
func (s *CleanStep) Validate(state *OperationState) error {
	if err := s.validate.Struct(s.options(state)); err != nil {
		return fmt.Errorf("invalid cleaning options: %w", err)
	}
	_, err := s.deps.outputDir(state)
	return err
}

// Execute cleans the valid rows and writes them as CSV
func (s *CleanStep) Execute(ctx context.Context, state *OperationState) error {
	result, ok := state.Result()
	if !ok {
		return NewFatalError("no validation result", nil)
	}
	outDir, err := s.deps.outputDir(state)
	if err != nil {
		return err
	}

	valid := result.ValidData()
	opts := s.options(state)
	cleaned, err := s.utility.Clean(valid, opts)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	name := s.deps.Pipeline.CleanedName
	if name == "" {
		name = config.DefaultCleanedName
	}
	path, err := s.writer.WriteTable(filepath.Join(outDir, name), cleaned)
	if err != nil {
		return err
	}

	state.AddArtifact(ArtifactCleaned, s.ID(), path)
	stepState := state.GetStep(s.ID())
	stepState.SetMetadata("rows_in", valid.RowCount())
	stepState.SetMetadata("rows_out", cleaned.RowCount())

	s.logger.InfoContext(ctx, "cleaned data written",
		slog.String("operation_id", state.ID),
		slog.String("path", path),
		slog.Int("rows_in", valid.RowCount()),
		slog.Int("rows_removed", valid.RowCount()-cleaned.RowCount()))
	return nil
}
