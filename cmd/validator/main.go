// Command validator runs the validation pipeline over one dataset from the
// command line.
//
//	validator -input weather.csv -rules rules.yaml -out reports/ -charts -clean
//
// Exit status is 0 when the run completes, 1 when -strict is set and the data
// violates its rules, and 2 on structural faults such as unreadable input, a
// rule set that does not build, or bad flags.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"datacheck/internal/config"
	"datacheck/internal/dataprocessing"
	"datacheck/internal/infrastructure"
	"datacheck/internal/operations"
	"datacheck/pkg/contracts"
)

const (
	exitOK      = 0
	exitInvalid = 1
	exitFault   = 2
)

type options struct {
	input      string
	rules      string
	out        string
	configPath string
	sheet      string
	charts     bool
	clean      bool
	outlier    string
	threshold  float64
	normalize  string
	impute     string
	fill       string
	strict     bool
	jsonOutput bool
	logLevel   string
	version    bool
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	opts := &options{}
	fs := flag.NewFlagSet("validator", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&opts.input, "input", "", "dataset to validate (.csv, .json, .xlsx, .xlsm)")
	fs.StringVar(&opts.rules, "rules", "", "YAML rule set (defaults to pipeline.rules_file)")
	fs.StringVar(&opts.out, "out", "", "output directory (defaults to a run directory under the reports dir)")
	fs.StringVar(&opts.configPath, "config", "", "config file (defaults to the usual locations)")
	fs.StringVar(&opts.sheet, "sheet", "", "worksheet to read from Excel input")
	fs.BoolVar(&opts.charts, "charts", false, "render charts for numeric columns")
	fs.BoolVar(&opts.clean, "clean", false, "write a cleaned copy of the dataset")
	fs.StringVar(&opts.outlier, "outlier", "", "outlier method for cleaning: zscore or iqr")
	fs.Float64Var(&opts.threshold, "threshold", 0, "outlier threshold (0 keeps the configured value)")
	fs.StringVar(&opts.normalize, "normalize", "", "normalization for cleaning: minmax or zscore")
	fs.StringVar(&opts.impute, "impute", "", "fill missing cells before cleaning: mean, median, mode or constant")
	fs.StringVar(&opts.fill, "fill", "", "value written by -impute constant")
	fs.BoolVar(&opts.strict, "strict", false, "exit 1 when the data violates its rules")
	fs.BoolVar(&opts.jsonOutput, "json", false, "print the outcome as JSON")
	fs.StringVar(&opts.logLevel, "log-level", "warn", "log level written to stderr")
	fs.BoolVar(&opts.version, "version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if opts.version {
		return opts, nil
	}
	if opts.input == "" {
		return nil, fmt.Errorf("-input is required")
	}
	return opts, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "validator: %v\n", err)
		return exitFault
	}
	if opts.version {
		fmt.Fprintln(stdout, contracts.GetFullVersionString())
		return exitOK
	}

	logger := infrastructure.NewLoggerWithWriter(stderr, opts.logLevel)

	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "validator: %v\n", err)
		return exitFault
	}

	if opts.sheet != "" {
		cfg.Pipeline.Sheet = opts.sheet
	}

	req, err := buildRequest(opts, cfg)
	if err != nil {
		fmt.Fprintf(stderr, "validator: %v\n", err)
		return exitFault
	}

	manager, err := newManager(cfg, logger)
	if err != nil {
		fmt.Fprintf(stderr, "validator: %v\n", err)
		return exitFault
	}

	resp, err := manager.Execute(ctx, req)
	if err != nil {
		fmt.Fprintf(stderr, "validator: %v\n", err)
		if resp != nil && opts.jsonOutput {
			_ = printJSON(stdout, resp)
		}
		return exitFault
	}

	if opts.jsonOutput {
		err = printJSON(stdout, resp)
	} else {
		err = printSummary(stdout, opts.input, resp)
	}
	if err != nil {
		fmt.Fprintf(stderr, "validator: %v\n", err)
		return exitFault
	}

	if opts.strict && !resp.Valid {
		return exitInvalid
	}
	return exitOK
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

func newManager(cfg *config.Config, logger *slog.Logger) (*operations.Manager, error) {
	paths, err := cfg.ResolvePaths()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}

	opsConfig := operations.ConfigFromPipeline(cfg.Pipeline)
	registry, err := operations.NewPipelineRegistry(operations.StepDeps{
		Logger:          logger,
		Paths:           paths,
		Pipeline:        cfg.Pipeline,
		MaxChartWorkers: opsConfig.MaxChartWorkers,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build pipeline: %w", err)
	}
	return operations.NewManager(registry, opsConfig, logger), nil
}

// buildRequest makes every path absolute against the working directory so
// the pipeline does not resolve them against the configured base dir
func buildRequest(opts *options, cfg *config.Config) (operations.OperationRequest, error) {
	req := operations.OperationRequest{
		Charts: opts.charts || cfg.Pipeline.Charts,
		Clean:  opts.clean || cfg.Pipeline.Clean,
	}

	var err error
	if req.InputPath, err = absPath(opts.input); err != nil {
		return req, err
	}
	if req.RulesPath, err = absPath(opts.rules); err != nil {
		return req, err
	}
	if req.OutputDir, err = absPath(opts.out); err != nil {
		return req, err
	}

	if opts.outlier != "" || opts.threshold > 0 || opts.normalize != "" || opts.impute != "" {
		cleaning := dataprocessing.DefaultCleaningOptions()
		if opts.outlier != "" {
			cleaning.OutlierMethod = dataprocessing.OutlierMethod(opts.outlier)
		}
		if opts.threshold > 0 {
			cleaning.Threshold = opts.threshold
		}
		cleaning.Normalize = dataprocessing.NormalizeMethod(opts.normalize)
		cleaning.Impute = dataprocessing.ImputeMethod(opts.impute)
		cleaning.FillValue = opts.fill
		req.Cleaning = &cleaning
	}
	return req, nil
}

func absPath(p string) (string, error) {
	if p == "" {
		return "", nil
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", p, err)
	}
	return abs, nil
}

func printJSON(w io.Writer, resp *operations.OperationResponse) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

func printSummary(w io.Writer, input string, resp *operations.OperationResponse) error {
	status := "PASSED"
	if !resp.Valid {
		status = "FAILED"
	}

	if _, err := fmt.Fprintf(w, "%s: validation %s (%d errors)\n", input, status, len(resp.Errors)); err != nil {
		return err
	}
	for _, e := range resp.Errors {
		fmt.Fprintf(w, "  - %s\n", e)
	}
	if resp.Report != nil {
		fmt.Fprintf(w, "rows: %d  columns: %d\n", resp.Report.Summary.RowCount, resp.Report.Summary.ColumnCount)
	}
	for _, a := range resp.Artifacts {
		fmt.Fprintf(w, "%s: %s\n", a.Kind, a.Path)
	}
	_, err := fmt.Fprintf(w, "run %s finished in %s\n", resp.ID, resp.Duration.Round(time.Millisecond))
	return err
}
