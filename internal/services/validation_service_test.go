package services

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datacheck/internal/config"
	"datacheck/internal/dataprocessing"
	apperrors "datacheck/internal/errors"
	"datacheck/internal/operations"
	"datacheck/internal/shared/testutil"
	"datacheck/internal/validation"
)

func newValidationService(t *testing.T) (*ValidationService, *config.Paths) {
	t.Helper()

	logger, _ := testutil.NewTestLogger(t)
	paths := config.NewPaths(t.TempDir())

	registry, err := operations.NewPipelineRegistry(operations.StepDeps{
		Logger: logger,
		Paths:  paths,
	})
	require.NoError(t, err)

	manager := operations.NewManager(registry, operations.NewConfig(), logger)
	return NewValidationService(manager, nil, config.PipelineConfig{}, logger), paths
}

func TestValidationService_Validate(t *testing.T) {
	svc, paths := newValidationService(t)

	resp, err := svc.Validate(context.Background(), ValidateInput{
		Filename: "uploads/weather.csv",
		Data:     strings.NewReader(testutil.WeatherCSV),
		Rules:    []byte(testutil.WeatherRules),
	})
	require.NoError(t, err)

	assert.Equal(t, operations.OperationStatusCompleted, resp.Status)
	assert.False(t, resp.Valid)
	assert.Len(t, resp.Errors, 2)
	require.NotNil(t, resp.Report)
	assert.Equal(t, 13, resp.Report.Summary.RowCount)

	require.NotEmpty(t, resp.Artifacts)
	for _, a := range resp.Artifacts {
		assert.True(t, strings.HasPrefix(a.Path, paths.ReportsDir), a.Path)
		_, statErr := os.Stat(a.Path)
		assert.NoError(t, statErr)
	}

	assert.Equal(t, operations.StepStatusSkipped, resp.Steps[operations.StepIDVisualize].Status)
	assert.Equal(t, operations.StepStatusSkipped, resp.Steps[operations.StepIDClean].Status)
}

func TestValidationService_ValidateWithCleaning(t *testing.T) {
	svc, _ := newValidationService(t)

	resp, err := svc.Validate(context.Background(), ValidateInput{
		Filename: "weather.csv",
		Data:     strings.NewReader(testutil.WeatherCSV),
		Rules:    []byte(testutil.WeatherRules),
		Clean:    true,
		Cleaning: &dataprocessing.CleaningOptions{OutlierMethod: "iqr", Threshold: 1.5},
	})
	require.NoError(t, err)

	assert.Equal(t, operations.StepStatusCompleted, resp.Steps[operations.StepIDClean].Status)
	var kinds []string
	for _, a := range resp.Artifacts {
		kinds = append(kinds, a.Kind)
	}
	assert.Contains(t, kinds, "cleaned_data")
}

func TestValidationService_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		input    ValidateInput
		wantType apperrors.ErrorType
		wantIs   error
	}{
		{
			name:     "no data",
			input:    ValidateInput{Filename: "x.csv", Rules: []byte(testutil.WeatherRules)},
			wantType: apperrors.ErrTypeValidation,
		},
		{
			name:     "no rules",
			input:    ValidateInput{Filename: "x.csv", Data: strings.NewReader("a\n1\n")},
			wantType: apperrors.ErrTypeValidation,
		},
		{
			name: "unparseable rules",
			input: ValidateInput{
				Filename: "x.csv",
				Data:     strings.NewReader("a\n1\n"),
				Rules:    []byte("rules: [unterminated"),
			},
			wantType: apperrors.ErrTypeConfig,
			wantIs:   validation.ErrInvalidRuleConfig,
		},
		{
			name: "rules that cannot be built",
			input: ValidateInput{
				Filename: "x.csv",
				Data:     strings.NewReader("a\n1\n"),
				Rules:    []byte("rules:\n  - kind: numeric\n    columns: [a]\n    min: 10\n    max: 1\n"),
			},
			wantType: apperrors.ErrTypeConfig,
			wantIs:   validation.ErrInvalidRuleConfig,
		},
		{
			name: "unsupported format",
			input: ValidateInput{
				Filename: "x.parquet",
				Data:     strings.NewReader("PAR1"),
				Rules:    []byte(testutil.WeatherRules),
			},
			wantType: apperrors.ErrTypeParsing,
			wantIs:   dataprocessing.ErrUnsupportedFormat,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newValidationService(t)

			resp, err := svc.Validate(context.Background(), tt.input)
			require.Error(t, err)
			assert.Nil(t, resp)
			assert.True(t, apperrors.IsType(err, tt.wantType), "got %v", err)
			if tt.wantIs != nil {
				assert.ErrorIs(t, err, tt.wantIs)
			}
		})
	}
}

func TestValidationService_Catalogue(t *testing.T) {
	svc, _ := newValidationService(t)

	assert.Equal(t, validation.DefaultRegistry().Kinds(), svc.RuleKinds())

	steps, err := svc.Steps()
	require.NoError(t, err)
	require.Len(t, steps, 5)
	assert.Equal(t, operations.StepIDLoad, steps[0].ID)
	assert.Equal(t, []string{operations.StepIDLoad}, steps[1].Dependencies)

	assert.Empty(t, svc.ActiveRuns())
}

func TestValidationService_CancelUnknownRun(t *testing.T) {
	svc, _ := newValidationService(t)

	err := svc.CancelRun("missing")
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeNotFound))
	assert.Contains(t, err.Error(), "run 'missing' not found")
}
