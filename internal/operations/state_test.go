package operations_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datacheck/internal/operations"
	"datacheck/internal/shared/testutil"
)

func TestStepState_Transitions(t *testing.T) {
	s := operations.NewStepState(operations.StepIDLoad, operations.StepNameLoad)
	assert.Equal(t, operations.StepStatusPending, s.GetStatus())
	assert.Zero(t, s.Duration())

	s.Start()
	assert.Equal(t, operations.StepStatusActive, s.GetStatus())
	s.Fail(errors.New("disk full"))
	assert.Equal(t, operations.StepStatusFailed, s.GetStatus())
	assert.Equal(t, "disk full", s.Error)

	s.Start()
	s.Complete("done")
	assert.Equal(t, operations.StepStatusCompleted, s.GetStatus())
	assert.Equal(t, 2, s.Attempts)
	assert.Empty(t, s.Error)
	assert.Equal(t, "done", s.Message)
	assert.GreaterOrEqual(t, s.Duration(), time.Duration(0))

	skipped := operations.NewStepState("x", "X")
	skipped.Skip("not requested")
	assert.Equal(t, operations.StepStatusSkipped, skipped.GetStatus())
	assert.Equal(t, "not requested", skipped.Message)
}

func TestOperationState_Lifecycle(t *testing.T) {
	tests := []struct {
		name   string
		finish func(*operations.OperationState)
		want   operations.OperationStatusValue
		hasErr bool
	}{
		{"complete", func(s *operations.OperationState) { s.Complete() }, operations.OperationStatusCompleted, false},
		{"fail", func(s *operations.OperationState) { s.Fail(errors.New("boom")) }, operations.OperationStatusFailed, true},
		{"cancel", func(s *operations.OperationState) {
			s.Cancel(operations.NewCancellationError("load"))
		}, operations.OperationStatusCancelled, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := operations.NewOperationState("run-1")
			assert.Equal(t, operations.OperationStatusPending, s.GetStatus())
			s.Start()
			assert.Equal(t, operations.OperationStatusRunning, s.GetStatus())

			tt.finish(s)
			assert.Equal(t, tt.want, s.GetStatus())
			assert.Equal(t, tt.hasErr, s.Error != nil)
			require.NotNil(t, s.EndTime)
		})
	}
}

func TestOperationState_TypedContext(t *testing.T) {
	s := operations.NewOperationState("run-1")

	_, ok := s.Table()
	assert.False(t, ok)

	s.SetContext(operations.ContextKeyTable, "not a table")
	_, ok = s.Table()
	assert.False(t, ok)

	tbl := testutil.WeatherTable(t)
	s.SetContext(operations.ContextKeyTable, tbl)
	got, ok := s.Table()
	require.True(t, ok)
	assert.Same(t, tbl, got)

	_, ok = s.Result()
	assert.False(t, ok)
	_, ok = s.Report()
	assert.False(t, ok)
}

func TestOperationState_StepQueries(t *testing.T) {
	s := operations.NewOperationState("run-1")
	for _, id := range []string{"load", "validate", "report"} {
		s.SetStep(id, operations.NewStepState(id, id))
	}
	assert.False(t, s.IsComplete())

	s.GetStep("load").Complete("")
	s.GetStep("validate").Fail(errors.New("bad rule"))
	s.GetStep("report").Skip("dependency validate failed")

	assert.True(t, s.IsComplete())
	assert.True(t, s.HasFailures())
	assert.Equal(t, []string{"validate"}, s.StepsWithStatus(operations.StepStatusFailed))
	assert.Equal(t, []string{"load"}, s.StepsWithStatus(operations.StepStatusCompleted))
}

func TestOperationState_Clone(t *testing.T) {
	s := operations.NewOperationState("run-1")
	s.SetStep("load", operations.NewStepState("load", "Load"))
	s.SetContext("key", "value")
	s.AddArtifact(operations.ArtifactReport, "report", "/tmp/report.txt")

	clone := s.Clone()
	clone.GetStep("load").Complete("")
	clone.SetContext("key", "changed")
	clone.AddArtifact(operations.ArtifactChart, "visualize", "/tmp/chart.png")

	assert.Equal(t, operations.StepStatusPending, s.GetStep("load").GetStatus())
	v, _ := s.GetContext("key")
	assert.Equal(t, "value", v)
	assert.Len(t, s.Artifacts, 1)
	assert.Len(t, clone.Artifacts, 2)
}
