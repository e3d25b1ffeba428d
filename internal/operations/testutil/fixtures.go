package testutil

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"datacheck/internal/operations"
)

// CreateTestConfig creates a configuration with short retries and timeouts
func CreateTestConfig() *operations.Config {
	return operations.NewConfigBuilder().
		WithRetryConfig(operations.RetryConfig{
			MaxAttempts:  2,
			InitialDelay: 10 * time.Millisecond,
			MaxDelay:     100 * time.Millisecond,
			Multiplier:   2.0,
		}).
		WithStepTimeout(operations.StepIDLoad, 5*time.Second).
		WithStepTimeout(operations.StepIDValidate, 5*time.Second).
		WithStepTimeout(operations.StepIDReport, 5*time.Second).
		WithStepTimeout(operations.StepIDVisualize, 30*time.Second).
		WithStepTimeout(operations.StepIDClean, 5*time.Second).
		Build()
}

// CreateTestRegistry creates a registry with three independent steps
func CreateTestRegistry() *operations.Registry {
	registry := operations.NewRegistry()
	registry.Register(CreateSuccessfulStep("step1", "Step 1"))
	registry.Register(CreateSuccessfulStep("step2", "Step 2"))
	registry.Register(CreateSuccessfulStep("step3", "Step 3"))
	return registry
}

// CreateSuccessfulStep creates a step that always succeeds
func CreateSuccessfulStep(id, name string, deps ...string) *MockStep {
	return &MockStep{
		IDValue:           id,
		NameValue:         name,
		DependenciesValue: deps,
		ExecuteFunc: func(ctx context.Context, state *operations.OperationState) error {
			timer := time.NewTimer(time.Millisecond)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timer.C:
			}
			return nil
		},
	}
}

// CreateFailingStep creates a step that always fails
func CreateFailingStep(id, name string, err error, deps ...string) *MockStep {
	if err == nil {
		err = errors.New("step failed")
	}

	return &MockStep{
		IDValue:           id,
		NameValue:         name,
		DependenciesValue: deps,
		ExecuteFunc: func(ctx context.Context, state *operations.OperationState) error {
			return err
		},
	}
}

// CreateRetryableStep creates a step that fails failCount times with a
// retryable error, then succeeds
func CreateRetryableStep(id, name string, failCount int, deps ...string) *MockStep {
	var attempts atomic.Int32

	return &MockStep{
		IDValue:           id,
		NameValue:         name,
		DependenciesValue: deps,
		ExecuteFunc: func(ctx context.Context, state *operations.OperationState) error {
			if int(attempts.Add(1)) <= failCount {
				return operations.NewExecutionError(id, errors.New("temporary failure"), true)
			}
			return nil
		},
	}
}

// CreateSlowStep creates a step that takes a specific duration
func CreateSlowStep(id, name string, duration time.Duration, deps ...string) *MockStep {
	return &MockStep{
		IDValue:           id,
		NameValue:         name,
		DependenciesValue: deps,
		ExecuteFunc: func(ctx context.Context, state *operations.OperationState) error {
			select {
			case <-time.After(duration):
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	}
}

// CreateValidationFailingStep creates a step that fails validation
func CreateValidationFailingStep(id, name string, validationErr error, deps ...string) *MockStep {
	if validationErr == nil {
		validationErr = errors.New("validation failed")
	}

	return &MockStep{
		IDValue:           id,
		NameValue:         name,
		DependenciesValue: deps,
		ValidateFunc: func(state *operations.OperationState) error {
			return validationErr
		},
	}
}

// CreateContextAwareStep creates a step that copies readKey's value, or
// writeValue when readKey is empty, to writeKey
func CreateContextAwareStep(id, name string, readKey, writeKey string, writeValue interface{}, deps ...string) *MockStep {
	return &MockStep{
		IDValue:           id,
		NameValue:         name,
		DependenciesValue: deps,
		ExecuteFunc: func(ctx context.Context, state *operations.OperationState) error {
			value := writeValue
			if readKey != "" {
				val, ok := state.GetContext(readKey)
				if !ok {
					return errors.New("missing context value " + readKey)
				}
				value = val
			}
			if writeKey != "" {
				state.SetContext(writeKey, value)
			}
			return nil
		},
	}
}

// CreateDiamondSteps creates steps with a diamond dependency pattern:
// A before B and C, both before D
func CreateDiamondSteps() []operations.Step {
	return []operations.Step{
		CreateSuccessfulStep("A", "Step A"),
		CreateSuccessfulStep("B", "Step B", "A"),
		CreateSuccessfulStep("C", "Step C", "A"),
		CreateSuccessfulStep("D", "Step D", "B", "C"),
	}
}

// StepBuilder provides a fluent interface for creating test steps
type StepBuilder struct {
	step *MockStep
}

// NewStepBuilder creates a new step builder
func NewStepBuilder(id, name string) *StepBuilder {
	return &StepBuilder{
		step: &MockStep{
			IDValue:   id,
			NameValue: name,
		},
	}
}

// WithDependencies sets the step dependencies
func (b *StepBuilder) WithDependencies(deps ...string) *StepBuilder {
	b.step.DependenciesValue = deps
	return b
}

// WithExecute sets the execute function
func (b *StepBuilder) WithExecute(fn func(context.Context, *operations.OperationState) error) *StepBuilder {
	b.step.ExecuteFunc = fn
	return b
}

// WithValidate sets the validate function
func (b *StepBuilder) WithValidate(fn func(*operations.OperationState) error) *StepBuilder {
	b.step.ValidateFunc = fn
	return b
}

// WithSkip sets the skip function
func (b *StepBuilder) WithSkip(fn func(*operations.OperationState) (bool, string)) *StepBuilder {
	b.step.SkipFunc = fn
	return b
}

// Build returns the constructed step
func (b *StepBuilder) Build() *MockStep {
	return b.step
}
