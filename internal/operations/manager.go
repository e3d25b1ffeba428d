package operations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"datacheck/internal/infrastructure"
)

// Manager runs pipeline requests against the registered steps
type Manager struct {
	registry *Registry
	config   *Config
	logger   *slog.Logger
	tracer   *OperationTracer

	// Active operations
	mu         sync.RWMutex
	operations map[string]*activeRun
}

type activeRun struct {
	state  *OperationState
	cancel context.CancelFunc
}

// NewManager creates a pipeline manager
func NewManager(registry *Registry, config *Config, logger *slog.Logger) *Manager {
	if registry == nil {
		registry = NewRegistry()
	}
	if config == nil {
		config = NewConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Manager{
		registry:   registry,
		config:     config,
		logger:     infrastructure.WithComponent(logger, "operations"),
		tracer:     NewNoopTracer(),
		operations: make(map[string]*activeRun),
	}
}

// SetTracer attaches OpenTelemetry instrumentation
func (m *Manager) SetTracer(tracer *OperationTracer) {
	if tracer != nil {
		m.tracer = tracer
	}
}

// RegisterStep registers a Step with the pipeline
func (m *Manager) RegisterStep(step Step) error {
	return m.registry.Register(step)
}

// GetRegistry returns the registry for accessing registered steps
func (m *Manager) GetRegistry() *Registry {
	return m.registry
}

// GetConfig returns the current configuration
func (m *Manager) GetConfig() *Config {
	return m.config
}

// Execute runs the pipeline for req. Data that breaks rules is not an error:
// the run completes and the response reports Valid=false. A returned error
// means a step could not do its work.
func (m *Manager) Execute(ctx context.Context, req OperationRequest) (*OperationResponse, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	ctx = infrastructure.EnsureTraceID(ctx)

	state := NewOperationState(req.ID)
	state.Request = req
	for k, v := range req.Parameters {
		state.SetContext(k, v)
	}

	logger := m.logger.With(slog.String("operation_id", req.ID))

	steps, err := m.selectSteps(req.Steps)
	if err != nil {
		infrastructure.WithError(logger, err).ErrorContext(ctx, "operation_rejected")
		state.Fail(err)
		return m.createResponse(state), err
	}
	for _, step := range steps {
		state.SetStep(step.ID(), NewStepState(step.ID(), step.Name()))
	}

	if m.config.RunTimeout > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeout(ctx, m.config.RunTimeout)
		defer cancelTimeout()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m.storeOperation(state, cancel)
	defer m.removeOperation(req.ID)

	state.Start()
	ctx, span := m.tracer.TraceRun(ctx, state, steps)

	logger.InfoContext(ctx, "operation_started", slog.Int("step_count", len(steps)))

	err = m.executeSequential(ctx, state, steps)
	switch {
	case err == nil:
		state.Complete()
	case GetErrorType(err) == ErrorTypeCancellation:
		state.Cancel(err)
	default:
		state.Fail(err)
	}
	m.tracer.FinishRun(ctx, span, state)

	resp := m.createResponse(state)
	if err != nil {
		infrastructure.WithError(logger, err).ErrorContext(ctx, "operation_failed",
			slog.String("status", string(resp.Status)),
			slog.Duration("duration", resp.Duration))
	} else {
		logger.InfoContext(ctx, "operation_completed",
			slog.Bool("valid", resp.Valid),
			slog.Int("validation_errors", len(resp.Errors)),
			slog.Int("artifacts", len(resp.Artifacts)),
			slog.Duration("duration", resp.Duration))
	}
	return resp, err
}

// selectSteps returns the steps to run in dependency order. A subset must
// include the dependencies of every step it names.
func (m *Manager) selectSteps(ids []string) ([]Step, error) {
	ordered, err := m.registry.GetDependencyOrder()
	if err != nil {
		return nil, NewFatalError("invalid step registry", err)
	}
	if len(ids) == 0 {
		return ordered, nil
	}

	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		if !m.registry.Has(id) {
			return nil, NewValidationError(id, "step is not registered")
		}
		wanted[id] = true
	}

	steps := make([]Step, 0, len(ids))
	for _, step := range ordered {
		if !wanted[step.ID()] {
			continue
		}
		for _, dep := range step.GetDependencies() {
			if !wanted[dep] {
				return nil, NewDependencyError(step.ID(), dep,
					fmt.Sprintf("step requires %s, which was not requested", dep))
			}
		}
		steps = append(steps, step)
	}
	return steps, nil
}

// executeSequential executes steps one by one
func (m *Manager) executeSequential(ctx context.Context, state *OperationState, steps []Step) error {
	var firstErr error

	for i, step := range steps {
		stepState := state.GetStep(step.ID())

		if ctx.Err() != nil {
			m.logger.WarnContext(ctx, "operation_cancelled",
				slog.String("operation_id", state.ID),
				slog.String("step", step.ID()))
			m.skipRemaining(state, steps[i:], "operation cancelled")
			return NewCancellationError(step.ID())
		}

		if stepState.GetStatus() == StepStatusSkipped {
			continue
		}

		if err := m.checkDependencies(state, step); err != nil {
			m.skip(ctx, state, step, err.Error())
			continue
		}

		if skipper, ok := step.(Skipper); ok {
			if skip, reason := skipper.ShouldSkip(state); skip {
				m.skip(ctx, state, step, reason)
				continue
			}
		}

		m.logger.InfoContext(ctx, "executing_step",
			slog.String("operation_id", state.ID),
			slog.String("step", step.ID()),
			slog.Int("step_number", i+1),
			slog.Int("total_steps", len(steps)))

		err := m.executeStep(ctx, state, step)
		if err == nil {
			continue
		}

		if GetErrorType(err) == ErrorTypeCancellation {
			m.skipRemaining(state, steps[i+1:], "operation cancelled")
			return err
		}

		m.skipDependentSteps(state, step.ID())
		if !m.config.ContinueOnError {
			m.skipRemaining(state, steps[i+1:], fmt.Sprintf("step %s failed", step.ID()))
			return err
		}
		if firstErr == nil {
			firstErr = err
		}
		infrastructure.WithError(m.logger, err).WarnContext(ctx, "step_failed_continuing",
			slog.String("operation_id", state.ID),
			slog.String("step", step.ID()))
	}

	return firstErr
}

// executeStep executes a single Step with timeout and retry
func (m *Manager) executeStep(ctx context.Context, state *OperationState, step Step) error {
	stepState := state.GetStep(step.ID())
	if stepState == nil {
		return NewFatalError(fmt.Sprintf("no state for step %s", step.ID()), nil)
	}

	if err := step.Validate(state); err != nil {
		vErr := NewValidationError(step.ID(), err.Error())
		stepState.Fail(vErr)
		return vErr
	}

	timeout := m.config.GetStepTimeout(step.ID())
	stepCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	stepCtx, span := m.tracer.TraceStep(stepCtx, state.ID, step)
	started := time.Now()

	retry := m.config.RetryConfig
	if retry.MaxAttempts < 1 {
		retry.MaxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= retry.MaxAttempts; attempt++ {
		stepState.Start()

		err := step.Execute(stepCtx, state)
		if err == nil {
			duration := time.Since(started)
			stepState.Complete(fmt.Sprintf("%s completed", step.Name()))
			m.tracer.FinishStep(stepCtx, span, step.ID(), duration, nil)
			m.logger.InfoContext(ctx, "step_completed",
				slog.String("operation_id", state.ID),
				slog.String("step", step.ID()),
				slog.Int("attempt", attempt),
				slog.Duration("duration", duration))
			return nil
		}
		lastErr = err

		if ctxErr := m.contextError(ctx, stepCtx, step.ID(), timeout); ctxErr != nil {
			lastErr = ctxErr
			break
		}

		m.logger.ErrorContext(ctx, "step_execution_failed",
			slog.String("operation_id", state.ID),
			slog.String("step", step.ID()),
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()))

		if !IsRetryable(err) || attempt >= retry.MaxAttempts {
			lastErr = WrapError(err, step.ID(), "")
			break
		}

		delay := calculateRetryDelay(attempt, retry)
		m.logger.WarnContext(ctx, "step_retry",
			slog.String("operation_id", state.ID),
			slog.String("step", step.ID()),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", retry.MaxAttempts),
			slog.Duration("delay", delay))

		select {
		case <-time.After(delay):
		case <-stepCtx.Done():
			lastErr = m.contextError(ctx, stepCtx, step.ID(), timeout)
			attempt = retry.MaxAttempts
		}
	}

	stepState.Fail(lastErr)
	m.tracer.FinishStep(stepCtx, span, step.ID(), time.Since(started), lastErr)
	return lastErr
}

// contextError distinguishes a cancelled run from a step that ran out of time
func (m *Manager) contextError(runCtx, stepCtx context.Context, stepID string, timeout time.Duration) error {
	switch {
	case runCtx.Err() != nil:
		return NewCancellationError(stepID)
	case errors.Is(stepCtx.Err(), context.DeadlineExceeded):
		return NewTimeoutError(stepID, timeout.String())
	}
	return nil
}

func (m *Manager) skip(ctx context.Context, state *OperationState, step Step, reason string) {
	state.GetStep(step.ID()).Skip(reason)
	m.tracer.RecordSkip(ctx, step.ID(), reason)
	m.logger.InfoContext(ctx, "step_skipped",
		slog.String("operation_id", state.ID),
		slog.String("step", step.ID()),
		slog.String("reason", reason))
}

// skipDependentSteps marks all steps that depend on the failed Step as skipped
func (m *Manager) skipDependentSteps(state *OperationState, failedID string) {
	for _, step := range m.registry.GetDependents(failedID) {
		stepState := state.GetStep(step.ID())
		if stepState != nil && stepState.GetStatus() == StepStatusPending {
			stepState.Skip(fmt.Sprintf("dependency %s failed", failedID))
			m.skipDependentSteps(state, step.ID())
		}
	}
}

func (m *Manager) skipRemaining(state *OperationState, steps []Step, reason string) {
	for _, step := range steps {
		if s := state.GetStep(step.ID()); s != nil && s.GetStatus() == StepStatusPending {
			s.Skip(reason)
		}
	}
}

// checkDependencies verifies that all dependencies completed
func (m *Manager) checkDependencies(state *OperationState, step Step) error {
	for _, dep := range step.GetDependencies() {
		depState := state.GetStep(dep)
		if depState == nil {
			return fmt.Errorf("dependency %s not found", dep)
		}
		if status := depState.GetStatus(); status != StepStatusCompleted {
			return fmt.Errorf("dependency %s not completed (status: %s)", dep, status)
		}
	}
	return nil
}

// calculateRetryDelay grows the delay geometrically from InitialDelay, capped at MaxDelay
func calculateRetryDelay(attempt int, config RetryConfig) time.Duration {
	multiplier := config.Multiplier
	if multiplier < 1 {
		multiplier = 1
	}
	delay := time.Duration(float64(config.InitialDelay) * math.Pow(multiplier, float64(attempt-1)))
	if config.MaxDelay > 0 && delay > config.MaxDelay {
		delay = config.MaxDelay
	}
	return delay
}

// createResponse creates an operation response from state
func (m *Manager) createResponse(state *OperationState) *OperationResponse {
	snapshot := state.Clone()

	resp := &OperationResponse{
		ID:        snapshot.ID,
		Status:    snapshot.Status,
		Duration:  snapshot.Duration(),
		Steps:     snapshot.Steps,
		Errors:    []string{},
		Artifacts: snapshot.Artifacts,
	}
	if resp.Artifacts == nil {
		resp.Artifacts = []Artifact{}
	}
	if snapshot.Error != nil {
		resp.Error = snapshot.Error.Error()
	}
	if result, ok := snapshot.Result(); ok {
		resp.Valid = result.IsValid()
		resp.Errors = result.Errors()
	}
	if report, ok := snapshot.Report(); ok {
		resp.Report = report
	}

	return resp
}

// GetOperation retrieves a snapshot of a running operation
func (m *Manager) GetOperation(id string) (*OperationState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	run, exists := m.operations[id]
	if !exists {
		return nil, ErrOperationNotFound
	}
	return run.state.Clone(), nil
}

// ListOperations returns snapshots of all running operations
func (m *Manager) ListOperations() []*OperationState {
	m.mu.RLock()
	defer m.mu.RUnlock()

	operations := make([]*OperationState, 0, len(m.operations))
	for _, run := range m.operations {
		operations = append(operations, run.state.Clone())
	}
	return operations
}

// CancelOperation cancels a running operation. The run stops before its next step.
func (m *Manager) CancelOperation(id string) error {
	m.mu.RLock()
	run, exists := m.operations[id]
	m.mu.RUnlock()

	if !exists {
		return ErrOperationNotFound
	}
	run.cancel()
	m.logger.Info("operation_cancel_requested", slog.String("operation_id", id))
	return nil
}

func (m *Manager) storeOperation(state *OperationState, cancel context.CancelFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.operations[state.ID] = &activeRun{state: state, cancel: cancel}
}

func (m *Manager) removeOperation(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.operations, id)
}
