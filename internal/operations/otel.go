package operations

import (
	"context"
	"fmt"
	"time"

	"datacheck/internal/infrastructure"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const (
	TracerName = "datacheck.pipeline"
)

// OperationTracer provides OpenTelemetry instrumentation for pipeline runs
type OperationTracer struct {
	tracer          trace.Tracer
	businessMetrics *infrastructure.BusinessMetrics
}

// NewOperationTracer creates a tracer from initialized providers
func NewOperationTracer(providers *infrastructure.OTelProviders) (*OperationTracer, error) {
	if providers == nil {
		return NewNoopTracer(), nil
	}

	businessMetrics, err := infrastructure.CreateBusinessMetrics(providers.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create business metrics: %w", err)
	}

	tracer := providers.Tracer
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer(TracerName)
	}

	return &OperationTracer{
		tracer:          tracer,
		businessMetrics: businessMetrics,
	}, nil
}

// NewNoopTracer returns a tracer that records nothing
func NewNoopTracer() *OperationTracer {
	return &OperationTracer{tracer: noop.NewTracerProvider().Tracer(TracerName)}
}

// Metrics returns the business instruments, nil for a no-op tracer
func (pt *OperationTracer) Metrics() *infrastructure.BusinessMetrics {
	return pt.businessMetrics
}

// TraceRun creates the span covering a whole pipeline run
func (pt *OperationTracer) TraceRun(ctx context.Context, state *OperationState, steps []Step) (context.Context, trace.Span) {
	ids := make([]string, len(steps))
	for i, s := range steps {
		ids[i] = s.ID()
	}

	ctx, span := pt.tracer.Start(ctx, "pipeline.run",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("pipeline.id", state.ID),
			attribute.String("pipeline.input", state.Request.InputPath),
			attribute.StringSlice("pipeline.steps", ids),
		),
	)

	infrastructure.RecordActiveRunChange(ctx, pt.businessMetrics, 1)
	return ctx, span
}

// FinishRun records the outcome of a run and ends its span
func (pt *OperationTracer) FinishRun(ctx context.Context, span trace.Span, state *OperationState) {
	status := state.GetStatus()
	duration := state.Duration()

	span.SetAttributes(
		attribute.String("pipeline.status", string(status)),
		attribute.Float64("pipeline.duration_seconds", duration.Seconds()),
		attribute.Int("pipeline.artifacts", len(state.Artifacts)),
	)
	if state.Error != nil {
		span.RecordError(state.Error)
		span.SetStatus(codes.Error, state.Error.Error())
	} else {
		span.SetStatus(codes.Ok, "pipeline completed")
	}

	infrastructure.RecordActiveRunChange(ctx, pt.businessMetrics, -1)
	infrastructure.RecordPipelineRun(ctx, pt.businessMetrics, string(status), duration)
	span.End()
}

// TraceStep creates a child span for one step
func (pt *OperationTracer) TraceStep(ctx context.Context, runID string, step Step) (context.Context, trace.Span) {
	return pt.tracer.Start(ctx, "pipeline.step."+step.ID(),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("pipeline.id", runID),
			attribute.String("step.id", step.ID()),
			attribute.String("step.name", step.Name()),
		),
	)
}

// FinishStep records the step duration and ends its span
func (pt *OperationTracer) FinishStep(ctx context.Context, span trace.Span, stepID string, duration time.Duration, err error) {
	span.SetAttributes(attribute.Float64("step.duration_seconds", duration.Seconds()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "step completed")
	}

	infrastructure.RecordPipelineStep(ctx, pt.businessMetrics, stepID, duration, err == nil)
	span.End()
}

// RecordSkip adds a span event for a step that did not run
func (pt *OperationTracer) RecordSkip(ctx context.Context, stepID, reason string) {
	trace.SpanFromContext(ctx).AddEvent("step.skipped", trace.WithAttributes(
		attribute.String("step.id", stepID),
		attribute.String("reason", reason),
	))
}
