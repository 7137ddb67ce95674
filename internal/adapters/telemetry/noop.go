package telemetry

import (
	"context"

	"go.trai.ch/weave/internal/core/ports"
)

// NoOpTracer is a no-op implementation of ports.Tracer.
type NoOpTracer struct{}

// NewNoOpTracer creates a new NoOpTracer.
func NewNoOpTracer() *NoOpTracer {
	return &NoOpTracer{}
}

// Start creates a new no-op span.
func (t *NoOpTracer) Start(ctx context.Context, _ string, _ ...ports.SpanOption) (context.Context, ports.Span) {
	return ctx, NoOpSpan{}
}

// EmitPlan does nothing.
func (t *NoOpTracer) EmitPlan(_ context.Context, _ []string) {}

// NoOpSpan is a no-op implementation of ports.Span.
type NoOpSpan struct{}

// End does nothing.
func (NoOpSpan) End() {}

// RecordError does nothing.
func (NoOpSpan) RecordError(_ error) {}

// SetAttribute does nothing.
func (NoOpSpan) SetAttribute(_ string, _ any) {}
