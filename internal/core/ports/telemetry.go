package ports

import (
	"context"
)

//go:generate mockgen -source=telemetry.go -destination=mocks/mock_telemetry.go -package=mocks

// Tracer is the entry point for creating spans.
type Tracer interface {
	// Start creates a new span.
	Start(ctx context.Context, name string, opts ...SpanOption) (context.Context, Span)
	// EmitPlan records the ordered list of pages a build is about to process.
	EmitPlan(ctx context.Context, pages []string)
}

// Span represents a unit of work.
type Span interface {
	// End completes the span.
	End()
	// RecordError records an error for the span.
	RecordError(err error)
	// SetAttribute adds a key-value pair to the span.
	SetAttribute(key string, value any)
}

// SpanConfig holds configuration for a starting span.
type SpanConfig struct {
	Attributes map[string]any
}

// SpanOption is a functional option for configuring a span.
type SpanOption func(*SpanConfig)

// WithAttribute sets an attribute when the span starts.
func WithAttribute(key string, value any) SpanOption {
	return func(c *SpanConfig) {
		if c.Attributes == nil {
			c.Attributes = make(map[string]any)
		}
		c.Attributes[key] = value
	}
}
