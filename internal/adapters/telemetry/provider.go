// Package telemetry provides OpenTelemetry tracing for builds.
package telemetry

import (
	"context"
	"fmt"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.trai.ch/weave/internal/core/ports"
	"go.trai.ch/zerr"
)

var (
	_ ports.Tracer = (*OTelTracer)(nil)
	_ ports.Span   = (*OTelSpan)(nil)
)

// InstrumentationName names the weave tracer.
const InstrumentationName = "weave"

// Setup installs a global tracer provider that exports finished spans as JSON to w.
// The returned function flushes and stops the exporter.
func Setup(w io.Writer) (func(context.Context) error, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return nil, zerr.Wrap(err, "failed to create trace exporter")
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}

// OTelTracer is a concrete implementation of ports.Tracer using OpenTelemetry.
type OTelTracer struct {
	tracer trace.Tracer
}

// NewOTelTracer creates a tracer backed by the global provider. A provider installed
// later by Setup is picked up as well.
func NewOTelTracer(name string) *OTelTracer {
	return &OTelTracer{tracer: otel.Tracer(name)}
}

// NewOTelTracerFrom creates a tracer backed by tp.
func NewOTelTracerFrom(tp trace.TracerProvider, name string) *OTelTracer {
	return &OTelTracer{tracer: tp.Tracer(name)}
}

// Start creates a new span.
func (t *OTelTracer) Start(ctx context.Context, name string, opts ...ports.SpanOption) (context.Context, ports.Span) {
	cfg := &ports.SpanConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	ctx, span := t.tracer.Start(ctx, name)
	s := &OTelSpan{span: span}
	for key, value := range cfg.Attributes {
		s.SetAttribute(key, value)
	}
	return ctx, s
}

// EmitPlan adds the planned pages as an event on the current span.
func (t *OTelTracer) EmitPlan(ctx context.Context, pages []string) {
	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.AddEvent("plan_emitted", trace.WithAttributes(
			attribute.StringSlice("pages", pages),
		))
	}
}

// OTelSpan is a concrete implementation of ports.Span using OpenTelemetry.
type OTelSpan struct {
	span trace.Span
}

// End completes the span.
func (s *OTelSpan) End() {
	s.span.End()
}

// RecordError records an error for the span.
func (s *OTelSpan) RecordError(err error) {
	s.span.RecordError(err)
	s.span.SetStatus(codes.Error, err.Error())
}

// SetAttribute adds a key-value pair to the span.
func (s *OTelSpan) SetAttribute(key string, value any) {
	switch v := value.(type) {
	case string:
		s.span.SetAttributes(attribute.String(key, v))
	case int:
		s.span.SetAttributes(attribute.Int(key, v))
	case int64:
		s.span.SetAttributes(attribute.Int64(key, v))
	case float64:
		s.span.SetAttributes(attribute.Float64(key, v))
	case bool:
		s.span.SetAttributes(attribute.Bool(key, v))
	case []string:
		s.span.SetAttributes(attribute.StringSlice(key, v))
	default:
		s.span.SetAttributes(attribute.String(key, fmt.Sprintf("%v", v)))
	}
}
