// Package oteladapters implements the observability hooks of trackerstore on the OpenTelemetry API.
//
//	tracer := otel.Tracer("dialogue-trackerstore")
//	meter := otel.Meter("dialogue-trackerstore")
//
//	store, err := trackerstore.New(ctx, cfg, dom,
//		trackerstore.WithTracing(oteladapters.NewTracingCollector(tracer)),
//		trackerstore.WithMetrics(oteladapters.NewMetricsCollector(meter)))
//
// Which exporter receives spans and measurements is up to the providers the tracer and the
// meter come from.
package oteladapters

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AntonStoeckl/dialogue-trackerstore-go/trackerstore"
)

const (
	statusSuccess  = "success"
	statusError    = "error"
	statusNotFound = "not_found"
	attrStatus     = "status"
)

// TracingCollector implements trackerstore.TracingCollector with an OpenTelemetry tracer.
type TracingCollector struct {
	tracer trace.Tracer
}

// NewTracingCollector creates a TracingCollector.
// The tracer should come from the application's TracerProvider.
func NewTracingCollector(tracer trace.Tracer) *TracingCollector {
	return &TracingCollector{tracer: tracer}
}

// StartSpan starts a span with the given attributes and returns the context carrying it.
func (t *TracingCollector) StartSpan(
	ctx context.Context,
	name string,
	attrs map[string]string,
) (context.Context, trackerstore.SpanContext) {

	spanCtx, span := t.tracer.Start(ctx, name, trace.WithAttributes(toAttributes(attrs)...))

	return spanCtx, &OTelSpanContext{span: span}
}

// FinishSpan adds the final attributes, maps the status, and ends the span.
// Spans not started by this collector are ignored.
func (t *TracingCollector) FinishSpan(spanCtx trackerstore.SpanContext, status string, attrs map[string]string) {
	otelSpanCtx, ok := spanCtx.(*OTelSpanContext)
	if !ok {
		return
	}

	otelSpanCtx.span.SetAttributes(toAttributes(attrs)...)
	otelSpanCtx.setSpanStatus(status)
	otelSpanCtx.span.End()
}

// OTelSpanContext implements trackerstore.SpanContext by wrapping an OpenTelemetry span.
type OTelSpanContext struct {
	span trace.Span
}

// SetStatus maps status onto the span status.
func (s *OTelSpanContext) SetStatus(status string) {
	s.setSpanStatus(status)
}

// AddAttribute adds a string attribute to the span.
func (s *OTelSpanContext) AddAttribute(key, value string) {
	s.span.SetAttributes(attribute.String(key, value))
}

// setSpanStatus treats a missing tracker as a successful lookup, it is not an error of the store.
func (s *OTelSpanContext) setSpanStatus(status string) {
	switch status {
	case statusSuccess:
		s.span.SetStatus(codes.Ok, "")
	case statusNotFound:
		s.span.SetStatus(codes.Ok, "")
		s.span.SetAttributes(attribute.String(attrStatus, status))
	case statusError:
		s.span.SetStatus(codes.Error, "tracker store operation failed")
	default:
		s.span.SetAttributes(attribute.String(attrStatus, status))
	}
}

func toAttributes(attrs map[string]string) []attribute.KeyValue {
	kvs := make([]attribute.KeyValue, 0, len(attrs))
	for key, value := range attrs {
		kvs = append(kvs, attribute.String(key, value))
	}

	return kvs
}

var (
	_ trackerstore.TracingCollector = (*TracingCollector)(nil)
	_ trackerstore.SpanContext      = (*OTelSpanContext)(nil)
)
