package main

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/AntonStoeckl/dialogue-trackerstore-go/trackerstore"
	"github.com/AntonStoeckl/dialogue-trackerstore-go/trackerstore/oteladapters"
)

const instrumentationName = "dialogue-trackerstore-load-generator"

// otelProviders holds the OpenTelemetry providers exporting to an OTLP gRPC collector.
type otelProviders struct {
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
}

func newOTelProviders(ctx context.Context, endpoint string) (*otelProviders, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(instrumentationName),
		),
	)
	if err != nil {
		return nil, err
	}

	traceExporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	metricExporter, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithEndpoint(endpoint),
		otlpmetricgrpc.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	providers := &otelProviders{
		tracerProvider: sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(traceExporter),
			sdktrace.WithResource(res),
		),
		meterProvider: sdkmetric.NewMeterProvider(
			sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter, sdkmetric.WithInterval(5*time.Second))),
			sdkmetric.WithResource(res),
		),
	}

	otel.SetTracerProvider(providers.tracerProvider)
	otel.SetMeterProvider(providers.meterProvider)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return providers, nil
}

// storeOptions replaces the Prometheus metrics with OpenTelemetry ones and adds tracing.
func (p *otelProviders) storeOptions() []trackerstore.Option {
	return []trackerstore.Option{
		trackerstore.WithTracing(oteladapters.NewTracingCollector(p.tracerProvider.Tracer(instrumentationName))),
		trackerstore.WithMetrics(oteladapters.NewMetricsCollector(p.meterProvider.Meter(instrumentationName))),
	}
}

func (p *otelProviders) Shutdown(ctx context.Context) error {
	return errors.Join(
		p.tracerProvider.Shutdown(ctx),
		p.meterProvider.Shutdown(ctx),
	)
}
