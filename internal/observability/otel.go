package observability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chatmemory-gateway/internal/config"

	"go.opentelemetry.io/contrib/instrumentation/host"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
)

// InitOTel configures tracing and, when enabled, metrics exporters for the
// gateway (spec §9 "ambient observability"). Returns a shutdown func.
func InitOTel(ctx context.Context, obs config.OTelConfig) (func(context.Context) error, error) {
	if obs.OTLPEndpoint == "" {
		return nil, errors.New("otlp endpoint is required")
	}

	res, err := resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithTelemetrySDK(),
		resource.WithProcess(),
		resource.WithOS(),
		resource.WithAttributes(
			semconv.ServiceName(obs.ServiceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("init resource: %w", err)
	}

	trExp, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpoint(obs.OTLPEndpoint), otlptracehttp.WithInsecure())
	if err != nil {
		return nil, fmt.Errorf("init trace exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(trExp),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	shutdown := func(ctx context.Context) error { return tp.Shutdown(ctx) }

	if obs.MetricsEnabled {
		mExp, err := otlpmetrichttp.New(ctx, otlpmetrichttp.WithEndpoint(obs.OTLPEndpoint), otlpmetrichttp.WithInsecure())
		if err != nil {
			return nil, fmt.Errorf("init metrics exporter: %w", err)
		}
		reader := metric.NewPeriodicReader(mExp, metric.WithInterval(10*time.Second))
		mp := metric.NewMeterProvider(
			metric.WithReader(reader),
			metric.WithResource(res),
		)
		otel.SetMeterProvider(mp)

		if err := host.Start(host.WithMeterProvider(mp)); err != nil {
			return nil, fmt.Errorf("failed to start host metrics: %w", err)
		}
		shutdown = func(ctx context.Context) error {
			var first error
			if err := mp.Shutdown(ctx); err != nil {
				first = err
			}
			if err := tp.Shutdown(ctx); err != nil && first == nil {
				first = err
			}
			return first
		}
	}

	return shutdown, nil
}
