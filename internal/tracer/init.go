package tracer

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.uber.org/zap"
)

// Init installs an OTLP HTTP tracer provider when enabled. The returned
// function flushes and stops it; it is a no-op when tracing is disabled.
func Init(ctx context.Context, enabled bool, endpoint string, log *zap.Logger) func(context.Context) error {
	if !enabled {
		log.Info("tracing disabled (set OTEL_ENABLED=true to enable)")
		return func(context.Context) error { return nil }
	}
	if endpoint == "" {
		endpoint = "localhost:4318"
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		log.Warn("failed to create OTLP exporter, tracing disabled", zap.Error(err))
		return func(context.Context) error { return nil }
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String("researchhub-api"),
		)),
	)
	otel.SetTracerProvider(tp)
	log.Info("tracer initialized", zap.String("endpoint", endpoint))

	return tp.Shutdown
}
