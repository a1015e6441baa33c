// Package observability provides OpenTelemetry integration for distributed
// tracing.
//
// Traces are exported over OTLP HTTP to a local collector (an OpenTelemetry
// Collector, a vendor agent, anything that speaks OTLP on localhost). The
// agent-on-localhost model keeps credentials out of the application and
// buffers spans across collector restarts.
//
// Tracing is opt-in: with no endpoint configured, Setup is a no-op and every
// returned shutdown function succeeds immediately.
//
// Environment variables:
//   - OTEL_EXPORTER_OTLP_ENDPOINT: collector endpoint (host:port)
//
// Config file (~/.quarry/config.yaml):
//
//	tracing:
//	  endpoint: "localhost:4318"
//	  service_name: "quarry"
//	  environment: "dev"
package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/quarry-ai/quarry/internal/config"
	"github.com/quarry-ai/quarry/internal/log"
)

// Setup installs an OTLP HTTP trace exporter as the global tracer provider.
// Returns a shutdown function that flushes pending spans; exporter creation
// failure disables tracing rather than failing startup.
func Setup(ctx context.Context, cfg config.TracingConfig, logger log.Logger) (shutdown func(context.Context) error, err error) {
	noop := func(context.Context) error { return nil }
	if !cfg.Enabled() {
		logger.Debug("tracing disabled, no endpoint configured")
		return noop, nil
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(cfg.Endpoint),
		otlptracehttp.WithInsecure(), // localhost collector, no TLS
	)
	if err != nil {
		logger.Warn("failed to create trace exporter, tracing disabled", "error", err)
		return noop, nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			attribute.String("deployment.environment", cfg.Environment),
		),
	)
	if err != nil {
		logger.Warn("failed to build trace resource, tracing disabled", "error", err)
		return noop, nil
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	logger.Debug("tracing enabled",
		"endpoint", cfg.Endpoint,
		"service", cfg.ServiceName,
		"environment", cfg.Environment,
	)
	return tp.Shutdown, nil
}
