package observability

import (
	"context"
	"errors"
	"net/http"

	"github.com/upb/identity-gateway/config"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.uber.org/zap"
)

// ShutdownFunc flushes and stops the telemetry pipeline
type ShutdownFunc func(context.Context) error

// ConfigureTracing installs the global tracer provider and propagator.
// When tracing is disabled the returned shutdown is a no-op.
func ConfigureTracing(ctx context.Context, cfg config.ObservabilityConfig, logger *zap.Logger) (ShutdownFunc, error) {
	if !cfg.TracingEnabled {
		logger.Info("tracing disabled: set TRACING_ENABLED to export spans")
		return func(context.Context) error { return nil }, nil
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	exporter, err := newSpanExporter(ctx, cfg.TracingExporter)
	if err != nil {
		return nil, err
	}

	res, err := resourceWithServiceName(resource.Default(), cfg.ServiceName)
	if err != nil {
		return nil, errors.Join(err, exporter.Shutdown(ctx))
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.TracingSampleRate))),
	)
	otel.SetTracerProvider(provider)

	logger.Info("tracing enabled",
		zap.String("exporter", cfg.TracingExporter),
		zap.Float64("sample_rate", cfg.TracingSampleRate))

	return provider.Shutdown, nil
}

func newSpanExporter(ctx context.Context, kind string) (sdktrace.SpanExporter, error) {
	switch kind {
	case "stdout":
		return stdouttrace.New()
	default:
		return otlptracegrpc.New(ctx)
	}
}

func resourceWithServiceName(base *resource.Resource, serviceName string) (*resource.Resource, error) {
	return resource.Merge(
		base,
		resource.NewSchemaless(semconv.ServiceName(serviceName)),
	)
}

// HTTPHandler wraps the server handler with span creation
func HTTPHandler(next http.Handler, cfg config.ObservabilityConfig) http.Handler {
	if !cfg.TracingEnabled {
		return next
	}
	return otelhttp.NewHandler(next, cfg.ServiceName)
}

// HTTPTransport instruments outbound calls such as key set fetches
func HTTPTransport(wrapped http.RoundTripper, cfg config.ObservabilityConfig) http.RoundTripper {
	if wrapped == nil {
		wrapped = http.DefaultTransport
	}
	if !cfg.TracingEnabled {
		return wrapped
	}
	return otelhttp.NewTransport(wrapped)
}
