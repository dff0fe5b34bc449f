// Package telemetry wires optional OpenTelemetry tracing, modeled on the
// teacher's common/otel package. When OTEL_EXPORTER_OTLP_ENDPOINT is unset,
// Setup is a no-op and Tracer returns OTel's no-op tracer.
package telemetry

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "context-foundry"

// Config carries the pieces of internal/config relevant to telemetry setup,
// kept as a narrow struct so this package doesn't import internal/config.
type Config struct {
	Endpoint       string // OTEL_EXPORTER_OTLP_ENDPOINT; empty disables telemetry
	Headers        string // comma-separated key=value pairs
	ServiceName    string
	ServiceVersion string
}

func (c Config) enabled() bool { return c.Endpoint != "" }

// Telemetry owns the process-wide tracer provider and must be shut down on exit.
type Telemetry struct {
	provider *sdktrace.TracerProvider
}

// Setup installs a tracer provider when cfg.Endpoint is set; otherwise
// returns (nil, nil) and callers should use Tracer() which falls back to a
// no-op tracer.
func Setup(ctx context.Context, cfg Config) (*Telemetry, error) {
	if !cfg.enabled() {
		return nil, nil
	}

	res, err := sdkresource.Merge(
		sdkresource.Default(),
		sdkresource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry: building resource: %w", err)
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpointURL(cfg.Endpoint+"/v1/traces"),
		otlptracehttp.WithHeaders(parseHeaders(cfg.Headers)),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry: creating trace exporter: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))

	return &Telemetry{provider: provider}, nil
}

// Shutdown flushes and stops the tracer provider. Safe to call on a nil *Telemetry.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t == nil || t.provider == nil {
		return nil
	}
	return t.provider.Shutdown(ctx)
}

// Tracer returns the package tracer used for phase and subagent-task spans.
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

func parseHeaders(s string) map[string]string {
	headers := make(map[string]string)
	if s == "" {
		return headers
	}
	for _, pair := range strings.Split(s, ",") {
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) == 2 {
			headers[strings.TrimSpace(kv[0])] = strings.TrimSpace(kv[1])
		}
	}
	return headers
}
