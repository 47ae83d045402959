package observability

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const defaultOTLPEndpoint = "localhost:4317"

// TracingConfig is the tracing block of the skyscope config file.
type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	ServiceName string  `mapstructure:"service_name"`
	Exporter    string  `mapstructure:"exporter"` // stdout | otlp | none
	Endpoint    string  `mapstructure:"endpoint"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

// InitTracing installs the global tracer provider and propagator. The returned
// function flushes buffered spans; it is never nil when err is nil.
func InitTracing(ctx context.Context, cfg TracingConfig) (func(context.Context) error, error) {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	exporter := strings.ToLower(cfg.Exporter)
	if !cfg.Enabled || exporter == "none" {
		otel.SetTracerProvider(noop.NewTracerProvider())
		return func(context.Context) error { return nil }, nil
	}

	exp, err := newExporter(ctx, exporter, cfg.Endpoint)
	if err != nil {
		return nil, err
	}

	service := cfg.ServiceName
	if service == "" {
		service = "skyscope"
	}
	res, err := resource.New(ctx, resource.WithAttributes(
		attribute.String("service.name", service),
		attribute.String("service.namespace", "skyscope"),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to build trace resource: %w", err)
	}

	ratio := min(max(cfg.SampleRatio, 0), 1)
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))),
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	slog.Info("Tracing enabled", "exporter", exporter, "service", service, "sample_ratio", ratio)
	return tp.Shutdown, nil
}

func newExporter(ctx context.Context, name, endpoint string) (sdktrace.SpanExporter, error) {
	switch name {
	case "", "stdout":
		return stdouttrace.New(
			stdouttrace.WithWriter(os.Stderr),
			stdouttrace.WithoutTimestamps(),
		)
	case "otlp", "otlpgrpc":
		if endpoint == "" {
			endpoint = defaultOTLPEndpoint
		}
		return otlptrace.New(ctx, otlptracegrpc.NewClient(
			otlptracegrpc.WithEndpoint(endpoint),
			otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		))
	}
	return nil, fmt.Errorf("unsupported tracing exporter: %s", name)
}

// ShutdownWithTimeout flushes spans, giving up after five seconds.
func ShutdownWithTimeout(ctx context.Context, shutdown func(context.Context) error) {
	if shutdown == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		slog.Warn("Tracing shutdown failed", "err", err)
	}
}
