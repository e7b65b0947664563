// Package telemetry owns the OpenTelemetry tracer lifecycle. Init is
// idempotent and Shutdown returns the package to its uninitialized state, so
// the pair can be exercised repeatedly in tests. Trace export failures never
// affect request handling.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"strconv"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// ErrUnknownExporter is returned for an unrecognized exporter name.
var ErrUnknownExporter = errors.New("unknown trace exporter")

// Config controls tracer behavior.
type Config struct {
	ServiceName    string
	ServiceVersion string

	// Exporter selects the span exporter: "otlp", "stdout", or "none".
	// "none" installs a provider without an exporter so span contexts (and
	// the X-Trace-Id header) still exist.
	Exporter string

	// OTLPEndpoint is the OTLP gRPC receiver, host:port.
	OTLPEndpoint string
	OTLPInsecure bool

	// SampleRate is the trace sampling ratio in [0, 1].
	SampleRate float64
}

var (
	mu       sync.Mutex
	provider *sdktrace.TracerProvider
)

// Init sets up the global TracerProvider. Calling Init while already
// initialized is a no-op. After Init, Tracer() hands out tracers backed by
// the configured exporter.
func Init(ctx context.Context, cfg Config) error {
	mu.Lock()
	defer mu.Unlock()
	if provider != nil {
		return nil
	}

	res := resource.NewWithAttributes(
		"",
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("service.version", cfg.ServiceVersion),
	)

	rate := cfg.SampleRate
	if rate > 1 {
		rate = 1
	}
	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(rate))),
	}

	switch cfg.Exporter {
	case "otlp":
		exporterOpts := []otlptracegrpc.Option{
			otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
		}
		if cfg.OTLPInsecure {
			exporterOpts = append(exporterOpts, otlptracegrpc.WithInsecure())
		}
		exporter, err := otlptracegrpc.New(ctx, exporterOpts...)
		if err != nil {
			return fmt.Errorf("init otlp exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exporter))
	case "stdout":
		exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return fmt.Errorf("init stdout exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exporter))
	case "none", "":
		// provider without exporter: spans are created but never shipped
	default:
		return fmt.Errorf("%w: %s", ErrUnknownExporter, cfg.Exporter)
	}

	provider = sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return nil
}

// Shutdown flushes buffered spans and returns the package to uninitialized.
// Safe to call when never initialized.
func Shutdown(ctx context.Context) error {
	mu.Lock()
	p := provider
	provider = nil
	mu.Unlock()
	if p == nil {
		return nil
	}
	return p.Shutdown(ctx)
}

// Initialized reports whether a provider is installed.
func Initialized() bool {
	mu.Lock()
	defer mu.Unlock()
	return provider != nil
}

// Tracer returns a named tracer from the global provider.
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}

// HashID reduces an identifier to a short non-cryptographic hash so raw user
// ids never land on span attributes.
func HashID(s string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return strconv.FormatUint(h.Sum64(), 16)
}
