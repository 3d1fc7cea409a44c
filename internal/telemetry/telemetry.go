// Package telemetry wires up span export for the local lookup-resolution
// chain. The teacher's version propagates trace context over gRPC request
// metadata so a single lookup's spans span multiple processes; this wire
// protocol carries no metadata channel (spec.md §5: a bare text line per
// request), so tracing here covers only the spans a single node creates
// while resolving a lookup locally — a deliberate simplification, not an
// attempt to reproduce distributed tracing over plain-text RPC.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"chordring/internal/config"
	"chordring/internal/ring"
)

// noopShutdown is returned when tracing is disabled, so callers can always
// defer the returned shutdown function unconditionally.
func noopShutdown(context.Context) error { return nil }

// Init configures the global tracer provider according to cfg. When tracing
// is disabled it installs nothing and returns a no-op shutdown function.
func Init(cfg config.TelemetryConfig, serviceName string, nodeID ring.ID) (func(context.Context) error, error) {
	if !cfg.Tracing.Enabled {
		return noopShutdown, nil
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			attribute.String("service.name", serviceName),
			attribute.String("dht.node.id", nodeID.String()),
		),
	)
	if err != nil {
		return noopShutdown, fmt.Errorf("telemetry: build resource: %w", err)
	}

	if cfg.Tracing.Exporter != "stdout" {
		return noopShutdown, fmt.Errorf("telemetry: unsupported exporter %q (only stdout is wired locally)", cfg.Tracing.Exporter)
	}

	exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return noopShutdown, fmt.Errorf("telemetry: build stdout exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}
