// Package telemetry sets up OpenTelemetry tracing for command runs.
package telemetry

import (
	"context"
	"errors"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const serviceName = "pdfr"

// Config configures tracing.
type Config struct {
	// Enabled turns on span export. When false all spans are no-ops.
	Enabled bool

	// Output receives pretty-printed spans. Defaults to stderr.
	Output io.Writer

	// ServiceVersion is recorded on the resource.
	ServiceVersion string
}

// Provider manages the tracer and its exporter.
type Provider struct {
	tracer        trace.Tracer
	shutdownFuncs []func(context.Context) error
}

// New creates a provider for config.
func New(config Config) (*Provider, error) {
	if !config.Enabled {
		return NewNoop(), nil
	}

	output := config.Output
	if output == nil {
		output = os.Stderr
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceName),
		semconv.ServiceVersion(config.ServiceVersion),
	)

	exporter, err := stdouttrace.New(
		stdouttrace.WithWriter(output),
		stdouttrace.WithPrettyPrint(),
	)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)

	// Set global tracer provider
	otel.SetTracerProvider(tp)

	return &Provider{
		tracer:        tp.Tracer(serviceName),
		shutdownFuncs: []func(context.Context) error{tp.Shutdown},
	}, nil
}

// NewNoop creates a provider whose spans record nothing.
func NewNoop() *Provider {
	return &Provider{tracer: noop.NewTracerProvider().Tracer(serviceName)}
}

// Start starts a span named name as a child of any span in ctx.
func (p *Provider) Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return p.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// Shutdown flushes pending spans and stops the exporter.
func (p *Provider) Shutdown(ctx context.Context) error {
	var errs []error
	for _, fn := range p.shutdownFuncs {
		if err := fn(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// End records err on span, if any, and ends it.
func End(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
