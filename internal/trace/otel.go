package trace

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Provider bundles the tracer and meter providers built by InitProvider, so
// callers have one handle to shut down on process exit.
type Provider struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         oteltrace.Tracer
	Meter          metric.Meter
}

// ProviderConfig controls OTLP/Prometheus wiring. When Enabled is false,
// InitProvider returns a Provider backed by no-op implementations.
type ProviderConfig struct {
	Enabled        bool
	ServiceName    string
	OTLPEndpoint   string
	MetricsEnabled bool
}

// InitProvider builds the OpenTelemetry tracer and meter providers used to
// back an active TraceContext and the metrics counters mirror, as a single
// entry point covering both the OTLP span exporter and the optional
// Prometheus metrics reader.
func InitProvider(ctx context.Context, cfg ProviderConfig) (*Provider, error) {
	if !cfg.Enabled {
		return &Provider{
			Tracer: noop.NewTracerProvider().Tracer("researchcore"),
			Meter:  otel.Meter("researchcore"),
		}, nil
	}

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("trace: create otlp exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(tp)
	tracer := tp.Tracer(cfg.ServiceName)

	var mp *sdkmetric.MeterProvider
	meter := otel.Meter(cfg.ServiceName)
	if cfg.MetricsEnabled {
		promExporter, err := prometheus.New()
		if err != nil {
			return nil, fmt.Errorf("trace: create prometheus exporter: %w", err)
		}
		mp = sdkmetric.NewMeterProvider(sdkmetric.WithReader(promExporter))
		otel.SetMeterProvider(mp)
		meter = mp.Meter(cfg.ServiceName)
	}

	return &Provider{TracerProvider: tp, MeterProvider: mp, Tracer: tracer, Meter: meter}, nil
}

// Shutdown flushes and stops the underlying providers. Safe to call on a
// disabled (no-op) Provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.TracerProvider != nil {
		if err := p.TracerProvider.Shutdown(ctx); err != nil {
			return err
		}
	}
	if p.MeterProvider != nil {
		return p.MeterProvider.Shutdown(ctx)
	}
	return nil
}
