// Package observability wires request/tool/upstream/db/dependency-probe
// metrics and distributed tracing into a single Provider: an OTel SDK
// MeterProvider backed by a Prometheus exporter, and an OTel SDK
// TracerProvider exported over OTLP/HTTP when an endpoint is configured.
package observability

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/stacklok/nc-bridge/internal/bridgeerrors"
)

// Config carries the subset of internal/config.Config observability
// cares about, kept separate so this package has no import-cycle risk.
type Config struct {
	ServiceName   string
	MetricsPort   int
	OTLPEndpoint  string
	TracesSampler float64
}

// Provider owns the process's meter and tracer providers, the
// Prometheus scrape handler, and a Shutdown that flushes both.
type Provider struct {
	MeterProvider  metric.MeterProvider
	TracerProvider trace.TracerProvider
	MetricsHandler http.Handler
	Metrics        *Metrics

	shutdownFuncs []func(context.Context) error
}

// New builds a Provider. Metrics are always registered (the scrape
// handler is cheap and the pack's dashboards expect it); tracing is only
// exported when cfg.OTLPEndpoint is set, matching the "otherwise tracing
// is silently disabled" contract.
func New(ctx context.Context, cfg Config) (*Provider, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
		),
	)
	if err != nil {
		return nil, bridgeerrors.NewConfigError("building observability resource", err)
	}

	p := &Provider{}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, bridgeerrors.NewConfigError("building prometheus exporter", err)
	}
	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)
	p.MeterProvider = meterProvider
	p.MetricsHandler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	p.shutdownFuncs = append(p.shutdownFuncs, meterProvider.Shutdown)

	if cfg.OTLPEndpoint != "" {
		traceExporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpoint(cfg.OTLPEndpoint))
		if err != nil {
			return nil, bridgeerrors.NewConfigError("building otlp trace exporter", err)
		}
		tracerProvider := sdktrace.NewTracerProvider(
			sdktrace.WithResource(res),
			sdktrace.WithBatcher(traceExporter),
			sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.TracesSampler)),
		)
		p.TracerProvider = tracerProvider
		p.shutdownFuncs = append(p.shutdownFuncs, tracerProvider.Shutdown)
		otel.SetTracerProvider(tracerProvider)
	} else {
		p.TracerProvider = tracenoop.NewTracerProvider()
	}

	metrics, err := NewMetrics(p.MeterProvider)
	if err != nil {
		return nil, bridgeerrors.NewConfigError("registering metric instruments", err)
	}
	p.Metrics = metrics

	return p, nil
}

// Shutdown flushes and closes every exporter. Safe to call on a Provider
// whose New failed partway (shutdownFuncs only contains what succeeded).
func (p *Provider) Shutdown(ctx context.Context) error {
	var firstErr error
	for _, fn := range p.shutdownFuncs {
		if err := fn(ctx); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("observability shutdown: %w", err)
		}
	}
	return firstErr
}

// Tracer returns a named tracer from the process's TracerProvider.
func (p *Provider) Tracer(name string) trace.Tracer {
	return p.TracerProvider.Tracer(name)
}
