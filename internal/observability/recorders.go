package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// RecordToolCall records a single MCP tool invocation's outcome and
// duration.
func (p *Provider) RecordToolCall(ctx context.Context, tool, outcome string, duration time.Duration) {
	p.Metrics.ToolCallDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("tool", tool),
		attribute.String("outcome", outcome),
	))
}

// RecordUpstreamCall records a single outbound call to the Nextcloud
// upstream's outcome and duration.
func (p *Provider) RecordUpstreamCall(ctx context.Context, app, method string, statusCode int, duration time.Duration) {
	p.Metrics.UpstreamCallDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("app", app),
		attribute.String("method", method),
		attribute.Int("status_code", statusCode),
	))
}

// RecordTokenVerification records one bearer-token verification attempt.
func (p *Provider) RecordTokenVerification(ctx context.Context, method, outcome string) {
	p.Metrics.TokenVerifications.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("outcome", outcome),
	))
}

// RecordDBOperation records one storage operation's duration.
func (p *Provider) RecordDBOperation(ctx context.Context, db, op, outcome string, duration time.Duration) {
	p.Metrics.DBOperationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("db", db),
		attribute.String("op", op),
		attribute.String("outcome", outcome),
	))
}

// RecordDependencyProbe records one readiness-probe result for a named
// dependency (e.g. "upstream", "vector_store").
func (p *Provider) RecordDependencyProbe(ctx context.Context, name string, up bool, duration time.Duration) {
	attrs := metric.WithAttributes(attribute.String("name", name))
	p.Metrics.DependencyProbeDuration.Record(ctx, duration.Seconds(), attrs)

	upValue := int64(0)
	if up {
		upValue = 1
	}
	p.Metrics.DependencyProbeUp.Record(ctx, upValue, attrs)
}
