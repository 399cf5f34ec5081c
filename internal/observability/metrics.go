package observability

import (
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds every instrument the bridge records against: per-request
// RED metrics, per-tool-call outcomes, per-upstream-call outcomes,
// per-token-verification outcomes, per-DB-operation outcomes, and
// per-dependency-readiness-probe results.
type Metrics struct {
	RequestDuration  metric.Float64Histogram
	RequestsTotal    metric.Int64Counter
	RequestsInFlight metric.Int64UpDownCounter

	ToolCallDuration metric.Float64Histogram

	UpstreamCallDuration metric.Float64Histogram

	TokenVerifications metric.Int64Counter

	DBOperationDuration metric.Float64Histogram

	DependencyProbeDuration metric.Float64Histogram
	DependencyProbeUp       metric.Int64Gauge
}

// NewMetrics registers every instrument on the given meter provider's
// "nc-bridge" meter.
func NewMetrics(provider metric.MeterProvider) (*Metrics, error) {
	meter := provider.Meter("nc-bridge")

	requestDuration, err := meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("Inbound HTTP request duration by method, normalized endpoint, and status code"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	requestsTotal, err := meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Inbound HTTP requests by method, normalized endpoint, and status code"),
	)
	if err != nil {
		return nil, err
	}

	requestsInFlight, err := meter.Int64UpDownCounter(
		"http_requests_in_flight",
		metric.WithDescription("Inbound HTTP requests currently being handled"),
	)
	if err != nil {
		return nil, err
	}

	toolCallDuration, err := meter.Float64Histogram(
		"mcp_tool_call_duration_seconds",
		metric.WithDescription("Tool-call duration by tool name and outcome"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	upstreamCallDuration, err := meter.Float64Histogram(
		"upstream_call_duration_seconds",
		metric.WithDescription("Upstream REST/WebDAV call duration by app name, method, and status"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	tokenVerifications, err := meter.Int64Counter(
		"token_verifications_total",
		metric.WithDescription("Token verification attempts by method and outcome"),
	)
	if err != nil {
		return nil, err
	}

	dbOperationDuration, err := meter.Float64Histogram(
		"db_operation_duration_seconds",
		metric.WithDescription("Storage operation duration by database and operation name"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	dependencyProbeDuration, err := meter.Float64Histogram(
		"dependency_probe_duration_seconds",
		metric.WithDescription("Readiness dependency probe duration by dependency name"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	dependencyProbeUp, err := meter.Int64Gauge(
		"dependency_probe_up",
		metric.WithDescription("1 if the most recent readiness probe for a dependency succeeded, else 0"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		RequestDuration:         requestDuration,
		RequestsTotal:           requestsTotal,
		RequestsInFlight:        requestsInFlight,
		ToolCallDuration:        toolCallDuration,
		UpstreamCallDuration:    upstreamCallDuration,
		TokenVerifications:      tokenVerifications,
		DBOperationDuration:     dbOperationDuration,
		DependencyProbeDuration: dependencyProbeDuration,
		DependencyProbeUp:       dependencyProbeUp,
	}, nil
}
