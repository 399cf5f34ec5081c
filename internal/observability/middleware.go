package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"

	"github.com/stacklok/nc-bridge/internal/logging"
)

// excludedFromAccessLog holds endpoints that are excluded from access
// logs and span creation to keep observability output signal-heavy:
// health, metrics, and status-polling paths.
var excludedFromAccessLog = map[string]bool{
	"/health/live":  true,
	"/health/ready": true,
	"/metrics":      true,

	"/app/vector-sync/status": true,
}

// statusRecorder captures the status code a handler wrote so it can be
// reported as a metric/span attribute after the handler returns.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// HTTPMiddleware creates one span per inbound request and records RED
// metrics (duration histogram, request counter, in-flight gauge),
// skipping the excluded access-log endpoints entirely.
func (p *Provider) HTTPMiddleware(next http.Handler) http.Handler {
	tracer := p.Tracer("nc-bridge/http")

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if excludedFromAccessLog[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		p.Metrics.RequestsInFlight.Add(r.Context(), 1)
		defer p.Metrics.RequestsInFlight.Add(r.Context(), -1)

		ctx, span := tracer.Start(r.Context(), fmt.Sprintf("%s %s", r.Method, r.URL.Path))
		defer span.End()

		spanCtx := span.SpanContext()
		if spanCtx.HasTraceID() {
			ctx = logging.WithTraceFields(ctx, logging.TraceFields{
				TraceID: spanCtx.TraceID().String(),
				SpanID:  spanCtx.SpanID().String(),
			})
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(ctx))

		duration := time.Since(start).Seconds()
		pattern := routePattern(r)

		attrs := []attribute.KeyValue{
			attribute.String("method", r.Method),
			attribute.String("endpoint", pattern),
			attribute.Int("status_code", rec.status),
		}
		p.Metrics.RequestDuration.Record(ctx, duration, metric.WithAttributes(attrs...))
		p.Metrics.RequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))

		span.SetAttributes(attrs...)
		if rec.status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, fmt.Sprintf("status %d", rec.status))
		}
	})
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
		return rctx.RoutePattern()
	}
	return r.URL.Path
}
