// Package health implements the liveness and readiness probes:
// /health/live (unconditional process check) and /health/ready (a
// per-dependency JSON report covering upstream reachability, auth
// configuration, and — when indexing is enabled — vector store
// reachability).
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/stacklok/nc-bridge/internal/observability"
)

// readyCheckTimeout bounds the whole readiness probe, matching the
// 2-second upstream-reachability budget.
const readyCheckTimeout = 2 * time.Second

// Checker probes a single dependency. A nil error means the dependency
// is up.
type Checker interface {
	Name() string
	Check(ctx context.Context) error
}

// FuncChecker adapts a plain function into a Checker.
type FuncChecker struct {
	CheckerName string
	Fn          func(ctx context.Context) error
}

// Name implements Checker.
func (f FuncChecker) Name() string { return f.CheckerName }

// Check implements Checker.
func (f FuncChecker) Check(ctx context.Context) error { return f.Fn(ctx) }

// DependencyReport is one dependency's entry in the readiness report.
type DependencyReport struct {
	Name       string `json:"name"`
	OK         bool   `json:"ok"`
	DurationMS int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// ReadinessReport is the full JSON body returned by /health/ready.
type ReadinessReport struct {
	Ready        bool               `json:"ready"`
	Dependencies []DependencyReport `json:"dependencies"`
}

// Handler serves the liveness and readiness endpoints.
type Handler struct {
	checkers []Checker
	metrics  *observability.Provider
	mode     string
}

// NewHandler builds a Handler. mode is reported on the liveness response
// (the resolved auth mode, e.g. "single_user_basic" or
// "oauth_resource_server") purely for operator convenience. metrics may be
// nil in tests.
func NewHandler(mode string, metrics *observability.Provider, checkers ...Checker) *Handler {
	return &Handler{checkers: checkers, metrics: metrics, mode: mode}
}

// Live always returns 200: the process is running.
func (h *Handler) Live(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive", "mode": h.mode})
}

// Ready runs every registered dependency checker, with the whole probe
// bounded by readyCheckTimeout, and reports 503 if any dependency failed.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyCheckTimeout)
	defer cancel()

	report := ReadinessReport{Ready: true}
	for _, c := range h.checkers {
		start := time.Now()
		err := c.Check(ctx)
		duration := time.Since(start)

		up := err == nil
		entry := DependencyReport{Name: c.Name(), OK: up, DurationMS: duration.Milliseconds()}
		if err != nil {
			entry.Error = err.Error()
			report.Ready = false
		}
		report.Dependencies = append(report.Dependencies, entry)

		if h.metrics != nil {
			h.metrics.RecordDependencyProbe(ctx, c.Name(), up, duration)
		}
	}

	status := http.StatusOK
	if !report.Ready {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
