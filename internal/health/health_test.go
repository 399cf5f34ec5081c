package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLive_AlwaysReturns200(t *testing.T) {
	h := NewHandler("basic", nil)
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	w := httptest.NewRecorder()
	h.Live(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "alive", body["status"])
	assert.Equal(t, "basic", body["mode"])
}

func TestReady_AllDependenciesUp_Returns200(t *testing.T) {
	h := NewHandler("oauth", nil,
		FuncChecker{CheckerName: "a", Fn: func(context.Context) error { return nil }},
		FuncChecker{CheckerName: "b", Fn: func(context.Context) error { return nil }},
	)
	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	w := httptest.NewRecorder()
	h.Ready(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var report ReadinessReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.True(t, report.Ready)
	assert.Len(t, report.Dependencies, 2)
}

func TestReady_OneDependencyDown_Returns503WithError(t *testing.T) {
	h := NewHandler("basic", nil,
		FuncChecker{CheckerName: "nextcloud", Fn: func(context.Context) error { return errors.New("timeout") }},
	)
	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	w := httptest.NewRecorder()
	h.Ready(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	var report ReadinessReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.False(t, report.Ready)
	require.Len(t, report.Dependencies, 1)
	assert.False(t, report.Dependencies[0].OK)
	assert.Equal(t, "timeout", report.Dependencies[0].Error)
}

func TestNewUpstreamChecker_SucceedsOn200(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/status.php", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	checker := NewUpstreamChecker(server.Client(), server.URL)
	assert.NoError(t, checker.Check(context.Background()))
}

func TestNewUpstreamChecker_FailsOnNon200(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	checker := NewUpstreamChecker(server.Client(), server.URL)
	assert.Error(t, checker.Check(context.Background()))
}

func TestNewAuthConfiguredChecker(t *testing.T) {
	assert.NoError(t, NewAuthConfiguredChecker("basic", true).Check(context.Background()))
	assert.Error(t, NewAuthConfiguredChecker("basic", false).Check(context.Background()))
}

func TestNewEmbeddedVectorChecker_AlwaysUp(t *testing.T) {
	assert.NoError(t, NewEmbeddedVectorChecker().Check(context.Background()))
}

func TestNewVectorStoreChecker_ProbesReadyzEndpoint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/readyz", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	checker := NewVectorStoreChecker(server.Client(), server.URL)
	assert.NoError(t, checker.Check(context.Background()))
}
