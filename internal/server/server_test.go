package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/nc-bridge/internal/health"
)

func TestNew_HealthRoutesRespond(t *testing.T) {
	d := &Deps{Health: health.NewHandler("basic", nil)}
	r := New(d)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWellKnown_NoMCPServerURLReturns404(t *testing.T) {
	d := &Deps{Health: health.NewHandler("basic", nil)}
	r := New(d)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/.well-known/oauth-protected-resource", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWellKnown_ReturnsProtectedResourceMetadata(t *testing.T) {
	d := &Deps{
		Health:        health.NewHandler("oauth", nil),
		MCPServerURL:  "https://bridge.example.com",
		NextcloudHost: "https://cloud.example.com",
	}
	r := New(d)

	for _, path := range []string{"/.well-known/oauth-protected-resource", "/.well-known/oauth-protected-resource/mcp"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, rec.Code, path)

		var metadata protectedResourceMetadata
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &metadata))
		assert.Equal(t, "https://bridge.example.com/mcp", metadata.Resource)
		assert.Equal(t, []string{"https://cloud.example.com"}, metadata.AuthorizationServers)
		assert.Equal(t, []string{"openid"}, metadata.ScopesSupported)
	}
}

func TestWellKnown_OptionsShortCircuitsWithNoContent(t *testing.T) {
	d := &Deps{Health: health.NewHandler("oauth", nil), MCPServerURL: "https://bridge.example.com"}
	r := New(d)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/.well-known/oauth-protected-resource", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestOAuthRouter_NilOrchestratorReturns404(t *testing.T) {
	d := &Deps{Health: health.NewHandler("oauth", nil)}
	r := New(d)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/oauth/authorize", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAppPasswordRouter_NilStoreReturns404(t *testing.T) {
	d := &Deps{Health: health.NewHandler("basic", nil)}
	r := New(d)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/users/alice/app-password", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminRouter_NilAdminWebReturns404(t *testing.T) {
	d := &Deps{Health: health.NewHandler("basic", nil)}
	r := New(d)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/app/", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMCPRouter_NilCatalogueReturns404(t *testing.T) {
	d := &Deps{Health: health.NewHandler("basic", nil)}
	r := New(d)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/mcp", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
