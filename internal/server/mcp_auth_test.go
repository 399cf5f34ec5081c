package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/nc-bridge/internal/authmode"
	"github.com/stacklok/nc-bridge/internal/mcpserver"
)

func TestBindUpstreamClient_SingleUserBasic_BindsConfiguredUsername(t *testing.T) {
	d := &Deps{Mode: authmode.SingleUserBasic, BasicUsername: "alice", BasicPassword: "secret"}

	var captured *mcpserver.RequestBinding
	handler := bindUpstreamClient(d)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		binding, ok := mcpserver.BindingFromContext(r.Context())
		require.True(t, ok)
		captured = binding
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/mcp", nil))

	require.NotNil(t, captured)
	assert.Equal(t, "alice", captured.Username)
	assert.Equal(t, authmode.SingleUserBasic, captured.AuthCtx.Mode)
	assert.Same(t, http.DefaultClient, captured.Client)
}

func TestBindUpstreamClient_OAuthMode_NoTokenLeavesEmptyUsername(t *testing.T) {
	d := &Deps{Mode: authmode.OAuthResourceServer}

	var captured *mcpserver.RequestBinding
	handler := bindUpstreamClient(d)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		binding, ok := mcpserver.BindingFromContext(r.Context())
		require.True(t, ok)
		captured = binding
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/mcp", nil))

	require.NotNil(t, captured)
	assert.Empty(t, captured.Username)
	assert.Nil(t, captured.AuthCtx.VerifiedToken)
}
