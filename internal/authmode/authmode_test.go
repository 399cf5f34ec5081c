package authmode

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/nc-bridge/internal/config"
	"github.com/stacklok/nc-bridge/internal/tokenverifier"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.Config
		want Mode
	}{
		{"fixed credentials win", config.Config{NextcloudUsername: "alice", NextcloudPassword: "secret"}, SingleUserBasic},
		{"multi user flag", config.Config{MultiUserBasicEnabled: true}, MultiUserBasic},
		{"default oauth", config.Config{}, OAuthResourceServer},
		{"fixed creds beat multi-user flag", config.Config{NextcloudUsername: "a", NextcloudPassword: "b", MultiUserBasicEnabled: true}, SingleUserBasic},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(&tt.cfg))
		})
	}
}

func TestSingleUserMiddleware_AlwaysHydratesFixedCreds(t *testing.T) {
	var captured *RequestAuthContext
	handler := SingleUserMiddleware("alice", "hunter2")(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		captured, _ = FromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	require.NotNil(t, captured)
	assert.Equal(t, SingleUserBasic, captured.Mode)
	assert.Equal(t, "alice", captured.Username)
	assert.Equal(t, "hunter2", captured.Password)
	assert.True(t, captured.HasBasic)
	assert.False(t, captured.Filtering())
}

func TestMultiUserMiddleware_ExtractsBasicWithColonInPassword(t *testing.T) {
	var captured *RequestAuthContext
	handler := MultiUserMiddleware()(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		captured, _ = FromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	creds := base64.StdEncoding.EncodeToString([]byte("bob:pa:ss:word"))
	req.Header.Set("Authorization", "Basic "+creds)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	require.NotNil(t, captured)
	assert.True(t, captured.HasBasic)
	assert.Equal(t, "bob", captured.Username)
	assert.Equal(t, "pa:ss:word", captured.Password)
}

func TestMultiUserMiddleware_MissingHeaderLeavesEmptyContext(t *testing.T) {
	var captured *RequestAuthContext
	handler := MultiUserMiddleware()(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		captured, _ = FromContext(r.Context())
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	require.NotNil(t, captured)
	assert.False(t, captured.HasBasic)
	assert.Equal(t, MultiUserBasic, captured.Mode)
}

func TestRequestAuthContext_FilteringAndScopes(t *testing.T) {
	oauthCtx := &RequestAuthContext{Mode: OAuthResourceServer}
	assert.False(t, oauthCtx.Filtering())
	assert.Nil(t, oauthCtx.Scopes())
}

func TestOAuthMiddleware_NilVerifierLeavesBareContext(t *testing.T) {
	var captured *RequestAuthContext
	handler := OAuthMiddleware(nil)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		captured, _ = FromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer sometoken")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	require.NotNil(t, captured)
	assert.Equal(t, OAuthResourceServer, captured.Mode)
	assert.Nil(t, captured.VerifiedToken)
	assert.False(t, captured.Filtering())
}

func TestOAuthMiddleware_NonBearerHeaderLeavesBareContext(t *testing.T) {
	var captured *RequestAuthContext
	handler := OAuthMiddleware(nil)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		captured, _ = FromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Basic whatever")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	require.NotNil(t, captured)
	assert.Nil(t, captured.VerifiedToken)
}

func TestRequestAuthContext_Principal(t *testing.T) {
	basicCtx := &RequestAuthContext{Mode: SingleUserBasic, Username: "alice"}
	assert.Equal(t, "alice", basicCtx.Principal())

	oauthCtx := &RequestAuthContext{
		Mode:          OAuthResourceServer,
		VerifiedToken: &tokenverifier.VerifiedAccessToken{Principal: "carol"},
	}
	assert.Equal(t, "carol", oauthCtx.Principal())
}
