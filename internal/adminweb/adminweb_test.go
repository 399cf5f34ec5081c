package adminweb

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/nc-bridge/internal/cryptobox"
	"github.com/stacklok/nc-bridge/internal/storage"
)

var testDBCounter atomic.Int64

func newTestStore(t *testing.T) *storage.Store {
	t.Helper()
	id := testDBCounter.Add(1)
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	box, err := cryptobox.NewBox(base64.StdEncoding.EncodeToString(key))
	require.NoError(t, err)

	store, err := storage.Open(fmt.Sprintf("file:adminweb_%d?mode=memory&cache=shared", id), box)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRequireSession_BasicModeAlwaysAuthenticates(t *testing.T) {
	a := New(Config{BasicMode: true, BasicUsername: "admin"})

	var seenUser string
	handler := a.RequireSession(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seenUser, _ = UserFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/app/", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, "admin", seenUser)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireSession_OAuthModeNoCookieRedirects(t *testing.T) {
	store := newTestStore(t)
	a := New(Config{Store: store, LoginRedirectURL: "/oauth/login"})

	handler := a.RequireSession(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/app/", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/oauth/login", w.Header().Get("Location"))
}

func TestRequireSession_OAuthModeValidCookiePassesThrough(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.PutRefreshToken(ctx, "alice", "plain-token", nil, storage.FlowDirect, "https://cloud.example.com", "client-1", []string{"notes:read"}))

	a := New(Config{Store: store, LoginRedirectURL: "/oauth/login"})

	var seenUser string
	handler := a.RequireSession(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seenUser, _ = UserFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/app/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "alice"})
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, "alice", seenUser)
}

func TestUserInfo_BasicMode(t *testing.T) {
	a := New(Config{BasicMode: true, BasicUsername: "admin", NextcloudHost: "https://cloud.example.com"})

	req := httptest.NewRequest(http.MethodGet, "/app/", nil)
	req = req.WithContext(withUser(req.Context(), "admin"))
	w := httptest.NewRecorder()
	a.UserInfo(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"auth_mode":"basic"`)
}

func TestRevokeSession_OAuthModeDeletesTokenAndClearsCookie(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.PutRefreshToken(ctx, "alice", "plain-token", nil, storage.FlowDirect, "https://cloud.example.com", "client-1", nil))

	a := New(Config{Store: store})

	req := httptest.NewRequest(http.MethodPost, "/app/revoke", nil)
	req = req.WithContext(withUser(req.Context(), "alice"))
	w := httptest.NewRecorder()
	a.RevokeSession(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	rec, err := store.GetRefreshToken(ctx, "alice")
	require.NoError(t, err)
	assert.Nil(t, rec)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, -1, cookies[0].MaxAge)
}
