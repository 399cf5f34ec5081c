package server

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/nc-bridge/internal/cryptobox"
	"github.com/stacklok/nc-bridge/internal/oauthflow"
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

	store, err := storage.Open(fmt.Sprintf("file:apppw_%d?mode=memory&cache=shared", id), box)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func basicAuthHeader(username, password string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(username+":"+password))
}

func TestAppPassword_ProvisionGetRevoke_RoundTrip(t *testing.T) {
	d := &Deps{Store: newTestStore(t)}
	r := appPasswordRouter(d)

	req := httptest.NewRequest(http.MethodPost, "/alice/app-password", nil)
	req.Header.Set("Authorization", basicAuthHeader("alice", "app-pw-value"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/alice/app-password", nil)
	req.Header.Set("Authorization", basicAuthHeader("alice", "whatever"))
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var status map[string]bool
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.True(t, status["configured"])

	req = httptest.NewRequest(http.MethodDelete, "/alice/app-password", nil)
	req.Header.Set("Authorization", basicAuthHeader("alice", "whatever"))
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/alice/app-password", nil)
	req.Header.Set("Authorization", basicAuthHeader("alice", "whatever"))
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	status = nil
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.False(t, status["configured"])
}

func TestAppPassword_MismatchedUserIsForbidden(t *testing.T) {
	d := &Deps{Store: newTestStore(t)}
	r := appPasswordRouter(d)

	req := httptest.NewRequest(http.MethodPost, "/alice/app-password", nil)
	req.Header.Set("Authorization", basicAuthHeader("bob", "whatever"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAppPassword_MissingBasicAuthIsUnauthorized(t *testing.T) {
	d := &Deps{Store: newTestStore(t)}
	r := appPasswordRouter(d)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/alice/app-password", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))
}

func TestAppPassword_RateLimitsProvisioning(t *testing.T) {
	d := &Deps{Store: newTestStore(t), RateLimiter: oauthflow.NewRateLimiter(1, time.Hour)}
	r := appPasswordRouter(d)

	req := httptest.NewRequest(http.MethodPost, "/alice/app-password", nil)
	req.Header.Set("Authorization", basicAuthHeader("alice", "first"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/alice/app-password", nil)
	req.Header.Set("Authorization", basicAuthHeader("alice", "second"))
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}
