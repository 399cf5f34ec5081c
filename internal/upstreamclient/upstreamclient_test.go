package upstreamclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/nc-bridge/internal/authmode"
	"github.com/stacklok/nc-bridge/internal/tokenverifier"
)

func TestExchangeCache_RoundTripAndExpiry(t *testing.T) {
	c := NewExchangeCache()
	_, ok := c.get("tok")
	assert.False(t, ok)

	c.put("tok", "exchanged", time.Now().Add(time.Hour))
	got, ok := c.get("tok")
	require.True(t, ok)
	assert.Equal(t, "exchanged", got)

	c.put("expired", "stale", time.Now().Add(-time.Minute))
	_, ok = c.get("expired")
	assert.False(t, ok)
}

func TestBuilder_ForRequest_BasicModeRequiresCredentials(t *testing.T) {
	b := NewBuilder(&http.Client{}, nil)
	_, err := b.ForRequest(context.Background(), &authmode.RequestAuthContext{Mode: authmode.SingleUserBasic, HasBasic: false})
	assert.Error(t, err)
}

func TestBuilder_ForRequest_BasicModeInjectsAuth(t *testing.T) {
	var gotUser, gotPass string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, gotPass, _ = r.BasicAuth()
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	b := NewBuilder(&http.Client{Transport: http.DefaultTransport}, nil)
	client, err := b.ForRequest(context.Background(), &authmode.RequestAuthContext{
		Mode: authmode.SingleUserBasic, HasBasic: true, Username: "alice", Password: "secret",
	})
	require.NoError(t, err)

	req, _ := http.NewRequest(http.MethodGet, upstream.URL, nil)
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "alice", gotUser)
	assert.Equal(t, "secret", gotPass)
}

func TestBuilder_ForRequest_OAuthModeRequiresVerifiedToken(t *testing.T) {
	b := NewBuilder(&http.Client{}, nil)
	_, err := b.ForRequest(context.Background(), &authmode.RequestAuthContext{Mode: authmode.OAuthResourceServer})
	assert.Error(t, err)
}

func TestBuilder_ForRequest_OAuthModeNoExchangePassesInboundToken(t *testing.T) {
	var gotAuth string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	b := NewBuilder(&http.Client{Transport: http.DefaultTransport}, nil)
	client, err := b.ForRequest(context.Background(), &authmode.RequestAuthContext{
		Mode:          authmode.OAuthResourceServer,
		VerifiedToken: &tokenverifier.VerifiedAccessToken{Token: "inbound-tok"},
	})
	require.NoError(t, err)

	req, _ := http.NewRequest(http.MethodGet, upstream.URL, nil)
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "Bearer inbound-tok", gotAuth)
}

func TestDo_RetriesOn429ThenSucceeds(t *testing.T) {
	original := retryInterval
	retryInterval = time.Millisecond
	defer func() { retryInterval = original }()

	attempts := 0
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts++
		if attempts < 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	req, _ := http.NewRequest(http.MethodGet, upstream.URL, nil)
	resp, err := Do(context.Background(), &http.Client{}, req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, 2, attempts)
}

func TestDo_PassesThrough404Immediately(t *testing.T) {
	attempts := 0
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer upstream.Close()

	req, _ := http.NewRequest(http.MethodGet, upstream.URL, nil)
	resp, err := Do(context.Background(), &http.Client{}, req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, 1, attempts)
}
