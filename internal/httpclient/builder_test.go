package httpclient

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestNewHttpClientBuilder(t *testing.T) {
	t.Parallel()
	b := NewHttpClientBuilder()
	assert.Equal(t, HttpTimeout, b.clientTimeout)
	assert.Equal(t, 10*time.Second, b.tlsHandshakeTimeout)
	assert.Empty(t, b.caCertPath)
	assert.Empty(t, b.authTokenFile)
	assert.False(t, b.allowPrivate)
}

func TestHttpClientBuilder_FluentSetters(t *testing.T) {
	t.Parallel()

	b := NewHttpClientBuilder()
	assert.Same(t, b, b.WithCABundle("/path/ca.crt"))
	assert.Equal(t, "/path/ca.crt", b.caCertPath)

	assert.Same(t, b, b.WithTokenFromFile("/path/token"))
	assert.Equal(t, "/path/token", b.authTokenFile)

	assert.Same(t, b, b.WithPrivateIPs(true))
	assert.True(t, b.allowPrivate)
}

func TestHttpClientBuilder_Build(t *testing.T) {
	t.Parallel()

	t.Run("basic client", func(t *testing.T) {
		t.Parallel()
		client, err := NewHttpClientBuilder().Build()
		require.NoError(t, err)
		assert.IsType(t, &ValidatingTransport{}, client.Transport)
	})

	t.Run("missing CA bundle", func(t *testing.T) {
		t.Parallel()
		_, err := NewHttpClientBuilder().WithCABundle("/nonexistent/ca.crt").Build()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to read CA certificate bundle")
	})

	t.Run("invalid CA bundle", func(t *testing.T) {
		t.Parallel()
		tmp := filepath.Join(t.TempDir(), "bad.crt")
		require.NoError(t, os.WriteFile(tmp, []byte("not a cert"), 0o644))
		_, err := NewHttpClientBuilder().WithCABundle(tmp).Build()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse CA certificate bundle")
	})

	t.Run("empty token file", func(t *testing.T) {
		t.Parallel()
		tmp := filepath.Join(t.TempDir(), "token")
		require.NoError(t, os.WriteFile(tmp, []byte("   "), 0o644))
		_, err := NewHttpClientBuilder().WithTokenFromFile(tmp).Build()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "auth token file is empty")
	})

	t.Run("valid token file wraps oauth2 transport", func(t *testing.T) {
		t.Parallel()
		tmp := filepath.Join(t.TempDir(), "token")
		require.NoError(t, os.WriteFile(tmp, []byte("secret-token"), 0o644))
		client, err := NewHttpClientBuilder().WithTokenFromFile(tmp).Build()
		require.NoError(t, err)
		assert.IsType(t, &oauth2.Transport{}, client.Transport)
	})
}

type mockRoundTripper struct {
	response *http.Response
}

func (m *mockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, nil
}

func TestValidatingTransport_RoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		url           string
		expectError   bool
		errorContains string
	}{
		{name: "valid HTTPS URL", url: "https://example.com/test"},
		{name: "HTTP URL", url: "http://example.com/test", expectError: true, errorContains: "is not HTTPS scheme"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			transport := &ValidatingTransport{Transport: &mockRoundTripper{
				response: &http.Response{StatusCode: 200, Body: io.NopCloser(strings.NewReader("OK"))},
			}}
			req, err := http.NewRequest(http.MethodGet, tt.url, nil)
			require.NoError(t, err)
			_, err = transport.RoundTrip(req)
			if tt.expectError {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorContains)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestIsLocalhost(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		host string
		want bool
	}{
		{"bare localhost", "localhost", true},
		{"localhost with port", "localhost:8080", true},
		{"loopback ip", "127.0.0.1", true},
		{"ipv6 loopback", "[::1]:8080", true},
		{"remote host", "example.com", false},
		{"invalid port", "localhost:99999", false},
		{"leading space", " localhost", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsLocalhost(tt.host))
		})
	}
}

func TestValidateEndpointURLWithInsecure(t *testing.T) {
	t.Parallel()

	require.NoError(t, ValidateEndpointURLWithInsecure("https://idp.example.com/.well-known", false))
	require.NoError(t, ValidateEndpointURLWithInsecure("http://localhost:8080/.well-known", false))
	require.Error(t, ValidateEndpointURLWithInsecure("http://idp.example.com/.well-known", false))
	require.NoError(t, ValidateEndpointURLWithInsecure("http://idp.example.com/.well-known", true))
}
