// Package upstreamclient builds the per-request upstream client: an
// *http.Client pre-authenticated toward the Nextcloud host, chosen
// according to the active auth mode, decorated with a 429-aware retry
// policy.
package upstreamclient

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/stacklok/nc-bridge/internal/authmode"
	"github.com/stacklok/nc-bridge/internal/bridgeerrors"
	networking "github.com/stacklok/nc-bridge/internal/httpclient"
	logger "github.com/stacklok/nc-bridge/internal/logging"
	"github.com/stacklok/nc-bridge/pkg/auth/tokenexchange"
)

const maxRetryAttempts = 5

// retryInterval is the fixed backoff between retry attempts.
// Package-private and var, not const, so tests can shrink it.
var retryInterval = 5 * time.Second

// ExchangeCache remembers access tokens obtained via RFC 8693 token
// exchange, keyed by the inbound token so repeated calls from the same
// caller don't re-exchange on every request.
type ExchangeCache struct {
	mu      sync.Mutex
	entries map[string]cachedToken
}

type cachedToken struct {
	accessToken string
	expiresAt   time.Time
}

// NewExchangeCache returns an empty cache.
func NewExchangeCache() *ExchangeCache {
	return &ExchangeCache{entries: make(map[string]cachedToken)}
}

func (c *ExchangeCache) get(inboundToken string) (string, bool) {
	key := hashToken(inboundToken)
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok || time.Now().After(entry.expiresAt) {
		delete(c.entries, key)
		return "", false
	}
	return entry.accessToken, true
}

func (c *ExchangeCache) put(inboundToken, accessToken string, expiresAt time.Time) {
	key := hashToken(inboundToken)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cachedToken{accessToken: accessToken, expiresAt: expiresAt}
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Builder constructs upstream clients for each auth mode.
type Builder struct {
	baseTransport *http.Client
	exchangeCfg   *tokenexchange.ExchangeConfig
	exchangeCache *ExchangeCache
	enableExchange bool
}

// NewBuilder wires a Builder from a base (SSRF-guarded) HTTP client and
// optional token-exchange configuration. exchangeCfg is nil when
// EnableTokenExchange is false.
func NewBuilder(baseTransport *http.Client, exchangeCfg *tokenexchange.ExchangeConfig) *Builder {
	return &Builder{
		baseTransport:  baseTransport,
		exchangeCfg:    exchangeCfg,
		exchangeCache:  NewExchangeCache(),
		enableExchange: exchangeCfg != nil,
	}
}

// ForRequest returns an *http.Client authenticated for the given request
// context: Basic credentials in the Basic modes, or a direct/exchanged
// bearer token in OAuthResourceServer mode.
func (b *Builder) ForRequest(ctx context.Context, authCtx *authmode.RequestAuthContext) (*http.Client, error) {
	switch authCtx.Mode {
	case authmode.SingleUserBasic, authmode.MultiUserBasic:
		if !authCtx.HasBasic {
			return nil, bridgeerrors.NewAuthFailure("no Basic credentials available for upstream request", nil)
		}
		return &http.Client{
			Transport: &basicAuthTransport{
				base:     b.baseTransport.Transport,
				username: authCtx.Username,
				password: authCtx.Password,
			},
			Timeout: b.baseTransport.Timeout,
		}, nil
	case authmode.OAuthResourceServer:
		if authCtx.VerifiedToken == nil {
			return nil, bridgeerrors.NewAuthFailure("no verified token available for upstream request", nil)
		}
		token, err := b.resolveBearer(ctx, authCtx.VerifiedToken.Token)
		if err != nil {
			return nil, err
		}
		return &http.Client{
			Transport: &bearerAuthTransport{base: b.baseTransport.Transport, token: token},
			Timeout:   b.baseTransport.Timeout,
		}, nil
	default:
		return nil, bridgeerrors.NewConfigError(fmt.Sprintf("unknown auth mode %q", authCtx.Mode), nil)
	}
}

// resolveBearer returns the token to send upstream: the inbound token
// itself when token exchange is disabled, or a cached/freshly-exchanged
// token when it's enabled.
func (b *Builder) resolveBearer(ctx context.Context, inboundToken string) (string, error) {
	if !b.enableExchange {
		return inboundToken, nil
	}
	if cached, ok := b.exchangeCache.get(inboundToken); ok {
		return cached, nil
	}

	cfg := *b.exchangeCfg
	cfg.SubjectTokenProvider = func() (string, error) { return inboundToken, nil }
	tok, err := cfg.TokenSource(ctx).Token()
	if err != nil {
		return "", bridgeerrors.NewAuthFailure("token exchange failed", err)
	}

	expiresAt := tok.Expiry
	if expiresAt.IsZero() {
		expiresAt = time.Now().Add(time.Hour)
	}
	b.exchangeCache.put(inboundToken, tok.AccessToken, expiresAt)
	return tok.AccessToken, nil
}

type basicAuthTransport struct {
	base               http.RoundTripper
	username, password string
}

func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.SetBasicAuth(t.username, t.password)
	return t.base.RoundTrip(req)
}

type bearerAuthTransport struct {
	base  http.RoundTripper
	token string
}

func (t *bearerAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "Bearer "+t.token)
	return t.base.RoundTrip(req)
}

// Do executes req with the bridge's retry policy: up to 5 attempts with
// a fixed 5-second backoff, retrying only on 429 and 5xx; 404 and other
// 4xx pass through immediately.
func Do(ctx context.Context, client *http.Client, req *http.Request) (*http.Response, error) {
	op := func() (*http.Response, error) {
		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			drainAndClose(resp)
			logger.Warnf("upstream returned %d, retrying", resp.StatusCode)
			return nil, fmt.Errorf("retryable upstream status %d", resp.StatusCode)
		}
		return resp, nil
	}

	resp, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewConstantBackOff(retryInterval)),
		backoff.WithMaxTries(maxRetryAttempts),
	)
	if err != nil {
		return nil, bridgeerrors.NewUpstreamHTTPError("upstream request failed after retries", err)
	}
	return resp, nil
}

func drainAndClose(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}

// BuildGuardedClient is a convenience wrapper over the SSRF-guarded HTTP
// client builder, used to construct the base client passed to NewBuilder.
func BuildGuardedClient(caCertPath string, allowPrivateIP bool) (*http.Client, error) {
	return networking.NewHttpClientBuilder().
		WithCABundle(caCertPath).
		WithPrivateIPs(allowPrivateIP).
		Build()
}
