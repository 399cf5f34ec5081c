// Package authmode picks the bridge's single operating mode once at
// startup from configuration, and hydrates a per-request
// RequestAuthContext for each inbound request according to that mode.
package authmode

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/stacklok/nc-bridge/internal/config"
	logger "github.com/stacklok/nc-bridge/internal/logging"
	"github.com/stacklok/nc-bridge/internal/tokenverifier"
)

// Mode is the bridge's chosen operating mode, fixed for the process
// lifetime.
type Mode string

const (
	SingleUserBasic     Mode = "single_user_basic"
	MultiUserBasic      Mode = "multi_user_basic"
	OAuthResourceServer Mode = "oauth_resource_server"
)

// Resolve picks the mode: SingleUserBasic when both a fixed username
// and password are configured; otherwise MultiUserBasic when the
// deployment flag enables it; otherwise OAuthResourceServer.
func Resolve(cfg *config.Config) Mode {
	if cfg.NextcloudUsername != "" && cfg.NextcloudPassword != "" {
		return SingleUserBasic
	}
	if cfg.MultiUserBasicEnabled {
		return MultiUserBasic
	}
	return OAuthResourceServer
}

// RequestAuthContext is the per-request credential bundle consumed when
// building the upstream client.
type RequestAuthContext struct {
	Mode Mode

	// Basic modes.
	Username string
	Password string
	HasBasic bool

	// OAuthResourceServer mode.
	VerifiedToken *tokenverifier.VerifiedAccessToken
}

// Filtering reports whether tool-list/tool-call scope filtering applies
// for this context: only in OAuth mode, and only once a token was
// actually verified.
func (c *RequestAuthContext) Filtering() bool {
	return c.Mode == OAuthResourceServer && c.VerifiedToken != nil
}

// Scopes returns the caller's verified scopes, or nil outside OAuth mode.
func (c *RequestAuthContext) Scopes() []string {
	if c.VerifiedToken == nil {
		return nil
	}
	return c.VerifiedToken.Scopes
}

type contextKey struct{}

// WithContext stores a RequestAuthContext on ctx.
func WithContext(ctx context.Context, authCtx *RequestAuthContext) context.Context {
	return context.WithValue(ctx, contextKey{}, authCtx)
}

// FromContext retrieves the RequestAuthContext stored by WithContext.
func FromContext(ctx context.Context) (*RequestAuthContext, bool) {
	authCtx, ok := ctx.Value(contextKey{}).(*RequestAuthContext)
	return authCtx, ok
}

// SingleUserMiddleware always hydrates the fixed configured credentials.
func SingleUserMiddleware(username, password string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authCtx := &RequestAuthContext{Mode: SingleUserBasic, Username: username, Password: password, HasBasic: true}
			next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), authCtx)))
		})
	}
}

// MultiUserMiddleware extracts Basic credentials from the inbound
// Authorization header, splitting only at the first colon so that a
// password containing colons survives intact. A missing, malformed, or
// non-Basic header leaves the context
// without credentials rather than rejecting the request here; the
// upstream client builder then refuses to authenticate such a context.
func MultiUserMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authCtx := &RequestAuthContext{Mode: MultiUserBasic}
			if username, password, ok := parseBasicAuth(r.Header.Get("Authorization")); ok {
				authCtx.Username, authCtx.Password, authCtx.HasBasic = username, password, true
			}
			next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), authCtx)))
		})
	}
}

// OAuthMiddleware extracts a bearer token from the inbound Authorization
// header and verifies it, hydrating VerifiedToken on success. A missing,
// malformed, or unverifiable token leaves the context holding a bare
// OAuthResourceServer RequestAuthContext rather than rejecting the
// request here; the upstream client builder then refuses to authenticate
// a context with no verified token.
func OAuthMiddleware(verifier *tokenverifier.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authCtx := &RequestAuthContext{Mode: OAuthResourceServer}
			if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") && verifier != nil {
				token := strings.TrimPrefix(header, "Bearer ")
				logger.Debugf("verifying inbound bearer token: %s", logger.TruncateForLog(token))
				if verified, ok := verifier.Verify(r.Context(), token); ok {
					authCtx.VerifiedToken = verified
				}
			}
			next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), authCtx)))
		})
	}
}

// Principal returns the caller's identity for the active mode: the
// Basic username in either Basic mode, or the verified token's
// principal in OAuth mode.
func (c *RequestAuthContext) Principal() string {
	if c.VerifiedToken != nil {
		return c.VerifiedToken.Principal
	}
	return c.Username
}

func parseBasicAuth(header string) (username, password string, ok bool) {
	const prefix = "Basic "
	if !strings.HasPrefix(header, prefix) {
		return "", "", false
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(header, prefix))
	if err != nil {
		return "", "", false
	}
	parts := strings.SplitN(string(decoded), ":", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	return parts[0], parts[1], true
}
