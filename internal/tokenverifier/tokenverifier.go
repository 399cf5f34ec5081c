// Package tokenverifier wraps pkg/auth/token.Validator with the bridge's
// multi-candidate audience rule and an in-memory verified-token cache.
package tokenverifier

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/stacklok/nc-bridge/internal/logging"
	"github.com/stacklok/nc-bridge/pkg/auth/token"
)

// defaultCacheTTL applies when a token carries no exp claim (introspection
// responses sometimes omit it).
const defaultCacheTTL = time.Hour

// VerifiedAccessToken is the in-memory result of a successful verification.
type VerifiedAccessToken struct {
	Token     string
	ClientID  string
	Scopes    []string
	ExpiresAt time.Time
	Principal string
}

// Verifier validates inbound bearer tokens and caches the result.
type Verifier struct {
	validator *token.Validator

	// audienceCandidates is the set of values accepted in a token's `aud`
	// claim: the bridge's own client id, its public server URL, and that
	// URL suffixed with /mcp.
	audienceCandidates []string

	mu    sync.Mutex
	cache map[string]cacheEntry
}

type cacheEntry struct {
	token VerifiedAccessToken
}

// New builds a Verifier. mcpServerURL is the bridge's public URL (no
// trailing slash); clientID is the bridge's own OAuth client id.
func New(validator *token.Validator, clientID, mcpServerURL string) *Verifier {
	candidates := []string{mcpServerURL, mcpServerURL + "/mcp"}
	if clientID != "" {
		candidates = append(candidates, clientID)
	}
	return &Verifier{
		validator:          validator,
		audienceCandidates: candidates,
		cache:              make(map[string]cacheEntry),
	}
}

// Verify validates tokenString and returns a VerifiedAccessToken, or
// (nil, false) on any failure — expired, bad signature, wrong issuer,
// inactive introspection, missing audience, or a network/config error.
// Every failure mode fails closed identically.
func (v *Verifier) Verify(ctx context.Context, tokenString string) (*VerifiedAccessToken, bool) {
	key := cacheKey(tokenString)

	v.mu.Lock()
	if entry, ok := v.cache[key]; ok {
		if time.Now().Before(entry.token.ExpiresAt) {
			v.mu.Unlock()
			return &entry.token, true
		}
		delete(v.cache, key)
	}
	v.mu.Unlock()

	claims, err := v.validator.ValidateToken(ctx, tokenString)
	if err != nil {
		logging.Debugw("token validation failed", "error", err)
		return nil, false
	}

	if !v.hasAcceptedAudience(claims) {
		logging.Debug("token has no accepted MCP audience, rejecting")
		return nil, false
	}

	vat := claimsToVerifiedToken(claims, tokenString)

	v.mu.Lock()
	v.cache[key] = cacheEntry{token: vat}
	v.mu.Unlock()

	return &vat, true
}

// hasAcceptedAudience reports whether the `aud` claim (scalar or list)
// contains at least one of the configured candidates.
func (v *Verifier) hasAcceptedAudience(claims jwt.MapClaims) bool {
	auds, err := claims.GetAudience()
	if err != nil {
		return false
	}
	for _, aud := range auds {
		for _, candidate := range v.audienceCandidates {
			if candidate != "" && aud == candidate {
				return true
			}
		}
	}
	return false
}

func claimsToVerifiedToken(claims jwt.MapClaims, tokenString string) VerifiedAccessToken {
	vat := VerifiedAccessToken{
		Token:     tokenString,
		ExpiresAt: time.Now().Add(defaultCacheTTL),
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		vat.ExpiresAt = exp.Time
	}
	if sub, ok := claims["sub"].(string); ok {
		vat.Principal = sub
	}
	if cid, ok := claims["client_id"].(string); ok {
		vat.ClientID = cid
	} else if azp, ok := claims["azp"].(string); ok {
		vat.ClientID = azp
	}
	// An absent scope claim means "no scopes" (fail-closed), not "all
	// scopes".
	if scope, ok := claims["scope"].(string); ok && scope != "" {
		vat.Scopes = splitScope(scope)
	}
	return vat
}

func splitScope(scope string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(scope); i++ {
		if i == len(scope) || scope[i] == ' ' {
			if i > start {
				out = append(out, scope[start:i])
			}
			start = i + 1
		}
	}
	return out
}

func cacheKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
