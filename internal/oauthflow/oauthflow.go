// Package oauthflow implements the OAuth flow orchestrator: Flow A
// (direct client-to-IdP pass-through), Flow B (server-mediated
// provisioning for offline access), and the browser session flow used
// by the admin web UI.
package oauthflow

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"

	"github.com/stacklok/nc-bridge/internal/bridgeerrors"
	logger "github.com/stacklok/nc-bridge/internal/logging"
	"github.com/stacklok/nc-bridge/internal/oidcclient"
	"github.com/stacklok/nc-bridge/internal/storage"
	"github.com/stacklok/nc-bridge/pkg/auth/oauth"
)

const sessionCookieName = "mcp_session"
const sessionCookieMaxAge = 30 * 24 * time.Hour
const flowSessionTTL = storage.DefaultFlowSessionTTL

// Orchestrator drives both authorization-code flows against a resolved
// OIDC client.
type Orchestrator struct {
	resolved          *oidcclient.ResolvedClient
	store             *storage.Store
	bridgeCallbackURL string // e.g. https://bridge.example.com/oauth/callback
	loginCallbackURL  string // e.g. https://bridge.example.com/oauth/login-callback
	mcpServerURL      string
	upstreamAudience  string // the Nextcloud resource URI persisted as the refresh token's audience
	allowedClients    map[string]bool
	httpClient        *http.Client
}

// NewOrchestrator builds an Orchestrator. allowedClients is the
// configured AI-client allow-list for Flow A; an empty list means any
// client id is accepted.
func NewOrchestrator(
	resolved *oidcclient.ResolvedClient,
	store *storage.Store,
	bridgeCallbackURL, loginCallbackURL, mcpServerURL, upstreamAudience string,
	allowedClients []string,
	httpClient *http.Client,
) *Orchestrator {
	allowed := make(map[string]bool, len(allowedClients))
	for _, c := range allowedClients {
		allowed[c] = true
	}
	return &Orchestrator{
		resolved:          resolved,
		store:             store,
		bridgeCallbackURL: bridgeCallbackURL,
		loginCallbackURL:  loginCallbackURL,
		mcpServerURL:      mcpServerURL,
		upstreamAudience:  upstreamAudience,
		allowedClients:    allowed,
		httpClient:        httpClient,
	}
}

// HandleFlowA implements `/oauth/authorize`: the bridge validates the AI
// client's request and redirects it directly to the IdP, never seeing
// the authorization code itself.
func (o *Orchestrator) HandleFlowA(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if q.Get("response_type") != oauth.ResponseTypeCode {
		httpError(w, http.StatusBadRequest, errInvalidRequest, "response_type must be \"code\"")
		return
	}
	redirectURI := q.Get("redirect_uri")
	if !isLoopbackRedirect(redirectURI) {
		httpError(w, http.StatusBadRequest, errInvalidRequest, "redirect_uri must be a loopback URI (RFC 8252)")
		return
	}
	state := q.Get("state")
	challenge := q.Get("code_challenge")
	if state == "" || challenge == "" {
		httpError(w, http.StatusBadRequest, errInvalidRequest, "state and code_challenge are required")
		return
	}
	if q.Get("code_challenge_method") != oauth.PKCEMethodS256 {
		httpError(w, http.StatusBadRequest, errInvalidRequest, "code_challenge_method must be S256")
		return
	}
	clientID := q.Get("client_id")
	if len(o.allowedClients) > 0 && !o.allowedClients[clientID] {
		httpError(w, http.StatusForbidden, errUnauthorizedClient, "client_id is not in the allow-list")
		return
	}

	scope := q.Get("scope")
	if scope == "" {
		scope = "openid profile email"
	}

	idpParams := url.Values{}
	idpParams.Set("response_type", oauth.ResponseTypeCode)
	idpParams.Set("client_id", clientID)
	idpParams.Set("redirect_uri", redirectURI)
	idpParams.Set("state", state)
	idpParams.Set("code_challenge", challenge)
	idpParams.Set("code_challenge_method", oauth.PKCEMethodS256)
	idpParams.Set("scope", scope)
	idpParams.Set("prompt", "consent")
	idpParams.Set("resource", o.mcpServerURL)

	redirectTo := o.resolved.Discovery.AuthorizationEndpoint + "?" + idpParams.Encode()
	http.Redirect(w, r, redirectTo, http.StatusFound)
}

// HandleFlowBStart implements `/oauth/authorize-nextcloud`: the bridge
// begins an authorization request as itself, to obtain an offline
// refresh token.
func (o *Orchestrator) HandleFlowBStart(w http.ResponseWriter, r *http.Request) {
	o.startServerFlow(w, r, storage.FlowServerMediated, o.bridgeCallbackURL, true)
}

// HandleFlowCallback implements `/oauth/callback`: completes Flow B by
// exchanging the code, persisting the refresh token, and returning a
// terminal HTML success page.
func (o *Orchestrator) HandleFlowCallback(w http.ResponseWriter, r *http.Request) {
	o.completeServerFlow(w, r, func(_ string, _ *storage.FlowSession) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html><body><h1>Authorization complete</h1><p>You may close this window.</p></body></html>")
	})
}

// HandleLoginStart implements `/oauth/login`: the browser session flow
// entry point for the admin web UI.
func (o *Orchestrator) HandleLoginStart(w http.ResponseWriter, r *http.Request) {
	o.startServerFlow(w, r, storage.FlowDirect, o.loginCallbackURL, false)
}

// HandleLoginCallback implements `/oauth/login-callback`: completes the
// browser session flow and sets the mcp_session cookie.
func (o *Orchestrator) HandleLoginCallback(w http.ResponseWriter, r *http.Request) {
	o.completeServerFlow(w, r, func(userID string, _ *storage.FlowSession) {
		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookieName,
			Value:    userID,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
			MaxAge:   int(sessionCookieMaxAge.Seconds()),
			Path:     "/",
		})
		http.Redirect(w, r, "/app/", http.StatusFound)
	})
}

// HandleLogout implements `/oauth/logout`: clears the session cookie.
func (o *Orchestrator) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
		Path:     "/",
	})
	http.Redirect(w, r, "/oauth/login", http.StatusFound)
}

// startServerFlow is shared by Flow B and the browser session flow: both
// have the bridge act as its own OAuth client against the IdP.
func (o *Orchestrator) startServerFlow(w http.ResponseWriter, r *http.Request, flow storage.FlowKind, callbackURL string, offlineAccess bool) {
	pkce, err := oauth.GeneratePKCEParams()
	if err != nil {
		httpError(w, http.StatusInternalServerError, errServerError, "failed to generate PKCE parameters")
		return
	}
	state, err := oauth.GenerateState()
	if err != nil {
		httpError(w, http.StatusInternalServerError, errServerError, "failed to generate state")
		return
	}

	scope := "openid profile email"
	if offlineAccess {
		scope += " offline_access"
	}

	fs := &storage.FlowSession{
		SessionID:           state,
		ClientID:            o.resolved.ClientID,
		ClientRedirectURI:   callbackURL,
		State:               state,
		CodeChallenge:       pkce.CodeChallenge,
		CodeChallengeMethod: oauth.PKCEMethodS256,
		CodeVerifier:        pkce.CodeVerifier,
		Flow:                flow,
		RequestedScopes:     strings.Fields(scope),
		IsProvisioning:      offlineAccess,
	}

	if err := o.store.PutFlowSession(r.Context(), fs, flowSessionTTL); err != nil {
		httpError(w, http.StatusInternalServerError, errServerError, "failed to persist flow session")
		return
	}

	params := url.Values{}
	params.Set("response_type", oauth.ResponseTypeCode)
	params.Set("client_id", o.resolved.ClientID)
	params.Set("redirect_uri", callbackURL)
	params.Set("state", state)
	params.Set("code_challenge", pkce.CodeChallenge)
	params.Set("code_challenge_method", oauth.PKCEMethodS256)
	params.Set("scope", scope)

	http.Redirect(w, r, o.resolved.Discovery.AuthorizationEndpoint+"?"+params.Encode(), http.StatusFound)
}

func (o *Orchestrator) completeServerFlow(w http.ResponseWriter, r *http.Request, onSuccess func(userID string, fs *storage.FlowSession)) {
	ctx := r.Context()
	q := r.URL.Query()

	state := q.Get("state")
	code := q.Get("code")
	if state == "" || code == "" {
		httpError(w, http.StatusBadRequest, errInvalidRequest, "missing state or code")
		return
	}

	fs, err := o.store.GetFlowSession(ctx, state)
	if err != nil || fs == nil {
		httpError(w, http.StatusBadRequest, errInvalidRequest, "unknown or expired flow session")
		return
	}
	if fs.CodeVerifier == "" {
		httpError(w, http.StatusInternalServerError, errServerError, "flow session missing PKCE verifier")
		return
	}

	tok, idToken, err := o.exchangeCode(ctx, code, fs.CodeVerifier, fs.ClientRedirectURI)
	if err != nil {
		httpError(w, http.StatusBadGateway, errInvalidGrant, "token exchange with upstream IdP failed")
		return
	}

	userID := subjectFromIDToken(idToken)
	if userID == "" {
		userID = fs.SessionID
	}

	var expiresAt *time.Time
	if !tok.Expiry.IsZero() {
		expiresAt = &tok.Expiry
	}
	if tok.RefreshToken != "" {
		if err := o.store.PutRefreshToken(
			ctx, userID, tok.RefreshToken, expiresAt,
			fs.Flow, o.upstreamAudience, o.resolved.ClientID, fs.RequestedScopes,
		); err != nil {
			logger.Warnf("failed to persist refresh token: %v", err)
		}
	}

	if _, err := o.store.DeleteFlowSession(ctx, fs.SessionID); err != nil {
		logger.Warnf("failed to clean up flow session: %v", err)
	}

	onSuccess(userID, fs)
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	IDToken      string `json:"id_token"`
}

// exchangeCode performs the authorization_code grant against the IdP's
// token endpoint, using PKCE instead of (or alongside) a client secret.
func (o *Orchestrator) exchangeCode(ctx context.Context, code, codeVerifier, redirectURI string) (tok struct {
	AccessToken, RefreshToken string
	Expiry                    time.Time
}, idToken string, err error) {
	form := url.Values{}
	form.Set("grant_type", oauth.AuthorizationCode)
	form.Set("code", code)
	form.Set("redirect_uri", redirectURI)
	form.Set("client_id", o.resolved.ClientID)
	form.Set("code_verifier", codeVerifier)

	req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, o.resolved.Discovery.TokenEndpoint, strings.NewReader(form.Encode()))
	if reqErr != nil {
		return tok, "", reqErr
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if o.resolved.ClientSecret != "" {
		req.SetBasicAuth(o.resolved.ClientID, o.resolved.ClientSecret)
	}

	resp, doErr := o.httpClient.Do(req)
	if doErr != nil {
		return tok, "", doErr
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return tok, "", bridgeerrors.NewUpstreamHTTPError(fmt.Sprintf("token endpoint returned %d", resp.StatusCode), nil)
	}

	var decoded tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return tok, "", err
	}

	tok.AccessToken = decoded.AccessToken
	tok.RefreshToken = decoded.RefreshToken
	if decoded.ExpiresIn > 0 {
		tok.Expiry = time.Now().Add(time.Duration(decoded.ExpiresIn) * time.Second)
	}
	return tok, decoded.IDToken, nil
}

// subjectFromIDToken extracts the `sub` claim from the ID token the
// bridge receives as a relying party in the server-mediated flow. The
// bridge requested this token directly from the token endpoint over
// TLS, so it does not re-verify the signature here — it only decodes
// the claims it already trusts the IdP to have issued correctly.
func subjectFromIDToken(idToken string) string {
	parsed, err := jwt.ParseSigned(idToken, []jose.SignatureAlgorithm{jose.RS256, jose.ES256})
	if err != nil {
		return ""
	}
	var claims struct {
		Sub string `json:"sub"`
	}
	if err := parsed.UnsafeClaimsWithoutVerification(&claims); err != nil {
		return ""
	}
	return claims.Sub
}

func isLoopbackRedirect(redirectURI string) bool {
	u, err := url.Parse(redirectURI)
	if err != nil {
		return false
	}
	host := u.Hostname()
	return u.Scheme == "http" && (host == "localhost" || host == "127.0.0.1")
}

// RFC 6749 §5.2 error codes used by httpError below.
const (
	errInvalidRequest     = "invalid_request"
	errInvalidGrant       = "invalid_grant"
	errUnauthorizedClient = "unauthorized_client"
	errServerError        = "server_error"
)

// httpError writes an RFC 6749 §5.2-shaped error body: an `error` code
// drawn from the registry above plus a human-readable `error_description`,
// rather than a bare message with no code a client could switch on.
func httpError(w http.ResponseWriter, status int, code, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":             code,
		"error_description": description,
	})
}
