// Package oidcclient resolves the bridge's own OAuth client credentials
// in priority order (static config, then previously persisted, then
// dynamic registration), detects whether the discovered issuer is
// Nextcloud's own integrated OIDC app or an external IdP, and
// applies the operator's public-issuer-URL/JWKS-URI overrides.
package oidcclient

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/stacklok/nc-bridge/internal/bridgeerrors"
	"github.com/stacklok/nc-bridge/internal/config"
	"github.com/stacklok/nc-bridge/internal/cryptobox"
	logger "github.com/stacklok/nc-bridge/internal/logging"
	"github.com/stacklok/nc-bridge/internal/storage"
	"github.com/stacklok/nc-bridge/pkg/auth/oauth"
)

// ResolvedClient is the fully-resolved OIDC discovery document plus the
// bridge's own client credentials, ready to drive the OAuth flows.
type ResolvedClient struct {
	Discovery *oauth.OIDCDiscoveryDocument

	ClientID     string
	ClientSecret string

	// Integrated reports whether the issuer host matches the configured
	// Nextcloud host — i.e. Nextcloud's own built-in OIDC provider app,
	// as opposed to an external IdP.
	Integrated bool

	// DynamicallyRegistered is true when ClientID/ClientSecret came from
	// RFC 7591 registration rather than static configuration.
	DynamicallyRegistered bool
}

// Resolver wires the discovery+registration orchestration to the
// bridge's configuration and persistent storage.
type Resolver struct {
	cfg   *config.Config
	store *storage.Store
	box   *cryptobox.Box
}

// NewResolver builds a Resolver.
func NewResolver(cfg *config.Config, store *storage.Store, box *cryptobox.Box) *Resolver {
	return &Resolver{cfg: cfg, store: store, box: box}
}

// Resolve performs the full discovery-and-registration sequence:
//  1. discover OIDC endpoints from OIDCDiscoveryURL (or the Nextcloud host
//     itself, when integrated mode is in play);
//  2. apply PublicIssuerURL/OIDCJWKSURI host-rewriting overrides;
//  3. resolve client credentials: static config, else a persisted row,
//     else dynamic registration (RFC 7591) when EnableDCR is set.
func (r *Resolver) Resolve(ctx context.Context) (*ResolvedClient, error) {
	issuer := r.cfg.OIDCDiscoveryURL
	if issuer == "" {
		issuer = strings.TrimSuffix(r.cfg.NextcloudHost, "/")
	}

	doc, err := oauth.DiscoverOIDCEndpoints(ctx, issuer)
	if err != nil {
		return nil, bridgeerrors.NewConfigError("OIDC discovery failed", err)
	}
	if err := doc.Validate(true); err != nil {
		return nil, bridgeerrors.NewConfigError("OIDC discovery document incomplete", err)
	}

	applyOverrides(doc, r.cfg)

	if len(doc.CodeChallengeMethodsSupported) == 0 || !containsS256(doc.CodeChallengeMethodsSupported) {
		logger.Warn("issuer discovery document does not advertise PKCE S256 support (RFC 7636).\n" +
			"code_challenge_methods_supported is missing or omits \"S256\"; the bridge always sends a\n" +
			"S256 PKCE challenge regardless, but the authorization server may reject it.")
	}

	resolved := &ResolvedClient{
		Discovery:  doc,
		Integrated: isIntegrated(doc.Issuer, r.cfg.NextcloudHost),
	}

	if err := r.resolveCredentials(ctx, doc, resolved); err != nil {
		return nil, err
	}

	return resolved, nil
}

func applyOverrides(doc *oauth.OIDCDiscoveryDocument, cfg *config.Config) {
	if cfg.PublicIssuerURL != "" {
		doc.Issuer = cfg.PublicIssuerURL
	}
	if cfg.OIDCJWKSURI != "" {
		doc.JWKSURI = cfg.OIDCJWKSURI
	}
}

func containsS256(methods []string) bool {
	for _, m := range methods {
		if m == oauth.PKCEMethodS256 {
			return true
		}
	}
	return false
}

// isIntegrated compares the issuer's host against the configured
// Nextcloud host (a bare host or a base URL), ignoring a default HTTPS port.
func isIntegrated(issuer, nextcloudHost string) bool {
	u, err := url.Parse(issuer)
	if err != nil {
		return false
	}
	if h, err := url.Parse(nextcloudHost); err == nil && h.Host != "" {
		nextcloudHost = h.Host
	}
	return normalizeHost(u.Host) == normalizeHost(nextcloudHost)
}

func normalizeHost(host string) string {
	host = strings.TrimSuffix(host, ":443")
	return strings.ToLower(host)
}

func (r *Resolver) resolveCredentials(ctx context.Context, doc *oauth.OIDCDiscoveryDocument, resolved *ResolvedClient) error {
	if r.cfg.HasStaticOIDCCredentials() {
		resolved.ClientID = r.cfg.OIDCClientID
		resolved.ClientSecret = r.cfg.OIDCClientSecret
		return nil
	}

	if creds, err := r.store.GetOAuthClient(ctx); err == nil && creds != nil {
		secret, ok := r.box.OpenString(creds.EncryptedClientSecret)
		if ok {
			resolved.ClientID = creds.ClientID
			resolved.ClientSecret = secret
			return nil
		}
		logger.Warn("stored OAuth client secret failed to decrypt, re-registering")
	}

	if !r.cfg.EnableDCR {
		return bridgeerrors.NewConfigError("no static or persisted OAuth client credentials, and dynamic registration is disabled", nil)
	}
	if doc.RegistrationEndpoint == "" {
		return bridgeerrors.NewConfigError("dynamic registration enabled but issuer advertises no registration_endpoint", nil)
	}

	req := oauth.NewDynamicClientRegistrationRequest(doc.ScopesSupported, 0)
	resp, err := oauth.RegisterClientDynamically(ctx, doc.RegistrationEndpoint, req)
	if err != nil {
		return bridgeerrors.NewConfigError("dynamic client registration failed", err)
	}

	resolved.ClientID = resp.ClientID
	resolved.ClientSecret = resp.ClientSecret
	resolved.DynamicallyRegistered = true

	if err := r.persist(ctx, resp); err != nil {
		logger.Warnf("failed to persist dynamically registered client: %v", err)
	}
	return nil
}

func (r *Resolver) persist(ctx context.Context, resp *oauth.DynamicClientRegistrationResponse) error {
	var issuedAt time.Time
	if resp.ClientIDIssuedAt > 0 {
		issuedAt = time.Unix(resp.ClientIDIssuedAt, 0)
	} else {
		issuedAt = time.Now()
	}
	var expiresAt *time.Time
	if resp.ClientSecretExpiresAt > 0 {
		t := time.Unix(resp.ClientSecretExpiresAt, 0)
		expiresAt = &t
	}
	return r.store.PutOAuthClient(
		ctx,
		resp.ClientID, resp.ClientSecret,
		issuedAt, expiresAt,
		resp.RedirectURIs,
		resp.RegistrationAccessToken, resp.RegistrationClientURI,
	)
}
