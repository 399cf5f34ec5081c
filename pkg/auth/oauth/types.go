package oauth

import "fmt"

// Well-known discovery path suffixes (RFC 8414 / OIDC Discovery 1.0).
const (
	WellKnownOIDCPath        = ".well-known/openid-configuration"
	WellKnownOAuthServerPath = "/.well-known/oauth-authorization-server"
)

// PKCEMethodS256 is the only code_challenge_method the bridge accepts
// (RFC 7636 requires it to be supported by conforming servers; "plain" is
// never advertised as a fallback).
const PKCEMethodS256 = "S256"

// OIDCDiscoveryDocument is the subset of an OIDC/OAuth discovery document
// (RFC 8414, OIDC Discovery 1.0) the bridge relies on: endpoint URLs,
// supported PKCE methods, and the fields needed to tell an integrated
// Nextcloud OIDC app server apart from an external IdP.
type OIDCDiscoveryDocument struct {
	Issuer                        string   `json:"issuer"`
	AuthorizationEndpoint         string   `json:"authorization_endpoint"`
	TokenEndpoint                 string   `json:"token_endpoint"`
	UserinfoEndpoint              string   `json:"userinfo_endpoint,omitempty"`
	JWKSURI                       string   `json:"jwks_uri"`
	RegistrationEndpoint          string   `json:"registration_endpoint,omitempty"`
	IntrospectionEndpoint         string   `json:"introspection_endpoint,omitempty"`
	ScopesSupported               []string `json:"scopes_supported,omitempty"`
	ResponseTypesSupported        []string `json:"response_types_supported,omitempty"`
	CodeChallengeMethodsSupported []string `json:"code_challenge_methods_supported,omitempty"`
	GrantTypesSupported           []string `json:"grant_types_supported,omitempty"`
}

// Validate checks the presence of the fields every discovery document must
// carry. When requireOIDC is true, jwks_uri and response_types_supported
// are additionally required, as OIDC Discovery 1.0 mandates.
func (d *OIDCDiscoveryDocument) Validate(requireOIDC bool) error {
	if d.Issuer == "" {
		return fmt.Errorf("missing issuer")
	}
	if d.AuthorizationEndpoint == "" {
		return fmt.Errorf("missing authorization_endpoint")
	}
	if d.TokenEndpoint == "" {
		return fmt.Errorf("missing token_endpoint")
	}
	if requireOIDC {
		if d.JWKSURI == "" {
			return fmt.Errorf("missing jwks_uri")
		}
		if len(d.ResponseTypesSupported) == 0 {
			return fmt.Errorf("missing response_types_supported")
		}
	}
	return nil
}

// Config is the resolved OAuth client configuration the Flow Orchestrator
// builds from discovery plus the administrator's static client
// credentials, ready to drive an authorization-code-with-PKCE exchange.
type Config struct {
	ClientID              string
	ClientSecret          string
	AuthURL               string
	TokenURL              string
	IntrospectionEndpoint string
	Scopes                []string
	UsePKCE               bool
	CallbackPort          int
	Resource              string
}
