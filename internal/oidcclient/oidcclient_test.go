package oidcclient

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stacklok/nc-bridge/internal/config"
	"github.com/stacklok/nc-bridge/pkg/auth/oauth"
)

func TestIsIntegrated(t *testing.T) {
	tests := []struct {
		name          string
		issuer        string
		nextcloudHost string
		want          bool
	}{
		{"same host", "https://cloud.example.com/apps/oidc", "cloud.example.com", true},
		{"default https port ignored", "https://cloud.example.com:443", "cloud.example.com", true},
		{"external idp", "https://idp.okta.com", "cloud.example.com", false},
		{"case insensitive", "https://Cloud.Example.com", "cloud.example.com", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isIntegrated(tt.issuer, tt.nextcloudHost))
		})
	}
}

func TestApplyOverrides(t *testing.T) {
	doc := &oauth.OIDCDiscoveryDocument{Issuer: "https://internal.example.com", JWKSURI: "https://internal.example.com/jwks"}
	cfg := &config.Config{PublicIssuerURL: "https://public.example.com", OIDCJWKSURI: "https://public.example.com/jwks"}
	applyOverrides(doc, cfg)
	assert.Equal(t, "https://public.example.com", doc.Issuer)
	assert.Equal(t, "https://public.example.com/jwks", doc.JWKSURI)
}

func TestContainsS256(t *testing.T) {
	assert.True(t, containsS256([]string{"plain", "S256"}))
	assert.False(t, containsS256([]string{"plain"}))
	assert.False(t, containsS256(nil))
}
