package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// protectedResourceMetadata is the RFC 9728 protected-resource metadata
// document shape.
type protectedResourceMetadata struct {
	Resource               string   `json:"resource"`
	AuthorizationServers   []string `json:"authorization_servers"`
	BearerMethodsSupported []string `json:"bearer_methods_supported"`
	ScopesSupported        []string `json:"scopes_supported"`
}

func wellKnownRouter(d *Deps) http.Handler {
	r := chi.NewRouter()
	handler := protectedResourceHandler(d)
	r.Get("/", handler)
	r.Get("/mcp", handler)
	r.Options("/", handler)
	r.Options("/mcp", handler)
	return r
}

func protectedResourceHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "mcp-protocol-version, Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		if d.MCPServerURL == "" {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		var scopesSupported []string
		var authServers []string
		if d.Scopes != nil {
			scopesSupported = d.Scopes.AllScopes()
		}
		if len(scopesSupported) == 0 {
			scopesSupported = []string{"openid"}
		}
		if d.NextcloudHost != "" {
			authServers = []string{d.NextcloudHost}
		}

		metadata := protectedResourceMetadata{
			Resource:               d.MCPServerURL + "/mcp",
			AuthorizationServers:   authServers,
			BearerMethodsSupported: []string{"header"},
			ScopesSupported:        scopesSupported,
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(metadata)
	}
}
