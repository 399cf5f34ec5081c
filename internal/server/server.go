// Package server wires every inbound HTTP route onto a chi router:
// health, RFC 9728 discovery, the OAuth flows, app-password provisioning,
// the admin web UI, the webhook receiver, and the `/mcp` protocol
// endpoint, each behind the middleware its auth mode requires.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/stacklok/nc-bridge/internal/adminweb"
	"github.com/stacklok/nc-bridge/internal/authmode"
	"github.com/stacklok/nc-bridge/internal/health"
	"github.com/stacklok/nc-bridge/internal/mcpserver"
	"github.com/stacklok/nc-bridge/internal/oauthflow"
	"github.com/stacklok/nc-bridge/internal/observability"
	"github.com/stacklok/nc-bridge/internal/pipeline"
	"github.com/stacklok/nc-bridge/internal/scopes"
	"github.com/stacklok/nc-bridge/internal/storage"
	"github.com/stacklok/nc-bridge/internal/tokenverifier"
	"github.com/stacklok/nc-bridge/internal/upstreamclient"
	pkgauth "github.com/stacklok/nc-bridge/pkg/auth"
)

const requestTimeout = 60 * time.Second

// Deps bundles every already-constructed component the router needs.
// Fields left nil are simply not wired (e.g. Verifier is nil outside
// OAuthResourceServer mode).
type Deps struct {
	Mode               authmode.Mode
	BasicUsername      string
	BasicPassword      string
	Store              *storage.Store
	Observability      *observability.Provider
	Health             *health.Handler
	Orchestrator       *oauthflow.Orchestrator
	RateLimiter        *oauthflow.RateLimiter
	Verifier           *tokenverifier.Verifier
	UpstreamBuilder    *upstreamclient.Builder
	Scopes             *scopes.Registry
	Catalogue          *mcpserver.Catalogue
	AdminWeb           *adminweb.Web
	WebhookRegistrar   adminweb.WebhookRegistrar
	WebhookHandler     *pipeline.WebhookHandler
	VectorSyncReporter adminweb.VectorSyncReporter
	VectorSearcher     adminweb.VectorSearcher
	MCPServerURL       string
	NextcloudHost      string
}

// New builds the full router.
func New(d *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(middleware.Timeout(requestTimeout))
	if d.Observability != nil {
		r.Use(d.Observability.HTTPMiddleware)
	}

	r.Mount("/health", healthRouter(d.Health))
	r.Mount(pkgauth.WellKnownOAuthResourcePath, wellKnownRouter(d))
	r.Mount("/oauth", oauthRouter(d))
	r.Mount("/api/v1/users", appPasswordRouter(d))
	r.Mount("/app", adminRouter(d))
	r.Mount("/webhooks", webhooksRouter(d))

	if d.Observability != nil {
		r.Handle("/metrics", d.Observability.MetricsHandler)
	}

	r.Mount("/mcp", mcpRouter(d))

	return r
}

func healthRouter(h *health.Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/live", h.Live)
	r.Get("/ready", h.Ready)
	return r
}

func webhooksRouter(d *Deps) http.Handler {
	r := chi.NewRouter()
	if d.WebhookHandler != nil {
		r.Post("/nextcloud", d.WebhookHandler.ServeHTTP)
	}
	return r
}

func adminRouter(d *Deps) http.Handler {
	r := chi.NewRouter()
	if d.AdminWeb == nil {
		return r
	}
	r.Use(d.AdminWeb.RequireSession)
	r.Get("/", d.AdminWeb.UserInfo)
	r.Post("/revoke", d.AdminWeb.RevokeSession)
	r.Get("/vector-sync/status", d.AdminWeb.VectorSyncStatusHandler(d.VectorSyncReporter))
	r.Get("/vector-viz/search", d.AdminWeb.VectorVizSearch(d.VectorSearcher))
	r.Get("/chunk-context", d.AdminWeb.ChunkContext(d.VectorSearcher))
	r.Get("/webhooks", d.AdminWeb.WebhookPane)
	if d.WebhookRegistrar != nil {
		r.Post("/webhooks/enable/{preset_id}", d.AdminWeb.EnablePreset(d.WebhookRegistrar))
		r.Post("/webhooks/disable/{preset_id}", d.AdminWeb.DisablePreset(d.WebhookRegistrar))
	}
	return r
}

func mcpRouter(d *Deps) http.Handler {
	r := chi.NewRouter()
	if d.Catalogue == nil {
		return r
	}
	r.Use(bindUpstreamClient(d))
	r.Mount("/", d.Catalogue.Handler())
	return r
}
