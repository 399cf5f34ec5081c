package server

import (
	"net/http"

	"github.com/stacklok/nc-bridge/internal/authmode"
	logger "github.com/stacklok/nc-bridge/internal/logging"
	"github.com/stacklok/nc-bridge/internal/mcpserver"
)

// authHydrationMiddleware picks the authmode middleware matching the
// bridge's active mode, so request-auth hydration stays owned by
// internal/authmode regardless of which route mounts it.
func authHydrationMiddleware(d *Deps) func(http.Handler) http.Handler {
	switch d.Mode {
	case authmode.SingleUserBasic:
		return authmode.SingleUserMiddleware(d.BasicUsername, d.BasicPassword)
	case authmode.MultiUserBasic:
		return authmode.MultiUserMiddleware()
	default:
		return authmode.OAuthMiddleware(d.Verifier)
	}
}

// bindUpstreamClient builds an authenticated upstream *http.Client from
// the RequestAuthContext that authHydrationMiddleware already placed on
// the context, and attaches both to the context as an
// mcpserver.RequestBinding before the request reaches the tool catalogue.
func bindUpstreamClient(d *Deps) func(http.Handler) http.Handler {
	hydrate := authHydrationMiddleware(d)
	return func(next http.Handler) http.Handler {
		return hydrate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authCtx, _ := authmode.FromContext(r.Context())

			client := http.DefaultClient
			if d.UpstreamBuilder != nil && authCtx != nil {
				c, err := d.UpstreamBuilder.ForRequest(r.Context(), authCtx)
				if err != nil {
					logger.Warnw("failed to authenticate to upstream",
						"error", err, "request_id", requestIDFromContext(r.Context()))
					http.Error(w, "failed to authenticate to upstream: "+err.Error(), http.StatusBadGateway)
					return
				}
				client = c
			}

			var username string
			if authCtx != nil {
				username = authCtx.Principal()
			}

			binding := &mcpserver.RequestBinding{
				Client:        client,
				NextcloudHost: d.NextcloudHost,
				Username:      username,
				AuthCtx:       authCtx,
			}
			next.ServeHTTP(w, r.WithContext(mcpserver.WithRequestBinding(r.Context(), binding)))
		}))
	}
}
