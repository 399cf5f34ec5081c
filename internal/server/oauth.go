package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func oauthRouter(d *Deps) http.Handler {
	r := chi.NewRouter()
	if d.Orchestrator == nil {
		return r
	}

	r.Get("/authorize", d.Orchestrator.HandleFlowA)
	r.Get("/callback", d.Orchestrator.HandleFlowCallback)
	r.Get("/authorize-nextcloud", d.Orchestrator.HandleFlowBStart)
	r.Get("/callback-nextcloud", d.Orchestrator.HandleFlowCallback) // legacy alias
	r.Get("/login", d.Orchestrator.HandleLoginStart)
	r.Get("/login-callback", d.Orchestrator.HandleLoginCallback)
	r.Get("/logout", d.Orchestrator.HandleLogout)

	return r
}
