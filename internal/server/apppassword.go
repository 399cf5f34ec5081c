package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// appPasswordRouter serves the multi-user Basic mode app-password CRUD
// at `/api/v1/users/{user_id}/app-password`: Basic-authenticated, the
// header username must match the path user id, and provisioning
// (POST) is rate-limited per user.
func appPasswordRouter(d *Deps) http.Handler {
	r := chi.NewRouter()
	if d.Store == nil {
		return r
	}

	r.Route("/{user_id}/app-password", func(sr chi.Router) {
		sr.Use(requireMatchingBasicUser)
		sr.Post("/", provisionAppPassword(d))
		sr.Get("/", getAppPasswordStatus(d))
		sr.Delete("/", revokeAppPassword(d))
	})
	return r
}

// requireMatchingBasicUser decodes the inbound Basic credentials and
// rejects the request unless the username equals the path user id.
func requireMatchingBasicUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, password, ok := r.BasicAuth()
		if !ok {
			w.Header().Set("WWW-Authenticate", `Basic realm="nc-bridge"`)
			writeAppPasswordError(w, http.StatusUnauthorized, "basic authentication required")
			return
		}
		if username != chi.URLParam(r, "user_id") {
			writeAppPasswordError(w, http.StatusForbidden, "username must match path user id")
			return
		}
		_ = password
		next.ServeHTTP(w, r)
	})
}

func writeAppPasswordError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func provisionAppPassword(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "user_id")

		if d.RateLimiter != nil {
			if allowed, retryAfter := d.RateLimiter.Allow(userID); !allowed {
				w.Header().Set("Retry-After", fmt.Sprintf("%.0f", retryAfter.Seconds()))
				writeAppPasswordError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
		}

		_, password, _ := r.BasicAuth()
		if err := d.Store.PutAppPassword(r.Context(), userID, password); err != nil {
			writeAppPasswordError(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]string{"user_id": userID, "status": "provisioned"})
	}
}

func getAppPasswordStatus(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "user_id")
		_, ok, err := d.Store.GetAppPassword(r.Context(), userID)
		if err != nil {
			writeAppPasswordError(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]bool{"configured": ok})
	}
}

func revokeAppPassword(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "user_id")
		deleted, err := d.Store.DeleteAppPassword(r.Context(), userID)
		if err != nil {
			writeAppPasswordError(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]bool{"revoked": deleted})
	}
}
