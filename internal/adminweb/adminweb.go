// Package adminweb implements the cookie-authenticated admin UI: user
// info, session revocation, webhook preset management, and
// vector-sync/vector-visualization surfaces, gated by a session
// authentication decorator rather than the tool-protocol's bearer/basic
// auth.
package adminweb

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/stacklok/nc-bridge/internal/storage"
)

type contextKey struct{}

// sessionUserKey stores the authenticated admin-web user id on the
// request context once SessionAuth has verified it.
var sessionUserKey = contextKey{}

// UserFromContext returns the session-authenticated user id, if any.
func UserFromContext(ctx context.Context) (string, bool) {
	u, ok := ctx.Value(sessionUserKey).(string)
	return u, ok
}

func withUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, sessionUserKey, userID)
}

// SessionCookieName must match internal/oauthflow's cookie name.
const SessionCookieName = "mcp_session"

// Web holds the dependencies admin routes need.
type Web struct {
	store            *storage.Store
	basicMode        bool
	basicUsername    string
	nextcloudHost    string
	loginRedirectURL string
}

// Config configures a Web instance.
type Config struct {
	Store            *storage.Store
	BasicMode        bool
	BasicUsername    string
	NextcloudHost    string
	LoginRedirectURL string
}

// New builds a Web.
func New(cfg Config) *Web {
	return &Web{
		store:            cfg.Store,
		basicMode:        cfg.BasicMode,
		basicUsername:    cfg.BasicUsername,
		nextcloudHost:    cfg.NextcloudHost,
		loginRedirectURL: cfg.LoginRedirectURL,
	}
}

// RequireSession is the 302-redirect-on-unauthenticated decorator for
// admin routes. In Basic mode every request is implicitly authenticated
// as the configured user. In OAuth mode it reads the mcp_session cookie
// and requires a refresh-token record for that user id to exist.
func (a *Web) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.basicMode {
			next.ServeHTTP(w, r.WithContext(withUser(r.Context(), a.basicUsername)))
			return
		}

		cookie, err := r.Cookie(SessionCookieName)
		if err != nil || cookie.Value == "" {
			http.Redirect(w, r, a.loginRedirectURL, http.StatusFound)
			return
		}

		rec, err := a.store.GetRefreshToken(r.Context(), cookie.Value)
		if err != nil || rec == nil {
			http.Redirect(w, r, a.loginRedirectURL, http.StatusFound)
			return
		}

		next.ServeHTTP(w, r.WithContext(withUser(r.Context(), cookie.Value)))
	})
}

// UserInfo serves `/app/` — the current session's user and auth-mode
// summary.
func (a *Web) UserInfo(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserFromContext(r.Context())

	if a.basicMode {
		writeJSON(w, http.StatusOK, map[string]any{
			"username":       userID,
			"auth_mode":      "basic",
			"nextcloud_host": a.nextcloudHost,
		})
		return
	}

	rec, err := a.store.GetRefreshToken(r.Context(), userID)
	if err != nil || rec == nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"username":  userID,
			"auth_mode": "oauth",
			"error":     "no refresh token found",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"username":   userID,
		"auth_mode":  "oauth",
		"flow":       string(rec.Flow),
		"scopes":     rec.Scopes,
		"created_at": rec.CreatedAt,
	})
}

// RevokeSession serves `POST /app/revoke` — deletes the caller's stored
// refresh token and clears the session cookie.
func (a *Web) RevokeSession(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserFromContext(r.Context())

	if !a.basicMode {
		_, _ = a.store.DeleteRefreshToken(r.Context(), userID)
		http.SetCookie(w, &http.Cookie{
			Name:     SessionCookieName,
			Value:    "",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
			MaxAge:   -1,
			Path:     "/",
		})
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "revoked"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
