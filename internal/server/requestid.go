package server

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type requestIDKey struct{}

// requestIDHeader is the response/log correlation header, echoed back
// from an inbound value so a caller's own request id survives a hop.
const requestIDHeader = "X-Request-Id"

// requestIDMiddleware stamps every request with a correlation id — the
// inbound X-Request-Id if the caller sent one, otherwise a freshly
// generated one — and writes it back as a response header so client and
// server logs can be joined on the same value.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

// requestIDFromContext returns the correlation id requestIDMiddleware
// attached, or "" if the middleware never ran.
func requestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
