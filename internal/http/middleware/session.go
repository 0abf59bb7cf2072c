package middleware

import (
	"errors"
	"log/slog"
	"net/http"

	"finmail/internal/http/respond"
	"finmail/internal/security"
)

// LoadSession attaches the caller's session, if any, to the request
// context. Requests without one pass through unchanged.
func LoadSession(sm *security.SessionManager, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, err := sm.Load(r)
			switch {
			case err == nil:
				r = r.WithContext(security.WithSession(r.Context(), s))
			case errors.Is(err, security.ErrUnauthenticated):
			default:
				logger.Warn("failed to load session",
					"path", r.URL.Path,
					"request_id", GetRequestID(r.Context()),
					"error", err,
				)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireSession answers 401 unless LoadSession found a session.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := security.SessionFromContext(r.Context()); !ok {
			respond.Error(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
