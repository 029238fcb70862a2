package httpapi

import (
	"context"
	"net/http"
	"strings"
)

// TokenVerifier checks a bearer token and returns its subject.
type TokenVerifier interface {
	Verify(ctx context.Context, raw string) (string, error)
}

// NewAuthMiddleware enforces Authorization: Bearer <session token>.
//
// On success, it stores the authenticated subject in request context.
func NewAuthMiddleware(v TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authz := r.Header.Get("Authorization")
			if authz == "" {
				writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing Authorization header", nil)
				return
			}
			const prefix = "Bearer "
			if !strings.HasPrefix(authz, prefix) {
				writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "malformed Authorization header", nil)
				return
			}
			raw := strings.TrimSpace(strings.TrimPrefix(authz, prefix))
			if raw == "" {
				writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing bearer token", nil)
				return
			}

			sub, err := v.Verify(r.Context(), raw)
			if err != nil {
				writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid token", nil)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSubject(r.Context(), sub)))
		})
	}
}

// NewDevAuthMiddleware is a local/dev-only auth shim.
//
// It accepts an explicit subject via X-Debug-Subject and stores it in request context.
// If the header is absent, it falls back to defaultSubject (if provided).
// Do NOT use this in production deployments.
func NewDevAuthMiddleware(defaultSubject string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sub := strings.TrimSpace(r.Header.Get("X-Debug-Subject"))
			if sub == "" {
				sub = strings.TrimSpace(defaultSubject)
			}
			if sub == "" {
				writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing subject (set X-Debug-Subject)", nil)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSubject(r.Context(), sub)))
		})
	}
}

// NewAnonymousMiddleware marks every request with a fixed subject. Used when
// authentication is disabled so idempotency keys still have an owner.
func NewAnonymousMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(WithSubject(r.Context(), "anonymous")))
		})
	}
}
