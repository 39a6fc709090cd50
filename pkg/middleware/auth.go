package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/foodle-app/foodle/pkg/auth"
	"github.com/foodle-app/foodle/pkg/response"
)

// RevocationChecker reports signed-out token ids.
type RevocationChecker interface {
	Revoked(ctx context.Context, jti string) bool
}

// TokenFrom reads a bearer token from the Authorization header, or from the
// access_token query parameter for websocket and event-stream clients that
// cannot set headers.
func TokenFrom(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return r.URL.Query().Get("access_token")
}

// Auth rejects requests without a valid, unrevoked token and stores the
// claims in the request context.
func Auth(revoked RevocationChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFrom(r)
			if token == "" {
				response.Unauthorized(w)
				return
			}
			claims, err := auth.ValidateToken(token)
			if err != nil || (revoked != nil && revoked.Revoked(r.Context(), claims.ID)) {
				response.Error(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithClaims(r.Context(), claims)))
		})
	}
}

// UserIDFromCtx returns the authenticated user's id.
func UserIDFromCtx(r *http.Request) (string, bool) {
	c, ok := auth.ClaimsFromCtx(r.Context())
	if !ok {
		return "", false
	}
	return c.UserID, true
}

// RoleFromCtx returns the authenticated user's role.
func RoleFromCtx(r *http.Request) (string, bool) {
	c, ok := auth.ClaimsFromCtx(r.Context())
	if !ok {
		return "", false
	}
	return c.Role, true
}

// OptionalAuth stores the claims of a valid token if there is one and lets
// every request through.
func OptionalAuth(revoked RevocationChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token := TokenFrom(r); token != "" {
				claims, err := auth.ValidateToken(token)
				if err == nil && (revoked == nil || !revoked.Revoked(r.Context(), claims.ID)) {
					r = r.WithContext(auth.WithClaims(r.Context(), claims))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
