// Package rbac guards route groups by the role carried in the caller's token.
package rbac

import (
	"net/http"
	"strings"

	"github.com/foodle-app/foodle/pkg/logger"
	"github.com/foodle-app/foodle/pkg/middleware"
	"github.com/foodle-app/foodle/pkg/response"
)

// HasRole admits only the listed roles. It must sit behind middleware.Auth;
// a request without a role is treated as unauthenticated.
func HasRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	msg := "This area is for " + strings.Join(roles, " or ") + " accounts only."

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := middleware.RoleFromCtx(r)
			if !ok {
				response.Unauthorized(w)
				return
			}
			if _, ok := allowed[role]; !ok {
				logger.WithCtx(r.Context()).Warn("rbac: role denied", "role", role, "path", r.URL.Path)
				response.Error(w, http.StatusForbidden, msg)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Guest turns away callers who are already signed in. Use it behind
// middleware.OptionalAuth on the sign-up and sign-in routes.
func Guest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := middleware.UserIDFromCtx(r); ok {
			response.Error(w, http.StatusConflict, "Already signed in")
			return
		}
		next.ServeHTTP(w, r)
	})
}
