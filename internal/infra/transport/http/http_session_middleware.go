package http

import (
	"net/http"
	"slices"

	"github.com/mkrupp/storefront/internal/domain"
	context_ "github.com/mkrupp/storefront/internal/infra/context"
	"github.com/mkrupp/storefront/internal/infra/logging"
)

// SessionReader exposes the logged-in identity to the session middleware.
type SessionReader interface {
	Identity() (domain.Identity, bool)
}

// RequireLogin creates middleware that rejects requests with 401 unless a
// user is logged in. On success the user's email is added to the request context.
func RequireLogin(next http.Handler, sessions SessionReader, log logging.Logger) http.Handler {
	return RequireRole(next, sessions, log)
}

// RequireRole creates middleware that only lets requests through when the
// logged-in user has one of roles. Without roles any logged-in user passes.
// Anonymous requests get 401, users with another role get 403.
func RequireRole(next http.Handler, sessions SessionReader, log logging.Logger, roles ...domain.Role) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := sessions.Identity()
		if !ok {
			log.WarnContext(r.Context(), "not logged in", "uri", r.RequestURI)
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)

			return
		}

		if len(roles) > 0 && !slices.Contains(roles, identity.Role) {
			log.WarnContext(r.Context(), "role not allowed",
				"uri", r.RequestURI,
				logging.Group("user", "email", identity.Email, "role", identity.Role),
			)
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)

			return
		}

		next.ServeHTTP(w, r.WithContext(context_.WithUserEmail(r.Context(), identity.Email)))
	})
}
