package middleware

import (
	"net/http"

	"github.com/angelmondragon/logbook-backend/api/responses"
	"github.com/angelmondragon/logbook-backend/internal/authz"
	pkgerrors "github.com/angelmondragon/logbook-backend/pkg/errors"
	"github.com/angelmondragon/logbook-backend/pkg/logger"
)

// Require enforces every requirement against the AuthContext seeded by Auth.
func Require(logg *logger.Logger, reqs ...authz.Requirement) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := AuthContextFromContext(r.Context())
			if actor == nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
				return
			}

			decision := authz.AuthorizeAll(actor, reqs...)
			if !decision.Allowed {
				ctx := r.Context()
				if logg != nil {
					ctx = logg.WithField(ctx, "deny_reason", decision.Reason)
				}
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeForbidden, decision.Reason))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
