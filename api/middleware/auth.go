package middleware

import (
	"context"
	"net/http"

	"github.com/angelmondragon/logbook-backend/api/responses"
	"github.com/angelmondragon/logbook-backend/internal/auth"
	"github.com/angelmondragon/logbook-backend/internal/authz"
	"github.com/angelmondragon/logbook-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/logbook-backend/pkg/errors"
	"github.com/angelmondragon/logbook-backend/pkg/logger"
	"github.com/google/uuid"
)

type credentialVerifier interface {
	VerifyCredential(ctx context.Context, token string) (*auth.Credential, error)
}

type authContextResolver interface {
	ResolveAuthContext(ctx context.Context, userID uuid.UUID) (*authz.AuthContext, error)
}

// Auth verifies the bearer token and then resolves the caller's AuthContext
// from the user record, so role and status changes apply on the next request.
func Auth(verifier credentialVerifier, resolver authContextResolver, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token, err := auth.BearerToken(r.Header.Get("Authorization"))
			if err != nil {
				rejectCredential(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInvalidToken, err, "malformed authorization header"))
				return
			}

			cred, err := verifier.VerifyCredential(ctx, token)
			if err != nil {
				rejectCredential(ctx, logg, w, err)
				return
			}

			actor, err := resolver.ResolveAuthContext(ctx, cred.SubjectID)
			if err != nil {
				if pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
					err = pkgerrors.Wrap(pkgerrors.CodeInvalidToken, err, "token subject no longer exists")
				}
				rejectCredential(ctx, logg, w, err)
				return
			}
			if actor.Status != enums.UserStatusApproved {
				rejectCredential(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInvalidToken, "account is not active"))
				return
			}

			ctx = WithAuthContext(ctx, actor)
			ctx = withAccessID(ctx, cred.AccessID)
			if logg != nil {
				ctx = logg.WithUserID(ctx, actor.SubjectID.String())
				ctx = logg.WithActorRole(ctx, string(actor.Role))
				if actor.DivisionID != nil {
					ctx = logg.WithDivisionID(ctx, *actor.DivisionID)
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func rejectCredential(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	if logg != nil {
		msg := "auth.credential.invalid"
		if pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized) {
			msg = "auth.credential.missing"
		}
		logg.Warn(logg.WithField(ctx, "error", err.Error()), msg)
	}
	responses.WriteError(ctx, nil, w, err)
}
