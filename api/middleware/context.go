package middleware

import (
	"context"

	"github.com/angelmondragon/logbook-backend/internal/authz"
)

type contextKey string

const (
	ctxUserID      contextKey = "user_id"
	ctxAccessID    contextKey = "access_id"
	ctxAuthContext contextKey = "auth_context"
)

func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxUserID).(string); ok {
		return v
	}
	return ""
}

// AccessIDFromContext returns the jti of the verified access token.
func AccessIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxAccessID).(string); ok {
		return v
	}
	return ""
}

// AuthContextFromContext returns the AuthContext resolved for this request,
// or nil when the route is not behind Auth.
func AuthContextFromContext(ctx context.Context) *authz.AuthContext {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxAuthContext).(*authz.AuthContext); ok {
		return v
	}
	return nil
}

// WithUserID injects the user identifier into the context.
func WithUserID(ctx context.Context, userID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxUserID, userID)
}

// WithAuthContext stores the resolved AuthContext along with its subject id.
func WithAuthContext(ctx context.Context, actor *authz.AuthContext) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if actor != nil {
		ctx = context.WithValue(ctx, ctxUserID, actor.SubjectID.String())
	}
	return context.WithValue(ctx, ctxAuthContext, actor)
}

func withAccessID(ctx context.Context, accessID string) context.Context {
	return context.WithValue(ctx, ctxAccessID, accessID)
}
