package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pkgAuth "github.com/angelmondragon/logbook-backend/pkg/auth"
	"github.com/angelmondragon/logbook-backend/pkg/auth/session"
	"github.com/angelmondragon/logbook-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/logbook-backend/pkg/errors"
	"github.com/google/uuid"
)

const (
	ReasonMissingCredential pkgerrors.Reason = "MISSING_CREDENTIAL"
	ReasonSessionRevoked    pkgerrors.Reason = "SESSION_REVOKED"
)

// Credential is what a verified bearer token proves: who the subject is and
// which access session the token belongs to. It carries no roles.
type Credential struct {
	SubjectID uuid.UUID
	AccessID  string
}

// Verifier checks bearer tokens against the signing key and the session store.
type Verifier struct {
	cfg      config.JWTConfig
	sessions session.AccessSessionChecker
}

// NewVerifier constructs a credential verifier.
func NewVerifier(cfg config.JWTConfig, sessions session.AccessSessionChecker) (*Verifier, error) {
	if strings.TrimSpace(cfg.Secret) == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session checker is required")
	}
	return &Verifier{cfg: cfg, sessions: sessions}, nil
}

// VerifyCredential validates token and returns its subject. An empty token is
// UNAUTHORIZED; a malformed, badly signed, expired or revoked one is
// INVALID_TOKEN.
func (v *Verifier) VerifyCredential(ctx context.Context, token string) (*Credential, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credential").WithReason(ReasonMissingCredential)
	}

	claims, err := pkgAuth.ParseAccessToken(v.cfg, token)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInvalidToken, err, "invalid access token")
	}
	if claims.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidToken, "access token has no session id")
	}

	ok, err := v.sessions.HasSession(ctx, claims.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check access session")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidToken, "session revoked").WithReason(ReasonSessionRevoked)
	}
	return &Credential{SubjectID: claims.UserID, AccessID: claims.ID}, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", nil
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", errors.New("authorization header must use the Bearer scheme")
	}
	return strings.TrimSpace(token), nil
}
