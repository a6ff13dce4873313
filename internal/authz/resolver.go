package authz

import (
	"context"
	"errors"

	"github.com/angelmondragon/logbook-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/logbook-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReasonUserNotFound marks a NOT_FOUND for a subject with no user row.
const ReasonUserNotFound pkgerrors.Reason = "USER_NOT_FOUND"

type userReader interface {
	FindByIDWithDivision(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Resolver loads the current user record and derives its AuthContext.
type Resolver struct {
	users userReader
}

func NewResolver(users userReader) (*Resolver, error) {
	if users == nil {
		return nil, errors.New("user repository required")
	}
	return &Resolver{users: users}, nil
}

// ResolveAuthContext always reads from the store so role and status changes
// apply on the very next request.
func (r *Resolver) ResolveAuthContext(ctx context.Context, userID uuid.UUID) (*AuthContext, error) {
	user, err := r.users.FindByIDWithDivision(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found").WithReason(ReasonUserNotFound)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	if user == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found").WithReason(ReasonUserNotFound)
	}
	resolved := Resolve(*user)
	return &resolved, nil
}
