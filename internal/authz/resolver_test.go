package authz

import (
	"context"
	"errors"
	"testing"

	"github.com/angelmondragon/logbook-backend/pkg/db/models"
	"github.com/angelmondragon/logbook-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/logbook-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type stubUserReader struct {
	users map[uuid.UUID]models.User
	err   error
	calls int
}

func (s *stubUserReader) FindByIDWithDivision(_ context.Context, id uuid.UUID) (*models.User, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	u, ok := s.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &u, nil
}

func TestResolverReadsFreshStateEveryCall(t *testing.T) {
	id := uuid.New()
	repo := &stubUserReader{users: map[uuid.UUID]models.User{
		id: {ID: id, Role: enums.RoleAdmin, Status: enums.UserStatusApproved},
	}}
	resolver, err := NewResolver(repo)
	require.NoError(t, err)

	first, err := resolver.ResolveAuthContext(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, first.IsAdmin())

	repo.users[id] = models.User{ID: id, Role: enums.RoleUser, Status: enums.UserStatusApproved}
	second, err := resolver.ResolveAuthContext(context.Background(), id)
	require.NoError(t, err)
	assert.False(t, second.IsAdmin(), "demotion must apply on the next resolution")
	assert.Equal(t, 2, repo.calls)
}

func TestResolverMissingUser(t *testing.T) {
	resolver, err := NewResolver(&stubUserReader{users: map[uuid.UUID]models.User{}})
	require.NoError(t, err)

	_, err = resolver.ResolveAuthContext(context.Background(), uuid.New())
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
	assert.True(t, pkgerrors.HasReason(err, ReasonUserNotFound))
}

func TestResolverStoreFailure(t *testing.T) {
	resolver, err := NewResolver(&stubUserReader{err: errors.New("connection reset")})
	require.NoError(t, err)

	_, err = resolver.ResolveAuthContext(context.Background(), uuid.New())
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeDependency))
}

func TestNewResolverRequiresRepo(t *testing.T) {
	_, err := NewResolver(nil)
	assert.Error(t, err)
}
