// Package authz resolves a user's effective permissions and evaluates
// access requirements against them.
package authz

import (
	"sort"

	"github.com/angelmondragon/logbook-backend/pkg/db/models"
	"github.com/angelmondragon/logbook-backend/pkg/enums"
	"github.com/google/uuid"
)

// AuthContext is the request-scoped authorization fact for one subject.
// It is derived from the stored user on every request and never cached.
type AuthContext struct {
	SubjectID    uuid.UUID
	Email        string
	Role         enums.Role
	Status       enums.UserStatus
	DivisionID   *int64
	DivisionName string

	capabilities map[enums.Role]struct{}
}

// capabilityFlags maps each boolean column to the role name it grants.
func capabilityFlags(u models.User) []struct {
	set  bool
	role enums.Role
} {
	return []struct {
		set  bool
		role enums.Role
	}{
		{u.IsServiceCatalogManager, enums.RoleServiceCatalogManager},
		{u.IsServiceProvider, enums.RoleServiceProvider},
		{u.IsServiceRequester, enums.RoleServiceRequester},
		{u.IsApprover, enums.RoleApprover},
		{u.IsBillingCoordinator, enums.RoleBillingCoordinator},
		{u.IsChangeRequester, enums.RoleChangeRequester},
		{u.IsChangeManager, enums.RoleChangeManager},
		{u.IsCABMember, enums.RoleCABMember},
		{u.IsImplementer, enums.RoleImplementer},
	}
}

// Resolve builds an AuthContext from a stored user. The capability set is the
// union of the primary role, the additional roles array and the roles granted
// by capability flags.
func Resolve(u models.User) AuthContext {
	caps := make(map[enums.Role]struct{})
	add := func(r enums.Role) {
		if r != "" {
			caps[r] = struct{}{}
		}
	}

	add(enums.NormalizeRole(string(u.Role)))
	for _, raw := range u.Roles {
		add(enums.NormalizeRole(raw))
	}
	for _, flag := range capabilityFlags(u) {
		if flag.set {
			add(flag.role)
		}
	}

	return AuthContext{
		SubjectID:    u.ID,
		Email:        u.Email,
		Role:         enums.NormalizeRole(string(u.Role)),
		Status:       u.Status,
		DivisionID:   u.DivisionID,
		DivisionName: u.ResolvedDivisionName(),
		capabilities: caps,
	}
}

// IsAdmin is a primary-role check; capability flags never make a user admin.
func (c AuthContext) IsAdmin() bool {
	return c.Role == enums.RoleAdmin || c.Role == enums.RoleSuperadmin
}

func (c AuthContext) IsSuperadmin() bool {
	return c.Role == enums.RoleSuperadmin
}

// HasRole reports whether role is in the effective capability set.
func (c AuthContext) HasRole(role enums.Role) bool {
	if c.Role == role {
		return true
	}
	_, ok := c.capabilities[role]
	return ok
}

// Capabilities returns the effective capability set in sorted order.
func (c AuthContext) Capabilities() []enums.Role {
	out := make([]enums.Role, 0, len(c.capabilities))
	for role := range c.capabilities {
		out = append(out, role)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
