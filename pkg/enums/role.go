package enums

import (
	"fmt"
	"strings"
)

// Role is a named permission label held by a user, either as the primary
// role, inside the roles array, or derived from a capability flag.
type Role string

const (
	RoleUser                  Role = "user"
	RoleAdmin                 Role = "admin"
	RoleSuperadmin            Role = "superadmin"
	RoleServiceCatalogManager Role = "service_catalog_manager"
	RoleServiceProvider       Role = "service_provider"
	RoleServiceRequester      Role = "service_requester"
	RoleApprover              Role = "approver"
	RoleBillingCoordinator    Role = "billing_coordinator"
	RoleBillingAdmin          Role = "billing_admin"
	RoleChangeRequester       Role = "change_requester"
	RoleChangeManager         Role = "change_manager"
	RoleCABMember             Role = "cab_member"
	RoleImplementer           Role = "implementer"
)

var validRoles = []Role{
	RoleUser,
	RoleAdmin,
	RoleSuperadmin,
	RoleServiceCatalogManager,
	RoleServiceProvider,
	RoleServiceRequester,
	RoleApprover,
	RoleBillingCoordinator,
	RoleBillingAdmin,
	RoleChangeRequester,
	RoleChangeManager,
	RoleCABMember,
	RoleImplementer,
}

// String implements fmt.Stringer.
func (r Role) String() string {
	return string(r)
}

// IsValid reports whether the value is a known Role.
func (r Role) IsValid() bool {
	for _, candidate := range validRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// NormalizeRole trims and lowercases a raw role label.
func NormalizeRole(value string) Role {
	return Role(strings.ToLower(strings.TrimSpace(value)))
}

// ParseRole converts raw input into a Role, ignoring case and surrounding space.
func ParseRole(value string) (Role, error) {
	role := NormalizeRole(value)
	if role.IsValid() {
		return role, nil
	}
	return "", fmt.Errorf("invalid role %q", value)
}
