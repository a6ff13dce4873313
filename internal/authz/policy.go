package authz

import (
	"strconv"
	"strings"

	"github.com/angelmondragon/logbook-backend/pkg/enums"
)

type requirementKind int

const (
	kindAuthenticated requirementKind = iota
	kindRoleIn
	kindSuperadmin
	kindDivisionMember
)

// DivisionRef identifies a division. Name is used for messages only.
type DivisionRef struct {
	ID   *int64
	Name string
}

func (d DivisionRef) String() string {
	if d.ID != nil {
		return strconv.FormatInt(*d.ID, 10)
	}
	return d.Name
}

// Requirement is a declarative access rule evaluated by Authorize.
type Requirement struct {
	kind     requirementKind
	roles    []enums.Role
	division DivisionRef
}

// Authenticated is satisfied by any resolved subject.
func Authenticated() Requirement {
	return Requirement{kind: kindAuthenticated}
}

// RoleIn is satisfied when the primary role or any effective capability
// matches one of roles.
func RoleIn(roles ...enums.Role) Requirement {
	return Requirement{kind: kindRoleIn, roles: roles}
}

// IsSuperadmin is satisfied only by a primary role of superadmin.
func IsSuperadmin() Requirement {
	return Requirement{kind: kindSuperadmin}
}

// IsDivisionMember is satisfied when the subject's division id equals ref.ID.
func IsDivisionMember(ref DivisionRef) Requirement {
	return Requirement{kind: kindDivisionMember, division: ref}
}

// Decision is the outcome of Authorize. Reason is empty when Allowed.
type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(reason string) Decision {
	return Decision{Reason: reason}
}

// Authorize evaluates req against ctx. It performs no I/O.
func Authorize(ctx *AuthContext, req Requirement) Decision {
	if ctx == nil {
		return deny("not authenticated")
	}

	switch req.kind {
	case kindAuthenticated:
		return allow()
	case kindRoleIn:
		for _, role := range req.roles {
			if ctx.HasRole(role) {
				return allow()
			}
		}
		return deny("requires one of roles " + joinRoles(req.roles))
	case kindSuperadmin:
		if ctx.IsSuperadmin() {
			return allow()
		}
		return deny("requires superadmin")
	case kindDivisionMember:
		if isMember(ctx, req.division) {
			return allow()
		}
		return deny("not a member of division " + req.division.String())
	default:
		return deny("unknown requirement")
	}
}

// AuthorizeAll allows only when every requirement allows, returning the
// first denial otherwise.
func AuthorizeAll(ctx *AuthContext, reqs ...Requirement) Decision {
	for _, req := range reqs {
		if d := Authorize(ctx, req); !d.Allowed {
			return d
		}
	}
	return allow()
}

// isMember matches on division id only. A legacy division_name never grants
// membership, so the check agrees with the division member listing.
func isMember(ctx *AuthContext, ref DivisionRef) bool {
	return ref.ID != nil && ctx.DivisionID != nil && *ref.ID == *ctx.DivisionID
}

func joinRoles(roles []enums.Role) string {
	parts := make([]string, 0, len(roles))
	for _, r := range roles {
		parts = append(parts, string(r))
	}
	return "[" + strings.Join(parts, ",") + "]"
}
