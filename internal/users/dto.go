package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/logbook-backend/pkg/db/models"
	dbtypes "github.com/angelmondragon/logbook-backend/pkg/db/types"
	"github.com/angelmondragon/logbook-backend/pkg/enums"
)

// UserDTO is the transport shape that omits sensitive credentials.
type UserDTO struct {
	ID           uuid.UUID        `json:"id"`
	Email        string           `json:"email"`
	FullName     string           `json:"full_name"`
	Role         enums.Role       `json:"role"`
	Roles        []string         `json:"roles"`
	Flags        CapabilityFlags  `json:"flags"`
	Status       enums.UserStatus `json:"status"`
	DivisionID   *int64           `json:"division_id,omitempty"`
	DivisionName string           `json:"division_name,omitempty"`
	LastLoginAt  *time.Time       `json:"last_login_at,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// CapabilityFlags mirrors the nine boolean capability columns.
type CapabilityFlags struct {
	IsServiceCatalogManager bool `json:"is_service_catalog_manager"`
	IsServiceProvider       bool `json:"is_service_provider"`
	IsServiceRequester      bool `json:"is_service_requester"`
	IsApprover              bool `json:"is_approver"`
	IsBillingCoordinator    bool `json:"is_billing_coordinator"`
	IsChangeRequester       bool `json:"is_change_requester"`
	IsChangeManager         bool `json:"is_change_manager"`
	IsCABMember             bool `json:"is_cab_member"`
	IsImplementer           bool `json:"is_implementer"`
}

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	Email        string
	PasswordHash string
	FullName     string
	Role         enums.Role
	Status       enums.UserStatus
	DivisionID   *int64
	DivisionName *string
}

// RoleUpdate replaces the primary role, additional roles and flags at once.
type RoleUpdate struct {
	Role  enums.Role
	Roles []string
	Flags CapabilityFlags
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}

	return &UserDTO{
		ID:           u.ID,
		Email:        u.Email,
		FullName:     u.FullName,
		Role:         u.Role,
		Roles:        append([]string{}, u.Roles...),
		Flags:        flagsFromModel(u),
		Status:       u.Status,
		DivisionID:   u.DivisionID,
		DivisionName: u.ResolvedDivisionName(),
		LastLoginAt:  u.LastLoginAt,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func (c CreateUserDTO) ToModel() *models.User {
	role := c.Role
	if role == "" {
		role = enums.RoleUser
	}
	status := c.Status
	if status == "" {
		status = enums.UserStatusPending
	}

	return &models.User{
		Email:        c.Email,
		PasswordHash: c.PasswordHash,
		FullName:     c.FullName,
		Role:         role,
		Roles:        dbtypes.TextArray{},
		Status:       status,
		DivisionID:   c.DivisionID,
		DivisionName: c.DivisionName,
	}
}

func flagsFromModel(u *models.User) CapabilityFlags {
	return CapabilityFlags{
		IsServiceCatalogManager: u.IsServiceCatalogManager,
		IsServiceProvider:       u.IsServiceProvider,
		IsServiceRequester:      u.IsServiceRequester,
		IsApprover:              u.IsApprover,
		IsBillingCoordinator:    u.IsBillingCoordinator,
		IsChangeRequester:       u.IsChangeRequester,
		IsChangeManager:         u.IsChangeManager,
		IsCABMember:             u.IsCABMember,
		IsImplementer:           u.IsImplementer,
	}
}

func (f CapabilityFlags) columns() map[string]any {
	return map[string]any{
		"is_service_catalog_manager": f.IsServiceCatalogManager,
		"is_service_provider":        f.IsServiceProvider,
		"is_service_requester":       f.IsServiceRequester,
		"is_approver":                f.IsApprover,
		"is_billing_coordinator":     f.IsBillingCoordinator,
		"is_change_requester":        f.IsChangeRequester,
		"is_change_manager":          f.IsChangeManager,
		"is_cab_member":              f.IsCABMember,
		"is_implementer":             f.IsImplementer,
	}
}
