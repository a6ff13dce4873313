package models

import (
	"time"

	dbtypes "github.com/angelmondragon/logbook-backend/pkg/db/types"
	"github.com/angelmondragon/logbook-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User represents the canonical identity and authorization profile.
type User struct {
	ID           uuid.UUID         `gorm:"type:uuid;primaryKey"`
	Email        string            `gorm:"type:text;not null;uniqueIndex"`
	PasswordHash string            `gorm:"column:password_hash;not null"`
	FullName     string            `gorm:"column:full_name;not null"`
	Role         enums.Role        `gorm:"column:role;type:text;not null;default:'user'"`
	Roles        dbtypes.TextArray `gorm:"column:roles;not null;default:'{}'"`
	Status       enums.UserStatus  `gorm:"column:status;type:text;not null;default:'pending';index"`

	IsServiceCatalogManager bool `gorm:"column:is_service_catalog_manager;not null;default:false"`
	IsServiceProvider       bool `gorm:"column:is_service_provider;not null;default:false"`
	IsServiceRequester      bool `gorm:"column:is_service_requester;not null;default:false"`
	IsApprover              bool `gorm:"column:is_approver;not null;default:false"`
	IsBillingCoordinator    bool `gorm:"column:is_billing_coordinator;not null;default:false"`
	IsChangeRequester       bool `gorm:"column:is_change_requester;not null;default:false"`
	IsChangeManager         bool `gorm:"column:is_change_manager;not null;default:false"`
	IsCABMember             bool `gorm:"column:is_cab_member;not null;default:false"`
	IsImplementer           bool `gorm:"column:is_implementer;not null;default:false"`

	// DivisionID is canonical; DivisionName is the legacy free-text column
	// kept readable for rows that predate the divisions table.
	DivisionID   *int64    `gorm:"column:division_id;index"`
	DivisionName *string   `gorm:"column:division_name"`
	Division     *Division `gorm:"foreignKey:DivisionID"`

	LastLoginAt *time.Time `gorm:"column:last_login_at"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// ResolvedDivisionName prefers the joined division over the legacy column.
func (u User) ResolvedDivisionName() string {
	if u.Division != nil && u.Division.Name != "" {
		return u.Division.Name
	}
	if u.DivisionName != nil {
		return *u.DivisionName
	}
	return ""
}
