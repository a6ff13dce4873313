package users

import (
	"context"
	"time"

	"github.com/angelmondragon/logbook-backend/pkg/db/models"
	dbtypes "github.com/angelmondragon/logbook-backend/pkg/db/types"
	"github.com/angelmondragon/logbook-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository exposes user-related persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a users repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new user and returns the persisted model.
func (r *Repository) Create(ctx context.Context, dto CreateUserDTO) (*models.User, error) {
	user := dto.ToModel()
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// FindByEmail retrieves the user matching the provided email.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByIDWithDivision loads a user together with its division row.
func (r *Repository) FindByIDWithDivision(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Preload("Division").First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// List returns users ordered by creation time, optionally filtered by status.
func (r *Repository) List(ctx context.Context, status *enums.UserStatus, limit, offset int) ([]models.User, error) {
	query := r.db.WithContext(ctx).Preload("Division").Order("created_at ASC").Order("id ASC")
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var out []models.User
	if err := query.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ListByDivision returns approved users of a division.
func (r *Repository) ListByDivision(ctx context.Context, divisionID int64) ([]models.User, error) {
	var out []models.User
	err := r.db.WithContext(ctx).
		Where("division_id = ? AND status = ?", divisionID, enums.UserStatusApproved).
		Order("full_name ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateLastLogin refreshes the user's last_login_at timestamp.
func (r *Repository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("last_login_at", at).Error
}

// UpdatePasswordHash replaces the stored Argon2id hash.
func (r *Repository) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	return r.updateColumns(ctx, id, map[string]any{"password_hash": hash})
}

// UpdateStatus moves the user to a new lifecycle status.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.UserStatus) error {
	return r.updateColumns(ctx, id, map[string]any{"status": status})
}

// UpdateRoles overwrites the primary role, roles array and capability flags.
func (r *Repository) UpdateRoles(ctx context.Context, id uuid.UUID, update RoleUpdate) error {
	cols := update.Flags.columns()
	cols["role"] = update.Role
	cols["roles"] = dbtypes.TextArray(update.Roles)
	return r.updateColumns(ctx, id, cols)
}

// UpdateDivision assigns the user to a division, clearing the legacy name.
func (r *Repository) UpdateDivision(ctx context.Context, id uuid.UUID, divisionID *int64) error {
	return r.updateColumns(ctx, id, map[string]any{
		"division_id":   divisionID,
		"division_name": nil,
	})
}

func (r *Repository) updateColumns(ctx context.Context, id uuid.UUID, cols map[string]any) error {
	cols["updated_at"] = time.Now().UTC()
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).UpdateColumns(cols)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// FindDivision loads a division by id.
func (r *Repository) FindDivision(ctx context.Context, id int64) (*models.Division, error) {
	var division models.Division
	if err := r.db.WithContext(ctx).First(&division, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &division, nil
}
