package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/logbook-backend/internal/authz"
	"github.com/angelmondragon/logbook-backend/pkg/db/models"
	"github.com/angelmondragon/logbook-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/logbook-backend/pkg/errors"
	"github.com/angelmondragon/logbook-backend/pkg/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ReasonUserNotFound     pkgerrors.Reason = "USER_NOT_FOUND"
	ReasonDivisionNotFound pkgerrors.Reason = "DIVISION_NOT_FOUND"
	ReasonInvalidRole      pkgerrors.Reason = "INVALID_ROLE"
	ReasonInvalidStatus    pkgerrors.Reason = "INVALID_STATUS_TRANSITION"
	ReasonSelfModification pkgerrors.Reason = "SELF_MODIFICATION"
)

const defaultListLimit = 100

// AdminService performs account administration on behalf of an admin actor.
type AdminService interface {
	List(ctx context.Context, actor *authz.AuthContext, status *enums.UserStatus, limit, offset int) ([]UserDTO, error)
	Approve(ctx context.Context, actor *authz.AuthContext, userID uuid.UUID) (*UserDTO, error)
	Reject(ctx context.Context, actor *authz.AuthContext, userID uuid.UUID) (*UserDTO, error)
	Suspend(ctx context.Context, actor *authz.AuthContext, userID uuid.UUID) (*UserDTO, error)
	SetRoles(ctx context.Context, actor *authz.AuthContext, userID uuid.UUID, update RoleUpdate) (*UserDTO, error)
	SetDivision(ctx context.Context, actor *authz.AuthContext, userID uuid.UUID, divisionID *int64) (*UserDTO, error)
}

type adminRepository interface {
	List(ctx context.Context, status *enums.UserStatus, limit, offset int) ([]models.User, error)
	FindByIDWithDivision(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.UserStatus) error
	UpdateRoles(ctx context.Context, id uuid.UUID, update RoleUpdate) error
	UpdateDivision(ctx context.Context, id uuid.UUID, divisionID *int64) error
	FindDivision(ctx context.Context, id int64) (*models.Division, error)
}

type adminService struct {
	repo   adminRepository
	logger *logger.Logger
}

// AdminServiceParams bundles the dependencies of the admin service.
type AdminServiceParams struct {
	Repo   adminRepository
	Logger *logger.Logger
}

func NewAdminService(params AdminServiceParams) (AdminService, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	return &adminService{repo: params.Repo, logger: params.Logger}, nil
}

var administrators = authz.RoleIn(enums.RoleAdmin, enums.RoleSuperadmin)

// statusTransitions lists, per target status, the statuses it may be entered from.
var statusTransitions = map[enums.UserStatus][]enums.UserStatus{
	enums.UserStatusApproved:  {enums.UserStatusPending, enums.UserStatusRejected, enums.UserStatusSuspended},
	enums.UserStatusRejected:  {enums.UserStatusPending},
	enums.UserStatusSuspended: {enums.UserStatusApproved},
}

func (s *adminService) List(ctx context.Context, actor *authz.AuthContext, status *enums.UserStatus, limit, offset int) ([]UserDTO, error) {
	if err := authorize(actor, administrators); err != nil {
		return nil, err
	}
	if status != nil && !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter").
			WithDetails(map[string]any{"field": "status"})
	}
	if limit <= 0 || limit > defaultListLimit {
		limit = defaultListLimit
	}

	rows, err := s.repo.List(ctx, status, limit, offset)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list users")
	}
	out := make([]UserDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out, nil
}

func (s *adminService) Approve(ctx context.Context, actor *authz.AuthContext, userID uuid.UUID) (*UserDTO, error) {
	return s.transition(ctx, actor, userID, enums.UserStatusApproved)
}

func (s *adminService) Reject(ctx context.Context, actor *authz.AuthContext, userID uuid.UUID) (*UserDTO, error) {
	return s.transition(ctx, actor, userID, enums.UserStatusRejected)
}

func (s *adminService) Suspend(ctx context.Context, actor *authz.AuthContext, userID uuid.UUID) (*UserDTO, error) {
	return s.transition(ctx, actor, userID, enums.UserStatusSuspended)
}

func (s *adminService) transition(ctx context.Context, actor *authz.AuthContext, userID uuid.UUID, next enums.UserStatus) (*UserDTO, error) {
	if err := authorize(actor, administrators); err != nil {
		return nil, err
	}
	if actor.SubjectID == userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot change own status").WithReason(ReasonSelfModification)
	}

	target, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if target.Role == enums.RoleSuperadmin {
		if err := authorize(actor, authz.IsSuperadmin()); err != nil {
			return nil, err
		}
	}
	if !allowedFrom(next, target.Status) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "status transition not allowed").
			WithReason(ReasonInvalidStatus).
			WithDetails(map[string]any{"from": target.Status, "to": next})
	}

	if err := s.repo.UpdateStatus(ctx, userID, next); err != nil {
		return nil, s.mapWriteError(err, "update status")
	}
	s.audit(ctx, actor, userID, "users.status.changed", map[string]any{"from": target.Status, "to": next})
	return s.reload(ctx, userID)
}

func (s *adminService) SetRoles(ctx context.Context, actor *authz.AuthContext, userID uuid.UUID, update RoleUpdate) (*UserDTO, error) {
	if err := authorize(actor, authz.IsSuperadmin()); err != nil {
		return nil, err
	}

	role, err := enums.ParseRole(string(update.Role))
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid primary role").
			WithReason(ReasonInvalidRole).
			WithDetails(map[string]any{"field": "role", "value": update.Role})
	}
	if actor.SubjectID == userID && role != enums.RoleSuperadmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot demote own account").WithReason(ReasonSelfModification)
	}
	update.Role = role
	update.Roles = normalizeRoles(update.Roles)

	if _, err := s.load(ctx, userID); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateRoles(ctx, userID, update); err != nil {
		return nil, s.mapWriteError(err, "update roles")
	}
	s.audit(ctx, actor, userID, "users.roles.changed", map[string]any{"role": role, "roles": update.Roles})
	return s.reload(ctx, userID)
}

func (s *adminService) SetDivision(ctx context.Context, actor *authz.AuthContext, userID uuid.UUID, divisionID *int64) (*UserDTO, error) {
	if err := authorize(actor, administrators); err != nil {
		return nil, err
	}

	if divisionID != nil {
		if _, err := s.repo.FindDivision(ctx, *divisionID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "division not found").WithReason(ReasonDivisionNotFound)
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load division")
		}
	}
	target, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if target.Role == enums.RoleSuperadmin {
		if err := authorize(actor, authz.IsSuperadmin()); err != nil {
			return nil, err
		}
	}

	if err := s.repo.UpdateDivision(ctx, userID, divisionID); err != nil {
		return nil, s.mapWriteError(err, "update division")
	}
	s.audit(ctx, actor, userID, "users.division.changed", map[string]any{"division_id": divisionID})
	return s.reload(ctx, userID)
}

func (s *adminService) load(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.repo.FindByIDWithDivision(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found").WithReason(ReasonUserNotFound)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}
	return user, nil
}

func (s *adminService) reload(ctx context.Context, userID uuid.UUID) (*UserDTO, error) {
	user, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return FromModel(user), nil
}

func (s *adminService) mapWriteError(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "user not found").WithReason(ReasonUserNotFound)
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, msg)
}

func (s *adminService) audit(ctx context.Context, actor *authz.AuthContext, target uuid.UUID, msg string, fields map[string]any) {
	if s.logger == nil {
		return
	}
	fields["target_user_id"] = target.String()
	ctx = s.logger.WithFields(ctx, fields)
	ctx = s.logger.WithActorRole(ctx, string(actor.Role))
	s.logger.Info(ctx, msg)
}

func authorize(actor *authz.AuthContext, req authz.Requirement) error {
	if decision := authz.Authorize(actor, req); !decision.Allowed {
		return pkgerrors.New(pkgerrors.CodeForbidden, decision.Reason)
	}
	return nil
}

func allowedFrom(next, current enums.UserStatus) bool {
	for _, from := range statusTransitions[next] {
		if from == current {
			return true
		}
	}
	return false
}

// normalizeRoles trims, lowercases and de-duplicates free-form role labels,
// preserving first-seen order.
func normalizeRoles(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		role := strings.ToLower(strings.TrimSpace(r))
		if role == "" {
			continue
		}
		if _, ok := seen[role]; ok {
			continue
		}
		seen[role] = struct{}{}
		out = append(out, role)
	}
	return out
}
