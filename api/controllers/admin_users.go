package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/angelmondragon/logbook-backend/api/responses"
	"github.com/angelmondragon/logbook-backend/api/validators"
	"github.com/angelmondragon/logbook-backend/internal/authz"
	"github.com/angelmondragon/logbook-backend/internal/users"
	"github.com/angelmondragon/logbook-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/logbook-backend/pkg/errors"
	"github.com/angelmondragon/logbook-backend/pkg/logger"
	"github.com/angelmondragon/logbook-backend/pkg/types"
	"github.com/google/uuid"
)

type setRolesRequest struct {
	Role  string                `json:"role" validate:"required"`
	Roles []string              `json:"roles"`
	Flags users.CapabilityFlags `json:"flags"`
}

type setDivisionRequest struct {
	DivisionID *int64 `json:"division_id"`
}

// AdminListUsers lists accounts, optionally filtered by ?status=.
func AdminListUsers(svc users.AdminService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var status *enums.UserStatus
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			parsed, err := enums.ParseUserStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter").WithDetails(map[string]any{"field": "status"}))
				return
			}
			status = &parsed
		}
		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 200)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		offset, err := validators.ParseQueryInt(r, "offset", 0, 0, 1_000_000)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.List(r.Context(), actor, status, limit, offset)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessPage(w, list, types.PageMeta{Limit: limit, Offset: offset, Count: len(list)})
	}
}

type statusTransition func(ctx context.Context, actor *authz.AuthContext, userID uuid.UUID) (*users.UserDTO, error)

func adminTransition(transition statusTransition, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		userID, err := uuidParam(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		user, err := transition(r.Context(), actor, userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, user)
	}
}

func AdminApproveUser(svc users.AdminService, logg *logger.Logger) http.HandlerFunc {
	return adminTransition(svc.Approve, logg)
}

func AdminRejectUser(svc users.AdminService, logg *logger.Logger) http.HandlerFunc {
	return adminTransition(svc.Reject, logg)
}

func AdminSuspendUser(svc users.AdminService, logg *logger.Logger) http.HandlerFunc {
	return adminTransition(svc.Suspend, logg)
}

// AdminSetUserRoles replaces the primary role, additional roles and capability flags.
func AdminSetUserRoles(svc users.AdminService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		userID, err := uuidParam(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body setRolesRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		user, err := svc.SetRoles(r.Context(), actor, userID, users.RoleUpdate{
			Role:  enums.NormalizeRole(body.Role),
			Roles: body.Roles,
			Flags: body.Flags,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, user)
	}
}

// AdminSetUserDivision assigns a user to a division, or clears it with null.
func AdminSetUserDivision(svc users.AdminService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		userID, err := uuidParam(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body setDivisionRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		user, err := svc.SetDivision(r.Context(), actor, userID, body.DivisionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, user)
	}
}
