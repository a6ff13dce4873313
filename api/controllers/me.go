package controllers

import (
	"net/http"

	"github.com/angelmondragon/logbook-backend/api/responses"
	"github.com/angelmondragon/logbook-backend/internal/authz"
	"github.com/angelmondragon/logbook-backend/pkg/enums"
	"github.com/angelmondragon/logbook-backend/pkg/logger"
	"github.com/google/uuid"
)

type meResponse struct {
	ID           uuid.UUID        `json:"id"`
	Email        string           `json:"email"`
	Role         enums.Role       `json:"role"`
	Status       enums.UserStatus `json:"status"`
	DivisionID   *int64           `json:"division_id,omitempty"`
	DivisionName string           `json:"division_name,omitempty"`
	Capabilities []enums.Role     `json:"capabilities"`
	IsAdmin      bool             `json:"is_admin"`
	IsSuperadmin bool             `json:"is_superadmin"`
}

func meFromContext(actor *authz.AuthContext) meResponse {
	return meResponse{
		ID:           actor.SubjectID,
		Email:        actor.Email,
		Role:         actor.Role,
		Status:       actor.Status,
		DivisionID:   actor.DivisionID,
		DivisionName: actor.DivisionName,
		Capabilities: actor.Capabilities(),
		IsAdmin:      actor.IsAdmin(),
		IsSuperadmin: actor.IsSuperadmin(),
	}
}

// Me returns the caller's freshly resolved AuthContext.
func Me(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, meFromContext(actor))
	}
}
