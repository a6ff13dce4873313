package controllers

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/logbook-backend/api/responses"
	"github.com/angelmondragon/logbook-backend/internal/attendance"
	"github.com/angelmondragon/logbook-backend/pkg/logger"
)

// DivisionAttendance returns every member's office and remote state for ?date=
// (today when omitted).
func DivisionAttendance(svc attendance.DivisionService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		divisionID, err := int64Param(r, "divisionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		day, err := svc.DivisionDay(r.Context(), actor, divisionID, strings.TrimSpace(r.URL.Query().Get("date")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, day)
	}
}
