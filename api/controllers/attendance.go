package controllers

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/logbook-backend/api/responses"
	"github.com/angelmondragon/logbook-backend/api/validators"
	"github.com/angelmondragon/logbook-backend/internal/attendance"
	"github.com/angelmondragon/logbook-backend/pkg/enums"
	"github.com/angelmondragon/logbook-backend/pkg/logger"
)

const maxReasonLength = 500

type checkInRequest struct {
	Latitude     *float64 `json:"latitude" validate:"required"`
	Longitude    *float64 `json:"longitude" validate:"required"`
	ManualReason string   `json:"manual_reason"`
	LateReason   string   `json:"late_reason"`
}

type remoteCheckInRequest struct {
	Latitude     *float64 `json:"latitude" validate:"required"`
	Longitude    *float64 `json:"longitude" validate:"required"`
	WorkLocation string   `json:"work_location"`
	LateReason   string   `json:"late_reason"`
}

type checkOutRequest struct {
	Reason string `json:"reason"`
}

// AttendanceCheckIn opens an office session for the caller.
func AttendanceCheckIn(svc attendance.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body checkInRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.CheckIn(r.Context(), actor.SubjectID, attendance.CheckInRequest{
			Latitude:     *body.Latitude,
			Longitude:    *body.Longitude,
			ManualReason: validators.SanitizeString(body.ManualReason, maxReasonLength),
			LateReason:   validators.SanitizeString(body.LateReason, maxReasonLength),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, record)
	}
}

// AttendanceCheckOut closes today's open office session.
func AttendanceCheckOut(svc attendance.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body checkOutRequest
		if err := validators.DecodeOptionalJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.CheckOut(r.Context(), actor.SubjectID, attendance.CheckOutRequest{
			Reason: validators.SanitizeString(body.Reason, maxReasonLength),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, record)
	}
}

// RemoteCheckIn opens a remote-work session for the caller.
func RemoteCheckIn(svc attendance.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body remoteCheckInRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.RemoteCheckIn(r.Context(), actor.SubjectID, attendance.RemoteCheckInRequest{
			Latitude:     *body.Latitude,
			Longitude:    *body.Longitude,
			WorkLocation: validators.SanitizeString(body.WorkLocation, 200),
			LateReason:   validators.SanitizeString(body.LateReason, maxReasonLength),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, record)
	}
}

// RemoteCheckOut closes today's open remote session.
func RemoteCheckOut(svc attendance.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.RemoteCheckOut(r.Context(), actor.SubjectID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, record)
	}
}

// AttendanceToday reports the caller's state for the current work date.
func AttendanceToday(svc attendance.Service, kind enums.AttendanceKind, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		summary, err := svc.Today(r.Context(), actor.SubjectID, kind)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

// AttendanceHistory lists the caller's records between ?from= and ?to=.
func AttendanceHistory(svc attendance.Service, kind enums.AttendanceKind, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		q := r.URL.Query()
		records, err := svc.History(r.Context(), actor.SubjectID, kind, strings.TrimSpace(q.Get("from")), strings.TrimSpace(q.Get("to")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, records)
	}
}
