package attendance

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/angelmondragon/logbook-backend/internal/geo"
	pkgdb "github.com/angelmondragon/logbook-backend/pkg/db"
	"github.com/angelmondragon/logbook-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/logbook-backend/pkg/errors"
	"github.com/angelmondragon/logbook-backend/pkg/logger"
	"github.com/angelmondragon/logbook-backend/pkg/metrics"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ReasonAlreadyCheckedIn   pkgerrors.Reason = "ALREADY_CHECKED_IN"
	ReasonNoOpenSession      pkgerrors.Reason = "NO_OPEN_SESSION"
	ReasonOutsideGeofence    pkgerrors.Reason = "OUTSIDE_GEOFENCE"
	ReasonLateReasonRequired pkgerrors.Reason = "LATE_REASON_REQUIRED"
	ReasonInvalidCoordinates pkgerrors.Reason = "INVALID_COORDINATES"
	ReasonMissingField       pkgerrors.Reason = "MISSING_FIELD"
	ReasonInvalidDateRange   pkgerrors.Reason = "INVALID_DATE_RANGE"
)

const (
	actionCheckIn  = "check_in"
	actionCheckOut = "check_out"

	defaultHistoryDays = 30
	maxHistoryDays     = 92
)

// Service drives the per-user, per-day attendance state machine for office
// and remote work.
type Service interface {
	CheckIn(ctx context.Context, userID uuid.UUID, req CheckInRequest) (*Record, error)
	CheckOut(ctx context.Context, userID uuid.UUID, req CheckOutRequest) (*Record, error)
	RemoteCheckIn(ctx context.Context, userID uuid.UUID, req RemoteCheckInRequest) (*Record, error)
	RemoteCheckOut(ctx context.Context, userID uuid.UUID) (*Record, error)
	Today(ctx context.Context, userID uuid.UUID, kind enums.AttendanceKind) (*DaySummary, error)
	History(ctx context.Context, userID uuid.UUID, kind enums.AttendanceKind, from, to string) ([]Record, error)
}

type recordStore interface {
	FindOpen(ctx context.Context, kind enums.AttendanceKind, userID uuid.UUID, workDate string) (*Record, error)
	FindByID(ctx context.Context, kind enums.AttendanceKind, id uuid.UUID) (*Record, error)
	Insert(ctx context.Context, rec *Record) error
	CloseOpen(ctx context.Context, kind enums.AttendanceKind, id uuid.UUID, at time.Time, reason *string) error
	ListForUser(ctx context.Context, kind enums.AttendanceKind, userID uuid.UUID, from, to string) ([]Record, error)
	ListForUsersOnDate(ctx context.Context, kind enums.AttendanceKind, userIDs []uuid.UUID, workDate string) ([]Record, error)
}

type service struct {
	repo     recordStore
	policies map[enums.AttendanceKind]Policy
	clock    func() time.Time
	logger   *logger.Logger
	metrics  *metrics.AttendanceMetrics
}

// ServiceParams bundles the attendance service dependencies.
type ServiceParams struct {
	Repo    recordStore
	Office  Policy
	Remote  Policy
	Clock   func() time.Time
	Logger  *logger.Logger
	Metrics *metrics.AttendanceMetrics
}

// NewService constructs the attendance service.
func NewService(params ServiceParams) (Service, error) {
	return newService(params)
}

func newService(params ServiceParams) (*service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("attendance repository is required")
	}
	if err := params.Office.validate(); err != nil {
		return nil, err
	}
	if err := params.Remote.validate(); err != nil {
		return nil, err
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &service{
		repo: params.Repo,
		policies: map[enums.AttendanceKind]Policy{
			enums.AttendanceKindOffice: params.Office,
			enums.AttendanceKindRemote: params.Remote,
		},
		clock:   clock,
		logger:  params.Logger,
		metrics: params.Metrics,
	}, nil
}

// checkInAttempt is the kind-agnostic input to the check-in transition.
type checkInAttempt struct {
	kind         enums.AttendanceKind
	point        geo.Point
	manualReason string
	lateReason   string
	workLocation string
}

func (s *service) CheckIn(ctx context.Context, userID uuid.UUID, req CheckInRequest) (*Record, error) {
	return s.checkIn(ctx, userID, checkInAttempt{
		kind:         enums.AttendanceKindOffice,
		point:        geo.Point{Lat: req.Latitude, Lon: req.Longitude},
		manualReason: req.ManualReason,
		lateReason:   req.LateReason,
	})
}

func (s *service) RemoteCheckIn(ctx context.Context, userID uuid.UUID, req RemoteCheckInRequest) (*Record, error) {
	return s.checkIn(ctx, userID, checkInAttempt{
		kind:         enums.AttendanceKindRemote,
		point:        geo.Point{Lat: req.Latitude, Lon: req.Longitude},
		lateReason:   req.LateReason,
		workLocation: req.WorkLocation,
	})
}

func (s *service) CheckOut(ctx context.Context, userID uuid.UUID, req CheckOutRequest) (*Record, error) {
	return s.checkOut(ctx, userID, enums.AttendanceKindOffice, trimmedPtr(req.Reason))
}

func (s *service) RemoteCheckOut(ctx context.Context, userID uuid.UUID) (*Record, error) {
	return s.checkOut(ctx, userID, enums.AttendanceKindRemote, nil)
}

func (s *service) checkIn(ctx context.Context, userID uuid.UUID, attempt checkInAttempt) (*Record, error) {
	policy := s.policies[attempt.kind]
	now := s.clock().UTC()
	workDate := policy.WorkDate(now)
	ctx = s.scope(ctx, userID, attempt.kind, workDate)

	if !attempt.point.Valid() {
		return nil, s.reject(ctx, attempt.kind, actionCheckIn,
			pkgerrors.New(pkgerrors.CodeValidation, "latitude and longitude must be valid coordinates").
				WithReason(ReasonInvalidCoordinates).
				WithDetails(map[string]any{"latitude": attempt.point.Lat, "longitude": attempt.point.Lon}))
	}
	workLocation := strings.TrimSpace(attempt.workLocation)
	if policy.RequireWorkLocation && workLocation == "" {
		return nil, s.reject(ctx, attempt.kind, actionCheckIn,
			pkgerrors.New(pkgerrors.CodeValidation, "work location is required").
				WithReason(ReasonMissingField).
				WithDetails(map[string]any{"field": "work_location"}))
	}

	if _, err := s.repo.FindOpen(ctx, attempt.kind, userID, workDate); err == nil {
		return nil, s.reject(ctx, attempt.kind, actionCheckIn, alreadyCheckedIn(workDate))
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, s.fail(ctx, attempt.kind, actionCheckIn, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load open session"))
	}

	inside, distance := policy.Fence.Contains(attempt.point)
	var manualReason *string
	if !inside {
		if policy.AllowManualOverride {
			manualReason = trimmedPtr(attempt.manualReason)
		}
		if manualReason == nil {
			return nil, s.reject(ctx, attempt.kind, actionCheckIn,
				pkgerrors.New(pkgerrors.CodeValidation, "location is outside the allowed area").
					WithReason(ReasonOutsideGeofence).
					WithDetails(map[string]any{
						"distance_meters": roundMeters(distance),
						"radius_meters":   policy.Fence.RadiusMeters,
					}))
		}
	}

	isLate := policy.IsLate(now)
	var lateReason *string
	if isLate {
		lateReason = trimmedPtr(attempt.lateReason)
		if lateReason == nil {
			return nil, s.reject(ctx, attempt.kind, actionCheckIn,
				pkgerrors.New(pkgerrors.CodeValidation, "a reason is required for late check-in").
					WithReason(ReasonLateReasonRequired).
					WithDetails(map[string]any{"cutoff": policy.CutoffLabel()}))
		}
	}

	rec := &Record{
		Kind:           attempt.kind,
		UserID:         userID,
		WorkDate:       workDate,
		CheckInAt:      now,
		Latitude:       attempt.point.Lat,
		Longitude:      attempt.point.Lon,
		DistanceMeters: roundMeters(distance),
		ManualReason:   manualReason,
		WorkLocation:   workLocation,
		IsLate:         isLate,
		LateReason:     lateReason,
	}
	if err := s.repo.Insert(ctx, rec); err != nil {
		if pkgdb.IsUniqueViolation(err, openSessionIndex(attempt.kind)) {
			return nil, s.reject(ctx, attempt.kind, actionCheckIn, alreadyCheckedIn(workDate))
		}
		return nil, s.fail(ctx, attempt.kind, actionCheckIn, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert attendance record"))
	}

	s.metrics.Observe(string(attempt.kind), actionCheckIn, metrics.OutcomeSuccess)
	if s.logger != nil {
		logCtx := s.logger.WithFields(ctx, map[string]any{
			"record_id":       rec.ID.String(),
			"distance_meters": rec.DistanceMeters,
			"is_late":         rec.IsLate,
			"manual_override": rec.ManualReason != nil,
		})
		s.logger.Info(logCtx, "attendance.check_in")
	}
	return rec, nil
}

func (s *service) checkOut(ctx context.Context, userID uuid.UUID, kind enums.AttendanceKind, reason *string) (*Record, error) {
	policy := s.policies[kind]
	now := s.clock().UTC()
	workDate := policy.WorkDate(now)
	ctx = s.scope(ctx, userID, kind, workDate)

	open, err := s.repo.FindOpen(ctx, kind, userID, workDate)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, s.reject(ctx, kind, actionCheckOut, noOpenSession(workDate))
		}
		return nil, s.fail(ctx, kind, actionCheckOut, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load open session"))
	}

	if err := s.repo.CloseOpen(ctx, kind, open.ID, now, reason); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, s.reject(ctx, kind, actionCheckOut, noOpenSession(workDate))
		}
		return nil, s.fail(ctx, kind, actionCheckOut, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "close attendance record"))
	}

	closed, err := s.repo.FindByID(ctx, kind, open.ID)
	if err != nil {
		return nil, s.fail(ctx, kind, actionCheckOut, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload attendance record"))
	}

	s.metrics.Observe(string(kind), actionCheckOut, metrics.OutcomeSuccess)
	if s.logger != nil {
		logCtx := s.logger.WithField(ctx, "record_id", closed.ID.String())
		s.logger.Info(logCtx, "attendance.check_out")
	}
	return closed, nil
}

func (s *service) Today(ctx context.Context, userID uuid.UUID, kind enums.AttendanceKind) (*DaySummary, error) {
	policy, ok := s.policies[kind]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown attendance kind")
	}
	workDate := policy.WorkDate(s.clock())
	records, err := s.repo.ListForUser(ctx, kind, userID, workDate, workDate)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list attendance records")
	}
	summary := summarize(kind, workDate, records)
	return &summary, nil
}

func (s *service) History(ctx context.Context, userID uuid.UUID, kind enums.AttendanceKind, from, to string) ([]Record, error) {
	policy, ok := s.policies[kind]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown attendance kind")
	}
	start, end, err := s.historyRange(policy, from, to)
	if err != nil {
		return nil, err
	}
	records, err := s.repo.ListForUser(ctx, kind, userID, start, end)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list attendance records")
	}
	return records, nil
}

// historyRange resolves an inclusive work-date window. Missing bounds default
// to the last defaultHistoryDays days ending today.
func (s *service) historyRange(policy Policy, from, to string) (string, string, error) {
	end := policy.WorkDate(s.clock())
	if strings.TrimSpace(to) != "" {
		parsed, err := parseWorkDate(to, "to")
		if err != nil {
			return "", "", err
		}
		end = parsed.Format(workDateLayout)
	}
	endDate, _ := time.Parse(workDateLayout, end)

	startDate := endDate.AddDate(0, 0, -(defaultHistoryDays - 1))
	if strings.TrimSpace(from) != "" {
		parsed, err := parseWorkDate(from, "from")
		if err != nil {
			return "", "", err
		}
		startDate = parsed
	}

	if startDate.After(endDate) {
		return "", "", pkgerrors.New(pkgerrors.CodeValidation, "from must not be after to").
			WithReason(ReasonInvalidDateRange).
			WithDetails(map[string]any{"from": startDate.Format(workDateLayout), "to": end})
	}
	if days := int(endDate.Sub(startDate).Hours()/24) + 1; days > maxHistoryDays {
		return "", "", pkgerrors.New(pkgerrors.CodeValidation, "date range is too large").
			WithReason(ReasonInvalidDateRange).
			WithDetails(map[string]any{"max_days": maxHistoryDays, "days": days})
	}
	return startDate.Format(workDateLayout), end, nil
}

func parseWorkDate(value, field string) (time.Time, error) {
	parsed, err := time.Parse(workDateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "dates must use YYYY-MM-DD").
			WithReason(ReasonInvalidDateRange).
			WithDetails(map[string]any{"field": field, "value": value})
	}
	return parsed, nil
}

func (s *service) scope(ctx context.Context, userID uuid.UUID, kind enums.AttendanceKind, workDate string) context.Context {
	if s.logger == nil {
		return ctx
	}
	ctx = s.logger.WithUserID(ctx, userID.String())
	return s.logger.WithFields(ctx, map[string]any{
		"attendance_kind": string(kind),
		"work_date":       workDate,
	})
}

// reject records a caller-caused failure and returns it unchanged.
func (s *service) reject(ctx context.Context, kind enums.AttendanceKind, action string, err *pkgerrors.Error) error {
	s.metrics.Observe(string(kind), action, strings.ToLower(string(err.Reason())))
	if s.logger != nil {
		logCtx := s.logger.WithField(ctx, "reason", string(err.Reason()))
		s.logger.Warn(logCtx, "attendance."+action+".rejected")
	}
	return err
}

func (s *service) fail(ctx context.Context, kind enums.AttendanceKind, action string, err *pkgerrors.Error) error {
	s.metrics.Observe(string(kind), action, metrics.OutcomeError)
	if s.logger != nil {
		s.logger.Error(ctx, "attendance."+action+".failed", err)
	}
	return err
}

func alreadyCheckedIn(workDate string) *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeConflict, "already checked in").
		WithReason(ReasonAlreadyCheckedIn).
		WithDetails(map[string]any{"work_date": workDate})
}

func noOpenSession(workDate string) *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "no open session to check out").
		WithReason(ReasonNoOpenSession).
		WithDetails(map[string]any{"work_date": workDate})
}

func roundMeters(d float64) float64 {
	return math.Round(d*100) / 100
}
