package attendance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/logbook-backend/internal/authz"
	"github.com/angelmondragon/logbook-backend/pkg/db/models"
	"github.com/angelmondragon/logbook-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/logbook-backend/pkg/errors"
	"github.com/angelmondragon/logbook-backend/pkg/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const ReasonDivisionNotFound pkgerrors.Reason = "DIVISION_NOT_FOUND"

// DivisionService exposes the per-division attendance sheet to admins.
type DivisionService interface {
	DivisionDay(ctx context.Context, actor *authz.AuthContext, divisionID int64, date string) (*DivisionDay, error)
}

type divisionDirectory interface {
	FindDivision(ctx context.Context, id int64) (*models.Division, error)
	ListByDivision(ctx context.Context, divisionID int64) ([]models.User, error)
}

type divisionService struct {
	records recordStore
	users   divisionDirectory
	policy  Policy
	clock   func() time.Time
	logger  *logger.Logger
}

// DivisionServiceParams bundles the division view dependencies.
type DivisionServiceParams struct {
	Records recordStore
	Users   divisionDirectory
	// Policy supplies the time zone that turns "today" into a work date.
	Policy Policy
	Clock  func() time.Time
	Logger *logger.Logger
}

func NewDivisionService(params DivisionServiceParams) (DivisionService, error) {
	if params.Records == nil {
		return nil, fmt.Errorf("attendance repository is required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("user directory is required")
	}
	if params.Policy.Location == nil {
		return nil, fmt.Errorf("policy location is required")
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &divisionService{
		records: params.Records,
		users:   params.Users,
		policy:  params.Policy,
		clock:   clock,
		logger:  params.Logger,
	}, nil
}

func (s *divisionService) DivisionDay(ctx context.Context, actor *authz.AuthContext, divisionID int64, date string) (*DivisionDay, error) {
	if actor == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}

	division, err := s.users.FindDivision(ctx, divisionID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load division")
		}
		// Unknown divisions are reported as forbidden to non-superadmins.
		if !actor.IsSuperadmin() {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "division access denied")
		}
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "division not found").WithReason(ReasonDivisionNotFound)
	}

	ref := authz.DivisionRef{ID: &division.ID, Name: division.Name}
	decision := authz.Authorize(actor, authz.IsSuperadmin())
	if !decision.Allowed {
		decision = authz.AuthorizeAll(actor,
			authz.RoleIn(enums.RoleAdmin, enums.RoleSuperadmin),
			authz.IsDivisionMember(ref),
		)
	}
	if !decision.Allowed {
		if s.logger != nil {
			logCtx := s.logger.WithDivisionID(ctx, divisionID)
			logCtx = s.logger.WithField(logCtx, "deny_reason", decision.Reason)
			s.logger.Warn(logCtx, "attendance.division.denied")
		}
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, decision.Reason)
	}

	workDate := s.policy.WorkDate(s.clock())
	if strings.TrimSpace(date) != "" {
		parsed, err := parseWorkDate(date, "date")
		if err != nil {
			return nil, err
		}
		workDate = parsed.Format(workDateLayout)
	}

	members, err := s.users.ListByDivision(ctx, divisionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list division members")
	}
	ids := make([]uuid.UUID, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.ID)
	}

	office, err := s.records.ListForUsersOnDate(ctx, enums.AttendanceKindOffice, ids, workDate)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list office records")
	}
	remote, err := s.records.ListForUsersOnDate(ctx, enums.AttendanceKindRemote, ids, workDate)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list remote records")
	}
	officeByUser := groupByUser(office)
	remoteByUser := groupByUser(remote)

	out := &DivisionDay{
		DivisionID:   division.ID,
		DivisionName: division.Name,
		WorkDate:     workDate,
		Members:      make([]MemberDay, 0, len(members)),
	}
	for _, m := range members {
		out.Members = append(out.Members, MemberDay{
			UserID:   m.ID,
			FullName: m.FullName,
			Email:    m.Email,
			Office:   summarize(enums.AttendanceKindOffice, workDate, officeByUser[m.ID]),
			Remote:   summarize(enums.AttendanceKindRemote, workDate, remoteByUser[m.ID]),
		})
	}
	return out, nil
}

func groupByUser(records []Record) map[uuid.UUID][]Record {
	out := make(map[uuid.UUID][]Record)
	for _, rec := range records {
		out[rec.UserID] = append(out[rec.UserID], rec)
	}
	return out
}
