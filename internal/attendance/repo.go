package attendance

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/logbook-backend/pkg/db/models"
	"github.com/angelmondragon/logbook-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository persists office and remote attendance records. Both kinds share
// one shape, so every method takes the kind and picks the table from it.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds the attendance repository to a GORM handle.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Partial unique indexes that allow one open session per user and work date.
const (
	officeOpenSessionIndex = "ux_attendance_open_session"
	remoteOpenSessionIndex = "ux_remote_checkin_open_session"
)

func openSessionIndex(kind enums.AttendanceKind) string {
	if kind == enums.AttendanceKindRemote {
		return remoteOpenSessionIndex
	}
	return officeOpenSessionIndex
}

func tableFor(kind enums.AttendanceKind) (any, error) {
	switch kind {
	case enums.AttendanceKindOffice:
		return &models.AttendanceRecord{}, nil
	case enums.AttendanceKindRemote:
		return &models.RemoteCheckinRecord{}, nil
	default:
		return nil, fmt.Errorf("unknown attendance kind %q", kind)
	}
}

// FindOpen returns the most recent open record for the user on workDate.
func (r *Repository) FindOpen(ctx context.Context, kind enums.AttendanceKind, userID uuid.UUID, workDate string) (*Record, error) {
	records, err := r.list(ctx, kind, func(q *gorm.DB) *gorm.DB {
		return q.Where("user_id = ? AND work_date = ? AND check_out_at IS NULL", userID, workDate).
			Order("check_in_at DESC").
			Limit(1)
	})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &records[0], nil
}

// Insert writes a new open record. A concurrent open session for the same
// user and day surfaces as a unique violation from the storage layer.
func (r *Repository) Insert(ctx context.Context, rec *Record) error {
	switch rec.Kind {
	case enums.AttendanceKindOffice:
		row := officeRow(rec)
		if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
			return err
		}
		*rec = fromOffice(row)
	case enums.AttendanceKindRemote:
		row := remoteRow(rec)
		if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
			return err
		}
		*rec = fromRemote(row)
	default:
		return fmt.Errorf("unknown attendance kind %q", rec.Kind)
	}
	return nil
}

// CloseOpen stamps the check-out on an open record. The update only matches
// while check_out_at is still null, so a record is closed at most once.
func (r *Repository) CloseOpen(ctx context.Context, kind enums.AttendanceKind, id uuid.UUID, at time.Time, reason *string) error {
	model, err := tableFor(kind)
	if err != nil {
		return err
	}
	cols := map[string]any{
		"check_out_at": at,
		"updated_at":   at,
	}
	if kind == enums.AttendanceKindOffice {
		cols["check_out_reason"] = reason
	}
	res := r.db.WithContext(ctx).
		Model(model).
		Where("id = ? AND check_out_at IS NULL", id).
		UpdateColumns(cols)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// FindByID loads one record of the given kind.
func (r *Repository) FindByID(ctx context.Context, kind enums.AttendanceKind, id uuid.UUID) (*Record, error) {
	records, err := r.list(ctx, kind, func(q *gorm.DB) *gorm.DB {
		return q.Where("id = ?", id).Limit(1)
	})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &records[0], nil
}

// ListForUser returns the user's records with work dates in [from, to].
func (r *Repository) ListForUser(ctx context.Context, kind enums.AttendanceKind, userID uuid.UUID, from, to string) ([]Record, error) {
	return r.list(ctx, kind, func(q *gorm.DB) *gorm.DB {
		return q.Where("user_id = ? AND work_date >= ? AND work_date <= ?", userID, from, to).
			Order("work_date ASC").
			Order("check_in_at ASC")
	})
}

// ListForUsersOnDate returns every record of the given users on one work date.
func (r *Repository) ListForUsersOnDate(ctx context.Context, kind enums.AttendanceKind, userIDs []uuid.UUID, workDate string) ([]Record, error) {
	if len(userIDs) == 0 {
		return []Record{}, nil
	}
	return r.list(ctx, kind, func(q *gorm.DB) *gorm.DB {
		return q.Where("user_id IN ? AND work_date = ?", userIDs, workDate).
			Order("check_in_at ASC")
	})
}

func (r *Repository) list(ctx context.Context, kind enums.AttendanceKind, scope func(*gorm.DB) *gorm.DB) ([]Record, error) {
	switch kind {
	case enums.AttendanceKindOffice:
		var rows []models.AttendanceRecord
		if err := scope(r.db.WithContext(ctx)).Find(&rows).Error; err != nil {
			return nil, err
		}
		out := make([]Record, 0, len(rows))
		for i := range rows {
			out = append(out, fromOffice(&rows[i]))
		}
		return out, nil
	case enums.AttendanceKindRemote:
		var rows []models.RemoteCheckinRecord
		if err := scope(r.db.WithContext(ctx)).Find(&rows).Error; err != nil {
			return nil, err
		}
		out := make([]Record, 0, len(rows))
		for i := range rows {
			out = append(out, fromRemote(&rows[i]))
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unknown attendance kind %q", kind)
	}
}

func officeRow(rec *Record) *models.AttendanceRecord {
	return &models.AttendanceRecord{
		ID:             rec.ID,
		UserID:         rec.UserID,
		WorkDate:       rec.WorkDate,
		CheckInAt:      rec.CheckInAt,
		CheckOutAt:     rec.CheckOutAt,
		Latitude:       rec.Latitude,
		Longitude:      rec.Longitude,
		DistanceMeters: rec.DistanceMeters,
		ManualReason:   rec.ManualReason,
		CheckOutReason: rec.CheckOutReason,
		IsLate:         rec.IsLate,
		LateReason:     rec.LateReason,
	}
}

func remoteRow(rec *Record) *models.RemoteCheckinRecord {
	return &models.RemoteCheckinRecord{
		ID:             rec.ID,
		UserID:         rec.UserID,
		WorkDate:       rec.WorkDate,
		CheckInAt:      rec.CheckInAt,
		CheckOutAt:     rec.CheckOutAt,
		Latitude:       rec.Latitude,
		Longitude:      rec.Longitude,
		DistanceMeters: rec.DistanceMeters,
		WorkLocation:   rec.WorkLocation,
		IsLate:         rec.IsLate,
		LateReason:     rec.LateReason,
	}
}

func fromOffice(row *models.AttendanceRecord) Record {
	rec := Record{
		ID:             row.ID,
		Kind:           enums.AttendanceKindOffice,
		UserID:         row.UserID,
		WorkDate:       row.WorkDate,
		CheckInAt:      row.CheckInAt.UTC(),
		CheckOutAt:     utcPtr(row.CheckOutAt),
		Latitude:       row.Latitude,
		Longitude:      row.Longitude,
		DistanceMeters: row.DistanceMeters,
		ManualReason:   row.ManualReason,
		CheckOutReason: row.CheckOutReason,
		IsLate:         row.IsLate,
		LateReason:     row.LateReason,
	}
	rec.deriveState()
	return rec
}

func fromRemote(row *models.RemoteCheckinRecord) Record {
	rec := Record{
		ID:             row.ID,
		Kind:           enums.AttendanceKindRemote,
		UserID:         row.UserID,
		WorkDate:       row.WorkDate,
		CheckInAt:      row.CheckInAt.UTC(),
		CheckOutAt:     utcPtr(row.CheckOutAt),
		Latitude:       row.Latitude,
		Longitude:      row.Longitude,
		DistanceMeters: row.DistanceMeters,
		WorkLocation:   row.WorkLocation,
		IsLate:         row.IsLate,
		LateReason:     row.LateReason,
	}
	rec.deriveState()
	return rec
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
