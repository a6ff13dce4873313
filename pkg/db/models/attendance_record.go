package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AttendanceRecord is one office check-in, optionally closed by a check-out.
// At most one row per (user_id, work_date) may have a null check_out_at.
type AttendanceRecord struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey"`
	UserID         uuid.UUID  `gorm:"type:uuid;column:user_id;not null;index:ux_attendance_open_session,unique,where:check_out_at IS NULL"`
	WorkDate       string     `gorm:"column:work_date;type:text;not null;index:ux_attendance_open_session,unique;index:idx_attendance_work_date"`
	CheckInAt      time.Time  `gorm:"column:check_in_at;not null"`
	CheckOutAt     *time.Time `gorm:"column:check_out_at"`
	Latitude       float64    `gorm:"column:latitude;not null"`
	Longitude      float64    `gorm:"column:longitude;not null"`
	DistanceMeters float64    `gorm:"column:distance_meters;not null"`
	ManualReason   *string    `gorm:"column:manual_reason"`
	CheckOutReason *string    `gorm:"column:check_out_reason"`
	IsLate         bool       `gorm:"column:is_late;not null;default:false"`
	LateReason     *string    `gorm:"column:late_reason"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (r *AttendanceRecord) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// RemoteCheckinRecord mirrors AttendanceRecord for off-site work. It carries
// a work location label instead of a manual geofence override.
type RemoteCheckinRecord struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey"`
	UserID         uuid.UUID  `gorm:"type:uuid;column:user_id;not null;index:ux_remote_checkin_open_session,unique,where:check_out_at IS NULL"`
	WorkDate       string     `gorm:"column:work_date;type:text;not null;index:ux_remote_checkin_open_session,unique;index:idx_remote_checkin_work_date"`
	CheckInAt      time.Time  `gorm:"column:check_in_at;not null"`
	CheckOutAt     *time.Time `gorm:"column:check_out_at"`
	Latitude       float64    `gorm:"column:latitude;not null"`
	Longitude      float64    `gorm:"column:longitude;not null"`
	DistanceMeters float64    `gorm:"column:distance_meters;not null"`
	WorkLocation   string     `gorm:"column:work_location;type:text;not null"`
	IsLate         bool       `gorm:"column:is_late;not null;default:false"`
	LateReason     *string    `gorm:"column:late_reason"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (r *RemoteCheckinRecord) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
