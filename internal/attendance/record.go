package attendance

import (
	"time"

	"github.com/angelmondragon/logbook-backend/pkg/enums"
	"github.com/google/uuid"
)

// State is the per-user, per-day attendance state.
type State string

const (
	StateNoSession   State = "NoSession"
	StateOpenSession State = "OpenSession"
	StateClosed      State = "Closed"
)

// Record is the kind-agnostic view of an office or remote attendance row.
type Record struct {
	ID             uuid.UUID            `json:"id"`
	Kind           enums.AttendanceKind `json:"kind"`
	UserID         uuid.UUID            `json:"user_id"`
	WorkDate       string               `json:"work_date"`
	CheckInAt      time.Time            `json:"check_in_at"`
	CheckOutAt     *time.Time           `json:"check_out_at,omitempty"`
	Latitude       float64              `json:"latitude"`
	Longitude      float64              `json:"longitude"`
	DistanceMeters float64              `json:"distance_meters"`
	ManualReason   *string              `json:"manual_reason,omitempty"`
	CheckOutReason *string              `json:"check_out_reason,omitempty"`
	WorkLocation   string               `json:"work_location,omitempty"`
	IsLate         bool                 `json:"is_late"`
	LateReason     *string              `json:"late_reason,omitempty"`
	State          State                `json:"state"`
}

func (r *Record) deriveState() {
	if r.CheckOutAt == nil {
		r.State = StateOpenSession
		return
	}
	r.State = StateClosed
}

// CheckInRequest carries an office check-in attempt.
type CheckInRequest struct {
	Latitude     float64
	Longitude    float64
	ManualReason string
	LateReason   string
}

// RemoteCheckInRequest carries a remote check-in attempt.
type RemoteCheckInRequest struct {
	Latitude     float64
	Longitude    float64
	WorkLocation string
	LateReason   string
}

// CheckOutRequest optionally explains an office check-out.
type CheckOutRequest struct {
	Reason string
}

// DaySummary is a user's attendance for one work date.
type DaySummary struct {
	Kind     enums.AttendanceKind `json:"kind"`
	WorkDate string               `json:"work_date"`
	State    State                `json:"state"`
	Records  []Record             `json:"records"`
}

func summarize(kind enums.AttendanceKind, workDate string, records []Record) DaySummary {
	state := StateNoSession
	for _, rec := range records {
		if rec.CheckOutAt == nil {
			state = StateOpenSession
			break
		}
		state = StateClosed
	}
	if records == nil {
		records = []Record{}
	}
	return DaySummary{Kind: kind, WorkDate: workDate, State: state, Records: records}
}

// MemberDay is one division member's attendance on a date.
type MemberDay struct {
	UserID   uuid.UUID  `json:"user_id"`
	FullName string     `json:"full_name"`
	Email    string     `json:"email"`
	Office   DaySummary `json:"office"`
	Remote   DaySummary `json:"remote"`
}

// DivisionDay is the attendance sheet of a division for one date.
type DivisionDay struct {
	DivisionID   int64       `json:"division_id"`
	DivisionName string      `json:"division_name"`
	WorkDate     string      `json:"work_date"`
	Members      []MemberDay `json:"members"`
}
