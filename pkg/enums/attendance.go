package enums

import "fmt"

// AttendanceKind distinguishes office attendance from remote check-ins.
type AttendanceKind string

const (
	AttendanceKindOffice AttendanceKind = "office"
	AttendanceKindRemote AttendanceKind = "remote"
)

// String implements fmt.Stringer.
func (k AttendanceKind) String() string {
	return string(k)
}

// ParseAttendanceKind converts raw input into an AttendanceKind.
func ParseAttendanceKind(value string) (AttendanceKind, error) {
	switch AttendanceKind(value) {
	case AttendanceKindOffice, AttendanceKindRemote:
		return AttendanceKind(value), nil
	}
	return "", fmt.Errorf("invalid attendance kind %q", value)
}
