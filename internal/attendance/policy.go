package attendance

import (
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/logbook-backend/internal/geo"
	"github.com/angelmondragon/logbook-backend/pkg/config"
	"github.com/angelmondragon/logbook-backend/pkg/enums"
)

const workDateLayout = "2006-01-02"

// Policy holds the geofence and lateness rules for one attendance kind.
type Policy struct {
	Kind  enums.AttendanceKind
	Fence geo.Fence
	// Cutoff is the time of day after which a check-in is late.
	Cutoff   time.Duration
	Location *time.Location
	// AllowManualOverride lets a reason stand in for being inside the fence.
	AllowManualOverride bool
	// RequireWorkLocation demands a free-text work location label.
	RequireWorkLocation bool
}

// PoliciesFromConfig builds the office and remote policies. A remote anchor
// left at (0,0) means unset and falls back to the office anchor.
func PoliciesFromConfig(cfg config.AttendanceConfig) (office Policy, remote Policy, err error) {
	cutoff, err := cfg.Cutoff()
	if err != nil {
		return Policy{}, Policy{}, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return Policy{}, Policy{}, err
	}

	office = Policy{
		Kind: enums.AttendanceKindOffice,
		Fence: geo.Fence{
			Center:       geo.Point{Lat: cfg.OfficeLat, Lon: cfg.OfficeLon},
			RadiusMeters: cfg.OfficeRadiusMeters,
		},
		Cutoff:              cutoff,
		Location:            loc,
		AllowManualOverride: true,
	}

	remoteLat, remoteLon := cfg.RemoteLat, cfg.RemoteLon
	if remoteLat == 0 && remoteLon == 0 {
		remoteLat, remoteLon = cfg.OfficeLat, cfg.OfficeLon
	}
	remote = Policy{
		Kind: enums.AttendanceKindRemote,
		Fence: geo.Fence{
			Center:       geo.Point{Lat: remoteLat, Lon: remoteLon},
			RadiusMeters: cfg.RemoteRadiusMeters,
		},
		Cutoff:              cutoff,
		Location:            loc,
		RequireWorkLocation: true,
	}
	return office, remote, nil
}

func (p Policy) validate() error {
	if p.Kind == "" {
		return fmt.Errorf("policy kind is required")
	}
	if p.Location == nil {
		return fmt.Errorf("%s policy: location is required", p.Kind)
	}
	if p.Fence.RadiusMeters <= 0 {
		return fmt.Errorf("%s policy: radius must be positive", p.Kind)
	}
	if !p.Fence.Center.Valid() {
		return fmt.Errorf("%s policy: invalid anchor", p.Kind)
	}
	return nil
}

// WorkDate returns the calendar day of t in the policy's location.
func (p Policy) WorkDate(t time.Time) string {
	return t.In(p.Location).Format(workDateLayout)
}

// IsLate reports whether t's local time of day is strictly after the cutoff.
func (p Policy) IsLate(t time.Time) bool {
	local := t.In(p.Location)
	sinceMidnight := time.Duration(local.Hour())*time.Hour +
		time.Duration(local.Minute())*time.Minute +
		time.Duration(local.Second())*time.Second +
		time.Duration(local.Nanosecond())
	return sinceMidnight > p.Cutoff
}

// CutoffLabel renders the cutoff as HH:MM.
func (p Policy) CutoffLabel() string {
	return fmt.Sprintf("%02d:%02d", int(p.Cutoff.Hours()), int(p.Cutoff.Minutes())%60)
}

func trimmedPtr(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
