// Package geotest builds coordinates at known distances for geofence tests.
package geotest

import (
	"math"

	"github.com/angelmondragon/logbook-backend/internal/geo"
)

// Offset returns the point reached by travelling distanceMeters from p along
// the given initial bearing (degrees clockwise from north).
func Offset(p geo.Point, distanceMeters, bearingDegrees float64) geo.Point {
	delta := distanceMeters / geo.EarthRadiusMeters
	theta := radians(bearingDegrees)
	phi1 := radians(p.Lat)
	lambda1 := radians(p.Lon)

	phi2 := math.Asin(math.Sin(phi1)*math.Cos(delta) + math.Cos(phi1)*math.Sin(delta)*math.Cos(theta))
	lambda2 := lambda1 + math.Atan2(
		math.Sin(theta)*math.Sin(delta)*math.Cos(phi1),
		math.Cos(delta)-math.Sin(phi1)*math.Sin(phi2),
	)
	lon := math.Mod(degrees(lambda2)+540, 360) - 180
	return geo.Point{Lat: degrees(phi2), Lon: lon}
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

func degrees(rad float64) float64 { return rad * 180 / math.Pi }
