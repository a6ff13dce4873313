package geotest

import (
	"testing"

	"github.com/angelmondragon/logbook-backend/internal/geo"
	"github.com/stretchr/testify/assert"
)

func TestOffsetLandsAtRequestedDistance(t *testing.T) {
	origin := geo.Point{Lat: -6.2088, Lon: 106.8456}
	for _, bearing := range []float64{0, 45, 90, 180, 270} {
		for _, meters := range []float64{1, 399, 401, 50_000} {
			target := Offset(origin, meters, bearing)
			assert.InDelta(t, meters, geo.Distance(origin, target), 1e-3, "bearing %v distance %v", bearing, meters)
		}
	}
}

func TestOffsetWrapsLongitude(t *testing.T) {
	target := Offset(geo.Point{Lat: 0, Lon: 179.999}, 1000, 90)
	assert.True(t, target.Valid(), "got %+v", target)
	assert.Less(t, target.Lon, 0.0)
}
