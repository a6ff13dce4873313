package geo_test

import (
	"math"
	"testing"

	"github.com/angelmondragon/logbook-backend/internal/geo"
	"github.com/angelmondragon/logbook-backend/internal/geo/geotest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var samplePoints = []geo.Point{
	{Lat: -6.2088, Lon: 106.8456},
	{Lat: 51.5074, Lon: -0.1278},
	{Lat: 0, Lon: 0},
	{Lat: 89.9, Lon: 179.9},
	{Lat: -33.8688, Lon: 151.2093},
	{Lat: 40.7128, Lon: -74.0060},
}

func TestDistanceIsSymmetric(t *testing.T) {
	for _, a := range samplePoints {
		for _, b := range samplePoints {
			ab := geo.Distance(a, b)
			ba := geo.Distance(b, a)
			assert.InDelta(t, ab, ba, 1e-6, "distance %v <-> %v", a, b)
		}
	}
}

func TestDistanceToSelfIsZero(t *testing.T) {
	for _, p := range samplePoints {
		assert.Equal(t, 0.0, geo.DistanceMeters(p.Lat, p.Lon, p.Lat, p.Lon))
	}
}

func TestDistanceKnownValue(t *testing.T) {
	// London to Paris is roughly 343.5 km on a 6371 km sphere.
	d := geo.DistanceMeters(51.5074, -0.1278, 48.8566, 2.3522)
	assert.InDelta(t, 343_500, d, 1_500)

	// One degree of latitude.
	assert.InDelta(t, 6371000*math.Pi/180, geo.DistanceMeters(0, 0, 1, 0), 1e-6)
}

func TestFenceContainsBoundary(t *testing.T) {
	center := geo.Point{Lat: -6.2088, Lon: 106.8456}
	fence := geo.Fence{Center: center, RadiusMeters: 400}

	inside, d := fence.Contains(geotest.Offset(center, 399, 90))
	require.True(t, inside)
	assert.InDelta(t, 399, d, 1e-3)

	outside, d := fence.Contains(geotest.Offset(center, 401, 90))
	require.False(t, outside)
	assert.InDelta(t, 401, d, 1e-3)
}

func TestPointValid(t *testing.T) {
	assert.True(t, geo.Point{Lat: 90, Lon: -180}.Valid())
	assert.False(t, geo.Point{Lat: 90.1, Lon: 0}.Valid())
	assert.False(t, geo.Point{Lat: 0, Lon: 180.5}.Valid())
	assert.False(t, geo.Point{Lat: math.NaN(), Lon: 0}.Valid())
	assert.False(t, geo.Point{Lat: 0, Lon: math.Inf(1)}.Valid())
}
