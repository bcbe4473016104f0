// Package geo implements the proximity check used by the session state
// machine. All functions are pure so the transition logic stays testable
// without any collaborator.
package geo

import (
	"math"

	"gymkapp-server/internal/models"
)

// earthRadiusMeters is the mean Earth radius used for great-circle distances.
const earthRadiusMeters = 6371000.0

// Distance returns the great-circle distance between two points in meters,
// computed with the haversine formula.
func Distance(a, b models.GeoPoint) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLong := (b.Longitude - a.Longitude) * math.Pi / 180

	sinLat := math.Sin(dLat / 2)
	sinLong := math.Sin(dLong / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLong*sinLong

	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(h))
}

// IsArrived reports whether the sample lies within radiusMeters of the target.
func IsArrived(sample models.GeoPoint, target models.GeoPoint, radiusMeters float64) bool {
	return Distance(sample, target) <= radiusMeters
}
