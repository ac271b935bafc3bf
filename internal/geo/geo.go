// Package geo contains pure geographic computation helpers.
package geo

import (
	"math"

	"gymbeat/internal/types"
)

const earthRadiusMeters = 6371000.0

// walkingSpeedMetersPerMin is the average walking speed used for rough
// "minutes away" estimates shown next to search results.
const walkingSpeedMetersPerMin = 80.0

// DistanceMeters returns the great-circle distance in meters between two
// points specified in decimal degrees (haversine, spherical Earth).
func DistanceMeters(a, b types.Point) float64 {
	dLat := degreesToRadians(b.Lat - a.Lat)
	dLng := degreesToRadians(b.Lng - a.Lng)

	rLat1 := degreesToRadians(a.Lat)
	rLat2 := degreesToRadians(b.Lat)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusMeters * c
}

// WalkingTimeMinutes estimates walking time for a distance in meters,
// rounded to the nearest minute and never negative.
func WalkingTimeMinutes(distanceMeters float64) int {
	if distanceMeters <= 0 || math.IsNaN(distanceMeters) {
		return 0
	}
	return int(math.Round(distanceMeters / walkingSpeedMetersPerMin))
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

// SortByDistance performs an insertion sort (fine for small N) on any slice
// where each element exposes a distance via the accessor function.
func SortByDistance[T any](items []T, dist func(T) float64) {
	for i := 1; i < len(items); i++ {
		key := items[i]
		j := i - 1
		for j >= 0 && dist(items[j]) > dist(key) {
			items[j+1] = items[j]
			j--
		}
		items[j+1] = key
	}
}
