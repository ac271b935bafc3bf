package checkin

import (
	"math"

	"gymbeat/internal/geo"
	"gymbeat/internal/modules/gym"
	"gymbeat/internal/modules/position"
)

// Verify is the admission-control decision for one (position, gym) pair.
// The allowed radius is widened by the sample's accuracy radius so honest
// users near the boundary are not unfairly rejected. Pure and total: a false
// IsValid is a normal outcome, not an error.
func Verify(sample position.Sample, g gym.Gym) VerificationResult {
	maxAllowed := g.AllowedRadiusMeters + sample.AccuracyMeters

	if !g.HasPoint {
		// Missing gym coordinates: distance is unknown, never fabricated.
		return VerificationResult{
			IsValid:          false,
			DistanceMeters:   math.NaN(),
			MaxAllowedMeters: maxAllowed,
		}
	}

	distance := geo.DistanceMeters(sample.Point, g.Point)
	return VerificationResult{
		IsValid:          distance <= maxAllowed,
		DistanceMeters:   distance,
		MaxAllowedMeters: maxAllowed,
	}
}
