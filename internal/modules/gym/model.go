// Package gym exposes the gym directory read model and the proximity index
// used for "gyms near me" discovery.
package gym

import (
	"errors"

	"gymbeat/internal/types"
)

var (
	// ErrNotFound means the gym does not exist in the primary directory.
	ErrNotFound = errors.New("gym not found")
	// ErrSearchUnavailable means every proximity source failed.
	ErrSearchUnavailable = errors.New("proximity search unavailable")
)

// Gym is long-lived reference data owned by the gym directory; this engine
// treats it as read-only.
type Gym struct {
	ID    types.ID
	Name  string
	Point types.Point
	// HasPoint is false for directory rows with missing coordinates. Such
	// gyms surface with an unknown distance and can never pass verification.
	HasPoint            bool
	AllowedRadiusMeters float64
}

// Candidate is one proximity search result.
type Candidate struct {
	Gym                Gym
	DistanceMeters     float64
	DistanceKnown      bool
	WalkingTimeMinutes int
	// Fallback marks candidates served from a degraded source (Redis cache
	// or Places discovery). Fallback data is display-only.
	Fallback bool
}

const (
	DefaultSearchRadiusKm = 2.0
	DefaultSearchLimit    = 20
)
