// Package position acquires a trustworthy device position from an external
// location provider, bounded by an accuracy policy and a time budget.
package position

import (
	"context"
	"errors"
	"time"

	"gymbeat/internal/types"
)

var (
	// ErrPermissionDenied means the user declined location access.
	ErrPermissionDenied = errors.New("location permission denied")
	// ErrAccuracyUnattainable means every fix exceeded the required accuracy
	// before the sample/time budget ran out.
	ErrAccuracyUnattainable = errors.New("required accuracy unattainable")
	// ErrProviderUnavailable means the provider produced no fix at all.
	ErrProviderUnavailable = errors.New("location provider unavailable")
)

// Fix is one raw reading from the location provider.
type Fix struct {
	Point          types.Point
	AccuracyMeters float64
}

// FixProvider is the device/location collaborator. Implementations block
// until a fix is available or ctx is done.
type FixProvider interface {
	CurrentFix(ctx context.Context, highAccuracy bool) (Fix, error)
}

// Sample is the acquired position handed to verification. Immutable; owned
// by the requesting attempt and never persisted.
type Sample struct {
	Point          types.Point
	AccuracyMeters float64
	CapturedAt     time.Time
}

// Config bounds one acquisition.
type Config struct {
	MaxSamples             int
	RequiredAccuracyMeters float64
	Timeout                time.Duration
	EnableHighAccuracy     bool
}

const (
	DefaultMaxSamples             = 3
	DefaultRequiredAccuracyMeters = 50.0
	DefaultTimeout                = 15 * time.Second
)

func (c Config) withDefaults() Config {
	if c.MaxSamples < 1 {
		c.MaxSamples = DefaultMaxSamples
	}
	if c.RequiredAccuracyMeters <= 0 {
		c.RequiredAccuracyMeters = DefaultRequiredAccuracyMeters
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return c
}
