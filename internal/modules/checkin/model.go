// Package checkin implements the check-in verification engine: the
// admission-control verifier, the attendance ledger with its derived stats,
// and the orchestrator that composes one attempt end to end.
package checkin

import (
	"errors"
	"fmt"
	"time"

	"gymbeat/internal/types"
)

// CrowdLevel is the member-reported busyness at check-in time.
type CrowdLevel string

const (
	CrowdEmpty   CrowdLevel = "empty"
	CrowdNormal  CrowdLevel = "normal"
	CrowdCrowded CrowdLevel = "crowded"
)

func (c CrowdLevel) Valid() bool {
	switch c {
	case CrowdEmpty, CrowdNormal, CrowdCrowded:
		return true
	}
	return false
}

// VerificationResult is the admission decision for one attempt. It is
// returned to the caller on both acceptance and rejection so the UI can show
// the concrete numbers.
type VerificationResult struct {
	IsValid          bool
	DistanceMeters   float64
	MaxAllowedMeters float64
}

// Record is one appended check-in. Never mutated after creation. A same-day
// duplicate for the same gym is stored with Counted=false and does not move
// stats.
type Record struct {
	ID           types.ID
	UserID       types.ID
	GymID        types.ID
	CheckedInAt  time.Time // UTC
	LocalDate    string    // calendar day in the ledger's zone, "2006-01-02"
	CrowdLevel   CrowdLevel
	Counted      bool
	Verification VerificationResult
}

// Stats are derived from the counted record set; they are recomputed on
// every append and must always equal a full recomputation.
type Stats struct {
	TotalCheckins     int
	UniqueGymCount    int
	CurrentStreakDays int
	ThisWeekCount     int
}

var (
	// ErrInvalidAppend marks a contract violation: appending a failed
	// verification. Callers must treat it as a programming error.
	ErrInvalidAppend = errors.New("append requires a valid verification")
	// ErrOutOfRange is the expected business rejection for an attempt too
	// far from the gym. Wrapped by OutOfRangeError, which carries the
	// numbers to show the user.
	ErrOutOfRange = errors.New("position out of gym range")
	// ErrBadRequest covers malformed attempt commands.
	ErrBadRequest = errors.New("bad request")
)

// OutOfRangeError reports the computed distance and allowed threshold so
// rejections are transparent rather than a generic failure.
type OutOfRangeError struct {
	DistanceMeters   float64
	MaxAllowedMeters float64
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("position out of gym range: %.0fm away, max allowed %.0fm", e.DistanceMeters, e.MaxAllowedMeters)
}

func (e *OutOfRangeError) Unwrap() error { return ErrOutOfRange }

// Phase models the lifecycle of one check-in attempt.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseAcquiring  Phase = "acquiring"
	PhaseVerifying  Phase = "verifying"
	PhaseAppending  Phase = "appending"
	PhaseEvaluating Phase = "evaluating"
	PhaseDone       Phase = "done"
	PhaseFailed     Phase = "failed"
)

// AllowedTransitions represents the attempt state flow as code. Failed is
// reachable from every non-terminal phase; once appending begins the only
// failure mode left is infrastructure.
var AllowedTransitions = map[Phase][]Phase{
	PhaseIdle:       {PhaseAcquiring, PhaseVerifying, PhaseFailed},
	PhaseAcquiring:  {PhaseVerifying, PhaseFailed},
	PhaseVerifying:  {PhaseAppending, PhaseFailed},
	PhaseAppending:  {PhaseEvaluating, PhaseFailed},
	PhaseEvaluating: {PhaseDone, PhaseFailed},
}

func CanTransition(from, to Phase) bool {
	next, ok := AllowedTransitions[from]
	if !ok {
		return false
	}
	for _, p := range next {
		if p == to {
			return true
		}
	}
	return false
}
