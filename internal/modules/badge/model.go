// Package badge evaluates gamification rules against attendance stats and
// persists the resulting awards.
package badge

import (
	"time"

	"gymbeat/internal/types"
)

// Rarity tiers drive how the surrounding app renders a badge.
type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
)

// Badge is a static catalog entry.
type Badge struct {
	Code   string
	Name   string
	Icon   string
	Rarity Rarity
}

// Award records that a user earned a badge. A given (user, badge) pair is
// awarded at most once.
type Award struct {
	UserID    types.ID
	BadgeCode string
	EarnedAt  time.Time
}

// Snapshot is the attendance state a rule predicate sees. It mirrors the
// ledger's derived stats without importing the ledger, keeping the rule
// engine a pure leaf.
type Snapshot struct {
	TotalCheckins     int
	UniqueGymCount    int
	CurrentStreakDays int
	ThisWeekCount     int
}

// Event is the check-in that triggered an evaluation.
type Event struct {
	UserID types.ID
	GymID  types.ID
	At     time.Time
}
