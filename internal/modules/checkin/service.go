package checkin

import (
	"context"
	"time"

	"go.uber.org/zap"

	"gymbeat/internal/modules/badge"
	"gymbeat/internal/modules/gym"
	"gymbeat/internal/modules/position"
	"gymbeat/internal/types"
)

// GymResolver supplies the gym a check-in attempt verifies against. Both
// lookups resolve from the primary directory; degraded sources never feed
// verification.
type GymResolver interface {
	GetByID(ctx context.Context, id types.ID) (gym.Gym, error)
	Nearest(ctx context.Context, center types.Point, radiusKm float64) (gym.Gym, error)
}

// BadgeAwarder evaluates gamification rules after a successful append.
type BadgeAwarder interface {
	OnCheckin(ctx context.Context, before, after badge.Snapshot, ev badge.Event) []badge.Award
}

// AttemptCommand is one user-initiated check-in request. GymID is optional;
// when empty the nearest directory gym is used.
type AttemptCommand struct {
	UserID     types.ID
	GymID      types.ID
	Position   position.Sample
	CrowdLevel CrowdLevel
}

// AttemptResult is returned to the caller on success.
type AttemptResult struct {
	CheckinID    types.ID
	GymID        types.ID
	Counted      bool
	Verification VerificationResult
	BadgesEarned []badge.Award
}

// Service is the check-in orchestrator: it composes gym lookup,
// verification, ledger append and badge evaluation into one attempt, owning
// the transactional boundary between them. It holds no per-attempt state;
// all persistent state lives in the ledger.
type Service struct {
	gyms             GymResolver
	ledger           *Ledger
	badges           BadgeAwarder
	requiredAccuracy float64
	searchRadiusKm   float64
	infraTimeout     time.Duration
	log              *zap.Logger
}

func NewService(gyms GymResolver, ledger *Ledger, badges BadgeAwarder, requiredAccuracyMeters, searchRadiusKm float64, infraTimeout time.Duration, log *zap.Logger) *Service {
	if requiredAccuracyMeters <= 0 {
		requiredAccuracyMeters = position.DefaultRequiredAccuracyMeters
	}
	if searchRadiusKm <= 0 {
		searchRadiusKm = gym.DefaultSearchRadiusKm
	}
	if infraTimeout <= 0 {
		infraTimeout = 5 * time.Second
	}
	return &Service{
		gyms:             gyms,
		ledger:           ledger,
		badges:           badges,
		requiredAccuracy: requiredAccuracyMeters,
		searchRadiusKm:   searchRadiusKm,
		infraTimeout:     infraTimeout,
		log:              log,
	}
}

// AttemptCheckin runs one attempt through the verifying/appending/evaluating
// phases. The caller already holds an acquired position sample, so the
// attempt enters at Verifying. Cancellation is honored up to the append;
// once appending starts the flow runs to completion so a record is never
// partially visible.
func (s *Service) AttemptCheckin(ctx context.Context, cmd AttemptCommand) (AttemptResult, error) {
	if cmd.UserID == "" || !cmd.CrowdLevel.Valid() || cmd.Position.AccuracyMeters < 0 {
		return AttemptResult{}, ErrBadRequest
	}
	// The accuracy radius widens the allowed radius during verification, so
	// a sample looser than the policy threshold is rejected outright rather
	// than letting a huge claimed accuracy admit far-away positions.
	if cmd.Position.AccuracyMeters > s.requiredAccuracy {
		return AttemptResult{}, position.ErrAccuracyUnattainable
	}

	phase := PhaseVerifying

	lookupCtx, cancel := context.WithTimeout(ctx, s.infraTimeout)
	defer cancel()

	g, err := s.resolveGym(lookupCtx, cmd)
	if err != nil {
		return AttemptResult{}, err
	}

	verification := Verify(cmd.Position, g)
	if !verification.IsValid {
		return AttemptResult{}, &OutOfRangeError{
			DistanceMeters:   verification.DistanceMeters,
			MaxAllowedMeters: verification.MaxAllowedMeters,
		}
	}

	if err := ctx.Err(); err != nil {
		// Last cancellation point; past here the attempt must finish.
		return AttemptResult{}, err
	}
	phase = s.advance(phase, PhaseAppending, cmd)

	appendCtx, cancelAppend := context.WithTimeout(context.WithoutCancel(ctx), s.infraTimeout)
	defer cancelAppend()

	rec, before, after, err := s.ledger.Append(appendCtx, AppendCommand{
		UserID:       cmd.UserID,
		GymID:        g.ID,
		CheckedInAt:  cmd.Position.CapturedAt,
		CrowdLevel:   cmd.CrowdLevel,
		Verification: verification,
	})
	if err != nil {
		return AttemptResult{}, err
	}
	phase = s.advance(phase, PhaseEvaluating, cmd)

	var awards []badge.Award
	if rec.Counted {
		awards = s.badges.OnCheckin(appendCtx, snapshot(before), snapshot(after), badge.Event{
			UserID: rec.UserID,
			GymID:  rec.GymID,
			At:     rec.CheckedInAt,
		})
	}
	s.advance(phase, PhaseDone, cmd)

	s.log.Info("check-in recorded",
		zap.String("user_id", string(rec.UserID)),
		zap.String("gym_id", string(rec.GymID)),
		zap.Bool("counted", rec.Counted),
		zap.Float64("distance_m", verification.DistanceMeters),
		zap.Int("badges_earned", len(awards)),
	)

	return AttemptResult{
		CheckinID:    rec.ID,
		GymID:        rec.GymID,
		Counted:      rec.Counted,
		Verification: verification,
		BadgesEarned: awards,
	}, nil
}

// Stats reports the user's attendance aggregates.
func (s *Service) Stats(ctx context.Context, userID types.ID) (Stats, error) {
	return s.ledger.GetStats(ctx, userID)
}

// History returns the user's most recent check-ins, newest first.
func (s *Service) History(ctx context.Context, userID types.ID, limit int) ([]Record, error) {
	return s.ledger.History(ctx, userID, limit)
}

func (s *Service) resolveGym(ctx context.Context, cmd AttemptCommand) (gym.Gym, error) {
	if cmd.GymID != "" {
		return s.gyms.GetByID(ctx, cmd.GymID)
	}
	return s.gyms.Nearest(ctx, cmd.Position.Point, s.searchRadiusKm)
}

// advance enforces the attempt transition table. An illegal transition is a
// programming error and is logged loudly rather than surfaced to the user.
func (s *Service) advance(from, to Phase, cmd AttemptCommand) Phase {
	if !CanTransition(from, to) {
		s.log.Error("illegal attempt phase transition",
			zap.String("from", string(from)),
			zap.String("to", string(to)),
			zap.String("user_id", string(cmd.UserID)),
		)
	}
	return to
}

func snapshot(s Stats) badge.Snapshot {
	return badge.Snapshot{
		TotalCheckins:     s.TotalCheckins,
		UniqueGymCount:    s.UniqueGymCount,
		CurrentStreakDays: s.CurrentStreakDays,
		ThisWeekCount:     s.ThisWeekCount,
	}
}
