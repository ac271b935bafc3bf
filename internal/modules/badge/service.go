package badge

import (
	"context"
	"time"

	"go.uber.org/zap"

	"gymbeat/internal/types"
)

// Store persists badge awards.
type Store interface {
	SaveAwards(ctx context.Context, awards []Award) error
	AwardedCodes(ctx context.Context, userID types.ID) (map[string]bool, error)
	ListByUser(ctx context.Context, userID types.ID) ([]Award, error)
}

// BackfillQueue holds users whose awards could not be persisted and need
// re-evaluation from the ledger.
type BackfillQueue interface {
	Enqueue(ctx context.Context, userID types.ID) error
	Dequeue(ctx context.Context) (types.ID, bool, error)
}

// StatsSource supplies current attendance stats for backfill re-evaluation.
type StatsSource interface {
	Snapshot(ctx context.Context, userID types.ID) (Snapshot, error)
}

// Service wraps the pure rule engine with award persistence. Persistence is
// best-effort relative to the check-in: a storage failure here never fails
// the check-in, it queues the user for backfill instead.
type Service struct {
	store Store
	queue BackfillQueue
	stats StatsSource
	log   *zap.Logger
	now   func() time.Time
}

func NewService(store Store, queue BackfillQueue, stats StatsSource, log *zap.Logger) *Service {
	return &Service{store: store, queue: queue, stats: stats, log: log, now: time.Now}
}

// OnCheckin evaluates the rules for one append event and persists any new
// awards. The returned awards reflect what the user earned even when
// persistence failed; the backfill path repairs storage later.
func (s *Service) OnCheckin(ctx context.Context, before, after Snapshot, ev Event) []Award {
	awarded, err := s.store.AwardedCodes(ctx, ev.UserID)
	if err != nil {
		s.log.Warn("awarded set unavailable, queueing badge backfill",
			zap.String("user_id", string(ev.UserID)), zap.Error(err))
		s.enqueue(ctx, ev.UserID)
		return nil
	}

	awards := Evaluate(before, after, ev, awarded)
	if len(awards) == 0 {
		return nil
	}

	if err := s.store.SaveAwards(ctx, awards); err != nil {
		s.log.Warn("award persistence failed, queueing badge backfill",
			zap.String("user_id", string(ev.UserID)), zap.Error(err))
		s.enqueue(ctx, ev.UserID)
	}
	return awards
}

// ListAwards returns a user's earned badges.
func (s *Service) ListAwards(ctx context.Context, userID types.ID) ([]Award, error) {
	return s.store.ListByUser(ctx, userID)
}

// Repair re-evaluates the full rule set against current ledger stats and
// writes any award that should exist but does not. Idempotent: the store's
// (user, badge) uniqueness plus the awarded set make double-runs harmless.
func (s *Service) Repair(ctx context.Context, userID types.ID) error {
	snap, err := s.stats.Snapshot(ctx, userID)
	if err != nil {
		return err
	}
	awarded, err := s.store.AwardedCodes(ctx, userID)
	if err != nil {
		return err
	}
	missing := Missing(snap, Event{UserID: userID, At: s.now().UTC()}, awarded)
	if len(missing) == 0 {
		return nil
	}
	return s.store.SaveAwards(ctx, missing)
}

// RunBackfill drains the backfill queue on a fixed cadence until ctx is done.
func (s *Service) RunBackfill(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.drain(ctx)
		}
	}
}

func (s *Service) drain(ctx context.Context) {
	for {
		userID, ok, err := s.queue.Dequeue(ctx)
		if err != nil {
			s.log.Warn("badge backfill dequeue failed", zap.Error(err))
			return
		}
		if !ok {
			return
		}
		if err := s.Repair(ctx, userID); err != nil {
			s.log.Warn("badge backfill repair failed",
				zap.String("user_id", string(userID)), zap.Error(err))
			s.enqueue(ctx, userID)
			return
		}
	}
}

func (s *Service) enqueue(ctx context.Context, userID types.ID) {
	if err := s.queue.Enqueue(ctx, userID); err != nil {
		s.log.Error("badge backfill enqueue failed",
			zap.String("user_id", string(userID)), zap.Error(err))
	}
}
