package checkin

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"gymbeat/internal/types"
)

// Store persists check-in records. Insert reports false when the backing
// store's per-(user, gym, day) uniqueness constraint rejected a counted row,
// which is the cross-instance backstop for the ledger's own serialization.
type Store interface {
	Insert(ctx context.Context, rec Record) (bool, error)
	HasCountedOn(ctx context.Context, userID, gymID types.ID, localDate string) (bool, error)
	ListByUser(ctx context.Context, userID types.ID) ([]Record, error)
	ListRecent(ctx context.Context, userID types.ID, limit int) ([]Record, error)
}

// AppendCommand is one validated check-in to record.
type AppendCommand struct {
	UserID       types.ID
	GymID        types.ID
	CheckedInAt  time.Time
	CrowdLevel   CrowdLevel
	Verification VerificationResult
}

// Ledger is the authoritative, append-only per-user check-in history and the
// sole writer of that history.
type Ledger struct {
	store Store
	loc   *time.Location
	now   func() time.Time
	log   *zap.Logger

	mu    sync.Mutex
	users map[types.ID]*sync.Mutex
}

func NewLedger(store Store, loc *time.Location, log *zap.Logger) *Ledger {
	if loc == nil {
		loc = time.UTC
	}
	return &Ledger{
		store: store,
		loc:   loc,
		now:   time.Now,
		log:   log,
		users: make(map[types.ID]*sync.Mutex),
	}
}

// userLock serializes check-and-append per user. Attempts by different
// users proceed in parallel.
func (l *Ledger) userLock(userID types.ID) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.users[userID]
	if !ok {
		m = &sync.Mutex{}
		l.users[userID] = m
	}
	return m
}

// Append records a verified check-in. A counted record already existing for
// the same (user, gym, calendar day) does not reject the attempt; the new
// record is stored non-counted so re-check-ins never inflate stats. Returns
// the record plus the stats before and after the append, for edge-triggered
// badge evaluation.
func (l *Ledger) Append(ctx context.Context, cmd AppendCommand) (Record, Stats, Stats, error) {
	if !cmd.Verification.IsValid {
		l.log.Error("append called with failed verification",
			zap.String("user_id", string(cmd.UserID)),
			zap.String("gym_id", string(cmd.GymID)),
		)
		return Record{}, Stats{}, Stats{}, ErrInvalidAppend
	}

	lock := l.userLock(cmd.UserID)
	lock.Lock()
	defer lock.Unlock()

	at := cmd.CheckedInAt
	if at.IsZero() {
		at = l.now()
	}
	at = at.UTC()

	rec := Record{
		ID:           types.ID(uuid.NewString()),
		UserID:       cmd.UserID,
		GymID:        cmd.GymID,
		CheckedInAt:  at,
		LocalDate:    DayKey(at, l.loc),
		CrowdLevel:   cmd.CrowdLevel,
		Counted:      true,
		Verification: cmd.Verification,
	}

	dup, err := l.store.HasCountedOn(ctx, cmd.UserID, cmd.GymID, rec.LocalDate)
	if err != nil {
		return Record{}, Stats{}, Stats{}, err
	}
	if dup {
		rec.Counted = false
	}

	history, err := l.store.ListByUser(ctx, cmd.UserID)
	if err != nil {
		return Record{}, Stats{}, Stats{}, err
	}
	before := ComputeStats(history, at, l.loc)

	inserted, err := l.store.Insert(ctx, rec)
	if err != nil {
		return Record{}, Stats{}, Stats{}, err
	}
	if !inserted {
		// Lost a cross-instance race on the uniqueness constraint; keep the
		// record but demote it to non-counted.
		rec.Counted = false
		if _, err := l.store.Insert(ctx, rec); err != nil {
			return Record{}, Stats{}, Stats{}, err
		}
	}

	after := ComputeStats(append(history, rec), at, l.loc)
	return rec, before, after, nil
}

// GetStats recomputes the derived attendance stats for a user.
func (l *Ledger) GetStats(ctx context.Context, userID types.ID) (Stats, error) {
	history, err := l.store.ListByUser(ctx, userID)
	if err != nil {
		return Stats{}, err
	}
	return ComputeStats(history, l.now(), l.loc), nil
}

// History returns the most recent check-ins, newest first.
func (l *Ledger) History(ctx context.Context, userID types.ID, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	return l.store.ListRecent(ctx, userID, limit)
}
