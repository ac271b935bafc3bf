package checkin

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"gymbeat/internal/types"
)

// connectTestDB returns a pool or skips when no test database is configured.
func connectTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("GYMBEAT_TEST_DSN")
	if dsn == "" {
		t.Skip("GYMBEAT_TEST_DSN not set")
	}
	db, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(db.Close)
	return db
}

func seedGym(t *testing.T, db *pgxpool.Pool, id string) {
	t.Helper()
	ctx := context.Background()
	_, err := db.Exec(ctx, `
		INSERT INTO gyms (id, name, lat, lng, allowed_radius_m)
		VALUES ($1, 'Test Gym', 35.0, 139.0, 100)
		ON CONFLICT (id) DO NOTHING`, id)
	if err != nil {
		t.Fatalf("seed gym: %v", err)
	}
	t.Cleanup(func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_, _ = db.Exec(cleanupCtx, "DELETE FROM checkins WHERE gym_id = $1", id)
		_, _ = db.Exec(cleanupCtx, "DELETE FROM gyms WHERE id = $1", id)
	})
}

func TestPGStore_CountedUniquePerDay(t *testing.T) {
	db := connectTestDB(t)
	store := NewPGStore(db)
	ctx := context.Background()

	gymID := fmt.Sprintf("g%d", time.Now().UnixNano())
	userID := fmt.Sprintf("u%d", time.Now().UnixNano())
	seedGym(t, db, gymID)

	rec := Record{
		ID:          types.ID(fmt.Sprintf("c%d-1", time.Now().UnixNano())),
		UserID:      types.ID(userID),
		GymID:       types.ID(gymID),
		CheckedInAt: time.Now().UTC(),
		LocalDate:   "2026-08-30",
		CrowdLevel:  CrowdNormal,
		Counted:     true,
		Verification: VerificationResult{
			IsValid: true, DistanceMeters: 12, MaxAllowedMeters: 120,
		},
	}

	inserted, err := store.Insert(ctx, rec)
	if err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if !inserted {
		t.Fatal("first counted insert must succeed")
	}

	dup := rec
	dup.ID = types.ID(fmt.Sprintf("c%d-2", time.Now().UnixNano()))
	inserted, err = store.Insert(ctx, dup)
	if err != nil {
		t.Fatalf("duplicate insert: %v", err)
	}
	if inserted {
		t.Fatal("second counted insert for the same day must be rejected")
	}

	// Same day but non-counted must be accepted.
	dup.Counted = false
	inserted, err = store.Insert(ctx, dup)
	if err != nil {
		t.Fatalf("non-counted insert: %v", err)
	}
	if !inserted {
		t.Fatal("non-counted duplicate must be stored")
	}

	has, err := store.HasCountedOn(ctx, rec.UserID, rec.GymID, rec.LocalDate)
	if err != nil {
		t.Fatalf("has counted: %v", err)
	}
	if !has {
		t.Error("expected counted check-in on the day")
	}

	recent, err := store.ListRecent(ctx, rec.UserID, 10)
	if err != nil {
		t.Fatalf("list recent: %v", err)
	}
	if len(recent) != 2 {
		t.Errorf("expected 2 records, got %d", len(recent))
	}
}
