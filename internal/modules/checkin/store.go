package checkin

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"gymbeat/internal/types"
)

// PGStore persists check-in records in Postgres. The partial unique index
// on (user_id, gym_id, local_date) WHERE counted makes the once-per-day
// rule hold across instances.
type PGStore struct {
	db *pgxpool.Pool
}

func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Insert(ctx context.Context, rec Record) (bool, error) {
	_, err := s.db.Exec(ctx, `
		INSERT INTO checkins (
			id, user_id, gym_id, checked_in_at, local_date,
			crowd_level, counted, distance_m, max_allowed_m
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		string(rec.ID),
		string(rec.UserID),
		string(rec.GymID),
		rec.CheckedInAt,
		rec.LocalDate,
		string(rec.CrowdLevel),
		rec.Counted,
		rec.Verification.DistanceMeters,
		rec.Verification.MaxAllowedMeters,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		// 23505 unique_violation: concurrent counted insert for the same day.
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *PGStore) HasCountedOn(ctx context.Context, userID, gymID types.ID, localDate string) (bool, error) {
	row := s.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM checkins
			WHERE user_id = $1 AND gym_id = $2 AND local_date = $3 AND counted
		)`, string(userID), string(gymID), localDate,
	)
	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (s *PGStore) ListByUser(ctx context.Context, userID types.ID) ([]Record, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, gym_id, checked_in_at, local_date,
		       crowd_level, counted, distance_m, max_allowed_m
		FROM checkins
		WHERE user_id = $1
		ORDER BY checked_in_at`, string(userID),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

func (s *PGStore) ListRecent(ctx context.Context, userID types.ID, limit int) ([]Record, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, gym_id, checked_in_at, local_date,
		       crowd_level, counted, distance_m, max_allowed_m
		FROM checkins
		WHERE user_id = $1
		ORDER BY checked_in_at DESC
		LIMIT $2`, string(userID), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

func scanRecords(rows pgx.Rows) ([]Record, error) {
	var out []Record
	for rows.Next() {
		var (
			rec               Record
			id, userID, gymID string
			crowd             string
		)
		if err := rows.Scan(
			&id, &userID, &gymID, &rec.CheckedInAt, &rec.LocalDate,
			&crowd, &rec.Counted,
			&rec.Verification.DistanceMeters, &rec.Verification.MaxAllowedMeters,
		); err != nil {
			return nil, err
		}
		rec.ID = types.ID(id)
		rec.UserID = types.ID(userID)
		rec.GymID = types.ID(gymID)
		rec.CrowdLevel = CrowdLevel(crowd)
		rec.Verification.IsValid = true // only verified attempts are persisted
		out = append(out, rec)
	}
	return out, rows.Err()
}
