package badge

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"gymbeat/internal/types"
)

// PGStore persists awards in Postgres. The (user_id, badge_code) primary key
// makes SaveAwards idempotent.
type PGStore struct {
	db *pgxpool.Pool
}

func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) SaveAwards(ctx context.Context, awards []Award) error {
	for _, a := range awards {
		_, err := s.db.Exec(ctx, `
			INSERT INTO badge_awards (user_id, badge_code, earned_at)
			VALUES ($1, $2, $3)
			ON CONFLICT (user_id, badge_code) DO NOTHING`,
			string(a.UserID), a.BadgeCode, a.EarnedAt,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *PGStore) AwardedCodes(ctx context.Context, userID types.ID) (map[string]bool, error) {
	rows, err := s.db.Query(ctx, `
		SELECT badge_code FROM badge_awards WHERE user_id = $1`, string(userID),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	codes := make(map[string]bool)
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		codes[code] = true
	}
	return codes, rows.Err()
}

func (s *PGStore) ListByUser(ctx context.Context, userID types.ID) ([]Award, error) {
	rows, err := s.db.Query(ctx, `
		SELECT user_id, badge_code, earned_at
		FROM badge_awards
		WHERE user_id = $1
		ORDER BY earned_at`, string(userID),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Award
	for rows.Next() {
		var (
			a      Award
			userID string
		)
		if err := rows.Scan(&userID, &a.BadgeCode, &a.EarnedAt); err != nil {
			return nil, err
		}
		a.UserID = types.ID(userID)
		out = append(out, a)
	}
	return out, rows.Err()
}

const backfillKey = "badges:backfill"

// RedisQueue is a Redis list-backed backfill queue.
type RedisQueue struct {
	client *redis.Client
}

func NewRedisQueue(client *redis.Client) *RedisQueue {
	return &RedisQueue{client: client}
}

func (q *RedisQueue) Enqueue(ctx context.Context, userID types.ID) error {
	return q.client.LPush(ctx, backfillKey, string(userID)).Err()
}

// Dequeue pops one queued user without blocking; ok is false when the queue
// is empty.
func (q *RedisQueue) Dequeue(ctx context.Context) (types.ID, bool, error) {
	val, err := q.client.RPop(ctx, backfillKey).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return types.ID(val), true, nil
}
