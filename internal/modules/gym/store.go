package gym

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"gymbeat/internal/types"
)

const (
	gymGeoKey      = "gyms:geo"
	gymNameKey     = "gyms:name:%s"
	gymCacheTTL    = 24 * time.Hour
	coarseOverscan = 1.5 // widen the SQL bounding box; exact filter is client-side

	// maxUnlocatedRows bounds how many coordinate-less directory rows a
	// single search may carry; they cannot be filtered by the bounding box.
	maxUnlocatedRows = 20
)

// Store is the primary Postgres directory plus a Redis GEO cache that serves
// degraded reads when Postgres is down.
type Store struct {
	db    *pgxpool.Pool
	redis *redis.Client
}

func NewStore(db *pgxpool.Pool, redis *redis.Client) *Store {
	return &Store{db: db, redis: redis}
}

// GetByID resolves a gym from the primary directory only. Verification must
// never run against cached coordinates.
func (s *Store) GetByID(ctx context.Context, id types.ID) (Gym, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, name, lat, lng, allowed_radius_m
		FROM gyms
		WHERE id = $1`, string(id),
	)
	g, err := scanGym(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Gym{}, ErrNotFound
	}
	return g, err
}

// FindNear returns directory gyms inside a coarse bounding box around the
// center, plus a bounded tail of coordinate-less rows so they still surface
// with an unknown distance. The caller recomputes exact distances; the box
// is deliberately wider than the radius so no edge candidate is lost.
func (s *Store) FindNear(ctx context.Context, center types.Point, radiusKm float64) ([]Gym, error) {
	// ~111km per degree of latitude; longitude degrees shrink toward the
	// poles, so use the latitude factor for both and overscan.
	deg := radiusKm / 111.0 * coarseOverscan

	rows, err := s.db.Query(ctx, `
		SELECT id, name, lat, lng, allowed_radius_m
		FROM gyms
		WHERE lat BETWEEN $1 AND $2 AND lng BETWEEN $3 AND $4
		UNION ALL
		(SELECT id, name, lat, lng, allowed_radius_m
		 FROM gyms
		 WHERE lat IS NULL OR lng IS NULL
		 ORDER BY id
		 LIMIT $5)`,
		center.Lat-deg, center.Lat+deg, center.Lng-deg, center.Lng+deg,
		maxUnlocatedRows,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var gyms []Gym
	for rows.Next() {
		g, err := scanGym(rows)
		if err != nil {
			return nil, err
		}
		gyms = append(gyms, g)
	}
	return gyms, rows.Err()
}

func scanGym(row pgx.Row) (Gym, error) {
	var (
		g        Gym
		id       string
		lat, lng sql.NullFloat64
	)
	if err := row.Scan(&id, &g.Name, &lat, &lng, &g.AllowedRadiusMeters); err != nil {
		return Gym{}, err
	}
	g.ID = types.ID(id)
	if lat.Valid && lng.Valid {
		g.Point = types.Point{Lat: lat.Float64, Lng: lng.Float64}
		g.HasPoint = true
	}
	return g, nil
}

// CacheGyms refreshes the Redis GEO cache from a successful primary read.
func (s *Store) CacheGyms(ctx context.Context, gyms []Gym) error {
	pipe := s.redis.Pipeline()
	for _, g := range gyms {
		if !g.HasPoint {
			continue
		}
		pipe.GeoAdd(ctx, gymGeoKey, &redis.GeoLocation{
			Name:      string(g.ID),
			Longitude: g.Point.Lng,
			Latitude:  g.Point.Lat,
		})
		pipe.Set(ctx, fmt.Sprintf(gymNameKey, string(g.ID)), g.Name, gymCacheTTL)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// CachedNear serves gyms from the Redis GEO cache, nearest first. Cached
// entries carry no radius policy, so callers apply the configured default.
func (s *Store) CachedNear(ctx context.Context, center types.Point, radiusKm float64) ([]Gym, error) {
	results, err := s.redis.GeoSearchLocation(ctx, gymGeoKey, &redis.GeoSearchLocationQuery{
		GeoSearchQuery: redis.GeoSearchQuery{
			Longitude:  center.Lng,
			Latitude:   center.Lat,
			Radius:     radiusKm,
			RadiusUnit: "km",
			Sort:       "ASC",
		},
		WithCoord: true,
	}).Result()
	if err != nil {
		return nil, err
	}

	gyms := make([]Gym, 0, len(results))
	for _, r := range results {
		name, err := s.redis.Get(ctx, fmt.Sprintf(gymNameKey, r.Name)).Result()
		if err != nil && err != redis.Nil {
			return nil, err
		}
		gyms = append(gyms, Gym{
			ID:       types.ID(r.Name),
			Name:     name,
			Point:    types.Point{Lat: r.Latitude, Lng: r.Longitude},
			HasPoint: true,
		})
	}
	return gyms, nil
}
