package gym

import (
	"context"

	"go.uber.org/zap"

	"gymbeat/internal/geo"
	"gymbeat/internal/maps"
	"gymbeat/internal/types"
)

// Directory is the primary gym store. Verification lookups go through it
// exclusively.
type Directory interface {
	GetByID(ctx context.Context, id types.ID) (Gym, error)
	FindNear(ctx context.Context, center types.Point, radiusKm float64) ([]Gym, error)
}

// Cache is the degraded secondary source for discovery.
type Cache interface {
	CachedNear(ctx context.Context, center types.Point, radiusKm float64) ([]Gym, error)
	CacheGyms(ctx context.Context, gyms []Gym) error
}

// Places is the optional last-resort discovery source.
type Places interface {
	SearchGymsNear(ctx context.Context, lat, lng, radiusKm float64) ([]maps.Place, error)
}

// Service owns the distance computation and sort/tie-break policy for
// proximity search. The spatial query itself is delegated to the sources.
type Service struct {
	directory     Directory
	cache         Cache
	places        Places // nil when no API key is configured
	defaultRadius float64
	log           *zap.Logger
}

func NewService(directory Directory, cache Cache, places Places, defaultRadiusMeters float64, log *zap.Logger) *Service {
	return &Service{
		directory:     directory,
		cache:         cache,
		places:        places,
		defaultRadius: defaultRadiusMeters,
		log:           log,
	}
}

// GetByID resolves a gym for verification, applying the default allowed
// radius where the directory has no per-gym policy. Primary source only.
func (s *Service) GetByID(ctx context.Context, id types.ID) (Gym, error) {
	g, err := s.directory.GetByID(ctx, id)
	if err != nil {
		return Gym{}, err
	}
	return s.withDefaultRadius(g), nil
}

// Search returns candidate gyms within radiusKm of center, nearest first.
// Distance is always recomputed here with the engine's own formula so the
// number shown to the user matches the one later used for verification.
// Source order: Postgres directory, then Redis GEO cache, then Places; the
// degraded sources are discovery-only.
func (s *Service) Search(ctx context.Context, center types.Point, radiusKm float64, limit int) ([]Candidate, error) {
	if radiusKm <= 0 {
		radiusKm = DefaultSearchRadiusKm
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	gyms, err := s.directory.FindNear(ctx, center, radiusKm)
	if err == nil {
		if cacheErr := s.cache.CacheGyms(ctx, gyms); cacheErr != nil {
			s.log.Warn("gym cache refresh failed", zap.Error(cacheErr))
		}
		return s.rank(gyms, center, radiusKm, limit, false), nil
	}
	s.log.Warn("primary gym directory unavailable, trying cache", zap.Error(err))

	cached, cacheErr := s.cache.CachedNear(ctx, center, radiusKm)
	if cacheErr == nil && len(cached) > 0 {
		return s.rank(cached, center, radiusKm, limit, true), nil
	}
	if cacheErr != nil {
		s.log.Warn("gym cache unavailable", zap.Error(cacheErr))
	}

	if s.places != nil {
		places, placesErr := s.places.SearchGymsNear(ctx, center.Lat, center.Lng, radiusKm)
		if placesErr == nil {
			return s.rank(fromPlaces(places), center, radiusKm, limit, true), nil
		}
		s.log.Warn("places discovery unavailable", zap.Error(placesErr))
	}

	return nil, ErrSearchUnavailable
}

// Nearest returns the closest gym with known coordinates for "check in at
// the nearest gym" requests. It intentionally has no fallback path: a gym
// chosen for verification must come from the primary directory.
func (s *Service) Nearest(ctx context.Context, center types.Point, radiusKm float64) (Gym, error) {
	gyms, err := s.directory.FindNear(ctx, center, radiusKm)
	if err != nil {
		return Gym{}, ErrSearchUnavailable
	}
	candidates := s.rank(gyms, center, radiusKm, 1, false)
	for _, c := range candidates {
		if c.DistanceKnown {
			return c.Gym, nil
		}
	}
	return Gym{}, ErrNotFound
}

// rank applies the radius filter and the deterministic ordering: ascending
// distance, ties broken by gym ID, unknown-distance gyms last.
func (s *Service) rank(gyms []Gym, center types.Point, radiusKm float64, limit int, fallback bool) []Candidate {
	radiusMeters := radiusKm * 1000

	var known, unknown []Candidate
	for _, g := range gyms {
		g = s.withDefaultRadius(g)
		if !g.HasPoint {
			unknown = append(unknown, Candidate{Gym: g, Fallback: fallback})
			continue
		}
		d := geo.DistanceMeters(center, g.Point)
		if d > radiusMeters {
			continue
		}
		known = append(known, Candidate{
			Gym:                g,
			DistanceMeters:     d,
			DistanceKnown:      true,
			WalkingTimeMinutes: geo.WalkingTimeMinutes(d),
			Fallback:           fallback,
		})
	}

	sortCandidates(known)
	sortByID(unknown)

	out := append(known, unknown...)
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (s *Service) withDefaultRadius(g Gym) Gym {
	if g.AllowedRadiusMeters <= 0 {
		g.AllowedRadiusMeters = s.defaultRadius
	}
	return g
}

func sortCandidates(items []Candidate) {
	for i := 1; i < len(items); i++ {
		key := items[i]
		j := i - 1
		for j >= 0 && candidateAfter(items[j], key) {
			items[j+1] = items[j]
			j--
		}
		items[j+1] = key
	}
}

func candidateAfter(a, b Candidate) bool {
	if a.DistanceMeters != b.DistanceMeters {
		return a.DistanceMeters > b.DistanceMeters
	}
	return a.Gym.ID > b.Gym.ID
}

func sortByID(items []Candidate) {
	for i := 1; i < len(items); i++ {
		key := items[i]
		j := i - 1
		for j >= 0 && items[j].Gym.ID > key.Gym.ID {
			items[j+1] = items[j]
			j--
		}
		items[j+1] = key
	}
}

func fromPlaces(places []maps.Place) []Gym {
	gyms := make([]Gym, 0, len(places))
	for _, p := range places {
		gyms = append(gyms, Gym{
			ID:       types.ID("places:" + p.PlaceID),
			Name:     p.Name,
			Point:    types.Point{Lat: p.Lat, Lng: p.Lng},
			HasPoint: true,
		})
	}
	return gyms
}
