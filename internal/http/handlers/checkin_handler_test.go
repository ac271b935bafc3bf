package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"gymbeat/internal/config"
	httptransport "gymbeat/internal/http"
	"gymbeat/internal/modules/badge"
	"gymbeat/internal/modules/checkin"
	"gymbeat/internal/modules/gym"
	"gymbeat/internal/types"
)

var testOrigin = types.Point{Lat: 35.0, Lng: 139.0}

// north returns a point n meters north of p.
func north(p types.Point, n float64) types.Point {
	return types.Point{Lat: p.Lat + n/111320.0, Lng: p.Lng}
}

// memDirectory is an in-memory gym.Directory.
type memDirectory struct {
	gyms map[types.ID]gym.Gym
}

func (d *memDirectory) GetByID(_ context.Context, id types.ID) (gym.Gym, error) {
	g, ok := d.gyms[id]
	if !ok {
		return gym.Gym{}, gym.ErrNotFound
	}
	return g, nil
}

func (d *memDirectory) FindNear(_ context.Context, _ types.Point, _ float64) ([]gym.Gym, error) {
	out := make([]gym.Gym, 0, len(d.gyms))
	for _, g := range d.gyms {
		out = append(out, g)
	}
	return out, nil
}

type noopCache struct{}

func (noopCache) CachedNear(_ context.Context, _ types.Point, _ float64) ([]gym.Gym, error) {
	return nil, nil
}
func (noopCache) CacheGyms(_ context.Context, _ []gym.Gym) error { return nil }

// memCheckinStore mirrors the Postgres partial-index uniqueness.
type memCheckinStore struct {
	mu      sync.Mutex
	records []checkin.Record
}

func (m *memCheckinStore) Insert(_ context.Context, rec checkin.Record) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec.Counted {
		for _, r := range m.records {
			if r.Counted && r.UserID == rec.UserID && r.GymID == rec.GymID && r.LocalDate == rec.LocalDate {
				return false, nil
			}
		}
	}
	m.records = append(m.records, rec)
	return true, nil
}

func (m *memCheckinStore) HasCountedOn(_ context.Context, userID, gymID types.ID, localDate string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.Counted && r.UserID == userID && r.GymID == gymID && r.LocalDate == localDate {
			return true, nil
		}
	}
	return false, nil
}

func (m *memCheckinStore) ListByUser(_ context.Context, userID types.ID) ([]checkin.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []checkin.Record
	for _, r := range m.records {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memCheckinStore) ListRecent(_ context.Context, userID types.ID, limit int) ([]checkin.Record, error) {
	all, _ := m.ListByUser(context.Background(), userID)
	var out []checkin.Record
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, all[i])
	}
	return out, nil
}

// memBadgeStore is an in-memory badge.Store.
type memBadgeStore struct {
	mu     sync.Mutex
	awards map[types.ID][]badge.Award
}

func (m *memBadgeStore) SaveAwards(_ context.Context, awards []badge.Award) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.awards == nil {
		m.awards = make(map[types.ID][]badge.Award)
	}
	for _, a := range awards {
		m.awards[a.UserID] = append(m.awards[a.UserID], a)
	}
	return nil
}

func (m *memBadgeStore) AwardedCodes(_ context.Context, userID types.ID) (map[string]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]bool)
	for _, a := range m.awards[userID] {
		out[a.BadgeCode] = true
	}
	return out, nil
}

func (m *memBadgeStore) ListByUser(_ context.Context, userID types.ID) ([]badge.Award, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.awards[userID], nil
}

type noopQueue struct{}

func (noopQueue) Enqueue(_ context.Context, _ types.ID) error       { return nil }
func (noopQueue) Dequeue(_ context.Context) (types.ID, bool, error) { return "", false, nil }

// ledgerStats adapts attendance stats to the badge backfill interface.
type ledgerStats struct {
	ledger *checkin.Ledger
}

func (l *ledgerStats) Snapshot(ctx context.Context, userID types.ID) (badge.Snapshot, error) {
	s, err := l.ledger.GetStats(ctx, userID)
	if err != nil {
		return badge.Snapshot{}, err
	}
	return badge.Snapshot{
		TotalCheckins:     s.TotalCheckins,
		UniqueGymCount:    s.UniqueGymCount,
		CurrentStreakDays: s.CurrentStreakDays,
		ThisWeekCount:     s.ThisWeekCount,
	}, nil
}

func buildTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := zap.NewNop()

	directory := &memDirectory{gyms: map[types.ID]gym.Gym{
		"g1": {ID: "g1", Name: "Origin Gym", Point: testOrigin, HasPoint: true, AllowedRadiusMeters: 100},
		"g2": {ID: "g2", Name: "North Gym", Point: north(testOrigin, 800), HasPoint: true, AllowedRadiusMeters: 100},
	}}
	gymSvc := gym.NewService(directory, noopCache{}, nil, 100, log)

	policy := config.CheckinConfig{
		RequiredAccuracyMeters:     50,
		MaxSamples:                 3,
		AcquireTimeout:             15 * time.Second,
		DefaultAllowedRadiusMeters: 100,
	}

	ledger := checkin.NewLedger(&memCheckinStore{}, time.UTC, log)
	badgeSvc := badge.NewService(&memBadgeStore{}, noopQueue{}, &ledgerStats{ledger: ledger}, log)
	checkinSvc := checkin.NewService(gymSvc, ledger, badgeSvc, policy.RequiredAccuracyMeters, 2, 5*time.Second, log)

	return httptransport.NewRouter(httptransport.RouterDeps{
		Checkin: checkinSvc,
		Gyms:    gymSvc,
		Badges:  badgeSvc,
		Policy:  policy,
		Log:     log,
	})
}

func doRequest(r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body %q: %v", w.Body.String(), err)
	}
	return out
}

func TestCreateCheckin_Success(t *testing.T) {
	r := buildTestRouter(t)

	w := doRequest(r, http.MethodPost, "/api/checkins", map[string]any{
		"user_id":     "u1",
		"gym_id":      "g1",
		"lat":         testOrigin.Lat,
		"lng":         testOrigin.Lng,
		"accuracy_m":  20,
		"crowd_level": "normal",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	body := decodeBody(t, w)
	if body["counted"] != true {
		t.Errorf("expected counted=true, got %v", body["counted"])
	}
	if body["gym_id"] != "g1" {
		t.Errorf("gym_id = %v, want g1", body["gym_id"])
	}
	badges, _ := body["badges_earned"].([]any)
	found := false
	for _, b := range badges {
		if m, ok := b.(map[string]any); ok && m["code"] == "first_checkin" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected first_checkin in badges_earned, got %v", badges)
	}
}

func TestCreateCheckin_OutOfRange(t *testing.T) {
	r := buildTestRouter(t)
	far := north(testOrigin, 5000)

	w := doRequest(r, http.MethodPost, "/api/checkins", map[string]any{
		"user_id":    "u1",
		"gym_id":     "g1",
		"lat":        far.Lat,
		"lng":        far.Lng,
		"accuracy_m": 20,
	})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", w.Code, w.Body.String())
	}

	body := decodeBody(t, w)
	distance, _ := body["distance_m"].(float64)
	if distance < 4900 || distance > 5100 {
		t.Errorf("distance_m = %v, want ~5000", body["distance_m"])
	}
	if maxAllowed, _ := body["max_allowed_m"].(float64); maxAllowed != 120 {
		t.Errorf("max_allowed_m = %v, want 120", body["max_allowed_m"])
	}
}

func TestCreateCheckin_LooseAccuracyRejected(t *testing.T) {
	r := buildTestRouter(t)
	far := north(testOrigin, 4900)

	// A huge claimed accuracy must not widen the allowed radius into an
	// acceptance; the policy threshold rejects the sample.
	w := doRequest(r, http.MethodPost, "/api/checkins", map[string]any{
		"user_id":    "u1",
		"gym_id":     "g1",
		"lat":        far.Lat,
		"lng":        far.Lng,
		"accuracy_m": 5000,
	})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", w.Code, w.Body.String())
	}

	w = doRequest(r, http.MethodGet, "/api/users/u1/stats", nil)
	if stats := decodeBody(t, w); stats["total_checkins"] != float64(0) {
		t.Errorf("rejected attempt must not count, stats=%v", stats)
	}
}

func TestCheckinPolicy(t *testing.T) {
	r := buildTestRouter(t)

	w := doRequest(r, http.MethodGet, "/api/checkins/policy", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := decodeBody(t, w)
	if body["required_accuracy_m"] != float64(50) {
		t.Errorf("required_accuracy_m = %v, want 50", body["required_accuracy_m"])
	}
	if body["max_samples"] != float64(3) {
		t.Errorf("max_samples = %v, want 3", body["max_samples"])
	}
	if body["acquire_timeout_ms"] != float64(15000) {
		t.Errorf("acquire_timeout_ms = %v, want 15000", body["acquire_timeout_ms"])
	}
}

func TestCreateCheckin_InvalidJSON(t *testing.T) {
	r := buildTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/checkins", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestCreateCheckin_UnknownGym(t *testing.T) {
	r := buildTestRouter(t)

	w := doRequest(r, http.MethodPost, "/api/checkins", map[string]any{
		"user_id":    "u1",
		"gym_id":     "nope",
		"lat":        testOrigin.Lat,
		"lng":        testOrigin.Lng,
		"accuracy_m": 20,
	})
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d: %s", w.Code, w.Body.String())
	}
}

func TestCreateCheckin_InvalidCoordinates(t *testing.T) {
	r := buildTestRouter(t)

	w := doRequest(r, http.MethodPost, "/api/checkins", map[string]any{
		"user_id":    "u1",
		"gym_id":     "g1",
		"lat":        123.0,
		"lng":        139.0,
		"accuracy_m": 20,
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestStatsAndBadges_AfterCheckin(t *testing.T) {
	r := buildTestRouter(t)

	w := doRequest(r, http.MethodPost, "/api/checkins", map[string]any{
		"user_id":    "u1",
		"gym_id":     "g1",
		"lat":        testOrigin.Lat,
		"lng":        testOrigin.Lng,
		"accuracy_m": 20,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("checkin: %d: %s", w.Code, w.Body.String())
	}

	w = doRequest(r, http.MethodGet, "/api/users/u1/stats", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("stats: %d", w.Code)
	}
	stats := decodeBody(t, w)
	if stats["total_checkins"] != float64(1) || stats["current_streak_days"] != float64(1) {
		t.Errorf("unexpected stats: %v", stats)
	}

	w = doRequest(r, http.MethodGet, "/api/users/u1/badges", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("badges: %d", w.Code)
	}
	badges, _ := decodeBody(t, w)["badges"].([]any)
	if len(badges) == 0 {
		t.Error("expected at least one badge after first check-in")
	}
}

func TestHistory_ReturnsRecords(t *testing.T) {
	r := buildTestRouter(t)

	for _, g := range []struct {
		id string
		p  types.Point
	}{
		{"g1", testOrigin},
		{"g2", north(testOrigin, 800)},
	} {
		w := doRequest(r, http.MethodPost, "/api/checkins", map[string]any{
			"user_id":    "u1",
			"gym_id":     g.id,
			"lat":        g.p.Lat,
			"lng":        g.p.Lng,
			"accuracy_m": 20,
		})
		if w.Code != http.StatusCreated {
			t.Fatalf("checkin %s: %d: %s", g.id, w.Code, w.Body.String())
		}
	}

	w := doRequest(r, http.MethodGet, "/api/users/u1/checkins?limit=10", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("history: %d", w.Code)
	}
	records, _ := decodeBody(t, w)["checkins"].([]any)
	if len(records) != 2 {
		t.Errorf("expected 2 history records, got %d", len(records))
	}
}
