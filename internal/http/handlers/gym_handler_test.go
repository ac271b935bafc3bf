package handlers_test

import (
	"fmt"
	"net/http"
	"testing"
)

func TestSearchGyms_NearestFirst(t *testing.T) {
	r := buildTestRouter(t)

	path := fmt.Sprintf("/api/gyms/search?lat=%f&lng=%f&radius_km=2", testOrigin.Lat, testOrigin.Lng)
	w := doRequest(r, http.MethodGet, path, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	gyms, _ := decodeBody(t, w)["gyms"].([]any)
	if len(gyms) != 2 {
		t.Fatalf("expected 2 gyms, got %d", len(gyms))
	}
	first, _ := gyms[0].(map[string]any)
	if first["gym_id"] != "g1" {
		t.Errorf("nearest gym = %v, want g1", first["gym_id"])
	}
	if _, ok := first["walking_time_min"]; !ok {
		t.Error("expected walking_time_min on result")
	}
}

func TestSearchGyms_RadiusFiltersResults(t *testing.T) {
	r := buildTestRouter(t)

	// 0.5 km radius excludes the gym 800m north.
	path := fmt.Sprintf("/api/gyms/search?lat=%f&lng=%f&radius_km=0.5", testOrigin.Lat, testOrigin.Lng)
	w := doRequest(r, http.MethodGet, path, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	gyms, _ := decodeBody(t, w)["gyms"].([]any)
	if len(gyms) != 1 {
		t.Errorf("expected 1 gym within 500m, got %d", len(gyms))
	}
}

func TestSearchGyms_MissingCoordinates(t *testing.T) {
	r := buildTestRouter(t)

	w := doRequest(r, http.MethodGet, "/api/gyms/search?lng=139.0", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestGetGym(t *testing.T) {
	r := buildTestRouter(t)

	w := doRequest(r, http.MethodGet, "/api/gyms/g1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := decodeBody(t, w)
	if body["name"] != "Origin Gym" {
		t.Errorf("name = %v, want Origin Gym", body["name"])
	}
	if body["allowed_radius_m"] != float64(100) {
		t.Errorf("allowed_radius_m = %v, want 100", body["allowed_radius_m"])
	}

	w = doRequest(r, http.MethodGet, "/api/gyms/nope", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}
