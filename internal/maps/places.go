// Package maps wraps the Google Places API as a low-fidelity gym discovery
// source. It is used only when the primary directory and its cache are both
// unreachable; results are for display, never for check-in verification.
package maps

import (
	"context"
	"fmt"

	"googlemaps.github.io/maps"
)

// Place is a simplified gym search result from the Places API.
type Place struct {
	Name    string
	Address string
	PlaceID string
	Lat     float64
	Lng     float64
}

// PlacesService handles interactions with the Google Places API.
type PlacesService struct {
	client *maps.Client
}

// NewPlacesService creates a PlacesService with the given API key.
func NewPlacesService(apiKey string) (*PlacesService, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &PlacesService{client: client}, nil
}

// SearchGymsNear runs a nearby search for gyms around the given point.
func (s *PlacesService) SearchGymsNear(ctx context.Context, lat, lng, radiusKm float64) ([]Place, error) {
	r := &maps.NearbySearchRequest{
		Location: &maps.LatLng{Lat: lat, Lng: lng},
		Radius:   uint(radiusKm * 1000),
		Type:     maps.PlaceTypeGym,
	}

	resp, err := s.client.NearbySearch(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("places api error: %w", err)
	}

	places := make([]Place, 0, len(resp.Results))
	for _, res := range resp.Results {
		places = append(places, Place{
			Name:    res.Name,
			Address: res.Vicinity,
			PlaceID: res.PlaceID,
			Lat:     res.Geometry.Location.Lat,
			Lng:     res.Geometry.Location.Lng,
		})
	}
	return places, nil
}
