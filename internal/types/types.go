// Package types holds the small value objects shared across modules.
package types

import "fmt"

// ID identifies users, gyms and records across module boundaries.
type ID string

// Point is a WGS84 coordinate in decimal degrees.
type Point struct {
	Lat float64
	Lng float64
}

// NewPoint validates latitude/longitude ranges at construction so downstream
// code never has to re-check them.
func NewPoint(lat, lng float64) (Point, error) {
	if lat < -90 || lat > 90 {
		return Point{}, fmt.Errorf("latitude %f out of range [-90,90]", lat)
	}
	if lng < -180 || lng > 180 {
		return Point{}, fmt.Errorf("longitude %f out of range [-180,180]", lng)
	}
	return Point{Lat: lat, Lng: lng}, nil
}
