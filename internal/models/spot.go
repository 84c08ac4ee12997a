// Package models defines the domain types for spotmap.
package models

import "strings"

// Spot is a user-saved point of interest.
//
// Photo holds the image inline as a data URL. CreatedAt and UpdatedAt are
// milliseconds since the Unix epoch.
type Spot struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Photo     string  `json:"photo,omitempty"`
	Notes     string  `json:"notes"`
	CreatedAt int64   `json:"createdAt"`
	UpdatedAt int64   `json:"updatedAt"`
}

// HasPhoto reports whether the spot carries an embedded photo.
func (s Spot) HasPhoto() bool { return s.Photo != "" }

// LatLng is a geographic coordinate in degrees.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Position returns the spot's coordinate.
func (s Spot) Position() LatLng {
	return LatLng{Lat: s.Latitude, Lng: s.Longitude}
}

// PhotoDataURL returns the photo when it is an inline image data URL.
func (s Spot) PhotoDataURL() (string, bool) {
	if strings.HasPrefix(s.Photo, "data:image/") {
		return s.Photo, true
	}
	return "", false
}
