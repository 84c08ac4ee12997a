package mapsurface

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Basemap is a selectable background tile layer.
type Basemap struct {
	Name        string `yaml:"name" json:"name"`
	URL         string `yaml:"url" json:"url"`
	Attribution string `yaml:"attribution" json:"attribution"`
	MaxZoom     int    `yaml:"max_zoom" json:"maxZoom"`
}

// Validate validates a basemap entry.
func (b *Basemap) Validate() error {
	return validation.ValidateStruct(b,
		validation.Field(&b.Name, validation.Required),
		validation.Field(&b.URL, validation.Required),
		validation.Field(&b.Attribution, validation.Required),
		validation.Field(&b.MaxZoom, validation.Required, validation.Min(1), validation.Max(MaxZoomLimit)),
	)
}

// Built-in basemap names.
const (
	BasemapStreets   = "streets"
	BasemapSatellite = "satellite"
	BasemapTerrain   = "terrain"
	BasemapDark      = "dark"
)

// MaxZoomLimit is the highest zoom any tile source may declare.
const MaxZoomLimit = 22

// DefaultBasemaps returns the four built-in tile sources in selector order.
func DefaultBasemaps() []Basemap {
	return []Basemap{
		{
			Name:        BasemapStreets,
			URL:         "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png",
			Attribution: "© OpenStreetMap contributors",
			MaxZoom:     19,
		},
		{
			Name:        BasemapSatellite,
			URL:         "https://server.arcgisonline.com/ArcGIS/rest/services/World_Imagery/MapServer/tile/{z}/{y}/{x}",
			Attribution: "© Esri",
			MaxZoom:     19,
		},
		{
			Name:        BasemapTerrain,
			URL:         "https://{s}.tile.opentopomap.org/{z}/{x}/{y}.png",
			Attribution: "© OpenTopoMap contributors",
			MaxZoom:     17,
		},
		{
			Name:        BasemapDark,
			URL:         "https://{s}.basemaps.cartocdn.com/dark_all/{z}/{x}/{y}{r}.png",
			Attribution: "© CartoDB",
			MaxZoom:     19,
		},
	}
}

// NormalizeName lowercases a basemap name and maps the "street" alias onto
// streets.
func NormalizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "street" {
		return BasemapStreets
	}
	return name
}

// normalizeTable copies basemaps with their names normalized.
func normalizeTable(basemaps []Basemap) []Basemap {
	out := make([]Basemap, len(basemaps))
	for i, b := range basemaps {
		b.Name = NormalizeName(b.Name)
		out[i] = b
	}
	return out
}
