package mapsurface

import (
	"bytes"
	"html/template"

	"github.com/starford/spotmap/internal/models"
)

// MarkerSize returns the marker box edge in pixels for a zoom level.
func MarkerSize(zoom int) int {
	switch {
	case zoom < 5:
		return 30
	case zoom < 8:
		return 40
	case zoom < 12:
		return 50
	case zoom < 15:
		return 60
	default:
		return 70
	}
}

// Marker is the visual for one persisted spot.
type Marker struct {
	Spot models.Spot   `json:"spot"`
	Size int           `json:"size"`
	Icon template.HTML `json:"icon"`
}

var iconTmpl = template.Must(template.New("icon").Parse(
	`{{if .Photo}}<div class="photo-marker" style="width: {{.Size}}px; height: {{.Size}}px;">` +
		`<img src="{{.Photo}}" alt="{{.Title}}"></div>` +
		`{{else}}<div class="icon-marker" style="width: {{.Size}}px; height: {{.Size}}px;">` +
		`<svg width="{{.Glyph}}" height="{{.Glyph}}" viewBox="0 0 24 24" fill="none" stroke="currentColor" stroke-width="2">` +
		`<path d="M12 2C8.13 2 5 5.13 5 9c0 5.25 7 13 7 13s7-7.75 7-13c0-3.87-3.13-7-7-7zm0 9.5c-1.38 0-2.5-1.12-2.5-2.5s1.12-2.5 2.5-2.5 2.5 1.12 2.5 2.5-1.12 2.5-2.5 2.5z"/>` +
		`</svg></div>{{end}}`))

// RenderIcon renders the marker HTML for spot inside a size x size box:
// a photo thumbnail when the spot has one, a pin glyph otherwise.
func RenderIcon(spot models.Spot, size int) template.HTML {
	data := struct {
		Title string
		Photo template.URL
		Size  int
		Glyph int
	}{Title: spot.Title, Size: size, Glyph: size / 2}
	if url, ok := spot.PhotoDataURL(); ok {
		data.Photo = template.URL(url)
	}
	var buf bytes.Buffer
	if err := iconTmpl.Execute(&buf, data); err != nil {
		return ""
	}
	return template.HTML(buf.String())
}

func newMarker(spot models.Spot, zoom int) *Marker {
	size := MarkerSize(zoom)
	return &Marker{Spot: spot, Size: size, Icon: RenderIcon(spot, size)}
}
