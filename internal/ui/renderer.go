package ui

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"time"

	"github.com/starford/spotmap/internal/mapsurface"
	"github.com/starford/spotmap/internal/models"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Static returns the embedded browser assets (app.js, app.css).
func Static() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

// funcMap provides common template functions.
var funcMap = template.FuncMap{
	// dict creates a map from key-value pairs, useful for passing multiple values to nested templates
	"dict": func(values ...any) map[string]any {
		if len(values)%2 != 0 {
			return nil
		}
		m := make(map[string]any, len(values)/2)
		for i := 0; i < len(values); i += 2 {
			key, ok := values[i].(string)
			if !ok {
				continue
			}
			m[key] = values[i+1]
		}
		return m
	},
	"coord": func(v float64) string {
		return fmt.Sprintf("%.6f", v)
	},
	"date": func(ms int64) string {
		return time.UnixMilli(ms).Format("1/2/2006")
	},
	// photo marks an inline image data URL as safe for src attributes.
	"photo": func(sp models.Spot) template.URL {
		if url, ok := sp.PhotoDataURL(); ok {
			return template.URL(url)
		}
		return ""
	},
}

// Renderer manages HTML fragment templates.
type Renderer struct {
	templates *template.Template
}

// NewRenderer parses the embedded fragment templates.
func NewRenderer() (*Renderer, error) {
	tmpl, err := template.New("").Funcs(funcMap).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Renderer{templates: tmpl}, nil
}

// Render renders a named template to a string.
func (r *Renderer) Render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := r.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Page is the data behind the full index page.
type Page struct {
	Map   mapsurface.Snapshot
	Spots []models.Spot
}

// RenderPage writes the index page.
func (r *Renderer) RenderPage(w io.Writer, page Page) error {
	return r.templates.ExecuteTemplate(w, "index", page)
}
