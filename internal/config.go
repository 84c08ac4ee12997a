package internal

import (
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/spotmap/internal/mapsurface"
	"github.com/starford/spotmap/internal/models"
)

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	SQLite SQLiteConfig      `yaml:"sqlite"`
	Map    MapConfig         `yaml:"map"`
	Backup BackupConfig      `yaml:"backup"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Map.Validate(); err != nil {
		return err
	}
	return c.Backup.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// MapConfig holds the initial view and the basemap table.
//
// An empty Basemaps list means the built-in tile sources. DefaultBasemap must
// name one of the effective basemaps.
type MapConfig struct {
	Center         models.LatLng        `yaml:"center"`
	Zoom           int                  `yaml:"zoom"`
	DefaultBasemap string               `yaml:"default_basemap"`
	Basemaps       []mapsurface.Basemap `yaml:"basemaps"`
}

// Validate validates the map configuration.
func (c *MapConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Zoom, validation.Min(0), validation.Max(mapsurface.MaxZoomLimit)),
		validation.Field(&c.DefaultBasemap, validation.Required),
	); err != nil {
		return err
	}
	if err := validation.Validate(c.Center.Lat,
		validation.Min(-90.0), validation.Max(90.0)); err != nil {
		return fmt.Errorf("map: center latitude: %w", err)
	}
	if err := validation.Validate(c.Center.Lng,
		validation.Min(-180.0), validation.Max(180.0)); err != nil {
		return fmt.Errorf("map: center longitude: %w", err)
	}

	seen := make(map[string]bool)
	found := false
	want := mapsurface.NormalizeName(c.DefaultBasemap)
	for _, b := range c.EffectiveBasemaps() {
		if err := b.Validate(); err != nil {
			return fmt.Errorf("map: basemap %q: %w", b.Name, err)
		}
		name := mapsurface.NormalizeName(b.Name)
		if seen[name] {
			return fmt.Errorf("map: duplicate basemap %q", b.Name)
		}
		seen[name] = true
		if name == want {
			found = true
		}
	}
	if !found {
		return fmt.Errorf("map: default basemap %q is not configured", c.DefaultBasemap)
	}
	return nil
}

// EffectiveBasemaps returns the configured basemaps or the built-in ones.
func (c *MapConfig) EffectiveBasemaps() []mapsurface.Basemap {
	if len(c.Basemaps) == 0 {
		return mapsurface.DefaultBasemaps()
	}
	return c.Basemaps
}

// SurfaceOptions converts the map section into surface options.
func (c *MapConfig) SurfaceOptions() []mapsurface.Option {
	return []mapsurface.Option{
		mapsurface.WithView(c.Center, c.Zoom),
		mapsurface.WithBasemaps(c.EffectiveBasemaps()),
		mapsurface.WithDefaultBasemap(c.DefaultBasemap),
	}
}

// BackupConfig holds the directory for exported snapshots.
type BackupConfig struct {
	Dir string `yaml:"dir"`
}

// Validate validates the backup configuration.
func (c *BackupConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Dir, validation.Required),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		SQLite: SQLiteConfig{
			Path: "./spotmap.db",
		},
		Map: MapConfig{
			Center:         models.LatLng{Lat: 20, Lng: 0},
			Zoom:           2,
			DefaultBasemap: mapsurface.BasemapStreets,
		},
		Backup: BackupConfig{
			Dir: "./backups",
		},
	}
}
