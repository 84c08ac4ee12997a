package internal

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/spotmap/internal/mapsurface"
	pkgconfig "github.com/starford/spotmap/pkg/config"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should pass: %v", err)
	}
	if got := cfg.App.HTTP.Address(); got != ":8080" {
		t.Errorf("Address = %q", got)
	}
	if n := len(cfg.Map.EffectiveBasemaps()); n != 4 {
		t.Errorf("effective basemaps = %d, want built-in 4", n)
	}
}

func TestHTTPConfig_PortRange(t *testing.T) {
	for _, port := range []int{0, -1, 70000} {
		cfg := HTTPConfig{Port: port}
		if err := cfg.Validate(); err == nil {
			t.Errorf("port %d should fail validation", port)
		}
	}
}

func TestMapConfig_StreetAlias(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Map.DefaultBasemap = "street"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("street alias should pass: %v", err)
	}
}

func TestMapConfig_UnknownDefault(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Map.DefaultBasemap = "paper"
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "not configured") {
		t.Errorf("Validate = %v", err)
	}
}

func TestMapConfig_InvalidBasemap(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Map.DefaultBasemap = "paper"
	cfg.Map.Basemaps = []mapsurface.Basemap{{Name: "paper", URL: "https://x/{z}/{x}/{y}.png", Attribution: "x", MaxZoom: 30}}
	if err := cfg.Validate(); err == nil {
		t.Error("max zoom above the limit should fail")
	}
}

func TestMapConfig_DuplicateBasemap(t *testing.T) {
	b := mapsurface.Basemap{Name: "paper", URL: "https://x/{z}/{x}/{y}.png", Attribution: "x", MaxZoom: 10}
	cfg := NewDefaultConfig()
	cfg.Map.DefaultBasemap = "paper"
	cfg.Map.Basemaps = []mapsurface.Basemap{b, b}
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Errorf("Validate = %v", err)
	}
}

func TestMapConfig_CenterRange(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Map.Center.Lat = 91
	if err := cfg.Validate(); err == nil {
		t.Error("latitude 91 should fail")
	}
}

func TestFullConfig_BackupValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Backup.Dir = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("full config validate should catch backup error")
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
app:
  log_level: debug
  http:
    port: 9090
sqlite:
  path: /tmp/spots.db
map:
  center:
    lat: 51.5
    lng: -0.12
  zoom: 12
  default_basemap: dark
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(path, cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.LogLevel != slog.LevelDebug || cfg.App.HTTP.Port != 9090 {
		t.Errorf("app = %+v", cfg.App)
	}
	if cfg.Map.Center.Lat != 51.5 || cfg.Map.Zoom != 12 || cfg.Map.DefaultBasemap != "dark" {
		t.Errorf("map = %+v", cfg.Map)
	}
	if cfg.Backup.Dir != "./backups" {
		t.Errorf("backup default lost: %q", cfg.Backup.Dir)
	}

	s, err := mapsurface.New(cfg.Map.SurfaceOptions()...)
	if err != nil {
		t.Fatal(err)
	}
	if s.ActiveBasemap().Name != "dark" || s.View().Zoom != 12 {
		t.Errorf("surface = %s zoom %d", s.ActiveBasemap().Name, s.View().Zoom)
	}
}

func TestMapConfig_BasemapNamesIgnoreCase(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Map.DefaultBasemap = "paper"
	cfg.Map.Basemaps = []mapsurface.Basemap{
		{Name: "Paper", URL: "https://x/{z}/{x}/{y}.png", Attribution: "x", MaxZoom: 10},
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	s, err := mapsurface.New(cfg.Map.SurfaceOptions()...)
	if err != nil {
		t.Fatalf("surface from config: %v", err)
	}
	if got := s.ActiveBasemap().Name; got != "paper" {
		t.Errorf("active = %q", got)
	}

	cfg.Map.Basemaps = append(cfg.Map.Basemaps, mapsurface.Basemap{Name: "PAPER", URL: "https://y/{z}/{x}/{y}.png", Attribution: "y", MaxZoom: 10})
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Errorf("case-only duplicate: %v", err)
	}
}
