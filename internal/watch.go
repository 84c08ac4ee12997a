package internal

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/spotmap/internal/mapsurface"
	pkgconfig "github.com/starford/spotmap/pkg/config"
)

const reloadDebounce = 200 * time.Millisecond

// BasemapSetter receives a reloaded basemap table.
type BasemapSetter interface {
	SetBasemaps(basemaps []mapsurface.Basemap) error
}

// WatchConfig watches the config file and re-applies its map.basemaps section
// to target after every change until ctx is cancelled. The parent directory is
// watched so editors that save by rename are picked up. Invalid files are
// logged and ignored; the previous table stays active.
func WatchConfig(ctx context.Context, path string, target BasemapSetter, logger *slog.Logger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return err
	}

	logger.Info("config watcher: started", slog.String("path", abs))

	// reloadTimer debounces bursts of writes from a single save.
	var reloadTimer *time.Timer
	var reloadCh <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if reloadTimer != nil {
				reloadTimer.Stop()
			}
			logger.Info("config watcher: stopped")
			return nil

		case <-reloadCh:
			reloadCh = nil
			reloadBasemaps(abs, target, logger)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs || ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if reloadTimer == nil {
				reloadTimer = time.NewTimer(reloadDebounce)
			} else {
				reloadTimer.Reset(reloadDebounce)
			}
			reloadCh = reloadTimer.C

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("config watcher: error", slog.String("error", err.Error()))
		}
	}
}

func reloadBasemaps(path string, target BasemapSetter, logger *slog.Logger) {
	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(path, cfg); err != nil {
		logger.Warn("config watcher: reload failed", slog.String("path", path), slog.String("error", err.Error()))
		return
	}
	basemaps := cfg.Map.EffectiveBasemaps()
	if err := target.SetBasemaps(basemaps); err != nil {
		logger.Warn("config watcher: apply basemaps failed", slog.String("error", err.Error()))
		return
	}
	logger.Info("config watcher: basemaps reloaded", slog.Int("count", len(basemaps)))
}

// Refresher re-reads the spot table.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// WatchStore refreshes target whenever the SQLite file at path or its
// write-ahead log changes, so spots written by other processes sharing the
// database (mcp, import) reach the markers and the list.
func WatchStore(ctx context.Context, path string, target Refresher, logger *slog.Logger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return err
	}

	logger.Info("store watcher: started", slog.String("path", abs))

	var refreshTimer *time.Timer
	var refreshCh <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if refreshTimer != nil {
				refreshTimer.Stop()
			}
			logger.Info("store watcher: stopped")
			return nil

		case <-refreshCh:
			refreshCh = nil
			if err := target.Refresh(ctx); err != nil {
				logger.Warn("store watcher: refresh failed", slog.String("error", err.Error()))
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			name := filepath.Clean(ev.Name)
			if (name != abs && name != abs+"-wal") || ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if refreshTimer == nil {
				refreshTimer = time.NewTimer(reloadDebounce)
			} else {
				refreshTimer.Reset(reloadDebounce)
			}
			refreshCh = refreshTimer.C

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("store watcher: error", slog.String("error", err.Error()))
		}
	}
}
