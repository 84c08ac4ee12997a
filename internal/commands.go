package internal

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/starford/spotmap/internal/backup"
	"github.com/starford/spotmap/internal/mapsurface"
	"github.com/starford/spotmap/internal/mcpserver"
	"github.com/starford/spotmap/internal/spots"
	"github.com/starford/spotmap/internal/store"
)

// RunMCP serves the spot tools over stdio until the client disconnects.
// Logs must not share stdout with the protocol stream; pass WithLogOutput.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	logger := app.logger()

	db, err := store.Open(app.config.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer db.Close()

	surface, err := mapsurface.New(app.config.Map.SurfaceOptions()...)
	if err != nil {
		return fmt.Errorf("init map: %w", err)
	}
	svc := spots.NewService(db, surface, spots.WithLogger(logger))
	if err := svc.LoadAll(ctx); err != nil {
		return err
	}

	logger.Info("MCP server starting on stdio")
	return mcpserver.New(svc, surface).ServeStdio()
}

// Export writes a snapshot of every spot into the backup directory. An empty
// name picks a timestamped one. It returns the file written.
func Export(ctx context.Context, name string, opts ...Option) (string, error) {
	app, err := newApplication(opts)
	if err != nil {
		return "", err
	}
	logger := app.logger()

	db, err := store.Open(app.config.SQLite.Path)
	if err != nil {
		return "", fmt.Errorf("init store: %w", err)
	}
	defer db.Close()

	dir, err := backup.NewDir(app.config.Backup.Dir)
	if err != nil {
		return "", err
	}

	now := time.Now()
	snap, err := backup.Export(ctx, db, now)
	if err != nil {
		return "", err
	}
	if name == "" {
		name = backup.FileName(now)
	}
	path, err := dir.Write(name, snap)
	if err != nil {
		return "", err
	}
	logger.Info("spots exported", slog.String("path", path), slog.Int("count", len(snap.Spots)))
	return path, nil
}

// Import loads a snapshot into the store, skipping ids that already exist.
// An empty path imports the newest snapshot in the backup directory.
func Import(ctx context.Context, path string, opts ...Option) (backup.Result, error) {
	app, err := newApplication(opts)
	if err != nil {
		return backup.Result{}, err
	}
	logger := app.logger()

	var snap backup.Snapshot
	if path == "" {
		dir, err := backup.NewDir(app.config.Backup.Dir)
		if err != nil {
			return backup.Result{}, err
		}
		latest, err := dir.Latest()
		if err != nil {
			return backup.Result{}, fmt.Errorf("no snapshot in %s: %w", dir.Root(), err)
		}
		path = latest
		snap, err = dir.Read(latest)
		if err != nil {
			return backup.Result{}, err
		}
	} else {
		snap, err = backup.ReadFile(path)
		if err != nil {
			return backup.Result{}, err
		}
	}

	db, err := store.Open(app.config.SQLite.Path)
	if err != nil {
		return backup.Result{}, fmt.Errorf("init store: %w", err)
	}
	defer db.Close()

	res, err := backup.Import(ctx, db, snap)
	if err != nil {
		return res, err
	}
	logger.Info("spots imported",
		slog.String("path", path),
		slog.Int("imported", res.Imported),
		slog.Int("skipped", res.Skipped))
	return res, nil
}
