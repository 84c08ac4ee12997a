// Package backup writes and reads JSON snapshots of the spot table.
package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/starford/spotmap/internal/apperr"
	"github.com/starford/spotmap/internal/checksum"
	"github.com/starford/spotmap/internal/models"
	"github.com/starford/spotmap/internal/store"
)

// FormatVersion is the snapshot layout written by Export.
const FormatVersion = 1

const fileExt = ".json"

// Snapshot is the on-disk export. Checksum covers the encoded Spots array.
type Snapshot struct {
	Version    int           `json:"version"`
	ExportedAt int64         `json:"exportedAt"`
	Checksum   string        `json:"checksum"`
	Spots      []models.Spot `json:"spots"`
}

// Result summarizes an import.
type Result struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

// Export reads every spot, oldest first, into a snapshot stamped with now.
func Export(ctx context.Context, st store.SpotStore, now time.Time) (Snapshot, error) {
	all, err := st.GetAll(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("backup: export: %w", err)
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].CreatedAt < all[j].CreatedAt })
	if all == nil {
		all = []models.Spot{}
	}
	sum, err := spotsChecksum(all)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{
		Version:    FormatVersion,
		ExportedAt: now.UnixMilli(),
		Checksum:   sum,
		Spots:      all,
	}, nil
}

// Import inserts every snapshot spot whose id is not already stored.
// Existing records are left untouched.
func Import(ctx context.Context, st store.SpotStore, snap Snapshot) (Result, error) {
	var res Result
	for _, sp := range snap.Spots {
		if strings.TrimSpace(sp.ID) == "" {
			res.Skipped++
			continue
		}
		err := st.Save(ctx, sp)
		switch {
		case err == nil:
			res.Imported++
		case errors.Is(err, apperr.ErrAlreadyExists):
			res.Skipped++
		default:
			return res, fmt.Errorf("backup: import %s: %w", sp.ID, err)
		}
	}
	return res, nil
}

func spotsChecksum(all []models.Spot) (string, error) {
	data, err := json.Marshal(all)
	if err != nil {
		return "", fmt.Errorf("backup: encode spots: %w", err)
	}
	return checksum.Sum(data), nil
}

// Dir stores snapshot files under a single directory.
type Dir struct {
	root string // absolute path to the backup directory
}

// NewDir creates the backup directory if needed and returns a Dir rooted at it.
func NewDir(root string) (*Dir, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("backup: resolve root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("backup: mkdir: %w", err)
	}
	return &Dir{root: abs}, nil
}

// Root returns the absolute backup directory.
func (d *Dir) Root() string { return d.root }

// path resolves a snapshot file name against the root and rejects
// anything that escapes it.
func (d *Dir) path(name string) (string, error) {
	if name == "" || filepath.IsAbs(name) || filepath.Base(name) != filepath.Clean(name) {
		return "", fmt.Errorf("backup: invalid snapshot name: %q", name)
	}
	if !strings.HasSuffix(name, fileExt) {
		name += fileExt
	}
	return filepath.Join(d.root, name), nil
}

// FileName returns the default snapshot name for an export taken at t.
func FileName(t time.Time) string {
	return "spots-" + t.UTC().Format("20060102-150405") + fileExt
}

// Write atomically writes snap as name: tmp file → fsync → rename.
// It returns the absolute path written.
func (d *Dir) Write(name string, snap Snapshot) (string, error) {
	abs, err := d.path(name)
	if err != nil {
		return "", err
	}
	content, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", fmt.Errorf("backup: encode: %w", err)
	}

	tmp, err := os.CreateTemp(d.root, ".spotmap-tmp-*")
	if err != nil {
		return "", fmt.Errorf("backup: create temp: %w", err)
	}
	tmpName := tmp.Name()

	// Clean up on any failure path.
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(append(content, '\n')); err != nil {
		return "", fmt.Errorf("backup: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return "", fmt.Errorf("backup: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("backup: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return "", fmt.Errorf("backup: rename: %w", err)
	}
	success = true
	return abs, nil
}

// Read loads a snapshot by name and verifies its checksum.
func (d *Dir) Read(name string) (Snapshot, error) {
	abs, err := d.path(name)
	if err != nil {
		return Snapshot{}, err
	}
	return ReadFile(abs)
}

// ReadFile loads a snapshot from an arbitrary path and verifies its checksum.
func ReadFile(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("backup: read %s: %w", path, err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("backup: parse %s: %w", path, err)
	}
	if snap.Version != FormatVersion {
		return Snapshot{}, fmt.Errorf("backup: unsupported version %d", snap.Version)
	}
	if snap.Checksum != "" {
		sum, err := spotsChecksum(snap.Spots)
		if err != nil {
			return Snapshot{}, err
		}
		if sum != snap.Checksum {
			return Snapshot{}, fmt.Errorf("backup: %s: %w", path, apperr.ErrConflict)
		}
	}
	return snap, nil
}

// List returns snapshot file names, newest first.
func (d *Dir) List() ([]string, error) {
	type entry struct {
		name string
		mod  time.Time
	}
	var entries []entry
	err := filepath.WalkDir(d.root, func(p string, de fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if de.IsDir() {
			if p != d.root {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(de.Name(), fileExt) || strings.HasPrefix(de.Name(), ".") {
			return nil
		}
		info, err := de.Info()
		if err != nil {
			return err
		}
		entries = append(entries, entry{name: de.Name(), mod: info.ModTime()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("backup: list: %w", err)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].mod.Equal(entries[j].mod) {
			return entries[i].name > entries[j].name
		}
		return entries[i].mod.After(entries[j].mod)
	})
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.name
	}
	return names, nil
}

// Latest returns the newest snapshot name or apperr.ErrNotFound.
func (d *Dir) Latest() (string, error) {
	names, err := d.List()
	if err != nil {
		return "", err
	}
	if len(names) == 0 {
		return "", apperr.ErrNotFound
	}
	return names[0], nil
}
