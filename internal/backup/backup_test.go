package backup

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/spotmap/internal/apperr"
	"github.com/starford/spotmap/internal/models"
	"github.com/starford/spotmap/internal/store"
	"github.com/starford/spotmap/internal/testutil"
)

var exportTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func seed(t *testing.T, spots ...models.Spot) *store.DB {
	t.Helper()
	st := testutil.TestStore(t)
	for _, sp := range spots {
		if err := st.Save(context.Background(), sp); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}
	return st
}

func tempDir(t *testing.T) *Dir {
	t.Helper()
	d, err := NewDir(filepath.Join(t.TempDir(), "backups"))
	if err != nil {
		t.Fatalf("NewDir: %v", err)
	}
	return d
}

func TestExportOrdersByCreation(t *testing.T) {
	st := seed(t,
		models.Spot{ID: "b", Title: "Second", CreatedAt: 20, UpdatedAt: 20},
		models.Spot{ID: "a", Title: "First", CreatedAt: 10, UpdatedAt: 10},
	)
	snap, err := Export(context.Background(), st, exportTime)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if snap.Version != FormatVersion || snap.ExportedAt != exportTime.UnixMilli() {
		t.Errorf("header = %d/%d", snap.Version, snap.ExportedAt)
	}
	if len(snap.Spots) != 2 || snap.Spots[0].ID != "a" || snap.Spots[1].ID != "b" {
		t.Errorf("spots = %+v", snap.Spots)
	}
	if snap.Checksum == "" {
		t.Error("missing checksum")
	}
}

func TestWriteAndRead(t *testing.T) {
	d := tempDir(t)
	st := seed(t, models.Spot{ID: "a", Title: "Cafe", Latitude: 10, Longitude: 20, Notes: "Good coffee", CreatedAt: 1, UpdatedAt: 1})
	snap, err := Export(context.Background(), st, exportTime)
	if err != nil {
		t.Fatal(err)
	}

	name := FileName(exportTime)
	if name != "spots-20260301-120000.json" {
		t.Errorf("FileName = %q", name)
	}
	path, err := d.Write(name, snap)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if filepath.Dir(path) != d.Root() {
		t.Errorf("written to %s", path)
	}

	got, err := d.Read(name)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(got.Spots) != 1 || got.Spots[0] != snap.Spots[0] {
		t.Errorf("round trip = %+v", got.Spots)
	}

	leftovers, _ := filepath.Glob(filepath.Join(d.Root(), ".spotmap-tmp-*"))
	if len(leftovers) != 0 {
		t.Errorf("temp files left behind: %v", leftovers)
	}
}

func TestWriteRejectsTraversal(t *testing.T) {
	d := tempDir(t)
	for _, name := range []string{"", "../escape.json", "/etc/passwd", "a/b.json"} {
		if _, err := d.Write(name, Snapshot{Version: FormatVersion}); err == nil {
			t.Errorf("Write(%q) succeeded", name)
		}
	}
}

func TestReadDetectsTampering(t *testing.T) {
	d := tempDir(t)
	st := seed(t, models.Spot{ID: "a", Title: "Cafe", CreatedAt: 1, UpdatedAt: 1})
	snap, _ := Export(context.Background(), st, exportTime)
	path, err := d.Write("snap", snap)
	if err != nil {
		t.Fatal(err)
	}

	data, _ := os.ReadFile(path)
	if err := os.WriteFile(path, []byte(strings.Replace(string(data), "Cafe", "Cave", 1)), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := d.Read("snap"); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("Read tampered = %v, want ErrConflict", err)
	}
}

func TestReadRejectsUnknownVersion(t *testing.T) {
	d := tempDir(t)
	path := filepath.Join(d.Root(), "old.json")
	if err := os.WriteFile(path, []byte(`{"version":99,"spots":[]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadFile(path); err == nil {
		t.Error("expected version error")
	}
}

func TestImportSkipsExisting(t *testing.T) {
	src := seed(t,
		models.Spot{ID: "a", Title: "Kept", CreatedAt: 1, UpdatedAt: 1},
		models.Spot{ID: "b", Title: "New", CreatedAt: 2, UpdatedAt: 2},
	)
	snap, _ := Export(context.Background(), src, exportTime)
	snap.Spots = append(snap.Spots, models.Spot{ID: " ", Title: "No id"})

	dst := seed(t, models.Spot{ID: "a", Title: "Local edit", CreatedAt: 1, UpdatedAt: 5})
	res, err := Import(context.Background(), dst, snap)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if res.Imported != 1 || res.Skipped != 2 {
		t.Errorf("result = %+v, want 1 imported 2 skipped", res)
	}

	a, _ := dst.Get(context.Background(), "a")
	if a.Title != "Local edit" {
		t.Errorf("existing record overwritten: %q", a.Title)
	}
	if _, err := dst.Get(context.Background(), "b"); err != nil {
		t.Errorf("imported record missing: %v", err)
	}
}

func TestListAndLatest(t *testing.T) {
	d := tempDir(t)
	if _, err := d.Latest(); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Latest on empty dir = %v", err)
	}

	snap := Snapshot{Version: FormatVersion, Spots: []models.Spot{}}
	older := FileName(exportTime)
	newer := FileName(exportTime.Add(time.Hour))
	for _, name := range []string{older, newer} {
		if _, err := d.Write(name, snap); err != nil {
			t.Fatal(err)
		}
	}
	past := time.Now().Add(-time.Hour)
	_ = os.Chtimes(filepath.Join(d.Root(), older), past, past)
	_ = os.WriteFile(filepath.Join(d.Root(), "notes.txt"), []byte("x"), 0o644)

	names, err := d.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 2 || names[0] != newer {
		t.Errorf("List = %v", names)
	}
	latest, err := d.Latest()
	if err != nil || latest != newer {
		t.Errorf("Latest = %q, %v", latest, err)
	}
}
