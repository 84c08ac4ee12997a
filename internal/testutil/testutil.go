// Package testutil provides shared test helpers for setting up stores and
// map surfaces.
package testutil

import (
	"os"
	"sync"
	"testing"
	"time"

	"github.com/starford/spotmap/internal/mapsurface"
	"github.com/starford/spotmap/internal/store"
)

// TestStore creates a temporary SQLite spot store that is automatically
// cleaned up.
func TestStore(t *testing.T) *store.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "spotmap-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := store.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestSurface creates a map surface with the built-in basemaps.
func TestSurface(t *testing.T, opts ...mapsurface.Option) *mapsurface.Surface {
	t.Helper()
	s, err := mapsurface.New(opts...)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

// Clock is a manually advanced time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock returns a clock frozen at start.
func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

// Now returns the current fake time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}
