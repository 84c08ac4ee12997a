package checksum

import (
	"testing"

	"github.com/starford/spotmap/internal/models"
)

func TestSum(t *testing.T) {
	// SHA-256 of the empty string.
	want := "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if got := Sum(nil); got != want {
		t.Errorf("Sum(nil) = %s", got)
	}
}

func TestSpotChangesWithContent(t *testing.T) {
	a := models.Spot{ID: "1", Title: "Cafe", CreatedAt: 1, UpdatedAt: 1}
	b := a
	if Spot(a) != Spot(b) {
		t.Fatal("identical spots hash differently")
	}
	b.UpdatedAt = 2
	if Spot(a) == Spot(b) {
		t.Error("updatedAt change not reflected")
	}
	if got := ETag("abc"); got != `"abc"` {
		t.Errorf("ETag = %s", got)
	}
}
