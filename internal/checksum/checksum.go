// Package checksum computes content digests used as entity tags.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/starford/spotmap/internal/models"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Spot returns the digest of the spot's JSON encoding. Any field change,
// including updatedAt, changes the digest.
func Spot(sp models.Spot) string {
	data, err := json.Marshal(sp)
	if err != nil {
		return ""
	}
	return Sum(data)
}

// ETag formats a digest as a quoted entity tag.
func ETag(sum string) string {
	return `"` + sum + `"`
}
