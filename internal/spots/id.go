package spots

import "github.com/google/uuid"

// IDGenerator produces unique spot ids.
type IDGenerator func() string

// NewID returns a UUIDv7: a millisecond timestamp followed by random bits.
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}
