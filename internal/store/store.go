package store

import (
	"context"

	"github.com/starford/spotmap/internal/models"
)

// SpotStore is the durable key-value table of spots keyed by id.
// Consumers should depend on this interface rather than the concrete *DB.
type SpotStore interface {
	Save(ctx context.Context, spot models.Spot) error
	Get(ctx context.Context, id string) (models.Spot, error)
	GetAll(ctx context.Context) ([]models.Spot, error)
	Update(ctx context.Context, id string, spot models.Spot) error
	Delete(ctx context.Context, id string) error
	Close() error
}

// Verify *DB satisfies SpotStore at compile time.
var _ SpotStore = (*DB)(nil)
