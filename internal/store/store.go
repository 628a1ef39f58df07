package store

import (
	"context"

	"github.com/topwebdesignco/advanced-schema-manager/internal/models"
)

// SchemaStore defines the persistence operations for schema records.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with fakes.
type SchemaStore interface {
	Create(ctx context.Context, rec models.SchemaRecord) (int64, error)
	Update(ctx context.Context, id int64, rec models.SchemaRecord) error
	Delete(ctx context.Context, id int64) error
	Get(ctx context.Context, id int64) (*models.SchemaRecord, error)
	List(ctx context.Context, orderBy string) ([]models.SchemaRecord, error)
	ListByTarget(ctx context.Context, sel models.Selector) ([]models.SchemaRecord, error)
}

// Verify *DB satisfies SchemaStore at compile time.
var _ SchemaStore = (*DB)(nil)
