package owners

import (
	"context"

	"github.com/joaopapereira/crates.io/internal/server/models"
)

// Repository manages crate_owners rows. Rows are never hard-deleted.
type Repository interface {
	// ListOwners returns the live user and team owners of a crate.
	ListOwners(ctx context.Context, crateID int64) ([]models.Owner, error)
	// Undelete revives an existing grant and reports how many rows matched.
	Undelete(ctx context.Context, crateID, ownerID int64, kind models.OwnerKind) (int64, error)
	Insert(ctx context.Context, co *models.CrateOwner) error
	SoftDelete(ctx context.Context, crateID, ownerID int64, kind models.OwnerKind) error
}
