package categories

import (
	"context"

	"github.com/joaopapereira/crates.io/internal/server/models"
)

type Repository interface {
	// Sync upserts the catalogue by slug.
	Sync(ctx context.Context, cats []models.Category) error
	// ReplaceForCrate links the crate to the known slugs and returns the
	// ones that matched no category.
	ReplaceForCrate(ctx context.Context, crateID int64, slugs []string) ([]string, error)
	ListByCrate(ctx context.Context, crateID int64) ([]models.Category, error)
	TopLevel(ctx context.Context) ([]models.Category, error)
}
