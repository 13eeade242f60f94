package dependencies

import (
	"context"

	"github.com/joaopapereira/crates.io/internal/server/models"
)

type Repository interface {
	Insert(ctx context.Context, d *models.Dependency) (*models.Dependency, error)
	// ReverseDependencies pages through dependencies on crateID declared by
	// non-yanked versions, most downloaded dependents first.
	ReverseDependencies(ctx context.Context, crateID int64, limit, offset int) ([]models.ReverseDependency, int64, error)
}
