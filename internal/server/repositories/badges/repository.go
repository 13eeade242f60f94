package badges

import (
	"context"

	"github.com/joaopapereira/crates.io/internal/server/models"
)

type Repository interface {
	ReplaceForCrate(ctx context.Context, crateID int64, badges []models.Badge) error
	ListByCrate(ctx context.Context, crateID int64) ([]models.Badge, error)
}
