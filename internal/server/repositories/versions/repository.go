package versions

import (
	"context"

	"github.com/joaopapereira/crates.io/internal/server/models"
)

type Repository interface {
	FindByNum(ctx context.Context, crateID int64, num string) (*models.Version, error)
	Insert(ctx context.Context, v *models.Version) (*models.Version, error)
	ListByCrate(ctx context.Context, crateID int64) ([]models.Version, error)
	// NonYankedNums returns the non-yanked version numbers of each crate.
	NonYankedNums(ctx context.Context, crateIDs []int64) (map[int64][]string, error)
	FindIDByCrateNameAndNum(ctx context.Context, crateName, num string) (int64, error)
}
