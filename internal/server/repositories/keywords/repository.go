package keywords

import (
	"context"

	"github.com/joaopapereira/crates.io/internal/server/models"
)

type Repository interface {
	// ReplaceForCrate sets the crate's keywords, creating missing ones and
	// keeping crates_cnt in step. Keywords are expected lowercased.
	ReplaceForCrate(ctx context.Context, crateID int64, keywords []string) error
	ListByCrate(ctx context.Context, crateID int64) ([]models.Keyword, error)
	Popular(ctx context.Context, limit int) ([]models.Keyword, error)
}
