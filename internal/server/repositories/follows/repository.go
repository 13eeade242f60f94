package follows

import (
	"context"

	"github.com/joaopapereira/crates.io/internal/server/models"
)

type Repository interface {
	// Insert is a no-op when the follow already exists.
	Insert(ctx context.Context, f models.Follow) error
	Delete(ctx context.Context, f models.Follow) error
	Exists(ctx context.Context, f models.Follow) (bool, error)
}
