package crates

import (
	"context"

	"github.com/joaopapereira/crates.io/internal/server/models"
)

// Repository persists crate rows. Every lookup by name compares canonical
// forms.
type Repository interface {
	FindByName(ctx context.Context, name string) (*models.Crate, error)
	FindByID(ctx context.Context, id int64) (*models.Crate, error)
	IsReserved(ctx context.Context, name string) (bool, error)
	// InsertIfAbsent returns (nil, nil) when a crate with the same canonical
	// name already exists.
	InsertIfAbsent(ctx context.Context, c *models.NewCrate) (*models.Crate, error)
	UpdateByName(ctx context.Context, c *models.NewCrate) (*models.Crate, error)
	List(ctx context.Context, q ListQuery) ([]models.Crate, int64, error)
	Count(ctx context.Context) (int64, error)
	TotalDownloads(ctx context.Context) (int64, error)
	Newest(ctx context.Context, limit int) ([]models.Crate, error)
	MostDownloaded(ctx context.Context, limit int) ([]models.Crate, error)
	JustUpdated(ctx context.Context, limit int) ([]models.Crate, error)
}
