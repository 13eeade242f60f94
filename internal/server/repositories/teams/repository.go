package teams

import (
	"context"

	"github.com/joaopapereira/crates.io/internal/server/models"
)

type Repository interface {
	FindByLogin(ctx context.Context, login string) (*models.Team, error)
	// Upsert inserts a team or refreshes the stored one with the same login.
	Upsert(ctx context.Context, t *models.Team) (*models.Team, error)
}
