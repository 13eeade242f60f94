package follows

import (
	"context"
	"fmt"

	"github.com/joaopapereira/crates.io/internal/dbx"
	"github.com/joaopapereira/crates.io/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Insert(ctx context.Context, f models.Follow) error {
	query := `INSERT INTO follows (user_id, crate_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, f.UserID, f.CrateID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, f models.Follow) error {
	query := `DELETE FROM follows WHERE user_id = $1 AND crate_id = $2`
	if _, err := r.db.ExecContext(ctx, query, f.UserID, f.CrateID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Exists(ctx context.Context, f models.Follow) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM follows WHERE user_id = $1 AND crate_id = $2)`
	var ok bool
	if err := r.db.QueryRowContext(ctx, query, f.UserID, f.CrateID).Scan(&ok); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return ok, nil
}
