package teams

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/joaopapereira/crates.io/internal/common"
	"github.com/joaopapereira/crates.io/internal/dbx"
	"github.com/joaopapereira/crates.io/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) FindByLogin(ctx context.Context, login string) (*models.Team, error) {
	query := `SELECT id, login, github_id, name, avatar FROM teams WHERE lower(login) = lower($1)`

	t := &models.Team{}
	err := r.db.QueryRowContext(ctx, query, login).Scan(&t.ID, &t.Login, &t.GithubID, &t.Name, &t.Avatar)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return t, nil
}

func (r *PostgresRepository) Upsert(ctx context.Context, t *models.Team) (*models.Team, error) {
	query := `INSERT INTO teams (login, github_id, name, avatar)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (login) DO UPDATE
			SET github_id = EXCLUDED.github_id, name = EXCLUDED.name, avatar = EXCLUDED.avatar
		RETURNING id`

	out := *t
	if err := r.db.QueryRowContext(ctx, query, t.Login, t.GithubID, t.Name, t.Avatar).Scan(&out.ID); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &out, nil
}
