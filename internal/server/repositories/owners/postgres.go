package owners

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

func (r *PostgresRepository) ListOwners(ctx context.Context, crateID int64) ([]models.Owner, error) {
	users, err := r.listUsers(ctx, crateID)
	if err != nil {
		return nil, err
	}
	teams, err := r.listTeams(ctx, crateID)
	if err != nil {
		return nil, err
	}
	return append(users, teams...), nil
}

func (r *PostgresRepository) listUsers(ctx context.Context, crateID int64) ([]models.Owner, error) {
	query := `SELECT users.id, users.gh_login, users.gh_id, users.name, users.email, users.gh_avatar, users.created_at
		FROM crate_owners
		JOIN users ON users.id = crate_owners.owner_id
		WHERE crate_owners.crate_id = $1 AND crate_owners.owner_kind = $2 AND NOT crate_owners.deleted
		ORDER BY users.id`

	rows, err := r.db.QueryContext(ctx, query, crateID, int(models.OwnerUser))
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.Owner
	for rows.Next() {
		u := &models.User{}
		if err := rows.Scan(&u.ID, &u.GhLogin, &u.GhID, &u.Name, &u.Email, &u.GhAvatar, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		result = append(result, models.UserOwner(u))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) listTeams(ctx context.Context, crateID int64) ([]models.Owner, error) {
	query := `SELECT teams.id, teams.login, teams.github_id, teams.name, teams.avatar
		FROM crate_owners
		JOIN teams ON teams.id = crate_owners.owner_id
		WHERE crate_owners.crate_id = $1 AND crate_owners.owner_kind = $2 AND NOT crate_owners.deleted
		ORDER BY teams.id`

	rows, err := r.db.QueryContext(ctx, query, crateID, int(models.OwnerTeam))
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.Owner
	for rows.Next() {
		t := &models.Team{}
		if err := rows.Scan(&t.ID, &t.Login, &t.GithubID, &t.Name, &t.Avatar); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		result = append(result, models.TeamOwner(t))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) Undelete(ctx context.Context, crateID, ownerID int64, kind models.OwnerKind) (int64, error) {
	query := `UPDATE crate_owners SET deleted = FALSE, updated_at = now()
		WHERE crate_id = $1 AND owner_id = $2 AND owner_kind = $3`

	res, err := r.db.ExecContext(ctx, query, crateID, ownerID, int(kind))
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) Insert(ctx context.Context, co *models.CrateOwner) error {
	query := `INSERT INTO crate_owners (crate_id, owner_id, owner_kind, created_by)
		VALUES ($1, $2, $3, $4)`

	if _, err := r.db.ExecContext(ctx, query, co.CrateID, co.OwnerID, int(co.OwnerKind), co.CreatedBy); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) SoftDelete(ctx context.Context, crateID, ownerID int64, kind models.OwnerKind) error {
	query := `UPDATE crate_owners SET deleted = TRUE, updated_at = now()
		WHERE crate_id = $1 AND owner_id = $2 AND owner_kind = $3`

	if _, err := r.db.ExecContext(ctx, query, crateID, ownerID, int(kind)); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
