package crates

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/joaopapereira/crates.io/internal/common"
	"github.com/joaopapereira/crates.io/internal/dbx"
	"github.com/joaopapereira/crates.io/internal/server/models"
)

const crateColumns = `crates.id, crates.name, crates.updated_at, crates.created_at, crates.downloads,
	crates.description, crates.homepage, crates.documentation, crates.readme,
	crates.license, crates.repository, crates.max_upload_size`

type scanner interface {
	Scan(dest ...any) error
}

func scanCrate(s scanner, extra ...any) (*models.Crate, error) {
	c := &models.Crate{}
	dest := []any{&c.ID, &c.Name, &c.UpdatedAt, &c.CreatedAt, &c.Downloads,
		&c.Description, &c.Homepage, &c.Documentation, &c.Readme,
		&c.License, &c.Repository, &c.MaxUploadSize}
	if err := s.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return c, nil
}

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) FindByName(ctx context.Context, name string) (*models.Crate, error) {
	query := `SELECT ` + crateColumns + ` FROM crates
		WHERE canon_crate_name(crates.name) = canon_crate_name($1)`

	c, err := scanCrate(r.db.QueryRowContext(ctx, query, name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return c, nil
}

func (r *PostgresRepository) FindByID(ctx context.Context, id int64) (*models.Crate, error) {
	query := `SELECT ` + crateColumns + ` FROM crates WHERE crates.id = $1`

	c, err := scanCrate(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return c, nil
}

func (r *PostgresRepository) IsReserved(ctx context.Context, name string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM reserved_crate_names
		WHERE canon_crate_name(name) = canon_crate_name($1))`

	var reserved bool
	if err := r.db.QueryRowContext(ctx, query, name).Scan(&reserved); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return reserved, nil
}

func (r *PostgresRepository) InsertIfAbsent(ctx context.Context, nc *models.NewCrate) (*models.Crate, error) {
	query := `INSERT INTO crates (name, description, homepage, documentation, readme, repository, license, max_upload_size)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT DO NOTHING
		RETURNING ` + crateColumns

	c, err := scanCrate(r.db.QueryRowContext(ctx, query,
		nc.Name, nc.Description, nc.Homepage, nc.Documentation, nc.Readme,
		nc.Repository, nc.License, nc.MaxUploadSize))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return c, nil
}

func (r *PostgresRepository) UpdateByName(ctx context.Context, nc *models.NewCrate) (*models.Crate, error) {
	query := `UPDATE crates SET documentation = $1, homepage = $2, description = $3,
		readme = $4, license = $5, repository = $6, updated_at = now()
		WHERE canon_crate_name(crates.name) = canon_crate_name($7)
		RETURNING ` + crateColumns

	c, err := scanCrate(r.db.QueryRowContext(ctx, query,
		nc.Documentation, nc.Homepage, nc.Description, nc.Readme,
		nc.License, nc.Repository, nc.Name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return c, nil
}

func (r *PostgresRepository) List(ctx context.Context, q ListQuery) ([]models.Crate, int64, error) {
	query, args := BuildListQuery(q)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var (
		result []models.Crate
		total  int64
	)
	for rows.Next() {
		c, err := scanCrate(rows, &total)
		if err != nil {
			return nil, 0, fmt.Errorf("scan error: %w", err)
		}
		result = append(result, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows error: %w", err)
	}
	return result, total, nil
}

func (r *PostgresRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM crates`).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) TotalDownloads(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT total_downloads FROM metadata`).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) Newest(ctx context.Context, limit int) ([]models.Crate, error) {
	return r.top(ctx, `ORDER BY crates.created_at DESC`, limit)
}

func (r *PostgresRepository) MostDownloaded(ctx context.Context, limit int) ([]models.Crate, error) {
	return r.top(ctx, `ORDER BY crates.downloads DESC`, limit)
}

func (r *PostgresRepository) JustUpdated(ctx context.Context, limit int) ([]models.Crate, error) {
	return r.top(ctx, `WHERE crates.updated_at <> crates.created_at ORDER BY crates.updated_at DESC`, limit)
}

func (r *PostgresRepository) top(ctx context.Context, tail string, limit int) ([]models.Crate, error) {
	query := `SELECT ` + crateColumns + ` FROM crates ` + tail + ` LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.Crate
	for rows.Next() {
		c, err := scanCrate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		result = append(result, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return result, nil
}
