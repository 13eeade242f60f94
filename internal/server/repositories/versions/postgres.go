package versions

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/joaopapereira/crates.io/internal/common"
	"github.com/joaopapereira/crates.io/internal/dbx"
	"github.com/joaopapereira/crates.io/internal/server/models"
)

const uniqueViolation = "23505"

const versionColumns = `versions.id, versions.crate_id, versions.num, versions.updated_at,
	versions.created_at, versions.downloads, versions.features, versions.authors, versions.yanked`

type scanner interface {
	Scan(dest ...any) error
}

func scanVersion(s scanner) (*models.Version, error) {
	v := &models.Version{}
	var features, authors []byte
	if err := s.Scan(&v.ID, &v.CrateID, &v.Num, &v.UpdatedAt, &v.CreatedAt,
		&v.Downloads, &features, &authors, &v.Yanked); err != nil {
		return nil, err
	}
	if len(features) > 0 {
		if err := json.Unmarshal(features, &v.Features); err != nil {
			return nil, fmt.Errorf("decode features: %w", err)
		}
	}
	if len(authors) > 0 {
		if err := json.Unmarshal(authors, &v.Authors); err != nil {
			return nil, fmt.Errorf("decode authors: %w", err)
		}
	}
	return v, nil
}

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) FindByNum(ctx context.Context, crateID int64, num string) (*models.Version, error) {
	query := `SELECT ` + versionColumns + ` FROM versions
		WHERE versions.crate_id = $1 AND versions.num = $2`

	v, err := scanVersion(r.db.QueryRowContext(ctx, query, crateID, num))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return v, nil
}

func (r *PostgresRepository) Insert(ctx context.Context, v *models.Version) (*models.Version, error) {
	features := v.Features
	if features == nil {
		features = map[string][]string{}
	}
	authors := v.Authors
	if authors == nil {
		authors = []string{}
	}
	fj, err := json.Marshal(features)
	if err != nil {
		return nil, fmt.Errorf("encode features: %w", err)
	}
	aj, err := json.Marshal(authors)
	if err != nil {
		return nil, fmt.Errorf("encode authors: %w", err)
	}

	query := `INSERT INTO versions (crate_id, num, features, authors)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + versionColumns

	out, err := scanVersion(r.db.QueryRowContext(ctx, query, v.CrateID, v.Num, string(fj), string(aj)))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, common.ErrVersionExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) ListByCrate(ctx context.Context, crateID int64) ([]models.Version, error) {
	query := `SELECT ` + versionColumns + ` FROM versions
		WHERE versions.crate_id = $1
		ORDER BY versions.created_at DESC, versions.id DESC`

	rows, err := r.db.QueryContext(ctx, query, crateID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.Version
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		result = append(result, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) NonYankedNums(ctx context.Context, crateIDs []int64) (map[int64][]string, error) {
	result := make(map[int64][]string, len(crateIDs))
	if len(crateIDs) == 0 {
		return result, nil
	}

	query := `SELECT crate_id, num FROM versions
		WHERE crate_id = ANY($1::bigint[]) AND NOT yanked`

	rows, err := r.db.QueryContext(ctx, query, dbx.Int64Array(crateIDs))
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id  int64
			num string
		)
		if err := rows.Scan(&id, &num); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		result[id] = append(result[id], num)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) FindIDByCrateNameAndNum(ctx context.Context, crateName, num string) (int64, error) {
	query := `SELECT versions.id FROM versions
		JOIN crates ON crates.id = versions.crate_id
		WHERE canon_crate_name(crates.name) = canon_crate_name($1) AND versions.num = $2`

	var id int64
	if err := r.db.QueryRowContext(ctx, query, crateName, num).Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, common.ErrorNotFound
		}
		return 0, fmt.Errorf("db error: %w", err)
	}
	return id, nil
}
