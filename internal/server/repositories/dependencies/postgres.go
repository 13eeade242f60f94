package dependencies

import (
	"context"
	"encoding/json"
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

func (r *PostgresRepository) Insert(ctx context.Context, d *models.Dependency) (*models.Dependency, error) {
	features := d.Features
	if features == nil {
		features = []string{}
	}
	fj, err := json.Marshal(features)
	if err != nil {
		return nil, fmt.Errorf("encode features: %w", err)
	}

	query := `INSERT INTO dependencies (version_id, crate_id, req, optional, default_features, features, target, kind)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`

	out := *d
	out.Features = features
	err = r.db.QueryRowContext(ctx, query, d.VersionID, d.CrateID, d.Req, d.Optional,
		d.DefaultFeatures, string(fj), d.Target, int(d.Kind)).Scan(&out.ID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &out, nil
}

func (r *PostgresRepository) ReverseDependencies(ctx context.Context, crateID int64, limit, offset int) ([]models.ReverseDependency, int64, error) {
	query := `SELECT dependencies.id, dependencies.version_id, dependencies.crate_id, dependencies.req,
			dependencies.optional, dependencies.default_features, dependencies.features,
			dependencies.target, dependencies.kind,
			crates.name, crates.downloads, COUNT(*) OVER () AS total
		FROM dependencies
		JOIN versions ON versions.id = dependencies.version_id
		JOIN crates ON crates.id = versions.crate_id
		WHERE dependencies.crate_id = $1 AND NOT versions.yanked
		ORDER BY crates.downloads DESC, crates.name ASC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.QueryContext(ctx, query, crateID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var (
		result []models.ReverseDependency
		total  int64
	)
	for rows.Next() {
		var (
			d        models.ReverseDependency
			features []byte
			kind     int
		)
		if err := rows.Scan(&d.ID, &d.VersionID, &d.CrateID, &d.Req, &d.Optional,
			&d.DefaultFeatures, &features, &d.Target, &kind,
			&d.CrateName, &d.CrateDownloads, &total); err != nil {
			return nil, 0, fmt.Errorf("scan error: %w", err)
		}
		if len(features) > 0 {
			if err := json.Unmarshal(features, &d.Features); err != nil {
				return nil, 0, fmt.Errorf("decode features: %w", err)
			}
		}
		d.Kind = models.DependencyKind(kind)
		result = append(result, d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows error: %w", err)
	}
	return result, total, nil
}
