package badges

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

func (r *PostgresRepository) ReplaceForCrate(ctx context.Context, crateID int64, badges []models.Badge) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM badges WHERE crate_id = $1`, crateID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	query := `INSERT INTO badges (crate_id, badge_type, attributes) VALUES ($1, $2, $3)`
	for _, b := range badges {
		attrs, err := json.Marshal(b.Attributes)
		if err != nil {
			return fmt.Errorf("encode attributes: %w", err)
		}
		if _, err := r.db.ExecContext(ctx, query, crateID, b.BadgeType, string(attrs)); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
	}
	return nil
}

func (r *PostgresRepository) ListByCrate(ctx context.Context, crateID int64) ([]models.Badge, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT badge_type, attributes FROM badges WHERE crate_id = $1 ORDER BY badge_type`, crateID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.Badge
	for rows.Next() {
		var (
			b     models.Badge
			attrs []byte
		)
		if err := rows.Scan(&b.BadgeType, &attrs); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		if err := json.Unmarshal(attrs, &b.Attributes); err != nil {
			return nil, fmt.Errorf("decode attributes: %w", err)
		}
		result = append(result, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return result, nil
}
