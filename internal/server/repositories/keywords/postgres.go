package keywords

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

func (r *PostgresRepository) ReplaceForCrate(ctx context.Context, crateID int64, keywords []string) error {
	release := `UPDATE keywords SET crates_cnt = crates_cnt - 1
		WHERE id IN (SELECT keyword_id FROM crates_keywords WHERE crate_id = $1)`
	if _, err := r.db.ExecContext(ctx, release, crateID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM crates_keywords WHERE crate_id = $1`, crateID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	upsert := `INSERT INTO keywords (keyword, crates_cnt) VALUES ($1, 1)
		ON CONFLICT (keyword) DO UPDATE SET crates_cnt = keywords.crates_cnt + 1
		RETURNING id`
	link := `INSERT INTO crates_keywords (crate_id, keyword_id) VALUES ($1, $2)`

	for _, kw := range keywords {
		var id int64
		if err := r.db.QueryRowContext(ctx, upsert, kw).Scan(&id); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		if _, err := r.db.ExecContext(ctx, link, crateID, id); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
	}
	return nil
}

func (r *PostgresRepository) ListByCrate(ctx context.Context, crateID int64) ([]models.Keyword, error) {
	return r.list(ctx, `SELECT keywords.id, keywords.keyword, keywords.crates_cnt, keywords.created_at
		FROM keywords
		JOIN crates_keywords ON crates_keywords.keyword_id = keywords.id
		WHERE crates_keywords.crate_id = $1
		ORDER BY keywords.keyword`, crateID)
}

func (r *PostgresRepository) Popular(ctx context.Context, limit int) ([]models.Keyword, error) {
	return r.list(ctx, `SELECT id, keyword, crates_cnt, created_at FROM keywords
		ORDER BY crates_cnt DESC, keyword ASC LIMIT $1`, limit)
}

func (r *PostgresRepository) list(ctx context.Context, query string, arg any) ([]models.Keyword, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.Keyword
	for rows.Next() {
		var k models.Keyword
		if err := rows.Scan(&k.ID, &k.Keyword, &k.CratesCnt, &k.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		result = append(result, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return result, nil
}
