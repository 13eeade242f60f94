package categories

import (
	"context"
	"fmt"

	"github.com/joaopapereira/crates.io/internal/dbx"
	"github.com/joaopapereira/crates.io/internal/server/models"
)

const categoryColumns = `categories.id, categories.category, categories.slug,
	categories.description, categories.crates_cnt, categories.created_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Sync(ctx context.Context, cats []models.Category) error {
	query := `INSERT INTO categories (category, slug, description) VALUES ($1, $2, $3)
		ON CONFLICT (slug) DO UPDATE SET category = EXCLUDED.category, description = EXCLUDED.description`

	for _, c := range cats {
		if _, err := r.db.ExecContext(ctx, query, c.Category, c.Slug, c.Description); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
	}
	return nil
}

func (r *PostgresRepository) ReplaceForCrate(ctx context.Context, crateID int64, slugs []string) ([]string, error) {
	found, err := r.list(ctx, `SELECT `+categoryColumns+` FROM categories
		WHERE categories.slug = ANY($1::text[])`, dbx.TextArray(slugs))
	if err != nil {
		return nil, err
	}
	known := make(map[string]int64, len(found))
	for _, c := range found {
		known[c.Slug] = c.ID
	}
	var invalid []string
	for _, s := range slugs {
		if _, ok := known[s]; !ok {
			invalid = append(invalid, s)
		}
	}

	release := `UPDATE categories SET crates_cnt = crates_cnt - 1
		WHERE id IN (SELECT category_id FROM crates_categories WHERE crate_id = $1)`
	if _, err := r.db.ExecContext(ctx, release, crateID); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM crates_categories WHERE crate_id = $1`, crateID); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	for _, c := range found {
		if _, err := r.db.ExecContext(ctx,
			`INSERT INTO crates_categories (crate_id, category_id) VALUES ($1, $2)`, crateID, c.ID); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		if _, err := r.db.ExecContext(ctx,
			`UPDATE categories SET crates_cnt = crates_cnt + 1 WHERE id = $1`, c.ID); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
	}
	return invalid, nil
}

func (r *PostgresRepository) ListByCrate(ctx context.Context, crateID int64) ([]models.Category, error) {
	return r.list(ctx, `SELECT `+categoryColumns+` FROM categories
		JOIN crates_categories ON crates_categories.category_id = categories.id
		WHERE crates_categories.crate_id = $1
		ORDER BY categories.category`, crateID)
}

// TopLevel returns root categories with crate counts that include their
// subcategories.
func (r *PostgresRepository) TopLevel(ctx context.Context) ([]models.Category, error) {
	query := `SELECT c.id, c.category, c.slug, c.description,
			(SELECT COALESCE(SUM(sub.crates_cnt), 0) FROM categories sub
				WHERE sub.slug = c.slug OR sub.slug LIKE c.slug || '::%') AS crates_cnt,
			c.created_at
		FROM categories c
		WHERE c.slug NOT LIKE '%::%'
		ORDER BY c.category`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return scanAll(rows)
}

func (r *PostgresRepository) list(ctx context.Context, query string, arg any) ([]models.Category, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return scanAll(rows)
}

type rowsScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

func scanAll(rows rowsScanner) ([]models.Category, error) {
	defer rows.Close()

	var result []models.Category
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Category, &c.Slug, &c.Description, &c.CratesCnt, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return result, nil
}
