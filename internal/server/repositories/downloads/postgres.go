package downloads

import (
	"context"
	"fmt"
	"time"

	"github.com/joaopapereira/crates.io/internal/dbx"
	"github.com/joaopapereira/crates.io/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Increment(ctx context.Context, versionID int64, date string) error {
	update := `UPDATE version_downloads SET downloads = downloads + 1
		WHERE version_id = $1 AND date = $2::date`

	res, err := r.db.ExecContext(ctx, update, versionID, date)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}

	// A concurrent first download of the day may win the insert; that hit
	// is dropped rather than retried.
	insert := `INSERT INTO version_downloads (version_id, date) VALUES ($1, $2::date)
		ON CONFLICT DO NOTHING`

	if _, err := r.db.ExecContext(ctx, insert, versionID, date); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Recent(ctx context.Context, versionIDs []int64, since string) ([]models.VersionDownload, error) {
	query := `SELECT version_id, downloads, counted, date FROM version_downloads
		WHERE version_id = ANY($1::bigint[]) AND date > $2::date
		ORDER BY date ASC, version_id ASC`

	rows, err := r.db.QueryContext(ctx, query, dbx.Int64Array(versionIDs), since)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.VersionDownload
	for rows.Next() {
		var (
			d    models.VersionDownload
			date time.Time
		)
		if err := rows.Scan(&d.VersionID, &d.Downloads, &d.Counted, &date); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		d.Date = date
		result = append(result, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) ExtraByDay(ctx context.Context, crateID int64, exclude []int64, since string) ([]models.ExtraDownload, error) {
	query := `SELECT to_char(version_downloads.date, 'YYYY-MM-DD'), SUM(version_downloads.downloads)
		FROM version_downloads
		JOIN versions ON versions.id = version_downloads.version_id
		WHERE versions.crate_id = $1
			AND NOT (version_downloads.version_id = ANY($2::bigint[]))
			AND version_downloads.date > $3::date
		GROUP BY version_downloads.date
		ORDER BY version_downloads.date ASC`

	rows, err := r.db.QueryContext(ctx, query, crateID, dbx.Int64Array(exclude), since)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.ExtraDownload
	for rows.Next() {
		var d models.ExtraDownload
		if err := rows.Scan(&d.Date, &d.Downloads); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		result = append(result, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) Rollup(ctx context.Context, today string) (int64, error) {
	query := `WITH pending AS (
			SELECT version_id, date, downloads - counted AS amt FROM version_downloads
			WHERE NOT processed AND downloads <> counted
			FOR UPDATE
		), marked AS (
			UPDATE version_downloads SET counted = version_downloads.counted + pending.amt,
				processed = (version_downloads.date < $1::date)
			FROM pending
			WHERE version_downloads.version_id = pending.version_id AND version_downloads.date = pending.date
		), per_version AS (
			SELECT version_id, SUM(amt) AS amt FROM pending GROUP BY version_id
		), bumped AS (
			UPDATE versions SET downloads = versions.downloads + per_version.amt
			FROM per_version WHERE versions.id = per_version.version_id
			RETURNING versions.crate_id, per_version.amt
		), crates_bumped AS (
			UPDATE crates SET downloads = crates.downloads + per_crate.amt
			FROM (SELECT crate_id, SUM(amt) AS amt FROM bumped GROUP BY crate_id) per_crate
			WHERE crates.id = per_crate.crate_id
		)
		UPDATE metadata SET total_downloads = total_downloads + (SELECT COALESCE(SUM(amt), 0) FROM pending)
		RETURNING (SELECT COALESCE(SUM(amt), 0) FROM pending)`

	var n int64
	if err := r.db.QueryRowContext(ctx, query, today).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
