package downloads

import (
	"context"

	"github.com/joaopapereira/crates.io/internal/server/models"
)

// Repository keeps per-day version download counters. Dates are passed as
// "YYYY-MM-DD" strings in the registry's calendar.
type Repository interface {
	// Increment bumps the counter of versionID for date, creating the row
	// on first use. It is not an atomic upsert.
	Increment(ctx context.Context, versionID int64, date string) error
	Recent(ctx context.Context, versionIDs []int64, since string) ([]models.VersionDownload, error)
	// ExtraByDay sums downloads per day for versions of crateID other than
	// the excluded ones.
	ExtraByDay(ctx context.Context, crateID int64, exclude []int64, since string) ([]models.ExtraDownload, error)
	// Rollup folds uncounted daily downloads into the version, crate and
	// global totals and returns how many downloads were folded. Rows dated
	// before today are marked processed.
	Rollup(ctx context.Context, today string) (int64, error)
}
