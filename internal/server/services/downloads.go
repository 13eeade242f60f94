package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/joaopapereira/crates.io/internal/common"
	"github.com/joaopapereira/crates.io/internal/dbx"
	"github.com/joaopapereira/crates.io/internal/logging"
	"github.com/joaopapereira/crates.io/internal/server/models"
	"github.com/joaopapereira/crates.io/internal/server/repositories/repomanager"
)

const (
	dateLayout    = "2006-01-02"
	statsVersions = 5
)

// DownloadService counts downloads and reports download history.
type DownloadService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	store       ArtifactStore
	mirror      bool
	window      time.Duration
	logger      logging.Logger
	now         func() time.Time
}

func NewDownloadService(db *sql.DB, m repomanager.RepositoryManager, store ArtifactStore, mirror bool,
	window time.Duration, logger logging.Logger) *DownloadService {
	return &DownloadService{
		db:          db,
		repomanager: m,
		store:       store,
		mirror:      mirror,
		window:      window,
		logger:      logger,
		now:         time.Now,
	}
}

// Download records a download of name@vers and returns where the tarball
// can be fetched. On a mirror, failing to record the download is logged
// and otherwise ignored.
func (s *DownloadService) Download(ctx context.Context, name, vers string) (string, error) {
	if err := s.Increment(ctx, name, vers); err != nil {
		if !s.mirror {
			return "", err
		}
		s.logger.Warn(ctx, "download not counted", "crate", name, "version", vers, "error", err)
	}

	location, err := s.store.LocationFor(ctx, name, vers)
	if err != nil {
		return "", err
	}
	if location == "" {
		return "", fmt.Errorf("%w: crate files not found", common.ErrorNotFound)
	}
	return location, nil
}

// Increment bumps today's counter of name@vers. The update and the
// fallback insert are separate statements; concurrent first downloads of
// the day may lose a count.
func (s *DownloadService) Increment(ctx context.Context, name, vers string) error {
	versionID, err := s.repomanager.Versions(s.db).FindIDByCrateNameAndNum(ctx, name, vers)
	if err != nil {
		return err
	}
	today := s.now().UTC().Format(dateLayout)
	return s.repomanager.Downloads(s.db).Increment(ctx, versionID, today)
}

// Stats returns daily downloads of the newest versions of a crate over the
// configured window, plus the other versions' downloads summed per day.
func (s *DownloadService) Stats(ctx context.Context, name string) (*models.DownloadStats, error) {
	krate, err := s.repomanager.Crates(s.db).FindByName(ctx, name)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, crateNotFound(name)
		}
		return nil, err
	}

	versions, err := s.repomanager.Versions(s.db).ListByCrate(ctx, krate.ID)
	if err != nil {
		return nil, err
	}
	sortVersions(versions)
	if len(versions) > statsVersions {
		versions = versions[:statsVersions]
	}

	ids := make([]int64, 0, len(versions))
	for _, v := range versions {
		ids = append(ids, v.ID)
	}

	since := s.now().UTC().Add(-s.window).Format(dateLayout)

	downloads := s.repomanager.Downloads(s.db)

	recent, err := downloads.Recent(ctx, ids, since)
	if err != nil {
		return nil, err
	}
	extra, err := downloads.ExtraByDay(ctx, krate.ID, ids, since)
	if err != nil {
		return nil, err
	}

	stats := &models.DownloadStats{
		VersionDownloads: make([]models.EncodableVersionDownload, 0, len(recent)),
		ExtraDownloads:   extra,
	}
	for i := range recent {
		stats.VersionDownloads = append(stats.VersionDownloads, recent[i].Encodable())
	}
	if stats.ExtraDownloads == nil {
		stats.ExtraDownloads = []models.ExtraDownload{}
	}
	return stats, nil
}

// Rollup folds uncounted daily downloads into the version, crate and
// registry totals and returns how many were folded.
func (s *DownloadService) Rollup(ctx context.Context) (int64, error) {
	today := s.now().UTC().Format(dateLayout)
	var n int64
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		n, err = s.repomanager.Downloads(tx).Rollup(ctx, today)
		return err
	})
	return n, err
}
