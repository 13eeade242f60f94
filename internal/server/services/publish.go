package services

import (
	"context"
	"database/sql"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/joaopapereira/crates.io/internal/common"
	"github.com/joaopapereira/crates.io/internal/dbx"
	"github.com/joaopapereira/crates.io/internal/logging"
	"github.com/joaopapereira/crates.io/internal/server/canon"
	"github.com/joaopapereira/crates.io/internal/server/index"
	"github.com/joaopapereira/crates.io/internal/server/models"
	"github.com/joaopapereira/crates.io/internal/server/repositories/repomanager"
)

const (
	maxKeywords   = 5
	maxCategories = 5
)

// PublishService admits new crate versions into the registry.
type PublishService struct {
	db            *sql.DB
	repomanager   repomanager.RepositoryManager
	crates        *CrateService
	teams         TeamChecker
	store         ArtifactStore
	index         index.Appender
	maxUploadSize int64
	logger        logging.Logger
}

func NewPublishService(db *sql.DB, m repomanager.RepositoryManager, crates *CrateService, teams TeamChecker,
	store ArtifactStore, appender index.Appender, maxUploadSize int64, logger logging.Logger) *PublishService {
	return &PublishService{
		db:            db,
		repomanager:   m,
		crates:        crates,
		teams:         teams,
		store:         store,
		index:         appender,
		maxUploadSize: maxUploadSize,
		logger:        logger,
	}
}

// Publish validates up, records the crate and version, uploads the tarball
// and appends the version to the index. Everything written to the database
// commits only once the index append succeeded; if anything fails after the
// upload, the tarball is deleted again.
func (s *PublishService) Publish(ctx context.Context, actor *models.User, up *Upload) (*models.PublishResult, error) {
	meta := &up.Metadata

	if missing := meta.MissingFields(); len(missing) > 0 {
		return nil, common.Human("missing or empty metadata fields: %s. Please see http://doc.crates.io/manifest.html#package-metadata for how to upload metadata",
			strings.Join(missing, ", "))
	}
	if err := validateMetadata(meta); err != nil {
		return nil, err
	}

	nc := meta.NewCrate()
	if err := s.crates.Validate(&nc); err != nil {
		return nil, err
	}

	var (
		result   *models.PublishResult
		appended bool
	)

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		krate, err := s.crates.createOrUpdate(ctx, tx, &nc, meta.HasLicenseFile(), actor.ID)
		if err != nil {
			return err
		}

		owners, err := s.repomanager.Owners(tx).ListOwners(ctx, krate.ID)
		if err != nil {
			return err
		}
		rights, err := ResolveRights(ctx, s.teams, owners, actor)
		if err != nil {
			return err
		}
		if rights < RightsPublish {
			return common.Forbidden("crate name has already been claimed by another user")
		}
		if krate.Name != meta.Name {
			return common.Human("crate was previously named `%s`", krate.Name)
		}

		maxSize := s.maxUploadSize
		if krate.MaxUploadSize != nil {
			maxSize = *krate.MaxUploadSize
		}
		if up.Length > maxSize {
			return common.HumanKind(common.ErrUploadTooLarge, "max upload size is: %d", maxSize)
		}

		version, deps, err := s.crates.addVersion(ctx, tx, krate.ID, meta.Vers, meta.Features, meta.Authors, meta.Deps)
		if err != nil {
			return err
		}

		if err := s.repomanager.Keywords(tx).ReplaceForCrate(ctx, krate.ID, normalizeKeywords(meta.Keywords)); err != nil {
			return err
		}

		invalidCategories, err := s.repomanager.Categories(tx).ReplaceForCrate(ctx, krate.ID, meta.Categories)
		if err != nil {
			return err
		}
		if invalidCategories == nil {
			invalidCategories = []string{}
		}

		badges, invalidBadges := ValidateBadges(meta.Badges)
		if err := s.repomanager.Badges(tx).ReplaceForCrate(ctx, krate.ID, badges); err != nil {
			return err
		}

		nums, err := s.repomanager.Versions(tx).NonYankedNums(ctx, []int64{krate.ID})
		if err != nil {
			return err
		}
		maxVersion := models.MaxVersion(nums[krate.ID])

		cksum, bomb, err := s.store.Upload(ctx, krate.Name, version.Num, up.Tarball, maxSize)
		if err != nil {
			return err
		}
		defer func() {
			if err := bomb.Explode(context.WithoutCancel(ctx)); err != nil {
				s.logger.Error(ctx, "failed to delete orphaned crate file", "key", bomb.Key, "error", err)
			}
		}()

		features := meta.Features
		if features == nil {
			features = map[string][]string{}
		}
		entry := index.Entry{
			Name:     krate.Name,
			Vers:     version.Num,
			Deps:     deps,
			Cksum:    hex.EncodeToString(cksum),
			Features: features,
			Yanked:   false,
		}
		if err := s.index.Append(ctx, entry); err != nil {
			return fmt.Errorf("could not add crate `%s` to the git repo: %w", krate.Name, err)
		}
		appended = true
		bomb.Disarm()

		s.logger.Info(ctx, "crate published", "crate", krate.Name, "version", version.Num)

		result = &models.PublishResult{
			Crate: krate.Encodable(maxVersion, nil, nil, nil, nil),
			Warnings: models.Warnings{
				InvalidCategories: invalidCategories,
				InvalidBadges:     invalidBadges,
			},
		}
		return nil
	})
	if err != nil {
		if appended {
			s.logger.Error(ctx, "index entry written for uncommitted version", "crate", meta.Name, "version", meta.Vers, "error", err)
		}
		return nil, err
	}
	return result, nil
}

func validateMetadata(meta *models.UploadMetadata) error {
	if !canon.ValidName(meta.Name) {
		return common.Human("invalid crate name: `%s`", meta.Name)
	}
	if _, err := models.ParseVersion(meta.Vers); err != nil {
		return common.Human("%s", err.Error())
	}

	if len(meta.Keywords) > maxKeywords {
		return common.Human("a maximum of %d keywords per crate are allowed", maxKeywords)
	}
	for _, kw := range meta.Keywords {
		if !canon.ValidKeyword(kw) {
			return common.Human("%q is an invalid keyword", kw)
		}
	}

	if len(meta.Categories) > maxCategories {
		return common.Human("a maximum of %d categories per crate are allowed", maxCategories)
	}

	for name, values := range meta.Features {
		if !canon.ValidName(name) {
			return common.Human("%q is an invalid feature name", name)
		}
		for _, v := range values {
			if !canon.ValidFeatureName(v) {
				return common.Human("%q is an invalid feature name", v)
			}
		}
	}

	for _, d := range meta.Deps {
		if !canon.ValidName(d.Name) {
			return common.Human("invalid dependency name: `%s`", d.Name)
		}
	}
	return nil
}

// normalizeKeywords lowercases keywords and drops duplicates, keeping the
// first occurrence.
func normalizeKeywords(kws []string) []string {
	seen := make(map[string]struct{}, len(kws))
	out := make([]string, 0, len(kws))
	for _, kw := range kws {
		kw = strings.ToLower(kw)
		if _, ok := seen[kw]; ok {
			continue
		}
		seen[kw] = struct{}{}
		out = append(out, kw)
	}
	return out
}
