package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/joaopapereira/crates.io/internal/common"
	"github.com/joaopapereira/crates.io/internal/dbx"
	"github.com/joaopapereira/crates.io/internal/server/models"
	"github.com/joaopapereira/crates.io/internal/server/repositories/repomanager"
)

// CrateService owns the crate record lifecycle and the read side of the
// registry.
type CrateService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	licenses    LicenseValidator
}

func NewCrateService(db *sql.DB, m repomanager.RepositoryManager, licenses LicenseValidator) *CrateService {
	return &CrateService{db: db, repomanager: m, licenses: licenses}
}

func crateNotFound(name string) error {
	return fmt.Errorf("%w: crate `%s` does not exist", common.ErrorNotFound, name)
}

// FindByName looks a crate up by its canonical name.
func (s *CrateService) FindByName(ctx context.Context, name string) (*models.Crate, error) {
	return s.findByName(ctx, s.db, name)
}

func (s *CrateService) findByName(ctx context.Context, db dbx.DBTX, name string) (*models.Crate, error) {
	c, err := s.repomanager.Crates(db).FindByName(ctx, name)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, crateNotFound(name)
		}
		return nil, err
	}
	return c, nil
}

// Validate checks the URLs and license expression of nc.
func (s *CrateService) Validate(nc *models.NewCrate) error {
	fields := []struct {
		name  string
		value *string
	}{
		{"homepage", nc.Homepage},
		{"documentation", nc.Documentation},
		{"repository", nc.Repository},
	}
	for _, f := range fields {
		if f.value == nil {
			continue
		}
		if err := validateURL(f.name, *f.value); err != nil {
			return err
		}
	}

	if nc.License != nil {
		for _, part := range strings.Split(*nc.License, "/") {
			if err := s.licenses.Validate(strings.TrimSpace(part)); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateURL(field, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return common.Human("`%s` is not a valid url: `%s`", field, raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return common.Human("`%s` has an invalid url scheme: `%s`", field, u.Scheme)
	}
	if u.Opaque != "" || u.Host == "" {
		return common.Human("`%s` must have relative scheme: `%s`", field, raw)
	}
	return nil
}

// CreateOrUpdate validates nc and then inserts it or, when the canonical
// name is already taken, updates the existing row. Only a successful insert
// grants the actor ownership.
func (s *CrateService) CreateOrUpdate(ctx context.Context, nc models.NewCrate, licenseFile bool, actorID int64) (*models.Crate, error) {
	if err := s.Validate(&nc); err != nil {
		return nil, err
	}

	var krate *models.Crate
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		krate, err = s.createOrUpdate(ctx, tx, &nc, licenseFile, actorID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return krate, nil
}

// createOrUpdate expects nc to be validated already, so a set license is
// never blank here.
func (s *CrateService) createOrUpdate(ctx context.Context, tx dbx.DBTX, nc *models.NewCrate, licenseFile bool, actorID int64) (*models.Crate, error) {
	if nc.License == nil && licenseFile {
		license := models.NonStandardLicense
		nc.License = &license
	}

	crates := s.repomanager.Crates(tx)

	reserved, err := crates.IsReserved(ctx, nc.Name)
	if err != nil {
		return nil, err
	}
	if reserved {
		return nil, common.HumanKind(common.ErrReservedName, "cannot upload a crate with a reserved name")
	}

	krate, err := crates.InsertIfAbsent(ctx, nc)
	if err != nil {
		return nil, err
	}

	if krate != nil {
		owner := &models.CrateOwner{
			CrateID:   krate.ID,
			OwnerID:   actorID,
			OwnerKind: models.OwnerUser,
			CreatedBy: actorID,
		}
		if err := s.repomanager.Owners(tx).Insert(ctx, owner); err != nil {
			return nil, err
		}
		return krate, nil
	}

	// another writer owns the name
	return crates.UpdateByName(ctx, nc)
}

// sortVersions orders versions newest first by semver precedence.
func sortVersions(vs []models.Version) {
	sort.SliceStable(vs, func(i, j int) bool {
		return models.CompareVersions(vs[i].Num, vs[j].Num) > 0
	})
}

func maxVersionOf(vs []models.Version) string {
	var nums []string
	for _, v := range vs {
		if !v.Yanked {
			nums = append(nums, v.Num)
		}
	}
	return models.MaxVersion(nums)
}

// Show returns a crate together with its versions, keywords, categories
// and badges.
func (s *CrateService) Show(ctx context.Context, name string) (*models.CrateDetails, error) {
	krate, err := s.findByName(ctx, s.db, name)
	if err != nil {
		return nil, err
	}

	versions, err := s.repomanager.Versions(s.db).ListByCrate(ctx, krate.ID)
	if err != nil {
		return nil, err
	}
	sortVersions(versions)

	keywords, err := s.repomanager.Keywords(s.db).ListByCrate(ctx, krate.ID)
	if err != nil {
		return nil, err
	}
	categories, err := s.repomanager.Categories(s.db).ListByCrate(ctx, krate.ID)
	if err != nil {
		return nil, err
	}
	badges, err := s.repomanager.Badges(s.db).ListByCrate(ctx, krate.ID)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(versions))
	encVersions := make([]models.EncodableVersion, 0, len(versions))
	for i := range versions {
		ids = append(ids, versions[i].ID)
		encVersions = append(encVersions, versions[i].Encodable(krate.Name))
	}

	kwNames := make([]string, 0, len(keywords))
	encKeywords := make([]models.EncodableKeyword, 0, len(keywords))
	for i := range keywords {
		kwNames = append(kwNames, keywords[i].Keyword)
		encKeywords = append(encKeywords, keywords[i].Encodable())
	}

	slugs := make([]string, 0, len(categories))
	encCategories := make([]models.EncodableCategory, 0, len(categories))
	for i := range categories {
		slugs = append(slugs, categories[i].Slug)
		encCategories = append(encCategories, categories[i].Encodable())
	}

	return &models.CrateDetails{
		Crate:      krate.Encodable(maxVersionOf(versions), ids, kwNames, slugs, badges),
		Versions:   encVersions,
		Keywords:   encKeywords,
		Categories: encCategories,
	}, nil
}

// Versions lists every version of a crate, newest first.
func (s *CrateService) Versions(ctx context.Context, name string) ([]models.EncodableVersion, error) {
	krate, err := s.findByName(ctx, s.db, name)
	if err != nil {
		return nil, err
	}

	versions, err := s.repomanager.Versions(s.db).ListByCrate(ctx, krate.ID)
	if err != nil {
		return nil, err
	}
	sortVersions(versions)

	out := make([]models.EncodableVersion, 0, len(versions))
	for i := range versions {
		out = append(out, versions[i].Encodable(krate.Name))
	}
	return out, nil
}

// ReverseDependencies pages through the dependencies other crates declare
// on name.
func (s *CrateService) ReverseDependencies(ctx context.Context, name string, page Page) (*models.ReverseDependencyList, error) {
	limit, offset, err := page.LimitOffset()
	if err != nil {
		return nil, err
	}

	krate, err := s.findByName(ctx, s.db, name)
	if err != nil {
		return nil, err
	}

	deps, total, err := s.repomanager.Dependencies(s.db).ReverseDependencies(ctx, krate.ID, limit, offset)
	if err != nil {
		return nil, err
	}

	out := make([]models.EncodableDependency, 0, len(deps))
	for i := range deps {
		out = append(out, deps[i].Encodable())
	}
	return &models.ReverseDependencyList{Dependencies: out, Meta: models.Meta{Total: total}}, nil
}

const summaryLimit = 10

// Summary returns the registry front page.
func (s *CrateService) Summary(ctx context.Context) (*models.Summary, error) {
	crates := s.repomanager.Crates(s.db)

	numCrates, err := crates.Count(ctx)
	if err != nil {
		return nil, err
	}
	numDownloads, err := crates.TotalDownloads(ctx)
	if err != nil {
		return nil, err
	}

	newest, err := crates.Newest(ctx, summaryLimit)
	if err != nil {
		return nil, err
	}
	mostDownloaded, err := crates.MostDownloaded(ctx, summaryLimit)
	if err != nil {
		return nil, err
	}
	justUpdated, err := crates.JustUpdated(ctx, summaryLimit)
	if err != nil {
		return nil, err
	}

	summary := &models.Summary{NumCrates: numCrates, NumDownloads: numDownloads}

	if summary.NewCrates, err = s.encodeCrates(ctx, s.db, newest); err != nil {
		return nil, err
	}
	if summary.MostDownloaded, err = s.encodeCrates(ctx, s.db, mostDownloaded); err != nil {
		return nil, err
	}
	if summary.JustUpdated, err = s.encodeCrates(ctx, s.db, justUpdated); err != nil {
		return nil, err
	}

	keywords, err := s.repomanager.Keywords(s.db).Popular(ctx, summaryLimit)
	if err != nil {
		return nil, err
	}
	summary.PopularKeywords = make([]models.EncodableKeyword, 0, len(keywords))
	for i := range keywords {
		summary.PopularKeywords = append(summary.PopularKeywords, keywords[i].Encodable())
	}

	categories, err := s.repomanager.Categories(s.db).TopLevel(ctx)
	if err != nil {
		return nil, err
	}
	summary.PopularCategory = make([]models.EncodableCategory, 0, len(categories))
	for i := range categories {
		summary.PopularCategory = append(summary.PopularCategory, categories[i].Encodable())
	}

	return summary, nil
}

// encodeCrates encodes cs with their max versions, fetched in one query.
func (s *CrateService) encodeCrates(ctx context.Context, db dbx.DBTX, cs []models.Crate) ([]models.EncodableCrate, error) {
	ids := make([]int64, 0, len(cs))
	for _, c := range cs {
		ids = append(ids, c.ID)
	}

	nums, err := s.repomanager.Versions(db).NonYankedNums(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]models.EncodableCrate, 0, len(cs))
	for i := range cs {
		out = append(out, cs[i].Encodable(models.MaxVersion(nums[cs[i].ID]), nil, nil, nil, nil))
	}
	return out, nil
}

// Follow subscribes the user to a crate. Following twice is a no-op.
func (s *CrateService) Follow(ctx context.Context, userID int64, name string) error {
	krate, err := s.findByName(ctx, s.db, name)
	if err != nil {
		return err
	}
	return s.repomanager.Follows(s.db).Insert(ctx, models.Follow{UserID: userID, CrateID: krate.ID})
}

// Unfollow removes the user's subscription, if any.
func (s *CrateService) Unfollow(ctx context.Context, userID int64, name string) error {
	krate, err := s.findByName(ctx, s.db, name)
	if err != nil {
		return err
	}
	return s.repomanager.Follows(s.db).Delete(ctx, models.Follow{UserID: userID, CrateID: krate.ID})
}

// Following reports whether the user follows the crate.
func (s *CrateService) Following(ctx context.Context, userID int64, name string) (bool, error) {
	krate, err := s.findByName(ctx, s.db, name)
	if err != nil {
		return false, err
	}
	return s.repomanager.Follows(s.db).Exists(ctx, models.Follow{UserID: userID, CrateID: krate.ID})
}
