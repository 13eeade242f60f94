package services

import (
	"context"
	"errors"

	"github.com/joaopapereira/crates.io/internal/common"
	"github.com/joaopapereira/crates.io/internal/dbx"
	"github.com/joaopapereira/crates.io/internal/server/index"
	"github.com/joaopapereira/crates.io/internal/server/models"
)

// addVersion inserts a version and its dependency edges under a savepoint,
// so that any failure leaves neither behind. It returns the dependencies in
// their index form.
func (s *CrateService) addVersion(ctx context.Context, tx dbx.DBTX, crateID int64, num string,
	features map[string][]string, authors []string, deps []models.NewDependency) (*models.Version, []index.Dependency, error) {

	var (
		version *models.Version
		encoded []index.Dependency
	)

	err := dbx.WithSavepoint(ctx, tx, "add_version", func(ctx context.Context) error {
		versions := s.repomanager.Versions(tx)

		_, err := versions.FindByNum(ctx, crateID, num)
		if err == nil {
			return versionExists(num)
		}
		if !errors.Is(err, common.ErrorNotFound) {
			return err
		}

		version, err = versions.Insert(ctx, &models.Version{
			CrateID:  crateID,
			Num:      num,
			Features: features,
			Authors:  authors,
		})
		if err != nil {
			if errors.Is(err, common.ErrVersionExists) {
				return versionExists(num)
			}
			return err
		}

		crates := s.repomanager.Crates(tx)
		depRepo := s.repomanager.Dependencies(tx)

		encoded = make([]index.Dependency, 0, len(deps))
		for _, d := range deps {
			kind, err := models.ParseDependencyKind(d.Kind)
			if err != nil {
				return common.Human("%s", err.Error())
			}

			target, err := crates.FindByName(ctx, d.Name)
			if err != nil {
				if errors.Is(err, common.ErrorNotFound) {
					return common.Human("no known crate named `%s`", d.Name)
				}
				return err
			}

			features := d.Features
			if features == nil {
				features = []string{}
			}

			if _, err := depRepo.Insert(ctx, &models.Dependency{
				VersionID:       version.ID,
				CrateID:         target.ID,
				Req:             d.VersionReq,
				Optional:        d.Optional,
				DefaultFeatures: d.DefaultFeatures,
				Features:        features,
				Target:          d.Target,
				Kind:            kind,
			}); err != nil {
				return err
			}

			encoded = append(encoded, index.Dependency{
				Name:            d.Name,
				Req:             d.VersionReq,
				Features:        features,
				Optional:        d.Optional,
				DefaultFeatures: d.DefaultFeatures,
				Target:          d.Target,
				Kind:            kind.String(),
			})
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return version, encoded, nil
}

func versionExists(num string) error {
	return common.HumanKind(common.ErrVersionExists, "crate version `%s` is already uploaded", num)
}
