package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/joaopapereira/crates.io/internal/common"
	"github.com/joaopapereira/crates.io/internal/dbx"
	"github.com/joaopapereira/crates.io/internal/server/models"
	"github.com/joaopapereira/crates.io/internal/server/repositories/repomanager"
)

// OwnerService lists and modifies crate owners.
type OwnerService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	teams       TeamChecker
}

func NewOwnerService(db *sql.DB, m repomanager.RepositoryManager, teams TeamChecker) *OwnerService {
	return &OwnerService{db: db, repomanager: m, teams: teams}
}

// Owners lists the current owners of a crate.
func (s *OwnerService) Owners(ctx context.Context, name string) ([]models.EncodableOwner, error) {
	krate, err := s.repomanager.Crates(s.db).FindByName(ctx, name)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, crateNotFound(name)
		}
		return nil, err
	}

	owners, err := s.repomanager.Owners(s.db).ListOwners(ctx, krate.ID)
	if err != nil {
		return nil, err
	}

	out := make([]models.EncodableOwner, 0, len(owners))
	for _, o := range owners {
		out = append(out, o.Encodable())
	}
	return out, nil
}

// AddOwners grants ownership of a crate to logins. Publish rights suffice.
func (s *OwnerService) AddOwners(ctx context.Context, actor *models.User, name string, logins []string) error {
	return s.modifyOwners(ctx, actor, name, logins, true)
}

// RemoveOwners revokes ownership from logins. Full rights are required.
func (s *OwnerService) RemoveOwners(ctx context.Context, actor *models.User, name string, logins []string) error {
	return s.modifyOwners(ctx, actor, name, logins, false)
}

func (s *OwnerService) modifyOwners(ctx context.Context, actor *models.User, name string, logins []string, add bool) error {
	if len(logins) == 0 {
		return common.Human("invalid json request: no owners listed")
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		krate, err := s.repomanager.Crates(tx).FindByName(ctx, name)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return crateNotFound(name)
			}
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

		if add && rights < RightsPublish {
			return common.Forbidden("only owners have permission to modify owners")
		}
		if !add && rights < RightsFull {
			if rights == RightsPublish {
				return common.Forbidden("team members don't have permission to remove owners")
			}
			return common.Forbidden("only owners have permission to modify owners")
		}

		for _, login := range logins {
			if add {
				for _, o := range owners {
					if strings.EqualFold(o.Login(), login) {
						return common.Human("`%s` is already an owner", login)
					}
				}
				owner, err := s.findOrCreateOwner(ctx, tx, actor, login)
				if err != nil {
					return err
				}
				if err := s.ownerAdd(ctx, tx, krate.ID, owner, actor.ID); err != nil {
					return err
				}
				continue
			}

			if strings.EqualFold(login, actor.GhLogin) {
				return common.Human("cannot remove yourself as an owner")
			}
			owner, err := s.findOwner(ctx, tx, login)
			if err != nil {
				return err
			}
			if err := s.repomanager.Owners(tx).SoftDelete(ctx, krate.ID, owner.ID(), owner.Kind); err != nil {
				return err
			}
		}
		return nil
	})
}

// ownerAdd resurrects a soft-deleted grant, inserting one only when no row
// exists for the (crate, owner, kind) triple.
func (s *OwnerService) ownerAdd(ctx context.Context, tx dbx.DBTX, crateID int64, owner models.Owner, actorID int64) error {
	repo := s.repomanager.Owners(tx)

	n, err := repo.Undelete(ctx, crateID, owner.ID(), owner.Kind)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	return repo.Insert(ctx, &models.CrateOwner{
		CrateID:   crateID,
		OwnerID:   owner.ID(),
		OwnerKind: owner.Kind,
		CreatedBy: actorID,
	})
}

func isTeamLogin(login string) bool {
	return strings.Contains(login, ":")
}

// findOwner resolves an existing user or team by login.
func (s *OwnerService) findOwner(ctx context.Context, tx dbx.DBTX, login string) (models.Owner, error) {
	if isTeamLogin(login) {
		team, err := s.repomanager.Teams(tx).FindByLogin(ctx, login)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return models.Owner{}, common.Human("could not find team with login `%s`", login)
			}
			return models.Owner{}, err
		}
		return models.TeamOwner(team), nil
	}

	user, err := s.repomanager.Users(tx).GetUserByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return models.Owner{}, common.Human("could not find user with login `%s`", login)
		}
		return models.Owner{}, err
	}
	return models.UserOwner(user), nil
}

// findOrCreateOwner is findOwner for additions: teams must include actor,
// and unknown teams are created after the membership check.
func (s *OwnerService) findOrCreateOwner(ctx context.Context, tx dbx.DBTX, actor *models.User, login string) (models.Owner, error) {
	if !isTeamLogin(login) {
		return s.findOwner(ctx, tx, login)
	}

	teams := s.repomanager.Teams(tx)

	team, err := teams.FindByLogin(ctx, login)
	switch {
	case err == nil:
		ok, err := s.teams.IsMember(ctx, team, actor)
		if err != nil {
			return models.Owner{}, err
		}
		if !ok {
			return models.Owner{}, common.Forbidden("only members of " + team.Login + " can add it as an owner")
		}
		return models.TeamOwner(team), nil
	case !errors.Is(err, common.ErrorNotFound):
		return models.Owner{}, err
	}

	found, err := s.teams.Lookup(ctx, login, actor)
	if err != nil {
		return models.Owner{}, err
	}
	team, err = teams.Upsert(ctx, found)
	if err != nil {
		return models.Owner{}, err
	}
	return models.TeamOwner(team), nil
}
