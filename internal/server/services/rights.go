package services

import (
	"context"

	"github.com/joaopapereira/crates.io/internal/server/models"
)

// Rights is the privilege level of a user on a crate. It is derived from the
// crate's owners on every request and never stored.
type Rights int

const (
	RightsNone Rights = iota
	RightsPublish
	RightsFull
)

func (r Rights) String() string {
	switch r {
	case RightsFull:
		return "full"
	case RightsPublish:
		return "publish"
	default:
		return "none"
	}
}

// ResolveRights computes the rights of user against owners. Being listed as
// a user owner grants Full; membership of a team owner grants Publish.
func ResolveRights(ctx context.Context, teams TeamChecker, owners []models.Owner, user *models.User) (Rights, error) {
	if user == nil {
		return RightsNone, nil
	}

	best := RightsNone
	for _, o := range owners {
		switch o.Kind {
		case models.OwnerUser:
			if o.User != nil && o.User.ID == user.ID {
				return RightsFull, nil
			}
		case models.OwnerTeam:
			if best >= RightsPublish || o.Team == nil {
				continue
			}
			ok, err := teams.IsMember(ctx, o.Team, user)
			if err != nil {
				return RightsNone, err
			}
			if ok {
				best = RightsPublish
			}
		}
	}
	return best, nil
}
