package services

import (
	"context"

	"github.com/joaopapereira/crates.io/internal/common"
	"github.com/joaopapereira/crates.io/internal/server/models"
	"github.com/joaopapereira/crates.io/internal/server/repositories/crates"
)

// ListParams are the filters of a crate listing. Only the first non-empty
// filter, in field order, applies.
type ListParams struct {
	Q         string
	Letter    string
	Keyword   string
	Category  string
	UserID    *int64
	Following bool
	Sort      string
	Page      Page
}

// List returns one page of crates. actorID is required when Following is
// set.
func (s *CrateService) List(ctx context.Context, actorID *int64, p ListParams) (*models.CrateList, error) {
	limit, offset, err := p.Page.LimitOffset()
	if err != nil {
		return nil, err
	}

	q := crates.ListQuery{
		Q:        p.Q,
		Letter:   p.Letter,
		Keyword:  p.Keyword,
		Category: p.Category,
		UserID:   p.UserID,
		Sort:     p.Sort,
		Limit:    limit,
		Offset:   offset,
	}
	if p.Following {
		if actorID == nil {
			return nil, common.Forbidden("must be logged in to list followed crates")
		}
		q.FollowedBy = actorID
	}

	cs, total, err := s.repomanager.Crates(s.db).List(ctx, q)
	if err != nil {
		return nil, err
	}

	encoded, err := s.encodeCrates(ctx, s.db, cs)
	if err != nil {
		return nil, err
	}
	return &models.CrateList{Crates: encoded, Meta: models.Meta{Total: total}}, nil
}
