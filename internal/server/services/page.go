package services

import "github.com/joaopapereira/crates.io/internal/common"

const (
	DefaultPerPage = 10
	MaxPerPage     = 100
)

// Page selects a window of a listing. Zero values mean the first page and
// DefaultPerPage items.
type Page struct {
	Page    int
	PerPage int
}

// LimitOffset converts p to SQL LIMIT and OFFSET values.
func (p Page) LimitOffset() (limit, offset int, err error) {
	page, perPage := p.Page, p.PerPage
	if page == 0 {
		page = 1
	}
	if perPage == 0 {
		perPage = DefaultPerPage
	}
	if page < 1 {
		return 0, 0, common.Human("page indexing starts from 1, page %d is invalid", page)
	}
	if perPage < 1 {
		return 0, 0, common.Human("per_page must be positive, got %d", perPage)
	}
	if perPage > MaxPerPage {
		return 0, 0, common.Human("cannot request more than %d items", MaxPerPage)
	}
	return perPage, (page - 1) * perPage, nil
}
