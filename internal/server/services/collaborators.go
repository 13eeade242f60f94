// Package services contains the registry's business logic: publishing,
// ownership, listings and download accounting. Services own transaction
// boundaries; repositories are bound to the handle they are given.
package services

import (
	"context"

	"github.com/joaopapereira/crates.io/internal/server/models"
	"github.com/joaopapereira/crates.io/internal/server/storage"
)

// TeamChecker answers team membership questions against the team's
// backing group.
type TeamChecker interface {
	IsMember(ctx context.Context, team *models.Team, user *models.User) (bool, error)
	// Lookup resolves a "github:org:team" login to a new Team record,
	// failing unless user is a member of it.
	Lookup(ctx context.Context, login string, user *models.User) (*models.Team, error)
}

// ArtifactStore keeps crate tarballs.
type ArtifactStore interface {
	Upload(ctx context.Context, name, vers string, body []byte, maxSize int64) ([]byte, *storage.Bomb, error)
	// LocationFor returns "" when the artifact does not exist.
	LocationFor(ctx context.Context, name, vers string) (string, error)
}

// LicenseValidator validates a single license expression.
type LicenseValidator interface {
	Validate(expr string) error
}
