package repomanager

import (
	"context"
	"database/sql"

	"github.com/joaopapereira/crates.io/internal/dbx"
	"github.com/joaopapereira/crates.io/internal/server/repositories/badges"
	"github.com/joaopapereira/crates.io/internal/server/repositories/categories"
	"github.com/joaopapereira/crates.io/internal/server/repositories/crates"
	"github.com/joaopapereira/crates.io/internal/server/repositories/dependencies"
	"github.com/joaopapereira/crates.io/internal/server/repositories/downloads"
	"github.com/joaopapereira/crates.io/internal/server/repositories/follows"
	"github.com/joaopapereira/crates.io/internal/server/repositories/keywords"
	"github.com/joaopapereira/crates.io/internal/server/repositories/owners"
	"github.com/joaopapereira/crates.io/internal/server/repositories/teams"
	"github.com/joaopapereira/crates.io/internal/server/repositories/users"
	"github.com/joaopapereira/crates.io/internal/server/repositories/versions"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Crates(db dbx.DBTX) crates.Repository
	Versions(db dbx.DBTX) versions.Repository
	Dependencies(db dbx.DBTX) dependencies.Repository
	Owners(db dbx.DBTX) owners.Repository
	Users(db dbx.DBTX) users.Repository
	Teams(db dbx.DBTX) teams.Repository
	Downloads(db dbx.DBTX) downloads.Repository
	Keywords(db dbx.DBTX) keywords.Repository
	Categories(db dbx.DBTX) categories.Repository
	Badges(db dbx.DBTX) badges.Repository
	Follows(db dbx.DBTX) follows.Repository
}
