// Package repomanager provides a concrete RepositoryManager for PostgreSQL,
// wiring together repository constructors and database migrations (via goose).
package repomanager

import (
	"context"
	"database/sql"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joaopapereira/crates.io/internal/dbx"
	"github.com/joaopapereira/crates.io/internal/server/migrations"
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
	"github.com/pressly/goose/v3"
)

// PostgresRepositoryManager vends PostgreSQL-backed repository implementations
// and exposes a schema migration hook.
type PostgresRepositoryManager struct{}

func (m *PostgresRepositoryManager) Crates(db dbx.DBTX) crates.Repository {
	return crates.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Versions(db dbx.DBTX) versions.Repository {
	return versions.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Dependencies(db dbx.DBTX) dependencies.Repository {
	return dependencies.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Owners(db dbx.DBTX) owners.Repository {
	return owners.NewPostgresRepository(db)
}

// Users returns a users.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Teams(db dbx.DBTX) teams.Repository {
	return teams.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Downloads(db dbx.DBTX) downloads.Repository {
	return downloads.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Keywords(db dbx.DBTX) keywords.Repository {
	return keywords.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Categories(db dbx.DBTX) categories.Repository {
	return categories.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Badges(db dbx.DBTX) badges.Repository {
	return badges.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Follows(db dbx.DBTX) follows.Repository {
	return follows.NewPostgresRepository(db)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations sets up goose with the embedded migrations and runs them
// against the provided database connection.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	if err := gooseUpContext(ctx, db, "."); err != nil {
		return err
	}
	return nil
}

// NewPostgresRepositoryManager constructs a PostgreSQL-backed RepositoryManager.
func NewPostgresRepositoryManager() RepositoryManager {
	return &PostgresRepositoryManager{}
}
