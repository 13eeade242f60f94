package repomanager

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
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

func newDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return db, mock
}

func TestNewPostgresRepositoryManager_ReturnsInterface(t *testing.T) {
	var _ RepositoryManager = NewPostgresRepositoryManager()
}

func TestFactories_ReturnConcreteRepos(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	m := &PostgresRepositoryManager{}

	var _ *crates.PostgresRepository = m.Crates(db).(*crates.PostgresRepository)
	var _ *versions.PostgresRepository = m.Versions(db).(*versions.PostgresRepository)
	var _ *dependencies.PostgresRepository = m.Dependencies(db).(*dependencies.PostgresRepository)
	var _ *owners.PostgresRepository = m.Owners(db).(*owners.PostgresRepository)
	var _ *users.PostgresRepository = m.Users(db).(*users.PostgresRepository)
	var _ *teams.PostgresRepository = m.Teams(db).(*teams.PostgresRepository)
	var _ *downloads.PostgresRepository = m.Downloads(db).(*downloads.PostgresRepository)
	var _ *keywords.PostgresRepository = m.Keywords(db).(*keywords.PostgresRepository)
	var _ *categories.PostgresRepository = m.Categories(db).(*categories.PostgresRepository)
	var _ *badges.PostgresRepository = m.Badges(db).(*badges.PostgresRepository)
	var _ *follows.PostgresRepository = m.Follows(db).(*follows.PostgresRepository)
}

func TestRunMigrations_Success(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	orig := gooseUpContext
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		if dir != "." {
			return errors.New("unexpected dir")
		}
		if len(opts) != 0 {
			return errors.New("unexpected opts")
		}
		return nil
	}
	defer func() { gooseUpContext = orig }()

	m := &PostgresRepositoryManager{}
	if err := m.RunMigrations(context.Background(), db); err != nil {
		t.Fatalf("RunMigrations error: %v", err)
	}
}

func TestRunMigrations_Error(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	orig := gooseUpContext
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		return errors.New("boom")
	}
	defer func() { gooseUpContext = orig }()

	m := &PostgresRepositoryManager{}
	if err := m.RunMigrations(context.Background(), db); err == nil || err.Error() != "boom" {
		t.Fatalf("expected boom, got %v", err)
	}
}
