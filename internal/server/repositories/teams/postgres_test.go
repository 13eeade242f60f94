package teams

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/joaopapereira/crates.io/internal/common"
	"github.com/joaopapereira/crates.io/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewPostgresRepository(db), mock, db
}

func TestFindByLogin(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM teams WHERE lower\(login\) = lower\(\$1\)`).
		WithArgs("github:Org:Core").
		WillReturnRows(sqlmock.NewRows([]string{"id", "login", "github_id", "name", "avatar"}).
			AddRow(int64(4), "github:org:core", int64(99), nil, nil))

	team, err := repo.FindByLogin(context.Background(), "github:Org:Core")
	require.NoError(t, err)
	assert.Equal(t, int64(4), team.ID)
	assert.Equal(t, "org", team.Org())

	mock.ExpectQuery(`FROM teams`).WillReturnError(sql.ErrNoRows)
	_, err = repo.FindByLogin(context.Background(), "github:org:missing")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestUpsert(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)INSERT INTO teams.*ON CONFLICT \(login\) DO UPDATE`).
		WithArgs("github:org:core", int64(99), nil, nil).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(4)))

	team, err := repo.Upsert(context.Background(), &models.Team{Login: "github:org:core", GithubID: 99})
	require.NoError(t, err)
	assert.Equal(t, int64(4), team.ID)
	assert.Equal(t, "github:org:core", team.Login)
}
