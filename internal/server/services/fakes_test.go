package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/joaopapereira/crates.io/internal/common"
	"github.com/joaopapereira/crates.io/internal/dbx"
	"github.com/joaopapereira/crates.io/internal/server/canon"
	"github.com/joaopapereira/crates.io/internal/server/index"
	"github.com/joaopapereira/crates.io/internal/server/models"
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
	"github.com/joaopapereira/crates.io/internal/server/storage"
)

// -------- helpers --------

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func expectSavepoint(mock sqlmock.Sqlmock, ok bool) {
	mock.ExpectExec("^SAVEPOINT add_version$").WillReturnResult(sqlmock.NewResult(0, 0))
	if ok {
		mock.ExpectExec("^RELEASE SAVEPOINT add_version$").WillReturnResult(sqlmock.NewResult(0, 0))
	} else {
		mock.ExpectExec("^ROLLBACK TO SAVEPOINT add_version$").WillReturnResult(sqlmock.NewResult(0, 0))
	}
}

func strp(s string) *string { return &s }

// -------- in-memory registry --------

type memDB struct {
	mu     sync.Mutex
	nextID int64

	crates     []*models.Crate
	reserved   map[string]bool
	versions   []*models.Version
	deps       []*models.Dependency
	revDeps    []models.ReverseDependency
	owners     []*models.CrateOwner
	users      []*models.User
	teams      []*models.Team
	follows    map[models.Follow]bool
	keywords   map[int64][]string
	categories []models.Category
	crateCats  map[int64][]string
	badges     map[int64][]models.Badge
	downloads  map[string]int64

	lastList   crates.ListQuery
	rolledUpTo string
}

func newMemDB() *memDB {
	return &memDB{
		reserved:  map[string]bool{},
		follows:   map[models.Follow]bool{},
		keywords:  map[int64][]string{},
		crateCats: map[int64][]string{},
		badges:    map[int64][]models.Badge{},
		downloads: map[string]int64{},
	}
}

func (m *memDB) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memDB) addUser(login string) *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := &models.User{ID: m.id(), GhLogin: login}
	m.users = append(m.users, u)
	return u
}

func (m *memDB) addCrate(name string) *models.Crate {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := &models.Crate{ID: m.id(), Name: name, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	m.crates = append(m.crates, c)
	return c
}

func (m *memDB) addVersion(crateID int64, num string, yanked bool) *models.Version {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := &models.Version{ID: m.id(), CrateID: crateID, Num: num, Yanked: yanked}
	m.versions = append(m.versions, v)
	return v
}

func (m *memDB) liveOwners(crateID int64) []*models.CrateOwner {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.CrateOwner
	for _, o := range m.owners {
		if o.CrateID == crateID && !o.Deleted {
			out = append(out, o)
		}
	}
	return out
}

func (m *memDB) ownerRows(crateID, ownerID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, o := range m.owners {
		if o.CrateID == crateID && o.OwnerID == ownerID {
			n++
		}
	}
	return n
}

type fakeManager struct{ m *memDB }

func (f fakeManager) RunMigrations(context.Context, *sql.DB) error  { return nil }
func (f fakeManager) Crates(dbx.DBTX) crates.Repository             { return fakeCrates{f.m} }
func (f fakeManager) Versions(dbx.DBTX) versions.Repository         { return fakeVersions{f.m} }
func (f fakeManager) Dependencies(dbx.DBTX) dependencies.Repository { return fakeDeps{f.m} }
func (f fakeManager) Owners(dbx.DBTX) owners.Repository             { return fakeOwners{f.m} }
func (f fakeManager) Users(dbx.DBTX) users.Repository               { return fakeUsers{f.m} }
func (f fakeManager) Teams(dbx.DBTX) teams.Repository               { return fakeTeamRepo{f.m} }
func (f fakeManager) Downloads(dbx.DBTX) downloads.Repository       { return fakeDownloads{f.m} }
func (f fakeManager) Keywords(dbx.DBTX) keywords.Repository         { return fakeKeywords{f.m} }
func (f fakeManager) Categories(dbx.DBTX) categories.Repository     { return fakeCategories{f.m} }
func (f fakeManager) Badges(dbx.DBTX) badges.Repository             { return fakeBadges{f.m} }
func (f fakeManager) Follows(dbx.DBTX) follows.Repository           { return fakeFollows{f.m} }

// -------- crates --------

type fakeCrates struct{ m *memDB }

func (f fakeCrates) find(name string) *models.Crate {
	for _, c := range f.m.crates {
		if canon.Equal(c.Name, name) {
			return c
		}
	}
	return nil
}

func (f fakeCrates) FindByName(_ context.Context, name string) (*models.Crate, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	if c := f.find(name); c != nil {
		cp := *c
		return &cp, nil
	}
	return nil, common.ErrorNotFound
}

func (f fakeCrates) FindByID(_ context.Context, id int64) (*models.Crate, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	for _, c := range f.m.crates {
		if c.ID == id {
			cp := *c
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f fakeCrates) IsReserved(_ context.Context, name string) (bool, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	return f.m.reserved[canon.Name(name)], nil
}

func (f fakeCrates) InsertIfAbsent(_ context.Context, nc *models.NewCrate) (*models.Crate, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	if f.find(nc.Name) != nil {
		return nil, nil
	}
	c := &models.Crate{ID: f.m.id(), Name: nc.Name, CreatedAt: time.Now(), UpdatedAt: time.Now(), MaxUploadSize: nc.MaxUploadSize}
	apply(c, nc)
	f.m.crates = append(f.m.crates, c)
	cp := *c
	return &cp, nil
}

func (f fakeCrates) UpdateByName(_ context.Context, nc *models.NewCrate) (*models.Crate, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	c := f.find(nc.Name)
	if c == nil {
		return nil, common.ErrorNotFound
	}
	apply(c, nc)
	c.UpdatedAt = time.Now()
	cp := *c
	return &cp, nil
}

func apply(c *models.Crate, nc *models.NewCrate) {
	c.Description = nc.Description
	c.Homepage = nc.Homepage
	c.Documentation = nc.Documentation
	c.Readme = nc.Readme
	c.License = nc.License
	c.Repository = nc.Repository
}

func (f fakeCrates) all() []models.Crate {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	out := make([]models.Crate, 0, len(f.m.crates))
	for _, c := range f.m.crates {
		out = append(out, *c)
	}
	return out
}

func (f fakeCrates) List(_ context.Context, q crates.ListQuery) ([]models.Crate, int64, error) {
	f.m.mu.Lock()
	f.m.lastList = q
	f.m.mu.Unlock()
	cs := f.all()
	return cs, int64(len(cs)), nil
}

func (f fakeCrates) Count(context.Context) (int64, error) { return int64(len(f.all())), nil }

func (f fakeCrates) TotalDownloads(context.Context) (int64, error) {
	var n int64
	for _, c := range f.all() {
		n += c.Downloads
	}
	return n, nil
}

func (f fakeCrates) Newest(_ context.Context, limit int) ([]models.Crate, error) {
	return f.top(limit), nil
}

func (f fakeCrates) MostDownloaded(_ context.Context, limit int) ([]models.Crate, error) {
	return f.top(limit), nil
}

func (f fakeCrates) JustUpdated(_ context.Context, limit int) ([]models.Crate, error) {
	return f.top(limit), nil
}

func (f fakeCrates) top(limit int) []models.Crate {
	cs := f.all()
	if len(cs) > limit {
		cs = cs[:limit]
	}
	return cs
}

// -------- versions --------

type fakeVersions struct{ m *memDB }

func (f fakeVersions) FindByNum(_ context.Context, crateID int64, num string) (*models.Version, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	for _, v := range f.m.versions {
		if v.CrateID == crateID && v.Num == num {
			cp := *v
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f fakeVersions) Insert(_ context.Context, v *models.Version) (*models.Version, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	for _, e := range f.m.versions {
		if e.CrateID == v.CrateID && e.Num == v.Num {
			return nil, common.ErrVersionExists
		}
	}
	v.ID = f.m.id()
	v.CreatedAt = time.Now()
	cp := *v
	f.m.versions = append(f.m.versions, &cp)
	return v, nil
}

func (f fakeVersions) ListByCrate(_ context.Context, crateID int64) ([]models.Version, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	var out []models.Version
	for _, v := range f.m.versions {
		if v.CrateID == crateID {
			out = append(out, *v)
		}
	}
	return out, nil
}

func (f fakeVersions) NonYankedNums(_ context.Context, crateIDs []int64) (map[int64][]string, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	out := map[int64][]string{}
	for _, id := range crateIDs {
		for _, v := range f.m.versions {
			if v.CrateID == id && !v.Yanked {
				out[id] = append(out[id], v.Num)
			}
		}
	}
	return out, nil
}

func (f fakeVersions) FindIDByCrateNameAndNum(_ context.Context, name, num string) (int64, error) {
	c, err := fakeCrates{f.m}.FindByName(context.Background(), name)
	if err != nil {
		return 0, err
	}
	v, err := f.FindByNum(context.Background(), c.ID, num)
	if err != nil {
		return 0, err
	}
	return v.ID, nil
}

// -------- dependencies --------

type fakeDeps struct{ m *memDB }

func (f fakeDeps) Insert(_ context.Context, d *models.Dependency) (*models.Dependency, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	d.ID = f.m.id()
	cp := *d
	f.m.deps = append(f.m.deps, &cp)
	return d, nil
}

func (f fakeDeps) ReverseDependencies(_ context.Context, crateID int64, limit, offset int) ([]models.ReverseDependency, int64, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	var all []models.ReverseDependency
	for _, d := range f.m.revDeps {
		if d.CrateID == crateID {
			all = append(all, d)
		}
	}
	total := int64(len(all))
	if offset > len(all) {
		offset = len(all)
	}
	all = all[offset:]
	if len(all) > limit {
		all = all[:limit]
	}
	return all, total, nil
}

// -------- owners, users, teams --------

type fakeOwners struct{ m *memDB }

func (f fakeOwners) ListOwners(_ context.Context, crateID int64) ([]models.Owner, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	var out []models.Owner
	for _, o := range f.m.owners {
		if o.CrateID != crateID || o.Deleted {
			continue
		}
		switch o.OwnerKind {
		case models.OwnerUser:
			for _, u := range f.m.users {
				if u.ID == o.OwnerID {
					out = append(out, models.UserOwner(u))
				}
			}
		case models.OwnerTeam:
			for _, t := range f.m.teams {
				if t.ID == o.OwnerID {
					out = append(out, models.TeamOwner(t))
				}
			}
		}
	}
	return out, nil
}

func (f fakeOwners) Undelete(_ context.Context, crateID, ownerID int64, kind models.OwnerKind) (int64, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	var n int64
	for _, o := range f.m.owners {
		if o.CrateID == crateID && o.OwnerID == ownerID && o.OwnerKind == kind {
			o.Deleted = false
			n++
		}
	}
	return n, nil
}

func (f fakeOwners) Insert(_ context.Context, co *models.CrateOwner) error {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	for _, o := range f.m.owners {
		if o.CrateID == co.CrateID && o.OwnerID == co.OwnerID && o.OwnerKind == co.OwnerKind {
			return errors.New("duplicate key value violates unique constraint")
		}
	}
	cp := *co
	f.m.owners = append(f.m.owners, &cp)
	return nil
}

func (f fakeOwners) SoftDelete(_ context.Context, crateID, ownerID int64, kind models.OwnerKind) error {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	for _, o := range f.m.owners {
		if o.CrateID == crateID && o.OwnerID == ownerID && o.OwnerKind == kind {
			o.Deleted = true
		}
	}
	return nil
}

type fakeUsers struct{ m *memDB }

func (f fakeUsers) Create(_ context.Context, u *models.User) (*models.User, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	u.ID = f.m.id()
	f.m.users = append(f.m.users, u)
	return u, nil
}

func (f fakeUsers) GetUserByLogin(_ context.Context, login string) (*models.User, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	for _, u := range f.m.users {
		if strings.EqualFold(u.GhLogin, login) {
			return u, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f fakeUsers) GetUserByID(_ context.Context, id int64) (*models.User, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	for _, u := range f.m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, common.ErrorNotFound
}

type fakeTeamRepo struct{ m *memDB }

func (f fakeTeamRepo) FindByLogin(_ context.Context, login string) (*models.Team, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	for _, t := range f.m.teams {
		if strings.EqualFold(t.Login, login) {
			return t, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f fakeTeamRepo) Upsert(_ context.Context, t *models.Team) (*models.Team, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	for _, e := range f.m.teams {
		if e.Login == t.Login {
			e.Name, e.Avatar, e.GithubID = t.Name, t.Avatar, t.GithubID
			return e, nil
		}
	}
	t.ID = f.m.id()
	f.m.teams = append(f.m.teams, t)
	return t, nil
}

// -------- downloads --------

type fakeDownloads struct{ m *memDB }

func dayKey(versionID int64, date string) string { return fmt.Sprintf("%d@%s", versionID, date) }

func (f fakeDownloads) Increment(_ context.Context, versionID int64, date string) error {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	f.m.downloads[dayKey(versionID, date)]++
	return nil
}

func (f fakeDownloads) Recent(_ context.Context, versionIDs []int64, since string) ([]models.VersionDownload, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	var out []models.VersionDownload
	keys := make([]string, 0, len(f.m.downloads))
	for k := range f.m.downloads {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		var id int64
		var date string
		parts := strings.SplitN(k, "@", 2)
		fmt.Sscan(parts[0], &id)
		date = parts[1]
		if date < since {
			continue
		}
		for _, want := range versionIDs {
			if want == id {
				d, _ := time.Parse("2006-01-02", date)
				out = append(out, models.VersionDownload{VersionID: id, Downloads: f.m.downloads[k], Date: d})
			}
		}
	}
	return out, nil
}

func (f fakeDownloads) ExtraByDay(context.Context, int64, []int64, string) ([]models.ExtraDownload, error) {
	return nil, nil
}

func (f fakeDownloads) Rollup(_ context.Context, today string) (int64, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	f.m.rolledUpTo = today
	var n int64
	for _, d := range f.m.downloads {
		n += d
	}
	return n, nil
}

// -------- keywords, categories, badges, follows --------

type fakeKeywords struct{ m *memDB }

func (f fakeKeywords) ReplaceForCrate(_ context.Context, crateID int64, kws []string) error {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	f.m.keywords[crateID] = kws
	return nil
}

func (f fakeKeywords) ListByCrate(_ context.Context, crateID int64) ([]models.Keyword, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	var out []models.Keyword
	for _, kw := range f.m.keywords[crateID] {
		out = append(out, models.Keyword{Keyword: kw, CratesCnt: 1})
	}
	return out, nil
}

func (f fakeKeywords) Popular(context.Context, int) ([]models.Keyword, error) { return nil, nil }

type fakeCategories struct{ m *memDB }

func (f fakeCategories) Sync(_ context.Context, cats []models.Category) error {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	f.m.categories = cats
	return nil
}

func (f fakeCategories) ReplaceForCrate(_ context.Context, crateID int64, slugs []string) ([]string, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	var valid, invalid []string
	for _, s := range slugs {
		known := false
		for _, c := range f.m.categories {
			if c.Slug == s {
				known = true
			}
		}
		if known {
			valid = append(valid, s)
		} else {
			invalid = append(invalid, s)
		}
	}
	f.m.crateCats[crateID] = valid
	return invalid, nil
}

func (f fakeCategories) ListByCrate(_ context.Context, crateID int64) ([]models.Category, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	var out []models.Category
	for _, s := range f.m.crateCats[crateID] {
		out = append(out, models.Category{Slug: s, Category: s})
	}
	return out, nil
}

func (f fakeCategories) TopLevel(context.Context) ([]models.Category, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	return f.m.categories, nil
}

type fakeBadges struct{ m *memDB }

func (f fakeBadges) ReplaceForCrate(_ context.Context, crateID int64, bs []models.Badge) error {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	f.m.badges[crateID] = bs
	return nil
}

func (f fakeBadges) ListByCrate(_ context.Context, crateID int64) ([]models.Badge, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	return f.m.badges[crateID], nil
}

type fakeFollows struct{ m *memDB }

func (f fakeFollows) Insert(_ context.Context, fl models.Follow) error {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	f.m.follows[fl] = true
	return nil
}

func (f fakeFollows) Delete(_ context.Context, fl models.Follow) error {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	delete(f.m.follows, fl)
	return nil
}

func (f fakeFollows) Exists(_ context.Context, fl models.Follow) (bool, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	return f.m.follows[fl], nil
}

// -------- collaborators --------

type fakeTeamChecker struct {
	members   map[string]map[int64]bool
	lookup    *models.Team
	lookupErr error
	err       error
}

func (f *fakeTeamChecker) IsMember(_ context.Context, team *models.Team, user *models.User) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.members[team.Login][user.ID], nil
}

func (f *fakeTeamChecker) Lookup(_ context.Context, login string, user *models.User) (*models.Team, error) {
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	if !f.members[login][user.ID] {
		return nil, common.Forbidden("only members of " + login + " can add it as an owner")
	}
	t := *f.lookup
	return &t, nil
}

type fakeStore struct {
	mu        sync.Mutex
	objects   map[string][]byte
	deleted   []string
	uploadErr error
}

func newFakeStore() *fakeStore { return &fakeStore{objects: map[string][]byte{}} }

func (f *fakeStore) Upload(_ context.Context, name, vers string, body []byte, maxSize int64) ([]byte, *storage.Bomb, error) {
	if f.uploadErr != nil {
		return nil, nil, f.uploadErr
	}
	if int64(len(body)) > maxSize {
		return nil, nil, common.HumanKind(common.ErrUploadTooLarge, "max upload size is: %d", maxSize)
	}
	key := storage.Key(name, vers)
	f.mu.Lock()
	f.objects[key] = body
	f.mu.Unlock()
	bomb := storage.NewBomb(key, func(context.Context) error {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.objects, key)
		f.deleted = append(f.deleted, key)
		return nil
	})
	return []byte{0xca, 0xfe}, bomb, nil
}

func (f *fakeStore) LocationFor(_ context.Context, name, vers string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := storage.Key(name, vers)
	if _, ok := f.objects[key]; !ok {
		return "", nil
	}
	return "https://static.example/" + key, nil
}

type fakeIndex struct {
	entries []index.Entry
	err     error
}

func (f *fakeIndex) Append(_ context.Context, e index.Entry) error {
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, e)
	return nil
}
