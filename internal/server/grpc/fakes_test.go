package grpc

import (
	"context"
	"net"
	"testing"

	"github.com/joaopapereira/crates.io/internal/common"
	"github.com/joaopapereira/crates.io/internal/logging"
	"github.com/joaopapereira/crates.io/internal/server/models"
	"github.com/joaopapereira/crates.io/internal/server/services"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/test/bufconn"
)

type fakeCrates struct {
	details    *models.CrateDetails
	versions   []models.EncodableVersion
	revdeps    *models.ReverseDependencyList
	list       *models.CrateList
	summary    *models.Summary
	err        error
	lastName   string
	lastPage   services.Page
	lastParams services.ListParams
	lastActor  *int64
	followed   map[string]bool
}

func (f *fakeCrates) Show(_ context.Context, name string) (*models.CrateDetails, error) {
	f.lastName = name
	return f.details, f.err
}

func (f *fakeCrates) Versions(_ context.Context, name string) ([]models.EncodableVersion, error) {
	f.lastName = name
	return f.versions, f.err
}

func (f *fakeCrates) ReverseDependencies(_ context.Context, name string, page services.Page) (*models.ReverseDependencyList, error) {
	f.lastName, f.lastPage = name, page
	return f.revdeps, f.err
}

func (f *fakeCrates) List(_ context.Context, actorID *int64, p services.ListParams) (*models.CrateList, error) {
	f.lastActor, f.lastParams = actorID, p
	return f.list, f.err
}

func (f *fakeCrates) Summary(context.Context) (*models.Summary, error) { return f.summary, f.err }

func (f *fakeCrates) Follow(_ context.Context, _ int64, name string) error {
	if f.err != nil {
		return f.err
	}
	if f.followed == nil {
		f.followed = map[string]bool{}
	}
	f.followed[name] = true
	return nil
}

func (f *fakeCrates) Unfollow(_ context.Context, _ int64, name string) error {
	delete(f.followed, name)
	return f.err
}

func (f *fakeCrates) Following(_ context.Context, _ int64, name string) (bool, error) {
	return f.followed[name], f.err
}

type fakeOwners struct {
	owners     []models.EncodableOwner
	err        error
	lastActor  *models.User
	lastLogins []string
	op         string
}

func (f *fakeOwners) Owners(context.Context, string) ([]models.EncodableOwner, error) {
	return f.owners, f.err
}

func (f *fakeOwners) AddOwners(_ context.Context, actor *models.User, _ string, logins []string) error {
	f.op, f.lastActor, f.lastLogins = "add", actor, logins
	return f.err
}

func (f *fakeOwners) RemoveOwners(_ context.Context, actor *models.User, _ string, logins []string) error {
	f.op, f.lastActor, f.lastLogins = "remove", actor, logins
	return f.err
}

type fakePublisher struct {
	result    *models.PublishResult
	err       error
	lastActor *models.User
	lastMeta  models.UploadMetadata
}

func (f *fakePublisher) Publish(_ context.Context, actor *models.User, up *services.Upload) (*models.PublishResult, error) {
	f.lastActor, f.lastMeta = actor, up.Metadata
	return f.result, f.err
}

type fakeDownloads struct {
	url   string
	stats *models.DownloadStats
	err   error
}

func (f *fakeDownloads) Download(context.Context, string, string) (string, error) {
	return f.url, f.err
}

func (f *fakeDownloads) Stats(context.Context, string) (*models.DownloadStats, error) {
	return f.stats, f.err
}

// fakeAuth accepts tokens of the form "token-<login>".
type fakeAuth struct {
	users map[string]*models.User
}

func (f *fakeAuth) Authenticate(_ context.Context, token string) (*models.User, error) {
	if u, ok := f.users[token]; ok {
		return u, nil
	}
	return nil, common.ErrInvalidToken
}

type harness struct {
	crates    *fakeCrates
	owners    *fakeOwners
	publisher *fakePublisher
	downloads *fakeDownloads
	server    *GRPCServer
	client    *RegistryClient
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		crates:    &fakeCrates{},
		owners:    &fakeOwners{},
		publisher: &fakePublisher{},
		downloads: &fakeDownloads{},
	}
	auth := &fakeAuth{users: map[string]*models.User{
		"token-alice": {ID: 1, GhLogin: "alice"},
	}}
	h.server = NewGRPCServer("bufconn", logging.Nop{}, Services{
		Crates:    h.crates,
		Owners:    h.owners,
		Publisher: h.publisher,
		Downloads: h.downloads,
		Users:     auth,
	}, 1<<20)

	lis := bufconn.Listen(1 << 20)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = h.server.Serve(ctx, lis)
	}()

	conn, err := grpc.NewClient("passthrough:///bufconn",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() {
		_ = conn.Close()
		cancel()
		<-done
	})

	h.client = NewRegistryClient(conn)
	return h
}

func withToken(ctx context.Context, token string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, common.AccessTokenHeaderName, token)
}
