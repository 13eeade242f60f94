package client

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/joaopapereira/crates.io/internal/common"
	gs "github.com/joaopapereira/crates.io/internal/server/grpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// fakeRegistry implements the methods the tests call; the embedded nil
// interface panics on anything else.
type fakeRegistry struct {
	gs.RegistryServer

	lastToken  string
	lastReq    map[string]any
	lastUpload []byte
	err        error
	reply      map[string]any
}

func (f *fakeRegistry) record(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if v := md.Get(common.AccessTokenHeaderName); len(v) > 0 {
			f.lastToken = v[0]
		}
	}
	f.lastReq = req.AsMap()
	if f.err != nil {
		return nil, f.err
	}
	return structpb.NewStruct(f.reply)
}

func (f *fakeRegistry) Ping(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return f.record(ctx, req)
}

func (f *fakeRegistry) List(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return f.record(ctx, req)
}

func (f *fakeRegistry) AddOwners(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return f.record(ctx, req)
}

func (f *fakeRegistry) Download(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return f.record(ctx, req)
}

func (f *fakeRegistry) Following(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return f.record(ctx, req)
}

func (f *fakeRegistry) Publish(ctx context.Context, req *wrapperspb.BytesValue) (*structpb.Struct, error) {
	f.lastUpload = req.GetValue()
	return f.record(ctx, &structpb.Struct{})
}

func newTestClient(t *testing.T, token string) (*GRPCClient, *fakeRegistry) {
	t.Helper()

	fake := &fakeRegistry{reply: map[string]any{}}
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	gs.RegisterRegistryServer(srv, fake)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	c, err := NewRegistryClient("passthrough:///bufconn", token, 0,
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, fake
}

func TestPing_Anonymous(t *testing.T) {
	c, fake := newTestClient(t, "")

	require.NoError(t, c.Ping(context.Background()))
	assert.Empty(t, fake.lastToken)
}

func TestAccessTokenAttached(t *testing.T) {
	c, fake := newTestClient(t, "secret-token")

	require.NoError(t, c.AddOwners(context.Background(), "foo", []string{"bob"}))
	assert.Equal(t, "secret-token", fake.lastToken)
	assert.Equal(t, map[string]any{"name": "foo", "owners": []any{"bob"}}, fake.lastReq)
}

func TestSearch_OnlySetFields(t *testing.T) {
	c, fake := newTestClient(t, "")
	fake.reply = map[string]any{"crates": []any{}, "meta": map[string]any{"total": 0}}

	resp, err := c.Search(context.Background(), SearchOptions{Query: "serde", PerPage: 5})
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"q": "serde", "per_page": float64(5)}, fake.lastReq)
	assert.Contains(t, resp, "crates")
}

func TestDownloadAndFollowing(t *testing.T) {
	c, fake := newTestClient(t, "t")

	fake.reply = map[string]any{"url": "https://static.example/x.crate"}
	url, err := c.Download(context.Background(), "x", "1.0.0")
	require.NoError(t, err)
	assert.Equal(t, "https://static.example/x.crate", url)

	fake.reply = map[string]any{"following": true}
	following, err := c.Following(context.Background(), "x")
	require.NoError(t, err)
	assert.True(t, following)
}

func TestPublish_SendsEnvelope(t *testing.T) {
	c, fake := newTestClient(t, "t")

	_, err := c.Publish(context.Background(), map[string]string{"name": "x"}, []byte("tar"))
	require.NoError(t, err)

	want, err := gs.EncodeUpload(map[string]string{"name": "x"}, []byte("tar"))
	require.NoError(t, err)
	assert.Equal(t, want, fake.lastUpload)
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
		msg    string
	}{
		{"unauthenticated", status.Error(codes.Unauthenticated, "missing token"), ErrUnauthorized, "unauthorized: missing token"},
		{"forbidden", status.Error(codes.PermissionDenied, "only owners"), ErrUnauthorized, "unauthorized: only owners"},
		{"not found", status.Error(codes.NotFound, "crate `x` does not exist"), ErrNotFound, "not found: crate `x` does not exist"},
		{"unavailable", status.Error(codes.Unavailable, "down"), ErrUnavailable, "server unavailable"},
		{"invalid", status.Error(codes.InvalidArgument, "cannot remove yourself as an owner"), nil, "cannot remove yourself as an owner"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, fake := newTestClient(t, "t")
			fake.err = tt.err

			err := c.AddOwners(context.Background(), "x", []string{"y"})
			require.Error(t, err)
			if tt.target != nil {
				assert.True(t, errors.Is(err, tt.target), "got %v", err)
			}
			assert.Equal(t, tt.msg, err.Error())
		})
	}
}
