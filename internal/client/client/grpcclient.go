package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/joaopapereira/crates.io/internal/common"
	gs "github.com/joaopapereira/crates.io/internal/server/grpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// Response is a decoded JSON-shaped reply.
type Response = map[string]any

// SearchOptions mirrors the listing filters of the registry.
type SearchOptions struct {
	Query     string
	Letter    string
	Keyword   string
	Category  string
	Following bool
	Sort      string
	Page      int
	PerPage   int
}

type GRPCClient struct {
	endpointURL string
	conn        *grpc.ClientConn
	client      *gs.RegistryClient
	accessToken string
	timeout     time.Duration
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Delete(common.AccessTokenHeaderName)
	md.Set(common.AccessTokenHeaderName, token)

	return metadata.NewOutgoingContext(ctx, md)
}

func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply interface{},
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	if s.accessToken != "" {
		ctx = withAccessToken(ctx, s.accessToken)
	}
	return invoker(ctx, method, req, reply, cc, opts...)
}

// NewRegistryClient connects to endpointURL. token may be empty for
// anonymous calls.
func NewRegistryClient(endpointURL, token string, timeout time.Duration, opts ...grpc.DialOption) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL, accessToken: token, timeout: timeout}

	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(c.accessTokenInterceptor),
	}, opts...)

	conn, err := grpc.NewClient(endpointURL, opts...)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	c.client = gs.NewRegistryClient(conn)
	return c, nil
}

func (s *GRPCClient) Close() error {
	return s.conn.Close()
}

func (s *GRPCClient) call(ctx context.Context, method string, req map[string]any) (Response, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	in, err := structpb.NewStruct(req)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Call(ctx, method, in)
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp.AsMap(), nil
}

func (s *GRPCClient) Ping(ctx context.Context) error {
	_, err := s.call(ctx, gs.MethodPing, nil)
	return err
}

// Publish uploads a crate tarball with its metadata.
func (s *GRPCClient) Publish(ctx context.Context, meta any, tarball []byte) (Response, error) {
	env, err := gs.EncodeUpload(meta, tarball)
	if err != nil {
		return nil, err
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	resp, err := s.client.Publish(ctx, env)
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp.AsMap(), nil
}

func (s *GRPCClient) Show(ctx context.Context, name string) (Response, error) {
	return s.call(ctx, gs.MethodShow, map[string]any{"name": name})
}

func (s *GRPCClient) Versions(ctx context.Context, name string) (Response, error) {
	return s.call(ctx, gs.MethodVersions, map[string]any{"name": name})
}

func (s *GRPCClient) Owners(ctx context.Context, name string) (Response, error) {
	return s.call(ctx, gs.MethodOwners, map[string]any{"name": name})
}

func loginList(logins []string) []any {
	out := make([]any, len(logins))
	for i, l := range logins {
		out[i] = l
	}
	return out
}

func (s *GRPCClient) AddOwners(ctx context.Context, name string, logins []string) error {
	_, err := s.call(ctx, gs.MethodAddOwners, map[string]any{"name": name, "owners": loginList(logins)})
	return err
}

func (s *GRPCClient) RemoveOwners(ctx context.Context, name string, logins []string) error {
	_, err := s.call(ctx, gs.MethodRemoveOwners, map[string]any{"name": name, "owners": loginList(logins)})
	return err
}

func (s *GRPCClient) Search(ctx context.Context, o SearchOptions) (Response, error) {
	req := map[string]any{}
	set := func(k, v string) {
		if v != "" {
			req[k] = v
		}
	}
	set("q", o.Query)
	set("letter", o.Letter)
	set("keyword", o.Keyword)
	set("category", o.Category)
	set("sort", o.Sort)
	if o.Following {
		req["following"] = true
	}
	if o.Page != 0 {
		req["page"] = o.Page
	}
	if o.PerPage != 0 {
		req["per_page"] = o.PerPage
	}
	return s.call(ctx, gs.MethodList, req)
}

func (s *GRPCClient) ReverseDependencies(ctx context.Context, name string, page, perPage int) (Response, error) {
	req := map[string]any{"name": name}
	if page != 0 {
		req["page"] = page
	}
	if perPage != 0 {
		req["per_page"] = perPage
	}
	return s.call(ctx, gs.MethodReverseDependencies, req)
}

func (s *GRPCClient) Summary(ctx context.Context) (Response, error) {
	return s.call(ctx, gs.MethodSummary, nil)
}

func (s *GRPCClient) Downloads(ctx context.Context, name string) (Response, error) {
	return s.call(ctx, gs.MethodDownloads, map[string]any{"name": name})
}

// Download counts a download and returns the artifact URL.
func (s *GRPCClient) Download(ctx context.Context, name, vers string) (string, error) {
	resp, err := s.call(ctx, gs.MethodDownload, map[string]any{"name": name, "version": vers})
	if err != nil {
		return "", err
	}
	url, _ := resp["url"].(string)
	return url, nil
}

func (s *GRPCClient) Follow(ctx context.Context, name string) error {
	_, err := s.call(ctx, gs.MethodFollow, map[string]any{"name": name})
	return err
}

func (s *GRPCClient) Unfollow(ctx context.Context, name string) error {
	_, err := s.call(ctx, gs.MethodUnfollow, map[string]any{"name": name})
	return err
}

func (s *GRPCClient) Following(ctx context.Context, name string) (bool, error) {
	resp, err := s.call(ctx, gs.MethodFollowing, map[string]any{"name": name})
	if err != nil {
		return false, err
	}
	following, _ := resp["following"].(bool)
	return following, nil
}

// mapError keeps the server's message for request errors and collapses
// transport and auth failures onto sentinels.
func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return fmt.Errorf("%w: %s", ErrUnauthorized, st.Message())
	case codes.NotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, st.Message())
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	case codes.InvalidArgument, codes.ResourceExhausted:
		return errors.New(st.Message())
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
