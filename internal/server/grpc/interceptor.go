package grpc

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/joaopapereira/crates.io/internal/common"
	"github.com/joaopapereira/crates.io/internal/server/models"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type ctxKey string

const (
	actorKey     ctxKey = "actor"
	requestIDKey ctxKey = "requestID"
)

// authRequired lists the methods that cannot be called anonymously.
var authRequired = map[string]bool{
	FullMethod(MethodPublish):      true,
	FullMethod(MethodAddOwners):    true,
	FullMethod(MethodRemoveOwners): true,
	FullMethod(MethodFollow):       true,
	FullMethod(MethodUnfollow):     true,
	FullMethod(MethodFollowing):    true,
}

// ActorFromContext returns the authenticated caller, or nil.
func ActorFromContext(ctx context.Context) *models.User {
	u, _ := ctx.Value(actorKey).(*models.User)
	return u
}

// RequestIDFromContext returns the id assigned to the current call.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

func requireActor(ctx context.Context) (*models.User, error) {
	if u := ActorFromContext(ctx); u != nil {
		return u, nil
	}
	return nil, common.ErrInvalidToken
}

func firstMetadata(ctx context.Context, key string) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(key); len(values) > 0 {
			return values[0]
		}
	}
	return ""
}

// requestIDInterceptor reuses the caller's request id or assigns a new one
// and echoes it back in the response header.
func (s *GRPCServer) requestIDInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	id := firstMetadata(ctx, common.RequestIDHeaderName)
	if id == "" {
		id = uuid.NewString()
	}
	_ = grpc.SetHeader(ctx, metadata.Pairs(common.RequestIDHeaderName, id))
	return handler(context.WithValue(ctx, requestIDKey, id), req)
}

func (s *GRPCServer) loggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)

	args := []any{
		"method", info.FullMethod,
		"request_id", RequestIDFromContext(ctx),
		"code", status.Code(err).String(),
		"duration", time.Since(start),
	}
	switch status.Code(err) {
	case codes.OK:
		s.logger.Info(ctx, "call", args...)
	case codes.Internal, codes.Unavailable:
		s.logger.Error(ctx, "call failed", append(args, "error", err)...)
	default:
		s.logger.Warn(ctx, "call rejected", append(args, "error", err)...)
	}
	return resp, err
}

// accessTokenInterceptor authenticates the caller when a token is present,
// and requires one for methods that modify the registry on its behalf.
func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	accessToken := firstMetadata(ctx, common.AccessTokenHeaderName)

	if accessToken == "" {
		if authRequired[info.FullMethod] {
			return nil, status.Error(codes.Unauthenticated, "missing token")
		}
		return handler(ctx, req)
	}

	user, err := s.svc.Users.Authenticate(ctx, accessToken)
	if err != nil {
		return nil, status.Error(codes.Unauthenticated, "invalid token")
	}

	return handler(context.WithValue(ctx, actorKey, user), req)
}
