// Package grpc exposes the registry services over gRPC.
package grpc

import (
	"context"
	"net"

	"github.com/joaopapereira/crates.io/internal/logging"
	"github.com/joaopapereira/crates.io/internal/server/models"
	"github.com/joaopapereira/crates.io/internal/server/services"
	"google.golang.org/grpc"
)

// CrateAPI is the read side of the registry plus follows.
type CrateAPI interface {
	Show(ctx context.Context, name string) (*models.CrateDetails, error)
	Versions(ctx context.Context, name string) ([]models.EncodableVersion, error)
	ReverseDependencies(ctx context.Context, name string, page services.Page) (*models.ReverseDependencyList, error)
	List(ctx context.Context, actorID *int64, p services.ListParams) (*models.CrateList, error)
	Summary(ctx context.Context) (*models.Summary, error)
	Follow(ctx context.Context, userID int64, name string) error
	Unfollow(ctx context.Context, userID int64, name string) error
	Following(ctx context.Context, userID int64, name string) (bool, error)
}

type OwnerAPI interface {
	Owners(ctx context.Context, name string) ([]models.EncodableOwner, error)
	AddOwners(ctx context.Context, actor *models.User, name string, logins []string) error
	RemoveOwners(ctx context.Context, actor *models.User, name string, logins []string) error
}

type PublishAPI interface {
	Publish(ctx context.Context, actor *models.User, up *services.Upload) (*models.PublishResult, error)
}

type DownloadAPI interface {
	Download(ctx context.Context, name, vers string) (string, error)
	Stats(ctx context.Context, name string) (*models.DownloadStats, error)
}

// Authenticator resolves the user behind an access token.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

// Services bundles the collaborators of GRPCServer.
type Services struct {
	Crates    CrateAPI
	Owners    OwnerAPI
	Publisher PublishAPI
	Downloads DownloadAPI
	Users     Authenticator
}

type GRPCServer struct {
	address       string
	logger        logging.Logger
	svc           Services
	maxUploadSize int64
}

func NewGRPCServer(address string, l logging.Logger, svc Services, maxUploadSize int64) *GRPCServer {
	return &GRPCServer{
		address:       address,
		logger:        l.With("module", "grpc_server"),
		svc:           svc,
		maxUploadSize: maxUploadSize,
	}
}

// NewServer builds a grpc.Server with the registry service and its
// interceptors registered.
func (s *GRPCServer) NewServer() *grpc.Server {
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(s.requestIDInterceptor, s.loggingInterceptor, s.accessTokenInterceptor),
		// envelope framing on top of the largest accepted upload
		grpc.MaxRecvMsgSize(int(s.maxUploadSize)+1<<20),
	)
	RegisterRegistryServer(srv, s)
	return srv
}

// Run serves on the configured address until ctx is cancelled.
func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is cancelled, then stops
// gracefully.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := s.NewServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(lis); err != nil {
		return err
	}

	return nil
}
