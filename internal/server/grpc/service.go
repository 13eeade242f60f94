package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified name of the registry service.
const ServiceName = "crates.v1.Registry"

// Method names. Every method except Publish takes and returns a
// google.protobuf.Struct; Publish takes the raw upload envelope as
// google.protobuf.BytesValue.
const (
	MethodPing                = "Ping"
	MethodPublish             = "Publish"
	MethodShow                = "Show"
	MethodVersions            = "Versions"
	MethodOwners              = "Owners"
	MethodAddOwners           = "AddOwners"
	MethodRemoveOwners        = "RemoveOwners"
	MethodReverseDependencies = "ReverseDependencies"
	MethodList                = "List"
	MethodSummary             = "Summary"
	MethodDownloads           = "Downloads"
	MethodDownload            = "Download"
	MethodFollow              = "Follow"
	MethodUnfollow            = "Unfollow"
	MethodFollowing           = "Following"
)

// FullMethod returns the gRPC path of method.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// RegistryServer is the server API of the registry service.
type RegistryServer interface {
	Ping(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Publish(context.Context, *wrapperspb.BytesValue) (*structpb.Struct, error)
	Show(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Versions(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Owners(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AddOwners(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RemoveOwners(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ReverseDependencies(context.Context, *structpb.Struct) (*structpb.Struct, error)
	List(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Summary(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Downloads(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Download(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Follow(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Unfollow(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Following(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type structMethod func(RegistryServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func structHandler(name string, call structMethod) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(RegistryServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(name)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(RegistryServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

func publishHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RegistryServer).Publish(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(MethodPublish)}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(RegistryServer).Publish(ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

// RegistryServiceDesc describes the registry service for grpc.Server.
var RegistryServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RegistryServer)(nil),
	Methods: []grpc.MethodDesc{
		structHandler(MethodPing, RegistryServer.Ping),
		{MethodName: MethodPublish, Handler: publishHandler},
		structHandler(MethodShow, RegistryServer.Show),
		structHandler(MethodVersions, RegistryServer.Versions),
		structHandler(MethodOwners, RegistryServer.Owners),
		structHandler(MethodAddOwners, RegistryServer.AddOwners),
		structHandler(MethodRemoveOwners, RegistryServer.RemoveOwners),
		structHandler(MethodReverseDependencies, RegistryServer.ReverseDependencies),
		structHandler(MethodList, RegistryServer.List),
		structHandler(MethodSummary, RegistryServer.Summary),
		structHandler(MethodDownloads, RegistryServer.Downloads),
		structHandler(MethodDownload, RegistryServer.Download),
		structHandler(MethodFollow, RegistryServer.Follow),
		structHandler(MethodUnfollow, RegistryServer.Unfollow),
		structHandler(MethodFollowing, RegistryServer.Following),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "crates/v1/registry.proto",
}

// RegisterRegistryServer registers srv on s.
func RegisterRegistryServer(s grpc.ServiceRegistrar, srv RegistryServer) {
	s.RegisterService(&RegistryServiceDesc, srv)
}
