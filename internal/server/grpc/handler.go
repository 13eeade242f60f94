package grpc

import (
	"bytes"
	"context"

	"github.com/joaopapereira/crates.io/internal/common"
	"github.com/joaopapereira/crates.io/internal/server/services"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// reply encodes v, or maps err to a status.
func reply(v any, err error) (*structpb.Struct, error) {
	if err != nil {
		return nil, toStatus(err)
	}
	out, err := toStruct(v)
	if err != nil {
		return nil, toStatus(err)
	}
	return out, nil
}

func ok() map[string]any {
	return map[string]any{"ok": true}
}

func (s *GRPCServer) Ping(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	return reply(map[string]string{"status": "OK"}, nil)
}

func (s *GRPCServer) Publish(ctx context.Context, req *wrapperspb.BytesValue) (*structpb.Struct, error) {
	up, err := services.ParseUpload(bytes.NewReader(req.GetValue()), s.maxUploadSize)
	if err != nil {
		return nil, toStatus(err)
	}
	return reply(s.svc.Publisher.Publish(ctx, ActorFromContext(ctx), up))
}

func (s *GRPCServer) Show(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	name, err := requiredString(req, "name")
	if err != nil {
		return nil, toStatus(err)
	}
	return reply(s.svc.Crates.Show(ctx, name))
}

func (s *GRPCServer) Versions(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	name, err := requiredString(req, "name")
	if err != nil {
		return nil, toStatus(err)
	}
	versions, err := s.svc.Crates.Versions(ctx, name)
	return reply(map[string]any{"versions": versions}, err)
}

func (s *GRPCServer) Owners(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	name, err := requiredString(req, "name")
	if err != nil {
		return nil, toStatus(err)
	}
	owners, err := s.svc.Owners.Owners(ctx, name)
	return reply(map[string]any{"users": owners}, err)
}

// ownerLogins reads the `owners` list, falling back to the older `users`
// key.
func ownerLogins(req *structpb.Struct) (string, []string, error) {
	name, err := requiredString(req, "name")
	if err != nil {
		return "", nil, err
	}
	logins, found := stringList(req, "owners")
	if !found {
		logins, found = stringList(req, "users")
	}
	if !found {
		return "", nil, common.Human("invalid json request: missing `owners`")
	}
	return name, logins, nil
}

func (s *GRPCServer) AddOwners(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	name, logins, err := ownerLogins(req)
	if err != nil {
		return nil, toStatus(err)
	}
	return reply(ok(), s.svc.Owners.AddOwners(ctx, ActorFromContext(ctx), name, logins))
}

func (s *GRPCServer) RemoveOwners(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	name, logins, err := ownerLogins(req)
	if err != nil {
		return nil, toStatus(err)
	}
	return reply(ok(), s.svc.Owners.RemoveOwners(ctx, ActorFromContext(ctx), name, logins))
}

func pageOf(req *structpb.Struct) (services.Page, error) {
	page, err := intField(req, "page")
	if err != nil {
		return services.Page{}, err
	}
	perPage, err := intField(req, "per_page")
	if err != nil {
		return services.Page{}, err
	}
	return services.Page{Page: page, PerPage: perPage}, nil
}

func (s *GRPCServer) ReverseDependencies(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	name, err := requiredString(req, "name")
	if err != nil {
		return nil, toStatus(err)
	}
	page, err := pageOf(req)
	if err != nil {
		return nil, toStatus(err)
	}
	return reply(s.svc.Crates.ReverseDependencies(ctx, name, page))
}

func (s *GRPCServer) List(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	page, err := pageOf(req)
	if err != nil {
		return nil, toStatus(err)
	}
	p := services.ListParams{
		Q:         stringField(req, "q"),
		Letter:    stringField(req, "letter"),
		Keyword:   stringField(req, "keyword"),
		Category:  stringField(req, "category"),
		Following: boolField(req, "following"),
		Sort:      stringField(req, "sort"),
		Page:      page,
	}
	if _, found := req.GetFields()["user_id"]; found {
		id, err := intField(req, "user_id")
		if err != nil {
			return nil, toStatus(err)
		}
		uid := int64(id)
		p.UserID = &uid
	}

	var actorID *int64
	if actor := ActorFromContext(ctx); actor != nil {
		actorID = &actor.ID
	}
	return reply(s.svc.Crates.List(ctx, actorID, p))
}

func (s *GRPCServer) Summary(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	return reply(s.svc.Crates.Summary(ctx))
}

func (s *GRPCServer) Downloads(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	name, err := requiredString(req, "name")
	if err != nil {
		return nil, toStatus(err)
	}
	return reply(s.svc.Downloads.Stats(ctx, name))
}

func (s *GRPCServer) Download(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	name, err := requiredString(req, "name")
	if err != nil {
		return nil, toStatus(err)
	}
	vers, err := requiredString(req, "version")
	if err != nil {
		return nil, toStatus(err)
	}
	url, err := s.svc.Downloads.Download(ctx, name, vers)
	return reply(map[string]string{"url": url}, err)
}

func (s *GRPCServer) Follow(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	name, err := requiredString(req, "name")
	if err != nil {
		return nil, toStatus(err)
	}
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return reply(ok(), s.svc.Crates.Follow(ctx, actor.ID, name))
}

func (s *GRPCServer) Unfollow(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	name, err := requiredString(req, "name")
	if err != nil {
		return nil, toStatus(err)
	}
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return reply(ok(), s.svc.Crates.Unfollow(ctx, actor.ID, name))
}

func (s *GRPCServer) Following(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	name, err := requiredString(req, "name")
	if err != nil {
		return nil, toStatus(err)
	}
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	following, err := s.svc.Crates.Following(ctx, actor.ID, name)
	return reply(map[string]bool{"following": following}, err)
}
