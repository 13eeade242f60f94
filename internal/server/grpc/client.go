package grpc

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// RegistryClient is the client API of the registry service.
type RegistryClient struct {
	cc grpc.ClientConnInterface
}

func NewRegistryClient(cc grpc.ClientConnInterface) *RegistryClient {
	return &RegistryClient{cc: cc}
}

// Call invokes a Struct-typed method by name.
func (c *RegistryClient) Call(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	if in == nil {
		in = &structpb.Struct{}
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// Publish sends a raw upload envelope.
func (c *RegistryClient) Publish(ctx context.Context, envelope []byte, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FullMethod(MethodPublish), wrapperspb.Bytes(envelope), out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// EncodeUpload frames metadata and a crate tarball the way Publish expects:
// each part is preceded by its little-endian u32 length.
func EncodeUpload(metadata any, tarball []byte) ([]byte, error) {
	raw, err := json.Marshal(metadata)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.Grow(8 + len(raw) + len(tarball))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(len(raw)))
	buf.Write(raw)
	_ = binary.Write(&buf, binary.LittleEndian, uint32(len(tarball)))
	buf.Write(tarball)
	return buf.Bytes(), nil
}
