package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// The session service is small enough that its descriptor is written out
// by hand over well-known types instead of being generated from a .proto.
const (
	SessionServiceName = "recipehub.auth.v1.SessionService"
	CurrentUserMethod  = "/" + SessionServiceName + "/CurrentUser"
)

// SessionServiceServer is implemented by GRPCServer.
type SessionServiceServer interface {
	// CurrentUser returns the sanitized principal of the caller's access token.
	CurrentUser(ctx context.Context, in *emptypb.Empty) (*structpb.Struct, error)
}

var SessionServiceDesc = grpc.ServiceDesc{
	ServiceName: SessionServiceName,
	HandlerType: (*SessionServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CurrentUser", Handler: currentUserHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "recipehub/auth/v1/session.proto",
}

func currentUserHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SessionServiceServer).CurrentUser(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: CurrentUserMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(SessionServiceServer).CurrentUser(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

// SessionServiceClient calls SessionService over a client connection.
type SessionServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewSessionServiceClient(cc grpc.ClientConnInterface) *SessionServiceClient {
	return &SessionServiceClient{cc: cc}
}

func (c *SessionServiceClient) CurrentUser(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, CurrentUserMethod, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
