// Package grpc serves the internal session API: other services present a
// user's access token and get back the principal it belongs to.
package grpc

import (
	"context"
	"net"
	"time"

	"github.com/dmitrijs2005/recipehub/internal/logging"
	"github.com/dmitrijs2005/recipehub/internal/server/models"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// Authenticator resolves an access token. *services.UserService satisfies it.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*models.User, error)
}

type GRPCServer struct {
	address string
	auth    Authenticator
	logger  logging.Logger
	health  *health.Server
}

var _ SessionServiceServer = (*GRPCServer)(nil)

func NewGRPCServer(address string, l logging.Logger, a Authenticator) *GRPCServer {
	return &GRPCServer{
		address: address,
		logger:  l.With("module", "grpc_server"),
		auth:    a,
		health:  health.NewServer(),
	}
}

func (s *GRPCServer) Run(ctx context.Context) error {
	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is done.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.accessTokenInterceptor))

	srv.RegisterService(&SessionServiceDesc, s)
	healthpb.RegisterHealthServer(srv, s.health)
	s.health.SetServingStatus(SessionServiceName, healthpb.HealthCheckResponse_SERVING)

	go func() {
		<-ctx.Done()
		s.logger.Info(context.Background(), "Stopping gRPC server...")
		s.health.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(lis); err != nil {
		return err
	}
	return nil
}

func (s *GRPCServer) CurrentUser(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	user, ok := userFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "unauthorized request")
	}

	out, err := structpb.NewStruct(map[string]any{
		"id":         user.ID,
		"username":   user.Username,
		"email":      user.Email,
		"fullName":   user.FullName,
		"avatar":     user.Avatar,
		"coverImage": user.CoverImage,
		"createdAt":  user.CreatedAt.UTC().Format(time.RFC3339),
		"updatedAt":  user.UpdatedAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		s.logger.Error(ctx, "encode user", "error", err)
		return nil, status.Error(codes.Internal, "something went wrong")
	}
	return out, nil
}
