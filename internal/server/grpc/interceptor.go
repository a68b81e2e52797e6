package grpc

import (
	"context"
	"strings"

	"github.com/dmitrijs2005/recipehub/internal/common"
	"github.com/dmitrijs2005/recipehub/internal/server/models"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type ctxKey string

const userKey ctxKey = "user"

// accessTokenInterceptor authenticates every call except health checks.
// The token comes from the access_token metadata key or, failing that, an
// "authorization: Bearer" entry.
func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if strings.HasPrefix(info.FullMethod, "/grpc.health.v1.Health/") {
		return handler(ctx, req)
	}

	user, err := s.auth.Authenticate(ctx, tokenFromMetadata(ctx))
	if err != nil {
		st := toStatus(err)
		s.logger.Warn(ctx, "call rejected", "method", info.FullMethod, "code", st.Code().String(), "error", err)
		return nil, st.Err()
	}

	return handler(context.WithValue(ctx, userKey, user), req)
}

func tokenFromMetadata(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if values := md.Get(common.AccessTokenHeaderName); len(values) > 0 && values[0] != "" {
		return values[0]
	}
	for _, v := range md.Get("authorization") {
		scheme, token, ok := strings.Cut(strings.TrimSpace(v), " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}
	return ""
}

func userFromContext(ctx context.Context) (*models.User, bool) {
	u, ok := ctx.Value(userKey).(*models.User)
	return u, ok && u != nil
}

// toStatus maps an error kind to a gRPC status with a message that is safe
// to send.
func toStatus(err error) *status.Status {
	switch common.KindOf(err) {
	case common.ErrorValidation:
		return status.New(codes.InvalidArgument, strings.TrimPrefix(err.Error(), common.ErrorValidation.Error()+": "))
	case common.ErrorConflict:
		return status.New(codes.AlreadyExists, "user with email or username already exists")
	case common.ErrorUnauthorized:
		return status.New(codes.Unauthenticated, "unauthorized request")
	case common.ErrorNotFound:
		return status.New(codes.NotFound, "user does not exist")
	case common.ErrorDependency:
		return status.New(codes.Unavailable, "service temporarily unavailable")
	default:
		return status.New(codes.Internal, "something went wrong")
	}
}
