package grpc

import (
	"context"

	"github.com/dmitrijs2005/labandina/internal/server/auth"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

func (s *GRPCServer) ValidateToken(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {
	token := in.GetValue()
	if token == "" {
		return nil, status.Error(codes.InvalidArgument, "token is required")
	}

	claims, err := s.verify(ctx, token)
	if err != nil {
		return nil, err
	}

	return wrapperspb.String(claims.UserID), nil
}

func (s *GRPCServer) WhoAmI(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.StringValue, error) {
	id, ok := auth.IdentityFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}
	return wrapperspb.String(id), nil
}
