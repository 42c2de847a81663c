package grpc

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/labandina/internal/common"
	"github.com/dmitrijs2005/labandina/internal/server/auth"
	"github.com/dmitrijs2005/labandina/internal/server/metrics"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// metadataAuthorizationKey is the lowercased Authorization header.
const metadataAuthorizationKey = "authorization"

// protectedMethods need a bearer token in the call metadata.
var protectedMethods = map[string]bool{
	WhoAmIMethod: true,
}

func (s *GRPCServer) metricsInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	code := status.Code(err)
	s.metrics.ObserveGRPC(info.FullMethod, code.String())
	if err != nil && code != codes.Unauthenticated {
		s.logger.Warn(ctx, "grpc call failed", "method", info.FullMethod, "code", code.String(), "elapsed", time.Since(start), "error", err)
	}
	return resp, err
}

func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if !protectedMethods[info.FullMethod] {
		return handler(ctx, req)
	}

	var header string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(metadataAuthorizationKey); len(values) > 0 {
			header = values[0]
		}
	}

	token, present, err := auth.BearerToken(header)
	if !present {
		return nil, s.reject(ctx, common.ErrUnauthenticated)
	}
	if err != nil {
		return nil, s.reject(ctx, err)
	}

	claims, err := s.verify(ctx, token)
	if err != nil {
		return nil, err
	}

	return handler(auth.WithClaims(ctx, claims), req)
}

// verify checks the token signature, expiry and revocation state.
func (s *GRPCServer) verify(ctx context.Context, token string) (*auth.Claims, error) {
	claims, err := s.authority.Claims(token)
	if err != nil {
		return nil, s.reject(ctx, err)
	}

	if s.revocations != nil && claims.ID != "" {
		revoked, err := s.revocations.IsRevoked(ctx, claims.ID)
		if err != nil {
			s.logger.Error(ctx, "revocation lookup failed", "error", err)
			return nil, status.Error(codes.Internal, "internal error")
		}
		if revoked {
			return nil, s.reject(ctx, common.ErrTokenRevoked)
		}
	}

	return claims, nil
}

// reject counts and logs the failure kind. Callers only see whether a token
// was missing or invalid.
func (s *GRPCServer) reject(ctx context.Context, err error) error {
	reason := metrics.FailureReason(err)
	s.metrics.AuthFailure(reason)
	s.logger.Warn(ctx, "authentication failed", "reason", reason, "error", err.Error())

	if errors.Is(err, common.ErrUnauthenticated) {
		return status.Error(codes.Unauthenticated, "missing token")
	}
	return status.Error(codes.Unauthenticated, "invalid token")
}
