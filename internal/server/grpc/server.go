// Package grpc exposes the token authority to sibling services over gRPC.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/labandina/internal/logging"
	"github.com/dmitrijs2005/labandina/internal/server/auth"
	"github.com/dmitrijs2005/labandina/internal/server/metrics"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// RevocationChecker reports logged-out tokens.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

type GRPCServer struct {
	address     string
	authority   *auth.Authority
	revocations RevocationChecker
	metrics     *metrics.Metrics
	logger      logging.Logger
}

// NewServer builds a server listening on a. rc may be nil when no
// revocation store is configured.
func NewServer(a string, l logging.Logger, authority *auth.Authority, rc RevocationChecker, m *metrics.Metrics) *GRPCServer {
	if m == nil {
		m = metrics.New()
	}
	return &GRPCServer{
		address:     a,
		logger:      l.With("module", "grpc_server"),
		authority:   authority,
		revocations: rc,
		metrics:     m,
	}
}

func (s *GRPCServer) newGRPCServer() (*grpc.Server, *health.Server) {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.metricsInterceptor, s.accessTokenInterceptor))

	RegisterAuthorityServer(srv, s)

	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)

	return srv, hs
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
	srv, hs := s.newGRPCServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		hs.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(lis); err != nil {
		return err
	}

	return nil
}
