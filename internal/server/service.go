package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

const shutdownGrace = 10 * time.Second

// NewGRPCServer registers the label, product and health services.
func NewGRPCServer(labels LabelServer, products ProductServer, logger *slog.Logger) (*grpc.Server, *health.Server) {
	s := grpc.NewServer(grpc.UnaryInterceptor(UnaryInterceptor(logger)))
	RegisterLabelServer(s, labels)
	RegisterProductServer(s, products)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(LabelServiceName, healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ProductServiceName, healthpb.HealthCheckResponse_SERVING)
	// reflection for grpcurl
	reflection.Register(s)
	return s, hs
}

// Server runs the gRPC API and, when an HTTP handler is given, the REST gateway.
type Server struct {
	grpc     *grpc.Server
	health   *health.Server
	grpcAddr string
	http     *http.Server
	logger   *slog.Logger
}

func NewServer(grpcAddr string, gs *grpc.Server, hs *health.Server, httpAddr string, handler http.Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{grpc: gs, health: hs, grpcAddr: grpcAddr, logger: logger}
	if handler != nil && httpAddr != "" {
		s.http = &http.Server{
			Addr:              httpAddr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}
	}
	return s
}

// Run serves until ctx is done, then drains both listeners.
func (s *Server) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.grpcAddr)
	if err != nil {
		s.logger.Error("failed to listen on address", "addr", s.grpcAddr, "error", err)
		return fmt.Errorf("listen %s: %w", s.grpcAddr, err)
	}

	errCh := make(chan error, 2)
	go func() {
		s.logger.Info("grpc listening", "addr", lis.Addr().String())
		if err := s.grpc.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			errCh <- fmt.Errorf("grpc serve: %w", err)
		}
	}()
	if s.http != nil {
		go func() {
			s.logger.Info("http listening", "addr", s.http.Addr)
			if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("http serve: %w", err)
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		s.logger.Info("shutting down...")
	case runErr = <-errCh:
		s.logger.Error("server failed", "error", runErr)
	}

	if s.health != nil {
		s.health.Shutdown()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if s.http != nil {
		if err := s.http.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("http shutdown", "error", err)
		}
	}
	stopped := make(chan struct{})
	go func() {
		s.grpc.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-shutdownCtx.Done():
		s.grpc.Stop()
	}
	s.logger.Info("stopped")
	return runErr
}
