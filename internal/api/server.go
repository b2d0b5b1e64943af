// Package api serves yupan over HTTP and exposes a gRPC health endpoint.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"

	"yupan/internal/config"
	"yupan/internal/engine"
	"yupan/internal/metrics"
	"yupan/internal/sweep"
)

const shutdownTimeout = 10 * time.Second

// Server is the main API server that hosts HTTP and gRPC endpoints.
type Server struct {
	cfg      *config.Config
	runner   *engine.Runner
	sweeper  *sweep.Sweeper
	metrics  *metrics.Metrics
	logger   *slog.Logger
	httpAddr string
	grpcAddr string

	httpSrv *http.Server
	grpcSrv *grpc.Server
	health  *health.Server
}

// NewServer creates a new Server configured from the given Config. m may be
// nil, in which case /metrics serves the default registry.
func NewServer(cfg *config.Config, runner *engine.Runner, sweeper *sweep.Sweeper, m *metrics.Metrics, logger *slog.Logger) *Server {
	s := &Server{
		cfg:      cfg,
		runner:   runner,
		sweeper:  sweeper,
		metrics:  m,
		logger:   logger.With("component", "api"),
		httpAddr: net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
	}
	if cfg.Server.GRPCPort > 0 {
		s.grpcAddr = net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.GRPCPort))
	}
	s.httpSrv = &http.Server{
		Addr:              s.httpAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.grpcSrv, s.health = newGRPCServer()
	return s
}

// ListenAndServe starts the HTTP and gRPC listeners and blocks until the
// context is cancelled or a fatal error occurs. Cancellation triggers a
// graceful shutdown.
func (s *Server) ListenAndServe(ctx context.Context) error {
	httpLn, err := net.Listen("tcp", s.httpAddr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.httpAddr, err)
	}
	var grpcLn net.Listener
	if s.grpcAddr != "" {
		grpcLn, err = net.Listen("tcp", s.grpcAddr)
		if err != nil {
			httpLn.Close()
			return fmt.Errorf("listening on %s: %w", s.grpcAddr, err)
		}
	}
	return s.Serve(ctx, httpLn, grpcLn)
}

// Serve runs the servers on already-open listeners. grpcLn may be nil.
func (s *Server) Serve(ctx context.Context, httpLn, grpcLn net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("http listening", "addr", httpLn.Addr().String())
		if err := s.httpSrv.Serve(httpLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	if grpcLn != nil {
		g.Go(func() error {
			s.logger.Info("grpc listening", "addr", grpcLn.Addr().String())
			if err := s.grpcSrv.Serve(grpcLn); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				return fmt.Errorf("grpc server: %w", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		shutCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return s.Shutdown(shutCtx)
	})

	return g.Wait()
}

// Shutdown performs a graceful shutdown of the HTTP and gRPC servers.
func (s *Server) Shutdown(ctx context.Context) error {
	s.health.Shutdown()

	stopped := make(chan struct{})
	go func() {
		s.grpcSrv.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-ctx.Done():
		s.grpcSrv.Stop()
	}

	if err := s.httpSrv.Shutdown(ctx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}
