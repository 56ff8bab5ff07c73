// Package server wires the duel runtime: the lobby, the websocket relay, the
// gRPC health endpoint and the telemetry store.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/louisbranch/duel/internal/platform/timeouts"
	"github.com/louisbranch/duel/internal/services/duel/domain/lobby"
	"github.com/louisbranch/duel/internal/services/duel/domain/rules"
	"github.com/louisbranch/duel/internal/services/duel/domain/rules/chess"
	duelsqlite "github.com/louisbranch/duel/internal/services/duel/storage/sqlite"
	"github.com/louisbranch/duel/internal/telemetry"
)

// Config defines the inputs for the duel server.
type Config struct {
	HTTPAddr          string
	GRPCAddr          string
	JoinTimeout       time.Duration
	HeartbeatInterval time.Duration
	// TelemetryDBPath enables the SQLite telemetry store when set.
	TelemetryDBPath   string
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
	// Engine defaults to chess.
	Engine rules.Engine
}

// Server hosts the duel HTTP/WebSocket relay and its gRPC health endpoint.
type Server struct {
	httpListener    net.Listener
	httpServer      *http.Server
	grpcListener    net.Listener
	grpcServer      *grpc.Server
	health          *health.Server
	manager         *lobby.Manager
	store           *duelsqlite.Store
	shutdownTimeout time.Duration
}

// NewServer builds a configured duel server and binds its listeners.
func NewServer(config Config) (*Server, error) {
	httpAddr := strings.TrimSpace(config.HTTPAddr)
	if httpAddr == "" {
		return nil, errors.New("http address is required")
	}
	grpcAddr := strings.TrimSpace(config.GRPCAddr)
	if grpcAddr == "" {
		return nil, errors.New("grpc address is required")
	}
	if config.ReadHeaderTimeout <= 0 {
		config.ReadHeaderTimeout = timeouts.ReadHeader
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = timeouts.Shutdown
	}
	if config.HeartbeatInterval <= 0 {
		config.HeartbeatInterval = timeouts.Heartbeat
	}
	if config.Engine == nil {
		config.Engine = chess.New()
	}

	s := &Server{shutdownTimeout: config.ShutdownTimeout}
	var emitter *telemetry.Emitter
	if path := strings.TrimSpace(config.TelemetryDBPath); path != "" {
		store, err := openTelemetryStore(path)
		if err != nil {
			return nil, err
		}
		s.store = store
		emitter = telemetry.NewEmitter(store)
	}

	manager, err := lobby.NewManager(lobby.Config{
		Engine:      config.Engine,
		JoinTimeout: config.JoinTimeout,
		Emitter:     emitter,
	})
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("init lobby: %w", err)
	}
	s.manager = manager

	s.httpListener, err = net.Listen("tcp", httpAddr)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("listen on %s: %w", httpAddr, err)
	}
	s.grpcListener, err = net.Listen("tcp", grpcAddr)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("listen on %s: %w", grpcAddr, err)
	}

	s.httpServer = &http.Server{
		Handler:           newHandler(manager, config.HeartbeatInterval),
		ReadHeaderTimeout: config.ReadHeaderTimeout,
	}
	s.grpcServer = grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	s.health = newHealthServer()
	grpc_health_v1.RegisterHealthServer(s.grpcServer, s.health)
	return s, nil
}

// HTTPAddr returns the bound HTTP listener address.
func (s *Server) HTTPAddr() string {
	if s == nil || s.httpListener == nil {
		return ""
	}
	return s.httpListener.Addr().String()
}

// GRPCAddr returns the bound gRPC listener address.
func (s *Server) GRPCAddr() string {
	if s == nil || s.grpcListener == nil {
		return ""
	}
	return s.grpcListener.Addr().String()
}

// Run creates and serves a duel server until the context ends.
func Run(ctx context.Context, config Config) error {
	server, err := NewServer(config)
	if err != nil {
		return fmt.Errorf("init duel server: %w", err)
	}
	defer server.Close()

	if err := server.ListenAndServe(ctx); err != nil {
		return fmt.Errorf("serve duel: %w", err)
	}
	return nil
}

// ListenAndServe starts the lobby and serves HTTP and gRPC until the context
// ends. On shutdown the health status flips first, then the lobby stops,
// which aborts live games so their handlers can notify players.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s == nil {
		return errors.New("duel server is nil")
	}
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := s.manager.Start(ctx); err != nil {
		return fmt.Errorf("start lobby: %w", err)
	}

	serveErr := make(chan error, 2)
	log.Printf("duel server listening on %s (gRPC %s)", s.HTTPAddr(), s.GRPCAddr())
	go func() {
		err := s.httpServer.Serve(s.httpListener)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		serveErr <- err
	}()
	go func() {
		err := s.grpcServer.Serve(s.grpcListener)
		if errors.Is(err, grpc.ErrServerStopped) {
			err = nil
		}
		serveErr <- err
	}()
	setServing(s.health, true)

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			runErr = fmt.Errorf("serve: %w", err)
		}
	}

	setServing(s.health, false)
	s.manager.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil && runErr == nil {
		runErr = fmt.Errorf("shutdown http server: %w", err)
	}
	s.grpcServer.GracefulStop()
	return runErr
}

// Close releases server resources.
func (s *Server) Close() {
	if s == nil {
		return
	}
	if s.health != nil {
		s.health.Shutdown()
	}
	if s.manager != nil {
		s.manager.Stop()
	}
	if s.grpcServer != nil {
		s.grpcServer.Stop()
	}
	if s.httpServer != nil {
		_ = s.httpServer.Close()
	}
	if s.grpcListener != nil {
		_ = s.grpcListener.Close()
	}
	if s.httpListener != nil {
		_ = s.httpListener.Close()
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			log.Printf("close telemetry store: %v", err)
		}
	}
}

func openTelemetryStore(path string) (*duelsqlite.Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	store, err := duelsqlite.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open telemetry sqlite store: %w", err)
	}
	return store, nil
}
