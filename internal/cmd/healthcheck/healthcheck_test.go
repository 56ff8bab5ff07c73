package healthcheck

import (
	"context"
	"errors"
	"flag"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"

	platformgrpc "github.com/louisbranch/duel/internal/platform/grpc"
	server "github.com/louisbranch/duel/internal/services/duel/app"
)

func startLobbyHealth(t *testing.T, status grpc_health_v1.HealthCheckResponse_ServingStatus) string {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	healthServer.SetServingStatus(server.LobbyHealthService, status)
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	go func() {
		_ = grpcServer.Serve(listener)
	}()
	t.Cleanup(grpcServer.Stop)
	return listener.Addr().String()
}

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("healthcheck", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.GRPCAddr != "localhost:8081" {
		t.Fatalf("expected default grpc addr, got %q", cfg.GRPCAddr)
	}
}

func TestParseConfigOverrides(t *testing.T) {
	t.Setenv("DUEL_GRPC_ADDR", "env-grpc")

	fs := flag.NewFlagSet("healthcheck", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-timeout", "3s"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.GRPCAddr != "env-grpc" {
		t.Fatalf("expected env grpc addr, got %q", cfg.GRPCAddr)
	}
	if cfg.Timeout != 3*time.Second {
		t.Fatalf("expected flag timeout, got %s", cfg.Timeout)
	}
}

func TestRunServing(t *testing.T) {
	addr := startLobbyHealth(t, grpc_health_v1.HealthCheckResponse_SERVING)

	if err := Run(context.Background(), Config{GRPCAddr: addr, Timeout: time.Second}, nil); err != nil {
		t.Fatalf("run: %v", err)
	}
}

func TestRunNotServing(t *testing.T) {
	addr := startLobbyHealth(t, grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	err := Run(context.Background(), Config{GRPCAddr: addr, Timeout: 300 * time.Millisecond}, nil)
	var dialErr *platformgrpc.DialError
	if !errors.As(err, &dialErr) {
		t.Fatalf("err = %v, want DialError", err)
	}
	if dialErr.Stage != platformgrpc.DialStageHealth {
		t.Fatalf("stage = %q, want %q", dialErr.Stage, platformgrpc.DialStageHealth)
	}
}

func TestRunRequiresAddr(t *testing.T) {
	if err := Run(context.Background(), Config{GRPCAddr: " "}, nil); err == nil {
		t.Fatal("expected error for empty address")
	}
}
