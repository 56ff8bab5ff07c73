// Package healthcheck probes a running duel server's lobby over gRPC health.
package healthcheck

import (
	"context"
	"errors"
	"flag"
	"strings"
	"time"

	entrypoint "github.com/louisbranch/duel/internal/platform/cmd"
	platformgrpc "github.com/louisbranch/duel/internal/platform/grpc"
	"github.com/louisbranch/duel/internal/platform/timeouts"
	server "github.com/louisbranch/duel/internal/services/duel/app"
)

// Config holds healthcheck command configuration.
type Config struct {
	GRPCAddr string        `env:"DUEL_GRPC_ADDR" envDefault:"localhost:8081"`
	Timeout  time.Duration `env:"DUEL_HEALTHCHECK_TIMEOUT"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.GRPCAddr, "grpc-addr", cfg.GRPCAddr, "duel gRPC address")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "how long to wait for SERVING")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run returns nil once the lobby reports SERVING.
func Run(ctx context.Context, cfg Config, logf func(string, ...any)) error {
	addr := strings.TrimSpace(cfg.GRPCAddr)
	if addr == "" {
		return errors.New("grpc address is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = timeouts.GRPCDial
	}
	conn, err := platformgrpc.DialWithHealth(ctx, nil, addr, server.LobbyHealthService, timeout, logf, platformgrpc.DefaultClientDialOptions()...)
	if err != nil {
		return err
	}
	return conn.Close()
}
