// Package duel parses duel command flags and composes the relay server.
package duel

import (
	"context"
	"flag"
	"fmt"
	"time"

	entrypoint "github.com/louisbranch/duel/internal/platform/cmd"
	server "github.com/louisbranch/duel/internal/services/duel/app"
)

// Config holds duel command configuration.
type Config struct {
	HTTPAddr          string        `env:"DUEL_HTTP_ADDR"          envDefault:":8080"`
	GRPCAddr          string        `env:"DUEL_GRPC_ADDR"          envDefault:":8081"`
	JoinTimeout       time.Duration `env:"DUEL_JOIN_TIMEOUT"       envDefault:"2m"`
	HeartbeatInterval time.Duration `env:"DUEL_HEARTBEAT_INTERVAL" envDefault:"1s"`
	TelemetryDBPath   string        `env:"DUEL_TELEMETRY_DB_PATH"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "duel HTTP/WebSocket listen address")
	fs.StringVar(&cfg.GRPCAddr, "grpc-addr", cfg.GRPCAddr, "duel gRPC health listen address")
	fs.DurationVar(&cfg.JoinTimeout, "join-timeout", cfg.JoinTimeout, "how long a joiner waits for an opponent")
	fs.DurationVar(&cfg.HeartbeatInterval, "heartbeat-interval", cfg.HeartbeatInterval, "websocket ping interval")
	fs.StringVar(&cfg.TelemetryDBPath, "telemetry-db-path", cfg.TelemetryDBPath, "sqlite path for lobby telemetry events")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run builds the duel server and serves until the context ends.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceDuel, func(context.Context) error {
		if err := server.Run(ctx, server.Config{
			HTTPAddr:          cfg.HTTPAddr,
			GRPCAddr:          cfg.GRPCAddr,
			JoinTimeout:       cfg.JoinTimeout,
			HeartbeatInterval: cfg.HeartbeatInterval,
			TelemetryDBPath:   cfg.TelemetryDBPath,
		}); err != nil {
			return fmt.Errorf("serve duel: %w", err)
		}
		return nil
	})
}
