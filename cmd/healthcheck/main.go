package main

import (
	"context"
	"flag"
	"os"

	"github.com/louisbranch/duel/internal/cmd/healthcheck"
	"github.com/louisbranch/duel/internal/platform/config"
)

func main() {
	cfg, err := healthcheck.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("parse flags: %v", err)
	}
	if err := healthcheck.Run(context.Background(), cfg, nil); err != nil {
		config.Exitf("unhealthy: %v", err)
	}
}
