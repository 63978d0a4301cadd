// Package main runs miner operations subcommands.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	minerctlcmd "github.com/louisbranch/lodestone/internal/cmd/minerctl"
	entrypoint "github.com/louisbranch/lodestone/internal/platform/cmd"
	"github.com/louisbranch/lodestone/internal/platform/config"
)

func main() {
	cfg, err := minerctlcmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("Error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	err = entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceMinerctl, func(ctx context.Context) error {
		return minerctlcmd.Run(ctx, cfg, os.Stdout)
	})
	if err != nil {
		config.Exitf("Error: %v", err)
	}
}
