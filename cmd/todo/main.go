package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/Makepad-fr/tada-sync/internal/cli"
	"github.com/Makepad-fr/tada-sync/internal/config"
	"github.com/Makepad-fr/tada-sync/internal/credentials"
	"github.com/Makepad-fr/tada-sync/internal/logging"
	"github.com/Makepad-fr/tada-sync/internal/ui"
)

func main() {
	// Root flags (apply to every subcommand)
	fs := pflag.NewFlagSet("todo", pflag.ContinueOnError)
	config.RegisterFlags(fs)

	cfg, args, err := config.Load(fs, os.Args[1:])
	if err != nil {
		if code := cli.ExitCode(err); code == 0 {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ui.SetColorForcing(false, cfg.NoColor)
	if !ui.SetTheme(cfg.Theme) {
		ui.Warn(os.Stderr, fmt.Sprintf("unknown theme %q, using classic", cfg.Theme))
	}

	logger := logging.New(os.Stderr, logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Prefix: "tada",
	})

	creds, err := credentials.DefaultStore()
	if err != nil {
		logger.Warn("credentials unavailable", "err", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Hand the remaining args to the CLI runner.
	code := cli.New(cfg, creds, logger).Run(ctx, args)
	if code != 0 {
		fmt.Fprintln(os.Stderr)
	}
	stop()
	os.Exit(code)
}
