package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mandalnilabja/drawgate/internal/app"
	"github.com/mandalnilabja/drawgate/internal/config"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "drawgate: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if err := config.LoadDotEnv(".env"); err != nil {
		return fmt.Errorf("load .env: %w", err)
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration:\n%w", err)
	}

	logger := setupLogger(cfg)
	slog.SetDefault(logger)

	if err := config.EnsureDataDir(); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	if err := config.EnsureConfigFile(); err != nil {
		logger.Warn("could not write default config file", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gateway, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := gateway.Close(); err != nil {
			logger.Error("close storage", "error", err)
		}
	}()

	printStartupBanner(cfg, gateway.Model)

	srv := app.NewServer(cfg, gateway.Handler, logger)
	return srv.Start(ctx)
}
