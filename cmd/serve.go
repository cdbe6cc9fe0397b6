package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/koopa0/kura/api"
	"github.com/koopa0/kura/internal/app"
	"github.com/koopa0/kura/internal/config"
)

// parseRateBurst reads KURA_RATE_BURST from the environment.
// Returns 0 (use default) if unset or invalid.
func parseRateBurst() int {
	v := os.Getenv("KURA_RATE_BURST")
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// runServe initializes and starts the HTTP API server.
func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err = cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	addr, err := parseServeAddr(cfg.ServerAddr)
	if err != nil {
		return fmt.Errorf("parsing address: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := defaultLogger()
	logger.Info("starting HTTP API server", "version", Version)

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	var opts []api.ServerOption
	if burst := parseRateBurst(); burst > 0 {
		opts = append(opts, api.WithRateBurst(burst))
	}
	srv := api.NewServer(a.Pool, a.Answerer, logger, opts...)

	logger.Info("HTTP server ready",
		"addr", addr,
		"chat", "/v1/chat/completions",
		"health", "/health, /ready",
	)

	return srv.Run(ctx, addr)
}
