// Churnwatch - Churn Risk Scoring and Retention Policy Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnwatch

package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/tomtom215/churnwatch/docs" // swagger spec for /swagger/*
	"github.com/tomtom215/churnwatch/internal/config"
	"github.com/tomtom215/churnwatch/internal/logging"
	"github.com/tomtom215/churnwatch/internal/supervisor"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Logging is not configured yet; the default logger writes JSON to stderr.
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
		Service:   "churnwatch",
	})

	logging.Info().
		Str("app", cfg.App.Name).
		Str("version", cfg.App.Version).
		Str("config_file", cfg.ConfigFile).
		Str("environment", cfg.Server.Environment).
		Str("auth_mode", cfg.Security.AuthMode).
		Msg("Starting churnwatch")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := newApp(ctx, cfg)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to initialize")
		cancel()
		os.Exit(1) //nolint:gocritic // cancel already called
	}
	defer a.close()

	tree := supervisor.NewSupervisorTree(logging.NewComponentSlogLogger("supervisor"), supervisor.DefaultTreeConfig())
	a.register(tree)

	logging.Info().Str("addr", a.server.Addr).Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	// ServeBackground delivers exactly one result and never closes the channel.
	select {
	case <-ctx.Done():
		logging.Info().Msg("Shutdown signal received, waiting for services to stop")
		err = <-errCh
	case err = <-errCh:
		cancel()
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor tree error")
	}

	if unstopped, _ := tree.UnstoppedServiceReport(); len(unstopped) > 0 {
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
		}
	}

	logging.Info().Msg("Churnwatch stopped")
}
