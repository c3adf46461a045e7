// Copyright (C) 2026 Hearth
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/hearth-home/hearth/internal/api"
	"github.com/hearth-home/hearth/internal/config"
	"github.com/hearth-home/hearth/internal/gateway"
	"github.com/hearth-home/hearth/internal/logger"
	"github.com/hearth-home/hearth/internal/telemetry"
	"github.com/hearth-home/hearth/internal/transcript"
	"github.com/hearth-home/hearth/internal/tui"
)

func main() {
	cfg, err := config.NewConfig("config.yaml")
	if err != nil {
		// Only log to stderr on critical startup errors before logger is initialized
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Initialize(&cfg.Log); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.CloseGlobal()

	mainLog := logger.GetLogger("main")
	mainLog.Info().Msg("Starting hearth dashboard")

	shutdownTracing, err := telemetry.Init(context.Background(), &cfg.Telemetry)
	if err != nil {
		mainLog.Error().Err(err).Msg("Error initializing tracing")
		fmt.Fprintf(os.Stderr, "Error initializing tracing: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			mainLog.Error().Err(err).Msg("Error shutting down tracing")
		}
	}()

	sessions, err := gateway.NewSessionStore(cfg.State.Dir, logger.GetGatewayLogger())
	if err != nil {
		mainLog.Error().Err(err).Msg("Error opening session state")
		fmt.Fprintf(os.Stderr, "Error opening session state: %v\n", err)
		os.Exit(1)
	}

	rest, err := api.NewClient(cfg.Gateway.BaseURL, logger.GetAPILogger())
	if err != nil {
		mainLog.Error().Err(err).Msg("Error creating API client")
		fmt.Fprintf(os.Stderr, "Error creating API client: %v\n", err)
		os.Exit(1)
	}

	store := transcript.NewStore(logger.GetTranscriptLogger())
	client := gateway.NewClient(cfg.Gateway, store, sessions, logger.GetGatewayLogger())
	defer func() {
		mainLog.Info().Msg("Closing gateway connection...")
		client.Close()
	}()

	if err := tui.StartTUI(client, rest, store, sessions); err != nil {
		mainLog.Error().Err(err).Msg("TUI exited with error")
		fmt.Fprintf(os.Stderr, "Error running dashboard: %v\n", err)
		os.Exit(1)
	}

	mainLog.Info().Msg("Dashboard shut down")
}
