// Copyright (C) 2026 Hearth
// SPDX-License-Identifier: AGPL-3.0-or-later

// gatewaysim is a local stand-in for the smart-home gateway: it serves the
// chat WebSocket and the REST collaborator endpoints with scripted replies.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hearth-home/hearth/internal/config"
	"github.com/hearth-home/hearth/internal/history"
	"github.com/hearth-home/hearth/internal/logger"
	"github.com/hearth-home/hearth/internal/sim"
)

func main() {
	cfg, err := config.NewConfig("config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Initialize(&cfg.Log); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.CloseGlobal()

	mainLog := logger.GetLogger("main")
	mainLog.Info().Msg("Starting gateway simulator")

	hist, err := history.NewStore(&cfg.Database, logger.GetHistoryLogger())
	if err != nil {
		mainLog.Error().Err(err).Msg("Error opening history store")
		fmt.Fprintf(os.Stderr, "Error opening history store: %v\n", err)
		os.Exit(1)
	}

	srv, err := sim.New(&cfg.Server, &cfg.Sim, hist)
	if err != nil {
		mainLog.Error().Err(err).Msg("Error creating simulator")
		fmt.Fprintf(os.Stderr, "Error creating simulator: %v\n", err)
		os.Exit(1)
	}

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- srv.Run()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		mainLog.Info().Msgf("Received signal %v, shutting down...", sig)
	case err := <-serverErrChan:
		if err != nil {
			mainLog.Error().Err(err).Msg("Server error")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		mainLog.Error().Err(err).Msg("Error shutting down server")
	}

	mainLog.Info().Msg("Gateway simulator shut down")
}
