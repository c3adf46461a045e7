// Copyright (C) 2026 Hearth
// SPDX-License-Identifier: AGPL-3.0-or-later

package sim

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hearth-home/hearth/internal/config"
	"github.com/hearth-home/hearth/internal/history"
)

// Server is the REST + WebSocket gateway simulator.
type Server struct {
	httpServer *http.Server
}

// New wires up the simulator. It does NOT start listening — call Run() for
// that.
func New(cfg *config.ServerConfig, simCfg *config.SimConfig, hist *history.Store) (*Server, error) {
	book, err := LoadBook(simCfg.ScenarioFile)
	if err != nil {
		return nil, err
	}

	handlers := NewHandlers(hist)

	r := chi.NewRouter()

	// Global middleware
	r.Use(Recovery)
	r.Use(RequestID)
	r.Use(Logger)
	r.Use(CORS(cfg.AllowedOrigins))
	r.Use(MaxBodySize(1 << 20)) // 1 MB default

	// REST collaborators
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/login", handlers.Login)
		r.Get("/devices", handlers.GetDevices)
		r.Get("/actions", handlers.GetActions)

		r.Get("/rules", handlers.GetRules)
		r.Post("/rules", handlers.CreateRule)
		r.Put("/rules/{id}", handlers.UpdateRule)
		r.Delete("/rules/{id}", handlers.DeleteRule)

		r.Get("/models", handlers.GetModels)
		r.Post("/models", handlers.CreateModel)
		r.Delete("/models/{id}", handlers.DeleteModel)

		r.Get("/mcp-services", handlers.GetMcpServices)
		r.Post("/mcp-services", handlers.CreateMcpService)
		r.Delete("/mcp-services/{id}", handlers.DeleteMcpService)

		r.Get("/history", handlers.GetHistorySessions)
		r.Get("/history/{sessionId}", handlers.GetHistoryTurns)
		r.Delete("/history/{sessionId}", handlers.DeleteHistorySession)

		r.Get("/settings", handlers.GetSettings)
		r.Put("/settings", handlers.UpdateSettings)

		// Chat channel
		r.Get("/chat", HandleChat(book, hist, simCfg.FragmentDelay, cfg.AllowedOrigins))
	})

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
	}, nil
}

// Handler exposes the router, mainly for tests that mount the simulator on
// an ephemeral listener.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run blocks until the server is shut down.
func (s *Server) Run() error {
	getLog().Info().Str("addr", s.httpServer.Addr).Msg("Gateway simulator listening")
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the HTTP server. Open chat channels are closed
// by the listener teardown.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
