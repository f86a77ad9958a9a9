// Package api exposes the verification pipeline over HTTP.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/verilayer/lavs/internal/domain"
)

// Server is the HTTP server for the LAVS API.
type Server struct {
	cfg     domain.ServerConfig
	handler *Handler
	router  chi.Router
	srv     *http.Server
}

// NewServer creates a server around a handler.
func NewServer(cfg domain.ServerConfig, handler *Handler) *Server {
	s := &Server{
		cfg:     cfg,
		handler: handler,
	}
	s.router = s.buildRouter()
	return s
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(RecoverMiddleware)
	r.Use(CORSMiddleware)
	r.Use(TracingMiddleware)
	r.Use(LoggingMiddleware)
	r.Use(middleware.Compress(5))

	r.Get("/health", s.handler.Health)
	r.Get("/ready", s.handler.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/verify", s.handler.Verify)
		r.Get("/rules", s.handler.ListRules)
		r.Get("/rules/{id}", s.handler.GetRule)
		r.Get("/profiles", s.handler.GetProfiles)
	})

	return r
}

// Router returns the configured router, mainly for tests.
func (s *Server) Router() chi.Router {
	return s.router
}

// Start begins serving. It blocks until the server stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	s.srv = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.cfg.WriteTimeout) * time.Second,
	}

	slog.Info("starting http server", "addr", addr)

	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	slog.Info("shutting down http server")
	return s.srv.Shutdown(ctx)
}
