// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package web serves the analysis and versioning API over HTTP.
package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"lexscan/internal/metrics"
	"lexscan/internal/orchestrator"
	"lexscan/internal/versioning"

	// Import formatters to register them
	_ "lexscan/internal/formatters/csv"
	_ "lexscan/internal/formatters/json"
	_ "lexscan/internal/formatters/text"
	_ "lexscan/internal/formatters/yaml"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

const (
	maxUploadSize   = 100 << 20 // 100MB limit per uploaded document
	maxJSONBodySize = 10 << 20
	shutdownTimeout = 10 * time.Second
)

// Services are the collaborators the API exposes
type Services struct {
	Orchestrator *orchestrator.Orchestrator
	Versions     *versioning.Store
	// Persist, when set, runs after every request that changes a history
	Persist func(ctx context.Context) error
}

// Config holds listener settings
type Config struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server is the HTTP API
type Server struct {
	cfg      Config
	svc      Services
	log      zerolog.Logger
	validate *validator.Validate
	router   chi.Router
	server   *http.Server
}

// NewServer builds the router
func NewServer(cfg Config, svc Services, log zerolog.Logger) *Server {
	s := &Server{
		cfg:      cfg,
		svc:      svc,
		log:      log,
		validate: validator.New(),
	}
	s.router = s.routes()
	return s
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.instrument)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/formats", s.handleFormats)
		r.Post("/analyze", s.handleAnalyze)

		r.Get("/jobs", s.handleListJobs)
		r.Get("/jobs/{id}", s.handleGetJob)
		r.Delete("/jobs/{id}", s.handleCancelJob)

		r.Post("/import", s.handleImport)
		r.Get("/documents", s.handleListDocuments)
		r.Route("/documents/{doc}", func(r chi.Router) {
			r.Post("/versions", s.handleCreateVersion)
			r.Get("/versions", s.handleListVersions)
			r.Get("/versions/latest", s.handleLatestVersion)
			r.Get("/versions/{id}", s.handleGetVersion)
			r.Get("/compare", s.handleCompare)
			r.Post("/rollback", s.handleRollback)
			r.Post("/branches", s.handleCreateBranch)
			r.Get("/branches", s.handleListBranches)
			r.Get("/export", s.handleExport)
		})
	})
	return r
}

// instrument counts requests by route pattern and logs them
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		metrics.RecordHTTPRequest(route, strconv.Itoa(status))
		s.log.Debug().
			Str("method", r.Method).
			Str("route", route).
			Int("status", status).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request served")
	})
}

// createSecureServer creates an HTTP server with security timeouts
func (s *Server) createSecureServer() *http.Server {
	return &http.Server{
		Addr:    s.cfg.Addr,
		Handler: s.router,
		// Timeout for reading request headers (prevents slow header attacks)
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	s.server = s.createSecureServer()

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.cfg.Addr).Msg("lexscan API listening")
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server on %s failed: %w", s.cfg.Addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

// Stop closes the listener immediately
func (s *Server) Stop() error {
	if s.server != nil {
		return s.server.Close()
	}
	return nil
}
