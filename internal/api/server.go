// Copyright (c) 2026 Moneta. All rights reserved.
// Author: dev@moneta.app

/*
Package api assembles the HTTP server for the Moneta backend.

It owns the middleware chain, route mounting, and graceful shutdown; the
business logic lives in the domain packages it mounts.
*/
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/moneta-app/moneta/internal/platform/config"
	"github.com/moneta-app/moneta/internal/platform/constants"
	"github.com/moneta-app/moneta/internal/platform/middleware"
	"github.com/moneta-app/moneta/internal/platform/sec"
	"github.com/moneta-app/moneta/internal/users/auth"
)

// Server is the top-level HTTP server for the Moneta API.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// New assembles the router, middleware chain, and route tree.
func New(
	cfg *config.Config,
	logger *slog.Logger,
	pool *pgxpool.Pool,
	redisClient *redis.Client,
	tokenIssuer *sec.TokenIssuer,
	authHandler *auth.Handler,
) *Server {
	router := chi.NewRouter()

	rateLimiter := middleware.NewRateLimiter(
		constants.DefaultRateLimitRPS, constants.DefaultRateLimitBurst)

	// Order matters: tracing first, then logging, then protections, then
	// identity resolution. CORS sits outside authentication so preflights
	// never need a token.
	router.Use(chimw.CleanPath)
	router.Use(middleware.RequestID)
	router.Use(middleware.StructuredLogger(logger))
	router.Use(chimw.Timeout(constants.GlobalRequestTimeout))
	router.Use(middleware.CORS(cfg.FrontendURL, splitOrigins(cfg.ExtraOrigins), cfg.IsDevelopment()))
	router.Use(rateLimiter.Handler)
	router.Use(middleware.PanicRecovery)
	router.Use(middleware.Authenticate(tokenIssuer))

	registerHealthRoutes(router, pool, redisClient)
	router.Mount("/auth", authHandler.Routes())

	return &Server{
		httpServer: &http.Server{
			Addr:              ":" + cfg.ServerPort,
			Handler:           router,
			ReadTimeout:       constants.DefaultReadTimeout,
			WriteTimeout:      constants.DefaultWriteTimeout,
			IdleTimeout:       constants.DefaultIdleTimeout,
			ReadHeaderTimeout: constants.DefaultReadHeaderTimeout,
		},
		logger: logger,
	}
}

// Start begins serving requests and blocks until the server stops.
func (s *Server) Start() error {
	s.logger.Info("server_listening", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api: server failed: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server_shutting_down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("api: shutdown failed: %w", err)
	}
	return nil
}

// splitOrigins parses the comma-separated EXTRA_ORIGINS value.
func splitOrigins(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	origins := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
