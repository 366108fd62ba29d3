// Copyright (c) 2026 Moneta. All rights reserved.
// Author: dev@moneta.app

// Command api runs the Moneta backend HTTP server.
//
// Startup order: env + config, logging, migrations, backing stores,
// domain services, HTTP server. Any failure before the listen call is
// fatal; after that the process runs until SIGINT/SIGTERM and drains
// gracefully.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"

	"github.com/moneta-app/moneta/internal/api"
	"github.com/moneta-app/moneta/internal/core/category"
	"github.com/moneta-app/moneta/internal/platform/config"
	"github.com/moneta-app/moneta/internal/platform/constants"
	"github.com/moneta-app/moneta/internal/platform/mailer"
	"github.com/moneta-app/moneta/internal/platform/middleware"
	"github.com/moneta-app/moneta/internal/platform/migration"
	"github.com/moneta-app/moneta/internal/platform/postgres"
	"github.com/moneta-app/moneta/internal/platform/redis"
	"github.com/moneta-app/moneta/internal/platform/sec"
	"github.com/moneta-app/moneta/internal/users/auth"
)

// Per-route throttle windows for the code-issuing endpoints.
const (
	verifyThrottleLimit  = 5
	verifyThrottleWindow = time.Minute
	resetThrottleLimit   = 1
	resetThrottleWindow  = time.Minute
)

func main() {
	// A missing .env file is fine in production; config comes from the
	// real environment there.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config_load_failed", slog.Any("error", err))
		os.Exit(1)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("fatal", slog.Any("error", err))
		os.Exit(1)
	}
}

// newLogger builds the process logger: colorized text in development,
// JSON for log aggregation everywhere else.
func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}

	if cfg.IsDevelopment() {
		return slog.New(tint.NewHandler(os.Stdout, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		}))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx := context.Background()

	if err := migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, logger); err != nil {
		return err
	}

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	redisClient, err := redis.NewClient(ctx, cfg.RedisURL, logger)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	tokenIssuer := sec.NewTokenIssuer(cfg.JWTSecret, constants.AuthIssuer,
		auth.AccessTokenTTL, auth.RefreshTokenTTL)

	smtpMailer, err := mailer.New(mailer.SMTPSettings{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		Sender:   cfg.SMTPSender,
	}, logger)
	if err != nil {
		return err
	}

	categoryService := category.NewService(category.NewPostgresStore(pool), logger)

	credentialStore := auth.NewPostgresStore(pool)
	authService := auth.NewService(
		credentialStore,
		credentialStore,
		credentialStore,
		tokenIssuer,
		smtpMailer,
		categoryService,
		cfg.FrontendURL,
		logger,
	)
	authHandler := auth.NewHandler(authService, cfg.IsProduction(), auth.RouteGuards{
		VerifyThrottle: middleware.Throttle(redisClient, "verify-email", verifyThrottleLimit, verifyThrottleWindow),
		ResetThrottle:  middleware.Throttle(redisClient, "password-reset", resetThrottleLimit, resetThrottleWindow),
	})

	server := api.New(cfg, logger, pool, redisClient, tokenIssuer, authHandler)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		logger.Info("signal_received", slog.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, constants.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
