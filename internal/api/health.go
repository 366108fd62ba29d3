// Copyright (c) 2026 Moneta. All rights reserved.
// Author: dev@moneta.app

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"

	"github.com/moneta-app/moneta/internal/platform/constants"
	"github.com/moneta-app/moneta/internal/platform/postgres"
	"github.com/moneta-app/moneta/internal/platform/redis"
	"github.com/moneta-app/moneta/internal/platform/respond"
)

// registerHealthRoutes mounts liveness and readiness probes.
//
// /health answers as long as the process runs; /ready additionally verifies
// the backing stores, so the orchestrator only routes traffic to instances
// that can actually serve it.
func registerHealthRoutes(router chi.Router, pool *pgxpool.Pool, redisClient *goredis.Client) {
	router.Get("/health", func(writer http.ResponseWriter, request *http.Request) {
		respond.OK(writer, map[string]string{
			constants.FieldStatus: "ok",
			"version":             constants.AppVersion,
		})
	})

	router.Get("/ready", func(writer http.ResponseWriter, request *http.Request) {
		checks := map[string]string{
			"postgres": "ok",
			"redis":    "ok",
		}
		healthy := true

		if err := postgres.Ping(request.Context(), pool); err != nil {
			checks["postgres"] = err.Error()
			healthy = false
		}
		if err := redis.Ping(request.Context(), redisClient); err != nil {
			checks["redis"] = err.Error()
			healthy = false
		}

		status := http.StatusOK
		if !healthy {
			status = http.StatusServiceUnavailable
		}
		respond.JSON(writer, status, respond.SuccessEnvelope{Data: checks})
	})
}
