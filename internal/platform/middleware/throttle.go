// Copyright (c) 2026 Moneta. All rights reserved.
// Author: dev@moneta.app

package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/moneta-app/moneta/internal/platform/apperr"
	"github.com/moneta-app/moneta/internal/platform/constants"
	"github.com/moneta-app/moneta/internal/platform/ctxutil"
	"github.com/moneta-app/moneta/internal/platform/respond"
)

// Throttle limits how often a single IP may hit one route inside a fixed
// window, backed by a Redis counter.
//
// The code-issuing auth endpoints use this to blunt email-bombing: the
// global rate limiter is far too permissive for routes that send mail.
// Redis trouble fails open so an outage never locks users out.
func Throttle(client *redis.Client, route string, limit int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			ctx := request.Context()
			key := fmt.Sprintf("%s%s:%s", constants.RedisPrefixThrottle, route, clientIP(request))

			count, err := client.Incr(ctx, key).Result()
			if err != nil {
				ctxutil.GetLogger(ctx).Warn("throttle_unavailable",
					slog.String("route", route), slog.Any("error", err))
				next.ServeHTTP(writer, request)
				return
			}
			if count == 1 {
				client.Expire(ctx, key, window)
			}

			if count > int64(limit) {
				retryAfter := int(window.Seconds())
				if ttl, err := client.TTL(ctx, key).Result(); err == nil && ttl > 0 {
					retryAfter = int(ttl.Seconds())
				}
				writer.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
				respond.Error(writer, request, apperr.RateLimited(retryAfter))
				return
			}

			next.ServeHTTP(writer, request)
		})
	}
}
