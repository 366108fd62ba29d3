// Copyright (c) 2026 Moneta. All rights reserved.
// Author: dev@moneta.app

/*
Package middleware provides the HTTP middleware chain for the Moneta API.

It includes request tracing, structured request logging, per-IP rate
limiting, panic recovery, CORS, token authentication, and Redis-backed
abuse throttles for the code-issuing auth endpoints.
*/
package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/moneta-app/moneta/internal/platform/apperr"
	"github.com/moneta-app/moneta/internal/platform/constants"
	"github.com/moneta-app/moneta/internal/platform/ctxutil"
	"github.com/moneta-app/moneta/internal/platform/respond"
	"github.com/moneta-app/moneta/pkg/uuid"
)

// # Request Tracing

// RequestID attaches a unique ID to every request, honoring an inbound
// X-Request-ID header so traces can span the edge proxy.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		id := request.Header.Get(constants.HeaderXRequestID)
		if id == "" {
			id = uuid.New()
		}
		writer.Header().Set(constants.HeaderXRequestID, id)
		next.ServeHTTP(writer, request.WithContext(
			ctxutil.WithRequestID(request.Context(), id)))
	})
}

// # Structured Logging

// statusRecorder captures the response status code for the access log.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// StructuredLogger logs one line per request and injects a request-scoped
// sub-logger into the context so downstream code logs with the request ID.
func StructuredLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			start := time.Now()
			recorder := &statusRecorder{ResponseWriter: writer, status: http.StatusOK}

			requestLogger := logger.With(
				slog.String("request_id", ctxutil.GetRequestID(request.Context())))
			request = request.WithContext(
				ctxutil.WithLogger(request.Context(), requestLogger))

			next.ServeHTTP(recorder, request)

			requestLogger.Info("http_request",
				slog.String("method", request.Method),
				slog.String("path", request.URL.Path),
				slog.Int("status", recorder.status),
				slog.Duration("duration", time.Since(start)),
				slog.String("ip", clientIP(request)),
			)
		})
	}
}

// clientIP resolves the caller address behind the edge proxy.
func clientIP(request *http.Request) string {
	if ip := request.Header.Get(constants.HeaderXRealIP); ip != "" {
		return ip
	}
	if forwarded := request.Header.Get(constants.HeaderXForwardedFor); forwarded != "" {
		return strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}
	addr := request.RemoteAddr
	if i := strings.LastIndex(addr, ":"); i > 0 {
		addr = addr[:i]
	}
	return addr
}

// # Rate Limiting

// visitor tracks the limiter and last-seen time for one client IP.
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter enforces a per-IP token bucket across the whole API.
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rps      rate.Limit
	burst    int
}

// NewRateLimiter creates a limiter and starts its background cleanup loop.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	limiter := &RateLimiter{
		visitors: make(map[string]*visitor),
		rps:      rate.Limit(rps),
		burst:    burst,
	}
	go limiter.cleanup()
	return limiter
}

// cleanup evicts idle clients so the visitor map stays bounded.
func (rl *RateLimiter) cleanup() {
	for range time.Tick(constants.RateLimitCleanupInterval) {
		rl.mu.Lock()
		for ip, v := range rl.visitors {
			if time.Since(v.lastSeen) > constants.RateLimitClientTTL {
				delete(rl.visitors, ip)
			}
		}
		rl.mu.Unlock()
	}
}

func (rl *RateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, ok := rl.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.rps, rl.burst)}
		rl.visitors[ip] = v
	}
	v.lastSeen = time.Now()
	return v.limiter.Allow()
}

// Handler returns the middleware enforcing the limit.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if !rl.allow(clientIP(request)) {
			respond.Error(writer, request, apperr.RateLimited(1))
			return
		}
		next.ServeHTTP(writer, request)
	})
}

// # Panic Recovery

// PanicRecovery converts handler panics into clean 500 responses.
func PanicRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		defer func() {
			if recovered := recover(); recovered != nil {
				logger := ctxutil.GetLogger(request.Context())
				logger.Error("panic_recovered",
					slog.Any("panic", recovered),
					slog.String("path", request.URL.Path),
				)
				respond.Error(writer, request, apperr.ServiceUnavailable("The server encountered a problem"))
			}
		}()
		next.ServeHTTP(writer, request)
	})
}

// # CORS

// CORS allows the configured SPA origins to call the API with credentials.
//
// Cookies only flow cross-origin when Access-Control-Allow-Credentials is
// set and the origin is echoed back verbatim, never wildcarded.
func CORS(frontendURL string, extraOrigins []string, development bool) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(extraOrigins)+1)
	if frontendURL != "" {
		allowed[frontendURL] = struct{}{}
	}
	for _, origin := range extraOrigins {
		if origin = strings.TrimSpace(origin); origin != "" {
			allowed[origin] = struct{}{}
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			origin := request.Header.Get(constants.HeaderOrigin)
			_, ok := allowed[origin]
			if origin != "" && (ok || development) {
				header := writer.Header()
				header.Set("Access-Control-Allow-Origin", origin)
				header.Set("Access-Control-Allow-Credentials", "true")
				header.Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
				header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
				header.Add("Vary", constants.HeaderOrigin)
			}

			if request.Method == http.MethodOptions {
				writer.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(writer, request)
		})
	}
}
