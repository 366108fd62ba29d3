// Copyright (c) 2026 Moneta. All rights reserved.
// Author: dev@moneta.app

package auth

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/moneta-app/moneta/internal/platform/ctxutil"
)

// ProactiveRenew rotates the session before the access token runs out.
//
// On every authenticated request it inspects the verified access token's
// remaining lifetime. At or below [RenewalThreshold] it performs a full
// rotation with the refresh cookie and replaces both auth cookies on the
// response, so an active user never experiences an expiry.
//
// Renewal is strictly best-effort: any failure (missing cookie, revoked or
// tampered refresh token, storage trouble) is logged and swallowed, and the
// request proceeds on the still-valid access token. Hard rejections stay
// the business of /auth/login-cached.
func (h *Handler) ProactiveRenew(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		claims := ctxutil.GetAuthUser(request.Context())
		if claims == nil || claims.ExpiresAt == nil {
			next.ServeHTTP(writer, request)
			return
		}

		if time.Until(claims.ExpiresAt.Time) > RenewalThreshold {
			next.ServeHTTP(writer, request)
			return
		}

		token, ok := refreshCookie(request)
		if !ok {
			next.ServeHTTP(writer, request)
			return
		}

		pair, err := h.service.RotateTokens(request.Context(), token)
		if err != nil {
			logger := ctxutil.GetLogger(request.Context())
			logger.Debug("proactive_renewal_skipped",
				slog.String("user_id", claims.Subject), slog.Any("error", err))
			next.ServeHTTP(writer, request)
			return
		}

		// Cookies must go out before the handler starts writing the body.
		h.setAuthCookies(writer, *pair)
		next.ServeHTTP(writer, request)
	})
}
