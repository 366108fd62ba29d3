// Copyright (c) 2026 Moneta. All rights reserved.
// Author: dev@moneta.app

package middleware

import (
	"net/http"
	"strings"

	"github.com/moneta-app/moneta/internal/platform/apperr"
	"github.com/moneta-app/moneta/internal/platform/constants"
	"github.com/moneta-app/moneta/internal/platform/ctxutil"
	"github.com/moneta-app/moneta/internal/platform/respond"
	"github.com/moneta-app/moneta/internal/platform/sec"
)

// TokenVerifier checks an access token's signature and claims.
type TokenVerifier interface {
	Decode(tokenString string) (*sec.Claims, error)
}

// extractAccessToken pulls the access token from the request.
//
// The jwt cookie is the primary transport for browser clients; a bearer
// Authorization header is accepted as the fallback for non-browser callers.
func extractAccessToken(request *http.Request) string {
	if cookie, err := request.Cookie(constants.AccessTokenCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	if header := request.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}

// Authenticate resolves the caller's identity from the access token and
// stores the verified claims in the request context.
//
// A missing or invalid token leaves the request anonymous; enforcement is
// the job of [RequireAuth] on protected routes.
func Authenticate(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			token := extractAccessToken(request)
			if token == "" {
				next.ServeHTTP(writer, request)
				return
			}

			claims, err := verifier.Decode(token)
			if err != nil || claims.TokenType != sec.TokenTypeAccess {
				next.ServeHTTP(writer, request)
				return
			}

			next.ServeHTTP(writer, request.WithContext(
				ctxutil.WithAuthUser(request.Context(), claims)))
		})
	}
}

// RequireAuth rejects anonymous requests with 401.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if ctxutil.GetAuthUser(request.Context()) == nil {
			respond.Error(writer, request, apperr.Unauthorized("Authentication required"))
			return
		}
		next.ServeHTTP(writer, request)
	})
}
