// Copyright (c) 2026 Moneta. All rights reserved.
// Author: dev@moneta.app

package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moneta-app/moneta/internal/platform/constants"
	"github.com/moneta-app/moneta/internal/platform/ctxutil"
	"github.com/moneta-app/moneta/internal/platform/sec"
)

// renewRequest builds an authenticated request whose access token has the
// given remaining lifetime, optionally carrying a refresh cookie.
func renewRequest(userID string, remaining time.Duration, refreshToken string) *http.Request {
	request := httptest.NewRequest(http.MethodGet, "/me", nil)

	claims := &sec.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(remaining)),
		},
		TokenType: sec.TokenTypeAccess,
	}
	request = request.WithContext(ctxutil.WithAuthUser(request.Context(), claims))

	if refreshToken != "" {
		request.AddCookie(&http.Cookie{
			Name:  constants.RefreshTokenCookieName,
			Value: refreshToken,
		})
	}
	return request
}

// cookieNames extracts the names of all Set-Cookie headers in the response.
func cookieNames(recorder *httptest.ResponseRecorder) []string {
	var names []string
	for _, cookie := range recorder.Result().Cookies() {
		names = append(names, cookie.Name)
	}
	return names
}

func serveRenew(h *Handler, request *http.Request) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	next := http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
		writer.WriteHeader(http.StatusOK)
	})
	h.ProactiveRenew(next).ServeHTTP(recorder, request)
	return recorder
}

func TestProactiveRenew_NoOpWhenTokenFresh(t *testing.T) {
	h := newHarness(t)
	result := h.registerVerified(t, "jo@example.com", "s3cret-password")
	handler := NewHandler(h.service, false, RouteGuards{})

	request := renewRequest(result.User.ID, 10*time.Minute, result.Tokens.RefreshToken)
	recorder := serveRenew(handler, request)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Empty(t, cookieNames(recorder), "fresh token must not trigger a rotation")

	// The stored record was not touched either.
	oldJTI, err := h.issuer.ExtractJTI(result.Tokens.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, oldJTI, h.store.refreshByUser[result.User.ID].JTI)
}

func TestProactiveRenew_RotatesNearExpiry(t *testing.T) {
	h := newHarness(t)
	result := h.registerVerified(t, "jo@example.com", "s3cret-password")
	handler := NewHandler(h.service, false, RouteGuards{})

	request := renewRequest(result.User.ID, 2*time.Minute, result.Tokens.RefreshToken)
	recorder := serveRenew(handler, request)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.ElementsMatch(t,
		[]string{constants.AccessTokenCookieName, constants.RefreshTokenCookieName},
		cookieNames(recorder),
		"both auth cookies must be replaced")

	// The stored binding moved to a new jti: the old refresh token is spent.
	oldJTI, err := h.issuer.ExtractJTI(result.Tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, oldJTI, h.store.refreshByUser[result.User.ID].JTI)
}

func TestProactiveRenew_MissingRefreshCookie(t *testing.T) {
	h := newHarness(t)
	result := h.registerVerified(t, "jo@example.com", "s3cret-password")
	handler := NewHandler(h.service, false, RouteGuards{})

	request := renewRequest(result.User.ID, 2*time.Minute, "")
	recorder := serveRenew(handler, request)

	// Nothing to rotate with; the request still succeeds on the access token.
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Empty(t, cookieNames(recorder))
}

func TestProactiveRenew_SwallowsRotationFailure(t *testing.T) {
	h := newHarness(t)
	result := h.registerVerified(t, "jo@example.com", "s3cret-password")
	handler := NewHandler(h.service, false, RouteGuards{})

	// Revoke the session behind the guard's back.
	require.NoError(t, h.service.Logout(context.Background(), result.Tokens.RefreshToken))

	request := renewRequest(result.User.ID, 2*time.Minute, result.Tokens.RefreshToken)
	recorder := serveRenew(handler, request)

	// Renewal failed but the request proceeds; hard rejection is the
	// business of /auth/login-cached.
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Empty(t, cookieNames(recorder))
}
