// Copyright (c) 2026 Moneta. All rights reserved.
// Author: dev@moneta.app

package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moneta-app/moneta/internal/platform/constants"
)

func postJSON(t *testing.T, router http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	request := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	request.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)
	return recorder
}

func findCookie(t *testing.T, recorder *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, cookie := range recorder.Result().Cookies() {
		if cookie.Name == name {
			return cookie
		}
	}
	return nil
}

func TestHTTP_Register(t *testing.T) {
	h := newHarness(t)
	router := NewHandler(h.service, false, RouteGuards{}).Routes()

	recorder := postJSON(t, router, "/register",
		`{"email":"jo@example.com","password":"s3cret-password"}`)
	assert.Equal(t, http.StatusCreated, recorder.Code)

	var envelope struct {
		Data User `json:"data"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &envelope))
	assert.Equal(t, "jo@example.com", envelope.Data.Email)
	assert.Empty(t, envelope.Data.Providers[ProviderEmail].Password)
}

func TestHTTP_RegisterValidation(t *testing.T) {
	h := newHarness(t)
	router := NewHandler(h.service, false, RouteGuards{}).Routes()

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{`},
		{"missing email", `{"password":"s3cret-password"}`},
		{"bad email", `{"email":"nope","password":"s3cret-password"}`},
		{"short password", `{"email":"jo@example.com","password":"short"}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			recorder := postJSON(t, router, "/register", tc.body)
			assert.Equal(t, http.StatusBadRequest, recorder.Code)
		})
	}
}

func TestHTTP_LoginSetsCookies(t *testing.T) {
	h := newHarness(t)
	h.registerVerified(t, "jo@example.com", "s3cret-password")
	router := NewHandler(h.service, false, RouteGuards{}).Routes()

	recorder := postJSON(t, router, "/login",
		`{"email":"jo@example.com","password":"s3cret-password"}`)
	require.Equal(t, http.StatusOK, recorder.Code)

	access := findCookie(t, recorder, constants.AccessTokenCookieName)
	require.NotNil(t, access)
	assert.True(t, access.HttpOnly)
	assert.False(t, access.Secure, "development cookies are not Secure")
	assert.Equal(t, http.SameSiteLaxMode, access.SameSite)
	assert.Equal(t, "/", access.Path)

	refresh := findCookie(t, recorder, constants.RefreshTokenCookieName)
	require.NotNil(t, refresh)
	assert.True(t, refresh.HttpOnly)
	assert.NotEmpty(t, refresh.Value)
}

func TestHTTP_LoginProductionCookiePolicy(t *testing.T) {
	h := newHarness(t)
	h.registerVerified(t, "jo@example.com", "s3cret-password")
	router := NewHandler(h.service, true, RouteGuards{}).Routes()

	recorder := postJSON(t, router, "/login",
		`{"email":"jo@example.com","password":"s3cret-password"}`)
	require.Equal(t, http.StatusOK, recorder.Code)

	access := findCookie(t, recorder, constants.AccessTokenCookieName)
	require.NotNil(t, access)
	assert.True(t, access.Secure)
	assert.Equal(t, http.SameSiteNoneMode, access.SameSite)
}

func TestHTTP_LoginCachedWithoutCookie(t *testing.T) {
	h := newHarness(t)
	router := NewHandler(h.service, false, RouteGuards{}).Routes()

	request := httptest.NewRequest(http.MethodGet, "/login-cached", nil)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestHTTP_LoginCachedRotates(t *testing.T) {
	h := newHarness(t)
	result := h.registerVerified(t, "jo@example.com", "s3cret-password")
	router := NewHandler(h.service, false, RouteGuards{}).Routes()

	request := httptest.NewRequest(http.MethodGet, "/login-cached", nil)
	request.AddCookie(&http.Cookie{
		Name:  constants.RefreshTokenCookieName,
		Value: result.Tokens.RefreshToken,
	})
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)

	require.Equal(t, http.StatusOK, recorder.Code)
	refresh := findCookie(t, recorder, constants.RefreshTokenCookieName)
	require.NotNil(t, refresh)
	assert.NotEqual(t, result.Tokens.RefreshToken, refresh.Value, "cookie carries the rotated token")
}

func TestHTTP_LoginCachedRevokedTokenConflict(t *testing.T) {
	h := newHarness(t)
	result := h.registerVerified(t, "jo@example.com", "s3cret-password")
	require.NoError(t, h.service.Logout(context.Background(), result.Tokens.RefreshToken))
	router := NewHandler(h.service, false, RouteGuards{}).Routes()

	request := httptest.NewRequest(http.MethodGet, "/login-cached", nil)
	request.AddCookie(&http.Cookie{
		Name:  constants.RefreshTokenCookieName,
		Value: result.Tokens.RefreshToken,
	})
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusConflict, recorder.Code)

	var envelope struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &envelope))
	assert.Equal(t, "SESSION_REVOKED", envelope.Code)

	// Dead cookies are cleared so the client stops retrying.
	refresh := findCookie(t, recorder, constants.RefreshTokenCookieName)
	require.NotNil(t, refresh)
	assert.Less(t, refresh.MaxAge, 0)
}

func TestHTTP_LogoutClearsCookies(t *testing.T) {
	h := newHarness(t)
	result := h.registerVerified(t, "jo@example.com", "s3cret-password")
	router := NewHandler(h.service, false, RouteGuards{}).Routes()

	request := httptest.NewRequest(http.MethodPost, "/logout", nil)
	request.AddCookie(&http.Cookie{
		Name:  constants.RefreshTokenCookieName,
		Value: result.Tokens.RefreshToken,
	})
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Empty(t, h.store.refreshByUser, "refresh record revoked")

	for _, name := range []string{constants.AccessTokenCookieName, constants.RefreshTokenCookieName} {
		cookie := findCookie(t, recorder, name)
		require.NotNil(t, cookie, name)
		assert.Less(t, cookie.MaxAge, 0, name)
	}
}

func TestHTTP_VerifyEmailValidation(t *testing.T) {
	h := newHarness(t)
	router := NewHandler(h.service, false, RouteGuards{}).Routes()

	// Code must be exactly six digits, id must be a UUID.
	recorder := postJSON(t, router, "/verify-email",
		`{"code":"12345","id":"not-a-uuid"}`)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestHTTP_MeRequiresAuth(t *testing.T) {
	h := newHarness(t)
	router := NewHandler(h.service, false, RouteGuards{}).Routes()

	request := httptest.NewRequest(http.MethodGet, "/me", nil)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}
