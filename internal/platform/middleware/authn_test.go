// Copyright (c) 2026 Moneta. All rights reserved.
// Author: dev@moneta.app

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moneta-app/moneta/internal/platform/constants"
	"github.com/moneta-app/moneta/internal/platform/ctxutil"
	"github.com/moneta-app/moneta/internal/platform/sec"
)

func testIssuer() *sec.TokenIssuer {
	return sec.NewTokenIssuer("test-secret-at-least-32-characters!!", "moneta.app",
		15*time.Minute, 7*24*time.Hour)
}

// identityProbe records the claims the middleware stored in the context.
func identityProbe(subject *string) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if claims := ctxutil.GetAuthUser(request.Context()); claims != nil {
			*subject = claims.Subject
		}
		writer.WriteHeader(http.StatusOK)
	})
}

func TestAuthenticate_FromCookie(t *testing.T) {
	issuer := testIssuer()
	token, err := issuer.IssueAccess("user-1", "jo@example.com")
	require.NoError(t, err)

	var subject string
	handler := Authenticate(issuer)(identityProbe(&subject))

	request := httptest.NewRequest(http.MethodGet, "/", nil)
	request.AddCookie(&http.Cookie{Name: constants.AccessTokenCookieName, Value: token})
	handler.ServeHTTP(httptest.NewRecorder(), request)

	assert.Equal(t, "user-1", subject)
}

func TestAuthenticate_FromBearerHeader(t *testing.T) {
	issuer := testIssuer()
	token, err := issuer.IssueAccess("user-2", "jo@example.com")
	require.NoError(t, err)

	var subject string
	handler := Authenticate(issuer)(identityProbe(&subject))

	request := httptest.NewRequest(http.MethodGet, "/", nil)
	request.Header.Set("Authorization", "Bearer "+token)
	handler.ServeHTTP(httptest.NewRecorder(), request)

	assert.Equal(t, "user-2", subject)
}

func TestAuthenticate_CookieWinsOverHeader(t *testing.T) {
	issuer := testIssuer()
	cookieToken, err := issuer.IssueAccess("cookie-user", "a@example.com")
	require.NoError(t, err)
	headerToken, err := issuer.IssueAccess("header-user", "b@example.com")
	require.NoError(t, err)

	var subject string
	handler := Authenticate(issuer)(identityProbe(&subject))

	request := httptest.NewRequest(http.MethodGet, "/", nil)
	request.AddCookie(&http.Cookie{Name: constants.AccessTokenCookieName, Value: cookieToken})
	request.Header.Set("Authorization", "Bearer "+headerToken)
	handler.ServeHTTP(httptest.NewRecorder(), request)

	assert.Equal(t, "cookie-user", subject)
}

func TestAuthenticate_InvalidTokenStaysAnonymous(t *testing.T) {
	issuer := testIssuer()

	var subject string
	handler := Authenticate(issuer)(identityProbe(&subject))

	request := httptest.NewRequest(http.MethodGet, "/", nil)
	request.AddCookie(&http.Cookie{Name: constants.AccessTokenCookieName, Value: "garbage"})
	handler.ServeHTTP(httptest.NewRecorder(), request)

	assert.Empty(t, subject)
}

func TestAuthenticate_RefreshTokenRejectedAsAccess(t *testing.T) {
	issuer := testIssuer()
	refreshToken, _, err := issuer.IssueRefresh("user-3")
	require.NoError(t, err)

	var subject string
	handler := Authenticate(issuer)(identityProbe(&subject))

	// A valid refresh token must not authenticate API calls.
	request := httptest.NewRequest(http.MethodGet, "/", nil)
	request.AddCookie(&http.Cookie{Name: constants.AccessTokenCookieName, Value: refreshToken})
	handler.ServeHTTP(httptest.NewRecorder(), request)

	assert.Empty(t, subject)
}

func TestRequireAuth(t *testing.T) {
	next := http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
		writer.WriteHeader(http.StatusOK)
	})

	t.Run("anonymous rejected", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		RequireAuth(next).ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	})

	t.Run("authenticated passes", func(t *testing.T) {
		request := httptest.NewRequest(http.MethodGet, "/", nil)
		request = request.WithContext(ctxutil.WithAuthUser(request.Context(), &sec.Claims{}))
		recorder := httptest.NewRecorder()
		RequireAuth(next).ServeHTTP(recorder, request)
		assert.Equal(t, http.StatusOK, recorder.Code)
	})
}
