// Copyright (c) 2026 Moneta. All rights reserved.
// Author: dev@moneta.app

package auth

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/moneta-app/moneta/internal/platform/apperr"
	"github.com/moneta-app/moneta/internal/platform/constants"
	"github.com/moneta-app/moneta/internal/platform/middleware"
	requestutil "github.com/moneta-app/moneta/internal/platform/request"
	"github.com/moneta-app/moneta/internal/platform/respond"
	"github.com/moneta-app/moneta/internal/platform/validate"
)

const confirmationCodeLength = 6

// RouteGuards carries the optional per-route middleware (abuse throttles)
// the server wires in. A nil guard is simply skipped, which keeps tests
// free of Redis.
type RouteGuards struct {
	VerifyThrottle func(http.Handler) http.Handler
	ResetThrottle  func(http.Handler) http.Handler
}

// Handler exposes the authentication HTTP surface under /auth.
type Handler struct {
	service    *Service
	production bool
	guards     RouteGuards
}

// NewHandler creates the auth HTTP handler.
//
// production switches the cookie policy: Secure + SameSite=None for the
// cross-site SPA in production, Lax and non-secure for local development.
func NewHandler(service *Service, production bool, guards RouteGuards) *Handler {
	return &Handler{service: service, production: production, guards: guards}
}

// Routes returns the router for the /auth subtree.
func (h *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Post("/register", h.register)
	router.Post("/login", h.login)
	router.Get("/login-cached", h.loginCached)
	router.Post("/logout", h.logout)
	router.With(guard(h.guards.VerifyThrottle)).Post("/verify-email", h.verifyEmail)
	router.With(guard(h.guards.VerifyThrottle)).Post("/verify-email-new-request", h.resendVerification)
	router.With(guard(h.guards.ResetThrottle)).Post("/request-password-reset", h.requestPasswordReset)
	router.Post("/reset-password", h.resetPassword)

	router.Group(func(protected chi.Router) {
		protected.Use(middleware.RequireAuth)
		protected.Use(h.ProactiveRenew)
		protected.Get("/me", h.me)
	})

	return router
}

// guard turns a possibly-nil middleware into a usable one.
func guard(mw func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	if mw == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return mw
}

// # Cookies

// setAuthCookies installs the jwt + refresh_token cookie pair.
//
// Both are HttpOnly and scoped to path "/". Production uses Secure +
// SameSite=None because the SPA is served from a different origin.
func (h *Handler) setAuthCookies(writer http.ResponseWriter, tokens TokenPair) {
	secure, sameSite := false, http.SameSiteLaxMode
	if h.production {
		secure, sameSite = true, http.SameSiteNoneMode
	}

	http.SetCookie(writer, &http.Cookie{
		Name:     constants.AccessTokenCookieName,
		Value:    tokens.AccessToken,
		Path:     constants.AuthCookiePath,
		Expires:  tokens.AccessExpiresAt,
		HttpOnly: true,
		Secure:   secure,
		SameSite: sameSite,
	})
	http.SetCookie(writer, &http.Cookie{
		Name:     constants.RefreshTokenCookieName,
		Value:    tokens.RefreshToken,
		Path:     constants.AuthCookiePath,
		Expires:  tokens.RefreshExpiresAt,
		HttpOnly: true,
		Secure:   secure,
		SameSite: sameSite,
	})
}

// clearAuthCookies expires both auth cookies immediately.
func (h *Handler) clearAuthCookies(writer http.ResponseWriter) {
	secure, sameSite := false, http.SameSiteLaxMode
	if h.production {
		secure, sameSite = true, http.SameSiteNoneMode
	}
	for _, name := range []string{constants.AccessTokenCookieName, constants.RefreshTokenCookieName} {
		http.SetCookie(writer, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     constants.AuthCookiePath,
			Expires:  time.Unix(0, 0),
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   secure,
			SameSite: sameSite,
		})
	}
}

// refreshCookie reads the refresh_token cookie, if present.
func refreshCookie(request *http.Request) (string, bool) {
	cookie, err := request.Cookie(constants.RefreshTokenCookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}

// # Handlers

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) register(writer http.ResponseWriter, request *http.Request) {
	var payload registerRequest
	if err := requestutil.DecodeJSON(request, &payload); err != nil {
		respond.Error(writer, request, err)
		return
	}

	v := new(validate.Validator)
	v.Required(FieldEmail, payload.Email).Email(FieldEmail, payload.Email)
	v.Required(FieldPassword, payload.Password).MinLen(FieldPassword, payload.Password, 8).MaxLen(FieldPassword, payload.Password, 72)
	if err := v.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := h.service.Register(request.Context(), payload.Email, payload.Password)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.Created(writer, user)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) login(writer http.ResponseWriter, request *http.Request) {
	var payload loginRequest
	if err := requestutil.DecodeJSON(request, &payload); err != nil {
		respond.Error(writer, request, err)
		return
	}

	v := new(validate.Validator)
	v.Required(FieldEmail, payload.Email).Email(FieldEmail, payload.Email)
	v.Required(FieldPassword, payload.Password)
	if err := v.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	result, err := h.service.Login(request.Context(), payload.Email, payload.Password, requestutil.ClientIP(request))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	h.setAuthCookies(writer, result.Tokens)
	respond.OK(writer, result.User)
}

// loginCached restores a session from the refresh cookie alone. A missing
// cookie is a plain 401: the client has nothing to rotate.
func (h *Handler) loginCached(writer http.ResponseWriter, request *http.Request) {
	token, ok := refreshCookie(request)
	if !ok {
		respond.Error(writer, request, apperr.Unauthorized("Refresh token not found."))
		return
	}

	result, err := h.service.LoginCachedUser(request.Context(), token, requestutil.ClientIP(request))
	if err != nil {
		h.clearAuthCookies(writer)
		respond.Error(writer, request, err)
		return
	}

	h.setAuthCookies(writer, result.Tokens)
	respond.OK(writer, result.User)
}

func (h *Handler) logout(writer http.ResponseWriter, request *http.Request) {
	token, _ := refreshCookie(request)
	if err := h.service.Logout(request.Context(), token); err != nil {
		respond.Error(writer, request, err)
		return
	}
	h.clearAuthCookies(writer)
	respond.OK(writer, map[string]string{FieldMessage: "Logged out."})
}

type verifyEmailRequest struct {
	Code string `json:"code"`
	ID   string `json:"id"`
}

func (h *Handler) verifyEmail(writer http.ResponseWriter, request *http.Request) {
	var payload verifyEmailRequest
	if err := requestutil.DecodeJSON(request, &payload); err != nil {
		respond.Error(writer, request, err)
		return
	}

	v := new(validate.Validator)
	v.Required(FieldCode, payload.Code).Digits(FieldCode, payload.Code, confirmationCodeLength)
	v.Required(FieldID, payload.ID).UUID(FieldID, payload.ID)
	if err := v.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	result, err := h.service.VerifyEmail(request.Context(), payload.Code, payload.ID, requestutil.ClientIP(request))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	h.setAuthCookies(writer, result.Tokens)
	respond.OK(writer, result.User)
}

type emailRequest struct {
	Email string `json:"email"`
}

func (h *Handler) resendVerification(writer http.ResponseWriter, request *http.Request) {
	var payload emailRequest
	if err := requestutil.DecodeJSON(request, &payload); err != nil {
		respond.Error(writer, request, err)
		return
	}

	v := new(validate.Validator)
	v.Required(FieldEmail, payload.Email).Email(FieldEmail, payload.Email)
	if err := v.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := h.service.ResendVerification(request.Context(), payload.Email); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, map[string]string{FieldMessage: "Verification email sent."})
}

func (h *Handler) requestPasswordReset(writer http.ResponseWriter, request *http.Request) {
	var payload emailRequest
	if err := requestutil.DecodeJSON(request, &payload); err != nil {
		respond.Error(writer, request, err)
		return
	}

	v := new(validate.Validator)
	v.Required(FieldEmail, payload.Email).Email(FieldEmail, payload.Email)
	if err := v.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := h.service.RequestPasswordReset(request.Context(), payload.Email); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, map[string]string{FieldMessage: "Password reset email sent."})
}

type resetPasswordRequest struct {
	Code     string `json:"code"`
	ID       string `json:"id"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) resetPassword(writer http.ResponseWriter, request *http.Request) {
	var payload resetPasswordRequest
	if err := requestutil.DecodeJSON(request, &payload); err != nil {
		respond.Error(writer, request, err)
		return
	}

	v := new(validate.Validator)
	v.Required(FieldCode, payload.Code).Digits(FieldCode, payload.Code, confirmationCodeLength)
	v.Required(FieldID, payload.ID).UUID(FieldID, payload.ID)
	v.Required(FieldEmail, payload.Email).Email(FieldEmail, payload.Email)
	v.Required(FieldPassword, payload.Password).MinLen(FieldPassword, payload.Password, 8).MaxLen(FieldPassword, payload.Password, 72)
	if err := v.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := h.service.ResetPassword(request.Context(), payload.Code, payload.ID, payload.Email, payload.Password)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, user)
}

func (h *Handler) me(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := h.service.CurrentUser(request.Context(), userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, user)
}
