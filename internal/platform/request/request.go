// Copyright (c) 2026 Moneta. All rights reserved.
// Author: dev@moneta.app

/*
Package request provides utilities for extracting data from HTTP requests.

It abstracts away body decoding and identity extraction so handlers produce
plain data structs before invoking the service layer — the services
themselves never inspect transport-specific request objects.
*/
package requestutil

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/moneta-app/moneta/internal/platform/apperr"
	"github.com/moneta-app/moneta/internal/platform/constants"
	"github.com/moneta-app/moneta/internal/platform/ctxutil"
	"github.com/moneta-app/moneta/internal/platform/sec"
	"github.com/moneta-app/moneta/internal/platform/validate"
)

// DecodeJSON reads the request body and decodes it into the target structure.
//
// Returns validate.ErrInvalidJSON if decoding fails.
func DecodeJSON(request *http.Request, target interface{}) error {
	if err := json.NewDecoder(request.Body).Decode(target); err != nil {
		return validate.ErrInvalidJSON
	}
	return nil
}

// Claims extracts the authenticated token claims from the request context.
//
// Returns nil if the request is not authenticated.
func Claims(request *http.Request) *sec.Claims {
	return ctxutil.GetAuthUser(request.Context())
}

// RequiredClaims ensures the request is authenticated and returns the claims.
//
// Returns apperr.Unauthorized if the request carries no verified identity.
func RequiredClaims(request *http.Request) (*sec.Claims, error) {
	claims := ctxutil.GetAuthUser(request.Context())
	if claims == nil {
		return nil, apperr.Unauthorized("Authentication required")
	}
	return claims, nil
}

// RequiredUserID returns the user ID of the currently logged-in user.
func RequiredUserID(request *http.Request) (string, error) {
	claims, err := RequiredClaims(request)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// ClientIP extracts the caller's IP address for login-history auditing.
//
// The first X-Forwarded-For entry wins when present; otherwise the socket
// address (without port) is used.
func ClientIP(request *http.Request) string {
	if forwarded := request.Header.Get(constants.HeaderXForwardedFor); forwarded != "" {
		return strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}

	addr := request.RemoteAddr
	if i := strings.LastIndex(addr, ":"); i > 0 {
		addr = addr[:i]
	}
	return addr
}
