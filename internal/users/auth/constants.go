// Copyright (c) 2026 Moneta. All rights reserved.
// Author: dev@moneta.app

package auth

import "time"

// # Authentication Constraints

const (
	// AccessTokenTTL is the duration a JWT access token remains valid.
	// We keep it short (15m) to minimize the impact of a leaked token.
	AccessTokenTTL = 15 * time.Minute

	// RefreshTokenTTL is the duration a refresh token remains valid (7 days).
	RefreshTokenTTL = 7 * 24 * time.Hour

	// ConfirmationCodeTTL is the window for email-verification and
	// password-reset codes. Users must act within 60 minutes of issuance.
	ConfirmationCodeTTL = 60 * time.Minute

	// RenewalThreshold is the access-token time-to-expiry at or below which
	// the proactive renewal guard rotates the session.
	RenewalThreshold = 5 * time.Minute

	// LoginChannelWeb is the channel recorded in login history rows.
	LoginChannelWeb = "web"
)
