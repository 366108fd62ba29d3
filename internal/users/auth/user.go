// Copyright (c) 2026 Moneta. All rights reserved.
// Author: dev@moneta.app

/*
Package auth implements the session and credential lifecycle for Moneta.

It covers user registration, email verification, password reset, login, and
the refresh-token rotation protocol with reuse and tamper detection.

# Architecture

  - Service: Orchestrates the protocols (Register, Login, RotateTokens).
  - Stores: Abstracted interfaces over Postgres for users, confirmations,
    and refresh-token records.
  - Security: bcrypt password hashing and HS256-signed JWTs via platform/sec.

The financial modules (transactions, categories, snapshots) are callers of
this package: they present cookies and receive accept/reject decisions.
*/
package auth

import (
	"encoding/json"
	"time"
)

// # Domain Entities

// ProviderEmail is the only authentication provider that exists today.
// The providers map shape anticipates others.
const ProviderEmail = "email"

// Provider is one entry in a user's providers map.
type Provider struct {
	Provider   string    `json:"provider"`
	Verified   bool      `json:"verified"`
	VerifiedAt time.Time `json:"verifiedAt"`
	// Password holds the bcrypt hash. It is stripped via [User.Sanitized]
	// before any user object leaves the service layer.
	Password string `json:"password,omitempty"`
}

// User represents a registered account.
//
// A user is authenticated-usable only once providers["email"].Verified is
// true. Users are never hard-deleted by this package.
type User struct {
	ID        string              `json:"id"`
	Email     string              `json:"email"`
	Providers map[string]Provider `json:"providers"`
	Profiles  json.RawMessage     `json:"profiles,omitempty"`
	Settings  json.RawMessage     `json:"settings,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// EmailVerified reports whether the email provider has been verified.
func (u *User) EmailVerified() bool {
	return u.Providers[ProviderEmail].Verified
}

// PasswordHash returns the stored bcrypt hash for the email provider.
func (u *User) PasswordHash() string {
	return u.Providers[ProviderEmail].Password
}

// Sanitized returns a copy of the user with all provider password hashes
// removed. Every user object returned to a client goes through this.
func (u *User) Sanitized() *User {
	clone := *u
	clone.Providers = make(map[string]Provider, len(u.Providers))
	for name, provider := range u.Providers {
		provider.Password = ""
		clone.Providers[name] = provider
	}
	return &clone
}

// EmailConfirmation is a single-use registration verification code.
//
// UsedAt transitions nil→timestamp exactly once; a second verification
// attempt with the same confirmation id must fail.
type EmailConfirmation struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Code      string     `json:"code"`
	ExpiresAt time.Time  `json:"expires_at"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
}

// PasswordResetConfirmation is a single-use password reset code, scoped
// additionally by email.
type PasswordResetConfirmation struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Email     string     `json:"email"`
	Code      string     `json:"code"`
	ExpiresAt time.Time  `json:"expires_at"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
}

// RefreshTokenRecord is the stored binding for a user's current refresh
// token: the jti embedded in the signed payload, the SHA-256 hash of the
// full signed token (tamper detection), and the expiry.
//
// At most one record exists per user; each successful rotation replaces
// jti, hash, and expiry wholesale.
type RefreshTokenRecord struct {
	JTI       string    `json:"jti"`
	UserID    string    `json:"user_id"`
	TokenHash string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
}

// TokenPair is the output of a successful rotation: a brand-new access and
// refresh token plus the expiry instants the transport layer needs to set
// cookies.
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// LoginResult is what login-shaped operations (password login, cached
// login, successful email verification) hand back to the transport layer.
type LoginResult struct {
	User   *User
	Tokens TokenPair
}

// # Field Identifiers

// Global field names for validation in the authentication domain.
const (
	FieldEmail    = "email"
	FieldPassword = "password"
	FieldProvider = "provider"
	FieldCode     = "code"
	FieldID       = "id"
	FieldUser     = "user"
	FieldMessage  = "message"
)
