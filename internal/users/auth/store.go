// Copyright (c) 2026 Moneta. All rights reserved.
// Author: dev@moneta.app

package auth

import (
	"context"
	"errors"
	"time"
)

// # Store Errors

var (
	// ErrConfirmationAlreadyUsed is returned by the atomic consume operations
	// when the confirmation row was already marked used (or disappeared)
	// between the read and the guarded update.
	ErrConfirmationAlreadyUsed = errors.New("confirmation already used")

	// ErrUserAlreadyVerified is returned when a verification consume targets
	// a user whose email provider is already verified.
	ErrUserAlreadyVerified = errors.New("user already verified")

	// ErrRotationConflict is returned by RotateRefreshToken when the stored
	// record no longer carries the expected jti — a concurrent rotation won.
	ErrRotationConflict = errors.New("refresh token rotation conflict")
)

// # Store Contracts

// UserStore persists and retrieves user accounts.
//
// Find methods return (nil, nil) when no matching row exists; callers decide
// whether absence is an error.
type UserStore interface {
	// EmailExists reports whether any account is registered under email.
	EmailExists(ctx context.Context, email string) (bool, error)

	// InsertUser creates a new account with the given providers map and
	// returns the stored row.
	InsertUser(ctx context.Context, id, email string, providers map[string]Provider) (*User, error)

	// FindUserByEmail loads an account by email address.
	FindUserByEmail(ctx context.Context, email string) (*User, error)

	// FindUserByID loads an account by primary key.
	FindUserByID(ctx context.Context, id string) (*User, error)
}

// ConfirmationStore persists verification and password-reset codes and
// consumes them atomically together with the user-side effect.
type ConfirmationStore interface {
	// InsertEmailConfirmation stores a fresh verification code.
	InsertEmailConfirmation(ctx context.Context, confirmation *EmailConfirmation) error

	// FindEmailConfirmation looks a confirmation up by code and id.
	FindEmailConfirmation(ctx context.Context, code, id string) (*EmailConfirmation, error)

	// ConsumeEmailConfirmation marks the confirmation used and flips the
	// user's email provider to verified, in one transaction. The mark-used
	// update is guarded by used_at IS NULL; losing that guard returns
	// ErrConfirmationAlreadyUsed and nothing is committed. An already
	// verified user returns ErrUserAlreadyVerified.
	ConsumeEmailConfirmation(ctx context.Context, confirmationID string) (*User, error)

	// InsertPasswordResetConfirmation stores a fresh reset code.
	InsertPasswordResetConfirmation(ctx context.Context, confirmation *PasswordResetConfirmation) error

	// FindPasswordResetConfirmation looks a reset confirmation up by code,
	// id, and email.
	FindPasswordResetConfirmation(ctx context.Context, code, id, email string) (*PasswordResetConfirmation, error)

	// ConsumePasswordReset marks the reset confirmation used and replaces
	// the user's password hash, in one transaction, with the same used_at
	// guard as ConsumeEmailConfirmation.
	ConsumePasswordReset(ctx context.Context, confirmationID, userID, passwordHash string) (*User, error)
}

// SessionStore persists refresh-token records and login history.
type SessionStore interface {
	// UpsertRefreshTokenRecord installs the user's current refresh-token
	// binding, replacing any previous record for the same user.
	UpsertRefreshTokenRecord(ctx context.Context, record *RefreshTokenRecord) error

	// GetRefreshTokenRecord looks a record up by jti. Returns (nil, nil)
	// when no record carries that jti — i.e. it was rotated away or revoked.
	GetRefreshTokenRecord(ctx context.Context, jti string) (*RefreshTokenRecord, error)

	// RotateRefreshTokenRecord atomically replaces the record's jti, hash,
	// and expiry — but only if the stored jti still equals oldJTI. A miss
	// means a concurrent rotation already consumed the token and returns
	// ErrRotationConflict.
	RotateRefreshTokenRecord(ctx context.Context, userID, oldJTI, newJTI, tokenHash string, expiresAt time.Time) error

	// DeleteRefreshTokenRecord revokes the record carrying jti. Deleting a
	// missing record is not an error.
	DeleteRefreshTokenRecord(ctx context.Context, jti string) error

	// InsertLoginHistory appends an audit row for a successful login.
	InsertLoginHistory(ctx context.Context, userID, ipAddress, channel string) error
}
