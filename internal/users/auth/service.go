// Copyright (c) 2026 Moneta. All rights reserved.
// Author: dev@moneta.app

package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/moneta-app/moneta/internal/platform/apperr"
	"github.com/moneta-app/moneta/internal/platform/sec"
	"github.com/moneta-app/moneta/pkg/uuid"
)

// # Service Ports

// TokenProvider issues and inspects the JWTs the service hands out.
type TokenProvider interface {
	IssueAccess(userID, email string) (string, error)
	IssueRefresh(userID string) (signed, jti string, err error)
	Decode(tokenString string) (*sec.Claims, error)
	ExtractJTI(tokenString string) (string, error)
	AccessTTL() time.Duration
	RefreshTTL() time.Duration
}

// EmailSender delivers account lifecycle email.
type EmailSender interface {
	SendAccountVerificationEmail(ctx context.Context, to, code, verificationURL string) error
	SendPasswordResetEmail(ctx context.Context, to, resetURL string) error
}

// ResourceSeeder provisions the default resources every new account gets.
type ResourceSeeder interface {
	SeedSystemCategories(ctx context.Context, userID string) error
}

// # Service

// Service orchestrates registration, verification, login, password reset,
// and refresh-token rotation.
type Service struct {
	users         UserStore
	confirmations ConfirmationStore
	sessions      SessionStore
	tokens        TokenProvider
	mailer        EmailSender
	seeder        ResourceSeeder
	frontendURL   string
	logger        *slog.Logger
}

// NewService wires the authentication service with its collaborators.
func NewService(
	users UserStore,
	confirmations ConfirmationStore,
	sessions SessionStore,
	tokens TokenProvider,
	mailer EmailSender,
	seeder ResourceSeeder,
	frontendURL string,
	logger *slog.Logger,
) *Service {
	return &Service{
		users:         users,
		confirmations: confirmations,
		sessions:      sessions,
		tokens:        tokens,
		mailer:        mailer,
		seeder:        seeder,
		frontendURL:   frontendURL,
		logger:        logger,
	}
}

// generateConfirmationCode produces a uniformly random 6-digit decimal code
// in [100000, 999999] from three bytes of CSPRNG output.
func generateConfirmationCode() (string, error) {
	var raw [3]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", fmt.Errorf("auth: failed to read random bytes: %w", err)
	}
	value := int(raw[0])<<16 | int(raw[1])<<8 | int(raw[2])
	return strconv.Itoa(value%900000 + 100000), nil
}

// # Registration

// Register creates a new unverified account, seeds its default resources,
// and dispatches the verification email.
//
// If email dispatch fails the account still exists; the caller can retry
// via ResendVerification.
func (s *Service) Register(ctx context.Context, email, password string) (*User, error) {
	exists, err := s.users.EmailExists(ctx, email)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if exists {
		return nil, apperr.Conflict("Email has already been submitted for registration.")
	}

	passwordHash, err := sec.HashPassword(password)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	providers := map[string]Provider{
		ProviderEmail: {
			Provider: ProviderEmail,
			Verified: false,
			Password: passwordHash,
		},
	}
	user, err := s.users.InsertUser(ctx, uuid.New(), email, providers)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	if err := s.seeder.SeedSystemCategories(ctx, user.ID); err != nil {
		return nil, apperr.Internal(err)
	}

	if err := s.dispatchVerificationEmail(ctx, user.ID, user.Email); err != nil {
		// Account persists; surface the dispatch failure so the client can
		// fall back to the resend flow.
		return nil, err
	}

	s.logger.Info("user_registered", slog.String("user_id", user.ID))
	return user.Sanitized(), nil
}

// dispatchVerificationEmail mints a 6-digit code valid for 60 minutes,
// stores it, and mails the verification link.
func (s *Service) dispatchVerificationEmail(ctx context.Context, userID, email string) error {
	code, err := generateConfirmationCode()
	if err != nil {
		return apperr.Internal(err)
	}

	confirmation := &EmailConfirmation{
		ID:        uuid.New(),
		UserID:    userID,
		Code:      code,
		ExpiresAt: time.Now().Add(ConfirmationCodeTTL),
	}
	if err := s.confirmations.InsertEmailConfirmation(ctx, confirmation); err != nil {
		return apperr.Conflict("Error adding email confirmation record.")
	}

	verificationURL := fmt.Sprintf("%s/auth/verify-email?email=%s&code=%s&id=%s",
		s.frontendURL, url.QueryEscape(email), url.QueryEscape(code), url.QueryEscape(confirmation.ID))
	if err := s.mailer.SendAccountVerificationEmail(ctx, email, code, verificationURL); err != nil {
		s.logger.Error("verification_email_failed",
			slog.String("user_id", userID), slog.Any("error", err))
		return apperr.Conflict("Error sending email confirmation.")
	}
	return nil
}

// ResendVerification issues a fresh verification code for an existing,
// not-yet-verified account. Older codes remain valid until they expire or
// are used.
func (s *Service) ResendVerification(ctx context.Context, email string) error {
	user, err := s.users.FindUserByEmail(ctx, email)
	if err != nil {
		return apperr.Internal(err)
	}
	if user == nil {
		return apperr.NotFound(fmt.Sprintf("User with email '%s'", email))
	}
	if user.EmailVerified() {
		return apperr.Conflict("Account email is already verified.")
	}
	return s.dispatchVerificationEmail(ctx, user.ID, user.Email)
}

// VerifyEmail consumes a verification code and, on success, logs the user
// in: the response carries the verified user plus a fresh token pair.
func (s *Service) VerifyEmail(ctx context.Context, code, confirmationID, ipAddress string) (*LoginResult, error) {
	confirmation, err := s.confirmations.FindEmailConfirmation(ctx, code, confirmationID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if confirmation == nil {
		return nil, apperr.Conflict("Incorrect account verification code submitted.")
	}
	if confirmation.UsedAt != nil {
		return nil, apperr.Conflict("Verification previously completed.")
	}
	if time.Now().After(confirmation.ExpiresAt) {
		return nil, apperr.Conflict("Verification code expired. Request a new verification email.")
	}

	user, err := s.confirmations.ConsumeEmailConfirmation(ctx, confirmation.ID)
	switch {
	case errors.Is(err, ErrConfirmationAlreadyUsed):
		return nil, apperr.Conflict("Verification previously completed.")
	case errors.Is(err, ErrUserAlreadyVerified):
		return nil, apperr.Conflict("Account email is already verified.")
	case err != nil:
		return nil, apperr.Internal(err)
	}

	s.logger.Info("email_verified", slog.String("user_id", user.ID))
	return s.establishSession(ctx, user, ipAddress)
}

// # Login

// Login authenticates email + password and establishes a session.
func (s *Service) Login(ctx context.Context, email, password, ipAddress string) (*LoginResult, error) {
	user, err := s.users.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if user == nil {
		return nil, apperr.Conflict(fmt.Sprintf("User with email '%s' not found.", email))
	}
	if !user.EmailVerified() {
		return nil, apperr.Conflict("User has not verified their email address.")
	}
	if !sec.CheckPasswordHash(password, user.PasswordHash()) {
		return nil, apperr.Conflict("Invalid credentials. Password mismatch.")
	}
	return s.establishSession(ctx, user, ipAddress)
}

// establishSession mints a fresh token pair, installs the refresh-token
// binding, and records the login.
func (s *Service) establishSession(ctx context.Context, user *User, ipAddress string) (*LoginResult, error) {
	now := time.Now()

	accessToken, err := s.tokens.IssueAccess(user.ID, user.Email)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	refreshToken, jti, err := s.tokens.IssueRefresh(user.ID)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	record := &RefreshTokenRecord{
		JTI:       jti,
		UserID:    user.ID,
		TokenHash: sec.HashToken(refreshToken),
		ExpiresAt: now.Add(s.tokens.RefreshTTL()),
	}
	if err := s.sessions.UpsertRefreshTokenRecord(ctx, record); err != nil {
		return nil, apperr.Internal(err)
	}

	if err := s.sessions.InsertLoginHistory(ctx, user.ID, ipAddress, LoginChannelWeb); err != nil {
		// Auditing must not block a legitimate login.
		s.logger.Warn("login_history_failed",
			slog.String("user_id", user.ID), slog.Any("error", err))
	}

	s.logger.Info("session_established", slog.String("user_id", user.ID))
	return &LoginResult{
		User: user.Sanitized(),
		Tokens: TokenPair{
			AccessToken:      accessToken,
			RefreshToken:     refreshToken,
			AccessExpiresAt:  now.Add(s.tokens.AccessTTL()),
			RefreshExpiresAt: now.Add(s.tokens.RefreshTTL()),
		},
	}, nil
}

// # Rotation

// RotateTokens exchanges a presented refresh token for a brand-new token
// pair, enforcing the full validation chain:
//
//  1. revocation/reuse — the token's jti must still be on record,
//  2. expiry — the record must not be past its expires_at,
//  3. tamper — the SHA-256 hash of the presented token must match the
//     stored hash (a tampered token has a valid jti but a different body;
//     the record is revoked outright before rejecting),
//  4. atomic replacement — the stored record is swapped to the new jti
//     only if it still carries the old one, so exactly one caller wins a
//     concurrent rotation race.
func (s *Service) RotateTokens(ctx context.Context, refreshToken string) (*TokenPair, error) {
	jti, err := s.tokens.ExtractJTI(refreshToken)
	if err != nil {
		return nil, apperr.SessionRevoked("Invalid refresh token format.")
	}

	record, err := s.sessions.GetRefreshTokenRecord(ctx, jti)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if record == nil {
		return nil, apperr.SessionRevoked("Invalid refresh token ID or revoked.")
	}

	if time.Now().After(record.ExpiresAt) {
		return nil, apperr.SessionExpired("Expired refresh token.")
	}

	if !sec.CompareTokenHash(refreshToken, record.TokenHash) {
		// The jti resolved but the token body differs from what was issued.
		// Revoke the session before rejecting so the legitimate token is
		// dead too.
		if delErr := s.sessions.DeleteRefreshTokenRecord(ctx, jti); delErr != nil {
			s.logger.Error("tampered_token_revocation_failed",
				slog.String("user_id", record.UserID), slog.Any("error", delErr))
		}
		s.logger.Warn("refresh_token_tampered", slog.String("user_id", record.UserID))
		return nil, apperr.SessionTampered("Token verification failed (tampered).")
	}

	user, err := s.users.FindUserByID(ctx, record.UserID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if user == nil {
		return nil, apperr.SessionRevoked("Invalid refresh token ID or revoked.")
	}

	now := time.Now()
	accessToken, err := s.tokens.IssueAccess(user.ID, user.Email)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	newRefreshToken, newJTI, err := s.tokens.IssueRefresh(user.ID)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	err = s.sessions.RotateRefreshTokenRecord(ctx, user.ID, jti,
		newJTI, sec.HashToken(newRefreshToken), now.Add(s.tokens.RefreshTTL()))
	if errors.Is(err, ErrRotationConflict) {
		// A concurrent request rotated first; this token is spent.
		return nil, apperr.SessionRevoked("Invalid refresh token ID or revoked.")
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}

	return &TokenPair{
		AccessToken:      accessToken,
		RefreshToken:     newRefreshToken,
		AccessExpiresAt:  now.Add(s.tokens.AccessTTL()),
		RefreshExpiresAt: now.Add(s.tokens.RefreshTTL()),
	}, nil
}

// LoginCachedUser restores a session from a refresh token alone: rotate,
// load the user the new access token belongs to, and audit the login.
func (s *Service) LoginCachedUser(ctx context.Context, refreshToken, ipAddress string) (*LoginResult, error) {
	pair, err := s.RotateTokens(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	claims, err := s.tokens.Decode(pair.AccessToken)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	user, err := s.users.FindUserByID(ctx, claims.Subject)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if user == nil {
		return nil, apperr.NotFound("User")
	}

	if err := s.sessions.InsertLoginHistory(ctx, user.ID, ipAddress, LoginChannelWeb); err != nil {
		s.logger.Warn("login_history_failed",
			slog.String("user_id", user.ID), slog.Any("error", err))
	}

	return &LoginResult{User: user.Sanitized(), Tokens: *pair}, nil
}

// Logout revokes the refresh-token record bound to the presented token.
// A missing or unparseable token is a no-op: the client clears its cookies
// either way.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	jti, err := s.tokens.ExtractJTI(refreshToken)
	if err != nil {
		return nil
	}
	if err := s.sessions.DeleteRefreshTokenRecord(ctx, jti); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

// # Password Reset

// RequestPasswordReset mints a reset code for a verified account and mails
// the reset link. The account must exist and be verified.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.users.FindUserByEmail(ctx, email)
	if err != nil {
		return apperr.Internal(err)
	}
	if user == nil {
		return apperr.NotFound(fmt.Sprintf("User with email '%s'", email))
	}
	if !user.EmailVerified() {
		return apperr.Conflict("Account email is not verified.")
	}

	code, err := generateConfirmationCode()
	if err != nil {
		return apperr.Internal(err)
	}
	confirmation := &PasswordResetConfirmation{
		ID:        uuid.New(),
		UserID:    user.ID,
		Email:     user.Email,
		Code:      code,
		ExpiresAt: time.Now().Add(ConfirmationCodeTTL),
	}
	if err := s.confirmations.InsertPasswordResetConfirmation(ctx, confirmation); err != nil {
		return apperr.Conflict("Error adding password reset confirmation record.")
	}

	resetURL := fmt.Sprintf("%s/auth/reset-password?email=%s&code=%s&id=%s",
		s.frontendURL, url.QueryEscape(user.Email), url.QueryEscape(code), url.QueryEscape(confirmation.ID))
	if err := s.mailer.SendPasswordResetEmail(ctx, user.Email, resetURL); err != nil {
		s.logger.Error("password_reset_email_failed",
			slog.String("user_id", user.ID), slog.Any("error", err))
		return apperr.Conflict("Error sending password reset email.")
	}

	s.logger.Info("password_reset_requested", slog.String("user_id", user.ID))
	return nil
}

// ResetPassword consumes a reset code and replaces the account password.
// Existing sessions are untouched; they expire or rotate on their own.
func (s *Service) ResetPassword(ctx context.Context, code, confirmationID, email, newPassword string) (*User, error) {
	confirmation, err := s.confirmations.FindPasswordResetConfirmation(ctx, code, confirmationID, email)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if confirmation == nil {
		return nil, apperr.Conflict("Incorrect password reset code submitted.")
	}
	if confirmation.UsedAt != nil {
		return nil, apperr.Conflict("Password reset previously completed. Request a new password reset.")
	}
	if time.Now().After(confirmation.ExpiresAt) {
		return nil, apperr.Conflict("Password reset code expired. Request a new password reset.")
	}

	passwordHash, err := sec.HashPassword(newPassword)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	user, err := s.confirmations.ConsumePasswordReset(ctx, confirmation.ID, confirmation.UserID, passwordHash)
	switch {
	case errors.Is(err, ErrConfirmationAlreadyUsed):
		return nil, apperr.Conflict("Password reset previously completed. Request a new password reset.")
	case err != nil:
		return nil, apperr.Internal(err)
	}

	s.logger.Info("password_reset_completed", slog.String("user_id", user.ID))
	return user.Sanitized(), nil
}

// # Profile

// CurrentUser loads the authenticated user's account for /auth/me.
func (s *Service) CurrentUser(ctx context.Context, userID string) (*User, error) {
	user, err := s.users.FindUserByID(ctx, userID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if user == nil {
		return nil, apperr.NotFound("User")
	}
	return user.Sanitized(), nil
}
