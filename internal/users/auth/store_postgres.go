// Copyright (c) 2026 Moneta. All rights reserved.
// Author: dev@moneta.app

package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements UserStore, ConfirmationStore, and SessionStore
// on top of a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a Postgres-backed credential store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const userColumns = `id, email, providers, profiles, settings, created_at, updated_at`

// scanUser maps one users row into the domain entity, decoding the
// providers jsonb column.
func scanUser(row pgx.Row) (*User, error) {
	var (
		user      User
		providers []byte
	)
	err := row.Scan(
		&user.ID,
		&user.Email,
		&providers,
		&user.Profiles,
		&user.Settings,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(providers, &user.Providers); err != nil {
		return nil, fmt.Errorf("decode providers: %w", err)
	}
	return &user, nil
}

// # UserStore

func (s *PostgresStore) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`,
		email,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("auth: failed to check email existence: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) InsertUser(ctx context.Context, id, email string, providers map[string]Provider) (*User, error) {
	encoded, err := json.Marshal(providers)
	if err != nil {
		return nil, fmt.Errorf("auth: failed to encode providers: %w", err)
	}

	row := s.pool.QueryRow(ctx,
		`INSERT INTO users (id, email, providers)
		 VALUES ($1, $2, $3)
		 RETURNING `+userColumns,
		id, email, encoded,
	)
	user, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("auth: failed to insert user: %w", err)
	}
	return user, nil
}

func (s *PostgresStore) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`,
		email,
	)
	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("auth: failed to find user by email: %w", err)
	}
	return user, nil
}

func (s *PostgresStore) FindUserByID(ctx context.Context, id string) (*User, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`,
		id,
	)
	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("auth: failed to find user by id: %w", err)
	}
	return user, nil
}

// # ConfirmationStore

func (s *PostgresStore) InsertEmailConfirmation(ctx context.Context, confirmation *EmailConfirmation) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO email_confirmations (id, user_id, code, expires_at)
		 VALUES ($1, $2, $3, $4)`,
		confirmation.ID, confirmation.UserID, confirmation.Code, confirmation.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("auth: failed to insert email confirmation: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindEmailConfirmation(ctx context.Context, code, id string) (*EmailConfirmation, error) {
	var confirmation EmailConfirmation
	err := s.pool.QueryRow(ctx,
		`SELECT id, user_id, code, expires_at, used_at
		 FROM email_confirmations
		 WHERE code = $1 AND id = $2`,
		code, id,
	).Scan(
		&confirmation.ID,
		&confirmation.UserID,
		&confirmation.Code,
		&confirmation.ExpiresAt,
		&confirmation.UsedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("auth: failed to find email confirmation: %w", err)
	}
	return &confirmation, nil
}

func (s *PostgresStore) ConsumeEmailConfirmation(ctx context.Context, confirmationID string) (*User, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("auth: failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// The used_at IS NULL guard is what makes the code single-use under
	// concurrent submits: exactly one transaction sees the row unused.
	var userID string
	err = tx.QueryRow(ctx,
		`UPDATE email_confirmations
		 SET used_at = NOW()
		 WHERE id = $1 AND used_at IS NULL
		 RETURNING user_id`,
		confirmationID,
	).Scan(&userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrConfirmationAlreadyUsed
	}
	if err != nil {
		return nil, fmt.Errorf("auth: failed to mark confirmation used: %w", err)
	}

	var providers []byte
	err = tx.QueryRow(ctx,
		`SELECT providers FROM users WHERE id = $1 FOR UPDATE`,
		userID,
	).Scan(&providers)
	if err != nil {
		return nil, fmt.Errorf("auth: failed to lock user for verification: %w", err)
	}
	var current map[string]Provider
	if err := json.Unmarshal(providers, &current); err != nil {
		return nil, fmt.Errorf("auth: failed to decode providers: %w", err)
	}
	if current[ProviderEmail].Verified {
		return nil, ErrUserAlreadyVerified
	}

	row := tx.QueryRow(ctx,
		`UPDATE users
		 SET providers = jsonb_set(
		         jsonb_set(providers, '{email,verified}', 'true'),
		         '{email,verifiedAt}', to_jsonb(NOW())),
		     updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+userColumns,
		userID,
	)
	user, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("auth: failed to verify user: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("auth: failed to commit verification: %w", err)
	}
	return user, nil
}

func (s *PostgresStore) InsertPasswordResetConfirmation(ctx context.Context, confirmation *PasswordResetConfirmation) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO password_reset_email_confirmations (id, user_id, email, code, expires_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		confirmation.ID, confirmation.UserID, confirmation.Email, confirmation.Code, confirmation.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("auth: failed to insert password reset confirmation: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindPasswordResetConfirmation(ctx context.Context, code, id, email string) (*PasswordResetConfirmation, error) {
	var confirmation PasswordResetConfirmation
	err := s.pool.QueryRow(ctx,
		`SELECT id, user_id, email, code, expires_at, used_at
		 FROM password_reset_email_confirmations
		 WHERE code = $1 AND id = $2 AND email = $3`,
		code, id, email,
	).Scan(
		&confirmation.ID,
		&confirmation.UserID,
		&confirmation.Email,
		&confirmation.Code,
		&confirmation.ExpiresAt,
		&confirmation.UsedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("auth: failed to find password reset confirmation: %w", err)
	}
	return &confirmation, nil
}

func (s *PostgresStore) ConsumePasswordReset(ctx context.Context, confirmationID, userID, passwordHash string) (*User, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("auth: failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE password_reset_email_confirmations
		 SET used_at = NOW()
		 WHERE id = $1 AND used_at IS NULL`,
		confirmationID,
	)
	if err != nil {
		return nil, fmt.Errorf("auth: failed to mark reset confirmation used: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrConfirmationAlreadyUsed
	}

	row := tx.QueryRow(ctx,
		`UPDATE users
		 SET providers = jsonb_set(providers, '{email,password}', to_jsonb($1::text)),
		     updated_at = NOW()
		 WHERE id = $2
		 RETURNING `+userColumns,
		passwordHash, userID,
	)
	user, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("auth: failed to update password: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("auth: failed to commit password reset: %w", err)
	}
	return user, nil
}

// # SessionStore

func (s *PostgresStore) UpsertRefreshTokenRecord(ctx context.Context, record *RefreshTokenRecord) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO user_refresh_tokens (user_id, jti, token_hash, expires_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id) DO UPDATE
		 SET jti = EXCLUDED.jti,
		     token_hash = EXCLUDED.token_hash,
		     expires_at = EXCLUDED.expires_at`,
		record.UserID, record.JTI, record.TokenHash, record.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("auth: failed to upsert refresh token record: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetRefreshTokenRecord(ctx context.Context, jti string) (*RefreshTokenRecord, error) {
	var record RefreshTokenRecord
	err := s.pool.QueryRow(ctx,
		`SELECT jti, user_id, token_hash, expires_at
		 FROM user_refresh_tokens
		 WHERE jti = $1`,
		jti,
	).Scan(&record.JTI, &record.UserID, &record.TokenHash, &record.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("auth: failed to get refresh token record: %w", err)
	}
	return &record, nil
}

func (s *PostgresStore) RotateRefreshTokenRecord(ctx context.Context, userID, oldJTI, newJTI, tokenHash string, expiresAt time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE user_refresh_tokens
		 SET jti = $3, token_hash = $4, expires_at = $5
		 WHERE user_id = $1 AND jti = $2`,
		userID, oldJTI, newJTI, tokenHash, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("auth: failed to rotate refresh token record: %w", err)
	}
	// Zero rows means a concurrent rotation replaced the jti first.
	if tag.RowsAffected() == 0 {
		return ErrRotationConflict
	}
	return nil
}

func (s *PostgresStore) DeleteRefreshTokenRecord(ctx context.Context, jti string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM user_refresh_tokens WHERE jti = $1`,
		jti,
	)
	if err != nil {
		return fmt.Errorf("auth: failed to delete refresh token record: %w", err)
	}
	return nil
}

func (s *PostgresStore) InsertLoginHistory(ctx context.Context, userID, ipAddress, channel string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO user_login_history (user_id, ip_address, channel)
		 VALUES ($1, $2, $3)`,
		userID, ipAddress, channel,
	)
	if err != nil {
		return fmt.Errorf("auth: failed to insert login history: %w", err)
	}
	return nil
}
