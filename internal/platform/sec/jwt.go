// Copyright (c) 2026 Moneta. All rights reserved.
// Author: dev@moneta.app

// Package sec provides cryptographic primitives and token management.
//
// # Architecture
//
// This package isolates security-sensitive code (Hashing, JWT Signing) from
// the domain logic. It acts as an Infrastructure service injected into the
// Application layer via small interfaces defined where they are consumed.
package sec

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token type discriminators embedded in every signed payload.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// ErrInvalidToken is returned by [TokenIssuer.Decode] for any token that is
// malformed, expired, or fails signature verification. Callers must never
// see a usable payload alongside this error.
var ErrInvalidToken = errors.New("sec: invalid token")

// Claims represents the payload embedded inside a Moneta JWT.
//
// Access tokens carry {sub, email, type:"access"}; refresh tokens carry
// {sub, jti, type:"refresh"}. The jti rides in RegisteredClaims.ID.
type Claims struct {
	jwt.RegisteredClaims

	Email     string `json:"email,omitempty"`
	TokenType string `json:"type"`
}

// TokenIssuer mints and verifies HS256-signed access and refresh tokens
// using a shared secret.
type TokenIssuer struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewTokenIssuer creates a new TokenIssuer.
func NewTokenIssuer(secret, issuer string, accessTTL, refreshTTL time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret:     []byte(secret),
		issuer:     issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// AccessTTL returns the configured access-token lifetime.
func (issuer *TokenIssuer) AccessTTL() time.Duration { return issuer.accessTTL }

// RefreshTTL returns the configured refresh-token lifetime.
func (issuer *TokenIssuer) RefreshTTL() time.Duration { return issuer.refreshTTL }

// IssueAccess signs a short-lived access token for the given user.
//
// Access tokens are stateless: they are never looked up server-side.
func (issuer *TokenIssuer) IssueAccess(userID, email string) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    issuer.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(issuer.accessTTL)),
		},
		Email:     email,
		TokenType: TokenTypeAccess,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(issuer.secret)
	if err != nil {
		return "", fmt.Errorf("sec: failed to sign access token: %w", err)
	}
	return signed, nil
}

// IssueRefresh signs a long-lived refresh token with a fresh random jti.
//
// The jti is returned separately so the caller can persist the hash binding
// without re-parsing the token it just received.
func (issuer *TokenIssuer) IssueRefresh(userID string) (signed string, jti string, err error) {
	jti = uuid.NewString()
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    issuer.issuer,
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(issuer.refreshTTL)),
		},
		TokenType: TokenTypeRefresh,
	}

	signed, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(issuer.secret)
	if err != nil {
		return "", "", fmt.Errorf("sec: failed to sign refresh token: %w", err)
	}
	return signed, jti, nil
}

// Decode verifies the signature and expiry of a token string.
//
// Expired or malformed tokens return [ErrInvalidToken] (wrapped) — never a
// decoded payload.
func (issuer *TokenIssuer) Decode(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("sec: unexpected signing method: %v", token.Header["alg"])
		}
		return issuer.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ExtractJTI decodes the jti claim WITHOUT verifying the signature.
//
// This exists solely so the rotation protocol can perform its database
// lookup before full trust is established. Final trust comes from the hash
// comparison against the stored record, never from this decode alone.
func (issuer *TokenIssuer) ExtractJTI(tokenString string) (string, error) {
	parser := jwt.NewParser()
	claims := &Claims{}
	if _, _, err := parser.ParseUnverified(tokenString, claims); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.ID == "" {
		return "", fmt.Errorf("%w: jti missing from token payload", ErrInvalidToken)
	}
	return claims.ID, nil
}
