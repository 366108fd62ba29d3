// Copyright (c) 2026 Moneta. All rights reserved.
// Author: dev@moneta.app

package sec

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword_RoundTrip(t *testing.T) {
	hash, err := HashPassword("s3cret-password")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret-password", hash)

	assert.True(t, CheckPasswordHash("s3cret-password", hash))
	assert.False(t, CheckPasswordHash("wrong-password", hash))
}

func TestHashPassword_RejectsOverlongInput(t *testing.T) {
	// bcrypt caps input at 72 bytes; anything longer must error instead of
	// being silently truncated.
	_, err := HashPassword(strings.Repeat("x", 100))
	assert.Error(t, err)
}

func TestHashToken_Deterministic(t *testing.T) {
	token := "header.payload.signature"

	first := HashToken(token)
	second := HashToken(token)
	assert.Equal(t, first, second)
	assert.Len(t, first, 64, "hex-encoded SHA-256")

	assert.NotEqual(t, first, HashToken(token+"x"))
}

func TestCompareTokenHash(t *testing.T) {
	token := "header.payload.signature"
	stored := HashToken(token)

	assert.True(t, CompareTokenHash(token, stored))
	assert.False(t, CompareTokenHash("header.payload.other", stored))
	assert.False(t, CompareTokenHash(token, "deadbeef"))
}

func TestHashToken_HandlesLongTokens(t *testing.T) {
	// Signed JWTs easily exceed bcrypt's 72-byte ceiling; SHA-256 does not care.
	long := strings.Repeat("a", 512)
	assert.True(t, CompareTokenHash(long, HashToken(long)))
}
