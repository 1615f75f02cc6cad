package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liveboard/internal/auth"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	m := auth.NewJWTManager("test-secret", time.Hour, 24*time.Hour)

	token, err := m.GenerateAccessToken(42, "teacher@example.com", "Ms. Kim")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := m.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "teacher@example.com", claims.Email)
	assert.Equal(t, "Ms. Kim", claims.Nickname)
}

func TestAccessTokenWrongSecret(t *testing.T) {
	issuer := auth.NewJWTManager("secret-a", time.Hour, 24*time.Hour)
	verifier := auth.NewJWTManager("secret-b", time.Hour, 24*time.Hour)

	token, err := issuer.GenerateAccessToken(1, "a@b.c", "A")
	require.NoError(t, err)

	_, err = verifier.ValidateAccessToken(token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestAccessTokenExpired(t *testing.T) {
	m := auth.NewJWTManager("test-secret", -time.Minute, 24*time.Hour)

	token, err := m.GenerateAccessToken(1, "a@b.c", "A")
	require.NoError(t, err)

	_, err = m.ValidateAccessToken(token)
	assert.ErrorIs(t, err, auth.ErrExpiredToken)
}

func TestAccessTokenGarbage(t *testing.T) {
	m := auth.NewJWTManager("test-secret", time.Hour, 24*time.Hour)

	_, err := m.ValidateAccessToken("not-a-token")
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	m := auth.NewJWTManager("test-secret", time.Hour, 24*time.Hour)

	token, err := m.GenerateRefreshToken(77)
	require.NoError(t, err)

	userID, err := m.ValidateRefreshToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(77), userID)
}

func TestRefreshTokenRejectedAsAccessToken(t *testing.T) {
	m := auth.NewJWTManager("test-secret", time.Hour, 24*time.Hour)

	refresh, err := m.GenerateRefreshToken(77)
	require.NoError(t, err)

	// refresh tokens carry no access claims; UserID comes back zero
	claims, err := m.ValidateAccessToken(refresh)
	if err == nil {
		assert.Zero(t, claims.UserID)
	}
}
