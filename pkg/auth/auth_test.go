package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)
	require.NotEqual(t, "correct horse battery staple", hash)

	require.True(t, CheckPasswordHash("correct horse battery staple", hash))
	require.False(t, CheckPasswordHash("wrong password", hash))
}

func TestTokenRoundTrip(t *testing.T) {
	tm, err := NewTokenManager("test-secret-key-long-enough-for-hs256", time.Hour)
	require.NoError(t, err)

	token, err := tm.Generate("user-123", "admin")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := tm.Validate(token)
	require.NoError(t, err)
	require.Equal(t, "user-123", claims.UserID)
	require.Equal(t, "admin", claims.Role)
}

func TestTokenRejectedWithWrongSecret(t *testing.T) {
	tm, err := NewTokenManager("first-secret-key-long-enough-for-hs256", time.Hour)
	require.NoError(t, err)
	other, err := NewTokenManager("other-secret-key-long-enough-for-hs256", time.Hour)
	require.NoError(t, err)

	token, err := tm.Generate("user-123", "user")
	require.NoError(t, err)

	_, err = other.Validate(token)
	require.Error(t, err)
}

func TestExpiredTokenRejected(t *testing.T) {
	tm, err := NewTokenManager("test-secret-key-long-enough-for-hs256", -time.Minute)
	require.NoError(t, err)

	token, err := tm.Generate("user-123", "user")
	require.NoError(t, err)

	_, err = tm.Validate(token)
	require.Error(t, err)
}

func TestEmptySecretRejected(t *testing.T) {
	_, err := NewTokenManager("", time.Hour)
	require.Error(t, err)
}
