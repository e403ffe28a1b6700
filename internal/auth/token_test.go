package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestTokenRoundTrip(t *testing.T) {
	tokens := NewTokenManager("secret", 0)
	raw, expiresAt, err := tokens.GenerateToken("user-1", "cat@example.com")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), expiresAt, time.Minute)

	claims, err := tokens.ParseToken(raw)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "cat@example.com", claims.Email)
}

func TestTokenRejectsForeignSecretAndExpiry(t *testing.T) {
	issuer := NewTokenManager("secret", time.Hour)
	raw, _, err := issuer.GenerateToken("user-1", "")
	require.NoError(t, err)

	_, err = NewTokenManager("other", time.Hour).ParseToken(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)

	later := NewTokenManager("secret", time.Hour)
	later.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = later.ParseToken(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = issuer.ParseToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter22", 4)
	require.NoError(t, err)
	assert.NotEqual(t, "hunter22", hash)
	assert.NoError(t, ComparePassword(hash, "hunter22"))
	assert.ErrorIs(t, ComparePassword(hash, "wrong"), ErrPasswordMismatch)

	_, err = HashPassword(strings.Repeat("x", MaxPasswordBytes+1), 4)
	assert.ErrorIs(t, err, ErrPasswordTooLong)

	fallback, err := HashPassword("hunter22", 99)
	require.NoError(t, err)
	cost, err := bcrypt.Cost([]byte(fallback))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.DefaultCost, cost)

	assert.Error(t, ComparePassword("not-a-hash", "hunter22"))
	assert.NotErrorIs(t, ComparePassword("not-a-hash", "hunter22"), ErrPasswordMismatch)
}
