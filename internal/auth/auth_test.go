package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthenticateIssuesValidToken(t *testing.T) {
	a := NewAuthenticator(Config{
		Enabled:  true,
		Username: "ranger",
		Password: "trailhead",
		Secret:   "test-secret",
		Expiry:   time.Hour,
	})

	token, expiresAt, err := a.Authenticate("ranger", "trailhead")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Greater(t, expiresAt, time.Now().Unix())

	claims, err := a.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "ranger", claims.Username)
	assert.Equal(t, "wildcam", claims.Issuer)
}

func TestAuthenticateRejectsBadCredentials(t *testing.T) {
	a := NewAuthenticator(Config{Enabled: true, Password: "trailhead"})

	_, _, err := a.Authenticate("admin", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = a.Authenticate("intruder", "trailhead")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticateDisabled(t *testing.T) {
	a := NewAuthenticator(Config{})
	assert.False(t, a.IsEnabled())

	_, _, err := a.Authenticate("admin", "anything")
	assert.ErrorIs(t, err, ErrAuthDisabled)
}

func TestAuthenticatorAcceptsProvisionedHash(t *testing.T) {
	hash, err := HashPassword("trailhead")
	require.NoError(t, err)
	require.Len(t, hash, 60)

	a := NewAuthenticator(Config{Enabled: true, Password: hash})
	_, _, err = a.Authenticate("admin", "trailhead")
	assert.NoError(t, err)
}

func TestValidateTokenRejectsForeignSignature(t *testing.T) {
	issuer := NewJWTManager("secret-one", time.Hour)
	verifier := NewJWTManager("secret-two", time.Hour)

	token, _, err := issuer.GenerateToken("ranger")
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	m := NewJWTManager("secret", time.Nanosecond)

	token, _, err := m.GenerateToken("ranger")
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)
	_, err = m.ValidateToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestJWTManagerDefaults(t *testing.T) {
	m := NewJWTManager("", 0)
	assert.Equal(t, 24*time.Hour, m.Expiry())

	token, _, err := m.GenerateToken("ranger")
	require.NoError(t, err)
	claims, err := m.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "ranger", claims.Username)
}
