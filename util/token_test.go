package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", time.Hour)

	token, expiresAt, err := tm.CreateToken(AdminSubject)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	subject, err := tm.CheckToken(token)
	require.NoError(t, err)
	assert.Equal(t, AdminSubject, subject)
}

func TestTokenExpired(t *testing.T) {
	tm := NewTokenManager("secret", time.Hour)
	tm.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, _, err := tm.CreateToken(AdminSubject)
	require.NoError(t, err)

	tm.now = time.Now
	_, err = tm.CheckToken(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestTokenWrongSecret(t *testing.T) {
	token, _, err := NewTokenManager("one", time.Hour).CreateToken(AdminSubject)
	require.NoError(t, err)

	_, err = NewTokenManager("two", time.Hour).CheckToken(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, err = NewTokenManager("two", time.Hour).CheckToken("not-a-jwt")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}
