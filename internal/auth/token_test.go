package auth

import (
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sign(t *testing.T, claims jwt.Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return s
}

func TestDecodeExpiry(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	token := sign(t, jwt.RegisteredClaims{Subject: "u1", ExpiresAt: jwt.NewNumericDate(exp)})

	got, err := DecodeExpiry(token)
	require.NoError(t, err)
	assert.True(t, exp.Equal(got))
}

func TestDecodeExpiryErrors(t *testing.T) {
	_, err := DecodeExpiry("")
	assert.ErrorIs(t, err, ErrMalformedToken)

	_, err = DecodeExpiry("not-a-jwt")
	assert.ErrorIs(t, err, ErrMalformedToken)

	_, err = DecodeExpiry(sign(t, jwt.RegisteredClaims{Subject: "u1"}))
	assert.ErrorIs(t, err, ErrMissingExpiry)
}

func TestIsLive(t *testing.T) {
	now := time.Now()
	live := sign(t, jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute))})
	expired := sign(t, jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(-time.Minute))})

	assert.True(t, IsLive(live, now))
	assert.False(t, IsLive(expired, now))
	assert.False(t, IsLive("garbage", now))

	exp, err := DecodeExpiry(live)
	require.NoError(t, err)
	assert.False(t, IsLive(live, exp), "expiry equal to now is not live")
}
