package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMalformedToken indicates the credential is not a decodable JWT.
	ErrMalformedToken = errors.New("malformed token")
	// ErrMissingExpiry indicates the credential carries no exp claim.
	ErrMissingExpiry = errors.New("token has no exp claim")
)

var unverified = jwt.NewParser()

// DecodeExpiry reads the exp claim of token. The signature is not checked; the
// backend validates every credential it receives.
func DecodeExpiry(token string) (time.Time, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return time.Time{}, ErrMalformedToken
	}
	claims := &jwt.RegisteredClaims{}
	if _, _, err := unverified.ParseUnverified(token, claims); err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, ErrMissingExpiry
	}
	return claims.ExpiresAt.Time, nil
}

// IsLive reports whether token expires strictly after now. Undecodable tokens
// are treated as expired.
func IsLive(token string, now time.Time) bool {
	exp, err := DecodeExpiry(token)
	if err != nil {
		return false
	}
	return exp.After(now)
}
