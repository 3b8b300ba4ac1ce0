package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoExpiry is returned by ExpiresAt for a token without an exp claim.
var ErrNoExpiry = errors.New("token has no exp claim")

// parser never verifies signatures: ZoneMinder is the trust boundary and
// rejects bad tokens itself. Claims are only read to schedule renewal.
var parser = jwt.NewParser()

// ExpiresAt decodes the exp claim of a signed token without verifying its
// signature.
func ExpiresAt(token string) (time.Time, error) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return time.Time{}, fmt.Errorf("decoding token claims: %w", err)
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, ErrNoExpiry
	}
	return claims.ExpiresAt.Time, nil
}
