package zmsim

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token kinds carried in the "type" claim.
const (
	kindAccess  = "access"
	kindRefresh = "refresh"
)

var (
	errWrongKind = errors.New("wrong token type")
	errRevoked   = errors.New("token revoked")
)

// Claims is the payload embedded in every token the simulator issues.
// Generation ties a token to the revocation epoch it was issued in.
type Claims struct {
	User       string `json:"user"`
	Type       string `json:"type"`
	Generation int    `json:"gen"`
	jwt.RegisteredClaims
}

// issue creates a signed HS256 token of the given kind valid for ttl.
func (s *Server) issue(user, kind string, ttl time.Duration) (string, error) {
	now := s.now()
	claims := Claims{
		User:       user,
		Type:       kind,
		Generation: s.generation,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "ZoneMinder",
			Subject:   user,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// verify validates a token's signature, expiry, kind and generation.
// Callers must hold s.mu.
func (s *Server) verify(tokenStr, kind string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if claims.Type != kind {
		return nil, errWrongKind
	}
	if claims.Generation != s.generation {
		return nil, errRevoked
	}
	return claims, nil
}
