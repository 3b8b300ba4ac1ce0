package auth

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	zmerr "github.com/vesaa/zmtalon/internal/errors"
	"github.com/vesaa/zmtalon/internal/models"
)

var testKey = []byte("zm-test-signing-key")

// signToken mints an HS256 token that expires at exp.
func signToken(t *testing.T, subject string, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	s, err := tok.SignedString(testKey)
	require.NoError(t, err)
	return s
}

// fakeAuth records every call and mints tokens relative to now.
type fakeAuth struct {
	t   *testing.T
	now time.Time

	logins    int
	refreshes int
	lastUser  string
	lastPass  string
	refreshed []string

	loginErr   error
	refreshErr error
}

func (f *fakeAuth) Login(_ context.Context, user, password string) (models.TokenPair, error) {
	f.logins++
	f.lastUser, f.lastPass = user, password
	if f.loginErr != nil {
		return models.TokenPair{}, f.loginErr
	}
	return models.TokenPair{
		AccessToken:  signToken(f.t, fmt.Sprintf("login-access-%d", f.logins), f.now.Add(time.Hour)),
		RefreshToken: signToken(f.t, fmt.Sprintf("login-refresh-%d", f.logins), f.now.Add(24*time.Hour)),
	}, nil
}

func (f *fakeAuth) Refresh(_ context.Context, refreshToken string) (string, error) {
	f.refreshes++
	f.refreshed = append(f.refreshed, refreshToken)
	if f.refreshErr != nil {
		return "", f.refreshErr
	}
	return signToken(f.t, fmt.Sprintf("refresh-access-%d", f.refreshes), f.now.Add(time.Hour)), nil
}

func (f *fakeAuth) calls() int { return f.logins + f.refreshes }

// memStore is an in-memory Store with injectable failures.
type memStore struct {
	pair    *models.TokenPair
	saves   int
	loadErr error
	saveErr error
}

func (s *memStore) Load(context.Context) (models.TokenPair, error) {
	if s.loadErr != nil {
		return models.TokenPair{}, s.loadErr
	}
	if s.pair == nil {
		return models.TokenPair{}, ErrNoTokens
	}
	return *s.pair, nil
}

func (s *memStore) Save(_ context.Context, pair models.TokenPair) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saves++
	s.pair = &pair
	return nil
}

var errBoom = errors.New("boom")

func authFailure() error {
	return zmerr.Wrap(zmerr.Wrap(errBoom, zmerr.CodeNetwork, "request login"), zmerr.CodeAuth, "login failed")
}
