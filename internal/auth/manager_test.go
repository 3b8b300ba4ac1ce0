package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	zmerr "github.com/vesaa/zmtalon/internal/errors"
	"github.com/vesaa/zmtalon/internal/logger"
	"github.com/vesaa/zmtalon/internal/models"
)

var testNow = time.Unix(1800000000, 0)

func newTestManager(t *testing.T, user string, store Store) (*Manager, *fakeAuth) {
	t.Helper()
	fake := &fakeAuth{t: t, now: testNow}
	m := NewManager(Credentials{User: user, Password: "pw"}, fake, store, logger.Nop(),
		WithClock(func() time.Time { return testNow }))
	return m, fake
}

func storedPair(t *testing.T, accessIn, refreshIn time.Duration) *models.TokenPair {
	return &models.TokenPair{
		AccessToken:  signToken(t, "stored-access", testNow.Add(accessIn)),
		RefreshToken: signToken(t, "stored-refresh", testNow.Add(refreshIn)),
	}
}

func TestEnsureAuthDisabled(t *testing.T) {
	store := &memStore{loadErr: errors.New("store must not be touched")}
	m, fake := newTestManager(t, "", store)

	tok, err := m.EnsureValidAccessToken(context.Background())
	require.NoError(t, err)
	assert.Empty(t, tok)
	assert.Zero(t, fake.calls())
	assert.Zero(t, store.saves)

	require.NoError(t, m.Relogin(context.Background()))
	assert.Zero(t, fake.calls())
}

func TestEnsureNoStoredTokensLogsIn(t *testing.T) {
	store := &memStore{}
	m, fake := newTestManager(t, "admin", store)

	tok, err := m.EnsureValidAccessToken(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, fake.logins)
	assert.Zero(t, fake.refreshes)
	assert.Equal(t, "admin", fake.lastUser)
	assert.Equal(t, "pw", fake.lastPass)
	require.NotNil(t, store.pair)
	assert.Equal(t, store.pair.AccessToken, tok)
}

func TestEnsureRefreshTokenNearExpiryRelogs(t *testing.T) {
	tests := []struct {
		name      string
		refreshIn time.Duration
	}{
		{name: "29 minutes left", refreshIn: 29 * time.Minute},
		{name: "just under threshold", refreshIn: RefreshLeadTime - time.Second},
		{name: "already expired", refreshIn: -time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			old := storedPair(t, time.Hour, tt.refreshIn)
			store := &memStore{pair: old}
			m, fake := newTestManager(t, "admin", store)

			tok, err := m.EnsureValidAccessToken(context.Background())
			require.NoError(t, err)

			assert.Equal(t, 1, fake.logins, "a full login is expected")
			assert.Zero(t, fake.refreshes, "the refresh grant must not be used")
			assert.NotEqual(t, old.AccessToken, store.pair.AccessToken)
			assert.NotEqual(t, old.RefreshToken, store.pair.RefreshToken)
			assert.Equal(t, store.pair.AccessToken, tok)
		})
	}
}

func TestEnsureAccessTokenNearExpiryRefreshes(t *testing.T) {
	tests := []struct {
		name     string
		accessIn time.Duration
	}{
		{name: "4 minutes left", accessIn: 4 * time.Minute},
		{name: "just under threshold", accessIn: AccessLeadTime - time.Second},
		{name: "already expired", accessIn: -time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			old := storedPair(t, tt.accessIn, RefreshLeadTime)
			store := &memStore{pair: old}
			m, fake := newTestManager(t, "admin", store)

			tok, err := m.EnsureValidAccessToken(context.Background())
			require.NoError(t, err)

			assert.Zero(t, fake.logins)
			assert.Equal(t, 1, fake.refreshes)
			assert.Equal(t, []string{old.RefreshToken}, fake.refreshed)
			assert.Equal(t, old.RefreshToken, store.pair.RefreshToken, "refresh token is kept")
			assert.NotEqual(t, old.AccessToken, store.pair.AccessToken)
			assert.Equal(t, store.pair.AccessToken, tok)
		})
	}
}

func TestEnsureValidTokensReused(t *testing.T) {
	old := storedPair(t, AccessLeadTime, RefreshLeadTime)
	store := &memStore{pair: old}
	m, fake := newTestManager(t, "admin", store)

	for i := 0; i < 3; i++ {
		tok, err := m.EnsureValidAccessToken(context.Background())
		require.NoError(t, err)
		assert.Equal(t, old.AccessToken, tok)
	}
	assert.Zero(t, fake.calls())
	assert.Zero(t, store.saves)
}

func TestEnsureUnreadableStoredTokens(t *testing.T) {
	t.Run("garbage refresh token relogs", func(t *testing.T) {
		store := &memStore{pair: &models.TokenPair{AccessToken: signToken(t, "a", testNow.Add(time.Hour)), RefreshToken: "garbage"}}
		m, fake := newTestManager(t, "admin", store)

		_, err := m.EnsureValidAccessToken(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, fake.logins)
	})

	t.Run("garbage access token refreshes", func(t *testing.T) {
		refresh := signToken(t, "r", testNow.Add(24*time.Hour))
		store := &memStore{pair: &models.TokenPair{AccessToken: "garbage", RefreshToken: refresh}}
		m, fake := newTestManager(t, "admin", store)

		_, err := m.EnsureValidAccessToken(context.Background())
		require.NoError(t, err)
		assert.Zero(t, fake.logins)
		assert.Equal(t, 1, fake.refreshes)
		assert.Equal(t, refresh, store.pair.RefreshToken)
	})
}

func TestEnsureLoginFailure(t *testing.T) {
	store := &memStore{}
	m, fake := newTestManager(t, "admin", store)
	fake.loginErr = authFailure()

	tok, err := m.EnsureValidAccessToken(context.Background())
	require.Error(t, err)
	assert.Empty(t, tok)
	assert.True(t, zmerr.IsCode(err, zmerr.CodeAuth))
	assert.Nil(t, store.pair)
	assert.Equal(t, 1, fake.logins, "no retry within the cycle")
}

func TestEnsureRefreshFailure(t *testing.T) {
	old := storedPair(t, time.Minute, 24*time.Hour)
	store := &memStore{pair: old}
	m, fake := newTestManager(t, "admin", store)
	fake.refreshErr = authFailure()

	tok, err := m.EnsureValidAccessToken(context.Background())
	require.Error(t, err)
	assert.Empty(t, tok)
	assert.True(t, zmerr.IsCode(err, zmerr.CodeAuth))
	assert.Equal(t, *old, *store.pair, "stored pair is untouched")
	assert.Equal(t, 1, fake.refreshes)
}

func TestEnsurePersistFailureIsSoft(t *testing.T) {
	store := &memStore{saveErr: errors.New("read-only filesystem")}
	m, fake := newTestManager(t, "admin", store)

	tok, err := m.EnsureValidAccessToken(context.Background())
	require.Error(t, err)
	assert.True(t, zmerr.IsCode(err, zmerr.CodePersist))
	assert.NotEmpty(t, tok, "the in-memory token is usable for this cycle")

	// The in-memory pair is reused on the next cycle instead of logging in again.
	again, err := m.EnsureValidAccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, tok, again)
	assert.Equal(t, 1, fake.logins)
}

func TestEnsureUnreadableStoreFallsBackToMemory(t *testing.T) {
	store := &memStore{}
	m, fake := newTestManager(t, "admin", store)

	first, err := m.EnsureValidAccessToken(context.Background())
	require.NoError(t, err)

	store.loadErr = errors.New("permission denied")
	second, err := m.EnsureValidAccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, fake.logins)
}

func TestRelogin(t *testing.T) {
	old := storedPair(t, time.Hour, 24*time.Hour)
	store := &memStore{pair: old}
	m, fake := newTestManager(t, "admin", store)

	require.NoError(t, m.Relogin(context.Background()))
	assert.Equal(t, 1, fake.logins)
	assert.NotEqual(t, old.AccessToken, store.pair.AccessToken)

	// Fresh pair is reused afterwards.
	tok, err := m.EnsureValidAccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, store.pair.AccessToken, tok)
	assert.Equal(t, 1, fake.logins)
}

func TestReloginFailureForcesLoginNextCycle(t *testing.T) {
	old := storedPair(t, time.Hour, 24*time.Hour)
	store := &memStore{pair: old}
	m, fake := newTestManager(t, "admin", store)

	fake.loginErr = authFailure()
	require.Error(t, m.Relogin(context.Background()))
	assert.Equal(t, *old, *store.pair)

	// The stored pair still looks valid but was revoked: log in again.
	fake.loginErr = nil
	tok, err := m.EnsureValidAccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, fake.logins)
	assert.NotEqual(t, old.AccessToken, tok)

	// Back to normal reuse.
	_, err = m.EnsureValidAccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, fake.logins)
}

func TestReloginUnsavedPairWinsOverStore(t *testing.T) {
	revoked := storedPair(t, time.Hour, 24*time.Hour)
	store := &memStore{pair: revoked, saveErr: errors.New("read-only token file")}
	m, fake := newTestManager(t, "admin", store)

	err := m.Relogin(context.Background())
	require.Error(t, err)
	assert.True(t, zmerr.IsCode(err, zmerr.CodePersist))
	assert.Equal(t, *revoked, *store.pair, "the store still holds the revoked pair")

	tok, err := m.EnsureValidAccessToken(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, revoked.AccessToken, tok, "the fresh pair is used, not the stored one")
	assert.Equal(t, 1, fake.logins)

	// Once the store is writable again the fresh pair reaches it.
	store.saveErr = nil
	again, err := m.EnsureValidAccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, tok, again)
	assert.Equal(t, tok, store.pair.AccessToken)
	assert.Equal(t, 1, fake.logins)
}

func TestRefreshUnsavedPairNotRefreshedAgain(t *testing.T) {
	store := &memStore{pair: storedPair(t, time.Minute, 24*time.Hour), saveErr: errors.New("read-only token file")}
	m, fake := newTestManager(t, "admin", store)

	first, err := m.EnsureValidAccessToken(context.Background())
	require.Error(t, err)
	assert.True(t, zmerr.IsCode(err, zmerr.CodePersist))

	for i := 0; i < 2; i++ {
		tok, err := m.EnsureValidAccessToken(context.Background())
		require.NoError(t, err)
		assert.Equal(t, first, tok)
	}
	assert.Equal(t, 1, fake.refreshes)
	assert.Zero(t, fake.logins)
}
