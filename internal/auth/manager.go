package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	zmerr "github.com/vesaa/zmtalon/internal/errors"
	"github.com/vesaa/zmtalon/internal/models"
)

// Renewal lead times. With a fixed polling period these keep a token from
// expiring in the middle of a cycle.
const (
	RefreshLeadTime = 30 * time.Minute
	AccessLeadTime  = 5 * time.Minute
)

// Authenticator talks to the ZoneMinder login endpoint.
type Authenticator interface {
	// Login exchanges credentials for a brand-new pair.
	Login(ctx context.Context, user, password string) (models.TokenPair, error)
	// Refresh exchanges a refresh token for a new access token.
	Refresh(ctx context.Context, refreshToken string) (string, error)
}

// Credentials identify the ZoneMinder user. An empty User disables
// authentication.
type Credentials struct {
	User     string
	Password string
}

// Manager decides, once per cycle, whether the stored pair can be reused,
// needs an access-token refresh, or needs a full re-login.
//
// The mutex covers the whole load-decide-persist sequence so that
// overlapping cycles cannot lose an update to the store.
type Manager struct {
	creds  Credentials
	client Authenticator
	store  Store
	log    *zap.SugaredLogger
	now    func() time.Time

	mu sync.Mutex
	// current is the last pair obtained or loaded. It is used when the store
	// cannot be read.
	current *models.TokenPair
	// forceLogin is set after a revocation whose re-login failed.
	forceLogin bool
	// dirty is set while current has not reached the store. The store then
	// holds an older pair and must not override current.
	dirty bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager wires the token manager.
func NewManager(creds Credentials, client Authenticator, store Store, log *zap.SugaredLogger, opts ...Option) *Manager {
	m := &Manager{
		creds:  creds,
		client: client,
		store:  store,
		log:    log,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// EnsureValidAccessToken returns an access token usable for this cycle.
//
// With authentication disabled it returns "" without touching the network or
// the store. A CodePersist error is soft: the returned token is still valid
// for the current cycle. Any other error means no token is available.
func (m *Manager) EnsureValidAccessToken(ctx context.Context) (string, error) {
	if m.creds.User == "" {
		return "", nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	pair, ok := m.load(ctx)
	if !ok {
		m.log.Debug("no stored tokens, logging in")
		return m.login(ctx)
	}
	if m.forceLogin {
		m.log.Debug("previous tokens were revoked, logging in")
		return m.login(ctx)
	}

	now := m.now()

	refreshExp, err := ExpiresAt(pair.RefreshToken)
	if err != nil {
		m.log.Debugw("stored refresh token unreadable, logging in", "error", err)
		return m.login(ctx)
	}
	if refreshExp.Sub(now) < RefreshLeadTime {
		m.log.Debugw("refresh token near expiry, generating new token pair", "expires_at", refreshExp)
		return m.login(ctx)
	}

	accessExp, err := ExpiresAt(pair.AccessToken)
	if err != nil {
		m.log.Debugw("stored access token unreadable, refreshing", "error", err)
		return m.refresh(ctx, pair)
	}
	if accessExp.Sub(now) < AccessLeadTime {
		m.log.Debugw("access token near expiry, refreshing", "expires_at", accessExp)
		return m.refresh(ctx, pair)
	}

	return pair.AccessToken, nil
}

// Relogin discards the current pair and performs a full login immediately.
// It is used after the server reports the access token as revoked. If the
// login fails, the next EnsureValidAccessToken forces a full login instead
// of trusting the stored (revoked) pair.
func (m *Manager) Relogin(ctx context.Context) error {
	if m.creds.User == "" {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.current = nil
	m.forceLogin = true
	_, err := m.login(ctx)
	return err
}

// load returns the stored pair, falling back to the in-memory one. An
// unsaved in-memory pair wins over the store and is saved again first.
func (m *Manager) load(ctx context.Context) (models.TokenPair, bool) {
	if m.dirty && m.current != nil {
		if err := m.store.Save(ctx, *m.current); err != nil {
			m.log.Debugw("token pair still not persisted, using the in-memory pair", "error", err)
		} else {
			m.dirty = false
			m.log.Debug("token pair persisted")
		}
		return *m.current, true
	}

	pair, err := m.store.Load(ctx)
	if err == nil {
		m.current = &pair
		return pair, true
	}
	if !errors.Is(err, ErrNoTokens) {
		m.log.Warnw("cannot read stored tokens", "error", err)
	}
	if m.current != nil {
		return *m.current, true
	}
	return models.TokenPair{}, false
}

func (m *Manager) login(ctx context.Context) (string, error) {
	pair, err := m.client.Login(ctx, m.creds.User, m.creds.Password)
	if err != nil {
		return "", err
	}
	m.current = &pair
	m.forceLogin = false
	m.log.Debug("new access and refresh tokens were generated")
	return pair.AccessToken, m.persist(ctx, pair)
}

func (m *Manager) refresh(ctx context.Context, old models.TokenPair) (string, error) {
	access, err := m.client.Refresh(ctx, old.RefreshToken)
	if err != nil {
		return "", err
	}
	pair := models.TokenPair{AccessToken: access, RefreshToken: old.RefreshToken}
	m.current = &pair
	m.log.Debug("new access token was generated")
	return pair.AccessToken, m.persist(ctx, pair)
}

func (m *Manager) persist(ctx context.Context, pair models.TokenPair) error {
	if err := m.store.Save(ctx, pair); err != nil {
		m.dirty = true
		return zmerr.Wrap(err, zmerr.CodePersist, "error while saving tokens")
	}
	m.dirty = false
	return nil
}
