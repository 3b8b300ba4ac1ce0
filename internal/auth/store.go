// Package auth keeps the ZoneMinder access/refresh token pair valid across
// collection cycles: it persists the pair, decodes expiry claims and decides
// between reuse, refresh and full re-login.
package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vesaa/zmtalon/internal/models"
)

// ErrNoTokens is returned by Store.Load when no usable pair is stored.
var ErrNoTokens = errors.New("no stored token pair")

// Store persists the token pair. Save writes both tokens as a unit.
type Store interface {
	Load(ctx context.Context) (models.TokenPair, error)
	Save(ctx context.Context, pair models.TokenPair) error
}

// FileStore keeps the pair in a single file as "access|refresh".
type FileStore struct {
	path string
}

// NewFileStore returns a store backed by path. The file is created on the
// first Save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the token file location.
func (s *FileStore) Path() string { return s.path }

// Load reads the pair. A missing or malformed file yields ErrNoTokens.
func (s *FileStore) Load(_ context.Context) (models.TokenPair, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return models.TokenPair{}, ErrNoTokens
	}
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("reading %s: %w", s.path, err)
	}

	access, refresh, ok := strings.Cut(strings.TrimSpace(string(data)), "|")
	pair := models.TokenPair{AccessToken: access, RefreshToken: refresh}
	if !ok || pair.Empty() || strings.Contains(refresh, "|") {
		return models.TokenPair{}, fmt.Errorf("%w: malformed token file %s", ErrNoTokens, s.path)
	}
	return pair, nil
}

// Save atomically replaces the file: the pair is written to a temp file in
// the same directory, synced, then renamed over the old one.
func (s *FileStore) Save(_ context.Context, pair models.TokenPair) error {
	if pair.Empty() {
		return errors.New("refusing to store an incomplete token pair")
	}
	if strings.Contains(pair.AccessToken, "|") || strings.Contains(pair.RefreshToken, "|") {
		return errors.New("token contains the '|' separator")
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".zm_token-*")
	if err != nil {
		return fmt.Errorf("creating temp token file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.WriteString(pair.AccessToken + "|" + pair.RefreshToken); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp token file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing temp token file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp token file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replacing %s: %w", s.path, err)
	}
	return nil
}
