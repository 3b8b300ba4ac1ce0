// Package config provides configuration management for zmtalon.
// It uses Viper to load settings from files, environment variables, and CLI flags.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	zmerr "github.com/vesaa/zmtalon/internal/errors"
)

// Token store backends.
const (
	TokenStoreFile   = "file"
	TokenStoreSQLite = "sqlite"
)

// Config holds all runtime configuration for zmtalon. One Config describes
// exactly one ZoneMinder server.
type Config struct {
	// ── ZoneMinder ───────────────────────────────────────────────────────────
	// URL is the ZoneMinder base URL, e.g. http://127.0.0.1/zm.
	URL string `mapstructure:"zm_url"`
	// User: an empty user disables authentication entirely.
	User     string `mapstructure:"zm_user"`
	Password string `mapstructure:"zm_pass"`

	TimeoutSeconds     int `mapstructure:"timeout_seconds"`
	UpdateEverySeconds int `mapstructure:"update_every_seconds"`

	// ── Token persistence ────────────────────────────────────────────────────
	TokenStore string `mapstructure:"token_store"` // "file" or "sqlite"
	TokenFile  string `mapstructure:"token_file"`
	TokenDB    string `mapstructure:"token_db"`

	// ── Exporter ─────────────────────────────────────────────────────────────
	// ListenAddr: empty disables the HTTP exporter.
	ListenAddr string `mapstructure:"listen_addr"`
	// StoragePath: when set, filesystem usage of this path is reported.
	StoragePath string `mapstructure:"storage_path"`

	// ── Logging ──────────────────────────────────────────────────────────────
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

// Timeout is the per-request network timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Interval is the collection period.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.UpdateEverySeconds) * time.Second
}

// AuthEnabled reports whether a user is configured.
func (c *Config) AuthEnabled() bool {
	return c.User != ""
}

// Load reads config from configFile when given, otherwise from ./config.yaml
// or ~/.zmtalon/config.yaml, and falls back to defaults. Environment variables
// with prefix ZMTALON_ override file values.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	v.SetDefault("zm_url", "http://127.0.0.1/zm")
	v.SetDefault("zm_user", "")
	v.SetDefault("zm_pass", "")
	v.SetDefault("timeout_seconds", 10)
	v.SetDefault("update_every_seconds", 10)

	v.SetDefault("token_store", TokenStoreFile)
	v.SetDefault("token_file", "~/.zm_token.txt")
	v.SetDefault("token_db", "zmtalon.db")

	v.SetDefault("listen_addr", "127.0.0.1:9561")
	v.SetDefault("storage_path", "")

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.zmtalon")
	}
	if err := v.ReadInConfig(); err != nil {
		// the default config file is optional; an explicit one is not
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || configFile != "" {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("ZMTALON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	cfg.Normalize()
	return &cfg, nil
}

// Normalize strips trailing slashes from the URL and expands a leading ~ in
// file paths. Call it again after applying CLI overrides.
func (c *Config) Normalize() {
	c.URL = strings.TrimRight(strings.TrimSpace(c.URL), "/")
	c.TokenFile = expandHome(c.TokenFile)
	c.TokenDB = expandHome(c.TokenDB)
	c.StoragePath = expandHome(c.StoragePath)
}

// Validate rejects configurations the collector cannot run with.
func (c *Config) Validate() error {
	u, err := url.Parse(c.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return zmerr.New(zmerr.CodeConfig, fmt.Sprintf("invalid zm_url %q", c.URL))
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return zmerr.New(zmerr.CodeConfig, fmt.Sprintf("unsupported zm_url scheme %q", u.Scheme))
	}
	if c.TimeoutSeconds <= 0 {
		return zmerr.New(zmerr.CodeConfig, "timeout_seconds must be positive")
	}
	if c.UpdateEverySeconds <= 0 {
		return zmerr.New(zmerr.CodeConfig, "update_every_seconds must be positive")
	}
	switch c.TokenStore {
	case TokenStoreFile:
		if c.TokenFile == "" {
			return zmerr.New(zmerr.CodeConfig, "token_file is required for the file token store")
		}
	case TokenStoreSQLite:
		if c.TokenDB == "" {
			return zmerr.New(zmerr.CodeConfig, "token_db is required for the sqlite token store")
		}
	default:
		return zmerr.New(zmerr.CodeConfig, fmt.Sprintf("unsupported token_store %q (use 'file' or 'sqlite')", c.TokenStore))
	}
	return nil
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
