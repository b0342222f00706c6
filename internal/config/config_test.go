package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, BackendSQLite, cfg.Backend)
	assert.Equal(t, AuthLocal, cfg.Auth)
	assert.Equal(t, "storefront.cart", cfg.CartKey)
	assert.Equal(t, "storefront.favorites", cfg.FavoritesKey)
	assert.Equal(t, "storefront.lastActivity", cfg.ActivityKey)
	assert.Equal(t, 72*time.Hour, cfg.InactivityCeiling)
	assert.Equal(t, 5*time.Minute, cfg.ActivityCheckInterval)
	assert.Equal(t, time.Minute, cfg.ProductCacheTTL)
	assert.Equal(t, int64(5<<20), cfg.LocalQuotaBytes)
	assert.Equal(t, 3, cfg.WriteRetries)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STOREFRONT_BACKEND", "firestore")
	t.Setenv("STOREFRONT_FIRESTORE_PROJECT", "shop-prod")
	t.Setenv("STOREFRONT_INACTIVITY_CEILING", "24h")
	t.Setenv("STOREFRONT_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, BackendFirestore, cfg.Backend)
	assert.Equal(t, "shop-prod", cfg.FirestoreProject)
	assert.Equal(t, 24*time.Hour, cfg.InactivityCeiling)

	lvl, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, lvl)
}

func TestDefaultsIgnoreEnvironment(t *testing.T) {
	t.Setenv("STOREFRONT_BACKEND", "firestore")
	t.Setenv("STOREFRONT_WRITE_RETRIES", "9")

	cfg := Defaults()
	assert.Equal(t, BackendSQLite, cfg.Backend)
	assert.Equal(t, 3, cfg.WriteRetries)
	require.NoError(t, cfg.Validate())
}

func TestLoadParseError(t *testing.T) {
	t.Setenv("STOREFRONT_WRITE_RETRIES", "many")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse env:")
}

func TestValidate(t *testing.T) {
	base, err := Load()
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"unknown backend", func(c *Config) { c.Backend = "redis" }, "unknown backend"},
		{"firestore without project", func(c *Config) { c.Backend = BackendFirestore }, "STOREFRONT_FIRESTORE_PROJECT"},
		{"firebase without project", func(c *Config) { c.Auth = AuthFirebase }, "firebase auth"},
		{"unknown auth", func(c *Config) { c.Auth = "ldap" }, "unknown auth"},
		{"zero ceiling", func(c *Config) { c.InactivityCeiling = 0 }, "inactivity ceiling"},
		{"zero interval", func(c *Config) { c.ActivityCheckInterval = 0 }, "check interval"},
		{"negative retries", func(c *Config) { c.WriteRetries = -1 }, "write retries"},
		{"zero quota", func(c *Config) { c.LocalQuotaBytes = 0 }, "local quota"},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, "log level"},
		{"shared key", func(c *Config) { c.FavoritesKey = c.CartKey }, "share storage key"},
		{"empty key", func(c *Config) { c.SessionKey = "" }, "session key is empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
