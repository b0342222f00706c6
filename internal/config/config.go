// Package config loads runtime configuration from STOREFRONT_* environment
// variables.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Backend names.
const (
	BackendSQLite    = "sqlite"
	BackendFirestore = "firestore"
)

// Auth feed names.
const (
	AuthLocal    = "local"
	AuthFirebase = "firebase"
)

// Config is the runtime configuration.
type Config struct {
	// LocalDB is the SQLite file holding device storage.
	LocalDB string `env:"STOREFRONT_LOCAL_DB" envDefault:"storefront.db"`

	// LocalQuotaBytes caps the total size of device storage values.
	LocalQuotaBytes int64 `env:"STOREFRONT_LOCAL_QUOTA_BYTES" envDefault:"5242880"`

	// Backend selects the remote record store: sqlite or firestore.
	Backend string `env:"STOREFRONT_BACKEND" envDefault:"sqlite"`

	// BackendDB is the SQLite file of the sqlite backend.
	BackendDB string `env:"STOREFRONT_BACKEND_DB" envDefault:"storefront-remote.db"`

	FirestoreProject string `env:"STOREFRONT_FIRESTORE_PROJECT"`
	CredentialsFile  string `env:"STOREFRONT_CREDENTIALS_FILE"`

	// Auth selects the identity feed: local or firebase.
	Auth string `env:"STOREFRONT_AUTH" envDefault:"local"`

	CartKey      string `env:"STOREFRONT_CART_KEY"      envDefault:"storefront.cart"`
	FavoritesKey string `env:"STOREFRONT_FAVORITES_KEY" envDefault:"storefront.favorites"`
	ActivityKey  string `env:"STOREFRONT_ACTIVITY_KEY"  envDefault:"storefront.lastActivity"`
	SessionKey   string `env:"STOREFRONT_SESSION_KEY"   envDefault:"storefront.session"`

	InactivityCeiling     time.Duration `env:"STOREFRONT_INACTIVITY_CEILING"      envDefault:"72h"`
	ActivityCheckInterval time.Duration `env:"STOREFRONT_ACTIVITY_CHECK_INTERVAL" envDefault:"5m"`
	ProductCacheTTL       time.Duration `env:"STOREFRONT_PRODUCT_CACHE_TTL"       envDefault:"1m"`

	WriteRetries    int           `env:"STOREFRONT_WRITE_RETRIES"     envDefault:"3"`
	WriteBackoffMin time.Duration `env:"STOREFRONT_WRITE_BACKOFF_MIN" envDefault:"200ms"`
	WriteBackoffMax time.Duration `env:"STOREFRONT_WRITE_BACKOFF_MAX" envDefault:"5s"`

	LogLevel string `env:"STOREFRONT_LOG_LEVEL" envDefault:"info"`
}

// Load parses the environment and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Defaults returns the configuration with every variable unset.
func Defaults() Config {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: map[string]string{}}); err != nil {
		panic(fmt.Sprintf("config: defaults: %v", err))
	}
	return cfg
}

// Validate checks enumerations and ranges.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendSQLite:
		if c.BackendDB == "" {
			return fmt.Errorf("config: STOREFRONT_BACKEND_DB is required for the sqlite backend")
		}
	case BackendFirestore:
		if c.FirestoreProject == "" {
			return fmt.Errorf("config: STOREFRONT_FIRESTORE_PROJECT is required for the firestore backend")
		}
	default:
		return fmt.Errorf("config: unknown backend %q (want %s or %s)", c.Backend, BackendSQLite, BackendFirestore)
	}

	switch c.Auth {
	case AuthLocal:
	case AuthFirebase:
		if c.FirestoreProject == "" {
			return fmt.Errorf("config: STOREFRONT_FIRESTORE_PROJECT is required for firebase auth")
		}
	default:
		return fmt.Errorf("config: unknown auth %q (want %s or %s)", c.Auth, AuthLocal, AuthFirebase)
	}

	if c.InactivityCeiling <= 0 {
		return fmt.Errorf("config: inactivity ceiling must be positive, got %s", c.InactivityCeiling)
	}
	if c.ActivityCheckInterval <= 0 {
		return fmt.Errorf("config: activity check interval must be positive, got %s", c.ActivityCheckInterval)
	}
	if c.WriteRetries < 0 {
		return fmt.Errorf("config: write retries must not be negative, got %d", c.WriteRetries)
	}
	if c.LocalQuotaBytes <= 0 {
		return fmt.Errorf("config: local quota must be positive, got %d", c.LocalQuotaBytes)
	}
	if _, err := c.Level(); err != nil {
		return err
	}

	keys := map[string]string{}
	for name, key := range map[string]string{
		"cart": c.CartKey, "favorites": c.FavoritesKey, "activity": c.ActivityKey, "session": c.SessionKey,
	} {
		if key == "" {
			return fmt.Errorf("config: %s key is empty", name)
		}
		if other, dup := keys[key]; dup {
			return fmt.Errorf("config: %s and %s share storage key %q", other, name, key)
		}
		keys[key] = name
	}
	return nil
}

// Level returns the slog level named by LogLevel.
func (c Config) Level() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("config: log level: %w", err)
	}
	return lvl, nil
}
