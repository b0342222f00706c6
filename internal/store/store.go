package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// DefaultQuotaBytes matches the usual per-origin browser local storage limit.
const DefaultQuotaBytes int64 = 5 << 20

// pragmas are applied to every connection before the schema.
var pragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA synchronous = NORMAL",
	"PRAGMA busy_timeout = 5000",
	"PRAGMA foreign_keys = ON",
}

// migration upgrades a database whose user_version is below version.
type migration struct {
	version int
	stmt    string
}

// migrations run in order on top of schema.sql. The last entry's version
// is the current schema version.
var migrations = []migration{
	{version: 1, stmt: `
		CREATE INDEX IF NOT EXISTS idx_kv_seq ON kv(seq);
		CREATE INDEX IF NOT EXISTS idx_records_collection_seq ON records(collection, seq);
	`},
}

// Store is SQLite-backed storage for device key/values and backend records.
// kv and records writes share one sequence so scans see write order.
type Store struct {
	db    *sql.DB
	clock *seqClock
	quota int64
}

// Option configures a Store.
type Option func(*Store)

// WithQuota sets the kv byte quota. Zero or negative disables the quota.
func WithQuota(bytes int64) Option {
	return func(s *Store) {
		s.quota = bytes
	}
}

// Open opens or creates the database at path, applying pragmas and
// migrations. ":memory:" opens a private in-memory database.
func Open(path string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	// One connection: SQLite has a single writer, and ":memory:" databases
	// are per connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	seq, err := prepare(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	s := &Store{db: db, clock: newSeqClockAt(seq), quota: DefaultQuotaBytes}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// prepare configures a fresh connection and returns the highest sequence
// already written.
func prepare(db *sql.DB) (int64, error) {
	if err := db.Ping(); err != nil {
		return 0, fmt.Errorf("connect: %w", err)
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return 0, fmt.Errorf("%s: %w", p, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		return 0, fmt.Errorf("schema: %w", err)
	}
	if err := migrate(db); err != nil {
		return 0, err
	}

	var seq int64
	err := db.QueryRow(`
		SELECT COALESCE(MAX(seq), 0) FROM (
			SELECT seq FROM kv UNION ALL SELECT seq FROM records
		)
	`).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("read sequence: %w", err)
	}
	return seq, nil
}

// migrate applies pending migrations and records each in user_version.
func migrate(db *sql.DB) error {
	var current int
	if err := db.QueryRow("PRAGMA user_version").Scan(&current); err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}
	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		if _, err := db.Exec(m.stmt); err != nil {
			return fmt.Errorf("migrate to v%d: %w", m.version, err)
		}
		if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", m.version)); err != nil {
			return fmt.Errorf("migrate to v%d: set user_version: %w", m.version, err)
		}
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Seq returns the last write sequence number issued by this store.
func (s *Store) Seq() int64 {
	return s.clock.Current()
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// pragma reads a pragma's current value.
func (s *Store) pragma(name string) (string, error) {
	var value string
	if err := s.db.QueryRow("PRAGMA " + name).Scan(&value); err != nil {
		return "", fmt.Errorf("read %s: %w", name, err)
	}
	return value, nil
}
