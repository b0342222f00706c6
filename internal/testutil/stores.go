package testutil

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/storefront/internal/remote/sqlstore"
	"github.com/roach88/storefront/internal/store"
)

// OpenStore opens a file-backed SQLite store in a temp dir, closed on cleanup.
func OpenStore(t testing.TB, name string, opts ...store.Option) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), name+".db"), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

// OpenRecords returns a SQLite-backed remote record store wrapped in Records.
func OpenRecords(t testing.TB) *Records {
	t.Helper()
	return NewRecords(sqlstore.New(OpenStore(t, "remote")))
}
