package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"initguard/internal/storage"
	"initguard/internal/storage/factory"
)

// SetupTestDB creates a SQLite database in a temporary directory
func SetupTestDB(t testing.TB) storage.Storage {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")

	store, err := factory.NewStorageFromURI(context.Background(), "sqlite:"+dbPath)
	require.NoError(t, err)

	t.Cleanup(func() {
		store.Close()
	})

	return store
}
