package sql

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"initguard/internal/storage"
)

func newTestStorage(t *testing.T) storage.Storage {
	t.Helper()
	store, err := New(context.Background(), "sqlite:"+filepath.Join(t.TempDir(), "attempts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestDuplicateAttemptHandling(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)

	attempt := &storage.Attempt{
		ID:        "attempt-1",
		Outcome:   storage.OutcomeValid,
		UserID:    42,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, store.StoreAttempt(ctx, attempt))

	// Store the same ID with a different outcome
	duplicate := *attempt
	duplicate.Outcome = storage.OutcomeInvalid
	require.NoError(t, store.StoreAttempt(ctx, &duplicate))

	stored, err := store.GetAttempt(ctx, attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, storage.OutcomeValid, stored.Outcome)

	count, err := store.CountAttempts(ctx, storage.QueryOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, count, "Should have exactly one attempt")
}

func TestConcurrentAttemptInsertion(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)

	attempt := &storage.Attempt{
		ID:        "concurrent-1",
		Outcome:   storage.OutcomeValid,
		CreatedAt: time.Now().UTC(),
	}

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a := *attempt
			errs <- store.StoreAttempt(ctx, &a)
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}

	count, err := store.CountAttempts(ctx, storage.QueryOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, count, "Should have exactly one attempt despite concurrent insertions")
}

func TestOversizedFieldsAreTruncated(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)

	attempt := &storage.Attempt{
		ID:         "oversized",
		Outcome:    storage.OutcomeInvalid,
		Username:   strings.Repeat("é", 300),
		Hash:       strings.Repeat("a", 200),
		RemoteAddr: strings.Repeat("1", 100),
		CreatedAt:  time.Now().UTC(),
	}
	require.NoError(t, store.StoreAttempt(ctx, attempt))

	stored, err := store.GetAttempt(ctx, attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("é", 255), stored.Username)
	assert.Equal(t, strings.Repeat("a", 128), stored.Hash)
	assert.Equal(t, strings.Repeat("1", 64), stored.RemoteAddr)
	assert.Len(t, attempt.Hash, 200, "caller's attempt is left untouched")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 3))
	assert.Equal(t, "ab", truncate("abc", 2))
	assert.Equal(t, "日本", truncate("日本語", 2))
}

func TestCreateSchemaIdempotent(t *testing.T) {
	store := newTestStorage(t)
	require.NoError(t, store.CreateSchema(context.Background()))
}

func TestUnsupportedDriver(t *testing.T) {
	_, err := New(context.Background(), "not a url")
	assert.Error(t, err)
}

func TestDialects(t *testing.T) {
	tests := []struct {
		name        string
		dialect     SQLDialect
		placeholder string
		statements  int
		insertSQL   string
	}{
		{
			name:        "sqlite",
			dialect:     &SQLiteDialect{},
			placeholder: "?",
			statements:  4,
			insertSQL:   "INSERT INTO attempts (id) VALUES (?) ON CONFLICT (id) DO NOTHING",
		},
		{
			name:        "postgres",
			dialect:     &PostgresDialect{},
			placeholder: "$",
			statements:  4,
			insertSQL:   "INSERT INTO attempts (id) VALUES ($1) ON CONFLICT (id) DO NOTHING",
		},
		{
			name:        "mysql",
			dialect:     &MySQLDialect{},
			placeholder: "?",
			statements:  1,
			insertSQL:   "INSERT IGNORE INTO attempts (id) VALUES (?)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.placeholder, tt.dialect.PlaceholderFormat())

			stmts := tt.dialect.SchemaSQL("attempts")
			assert.Len(t, stmts, tt.statements)
			assert.Contains(t, stmts[0], tt.dialect.TimeType())

			base := NewBaseStorage(nil, tt.dialect, "attempts")
			query := tt.dialect.InsertIgnore(base.builder.Insert("attempts").Columns("id").Values("x"))
			stmt, _, err := query.ToSql()
			require.NoError(t, err)
			assert.Equal(t, tt.insertSQL, stmt)
		})
	}
}

func TestWithMySQLParseTime(t *testing.T) {
	assert.Equal(t, "u:p@tcp(db:3306)/app?parseTime=true", withMySQLParseTime("u:p@tcp(db:3306)/app"))
	assert.Equal(t, "u:p@tcp(db:3306)/app?tls=true&parseTime=true", withMySQLParseTime("u:p@tcp(db:3306)/app?tls=true"))
	assert.Equal(t, "u:p@tcp(db:3306)/app?parseTime=false", withMySQLParseTime("u:p@tcp(db:3306)/app?parseTime=false"))
}
