package replay

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryGuard(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	g := NewMemoryGuard()
	g.now = func() time.Time { return now }

	seen, err := g.Seen(ctx, "abc", time.Minute)
	require.NoError(t, err)
	assert.False(t, seen, "first use")

	seen, err = g.Seen(ctx, "abc", time.Minute)
	require.NoError(t, err)
	assert.True(t, seen, "second use")

	seen, err = g.Seen(ctx, "def", time.Minute)
	require.NoError(t, err)
	assert.False(t, seen, "different hash")
	assert.Equal(t, 2, g.Len())

	now = now.Add(time.Minute)
	assert.Equal(t, 0, g.Len(), "entries expire after ttl")

	seen, err = g.Seen(ctx, "abc", time.Minute)
	require.NoError(t, err)
	assert.False(t, seen, "expired hash is accepted again")
}

func TestMemoryGuardSweepsPeriodically(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	now := start
	g := NewMemoryGuard()
	g.now = func() time.Time { return now }

	for _, hash := range []string{"a", "b"} {
		seen, err := g.Seen(ctx, hash, 100*time.Millisecond)
		require.NoError(t, err)
		assert.False(t, seen)
	}

	// Expired but not yet swept: lookups check only their own key
	now = start.Add(500 * time.Millisecond)
	seen, err := g.Seen(ctx, "c", 100*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, seen)
	assert.Len(t, g.entries, 3)

	seen, err = g.Seen(ctx, "a", 100*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, seen, "expired hash is accepted before the sweep")

	now = start.Add(sweepInterval)
	seen, err = g.Seen(ctx, "d", time.Minute)
	require.NoError(t, err)
	assert.False(t, seen)
	assert.Len(t, g.entries, 1, "sweep drops every expired hash")
	assert.Contains(t, g.entries, "d")
}

func TestMemoryGuardManyLiveEntries(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	g := NewMemoryGuard()
	g.now = func() time.Time { return now }

	for i := 0; i < 50000; i++ {
		_, err := g.Seen(ctx, strconv.Itoa(i), time.Hour)
		require.NoError(t, err)
	}

	seen, err := g.Seen(ctx, "49999", time.Hour)
	require.NoError(t, err)
	assert.True(t, seen)
	assert.Equal(t, 50000, g.Len())
}

func TestMemoryGuardConcurrent(t *testing.T) {
	g := NewMemoryGuard()
	var (
		wg    sync.WaitGroup
		fresh atomic.Int32
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seen, err := g.Seen(context.Background(), "same", time.Hour)
			assert.NoError(t, err)
			if !seen {
				fresh.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), fresh.Load())
}

func TestNewRedisGuardFromURLInvalid(t *testing.T) {
	_, err := NewRedisGuardFromURL(context.Background(), "http://not-redis")
	assert.Error(t, err)
}
