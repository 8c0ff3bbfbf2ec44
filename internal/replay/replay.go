// Package replay rejects initData payloads that have already been accepted.
//
// A payload is identified by its hash field, which is unique per signed
// payload. Guards remember each hash for a TTL, normally the same window
// used for the auth_date freshness check.
package replay

import (
	"context"
	"sync"
	"time"
)

// Guard records payload hashes and reports whether a hash was seen before.
type Guard interface {
	// Seen marks hash as used for ttl and reports whether it was already
	// marked.
	Seen(ctx context.Context, hash string, ttl time.Duration) (bool, error)
}

// sweepInterval bounds how often MemoryGuard scans for expired hashes.
const sweepInterval = time.Second

// MemoryGuard keeps hashes in process memory. A lookup only inspects its
// own key; expired entries are swept at most once per sweepInterval.
type MemoryGuard struct {
	mu        sync.Mutex
	entries   map[string]time.Time
	lastSweep time.Time
	now       func() time.Time
}

func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (g *MemoryGuard) Seen(_ context.Context, hash string, ttl time.Duration) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if now.Sub(g.lastSweep) >= sweepInterval {
		g.sweep(now)
	}

	if expiry, ok := g.entries[hash]; ok && now.Before(expiry) {
		return true, nil
	}
	g.entries[hash] = now.Add(ttl)
	return false, nil
}

// Len returns the number of hashes currently remembered.
func (g *MemoryGuard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sweep(g.now())
	return len(g.entries)
}

func (g *MemoryGuard) sweep(now time.Time) {
	for hash, expiry := range g.entries {
		if !now.Before(expiry) {
			delete(g.entries, hash)
		}
	}
	g.lastSweep = now
}
