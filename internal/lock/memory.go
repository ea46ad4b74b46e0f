package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	domainErrors "github.com/dmarkhas/loyaltycore/internal/domain/errors"
)

type memoryEntry struct {
	token     Token
	expiresAt time.Time
}

// sweepInterval bounds how often Acquire walks the whole map dropping
// expired entries, so keys that are never touched again do not pile up.
const sweepInterval = time.Minute

// MemoryGuard is the in-process Guard for single-instance deployments.
type MemoryGuard struct {
	mu        sync.Mutex
	entries   map[string]memoryEntry
	now       func() time.Time
	nextSweep time.Time
}

// NewMemoryGuard constructs an empty in-process guard.
func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// Acquire takes the key or fails fast when another unexpired holder exists.
func (g *MemoryGuard) Acquire(_ context.Context, key string, ttl time.Duration) (Token, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if !now.Before(g.nextSweep) {
		for k, e := range g.entries {
			if !e.expiresAt.After(now) {
				delete(g.entries, k)
			}
		}
		g.nextSweep = now.Add(sweepInterval)
	}

	if entry, held := g.entries[key]; held && entry.expiresAt.After(now) {
		return "", fmt.Errorf("lock %q: %w", key, domainErrors.ErrConcurrentOperation)
	}

	token := Token(uuid.NewString())
	g.entries[key] = memoryEntry{token: token, expiresAt: now.Add(ttl)}
	return token, nil
}

// Release frees the key when the fencing token matches the current holder.
func (g *MemoryGuard) Release(_ context.Context, key string, token Token) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	entry, held := g.entries[key]
	if !held || entry.token != token {
		return fmt.Errorf("lock %q: %w", key, ErrNotHeld)
	}
	delete(g.entries, key)
	return nil
}
