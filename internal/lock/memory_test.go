package lock

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domainErrors "github.com/dmarkhas/loyaltycore/internal/domain/errors"
)

func TestMemoryGuardAcquireRelease(t *testing.T) {
	guard := NewMemoryGuard()
	ctx := context.Background()

	token, err := guard.Acquire(ctx, PointsKey("m-1"), time.Minute)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	_, err = guard.Acquire(ctx, PointsKey("m-1"), time.Minute)
	require.ErrorIs(t, err, domainErrors.ErrConcurrentOperation)

	require.NoError(t, guard.Release(ctx, PointsKey("m-1"), token))

	_, err = guard.Acquire(ctx, PointsKey("m-1"), time.Minute)
	require.NoError(t, err)
}

func TestMemoryGuardKeysAreIndependent(t *testing.T) {
	guard := NewMemoryGuard()
	ctx := context.Background()

	_, err := guard.Acquire(ctx, PointsKey("m-1"), time.Minute)
	require.NoError(t, err)

	_, err = guard.Acquire(ctx, PointsKey("m-2"), time.Minute)
	require.NoError(t, err)

	// tier namespace never contends with the points namespace
	_, err = guard.Acquire(ctx, TierKey("m-1"), time.Minute)
	require.NoError(t, err)
}

func TestMemoryGuardFencingToken(t *testing.T) {
	guard := NewMemoryGuard()
	ctx := context.Background()

	token, err := guard.Acquire(ctx, "k", time.Minute)
	require.NoError(t, err)

	err = guard.Release(ctx, "k", Token("stale"))
	require.ErrorIs(t, err, ErrNotHeld)

	require.NoError(t, guard.Release(ctx, "k", token))
	require.ErrorIs(t, guard.Release(ctx, "k", token), ErrNotHeld)
}

func TestMemoryGuardTTLExpiry(t *testing.T) {
	guard := NewMemoryGuard()
	current := time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)
	guard.now = func() time.Time { return current }
	ctx := context.Background()

	staleToken, err := guard.Acquire(ctx, "k", 30*time.Second)
	require.NoError(t, err)

	current = current.Add(time.Minute)

	token, err := guard.Acquire(ctx, "k", 30*time.Second)
	require.NoError(t, err)

	// the timed-out holder cannot release the lock it lost
	require.ErrorIs(t, guard.Release(ctx, "k", staleToken), ErrNotHeld)
	require.NoError(t, guard.Release(ctx, "k", token))
}

func TestMemoryGuardSweepsAbandonedEntries(t *testing.T) {
	guard := NewMemoryGuard()
	current := time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)
	guard.now = func() time.Time { return current }
	ctx := context.Background()

	// holders that time out and never come back
	for i := 0; i < 100; i++ {
		_, err := guard.Acquire(ctx, PointsKey(fmt.Sprintf("m-%d", i)), 30*time.Second)
		require.NoError(t, err)
	}

	current = current.Add(2 * time.Minute)

	_, err := guard.Acquire(ctx, PointsKey("fresh"), time.Minute)
	require.NoError(t, err)

	guard.mu.Lock()
	defer guard.mu.Unlock()
	require.Len(t, guard.entries, 1)
}

func TestMemoryGuardConcurrentAcquireGrantsOnce(t *testing.T) {
	guard := NewMemoryGuard()
	ctx := context.Background()

	const attempts = 32
	var wg sync.WaitGroup
	granted := make(chan Token, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if token, err := guard.Acquire(ctx, "k", time.Minute); err == nil {
				granted <- token
			}
		}()
	}
	wg.Wait()
	close(granted)

	var tokens []Token
	for token := range granted {
		tokens = append(tokens, token)
	}
	require.Len(t, tokens, 1)
}
