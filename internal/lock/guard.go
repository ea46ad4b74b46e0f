// Package lock provides per-key mutual exclusion with fencing tokens.
//
// The guard serializes read-modify-write sequences per member; it is not a
// substitute for transactional storage. A holder that crashes simply lets
// the lock self-expire after its TTL.
package lock

import (
	"context"
	"errors"
	"time"
)

// Token is a fencing token issued on acquisition. Release succeeds only
// when presented with the token of the current holder, so a timed-out
// caller cannot release a lock it no longer owns.
type Token string

// ErrNotHeld reports a release with a stale or foreign token.
var ErrNotHeld = errors.New("lock not held with given token")

// Guard serializes operations per key across callers. Acquire fails fast
// with ErrConcurrentOperation when the key is held; there is no queueing,
// callers choose their own retry policy.
type Guard interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (Token, error)
	Release(ctx context.Context, key string, token Token) error
}

// Key namespaces protect unrelated mutations of the same member from
// contending: point operations and tier evaluation carry independent locks.
const (
	PointsKeyPrefix = "points:"
	TierKeyPrefix   = "tier:"
)

// PointsKey returns the lock key serializing point mutations for a member.
func PointsKey(memberID string) string {
	return PointsKeyPrefix + memberID
}

// TierKey returns the lock key serializing tier evaluation for a member.
func TierKey(memberID string) string {
	return TierKeyPrefix + memberID
}
