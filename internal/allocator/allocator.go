// Package allocator plans which batches a consumption draws from.
//
// Consumption is FIFO by expiry: the batch closest to expiring is drained
// first, which minimizes the points a member loses to the reaper. The plan
// is deterministic — replaying the same batch state and request yields the
// same draws — so ledger replay reproduces identical batch_refs.
package allocator

import (
	"fmt"
	"sort"
	"time"

	domainErrors "github.com/dmarkhas/loyaltycore/internal/domain/errors"
	"github.com/dmarkhas/loyaltycore/internal/domain/model"
)

// Draw names one batch and the amount to deduct from it.
type Draw struct {
	BatchID int64
	Points  int64
}

// Eligible reports whether a batch may serve a consumption at the given
// instant. A batch past its expiry is logically dead even when the reaper
// has not swept it yet.
func Eligible(b model.PointsBatch, now time.Time) bool {
	return b.Status == model.BatchStatusActive &&
		b.PointsRemaining > 0 &&
		b.ExpiresAt.After(now)
}

// Order sorts batches in consumption order: expires_at ascending, ties
// broken by earned_at then id. The slice is sorted in place.
func Order(batches []model.PointsBatch) {
	sort.SliceStable(batches, func(i, j int) bool {
		a, b := batches[i], batches[j]
		if !a.ExpiresAt.Equal(b.ExpiresAt) {
			return a.ExpiresAt.Before(b.ExpiresAt)
		}
		if !a.EarnedAt.Equal(b.EarnedAt) {
			return a.EarnedAt.Before(b.EarnedAt)
		}
		return a.ID < b.ID
	})
}

// Plan selects draws covering the requested points from the given batches.
// Returns ErrInvalidAmount for non-positive requests and
// ErrInsufficientPoints when eligible batches cannot cover the request; in
// both cases no draws are returned, so callers mutate nothing.
func Plan(batches []model.PointsBatch, points int64, now time.Time) ([]Draw, error) {
	if points <= 0 {
		return nil, fmt.Errorf("requested %d points: %w", points, domainErrors.ErrInvalidAmount)
	}

	eligible := make([]model.PointsBatch, 0, len(batches))
	for _, b := range batches {
		if Eligible(b, now) {
			eligible = append(eligible, b)
		}
	}
	Order(eligible)

	remaining := points
	draws := make([]Draw, 0, len(eligible))
	for _, b := range eligible {
		if remaining == 0 {
			break
		}
		take := b.PointsRemaining
		if take > remaining {
			take = remaining
		}
		draws = append(draws, Draw{BatchID: b.ID, Points: take})
		remaining -= take
	}

	if remaining > 0 {
		return nil, fmt.Errorf("requested %d points, short by %d: %w", points, remaining, domainErrors.ErrInsufficientPoints)
	}
	return draws, nil
}
