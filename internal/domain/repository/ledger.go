package repository

import (
	"context"
	"time"

	"github.com/dmarkhas/loyaltycore/internal/domain/model"
)

// LedgerRepository owns the append-only points ledger: PointsTransaction and
// PointsBatch rows. Every Append* call is atomic with respect to storage;
// batch mutation and transaction insert commit together or not at all.
// Callers serialize Append* per member through the concurrency guard.
type LedgerRepository interface {
	// AppendEarn creates one new active batch plus one EARN transaction.
	// A repeated (memberID, reference) pair returns the prior transaction
	// together with ErrDuplicateReference instead of inserting anything.
	AppendEarn(ctx context.Context, memberID string, points int64, expiresAt time.Time, reference string) (*model.PointsTransaction, error)

	// AppendUse consumes points from active batches in earliest-expiry
	// order and records one USE transaction. Fails with
	// ErrInsufficientPoints without touching any batch when eligible
	// batches cannot cover the request.
	AppendUse(ctx context.Context, memberID string, points int64, reference string) (*model.PointsTransaction, error)

	// AppendExpire zeroes the batch remainder, marks it EXPIRED and
	// records one EXPIRE transaction. Returns (nil, nil) when the batch
	// is already exhausted or expired.
	AppendExpire(ctx context.Context, batchID int64) (*model.PointsTransaction, error)

	// AppendAdjust records an administrative correction. Positive deltas
	// create an adjustment batch; negative deltas consume batches like a
	// use and fail with ErrInsufficientPoints when they would drive the
	// balance negative.
	AppendAdjust(ctx context.Context, memberID string, delta int64, reason string) (*model.PointsTransaction, error)

	// GetActiveBatches returns batches with ACTIVE status ordered by
	// expires_at, then earned_at, then id ascending.
	GetActiveBatches(ctx context.Context, memberID string) ([]model.PointsBatch, error)

	// GetBalance reads the balance_after snapshot of the member's most
	// recent transaction. Members without transactions have balance zero.
	GetBalance(ctx context.Context, memberID string) (int64, error)

	// SumDeltas recomputes the balance from scratch by summing every
	// transaction delta. Used by reconciliation only.
	SumDeltas(ctx context.Context, memberID string) (int64, error)

	// ListTransactions returns the member ledger, most recent first.
	ListTransactions(ctx context.Context, memberID string) ([]model.PointsTransaction, error)

	// GetBatch fetches a single batch regardless of status.
	GetBatch(ctx context.Context, batchID int64) (*model.PointsBatch, error)

	// SelectExpiredBatches lists still-active batches whose expiry passed
	// and which still hold points, earliest expiry first.
	SelectExpiredBatches(ctx context.Context, now time.Time, limit int) ([]model.PointsBatch, error)
}
