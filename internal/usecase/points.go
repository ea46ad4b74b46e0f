package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmarkhas/loyaltycore/internal/config"
	domainErrors "github.com/dmarkhas/loyaltycore/internal/domain/errors"
	"github.com/dmarkhas/loyaltycore/internal/domain/model"
	"github.com/dmarkhas/loyaltycore/internal/domain/repository"
	"github.com/dmarkhas/loyaltycore/internal/lock"
)

// PointsUseCase encapsulates point ledger operations. Every mutation runs
// under the member's points lock so concurrent requests serialize instead of
// interleaving their batch reads and writes.
type PointsUseCase struct {
	ledger  repository.LedgerRepository
	members repository.MemberRepository
	guard   lock.Guard
	lockTTL time.Duration
	now     func() time.Time
}

// NewPointsUseCase constructs PointsUseCase.
func NewPointsUseCase(ledger repository.LedgerRepository, members repository.MemberRepository, guard lock.Guard, cfg *config.Config) *PointsUseCase {
	return &PointsUseCase{
		ledger:  ledger,
		members: members,
		guard:   guard,
		lockTTL: cfg.LockTTL,
		now:     time.Now,
	}
}

func (u *PointsUseCase) withMemberLock(ctx context.Context, memberID string, fn func() error) error {
	key := lock.PointsKey(memberID)
	token, err := u.guard.Acquire(ctx, key, u.lockTTL)
	if err != nil {
		return err
	}
	defer func() {
		// a lock past its TTL has already let go; nothing to do
		_ = u.guard.Release(ctx, key, token)
	}()
	return fn()
}

// Earn credits points backed by a new batch. A reference seen before makes
// the call an idempotent success returning the original transaction.
func (u *PointsUseCase) Earn(ctx context.Context, memberID string, points int64, expiresAt time.Time, reference string) (_ *model.PointsTransaction, err error) {
	ctx, span := tracer.Start(ctx, "points.earn", trace.WithAttributes(
		attribute.String("member.id", memberID),
		attribute.Int64("points", points),
	))
	defer func() { endSpan(span, err) }()

	if !expiresAt.After(u.now()) {
		return nil, fmt.Errorf("expiry %s is not in the future: %w", expiresAt.Format(time.RFC3339), domainErrors.ErrInvalidAmount)
	}

	var result *model.PointsTransaction
	err = u.withMemberLock(ctx, memberID, func() error {
		tx, err := u.ledger.AppendEarn(ctx, memberID, points, expiresAt, reference)
		if errors.Is(err, domainErrors.ErrDuplicateReference) {
			result = tx
			return nil
		}
		if err != nil {
			return err
		}
		result = tx
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Use redeems points against active batches in earliest-expiry order.
func (u *PointsUseCase) Use(ctx context.Context, memberID string, points int64, reference string) (_ *model.PointsTransaction, err error) {
	ctx, span := tracer.Start(ctx, "points.use", trace.WithAttributes(
		attribute.String("member.id", memberID),
		attribute.Int64("points", points),
	))
	defer func() { endSpan(span, err) }()

	var result *model.PointsTransaction
	err = u.withMemberLock(ctx, memberID, func() error {
		tx, err := u.ledger.AppendUse(ctx, memberID, points, reference)
		if err != nil {
			return err
		}
		result = tx
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Adjust applies an administrative correction to the member balance.
func (u *PointsUseCase) Adjust(ctx context.Context, memberID string, delta int64, reason string) (_ *model.PointsTransaction, err error) {
	ctx, span := tracer.Start(ctx, "points.adjust", trace.WithAttributes(
		attribute.String("member.id", memberID),
		attribute.Int64("points.delta", delta),
	))
	defer func() { endSpan(span, err) }()

	var result *model.PointsTransaction
	err = u.withMemberLock(ctx, memberID, func() error {
		tx, err := u.ledger.AppendAdjust(ctx, memberID, delta, reason)
		if err != nil {
			return err
		}
		result = tx
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ExpireBatch retires one overdue batch under the owning member's lock.
// Returns (nil, nil) when another sweep got there first.
func (u *PointsUseCase) ExpireBatch(ctx context.Context, batchID int64) (_ *model.PointsTransaction, err error) {
	ctx, span := tracer.Start(ctx, "points.expire_batch", trace.WithAttributes(
		attribute.Int64("batch.id", batchID),
	))
	defer func() { endSpan(span, err) }()

	batch, err := u.ledger.GetBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if batch.Status != model.BatchStatusActive || batch.PointsRemaining == 0 {
		return nil, nil
	}

	var result *model.PointsTransaction
	err = u.withMemberLock(ctx, batch.MemberID, func() error {
		tx, err := u.ledger.AppendExpire(ctx, batchID)
		if err != nil {
			return err
		}
		result = tx
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Balance returns the member's current point balance.
func (u *PointsUseCase) Balance(ctx context.Context, memberID string) (int64, error) {
	return u.ledger.GetBalance(ctx, memberID)
}

// ActiveBatches returns the member's live batches in consumption order.
func (u *PointsUseCase) ActiveBatches(ctx context.Context, memberID string) ([]model.PointsBatch, error) {
	return u.ledger.GetActiveBatches(ctx, memberID)
}

// Transactions returns the member ledger, most recent first.
func (u *PointsUseCase) Transactions(ctx context.Context, memberID string) ([]model.PointsTransaction, error) {
	return u.ledger.ListTransactions(ctx, memberID)
}

// ExpiredBatchCandidates lists batches overdue for expiry.
func (u *PointsUseCase) ExpiredBatchCandidates(ctx context.Context, limit int) ([]model.PointsBatch, error) {
	return u.ledger.SelectExpiredBatches(ctx, u.now(), limit)
}

// MembersForReconciliation lists recently mutated members for the sweep.
func (u *PointsUseCase) MembersForReconciliation(ctx context.Context, limit int) ([]string, error) {
	return u.members.ListRecentlyActive(ctx, limit)
}

// Reconcile recomputes the member balance from the full ledger and checks it
// against both the balance snapshot and the sum of active batch remainders.
// A mismatch places the member under an integrity hold and reports
// ErrDataIntegrity.
func (u *PointsUseCase) Reconcile(ctx context.Context, memberID string) (err error) {
	ctx, span := tracer.Start(ctx, "points.reconcile", trace.WithAttributes(
		attribute.String("member.id", memberID),
	))
	defer func() { endSpan(span, err) }()

	return u.withMemberLock(ctx, memberID, func() error {
		sum, err := u.ledger.SumDeltas(ctx, memberID)
		if err != nil {
			return err
		}
		snapshot, err := u.ledger.GetBalance(ctx, memberID)
		if err != nil {
			return err
		}
		batches, err := u.ledger.GetActiveBatches(ctx, memberID)
		if err != nil {
			return err
		}

		var remainders int64
		for _, b := range batches {
			remainders += b.PointsRemaining
		}

		if sum == snapshot && sum == remainders {
			return nil
		}

		if err := u.members.SetIntegrityHold(ctx, memberID, true); err != nil {
			return err
		}
		return fmt.Errorf("member %q: ledger sum %d, snapshot %d, batch remainders %d: %w",
			memberID, sum, snapshot, remainders, domainErrors.ErrDataIntegrity)
	})
}

// ReleaseHold lifts a member's integrity hold after manual correction.
func (u *PointsUseCase) ReleaseHold(ctx context.Context, memberID string) error {
	return u.withMemberLock(ctx, memberID, func() error {
		return u.members.SetIntegrityHold(ctx, memberID, false)
	})
}
