package test

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dmarkhas/loyaltycore/internal/domain/model"
)

// PointsFacadeStub provides controllable behaviour for points endpoints.
type PointsFacadeStub struct {
	EarnFn         func(context.Context, string, int64, time.Time, string) (*model.PointsTransaction, error)
	UseFn          func(context.Context, string, int64, string) (*model.PointsTransaction, error)
	AdjustFn       func(context.Context, string, int64, string) (*model.PointsTransaction, error)
	BalanceFn      func(context.Context, string) (int64, error)
	BatchesFn      func(context.Context, string) ([]model.PointsBatch, error)
	TransactionsFn func(context.Context, string) ([]model.PointsTransaction, error)
	ReleaseHoldFn  func(context.Context, string) error
}

// EarnPoints delegates to provided function or returns a default entry.
func (s PointsFacadeStub) EarnPoints(ctx context.Context, memberID string, points int64, expiresAt time.Time, reference string) (*model.PointsTransaction, error) {
	if s.EarnFn != nil {
		return s.EarnFn(ctx, memberID, points, expiresAt, reference)
	}
	return &model.PointsTransaction{
		ID:           1,
		MemberID:     memberID,
		Kind:         model.TransactionKindEarn,
		PointsDelta:  points,
		BalanceAfter: points,
		BatchRefs:    []model.BatchRef{{BatchID: 1, Points: points}},
		Reference:    reference,
	}, nil
}

// UsePoints delegates to provided function or returns a default entry.
func (s PointsFacadeStub) UsePoints(ctx context.Context, memberID string, points int64, reference string) (*model.PointsTransaction, error) {
	if s.UseFn != nil {
		return s.UseFn(ctx, memberID, points, reference)
	}
	return &model.PointsTransaction{
		ID:          2,
		MemberID:    memberID,
		Kind:        model.TransactionKindUse,
		PointsDelta: -points,
		BatchRefs:   []model.BatchRef{{BatchID: 1, Points: points}},
		Reference:   reference,
	}, nil
}

// AdjustPoints delegates to provided function or returns a default entry.
func (s PointsFacadeStub) AdjustPoints(ctx context.Context, memberID string, delta int64, reason string) (*model.PointsTransaction, error) {
	if s.AdjustFn != nil {
		return s.AdjustFn(ctx, memberID, delta, reason)
	}
	return &model.PointsTransaction{
		ID:          3,
		MemberID:    memberID,
		Kind:        model.TransactionKindAdjust,
		PointsDelta: delta,
		Reason:      reason,
	}, nil
}

// Balance returns the configured balance or a default value.
func (s PointsFacadeStub) Balance(ctx context.Context, memberID string) (int64, error) {
	if s.BalanceFn != nil {
		return s.BalanceFn(ctx, memberID)
	}
	return 100, nil
}

// ActiveBatches returns preconfigured batches.
func (s PointsFacadeStub) ActiveBatches(ctx context.Context, memberID string) ([]model.PointsBatch, error) {
	if s.BatchesFn != nil {
		return s.BatchesFn(ctx, memberID)
	}
	return []model.PointsBatch{{ID: 1, MemberID: memberID, PointsOriginal: 100, PointsRemaining: 100, Status: model.BatchStatusActive}}, nil
}

// Transactions returns preconfigured ledger history.
func (s PointsFacadeStub) Transactions(ctx context.Context, memberID string) ([]model.PointsTransaction, error) {
	if s.TransactionsFn != nil {
		return s.TransactionsFn(ctx, memberID)
	}
	return []model.PointsTransaction{{ID: 1, MemberID: memberID, Kind: model.TransactionKindEarn, PointsDelta: 100, BalanceAfter: 100}}, nil
}

// ReleaseHold executes the configured handler.
func (s PointsFacadeStub) ReleaseHold(ctx context.Context, memberID string) error {
	if s.ReleaseHoldFn != nil {
		return s.ReleaseHoldFn(ctx, memberID)
	}
	return nil
}

// TierFacadeStub simulates tier operations.
type TierFacadeStub struct {
	ApplySpendFn func(context.Context, string, decimal.Decimal) (*model.Member, error)
	SetTierFn    func(context.Context, string, string) (*model.TierChangeRecord, error)
	MemberTierFn func(context.Context, string) (model.Tier, *model.Member, error)
	HistoryFn    func(context.Context, string) ([]model.TierChangeRecord, error)
	Tiers        []model.Tier
}

// ApplySpend delegates to provided function or echoes the spend back.
func (s TierFacadeStub) ApplySpend(ctx context.Context, memberID string, spend decimal.Decimal) (*model.Member, error) {
	if s.ApplySpendFn != nil {
		return s.ApplySpendFn(ctx, memberID, spend)
	}
	return &model.Member{ID: memberID, TierID: "base", LifetimeSpend: spend}, nil
}

// SetMemberTier delegates to provided function or returns a manual record.
func (s TierFacadeStub) SetMemberTier(ctx context.Context, memberID, tierID string) (*model.TierChangeRecord, error) {
	if s.SetTierFn != nil {
		return s.SetTierFn(ctx, memberID, tierID)
	}
	return &model.TierChangeRecord{MemberID: memberID, OldTierID: "base", NewTierID: tierID, Reason: model.TierChangeReasonManual}, nil
}

// MemberTier returns the configured tier projection.
func (s TierFacadeStub) MemberTier(ctx context.Context, memberID string) (model.Tier, *model.Member, error) {
	if s.MemberTierFn != nil {
		return s.MemberTierFn(ctx, memberID)
	}
	return model.Tier{ID: "base", Name: "Base"}, &model.Member{ID: memberID, TierID: "base"}, nil
}

// TierHistory returns the preconfigured audit trail.
func (s TierFacadeStub) TierHistory(ctx context.Context, memberID string) ([]model.TierChangeRecord, error) {
	if s.HistoryFn != nil {
		return s.HistoryFn(ctx, memberID)
	}
	return []model.TierChangeRecord{{MemberID: memberID, OldTierID: "base", NewTierID: "silver", Reason: model.TierChangeReasonAutoUpgrade}}, nil
}

// Ladder returns the configured tier list.
func (s TierFacadeStub) Ladder() []model.Tier {
	if s.Tiers != nil {
		return s.Tiers
	}
	return []model.Tier{{ID: "base", Name: "Base"}}
}

// HealthFacadeStub reports a configurable health state.
type HealthFacadeStub struct {
	Err error
}

// HealthCheck returns the configured error.
func (s HealthFacadeStub) HealthCheck(ctx context.Context) error {
	return s.Err
}

// LoyaltyFacadeStub aggregates the handler stubs for router tests.
type LoyaltyFacadeStub struct {
	PointsFacadeStub
	TierFacadeStub
	HealthFacadeStub
}

// ExpiryFacadeStub mimics reaper interactions with the loyalty facade.
type ExpiryFacadeStub struct {
	Candidates      [][]model.PointsBatch
	CandidatesFn    func(context.Context, int) ([]model.PointsBatch, error)
	ExpireFn        func(context.Context, int64) (*model.PointsTransaction, error)
	Expired         []int64
	mu              sync.Mutex
	candidatesCalls int32
}

// Lock exposes internal mutex for external synchronization.
func (s *ExpiryFacadeStub) Lock() { s.mu.Lock() }

// Unlock releases previously acquired lock.
func (s *ExpiryFacadeStub) Unlock() { s.mu.Unlock() }

// ExpiredBatchCandidates returns batches from the configured queue.
func (s *ExpiryFacadeStub) ExpiredBatchCandidates(ctx context.Context, limit int) ([]model.PointsBatch, error) {
	if s.CandidatesFn != nil {
		return s.CandidatesFn(ctx, limit)
	}
	call := atomic.AddInt32(&s.candidatesCalls, 1)
	if int(call) <= len(s.Candidates) {
		return s.Candidates[call-1], nil
	}
	time.Sleep(10 * time.Millisecond)
	return nil, nil
}

// ExpireBatch records expired batch identifiers.
func (s *ExpiryFacadeStub) ExpireBatch(ctx context.Context, batchID int64) (*model.PointsTransaction, error) {
	if s.ExpireFn != nil {
		return s.ExpireFn(ctx, batchID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Expired = append(s.Expired, batchID)
	return &model.PointsTransaction{Kind: model.TransactionKindExpire, PointsDelta: -10}, nil
}

// ReconcileFacadeStub mimics reconciler interactions.
type ReconcileFacadeStub struct {
	Members     [][]string
	MembersFn   func(context.Context, int) ([]string, error)
	ReconcileFn func(context.Context, string) error
	Reconciled  []string
	mu          sync.Mutex
	memberCalls int32
}

// Lock exposes internal mutex for external synchronization.
func (s *ReconcileFacadeStub) Lock() { s.mu.Lock() }

// Unlock releases previously acquired lock.
func (s *ReconcileFacadeStub) Unlock() { s.mu.Unlock() }

// MembersForReconciliation returns member identifiers from the configured queue.
func (s *ReconcileFacadeStub) MembersForReconciliation(ctx context.Context, limit int) ([]string, error) {
	if s.MembersFn != nil {
		return s.MembersFn(ctx, limit)
	}
	call := atomic.AddInt32(&s.memberCalls, 1)
	if int(call) <= len(s.Members) {
		return s.Members[call-1], nil
	}
	time.Sleep(10 * time.Millisecond)
	return nil, nil
}

// ReconcileMember records audited member identifiers.
func (s *ReconcileFacadeStub) ReconcileMember(ctx context.Context, memberID string) error {
	if s.ReconcileFn != nil {
		return s.ReconcileFn(ctx, memberID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Reconciled = append(s.Reconciled, memberID)
	return nil
}

// TierSyncFacadeStub mimics spend feed polling.
type TierSyncFacadeStub struct {
	Updates      [][]model.SpendUpdate
	UpdatesFn    func(context.Context, time.Time) ([]model.SpendUpdate, error)
	ApplyFn      func(context.Context, string, decimal.Decimal) (*model.Member, error)
	Applied      []model.SpendUpdate
	mu           sync.Mutex
	updatesCalls int32
}

// Lock exposes internal mutex for external synchronization.
func (s *TierSyncFacadeStub) Lock() { s.mu.Lock() }

// Unlock releases previously acquired lock.
func (s *TierSyncFacadeStub) Unlock() { s.mu.Unlock() }

// SpendUpdates returns updates from the configured queue.
func (s *TierSyncFacadeStub) SpendUpdates(ctx context.Context, since time.Time) ([]model.SpendUpdate, error) {
	if s.UpdatesFn != nil {
		return s.UpdatesFn(ctx, since)
	}
	call := atomic.AddInt32(&s.updatesCalls, 1)
	if int(call) <= len(s.Updates) {
		return s.Updates[call-1], nil
	}
	time.Sleep(10 * time.Millisecond)
	return nil, nil
}

// ApplySpend records applied updates.
func (s *TierSyncFacadeStub) ApplySpend(ctx context.Context, memberID string, spend decimal.Decimal) (*model.Member, error) {
	if s.ApplyFn != nil {
		return s.ApplyFn(ctx, memberID, spend)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Applied = append(s.Applied, model.SpendUpdate{MemberID: memberID, LifetimeSpend: spend})
	return &model.Member{ID: memberID, LifetimeSpend: spend}, nil
}
