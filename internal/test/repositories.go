package test

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	domainErrors "github.com/dmarkhas/loyaltycore/internal/domain/errors"
	"github.com/dmarkhas/loyaltycore/internal/domain/model"
	"github.com/dmarkhas/loyaltycore/internal/lock"
)

// LedgerRepositoryStub allows tests to customize ledger behaviour.
type LedgerRepositoryStub struct {
	AppendEarnFn           func(context.Context, string, int64, time.Time, string) (*model.PointsTransaction, error)
	AppendUseFn            func(context.Context, string, int64, string) (*model.PointsTransaction, error)
	AppendExpireFn         func(context.Context, int64) (*model.PointsTransaction, error)
	AppendAdjustFn         func(context.Context, string, int64, string) (*model.PointsTransaction, error)
	GetActiveBatchesFn     func(context.Context, string) ([]model.PointsBatch, error)
	GetBalanceFn           func(context.Context, string) (int64, error)
	SumDeltasFn            func(context.Context, string) (int64, error)
	ListTransactionsFn     func(context.Context, string) ([]model.PointsTransaction, error)
	GetBatchFn             func(context.Context, int64) (*model.PointsBatch, error)
	SelectExpiredBatchesFn func(context.Context, time.Time, int) ([]model.PointsBatch, error)

	Batches      []model.PointsBatch
	Transactions []model.PointsTransaction
	Balance      int64

	ExpiredBatchIDs []int64
}

// AppendEarn returns a canned EARN entry unless overridden.
func (s *LedgerRepositoryStub) AppendEarn(ctx context.Context, memberID string, points int64, expiresAt time.Time, reference string) (*model.PointsTransaction, error) {
	if s.AppendEarnFn != nil {
		return s.AppendEarnFn(ctx, memberID, points, expiresAt, reference)
	}
	return &model.PointsTransaction{ID: 1, MemberID: memberID, Kind: model.TransactionKindEarn, PointsDelta: points, BalanceAfter: s.Balance + points, Reference: reference}, nil
}

// AppendUse returns a canned USE entry unless overridden.
func (s *LedgerRepositoryStub) AppendUse(ctx context.Context, memberID string, points int64, reference string) (*model.PointsTransaction, error) {
	if s.AppendUseFn != nil {
		return s.AppendUseFn(ctx, memberID, points, reference)
	}
	return &model.PointsTransaction{ID: 2, MemberID: memberID, Kind: model.TransactionKindUse, PointsDelta: -points, BalanceAfter: s.Balance - points, Reference: reference}, nil
}

// AppendExpire records the expired batch id.
func (s *LedgerRepositoryStub) AppendExpire(ctx context.Context, batchID int64) (*model.PointsTransaction, error) {
	if s.AppendExpireFn != nil {
		return s.AppendExpireFn(ctx, batchID)
	}
	s.ExpiredBatchIDs = append(s.ExpiredBatchIDs, batchID)
	return &model.PointsTransaction{ID: 3, Kind: model.TransactionKindExpire}, nil
}

// AppendAdjust returns a canned ADJUST entry unless overridden.
func (s *LedgerRepositoryStub) AppendAdjust(ctx context.Context, memberID string, delta int64, reason string) (*model.PointsTransaction, error) {
	if s.AppendAdjustFn != nil {
		return s.AppendAdjustFn(ctx, memberID, delta, reason)
	}
	return &model.PointsTransaction{ID: 4, MemberID: memberID, Kind: model.TransactionKindAdjust, PointsDelta: delta, BalanceAfter: s.Balance + delta, Reason: reason}, nil
}

// GetActiveBatches returns configured batches.
func (s *LedgerRepositoryStub) GetActiveBatches(ctx context.Context, memberID string) ([]model.PointsBatch, error) {
	if s.GetActiveBatchesFn != nil {
		return s.GetActiveBatchesFn(ctx, memberID)
	}
	return s.Batches, nil
}

// GetBalance returns the configured balance.
func (s *LedgerRepositoryStub) GetBalance(ctx context.Context, memberID string) (int64, error) {
	if s.GetBalanceFn != nil {
		return s.GetBalanceFn(ctx, memberID)
	}
	return s.Balance, nil
}

// SumDeltas defaults to the configured balance, i.e. a consistent ledger.
func (s *LedgerRepositoryStub) SumDeltas(ctx context.Context, memberID string) (int64, error) {
	if s.SumDeltasFn != nil {
		return s.SumDeltasFn(ctx, memberID)
	}
	return s.Balance, nil
}

// ListTransactions returns configured entries.
func (s *LedgerRepositoryStub) ListTransactions(ctx context.Context, memberID string) ([]model.PointsTransaction, error) {
	if s.ListTransactionsFn != nil {
		return s.ListTransactionsFn(ctx, memberID)
	}
	return s.Transactions, nil
}

// GetBatch searches configured batches.
func (s *LedgerRepositoryStub) GetBatch(ctx context.Context, batchID int64) (*model.PointsBatch, error) {
	if s.GetBatchFn != nil {
		return s.GetBatchFn(ctx, batchID)
	}
	for _, b := range s.Batches {
		if b.ID == batchID {
			batch := b
			return &batch, nil
		}
	}
	return nil, domainErrors.ErrNotFound
}

// SelectExpiredBatches returns configured batches.
func (s *LedgerRepositoryStub) SelectExpiredBatches(ctx context.Context, now time.Time, limit int) ([]model.PointsBatch, error) {
	if s.SelectExpiredBatchesFn != nil {
		return s.SelectExpiredBatchesFn(ctx, now, limit)
	}
	return s.Batches, nil
}

// MemberRepositoryStub stores member projections in-memory for tests.
type MemberRepositoryStub struct {
	GetFn              func(context.Context, string) (*model.Member, error)
	UpsertSpendFn      func(context.Context, string, decimal.Decimal) (*model.Member, error)
	SetTierFn          func(context.Context, string, string) error
	SetIntegrityHoldFn func(context.Context, string, bool) error

	Members map[string]*model.Member
	Recent  []string

	TierCalls []string
	HoldCalls []bool
}

// NewMemberRepositoryStub constructs stub repository with initialized map.
func NewMemberRepositoryStub() *MemberRepositoryStub {
	return &MemberRepositoryStub{Members: make(map[string]*model.Member)}
}

// Get fetches member by id or returns not found.
func (s *MemberRepositoryStub) Get(ctx context.Context, id string) (*model.Member, error) {
	if s.GetFn != nil {
		return s.GetFn(ctx, id)
	}
	if member, ok := s.Members[id]; ok {
		copied := *member
		return &copied, nil
	}
	return nil, domainErrors.ErrNotFound
}

// UpsertSpend applies the monotonic spend rule against the in-memory map.
func (s *MemberRepositoryStub) UpsertSpend(ctx context.Context, id string, spend decimal.Decimal) (*model.Member, error) {
	if s.UpsertSpendFn != nil {
		return s.UpsertSpendFn(ctx, id, spend)
	}
	if s.Members == nil {
		s.Members = make(map[string]*model.Member)
	}
	member, ok := s.Members[id]
	if !ok {
		member = &model.Member{ID: id, LifetimeSpend: spend}
		s.Members[id] = member
	} else if spend.GreaterThan(member.LifetimeSpend) {
		member.LifetimeSpend = spend
	}
	copied := *member
	return &copied, nil
}

// SetTier records the call and updates the map.
func (s *MemberRepositoryStub) SetTier(ctx context.Context, id string, tierID string) error {
	if s.SetTierFn != nil {
		return s.SetTierFn(ctx, id, tierID)
	}
	s.TierCalls = append(s.TierCalls, tierID)
	if s.Members == nil {
		s.Members = make(map[string]*model.Member)
	}
	member, ok := s.Members[id]
	if !ok {
		member = &model.Member{ID: id}
		s.Members[id] = member
	}
	member.TierID = tierID
	return nil
}

// SetIntegrityHold records the call and updates the map.
func (s *MemberRepositoryStub) SetIntegrityHold(ctx context.Context, id string, hold bool) error {
	if s.SetIntegrityHoldFn != nil {
		return s.SetIntegrityHoldFn(ctx, id, hold)
	}
	s.HoldCalls = append(s.HoldCalls, hold)
	if member, ok := s.Members[id]; ok {
		member.IntegrityHold = hold
		return nil
	}
	return domainErrors.ErrNotFound
}

// ListRecentlyActive returns the configured slice.
func (s *MemberRepositoryStub) ListRecentlyActive(ctx context.Context, limit int) ([]string, error) {
	if limit < len(s.Recent) {
		return s.Recent[:limit], nil
	}
	return s.Recent, nil
}

// TierChangeRepositoryStub records tier transitions. When Members is set it
// mirrors the tier flip into the member stub, like the real repository does
// within one transaction.
type TierChangeRepositoryStub struct {
	TransitionFn func(context.Context, string, string, string, model.TierChangeReason) (*model.TierChangeRecord, error)

	Members *MemberRepositoryStub
	Records []model.TierChangeRecord
	Next    int64
}

// Transition stores the record and updates the linked member stub unless
// overridden.
func (s *TierChangeRepositoryStub) Transition(ctx context.Context, memberID, oldTierID, newTierID string, reason model.TierChangeReason) (*model.TierChangeRecord, error) {
	if s.TransitionFn != nil {
		return s.TransitionFn(ctx, memberID, oldTierID, newTierID, reason)
	}
	if s.Members != nil {
		if err := s.Members.SetTier(ctx, memberID, newTierID); err != nil {
			return nil, err
		}
	}
	s.Next++
	record := model.TierChangeRecord{ID: s.Next, MemberID: memberID, OldTierID: oldTierID, NewTierID: newTierID, Reason: reason, ChangedAt: time.Now()}
	s.Records = append(s.Records, record)
	copied := record
	return &copied, nil
}

// ListByMember filters stored records.
func (s *TierChangeRepositoryStub) ListByMember(ctx context.Context, memberID string) ([]model.TierChangeRecord, error) {
	var out []model.TierChangeRecord
	for _, r := range s.Records {
		if r.MemberID == memberID {
			out = append(out, r)
		}
	}
	return out, nil
}

// GuardStub implements lock.Guard for tests, recording acquired keys.
type GuardStub struct {
	AcquireFn func(context.Context, string, time.Duration) (lock.Token, error)
	ReleaseFn func(context.Context, string, lock.Token) error

	mu       sync.Mutex
	Acquired []string
	Released []string
}

// Acquire records the key and returns a fixed token.
func (s *GuardStub) Acquire(ctx context.Context, key string, ttl time.Duration) (lock.Token, error) {
	if s.AcquireFn != nil {
		return s.AcquireFn(ctx, key, ttl)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Acquired = append(s.Acquired, key)
	return lock.Token("stub-token"), nil
}

// Release records the key.
func (s *GuardStub) Release(ctx context.Context, key string, token lock.Token) error {
	if s.ReleaseFn != nil {
		return s.ReleaseFn(ctx, key, token)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Released = append(s.Released, key)
	return nil
}
