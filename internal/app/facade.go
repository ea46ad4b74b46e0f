package app

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dmarkhas/loyaltycore/internal/adapter/spendfeed"
	"github.com/dmarkhas/loyaltycore/internal/domain/model"
	"github.com/dmarkhas/loyaltycore/internal/usecase"
)

// HealthChecker reports storage availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// LoyaltyFacade is the single entry point handlers and workers talk to. It
// delegates to the points and tier use cases and to the spend feed client.
type LoyaltyFacade struct {
	points *usecase.PointsUseCase
	tiers  *usecase.TierUseCase
	feed   spendfeed.Client
	health HealthChecker
}

// NewLoyaltyFacade constructs the application facade. The spend feed client
// may be nil when no feed address is configured.
func NewLoyaltyFacade(points *usecase.PointsUseCase, tiers *usecase.TierUseCase, feed spendfeed.Client, health HealthChecker) *LoyaltyFacade {
	return &LoyaltyFacade{points: points, tiers: tiers, feed: feed, health: health}
}

func (f *LoyaltyFacade) EarnPoints(ctx context.Context, memberID string, points int64, expiresAt time.Time, reference string) (*model.PointsTransaction, error) {
	return f.points.Earn(ctx, memberID, points, expiresAt, reference)
}

func (f *LoyaltyFacade) UsePoints(ctx context.Context, memberID string, points int64, reference string) (*model.PointsTransaction, error) {
	return f.points.Use(ctx, memberID, points, reference)
}

func (f *LoyaltyFacade) AdjustPoints(ctx context.Context, memberID string, delta int64, reason string) (*model.PointsTransaction, error) {
	return f.points.Adjust(ctx, memberID, delta, reason)
}

func (f *LoyaltyFacade) Balance(ctx context.Context, memberID string) (int64, error) {
	return f.points.Balance(ctx, memberID)
}

func (f *LoyaltyFacade) ActiveBatches(ctx context.Context, memberID string) ([]model.PointsBatch, error) {
	return f.points.ActiveBatches(ctx, memberID)
}

func (f *LoyaltyFacade) Transactions(ctx context.Context, memberID string) ([]model.PointsTransaction, error) {
	return f.points.Transactions(ctx, memberID)
}

func (f *LoyaltyFacade) ReleaseHold(ctx context.Context, memberID string) error {
	return f.points.ReleaseHold(ctx, memberID)
}

func (f *LoyaltyFacade) ExpiredBatchCandidates(ctx context.Context, limit int) ([]model.PointsBatch, error) {
	return f.points.ExpiredBatchCandidates(ctx, limit)
}

func (f *LoyaltyFacade) ExpireBatch(ctx context.Context, batchID int64) (*model.PointsTransaction, error) {
	return f.points.ExpireBatch(ctx, batchID)
}

func (f *LoyaltyFacade) MembersForReconciliation(ctx context.Context, limit int) ([]string, error) {
	return f.points.MembersForReconciliation(ctx, limit)
}

func (f *LoyaltyFacade) ReconcileMember(ctx context.Context, memberID string) error {
	return f.points.Reconcile(ctx, memberID)
}

func (f *LoyaltyFacade) ApplySpend(ctx context.Context, memberID string, spend decimal.Decimal) (*model.Member, error) {
	return f.tiers.ApplySpend(ctx, memberID, spend)
}

func (f *LoyaltyFacade) SetMemberTier(ctx context.Context, memberID, tierID string) (*model.TierChangeRecord, error) {
	return f.tiers.SetTierManual(ctx, memberID, tierID)
}

func (f *LoyaltyFacade) MemberTier(ctx context.Context, memberID string) (model.Tier, *model.Member, error) {
	return f.tiers.CurrentTier(ctx, memberID)
}

func (f *LoyaltyFacade) TierHistory(ctx context.Context, memberID string) ([]model.TierChangeRecord, error) {
	return f.tiers.History(ctx, memberID)
}

func (f *LoyaltyFacade) Ladder() []model.Tier {
	return f.tiers.Ladder()
}

// HasSpendFeed reports whether a spend feed client is configured.
func (f *LoyaltyFacade) HasSpendFeed() bool {
	return f.feed != nil
}

func (f *LoyaltyFacade) SpendUpdates(ctx context.Context, since time.Time) ([]model.SpendUpdate, error) {
	if f.feed == nil {
		return nil, nil
	}
	return f.feed.Updates(ctx, since)
}

func (f *LoyaltyFacade) HealthCheck(ctx context.Context) error {
	return f.health.HealthCheck(ctx)
}
