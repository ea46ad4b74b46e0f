package handlers

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dmarkhas/loyaltycore/internal/domain/model"
)

// PointsFacade encapsulates point ledger operations exposed via HTTP.
type PointsFacade interface {
	EarnPoints(ctx context.Context, memberID string, points int64, expiresAt time.Time, reference string) (*model.PointsTransaction, error)
	UsePoints(ctx context.Context, memberID string, points int64, reference string) (*model.PointsTransaction, error)
	AdjustPoints(ctx context.Context, memberID string, delta int64, reason string) (*model.PointsTransaction, error)
	Balance(ctx context.Context, memberID string) (int64, error)
	ActiveBatches(ctx context.Context, memberID string) ([]model.PointsBatch, error)
	Transactions(ctx context.Context, memberID string) ([]model.PointsTransaction, error)
	ReleaseHold(ctx context.Context, memberID string) error
}

// TierFacade provides tier evaluation operations.
type TierFacade interface {
	ApplySpend(ctx context.Context, memberID string, spend decimal.Decimal) (*model.Member, error)
	SetMemberTier(ctx context.Context, memberID, tierID string) (*model.TierChangeRecord, error)
	MemberTier(ctx context.Context, memberID string) (model.Tier, *model.Member, error)
	TierHistory(ctx context.Context, memberID string) ([]model.TierChangeRecord, error)
	Ladder() []model.Tier
}

// HealthFacade reports service readiness.
type HealthFacade interface {
	HealthCheck(ctx context.Context) error
}

// LoyaltyFacade aggregates the full set of operations used across handlers.
type LoyaltyFacade interface {
	PointsFacade
	TierFacade
	HealthFacade
}
