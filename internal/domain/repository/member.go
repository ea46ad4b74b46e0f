package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/dmarkhas/loyaltycore/internal/domain/model"
)

// MemberRepository maintains the local member projection rows.
type MemberRepository interface {
	Get(ctx context.Context, id string) (*model.Member, error)

	// UpsertSpend records a refreshed lifetime spend figure. Lifetime
	// spend is monotonic: a figure below the stored one leaves the row
	// unchanged. Creates the projection row on first contact.
	UpsertSpend(ctx context.Context, id string, spend decimal.Decimal) (*model.Member, error)

	SetTier(ctx context.Context, id string, tierID string) error

	// SetIntegrityHold flips the flag that blocks automatic point
	// mutation for the member.
	SetIntegrityHold(ctx context.Context, id string, hold bool) error

	// ListRecentlyActive returns ids of members ordered by most recent
	// mutation, for the reconciliation sweep.
	ListRecentlyActive(ctx context.Context, limit int) ([]string, error)
}
