package repository

import (
	"context"

	"github.com/dmarkhas/loyaltycore/internal/domain/model"
)

// TierChangeRepository stores the tier transition audit trail.
type TierChangeRepository interface {
	// Transition moves the member onto newTierID and appends the audit
	// record in the same transaction, so the projection row and the
	// trail cannot diverge.
	Transition(ctx context.Context, memberID, oldTierID, newTierID string, reason model.TierChangeReason) (*model.TierChangeRecord, error)

	ListByMember(ctx context.Context, memberID string) ([]model.TierChangeRecord, error)
}
