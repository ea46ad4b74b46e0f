package handlers

import (
	"errors"
	"net/http"

	domainErrors "github.com/dmarkhas/loyaltycore/internal/domain/errors"
	"github.com/dmarkhas/loyaltycore/internal/domain/model"
	"github.com/dmarkhas/loyaltycore/internal/server/http/dto"
)

// statusFromError maps domain failures onto HTTP status codes shared by the
// points and tier handlers.
func statusFromError(err error) int {
	switch {
	case errors.Is(err, domainErrors.ErrInvalidAmount):
		return http.StatusBadRequest
	case errors.Is(err, domainErrors.ErrInsufficientPoints):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domainErrors.ErrConcurrentOperation):
		return http.StatusConflict
	case errors.Is(err, domainErrors.ErrIntegrityHold):
		return http.StatusLocked
	case errors.Is(err, domainErrors.ErrNotFound), errors.Is(err, domainErrors.ErrUnknownTier):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func transactionResponse(tx *model.PointsTransaction) dto.TransactionResponse {
	refs := make([]dto.BatchRefResponse, 0, len(tx.BatchRefs))
	for _, ref := range tx.BatchRefs {
		refs = append(refs, dto.BatchRefResponse{BatchID: ref.BatchID, Points: ref.Points})
	}
	return dto.TransactionResponse{
		ID:           tx.ID,
		Kind:         string(tx.Kind),
		PointsDelta:  tx.PointsDelta,
		BalanceAfter: tx.BalanceAfter,
		BatchRefs:    refs,
		Reference:    tx.Reference,
		Reason:       tx.Reason,
		CreatedAt:    tx.CreatedAt,
	}
}

func batchResponse(batch model.PointsBatch) dto.BatchResponse {
	return dto.BatchResponse{
		ID:              batch.ID,
		PointsOriginal:  batch.PointsOriginal,
		PointsRemaining: batch.PointsRemaining,
		EarnedAt:        batch.EarnedAt,
		ExpiresAt:       batch.ExpiresAt,
		Status:          string(batch.Status),
	}
}

func tierResponse(tier model.Tier) dto.TierResponse {
	return dto.TierResponse{
		ID:               tier.ID,
		Name:             tier.Name,
		Rank:             tier.Rank,
		MinLifetimeSpend: tier.MinLifetimeSpend.String(),
		Benefits:         tier.Benefits,
	}
}
