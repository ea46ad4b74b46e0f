package dto

import "time"

// EarnRequest credits points backed by a new batch.
type EarnRequest struct {
	Points    int64     `json:"points" binding:"required"`
	ExpiresAt time.Time `json:"expires_at" binding:"required"`
	Reference string    `json:"reference"`
}

// UseRequest redeems points.
type UseRequest struct {
	Points    int64  `json:"points" binding:"required"`
	Reference string `json:"reference"`
}

// AdjustRequest applies an administrative correction.
type AdjustRequest struct {
	Delta  int64  `json:"delta" binding:"required"`
	Reason string `json:"reason" binding:"required"`
}

// BatchRefResponse reports a draw from or credit to one batch.
type BatchRefResponse struct {
	BatchID int64 `json:"batch_id"`
	Points  int64 `json:"points"`
}

// TransactionResponse mirrors one ledger entry.
type TransactionResponse struct {
	ID           int64              `json:"id"`
	Kind         string             `json:"kind"`
	PointsDelta  int64              `json:"points_delta"`
	BalanceAfter int64              `json:"balance_after"`
	BatchRefs    []BatchRefResponse `json:"batch_refs"`
	Reference    string             `json:"reference,omitempty"`
	Reason       string             `json:"reason,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
}

// BalanceResponse reports the current point balance.
type BalanceResponse struct {
	MemberID string `json:"member_id"`
	Balance  int64  `json:"balance"`
}

// BatchResponse mirrors one active batch.
type BatchResponse struct {
	ID              int64     `json:"id"`
	PointsOriginal  int64     `json:"points_original"`
	PointsRemaining int64     `json:"points_remaining"`
	EarnedAt        time.Time `json:"earned_at"`
	ExpiresAt       time.Time `json:"expires_at"`
	Status          string    `json:"status"`
}
