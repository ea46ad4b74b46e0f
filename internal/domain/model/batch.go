package model

import "time"

// BatchStatus describes the lifecycle of a points batch.
type BatchStatus string

const (
	BatchStatusActive    BatchStatus = "ACTIVE"
	BatchStatusExhausted BatchStatus = "EXHAUSTED"
	BatchStatusExpired   BatchStatus = "EXPIRED"
)

// PointsBatch is a chunk of points earned together, consumed and expired
// independently. Batches are never deleted; exhausted and expired batches
// stay for audit.
type PointsBatch struct {
	ID              int64
	MemberID        string
	PointsOriginal  int64
	PointsRemaining int64
	EarnedAt        time.Time
	ExpiresAt       time.Time
	Status          BatchStatus
}
