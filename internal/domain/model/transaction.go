package model

import "time"

// TransactionKind classifies ledger entries.
type TransactionKind string

const (
	TransactionKindEarn   TransactionKind = "EARN"
	TransactionKindUse    TransactionKind = "USE"
	TransactionKindExpire TransactionKind = "EXPIRE"
	TransactionKindAdjust TransactionKind = "ADJUST"
)

// BatchRef records how many points a transaction drew from or added to a
// single batch. The order of refs within a transaction is the consumption
// order.
type BatchRef struct {
	BatchID int64 `json:"batch_id"`
	Points  int64 `json:"points"`
}

// PointsTransaction is an immutable ledger entry. PointsDelta is signed:
// positive for earn and positive adjustments, negative for use, expire and
// negative adjustments. BalanceAfter snapshots the member balance right
// after the entry committed.
type PointsTransaction struct {
	ID           int64
	MemberID     string
	Kind         TransactionKind
	PointsDelta  int64
	BalanceAfter int64
	BatchRefs    []BatchRef
	Reference    string
	Reason       string // set on adjustments only
	CreatedAt    time.Time
}
