package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// SpendUpdate carries a member's refreshed lifetime spend figure from the
// external spend-aggregation process.
type SpendUpdate struct {
	MemberID      string
	LifetimeSpend decimal.Decimal
	UpdatedAt     time.Time
}
