package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Member is the local projection of a loyalty participant. The profile
// service owns the member record; this subsystem tracks only the fields the
// points and tier engine mutates.
type Member struct {
	ID            string
	TierID        string
	LifetimeSpend decimal.Decimal
	IntegrityHold bool
	UpdatedAt     time.Time
}
