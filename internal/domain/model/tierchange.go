package model

import "time"

// TierChangeReason distinguishes automatic promotions from administrative
// overrides.
type TierChangeReason string

const (
	TierChangeReasonAutoUpgrade TierChangeReason = "AUTO_UPGRADE"
	TierChangeReasonManual      TierChangeReason = "MANUAL"
)

// TierChangeRecord is the audit trail of a tier transition.
type TierChangeRecord struct {
	ID        int64
	MemberID  string
	OldTierID string
	NewTierID string
	Reason    TierChangeReason
	ChangedAt time.Time
}
