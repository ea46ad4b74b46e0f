package dto

import "time"

// SpendRequest pushes a refreshed lifetime spend figure. The amount rides
// as a decimal string, never a float.
type SpendRequest struct {
	LifetimeSpend string `json:"lifetime_spend" binding:"required"`
}

// SetTierRequest applies a manual tier override.
type SetTierRequest struct {
	TierID string `json:"tier_id" binding:"required"`
}

// MemberTierResponse reports a member's resolved tier.
type MemberTierResponse struct {
	MemberID      string `json:"member_id"`
	TierID        string `json:"tier_id"`
	TierName      string `json:"tier_name"`
	Rank          int    `json:"rank"`
	LifetimeSpend string `json:"lifetime_spend"`
}

// TierChangeResponse mirrors one audit trail entry.
type TierChangeResponse struct {
	OldTierID string    `json:"old_tier_id"`
	NewTierID string    `json:"new_tier_id"`
	Reason    string    `json:"reason"`
	ChangedAt time.Time `json:"changed_at"`
}

// TierResponse mirrors one ladder entry.
type TierResponse struct {
	ID               string         `json:"id"`
	Name             string         `json:"name"`
	Rank             int            `json:"rank"`
	MinLifetimeSpend string         `json:"min_lifetime_spend"`
	Benefits         map[string]any `json:"benefits,omitempty"`
}
