package model

import "github.com/shopspring/decimal"

// Tier is an ordered reward level. Tiers are administrator-maintained
// reference data; the engine never modifies them.
type Tier struct {
	ID               string
	Name             string
	Rank             int
	MinLifetimeSpend decimal.Decimal
	Benefits         map[string]any
}
