package tiers

import (
	"go.uber.org/fx"

	"github.com/dmarkhas/loyaltycore/internal/config"
)

// Module loads the tier ladder from the configured file for fx graphs.
var Module = fx.Provide(func(cfg *config.Config) (*Set, error) {
	return Load(cfg.TiersFile)
})
