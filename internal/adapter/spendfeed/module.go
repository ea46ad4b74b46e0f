package spendfeed

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/dmarkhas/loyaltycore/internal/config"
)

// Module exposes the spend feed client to the fx graph. A nil Client means
// no feed is configured and tier synchronization stays idle.
var Module = fx.Provide(newClient)

type clientParams struct {
	fx.In

	Config *config.Config
	Logger *slog.Logger
}

func newClient(p clientParams) (Client, error) {
	if p.Config.SpendFeedAddress == "" {
		p.Logger.Info("spend feed address not configured, tier sync disabled")
		return nil, nil
	}
	return NewHTTPClient(p.Config.SpendFeedAddress, p.Logger)
}
