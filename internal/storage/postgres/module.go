package postgres

import (
	"context"
	"log/slog"

	"go.uber.org/fx"

	"github.com/dmarkhas/loyaltycore/internal/config"
	"github.com/dmarkhas/loyaltycore/internal/domain/repository"
)

// Module wires PostgreSQL storage and repository adapters.
var Module = fx.Options(
	fx.Provide(newStorage),
	fx.Provide(
		func(s *Storage) repository.LedgerRepository { return s.Ledger() },
		func(s *Storage) repository.MemberRepository { return s.Members() },
		func(s *Storage) repository.TierChangeRepository { return s.TierChanges() },
	),
	fx.Invoke(registerLifecycle),
)

type storageParams struct {
	fx.In

	Ctx    context.Context
	Config *config.Config
	Logger *slog.Logger
}

func newStorage(p storageParams) (*Storage, error) {
	return New(p.Ctx, p.Config.DatabaseURI, p.Config.AdjustExpiryHorizon, p.Logger)
}

func registerLifecycle(lc fx.Lifecycle, storage *Storage) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			storage.Close()
			return nil
		},
	})
}
