package lock

import (
	"fmt"

	"go.uber.org/fx"

	"github.com/dmarkhas/loyaltycore/internal/config"
	"github.com/dmarkhas/loyaltycore/internal/storage/postgres"
)

// Module selects the guard implementation from configuration.
var Module = fx.Provide(func(cfg *config.Config, storage *postgres.Storage) (Guard, error) {
	switch cfg.LockBackend {
	case config.LockBackendMemory:
		return NewMemoryGuard(), nil
	case config.LockBackendPostgres:
		return NewPostgresGuard(storage.Pool()), nil
	default:
		return nil, fmt.Errorf("unknown lock backend %q", cfg.LockBackend)
	}
})
