package di

import (
	"github.com/dmarkhas/loyaltycore/internal/adapter/spendfeed"
	"github.com/dmarkhas/loyaltycore/internal/app"
	"github.com/dmarkhas/loyaltycore/internal/config"
	"github.com/dmarkhas/loyaltycore/internal/events"
	"github.com/dmarkhas/loyaltycore/internal/lock"
	"github.com/dmarkhas/loyaltycore/internal/logger"
	"github.com/dmarkhas/loyaltycore/internal/observability"
	"github.com/dmarkhas/loyaltycore/internal/pkg/adminauth"
	"github.com/dmarkhas/loyaltycore/internal/server/http/handlers"
	"github.com/dmarkhas/loyaltycore/internal/server/http/router"
	"github.com/dmarkhas/loyaltycore/internal/storage/postgres"
	"github.com/dmarkhas/loyaltycore/internal/tiers"
	"github.com/dmarkhas/loyaltycore/internal/usecase"
	"go.uber.org/fx"
)

func Module(opts ...fx.Option) fx.Option {
	modules := []fx.Option{
		config.Module,
		logger.Module,
		observability.Module,
		postgres.Module,
		lock.Module,
		tiers.Module,
		events.Module,
		adminauth.Module,
		spendfeed.Module,
		usecase.Module,
		fx.Provide(func(s *postgres.Storage) app.HealthChecker { return s }),
		fx.Provide(func(f *app.LoyaltyFacade) handlers.LoyaltyFacade { return f }),
		router.Module,
		app.Module,
	}
	modules = append(modules, opts...)
	return fx.Options(modules...)
}
