package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"github.com/dmarkhas/loyaltycore/internal/config"
	"github.com/dmarkhas/loyaltycore/internal/worker"
)

// Module wires application services, runtime components, and lifecycle hooks.
var Module = fx.Options(
	fx.Provide(
		NewLoyaltyFacade,
		newHTTPServer,
		newExpiryReaper,
		newReconciler,
		newTierSync,
	),
	fx.Invoke(registerLifecycle),
)

type serverParams struct {
	fx.In

	Config *config.Config
	Router *gin.Engine
}

func newHTTPServer(p serverParams) *http.Server {
	return &http.Server{
		Addr:    p.Config.RunAddress,
		Handler: p.Router,
	}
}

type workerParams struct {
	fx.In

	Facade *LoyaltyFacade
	Config *config.Config
	Logger *slog.Logger
}

func newExpiryReaper(p workerParams) *worker.ExpiryReaper {
	return worker.NewExpiryReaper(
		p.Facade,
		p.Config.ReaperInterval,
		p.Config.ReaperBatchSize,
		p.Config.ReaperWorkers,
		p.Logger,
	)
}

func newReconciler(p workerParams) *worker.Reconciler {
	return worker.NewReconciler(
		p.Facade,
		p.Config.ReconcileInterval,
		p.Config.ReconcileBatchSize,
		p.Logger,
	)
}

func newTierSync(p workerParams) *worker.TierSync {
	return worker.NewTierSync(
		p.Facade,
		p.Config.SpendPollInterval,
		p.Logger,
	)
}

type lifecycleParams struct {
	fx.In

	Lifecycle  fx.Lifecycle
	Shutdowner fx.Shutdowner
	Logger     *slog.Logger
	Server     *http.Server
	Facade     *LoyaltyFacade
	Reaper     *worker.ExpiryReaper
	Reconciler *worker.Reconciler
	TierSync   *worker.TierSync
	Config     *config.Config
}

func registerLifecycle(p lifecycleParams) {
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			p.Logger.Info("starting loyaltycore", slog.String("addr", p.Server.Addr))
			p.Reaper.Start(ctx)
			p.Reconciler.Start(ctx)
			if p.Facade.HasSpendFeed() {
				p.TierSync.Start(ctx)
			}
			go func() {
				if err := p.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					p.Logger.Error("http server terminated", slog.String("error", err.Error()))
					_ = p.Shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if p.Facade.HasSpendFeed() {
				p.TierSync.Stop()
			}
			p.Reconciler.Stop()
			p.Reaper.Stop()

			shutdownCtx := ctx
			cancel := func() {}
			if _, ok := ctx.Deadline(); !ok {
				shutdownCtx, cancel = context.WithTimeout(ctx, p.Config.ShutdownTimeout)
			}
			defer cancel()

			if err := p.Server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			p.Logger.Info("loyaltycore stopped")
			return nil
		},
	})
}
