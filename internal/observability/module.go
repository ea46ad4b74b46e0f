package observability

import (
	"context"
	"log/slog"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"

	"github.com/dmarkhas/loyaltycore/internal/config"
)

// Module wires trace exporting into the fx runtime.
var Module = fx.Options(
	fx.Provide(newTracerProvider),
	fx.Invoke(registerLifecycle),
)

type tracerParams struct {
	fx.In

	Ctx    context.Context
	Config *config.Config
	Logger *slog.Logger
}

func newTracerProvider(p tracerParams) (*sdktrace.TracerProvider, error) {
	provider, err := NewTracerProvider(p.Ctx, p.Config)
	if err != nil {
		return nil, err
	}
	if provider == nil {
		p.Logger.Info("tracing disabled, no endpoint configured")
		return nil, nil
	}
	p.Logger.Info("tracing initialized", slog.String("endpoint", p.Config.TraceEndpoint))
	return provider, nil
}

func registerLifecycle(lc fx.Lifecycle, provider *sdktrace.TracerProvider) {
	if provider == nil {
		return
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return provider.Shutdown(ctx)
		},
	})
}
