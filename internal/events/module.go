package events

import (
	"context"

	"go.uber.org/fx"
)

// Module provides the event publisher and ties it to the app lifecycle.
var Module = fx.Options(
	fx.Provide(NewPublisher),
	fx.Invoke(registerLifecycle),
)

func registerLifecycle(lc fx.Lifecycle, publisher *Publisher) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			publisher.Start()
			return nil
		},
		OnStop: func(context.Context) error {
			publisher.Stop()
			return nil
		},
	})
}
