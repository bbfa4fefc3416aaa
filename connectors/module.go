package connectors

import (
	"context"

	"go.uber.org/fx"
)

// Module wires a pre-built Manager into an fx application. Hosts build
// their Registry (RegisterScope/RegisterConnector/Build) outside of fx,
// in their composition root, then supply the resulting *Manager here so
// the rest of the app can take it as a constructor dependency.
func Module(mgr *Manager) fx.Option {
	return fx.Module("connectors",
		fx.Supply(mgr),
		fx.Invoke(func(lc fx.Lifecycle) {
			lc.Append(fx.Hook{
				OnStop: func(ctx context.Context) error {
					mgr.Close()
					return nil
				},
			})
		}),
	)
}
