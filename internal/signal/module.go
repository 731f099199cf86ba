package signal

import "go.uber.org/fx"

func Module() fx.Option {
	return fx.Module("signal",
		fx.Provide(NewGenerator),
	)
}
