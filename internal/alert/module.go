package alert

import "go.uber.org/fx"

func Module() fx.Option {
	return fx.Module("alert",
		fx.Provide(NewBook),
	)
}
