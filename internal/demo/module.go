package demo

import (
	"context"

	"go.uber.org/fx"

	"trade_engine/internal/exchange"
	"trade_engine/internal/journal"
	"trade_engine/internal/modules/config"
	"trade_engine/internal/sched"
	"trade_engine/internal/signal"
)

func newFromConfig(cfg *config.Config, gw exchange.Gateway, gen *signal.Generator, rec journal.Recorder, tickers sched.Factory) *Runner {
	return NewRunner(gw, gen, rec, tickers, cfg.DemoPollInterval, cfg.BacktestInitialBalance)
}

func Module() fx.Option {
	return fx.Module("demo",
		fx.Provide(newFromConfig),
		fx.Invoke(func(lc fx.Lifecycle, cfg *config.Config, r *Runner) {
			if !cfg.Demo.Enabled {
				return
			}
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					return r.Start(cfg.Demo.Strategy)
				},
				OnStop: func(context.Context) error {
					r.Stop()
					return nil
				},
			})
		}),
	)
}
