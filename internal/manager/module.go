package manager

import (
	"context"

	"go.uber.org/fx"

	"trade_engine/internal/modules/config"
)

func NewConfigFrom(cfg *config.Config) Config {
	return Config{
		RiskPct:              cfg.RiskPct,
		StopLossPct:          cfg.StopLossPct,
		TakeProfitPct:        cfg.TakeProfitPct,
		TrailingStopPct:      cfg.TrailingStopPct,
		MaxPositions:         cfg.MaxPositions,
		MaxDailyLossPct:      cfg.MaxDailyLossPct,
		MaxDrawdownPct:       cfg.MaxDrawdownPct,
		CorrelationThreshold: cfg.CorrelationThreshold,
		UpdateInterval:       cfg.UpdateInterval,
		Leverage:             cfg.Leverage,
	}
}

func Module() fx.Option {
	return fx.Module("manager",
		fx.Provide(
			NewConfigFrom,
			New,
		),
		fx.Invoke(func(lc fx.Lifecycle, m *Manager, cfg *config.Config) error {
			for _, st := range cfg.Strategies {
				if err := m.AddStrategy(st); err != nil {
					return err
				}
			}
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					return m.Start(ctx)
				},
				OnStop: func(ctx context.Context) error {
					m.Stop()
					return nil
				},
			})
			return nil
		}),
	)
}
