package main

import (
	"context"
	"log"

	"go.uber.org/fx"

	"trade_engine/internal/alert"
	"trade_engine/internal/bus"
	"trade_engine/internal/demo"
	"trade_engine/internal/exchange"
	"trade_engine/internal/feed"
	"trade_engine/internal/manager"
	"trade_engine/internal/modules/config"
	"trade_engine/internal/modules/health"
	"trade_engine/internal/modules/postgres"
	"trade_engine/internal/notify"
	"trade_engine/internal/sched"
	"trade_engine/internal/signal"
	"trade_engine/pkg/logger"
	"trade_engine/pkg/tracing"
)

func main() {
	if err := logger.Init(); err != nil {
		log.Fatal(err)
	}
	logger.SetServiceName("trade_engine")
	tracing.SetServiceName("trade_engine")

	app := fx.New(
		fx.Provide(
			func() context.Context { return context.Background() },
			func() sched.Factory { return sched.Wall },
			func(m *manager.Manager) notify.PositionLister { return m },
			func(m *manager.Manager) health.Trading { return m },
		),
		config.Module(),
		postgres.Module(),
		alert.Module(),
		exchange.Module(),
		feed.Module(),
		bus.Module(),
		signal.Module(),
		notify.Module(),
		manager.Module(),
		demo.Module(),
		health.Module(),
		fx.Invoke(func(lc fx.Lifecycle, cfg *config.Config) {
			_, closeTracer, err := tracing.InitTracer(tracing.Config{
				Host: cfg.Jaeger.Host,
				Port: cfg.Jaeger.Port,
			})
			if err != nil {
				logger.Warn("tracing disabled: %v", err)
				return
			}
			lc.Append(fx.Hook{
				OnStop: func(ctx context.Context) error {
					closeTracer()
					return nil
				},
			})
		}),
	)
	if err := app.Start(context.Background()); err != nil {
		log.Fatal(err)
	}
	<-app.Done()
	if err := app.Stop(context.Background()); err != nil {
		log.Fatal(err)
	}
}
