package exchange

import (
	"context"

	"go.uber.org/fx"

	"trade_engine/internal/modules/config"
	"trade_engine/pkg/logger"
)

// NewGateway picks the production client or the in-memory mock from
// config. Mock mode keeps the whole app runnable with no venue account.
func NewGateway(cfg *config.Config) Gateway {
	if cfg.Exchange.Mock {
		logger.Warn("exchange: mock mode, no real orders will be placed")
		return NewMock(cfg.BacktestInitialBalance)
	}
	return NewClient(ClientConfig{
		BaseURL:    cfg.Exchange.BaseURL,
		APIKey:     cfg.Exchange.APIKey,
		APISecret:  cfg.Exchange.APISecret,
		Passphrase: cfg.Exchange.Passphrase,
	})
}

// runWatcher keeps the account poll loop on the fx lifecycle so venue
// liquidation warnings and margin updates reach the bus in every mode,
// mock included.
func runWatcher(lc fx.Lifecycle, w *Watcher) {
	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				defer close(done)
				w.Run(runCtx)
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()
			select {
			case <-done:
			case <-ctx.Done():
			}
			return nil
		},
	})
}

func Module() fx.Option {
	return fx.Module("exchange",
		fx.Provide(
			NewGateway,
			NewWatcher,
		),
		fx.Invoke(runWatcher),
	)
}
