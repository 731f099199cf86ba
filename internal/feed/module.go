package feed

import (
	"context"

	"go.uber.org/fx"

	"trade_engine/internal/modules/config"
)

// NewFeed returns the websocket feed, or the in-process feed when
// running in mock mode or without a ws endpoint. The ws connect loop
// lives on the fx lifecycle.
func NewFeed(lc fx.Lifecycle, cfg *config.Config) Feed {
	if cfg.Exchange.Mock || cfg.Exchange.WSEndpoint == "" {
		return NewMemory()
	}

	ws := NewWS(cfg.Exchange.WSEndpoint)
	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				defer close(done)
				ws.Start(runCtx)
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
	return ws
}

func Module() fx.Option {
	return fx.Module("feed",
		fx.Provide(NewFeed),
	)
}
