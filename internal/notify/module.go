package notify

import (
	"context"

	"go.uber.org/fx"

	"trade_engine/internal/modules/config"
	"trade_engine/pkg/logger"
)

// NewNotifier picks telegram when a token is configured, otherwise the
// stdout fallback. A telegram failure degrades instead of aborting
// startup.
func NewNotifier(cfg *config.Config) Notifier {
	if cfg.Telegram.Token == "" {
		return NewStdout()
	}
	t, err := NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID, nil)
	if err != nil {
		logger.Error("notify: telegram init failed, falling back to stdout: %v", err)
		return NewStdout()
	}
	return t
}

func Module() fx.Option {
	return fx.Module("notify",
		fx.Provide(NewNotifier),
		fx.Invoke(func(lc fx.Lifecycle, n Notifier, positions PositionLister) {
			t, ok := n.(*Telegram)
			if !ok {
				return
			}
			t.SetPositions(positions)

			runCtx, cancel := context.WithCancel(context.Background())
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					return t.Start(runCtx)
				},
				OnStop: func(ctx context.Context) error {
					cancel()
					t.Stop()
					return nil
				},
			})
		}),
	)
}
