package postgres

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/fx"

	"trade_engine/internal/journal"
	"trade_engine/internal/modules/config"
	"trade_engine/pkg/db"
	"trade_engine/pkg/logger"
)

// NewRecorder provides the trade journal sink: postgres when a DSN is
// configured, in-memory otherwise.
func NewRecorder(lc fx.Lifecycle, cfg *config.Config) (journal.Recorder, error) {
	if cfg.DB == "" {
		logger.Warn("journal: no database configured, entries are kept in memory only")
		return journal.NewMemory(), nil
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, db.PoolConfig{DSN: cfg.DB})
	if err != nil {
		return nil, errors.Wrap(err, "create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, errors.Wrap(err, "ping database")
	}

	tm := db.NewPgTxManager(pool)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			tm.Close()
			return nil
		},
	})
	return journal.NewPostgres(tm), nil
}

func Module() fx.Option {
	return fx.Module("postgres",
		fx.Provide(
			NewRecorder,
		),
	)
}
