package journal

import (
	"context"

	"github.com/pkg/errors"

	"trade_engine/internal/models"
	"trade_engine/pkg/db"
)

// Postgres appends journal entries to the trade_journal table through
// the shared transaction manager. Insert-only; entries are never
// updated or deleted.
type Postgres struct {
	tm db.TxManager
}

func NewPostgres(tm db.TxManager) *Postgres {
	return &Postgres{tm: tm}
}

const insertEntry = `
INSERT INTO trade_journal
	(strategy_id, pair, action, side, size, price, fee, pnl, reason, at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

func (p *Postgres) Record(ctx context.Context, e models.TradeJournalEntry) error {
	err := p.tm.Run(ctx, func(ctxTx context.Context, tx db.Transaction) error {
		_, err := tx.Exec(ctxTx, insertEntry,
			e.StrategyID, e.Pair, string(e.Action), string(e.Side),
			e.Size, e.Price, e.Fee, e.PnL, e.Reason, e.At,
		)
		return err
	})
	return errors.Wrap(err, "record journal entry")
}

const selectEntries = `
SELECT strategy_id, pair, action, side, size, price, fee, pnl, reason, at
FROM trade_journal
ORDER BY at`

func (p *Postgres) Entries(ctx context.Context) ([]models.TradeJournalEntry, error) {
	rows, err := p.tm.Conn().Query(ctx, selectEntries)
	if err != nil {
		return nil, errors.Wrap(err, "query journal")
	}
	defer rows.Close()

	var out []models.TradeJournalEntry
	for rows.Next() {
		var e models.TradeJournalEntry
		var action, side string
		if err := rows.Scan(&e.StrategyID, &e.Pair, &action, &side,
			&e.Size, &e.Price, &e.Fee, &e.PnL, &e.Reason, &e.At); err != nil {
			return nil, errors.Wrap(err, "scan journal row")
		}
		e.Action = models.JournalAction(action)
		e.Side = models.PositionSide(side)
		out = append(out, e)
	}
	return out, rows.Err()
}
