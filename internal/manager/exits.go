package manager

import (
	"context"

	"trade_engine/internal/models"
	"trade_engine/pkg/logger"
)

// Liquidation warnings closer than this fraction force an immediate
// close, bypassing the normal exit rules.
const liquidationDistance = 0.05

func (m *Manager) onTick(t models.Tick) {
	// Price alerts are independent of positions and service state.
	if m.alerts != nil {
		for _, a := range m.alerts.Check(t.Pair, t.Price) {
			m.notifier.Sendf("price alert: %s %s %.5f (price %.5f)", a.Pair, a.Direction, a.Threshold, t.Price)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return
	}
	for id, pos := range m.positions {
		if pos.Symbol == t.Pair {
			m.manageExitLocked(context.Background(), id, pos, t.Price)
		}
	}
}

// manageExitLocked remarks the position, advances the trailing stop,
// and closes on a breached stop-loss, take-profit, or trailing stop.
// Stop-loss wins when several trigger at once.
func (m *Manager) manageExitLocked(ctx context.Context, id string, pos *models.Position, px float64) {
	pos.Mark = px
	pos.PnL = pos.Unrealized(px)

	m.advanceTrailingLocked(id, pos, px)

	long := pos.Side == models.PositionLong
	switch {
	case pos.StopLoss > 0 && (long && px <= pos.StopLoss || !long && px >= pos.StopLoss):
		m.closeLocked(ctx, id, pos, px, "stop loss")
	case pos.TakeProfit > 0 && (long && px >= pos.TakeProfit || !long && px <= pos.TakeProfit):
		m.closeLocked(ctx, id, pos, px, "take profit")
	case pos.TrailingStop > 0 && (long && px <= pos.TrailingStop || !long && px >= pos.TrailingStop):
		m.closeLocked(ctx, id, pos, px, "trailing stop")
	}
}

// advanceTrailingLocked moves the trailing stop off a new high-water
// mark. It only moves in the position's favor and only once the
// position is in profit.
func (m *Manager) advanceTrailingLocked(id string, pos *models.Position, px float64) {
	st, ok := m.strategies[id]
	pct := m.cfg.TrailingStopPct
	if ok && st.Params.TrailingStopPct > 0 {
		pct = st.Params.TrailingStopPct
	}
	if pct <= 0 {
		return
	}
	if pos.PnL <= 0 || !pos.Favorable(px) {
		return
	}

	pos.HighWaterMark = px
	if pos.Side == models.PositionLong {
		if candidate := px * (1 - pct/100); candidate > pos.TrailingStop {
			pos.TrailingStop = candidate
		}
	} else {
		if candidate := px * (1 + pct/100); pos.TrailingStop == 0 || candidate < pos.TrailingStop {
			pos.TrailingStop = candidate
		}
	}
}

// closeLocked realizes the position through the gateway. A failed close
// order leaves the position open; it will be retried on the next tick.
func (m *Manager) closeLocked(ctx context.Context, id string, pos *models.Position, px float64, reason string) {
	orderSide := models.OrderSell
	if pos.Side == models.PositionShort {
		orderSide = models.OrderBuy
	}
	if _, err := m.gw.PlaceOrder(ctx, pos.Symbol, orderSide, models.OrderMarket, pos.Size, 0); err != nil {
		logger.Error("manager: close order for %s failed: %v", id, err)
		m.notifier.Sendf("close order failed for %s on %s: %v", id, pos.Symbol, err)
		return
	}

	pnl := pos.Unrealized(px)
	pos.Mark = px
	pos.PnL = pnl
	pos.Status = models.PositionClosed
	pos.ClosedAt = m.now().UTC()
	delete(m.positions, id)

	m.balance += pnl
	if m.balance > m.peak {
		m.peak = m.balance
	}
	m.day.Trades++
	m.day.PnL += pnl
	if pnl > 0 {
		m.day.Wins++
	} else {
		m.day.Losses++
	}

	m.record(ctx, models.TradeJournalEntry{
		StrategyID: id,
		Pair:       pos.Symbol,
		Action:     models.JournalClose,
		Side:       pos.Side,
		Size:       pos.Size,
		Price:      px,
		PnL:        pnl,
		Reason:     reason,
		At:         pos.ClosedAt,
	})
	m.events.PositionUpdates.Publish(*pos)
	m.notifier.Sendf("closed %s %s at %.4f, pnl %.2f (%s)", pos.Side, pos.Symbol, px, pnl, reason)
	logger.Info("manager: closed %s for %s at %.4f, pnl %.2f (%s)", pos.Symbol, id, px, pnl, reason)
}

func (m *Manager) onLiquidationWarning(w models.LiquidationWarning) {
	if w.Distance >= liquidationDistance {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return
	}
	for id, pos := range m.positions {
		if pos.Symbol != w.Pair {
			continue
		}
		px, ok := m.feed.LatestPrice(pos.Symbol)
		if !ok {
			px = pos.Mark
		}
		logger.Warn("manager: liquidation distance %.3f on %s, force-closing %s", w.Distance, w.Pair, id)
		m.closeLocked(context.Background(), id, pos, px, "liquidation risk")
	}
}
