package manager

import (
	"fmt"

	"trade_engine/internal/models"
	"trade_engine/pkg/logger"
)

const dayLayout = "2006-01-02"

// rolloverDayLocked closes the day accumulator once per UTC date
// change; the ending balance carries forward as the new day's start.
func (m *Manager) rolloverDayLocked() {
	date := m.now().UTC().Format(dayLayout)
	if m.day.Date == date {
		return
	}
	m.day.EndBalance = m.balance
	logger.Info("manager: day %s closed: %d trades (%d/%d), pnl %.2f, balance %.2f -> %.2f",
		m.day.Date, m.day.Trades, m.day.Wins, m.day.Losses, m.day.PnL, m.day.StartBalance, m.day.EndBalance)
	m.day = models.DailyStats{
		Date:         date,
		StartBalance: m.balance,
	}
}

// breachedLocked evaluates the circuit breakers: realized daily loss
// against the day's starting balance and peak-to-current drawdown.
// Returns a human-readable reason, or "" when neither tripped.
func (m *Manager) breachedLocked() string {
	if m.cfg.MaxDailyLossPct > 0 && m.day.StartBalance > 0 {
		limit := m.day.StartBalance * m.cfg.MaxDailyLossPct / 100
		if loss := -m.day.PnL; loss > limit {
			return fmt.Sprintf("daily loss %.2f exceeds %.1f%% of starting balance %.2f", loss, m.cfg.MaxDailyLossPct, m.day.StartBalance)
		}
	}
	if m.cfg.MaxDrawdownPct > 0 && m.peak > 0 {
		dd := (m.peak - m.balance) / m.peak * 100
		if dd > m.cfg.MaxDrawdownPct {
			return fmt.Sprintf("drawdown %.1f%% exceeds %.1f%% from peak %.2f", dd, m.cfg.MaxDrawdownPct, m.peak)
		}
	}
	return ""
}
