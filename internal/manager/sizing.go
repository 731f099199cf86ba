package manager

import (
	"trade_engine/internal/models"
)

// Stop-width multipliers for strategy shapes that need breathing room:
// RSI with a deep oversold threshold and breakouts with a wide
// confirmation band both trigger further from the mean.
const (
	rsiWideStopFactor      = 1.5
	breakoutWideStopFactor = 1.25

	aggregateRiskHigh = 50.0
	aggregateRiskWarn = 25.0
)

// OptimalPositionSize sizes a position so that riskPct of the balance
// is lost if the stop is hit. Returns 0 when the pair has no known
// price yet.
func (m *Manager) OptimalPositionSize(st models.Strategy, balance, riskPct float64) float64 {
	px, ok := m.feed.LatestPrice(st.Pair)
	if !ok {
		return 0
	}
	dist := m.stopDistance(st, px)
	if dist <= 0 || riskPct <= 0 || balance <= 0 {
		return 0
	}
	return balance * riskPct / 100 / dist
}

// stopDistance is the configured stop width at the given price,
// adjusted for strategy shape. Wider stop means smaller size for the
// same risk budget.
func (m *Manager) stopDistance(st models.Strategy, px float64) float64 {
	pct := st.Params.StopLossPct
	if pct <= 0 {
		pct = m.cfg.StopLossPct
	}
	if pct <= 0 {
		return 0
	}
	return px * pct / 100 * stopWidthFactor(st)
}

func stopWidthFactor(st models.Strategy) float64 {
	switch st.Type {
	case models.StrategyRSI:
		if st.Params.Oversold > 0 && st.Params.Oversold < 25 {
			return rsiWideStopFactor
		}
	case models.StrategyBreakout:
		if st.Params.ThresholdPct > 3 {
			return breakoutWideStopFactor
		}
	}
	return 1
}

// SuggestPositionSize applies the portfolio risk rules to the
// strategy's requested risk and sizes from what survives: halve above
// aggregate risk 50, quarter off above 25, and scale down with the
// correlation ratio once it passes the configured threshold.
func (m *Manager) SuggestPositionSize(st models.Strategy, balance float64) float64 {
	m.mu.Lock()
	risk := m.suggestRiskPctLocked(st)
	m.mu.Unlock()
	return m.OptimalPositionSize(st, balance, risk)
}

func (m *Manager) suggestRiskPctLocked(st models.Strategy) float64 {
	risk := st.Params.RiskPct
	if risk <= 0 {
		risk = m.cfg.RiskPct
	}
	if risk <= 0 {
		risk = 1
	}

	agg := m.aggregateRiskLocked()
	switch {
	case agg > aggregateRiskHigh:
		risk *= 0.5
	case agg > aggregateRiskWarn:
		risk *= 0.75
	}

	threshold := m.cfg.CorrelationThreshold
	if threshold <= 0 {
		threshold = 0.7
	}
	if ratio := m.correlationRatioLocked(st.Pair); ratio > threshold {
		risk *= 1 - ratio/2
	}
	return risk
}

// aggregateRiskLocked is open exposure as a percentage of balance,
// leverage included.
func (m *Manager) aggregateRiskLocked() float64 {
	if m.balance <= 0 {
		return 0
	}
	var notional float64
	for _, p := range m.positions {
		lev := p.Leverage
		if lev < 1 {
			lev = 1
		}
		notional += p.Entry * p.Size * float64(lev)
	}
	return notional / m.balance * 100
}

// sizeEntryLocked resolves size and protective levels for a new entry.
func (m *Manager) sizeEntryLocked(st models.Strategy, side models.Side) (size, stop, take float64) {
	px, ok := m.feed.LatestPrice(st.Pair)
	if !ok {
		return 0, 0, 0
	}
	dist := m.stopDistance(st, px)
	if dist <= 0 {
		return 0, 0, 0
	}

	risk := m.suggestRiskPctLocked(st)
	size = m.balance * risk / 100 / dist

	takePct := st.Params.TakeProfitPct
	if takePct <= 0 {
		takePct = m.cfg.TakeProfitPct
	}

	if side == models.SideSell {
		stop = px + dist
		if takePct > 0 {
			take = px * (1 - takePct/100)
		}
	} else {
		stop = px - dist
		if takePct > 0 {
			take = px * (1 + takePct/100)
		}
	}
	return size, stop, take
}
