package backtest

import (
	"math"

	"trade_engine/internal/models"
)

// MaxDrawdown is the peak-to-trough decline of the cumulative PnL
// series built from the trade sequence.
func MaxDrawdown(pnls []float64) float64 {
	var cum, peak, maxDD float64
	for _, p := range pnls {
		cum += p
		if cum > peak {
			peak = cum
		}
		if dd := peak - cum; dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}

func computeMetrics(trades []models.ClosedTrade) models.BacktestMetrics {
	var m models.BacktestMetrics
	if len(trades) == 0 {
		return m
	}

	pnls := make([]float64, len(trades))
	var grossProfit, grossLoss, net float64
	var wins, losses int
	for i, t := range trades {
		pnls[i] = t.PnL
		net += t.PnL
		if t.PnL > 0 {
			grossProfit += t.PnL
			wins++
			if t.PnL > m.LargestWin {
				m.LargestWin = t.PnL
			}
		} else {
			grossLoss += -t.PnL
			losses++
			if t.PnL < m.LargestLoss {
				m.LargestLoss = t.PnL
			}
		}
	}

	if wins > 0 {
		m.AvgWin = grossProfit / float64(wins)
	}
	if losses > 0 {
		m.AvgLoss = -grossLoss / float64(losses)
	}

	// No losing trades: the ratio degenerates, report gross profit.
	if grossLoss > 0 {
		m.ProfitFactor = grossProfit / grossLoss
	} else {
		m.ProfitFactor = grossProfit
	}

	m.MaxDrawdown = MaxDrawdown(pnls)
	if m.MaxDrawdown > 0 {
		m.RecoveryFactor = net / m.MaxDrawdown
	}

	m.Volatility = stddev(pnls)
	if m.Volatility > 0 {
		mean := net / float64(len(pnls))
		m.SharpeRatio = mean / m.Volatility * math.Sqrt(float64(len(pnls)))
	}
	return m
}

func stddev(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var mean float64
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))

	var variance float64
	for _, x := range xs {
		d := x - mean
		variance += d * d
	}
	variance /= float64(len(xs))
	return math.Sqrt(variance)
}
