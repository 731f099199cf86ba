package backtest

import (
	"context"
	"time"

	"trade_engine/internal/models"
	"trade_engine/pkg/logger"
)

// Improve sweeps a small neighborhood of the strategy's parameters,
// re-running the backtest for each candidate. When a candidate beats
// the baseline's final balance, a new strategy record with a derived id
// is returned; the original is never mutated.
func (r *Runner) Improve(ctx context.Context, st models.Strategy, cfg Config) (*models.Strategy, *models.BacktestResult, error) {
	base, err := r.Run(ctx, st, cfg)
	if err != nil {
		return nil, nil, err
	}

	best := st
	bestRes := base
	for _, cand := range neighbors(st) {
		res, err := r.Run(ctx, cand, cfg)
		if err != nil {
			continue
		}
		if res.FinalBalance > bestRes.FinalBalance {
			best = cand
			bestRes = res
		}
	}

	if bestRes == base {
		logger.Info("improve %s: no candidate beat the baseline", st.ID)
		return nil, base, nil
	}

	perf := PerformanceFrom(bestRes)
	improved := best
	improved.ID = st.ID + "_improved"
	improved.Name = st.Name + " (improved)"
	improved.CreatedAt = time.Now().UTC()
	improved.Performance = &perf
	return &improved, bestRes, nil
}

// neighbors produces parameter variants around the strategy's main
// knobs, scaled by ±25%.
func neighbors(st models.Strategy) []models.Strategy {
	var out []models.Strategy
	add := func(mutate func(*models.StrategyParams)) {
		cand := st
		p := st.Params
		mutate(&p)
		cand.Params = p
		out = append(out, cand)
	}

	scaleInt := func(v int, f float64) int {
		n := int(float64(v) * f)
		if n < 1 {
			n = 1
		}
		return n
	}

	for _, f := range []float64{0.75, 1.25} {
		f := f
		switch st.Type {
		case models.StrategyMACrossover:
			add(func(p *models.StrategyParams) { p.ShortPeriod = scaleInt(p.ShortPeriod, f) })
			add(func(p *models.StrategyParams) { p.LongPeriod = scaleInt(p.LongPeriod, f) })
		case models.StrategyRSI, models.StrategyBollinger:
			add(func(p *models.StrategyParams) { p.Period = scaleInt(p.Period, f) })
		case models.StrategyMACD:
			add(func(p *models.StrategyParams) { p.FastPeriod = scaleInt(p.FastPeriod, f) })
			add(func(p *models.StrategyParams) { p.SlowPeriod = scaleInt(p.SlowPeriod, f) })
		case models.StrategyBreakout:
			add(func(p *models.StrategyParams) { p.Lookback = scaleInt(p.Lookback, f) })
			add(func(p *models.StrategyParams) { p.ThresholdPct = p.ThresholdPct * f })
		case models.StrategyIchimoku:
			add(func(p *models.StrategyParams) { p.ConversionPeriod = scaleInt(p.ConversionPeriod, f) })
		case models.StrategyCandlestick:
			add(func(p *models.StrategyParams) { p.MinStrength = p.MinStrength * f })
		}
	}
	return out
}
