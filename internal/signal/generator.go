// Package signal maps a strategy plus a candle-history window to a
// discrete BUY/SELL/none decision. Signals fire on crossing events
// between the previous and current step, never on a level alone;
// breakout and candlestick strategies fire on the event itself since
// they are inherently discrete.
package signal

import (
	"fmt"

	"trade_engine/internal/models"
)

type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// Generate evaluates the strategy against the candle history. An
// unknown strategy type degrades to a none signal with a diagnostic
// reason; signal generation runs on every tick and must never abort
// the loop.
func (g *Generator) Generate(st models.Strategy, candles []models.Candle) models.Signal {
	history := filterPair(candles, st.Pair)

	need := RequiredLookback(st)
	if len(history) < need {
		return models.Signal{
			Pair:   st.Pair,
			Side:   models.SideNone,
			Reason: fmt.Sprintf("insufficient history: have %d candles, need %d", len(history), need),
		}
	}

	closes := make([]float64, len(history))
	for i, c := range history {
		closes[i] = c.Close
	}
	price := closes[len(closes)-1]

	var side models.Side
	var reason string

	switch st.Type {
	case models.StrategyMACrossover:
		side, reason = evalMACrossover(closes, st.Params)
	case models.StrategyRSI:
		side, reason = evalRSI(closes, st.Params)
	case models.StrategyMACD:
		side, reason = evalMACD(closes, st.Params)
	case models.StrategyBollinger:
		side, reason = evalBollinger(closes, st.Params)
	case models.StrategyIchimoku:
		side, reason = evalIchimoku(closes, st.Params)
	case models.StrategyBreakout:
		side, reason = evalBreakout(closes, st.Params)
	case models.StrategyCandlestick:
		side, reason = evalCandlestick(history, st.Params)
	case models.StrategyComposite:
		side, reason = g.evalComposite(st, candles)
	default:
		return models.Signal{
			Pair:   st.Pair,
			Side:   models.SideNone,
			Reason: fmt.Sprintf("unknown strategy type %q", st.Type),
		}
	}

	return models.Signal{Pair: st.Pair, Side: side, Price: price, Reason: reason}
}

// RequiredLookback is the minimum history length the strategy type
// needs before it can produce a meaningful value.
func RequiredLookback(st models.Strategy) int {
	p := st.Params
	switch st.Type {
	case models.StrategyMACrossover:
		return p.LongPeriod
	case models.StrategyRSI:
		return p.Period + 2
	case models.StrategyMACD:
		return p.SlowPeriod + p.SignalPeriod + 1
	case models.StrategyBollinger:
		return p.Period + 1
	case models.StrategyIchimoku:
		need := p.ConversionPeriod
		if p.BasePeriod > need {
			need = p.BasePeriod
		}
		if p.LaggingSpanPeriod > need {
			need = p.LaggingSpanPeriod
		}
		return need + 1
	case models.StrategyBreakout:
		return p.Lookback + 1
	case models.StrategyCandlestick:
		return 5
	case models.StrategyComposite:
		need := 0
		for _, sub := range p.SubStrategies {
			n := RequiredLookback(models.Strategy{Type: sub.Type, Params: sub.Params})
			if n > need {
				need = n
			}
		}
		return need
	default:
		return 1
	}
}

func filterPair(candles []models.Candle, pair string) []models.Candle {
	out := make([]models.Candle, 0, len(candles))
	for _, c := range candles {
		if c.Pair == "" || c.Pair == pair {
			out = append(out, c)
		}
	}
	return out
}
