package signal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade_engine/internal/models"
)

func candlesFromCloses(pair string, closes ...float64) []models.Candle {
	out := make([]models.Candle, len(closes))
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		out[i] = models.Candle{
			Pair:  pair,
			Open:  c,
			High:  c,
			Low:   c,
			Close: c,
			Time:  base.Add(time.Duration(i) * time.Minute),
		}
	}
	return out
}

func TestMACrossoverFiresOnce(t *testing.T) {
	g := NewGenerator()
	st := models.Strategy{
		Type: models.StrategyMACrossover,
		Pair: "BTC-USDT",
		Params: models.StrategyParams{
			ShortPeriod: 2,
			LongPeriod:  4,
		},
	}
	candles := candlesFromCloses("BTC-USDT", 1, 2, 3, 4, 5, 10)

	var buySteps []int
	for i := 1; i <= len(candles); i++ {
		sig := g.Generate(st, candles[:i])
		if sig.Side == models.SideBuy {
			buySteps = append(buySteps, i)
		}
	}
	// Fires exactly when the 2-period SMA first exceeds the 4-period
	// SMA (first step both are computable), never again while it stays
	// above.
	assert.Equal(t, []int{4}, buySteps)
}

func TestGenerateInsufficientHistory(t *testing.T) {
	g := NewGenerator()
	st := models.Strategy{
		Type:   models.StrategyMACrossover,
		Pair:   "BTC-USDT",
		Params: models.StrategyParams{ShortPeriod: 2, LongPeriod: 4},
	}
	sig := g.Generate(st, candlesFromCloses("BTC-USDT", 1, 2))
	assert.Equal(t, models.SideNone, sig.Side)
	assert.Contains(t, sig.Reason, "insufficient history")
}

func TestGenerateUnknownType(t *testing.T) {
	g := NewGenerator()
	st := models.Strategy{Type: "martingale", Pair: "BTC-USDT"}
	sig := g.Generate(st, candlesFromCloses("BTC-USDT", 1, 2, 3))
	assert.Equal(t, models.SideNone, sig.Side)
	assert.Contains(t, sig.Reason, "unknown strategy type")
}

func TestGenerateFiltersPair(t *testing.T) {
	g := NewGenerator()
	st := models.Strategy{
		Type:   models.StrategyMACrossover,
		Pair:   "BTC-USDT",
		Params: models.StrategyParams{ShortPeriod: 2, LongPeriod: 4},
	}
	// Plenty of candles, all for a different pair.
	sig := g.Generate(st, candlesFromCloses("ETH-USDT", 1, 2, 3, 4, 5, 10))
	assert.Equal(t, models.SideNone, sig.Side)
	assert.Contains(t, sig.Reason, "insufficient history")
}

func TestRSICrossUpFromOversold(t *testing.T) {
	g := NewGenerator()
	st := models.Strategy{
		Type: models.StrategyRSI,
		Pair: "BTC-USDT",
		Params: models.StrategyParams{
			Period:     2,
			Oversold:   30,
			Overbought: 70,
		},
	}
	// Falling prices push RSI to 0; the bounce lifts it back through
	// the oversold level.
	sig := g.Generate(st, candlesFromCloses("BTC-USDT", 10, 9, 8, 7, 6, 7.5))
	assert.Equal(t, models.SideBuy, sig.Side)
	assert.Contains(t, sig.Reason, "oversold")
}

func TestRSINoSignalOnLevelAlone(t *testing.T) {
	g := NewGenerator()
	st := models.Strategy{
		Type: models.StrategyRSI,
		Pair: "BTC-USDT",
		Params: models.StrategyParams{
			Period:     2,
			Oversold:   30,
			Overbought: 70,
		},
	}
	// RSI stays pinned at 100 across both steps: no crossing.
	sig := g.Generate(st, candlesFromCloses("BTC-USDT", 1, 2, 3, 4, 5, 6))
	assert.Equal(t, models.SideNone, sig.Side)
}

func TestMACDHistogramFlip(t *testing.T) {
	g := NewGenerator()
	st := models.Strategy{
		Type: models.StrategyMACD,
		Pair: "BTC-USDT",
		Params: models.StrategyParams{
			FastPeriod:   2,
			SlowPeriod:   4,
			SignalPeriod: 3,
		},
	}
	// Monotone fall then a sharp recovery: the histogram flips sign at
	// most once on the way back up.
	candles := candlesFromCloses("BTC-USDT", 12, 11, 10, 9, 8, 7, 6, 5, 9, 12, 14)

	var buys int
	for i := 1; i <= len(candles); i++ {
		if g.Generate(st, candles[:i]).Side == models.SideBuy {
			buys++
		}
	}
	assert.Equal(t, 1, buys)
}

func TestBollingerLowerBandTouch(t *testing.T) {
	g := NewGenerator()
	st := models.Strategy{
		Type: models.StrategyBollinger,
		Pair: "BTC-USDT",
		Params: models.StrategyParams{
			Period:     4,
			StdDevMult: 1,
		},
	}
	sig := g.Generate(st, candlesFromCloses("BTC-USDT", 10, 11, 10, 11, 11, 8))
	assert.Equal(t, models.SideBuy, sig.Side)
	assert.Contains(t, sig.Reason, "lower band")
}

func TestBreakoutStrategy(t *testing.T) {
	g := NewGenerator()
	st := models.Strategy{
		Type: models.StrategyBreakout,
		Pair: "BTC-USDT",
		Params: models.StrategyParams{
			Lookback:     4,
			ThresholdPct: 1,
		},
	}
	sig := g.Generate(st, candlesFromCloses("BTC-USDT", 3, 4, 5, 4, 10))
	assert.Equal(t, models.SideBuy, sig.Side)
	assert.Contains(t, sig.Reason, "breakout UP")
}

func TestCandlestickStrategy(t *testing.T) {
	g := NewGenerator()
	st := models.Strategy{
		Type: models.StrategyCandlestick,
		Pair: "BTC-USDT",
		Params: models.StrategyParams{
			MinStrength: 0.3,
		},
	}
	candles := candlesFromCloses("BTC-USDT", 100, 100, 100)
	candles = append(candles,
		models.Candle{Pair: "BTC-USDT", Open: 105, High: 106, Low: 99, Close: 100},
		models.Candle{Pair: "BTC-USDT", Open: 99, High: 108, Low: 98, Close: 107},
	)
	sig := g.Generate(st, candles)
	assert.Equal(t, models.SideBuy, sig.Side)
	assert.Contains(t, sig.Reason, "bullish_engulfing")
}

func TestCompositeAND(t *testing.T) {
	g := NewGenerator()
	leg := models.SubStrategy{
		Type:   models.StrategyMACrossover,
		Params: models.StrategyParams{ShortPeriod: 2, LongPeriod: 4},
	}
	st := models.Strategy{
		Type: models.StrategyComposite,
		Pair: "BTC-USDT",
		Params: models.StrategyParams{
			Combine:       models.CombineAND,
			SubStrategies: []models.SubStrategy{leg, leg},
		},
	}
	// Both identical legs fire BUY at the crossover step.
	sig := g.Generate(st, candlesFromCloses("BTC-USDT", 1, 2, 3, 4))
	require.Equal(t, models.SideBuy, sig.Side)

	// Adding a leg that stays silent breaks unanimity.
	st.Params.SubStrategies = append(st.Params.SubStrategies, models.SubStrategy{
		Type:   models.StrategyBreakout,
		Params: models.StrategyParams{Lookback: 2, ThresholdPct: 50},
	})
	sig = g.Generate(st, candlesFromCloses("BTC-USDT", 1, 2, 3, 4))
	assert.Equal(t, models.SideNone, sig.Side)
}

func TestCompositeORMajority(t *testing.T) {
	g := NewGenerator()
	st := models.Strategy{
		Type: models.StrategyComposite,
		Pair: "BTC-USDT",
		Params: models.StrategyParams{
			Combine: models.CombineOR,
			SubStrategies: []models.SubStrategy{
				{Type: models.StrategyMACrossover, Params: models.StrategyParams{ShortPeriod: 2, LongPeriod: 4}},
				{Type: models.StrategyBreakout, Params: models.StrategyParams{Lookback: 2, ThresholdPct: 50}},
			},
		},
	}
	sig := g.Generate(st, candlesFromCloses("BTC-USDT", 1, 2, 3, 4))
	assert.Equal(t, models.SideBuy, sig.Side)
}

func TestCompositeWeightedTie(t *testing.T) {
	g := NewGenerator()
	st := models.Strategy{
		Type: models.StrategyComposite,
		Pair: "BTC-USDT",
		Params: models.StrategyParams{
			Combine: models.CombineWeighted,
			SubStrategies: []models.SubStrategy{
				// Silent leg: zero weight on either side means a tie.
				{Type: models.StrategyBreakout, Params: models.StrategyParams{Lookback: 2, ThresholdPct: 50}, Weight: 1},
			},
		},
	}
	sig := g.Generate(st, candlesFromCloses("BTC-USDT", 1, 2, 3, 4))
	assert.Equal(t, models.SideNone, sig.Side)
	assert.Contains(t, sig.Reason, "tie")
}
