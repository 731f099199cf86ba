package indicator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"trade_engine/internal/models"
)

func TestSMA(t *testing.T) {
	assert.Equal(t, 3.0, SMA([]float64{1, 2, 3, 4, 5}, 5))
	// Last 3 of the series.
	assert.Equal(t, 4.0, SMA([]float64{1, 2, 3, 4, 5}, 3))
}

func TestSMAInsufficientData(t *testing.T) {
	assert.Equal(t, 0.0, SMA([]float64{1, 2, 3}, 5))
	assert.Equal(t, 0.0, SMA(nil, 2))
}

func TestEMA(t *testing.T) {
	// Seeded by the first element; constant series stays put.
	assert.Equal(t, 7.0, EMA([]float64{7, 7, 7, 7}, 3))
	assert.Equal(t, 0.0, EMA(nil, 3))

	ema := EMA([]float64{1, 2, 3, 4, 5}, 2)
	assert.Greater(t, ema, 3.0)
	assert.Less(t, ema, 5.0)
}

func TestRSIAllGains(t *testing.T) {
	// Strictly rising prices: zero average loss.
	assert.Equal(t, 100.0, RSI([]float64{1, 2, 3, 4, 5, 6}, 3))
}

func TestRSIShortData(t *testing.T) {
	assert.Equal(t, 50.0, RSI([]float64{1, 2, 3}, 14))
	assert.Equal(t, 50.0, RSI([]float64{1, 2, 3}, 3))
}

func TestRSIMixed(t *testing.T) {
	rsi := RSI([]float64{10, 11, 10, 11, 10, 11}, 4)
	assert.Greater(t, rsi, 0.0)
	assert.Less(t, rsi, 100.0)
}

func TestMACDConstantSeries(t *testing.T) {
	macd, signal, hist := MACD([]float64{5, 5, 5, 5, 5, 5}, 2, 4, 3)
	assert.InDelta(t, 0, macd, 1e-9)
	assert.InDelta(t, 0, signal, 1e-9)
	assert.InDelta(t, 0, hist, 1e-9)
}

func TestMACDRising(t *testing.T) {
	macd, _, _ := MACD([]float64{1, 2, 3, 4, 5, 6, 7, 8}, 2, 4, 3)
	// Fast EMA tracks a rising series closer than the slow one.
	assert.Greater(t, macd, 0.0)
}

func TestBollingerBands(t *testing.T) {
	upper, middle, lower := BollingerBands([]float64{1, 2, 3, 4, 5}, 5, 2)
	assert.Equal(t, 3.0, middle)
	assert.Greater(t, upper, middle)
	assert.Less(t, lower, middle)
	assert.InDelta(t, upper-middle, middle-lower, 1e-9)
}

func TestBollingerBandsConstant(t *testing.T) {
	upper, middle, lower := BollingerBands([]float64{4, 4, 4, 4}, 4, 2)
	assert.Equal(t, middle, upper)
	assert.Equal(t, middle, lower)
}

func TestBreakout(t *testing.T) {
	// Prior window tops out at 5; 10 clears it with room to spare.
	assert.Equal(t, BreakoutUp, Breakout([]float64{3, 4, 5, 4, 10}, 4, 1))
	assert.Equal(t, BreakoutDown, Breakout([]float64{5, 4, 5, 4, 1}, 4, 1))
	assert.Equal(t, BreakoutNone, Breakout([]float64{3, 4, 5, 4, 5}, 4, 1))
	assert.Equal(t, BreakoutNone, Breakout([]float64{1, 2}, 5, 1))
}

func TestIchimoku(t *testing.T) {
	data := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	v := Ichimoku(data, 3, 5, 8, 2)
	// Midpoint of last 3: (10+8)/2, last 5: (10+6)/2.
	assert.Equal(t, 9.0, v.Conversion)
	assert.Equal(t, 8.0, v.Base)
	assert.Equal(t, 8.5, v.SpanA)
	assert.Equal(t, 6.5, v.SpanB)
	assert.Equal(t, 8.0, v.Lagging)
}

func TestIchimokuShortData(t *testing.T) {
	v := Ichimoku([]float64{1, 2, 3}, 9, 26, 52, 26)
	assert.Equal(t, IchimokuValues{}, v)
}

func TestDetectDoji(t *testing.T) {
	candles := []models.Candle{
		{Open: 100, High: 105, Low: 95, Close: 100.2},
	}
	matches := DetectPatterns(candles, nil)
	assert.NotEmpty(t, matches)
	assert.Equal(t, PatternDoji, matches[0].Pattern)
	assert.Equal(t, models.SideNone, matches[0].Side)
}

func TestDetectBullishEngulfing(t *testing.T) {
	candles := []models.Candle{
		{Open: 105, High: 106, Low: 99, Close: 100},  // bearish
		{Open: 99, High: 108, Low: 98, Close: 107},   // engulfs it
	}
	matches := DetectPatterns(candles, []string{PatternBullishEngulfing})
	assert.Len(t, matches, 1)
	assert.Equal(t, models.SideBuy, matches[0].Side)
	assert.GreaterOrEqual(t, matches[0].Strength, 0.0)
	assert.LessOrEqual(t, matches[0].Strength, 1.0)
}

func TestDetectMorningStar(t *testing.T) {
	candles := []models.Candle{
		{Open: 110, High: 111, Low: 99, Close: 100},     // long bearish
		{Open: 100, High: 101, Low: 98, Close: 100.5},   // small body
		{Open: 101, High: 112, Low: 100, Close: 111},    // strong bullish past midpoint
	}
	matches := DetectPatterns(candles, []string{PatternMorningStar})
	assert.Len(t, matches, 1)
	assert.Equal(t, models.SideBuy, matches[0].Side)
}

func TestDetectPatternsFiltered(t *testing.T) {
	candles := []models.Candle{
		{Open: 100, High: 105, Low: 95, Close: 100.2},
	}
	// Doji present in the candles but filtered out of the set.
	matches := DetectPatterns(candles, []string{PatternHammer})
	assert.Empty(t, matches)
}
