package signal

import (
	"fmt"

	"trade_engine/internal/indicator"
	"trade_engine/internal/models"
)

func evalMACrossover(closes []float64, p models.StrategyParams) (models.Side, string) {
	curShort := indicator.SMA(closes, p.ShortPeriod)
	curLong := indicator.SMA(closes, p.LongPeriod)

	// On the first step where both SMAs are computable the previous
	// relation is unknown and counts as neutral, so a signal may fire
	// immediately.
	var wasAbove, wasBelow bool
	prev := closes[:len(closes)-1]
	if len(prev) >= p.LongPeriod {
		prevShort := indicator.SMA(prev, p.ShortPeriod)
		prevLong := indicator.SMA(prev, p.LongPeriod)
		wasAbove = prevShort > prevLong
		wasBelow = prevShort < prevLong
	}

	if curShort > curLong && !wasAbove {
		return models.SideBuy, fmt.Sprintf("MA cross UP: SMA%d=%.5f > SMA%d=%.5f", p.ShortPeriod, curShort, p.LongPeriod, curLong)
	}
	if curShort < curLong && !wasBelow {
		return models.SideSell, fmt.Sprintf("MA cross DOWN: SMA%d=%.5f < SMA%d=%.5f", p.ShortPeriod, curShort, p.LongPeriod, curLong)
	}
	return models.SideNone, "no MA cross"
}

func evalRSI(closes []float64, p models.StrategyParams) (models.Side, string) {
	prevRSI := indicator.RSI(closes[:len(closes)-1], p.Period)
	curRSI := indicator.RSI(closes, p.Period)

	// BUY when RSI climbs back out of the oversold zone, SELL when it
	// drops back out of overbought.
	if prevRSI < p.Oversold && curRSI >= p.Oversold {
		return models.SideBuy, fmt.Sprintf("RSI cross up through oversold: %.2f -> %.2f (level %.1f)", prevRSI, curRSI, p.Oversold)
	}
	if prevRSI > p.Overbought && curRSI <= p.Overbought {
		return models.SideSell, fmt.Sprintf("RSI cross down through overbought: %.2f -> %.2f (level %.1f)", prevRSI, curRSI, p.Overbought)
	}
	return models.SideNone, fmt.Sprintf("RSI %.2f, no crossing", curRSI)
}

func evalMACD(closes []float64, p models.StrategyParams) (models.Side, string) {
	_, _, curHist := indicator.MACD(closes, p.FastPeriod, p.SlowPeriod, p.SignalPeriod)
	_, _, prevHist := indicator.MACD(closes[:len(closes)-1], p.FastPeriod, p.SlowPeriod, p.SignalPeriod)

	if prevHist <= 0 && curHist > 0 {
		return models.SideBuy, fmt.Sprintf("MACD histogram flip positive: %.6f -> %.6f", prevHist, curHist)
	}
	if prevHist >= 0 && curHist < 0 {
		return models.SideSell, fmt.Sprintf("MACD histogram flip negative: %.6f -> %.6f", prevHist, curHist)
	}
	return models.SideNone, "no MACD histogram flip"
}

func evalBollinger(closes []float64, p models.StrategyParams) (models.Side, string) {
	upper, _, lower := indicator.BollingerBands(closes, p.Period, p.StdDevMult)
	prevUpper, _, prevLower := indicator.BollingerBands(closes[:len(closes)-1], p.Period, p.StdDevMult)

	cur := closes[len(closes)-1]
	prev := closes[len(closes)-2]

	if prev > prevLower && cur <= lower {
		return models.SideBuy, fmt.Sprintf("price crossed lower band: %.5f <= %.5f", cur, lower)
	}
	if prev < prevUpper && cur >= upper {
		return models.SideSell, fmt.Sprintf("price crossed upper band: %.5f >= %.5f", cur, upper)
	}
	return models.SideNone, "price inside bands"
}

func evalIchimoku(closes []float64, p models.StrategyParams) (models.Side, string) {
	cur := indicator.Ichimoku(closes, p.ConversionPeriod, p.BasePeriod, p.LaggingSpanPeriod, p.Displacement)
	prev := indicator.Ichimoku(closes[:len(closes)-1], p.ConversionPeriod, p.BasePeriod, p.LaggingSpanPeriod, p.Displacement)

	// Tenkan/kijun cross.
	if prev.Conversion <= prev.Base && cur.Conversion > cur.Base {
		return models.SideBuy, fmt.Sprintf("tenkan/kijun cross UP: %.5f > %.5f", cur.Conversion, cur.Base)
	}
	if prev.Conversion >= prev.Base && cur.Conversion < cur.Base {
		return models.SideSell, fmt.Sprintf("tenkan/kijun cross DOWN: %.5f < %.5f", cur.Conversion, cur.Base)
	}

	// Cloud boundary cross of price.
	px := closes[len(closes)-1]
	prevPx := closes[len(closes)-2]
	cloudTop := cur.SpanA
	cloudBot := cur.SpanB
	if cloudBot > cloudTop {
		cloudTop, cloudBot = cloudBot, cloudTop
	}
	prevTop := prev.SpanA
	if prev.SpanB > prevTop {
		prevTop = prev.SpanB
	}
	prevBot := prev.SpanA
	if prev.SpanB < prevBot {
		prevBot = prev.SpanB
	}
	if prevPx <= prevTop && px > cloudTop {
		return models.SideBuy, fmt.Sprintf("price broke above cloud: %.5f > %.5f", px, cloudTop)
	}
	if prevPx >= prevBot && px < cloudBot {
		return models.SideSell, fmt.Sprintf("price broke below cloud: %.5f < %.5f", px, cloudBot)
	}
	return models.SideNone, "no ichimoku cross"
}

func evalBreakout(closes []float64, p models.StrategyParams) (models.Side, string) {
	dir := indicator.Breakout(closes, p.Lookback, p.ThresholdPct)
	px := closes[len(closes)-1]
	switch dir {
	case indicator.BreakoutUp:
		return models.SideBuy, fmt.Sprintf("breakout UP: close=%.5f over %d-bar high (+%.2f%%)", px, p.Lookback, p.ThresholdPct)
	case indicator.BreakoutDown:
		return models.SideSell, fmt.Sprintf("breakout DOWN: close=%.5f under %d-bar low (-%.2f%%)", px, p.Lookback, p.ThresholdPct)
	}
	return models.SideNone, "no breakout"
}

func evalCandlestick(history []models.Candle, p models.StrategyParams) (models.Side, string) {
	matches := indicator.DetectPatterns(history, p.Patterns)
	minStrength := p.MinStrength
	if minStrength <= 0 {
		minStrength = 0.5
	}
	for _, m := range matches {
		if m.Side == models.SideNone || m.Strength < minStrength {
			continue
		}
		return m.Side, fmt.Sprintf("pattern %s (strength %.2f)", m.Pattern, m.Strength)
	}
	return models.SideNone, "no pattern above strength threshold"
}
