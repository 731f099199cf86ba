package indicator

// RSI computes a Wilder-style relative strength index over the last
// period price changes. Returns 50 when data is too short and 100 when
// no losses were observed in the window.
func RSI(data []float64, period int) float64 {
	if period <= 0 || len(data) <= period {
		return 50
	}
	var gains, losses float64
	for i := len(data) - period; i < len(data); i++ {
		change := data[i] - data[i-1]
		if change > 0 {
			gains += change
		} else {
			losses -= change
		}
	}
	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

// MACD returns the MACD line, signal line and histogram.
//
// The signal line is a single-step EMA-like smoothing of the current
// MACD value against the previous step's MACD, NOT a full historical
// EMA of the MACD series. This is a known, deliberate simplification;
// callers that need the textbook definition must track the MACD series
// themselves.
func MACD(data []float64, fast, slow, signal int) (macd, signalLine, histogram float64) {
	if len(data) == 0 {
		return 0, 0, 0
	}
	macd = EMA(data, fast) - EMA(data, slow)

	prev := macd
	if len(data) > 1 {
		prevData := data[:len(data)-1]
		prev = EMA(prevData, fast) - EMA(prevData, slow)
	}
	k := 2.0 / float64(signal+1)
	signalLine = prev + k*(macd-prev)
	histogram = macd - signalLine
	return macd, signalLine, histogram
}
