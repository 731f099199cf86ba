package indicator

// BollingerBands returns upper/middle/lower as SMA ± mult × population
// standard deviation over the trailing window. All zeros when data is
// shorter than period.
func BollingerBands(data []float64, period int, mult float64) (upper, middle, lower float64) {
	if period <= 0 || len(data) < period {
		return 0, 0, 0
	}
	middle = SMA(data, period)
	sd := StdDev(data, period)
	upper = middle + mult*sd
	lower = middle - mult*sd
	return upper, middle, lower
}

type BreakoutDirection string

const (
	BreakoutUp   BreakoutDirection = "up"
	BreakoutDown BreakoutDirection = "down"
	BreakoutNone BreakoutDirection = "none"
)

// Breakout compares the current (last) price against the highest and
// lowest price of the prior lookback window, inflated/deflated by
// thresholdPct percent. Returns BreakoutNone when the window is too
// short.
func Breakout(data []float64, lookback int, thresholdPct float64) BreakoutDirection {
	if lookback <= 0 || len(data) < lookback+1 {
		return BreakoutNone
	}
	price := data[len(data)-1]
	window := data[len(data)-1-lookback : len(data)-1]
	hi := highest(window)
	lo := lowest(window)

	if price > hi*(1+thresholdPct/100) {
		return BreakoutUp
	}
	if price < lo*(1-thresholdPct/100) {
		return BreakoutDown
	}
	return BreakoutNone
}
