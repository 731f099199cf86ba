// Package indicator holds the stateless numeric functions the signal
// generator is built on. Every function is total: when the input is
// shorter than the required lookback it returns a neutral sentinel
// (documented per function) instead of an error.
package indicator

import "math"

// SMA returns the mean of the last period values, or 0 when there is
// not enough data.
func SMA(data []float64, period int) float64 {
	if period <= 0 || len(data) < period {
		return 0
	}
	sum := 0.0
	for _, v := range data[len(data)-period:] {
		sum += v
	}
	return sum / float64(period)
}

// EMA runs recursive exponential smoothing with k = 2/(period+1),
// seeded by the first element. Returns 0 on empty input.
func EMA(data []float64, period int) float64 {
	if len(data) == 0 || period <= 0 {
		return 0
	}
	k := 2.0 / float64(period+1)
	ema := data[0]
	for _, v := range data[1:] {
		ema = v*k + ema*(1-k)
	}
	return ema
}

// StdDev is the population standard deviation over the trailing window.
// Returns 0 when there is not enough data.
func StdDev(data []float64, period int) float64 {
	if period <= 0 || len(data) < period {
		return 0
	}
	window := data[len(data)-period:]
	mean := SMA(data, period)
	variance := 0.0
	for _, v := range window {
		d := v - mean
		variance += d * d
	}
	variance /= float64(period)
	return math.Sqrt(variance)
}

func highest(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	m := data[0]
	for _, v := range data[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

func lowest(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	m := data[0]
	for _, v := range data[1:] {
		if v < m {
			m = v
		}
	}
	return m
}
