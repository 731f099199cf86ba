package indicator

import (
	"math"
	"sort"

	"trade_engine/internal/models"
)

const (
	PatternDoji             = "doji"
	PatternHammer           = "hammer"
	PatternBullishEngulfing = "bullish_engulfing"
	PatternBearishEngulfing = "bearish_engulfing"
	PatternMorningStar      = "morning_star"
	PatternEveningStar      = "evening_star"
)

// PatternMatch is one detected candlestick pattern with its trade
// direction and a strength in [0,1].
type PatternMatch struct {
	Pattern  string
	Side     models.Side
	Strength float64
}

// DetectPatterns evaluates the most recent 2-5 candles against
// body/shadow ratio heuristics. patternSet limits which patterns are
// considered; empty means all. The result is sorted by strength,
// strongest first.
func DetectPatterns(candles []models.Candle, patternSet []string) []PatternMatch {
	if len(candles) == 0 {
		return nil
	}
	want := func(name string) bool {
		if len(patternSet) == 0 {
			return true
		}
		for _, p := range patternSet {
			if p == name {
				return true
			}
		}
		return false
	}

	var out []PatternMatch
	add := func(m PatternMatch, ok bool) {
		if ok && want(m.Pattern) && m.Strength > 0 {
			out = append(out, m)
		}
	}

	last := candles[len(candles)-1]
	add(detectDoji(last))
	add(detectHammer(last))
	if len(candles) >= 2 {
		prev := candles[len(candles)-2]
		add(detectEngulfing(prev, last))
	}
	if len(candles) >= 3 {
		add(detectStar(candles[len(candles)-3], candles[len(candles)-2], last))
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Strength > out[j].Strength })
	return out
}

func body(c models.Candle) float64 { return math.Abs(c.Close - c.Open) }

func fullRange(c models.Candle) float64 { return c.High - c.Low }

func upperShadow(c models.Candle) float64 { return c.High - math.Max(c.Open, c.Close) }

func lowerShadow(c models.Candle) float64 { return math.Min(c.Open, c.Close) - c.Low }

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// detectDoji: open and close nearly equal relative to the full range.
func detectDoji(c models.Candle) (PatternMatch, bool) {
	r := fullRange(c)
	if r <= 0 {
		return PatternMatch{}, false
	}
	ratio := body(c) / r
	if ratio > 0.1 {
		return PatternMatch{}, false
	}
	return PatternMatch{
		Pattern:  PatternDoji,
		Side:     models.SideNone,
		Strength: clamp01(1 - ratio/0.1),
	}, true
}

// detectHammer: long lower shadow, small upper shadow, body in the
// upper part of the range. Bullish reversal.
func detectHammer(c models.Candle) (PatternMatch, bool) {
	b := body(c)
	r := fullRange(c)
	if b <= 0 || r <= 0 {
		return PatternMatch{}, false
	}
	if lowerShadow(c) < 2*b || upperShadow(c) > b {
		return PatternMatch{}, false
	}
	return PatternMatch{
		Pattern:  PatternHammer,
		Side:     models.SideBuy,
		Strength: clamp01(lowerShadow(c) / (3 * b)),
	}, true
}

// detectEngulfing: the current body fully engulfs the previous body
// with opposite color.
func detectEngulfing(prev, cur models.Candle) (PatternMatch, bool) {
	pb := body(prev)
	cb := body(cur)
	if pb <= 0 || cb <= pb {
		return PatternMatch{}, false
	}
	prevBull := prev.Close > prev.Open
	curBull := cur.Close > cur.Open

	if !prevBull && curBull && cur.Open <= prev.Close && cur.Close >= prev.Open {
		return PatternMatch{
			Pattern:  PatternBullishEngulfing,
			Side:     models.SideBuy,
			Strength: clamp01(cb / (2 * pb)),
		}, true
	}
	if prevBull && !curBull && cur.Open >= prev.Close && cur.Close <= prev.Open {
		return PatternMatch{
			Pattern:  PatternBearishEngulfing,
			Side:     models.SideSell,
			Strength: clamp01(cb / (2 * pb)),
		}, true
	}
	return PatternMatch{}, false
}

// detectStar: three-candle morning/evening star. The middle candle has
// a small body; the third closes beyond the midpoint of the first.
func detectStar(a, b, c models.Candle) (PatternMatch, bool) {
	ab := body(a)
	bb := body(b)
	cb := body(c)
	if ab <= 0 || cb <= 0 || bb > 0.3*ab {
		return PatternMatch{}, false
	}
	mid := (a.Open + a.Close) / 2

	aBear := a.Close < a.Open
	cBull := c.Close > c.Open
	if aBear && cBull && c.Close > mid {
		return PatternMatch{
			Pattern:  PatternMorningStar,
			Side:     models.SideBuy,
			Strength: clamp01((c.Close - mid) / ab),
		}, true
	}
	aBull := a.Close > a.Open
	cBear := c.Close < c.Open
	if aBull && cBear && c.Close < mid {
		return PatternMatch{
			Pattern:  PatternEveningStar,
			Side:     models.SideSell,
			Strength: clamp01((mid - c.Close) / ab),
		}, true
	}
	return PatternMatch{}, false
}
