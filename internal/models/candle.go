package models

import "time"

// Candle — closed OHLCV bar. Insertion order equals chronological order.
type Candle struct {
	Pair   string    `json:"pair"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
	Time   time.Time `json:"time"`
}

// Tick is one live price update from the feed. High/Low/Open/Volume are
// optional depending on the source.
type Tick struct {
	Pair   string
	Price  float64
	Volume float64
	High   float64
	Low    float64
	Open   float64
	Time   time.Time
}

type Side string

const (
	SideNone Side = ""
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Signal — the outcome of one strategy evaluation step. Reason explains
// which rule fired (or why nothing did).
type Signal struct {
	Pair   string
	Side   Side
	Price  float64
	Reason string
}
