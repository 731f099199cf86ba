package models

import "time"

type JournalAction string

const (
	JournalOpen  JournalAction = "open"
	JournalClose JournalAction = "close"
)

// TradeJournalEntry — append-only record of one fill, derived from a
// position transition. Close entries carry the realized PnL.
type TradeJournalEntry struct {
	StrategyID string
	Pair       string
	Action     JournalAction
	Side       PositionSide
	Size       float64
	Price      float64
	Fee        float64
	PnL        float64
	Reason     string
	At         time.Time
}

// DailyStats accumulates per-UTC-day trading results. Reset happens once
// per date change; the previous end balance becomes the next start.
type DailyStats struct {
	Date         string // "2006-01-02", UTC
	Trades       int
	Wins         int
	Losses       int
	PnL          float64
	StartBalance float64
	EndBalance   float64
}

type AlertDirection string

const (
	AlertAbove AlertDirection = "above"
	AlertBelow AlertDirection = "below"
)

// PriceAlert fires at most once, independent of any position.
type PriceAlert struct {
	ID        string
	Pair      string
	Threshold float64
	Direction AlertDirection
	Triggered bool
	CreatedAt time.Time
}
