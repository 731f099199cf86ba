package models

import "time"

type PositionSide string

const (
	PositionLong  PositionSide = "long"
	PositionShort PositionSide = "short"
)

type PositionStatus string

const (
	PositionOpen   PositionStatus = "open"
	PositionClosed PositionStatus = "closed"
)

// Position is owned by the risk manager while open and becomes an
// immutable record once closed. Status goes open -> closed exactly once.
type Position struct {
	StrategyID string
	Symbol     string
	Side       PositionSide
	Size       float64
	Entry      float64
	Mark       float64
	PnL        float64 // unrealized while open, realized after close
	Leverage   int
	LiqPrice   float64
	Status     PositionStatus

	StopLoss     float64
	TakeProfit   float64
	TrailingStop float64
	// HighWaterMark is the best mark price seen since entry (lowest for
	// shorts); the trailing stop advances off it.
	HighWaterMark float64

	OpenedAt time.Time
	ClosedAt time.Time
}

// Favorable reports whether px is a better mark than the current
// high-water mark for this position's side.
func (p *Position) Favorable(px float64) bool {
	if p.Side == PositionShort {
		return px < p.HighWaterMark
	}
	return px > p.HighWaterMark
}

// Unrealized computes PnL at the given mark price.
func (p *Position) Unrealized(px float64) float64 {
	if p.Side == PositionShort {
		return (p.Entry - px) * p.Size
	}
	return (px - p.Entry) * p.Size
}

type OrderSide string

const (
	OrderBuy  OrderSide = "buy"
	OrderSell OrderSide = "sell"
)

type OrderType string

const (
	OrderMarket OrderType = "market"
	OrderLimit  OrderType = "limit"
)

// ConditionalKind distinguishes exchange-held trigger orders.
type ConditionalKind string

const (
	ConditionalStop       ConditionalKind = "stop"
	ConditionalTakeProfit ConditionalKind = "take_profit"
)

type Order struct {
	ID        string
	Pair      string
	Side      OrderSide
	Type      OrderType
	Size      float64
	Price     float64
	CreatedAt time.Time
}

// AccountBalance mirrors the gateway's balance snapshot.
type AccountBalance struct {
	Total         float64
	Available     float64
	Equity        float64
	UnrealizedPnL float64
	TodayPnL      float64
}

// LiquidationWarning is pushed by the exchange when a position nears its
// liquidation price. Distance is a fraction (0.05 == 5% away).
type LiquidationWarning struct {
	Pair     string
	Side     PositionSide
	Distance float64
	At       time.Time
}

// MarginUpdate is pushed when account margin levels change.
type MarginUpdate struct {
	Equity      float64
	UsedMargin  float64
	MarginRatio float64
	At          time.Time
}
