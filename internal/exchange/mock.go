package exchange

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"

	"trade_engine/internal/models"
)

// Mock is an in-memory Gateway for demo mode and tests. Candles are
// scripted per pair; every accepted order is recorded.
type Mock struct {
	mu        sync.Mutex
	balance   models.AccountBalance
	candles   map[string][]models.Candle
	positions []AccountPosition
	orders    []models.Order
	orderSeq  int

	// FailOrders and FailReads force gateway errors for failure-path
	// tests.
	FailOrders bool
	FailReads  bool
}

func NewMock(initialBalance float64) *Mock {
	return &Mock{
		balance: models.AccountBalance{
			Total:     initialBalance,
			Available: initialBalance,
			Equity:    initialBalance,
		},
		candles: make(map[string][]models.Candle),
	}
}

func (m *Mock) SetBalance(b models.AccountBalance) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balance = b
}

func (m *Mock) SetCandles(pair string, candles []models.Candle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.candles[pair] = candles
}

func (m *Mock) AppendCandle(pair string, c models.Candle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.candles[pair] = append(m.candles[pair], c)
}

// SetAccountPositions scripts the venue-side position snapshot that
// GetPositions returns. The account watcher polling a Mock turns these
// into bus events, so demo mode can rehearse the liquidation path.
func (m *Mock) SetAccountPositions(positions []AccountPosition) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.positions = positions
}

// Orders returns a copy of everything placed so far.
func (m *Mock) Orders() []models.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Order, len(m.orders))
	copy(out, m.orders)
	return out
}

func (m *Mock) GetAccountBalance(ctx context.Context) (models.AccountBalance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailReads {
		return models.AccountBalance{}, &GatewayError{Op: "balance", Err: errors.New("mock read failure")}
	}
	return m.balance, nil
}

func (m *Mock) GetPositions(ctx context.Context) ([]AccountPosition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailReads {
		return nil, &GatewayError{Op: "positions", Err: errors.New("mock read failure")}
	}
	out := make([]AccountPosition, len(m.positions))
	copy(out, m.positions)
	return out, nil
}

func (m *Mock) GetMarketData(ctx context.Context, pair string) ([]models.Candle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailReads {
		return nil, &GatewayError{Op: "market data", Err: errors.New("mock read failure")}
	}
	cs, ok := m.candles[pair]
	if !ok || len(cs) == 0 {
		return nil, ErrDataUnavailable
	}
	out := make([]models.Candle, len(cs))
	copy(out, cs)
	return out, nil
}

func (m *Mock) GetHistoricalData(ctx context.Context, pair string, start, end time.Time) ([]models.Candle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailReads {
		return nil, &GatewayError{Op: "historical data", Err: errors.New("mock read failure")}
	}
	var out []models.Candle
	for _, c := range m.candles[pair] {
		if !c.Time.Before(start) && !c.Time.After(end) {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return nil, ErrDataUnavailable
	}
	return out, nil
}

func (m *Mock) PlaceOrder(ctx context.Context, pair string, side models.OrderSide, typ models.OrderType, size, price float64) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailOrders {
		return nil, &GatewayError{Op: "place order", Err: errors.New("mock order failure")}
	}
	m.orderSeq++
	o := models.Order{
		ID:        fmt.Sprintf("mock-%d", m.orderSeq),
		Pair:      pair,
		Side:      side,
		Type:      typ,
		Size:      size,
		Price:     price,
		CreatedAt: time.Now().UTC(),
	}
	m.orders = append(m.orders, o)
	return &o, nil
}

func (m *Mock) PlaceConditionalOrder(ctx context.Context, pair string, side models.OrderSide, kind models.ConditionalKind, size, triggerPrice float64) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailOrders {
		return nil, &GatewayError{Op: "place conditional", Err: errors.New("mock order failure")}
	}
	m.orderSeq++
	o := models.Order{
		ID:        fmt.Sprintf("mock-algo-%d", m.orderSeq),
		Pair:      pair,
		Side:      side,
		Type:      models.OrderMarket,
		Size:      size,
		Price:     triggerPrice,
		CreatedAt: time.Now().UTC(),
	}
	m.orders = append(m.orders, o)
	return &o, nil
}
