// Package exchange defines the gateway boundary to the trading venue.
// The core never assumes an order succeeded unless the gateway
// confirms it; read failures degrade to cached values instead of
// crashing the loop.
package exchange

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"trade_engine/internal/models"
)

// ErrDataUnavailable — no historical/live candles for the requested
// window or pair. Aborts that cycle, never the service.
var ErrDataUnavailable = errors.New("no candle data available")

// GatewayError wraps a network/HTTP failure from the venue. Write
// operations propagate it; read operations fall back to cached state.
type GatewayError struct {
	Op  string
	Err error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway %s: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }

type Gateway interface {
	GetAccountBalance(ctx context.Context) (models.AccountBalance, error)
	GetMarketData(ctx context.Context, pair string) ([]models.Candle, error)
	GetHistoricalData(ctx context.Context, pair string, start, end time.Time) ([]models.Candle, error)
	GetPositions(ctx context.Context) ([]AccountPosition, error)
	PlaceOrder(ctx context.Context, pair string, side models.OrderSide, typ models.OrderType, size, price float64) (*models.Order, error)
	PlaceConditionalOrder(ctx context.Context, pair string, side models.OrderSide, kind models.ConditionalKind, size, triggerPrice float64) (*models.Order, error)
}
