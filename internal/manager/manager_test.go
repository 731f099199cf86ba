package manager

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade_engine/internal/alert"
	"trade_engine/internal/bus"
	"trade_engine/internal/exchange"
	"trade_engine/internal/feed"
	"trade_engine/internal/journal"
	"trade_engine/internal/models"
	"trade_engine/internal/notify"
	"trade_engine/internal/signal"
)

var mgrNow = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

type fixture struct {
	m    *Manager
	gw   *exchange.Mock
	feed *feed.Memory
	rec  *journal.Memory
}

func testManagerConfig() Config {
	return Config{
		RiskPct:              1,
		StopLossPct:          2,
		TakeProfitPct:        4,
		TrailingStopPct:      1.5,
		MaxPositions:         5,
		MaxDailyLossPct:      5,
		MaxDrawdownPct:       15,
		CorrelationThreshold: 0.7,
		UpdateInterval:       time.Second,
	}
}

// newFixture builds a manager in the running state with a 10000
// balance, without spinning up the loop goroutine, so tests can drive
// update cycles directly.
func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	gw := exchange.NewMock(10000)
	f := feed.NewMemory()
	rec := journal.NewMemory()
	m := New(cfg, gw, f, signal.NewGenerator(), bus.New(), rec, notify.NewStdout(), nil, alert.NewBook())
	m.now = func() time.Time { return mgrNow }
	m.running = true
	m.balance = 10000
	m.peak = 10000
	m.day = models.DailyStats{Date: mgrNow.Format(dayLayout), StartBalance: 10000}
	return &fixture{m: m, gw: gw, feed: f, rec: rec}
}

func mgrStrategy(id, pair string) models.Strategy {
	return models.Strategy{
		ID:   id,
		Type: models.StrategyMACrossover,
		Pair: pair,
		Params: models.StrategyParams{
			ShortPeriod: 2,
			LongPeriod:  4,
		},
	}
}

func crossoverCandles(pair string) []models.Candle {
	closes := []float64{25, 50, 75, 100}
	out := make([]models.Candle, len(closes))
	for i, c := range closes {
		out[i] = models.Candle{
			Pair: pair, Open: c, High: c, Low: c, Close: c,
			Time: mgrNow.Add(time.Duration(i-len(closes)) * time.Minute),
		}
	}
	return out
}

func TestUpdateOpensSinglePosition(t *testing.T) {
	fx := newFixture(t, testManagerConfig())
	require.NoError(t, fx.m.AddStrategy(mgrStrategy("st-1", "BTC-USDT")))
	fx.gw.SetCandles("BTC-USDT", crossoverCandles("BTC-USDT"))
	fx.feed.Push(models.Tick{Pair: "BTC-USDT", Price: 100})

	ctx := context.Background()
	fx.m.update(ctx)
	require.Len(t, fx.m.OpenPositions(), 1)

	pos := fx.m.OpenPositions()[0]
	assert.Equal(t, models.PositionLong, pos.Side)
	assert.Equal(t, 100.0, pos.Entry)
	assert.InDelta(t, 98.0, pos.StopLoss, 1e-9)
	assert.InDelta(t, 104.0, pos.TakeProfit, 1e-9)
	assert.InDelta(t, 50.0, pos.Size, 1e-6) // 1% of 10000 over a 2.0 stop

	// Second cycle with the signal still firing: the open position
	// short-circuits the entry.
	fx.m.update(ctx)
	assert.Len(t, fx.m.OpenPositions(), 1)

	var markets int
	for _, o := range fx.gw.Orders() {
		if o.Type == models.OrderMarket && o.Price == 0 {
			markets++
		}
	}
	assert.Equal(t, 1, markets)
}

func TestOptimalPositionSizeZeroWithoutPrice(t *testing.T) {
	fx := newFixture(t, testManagerConfig())
	size := fx.m.OptimalPositionSize(mgrStrategy("st-1", "XRP-USDT"), 10000, 1)
	assert.Zero(t, size)
}

func TestOptimalPositionSizeWidenedStops(t *testing.T) {
	fx := newFixture(t, testManagerConfig())
	fx.feed.Push(models.Tick{Pair: "BTC-USDT", Price: 100})

	base := fx.m.OptimalPositionSize(mgrStrategy("st-1", "BTC-USDT"), 10000, 1)
	require.Greater(t, base, 0.0)

	rsi := models.Strategy{
		ID: "st-rsi", Type: models.StrategyRSI, Pair: "BTC-USDT",
		Params: models.StrategyParams{Period: 14, Oversold: 20, Overbought: 80},
	}
	assert.InDelta(t, base/rsiWideStopFactor, fx.m.OptimalPositionSize(rsi, 10000, 1), 1e-9)

	brk := models.Strategy{
		ID: "st-brk", Type: models.StrategyBreakout, Pair: "BTC-USDT",
		Params: models.StrategyParams{Lookback: 20, ThresholdPct: 5},
	}
	assert.InDelta(t, base/breakoutWideStopFactor, fx.m.OptimalPositionSize(brk, 10000, 1), 1e-9)
}

func TestMaxPositionsRefusesEntries(t *testing.T) {
	cfg := testManagerConfig()
	cfg.MaxPositions = 1
	fx := newFixture(t, cfg)
	require.NoError(t, fx.m.AddStrategy(mgrStrategy("st-1", "BTC-USDT")))
	require.NoError(t, fx.m.AddStrategy(mgrStrategy("st-2", "ETH-USDT")))
	fx.gw.SetCandles("BTC-USDT", crossoverCandles("BTC-USDT"))
	fx.gw.SetCandles("ETH-USDT", crossoverCandles("ETH-USDT"))
	fx.feed.Push(models.Tick{Pair: "BTC-USDT", Price: 100})
	fx.feed.Push(models.Tick{Pair: "ETH-USDT", Price: 100})

	fx.m.update(context.Background())
	assert.Len(t, fx.m.OpenPositions(), 1)
}

func TestDailyLossCircuitBreaker(t *testing.T) {
	fx := newFixture(t, testManagerConfig())

	// A realized 6% daily loss against the 5% limit.
	fx.m.day.PnL = -600
	fx.m.update(context.Background())
	assert.False(t, fx.m.Running())
	assert.ErrorIs(t, fx.m.Breach(), ErrRiskBreach)

	// No auto-restart: a further cycle is a no-op.
	fx.m.update(context.Background())
	assert.False(t, fx.m.Running())
}

func TestDrawdownCircuitBreaker(t *testing.T) {
	fx := newFixture(t, testManagerConfig())
	fx.m.peak = 12000
	fx.m.balance = 10000 // 16.7% off the peak against the 15% limit
	fx.m.update(context.Background())
	assert.False(t, fx.m.Running())
}

func TestTrailingStopAdvancesAndCloses(t *testing.T) {
	cfg := testManagerConfig()
	cfg.TakeProfitPct = 0 // isolate the trailing exit
	fx := newFixture(t, cfg)
	require.NoError(t, fx.m.AddStrategy(mgrStrategy("st-1", "BTC-USDT")))
	fx.gw.SetCandles("BTC-USDT", crossoverCandles("BTC-USDT"))
	fx.feed.Push(models.Tick{Pair: "BTC-USDT", Price: 100})
	ctx := context.Background()
	fx.m.update(ctx)
	require.Len(t, fx.m.OpenPositions(), 1)

	// In profit: the stop trails 1.5% under the high-water mark.
	fx.m.onTick(models.Tick{Pair: "BTC-USDT", Price: 110})
	pos := fx.m.OpenPositions()[0]
	assert.InDelta(t, 110*0.985, pos.TrailingStop, 1e-9)
	assert.Equal(t, 110.0, pos.HighWaterMark)

	// Retreat must not move the stop.
	fx.m.onTick(models.Tick{Pair: "BTC-USDT", Price: 109})
	pos = fx.m.OpenPositions()[0]
	assert.InDelta(t, 110*0.985, pos.TrailingStop, 1e-9)

	// Crossing the trailed stop closes the position.
	fx.m.onTick(models.Tick{Pair: "BTC-USDT", Price: 108})
	require.Empty(t, fx.m.OpenPositions())

	entries, err := fx.rec.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, models.JournalClose, entries[1].Action)
	assert.Equal(t, "trailing stop", entries[1].Reason)
	assert.Greater(t, entries[1].PnL, 0.0)
}

func TestTrailingNeverAdvancesAtALoss(t *testing.T) {
	fx := newFixture(t, testManagerConfig())
	require.NoError(t, fx.m.AddStrategy(mgrStrategy("st-1", "BTC-USDT")))
	fx.gw.SetCandles("BTC-USDT", crossoverCandles("BTC-USDT"))
	fx.feed.Push(models.Tick{Pair: "BTC-USDT", Price: 100})
	fx.m.update(context.Background())
	require.Len(t, fx.m.OpenPositions(), 1)

	fx.m.onTick(models.Tick{Pair: "BTC-USDT", Price: 99})
	pos := fx.m.OpenPositions()[0]
	assert.Zero(t, pos.TrailingStop)
	assert.Equal(t, 100.0, pos.HighWaterMark)
}

func TestLiquidationWarningForcesClose(t *testing.T) {
	fx := newFixture(t, testManagerConfig())
	require.NoError(t, fx.m.AddStrategy(mgrStrategy("st-1", "BTC-USDT")))
	fx.gw.SetCandles("BTC-USDT", crossoverCandles("BTC-USDT"))
	fx.feed.Push(models.Tick{Pair: "BTC-USDT", Price: 100})
	fx.m.update(context.Background())
	require.Len(t, fx.m.OpenPositions(), 1)

	// Far from liquidation: nothing happens.
	fx.m.onLiquidationWarning(models.LiquidationWarning{Pair: "BTC-USDT", Distance: 0.10})
	assert.Len(t, fx.m.OpenPositions(), 1)

	fx.m.onLiquidationWarning(models.LiquidationWarning{Pair: "BTC-USDT", Distance: 0.03})
	require.Empty(t, fx.m.OpenPositions())

	entries, err := fx.rec.Entries(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "liquidation risk", entries[len(entries)-1].Reason)
}

func TestFailedCloseKeepsPosition(t *testing.T) {
	fx := newFixture(t, testManagerConfig())
	require.NoError(t, fx.m.AddStrategy(mgrStrategy("st-1", "BTC-USDT")))
	fx.gw.SetCandles("BTC-USDT", crossoverCandles("BTC-USDT"))
	fx.feed.Push(models.Tick{Pair: "BTC-USDT", Price: 100})
	fx.m.update(context.Background())
	require.Len(t, fx.m.OpenPositions(), 1)

	fx.gw.FailOrders = true
	fx.m.onTick(models.Tick{Pair: "BTC-USDT", Price: 90}) // well under the stop
	assert.Len(t, fx.m.OpenPositions(), 1, "an unconfirmed close must not drop the position")

	fx.gw.FailOrders = false
	fx.m.onTick(models.Tick{Pair: "BTC-USDT", Price: 90})
	assert.Empty(t, fx.m.OpenPositions())
}

func TestDailyRolloverCarriesBalance(t *testing.T) {
	fx := newFixture(t, testManagerConfig())
	fx.m.balance = 10400
	fx.m.day.Trades = 7
	fx.m.day.PnL = 400

	fx.m.now = func() time.Time { return mgrNow.Add(24 * time.Hour) }
	fx.m.update(context.Background())

	day := fx.m.DailyStats()
	assert.Equal(t, mgrNow.Add(24*time.Hour).Format(dayLayout), day.Date)
	assert.Equal(t, 10400.0, day.StartBalance)
	assert.Zero(t, day.Trades)
	assert.Zero(t, day.PnL)
}

func TestRemoveStrategyKeepsSharedSubscription(t *testing.T) {
	fx := newFixture(t, testManagerConfig())
	require.NoError(t, fx.m.AddStrategy(mgrStrategy("st-1", "BTC-USDT")))
	require.NoError(t, fx.m.AddStrategy(mgrStrategy("st-2", "BTC-USDT")))
	require.Len(t, fx.m.subs, 1)
	assert.Equal(t, 2, fx.m.subs["BTC-USDT"].refs)

	fx.m.RemoveStrategy("st-1")
	require.Len(t, fx.m.subs, 1)

	fx.m.RemoveStrategy("st-2")
	assert.Empty(t, fx.m.subs)
}

func TestStartStopIdempotent(t *testing.T) {
	gw := exchange.NewMock(10000)
	f := feed.NewMemory()
	m := New(testManagerConfig(), gw, f, signal.NewGenerator(), bus.New(), journal.NewMemory(), notify.NewStdout(), nil, nil)

	ctx := context.Background()
	require.NoError(t, m.Start(ctx))
	require.NoError(t, m.Start(ctx))
	assert.True(t, m.Running())

	m.Stop()
	m.Stop()
	assert.False(t, m.Running())
	assert.Empty(t, m.subs)
}

func TestStartFailsWithoutBalance(t *testing.T) {
	gw := exchange.NewMock(10000)
	gw.FailReads = true
	m := New(testManagerConfig(), gw, feed.NewMemory(), signal.NewGenerator(), bus.New(), nil, nil, nil, nil)
	assert.Error(t, m.Start(context.Background()))
}
