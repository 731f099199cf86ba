package demo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade_engine/internal/exchange"
	"trade_engine/internal/journal"
	"trade_engine/internal/models"
	"trade_engine/internal/sched"
	"trade_engine/internal/signal"
)

var demoStart = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func demoCandles(pair string, closes ...float64) []models.Candle {
	out := make([]models.Candle, len(closes))
	for i, c := range closes {
		out[i] = models.Candle{
			Pair: pair, Open: c, High: c, Low: c, Close: c,
			Time: demoStart.Add(time.Duration(i) * time.Minute),
		}
	}
	return out
}

func demoStrategy() models.Strategy {
	return models.Strategy{
		ID:   "demo-1",
		Type: models.StrategyMACrossover,
		Pair: "BTC-USDT",
		Params: models.StrategyParams{
			ShortPeriod: 2,
			LongPeriod:  4,
		},
	}
}

func TestStepOpensThenStopsOut(t *testing.T) {
	gw := exchange.NewMock(10000)
	gw.SetCandles("BTC-USDT", demoCandles("BTC-USDT", 1, 2, 3, 4))
	rec := journal.NewMemory()

	r := NewRunner(gw, signal.NewGenerator(), rec, nil, time.Second, 10000)
	r.strategy = demoStrategy()
	ctx := context.Background()

	r.step(ctx)
	require.NotNil(t, r.pos)
	assert.Equal(t, models.PositionLong, r.pos.Side)
	assert.Equal(t, 4.0, r.pos.Entry)

	// 3.5 is under the 2% stop at 3.92.
	gw.AppendCandle("BTC-USDT", models.Candle{
		Pair: "BTC-USDT", Open: 3.5, High: 3.5, Low: 3.5, Close: 3.5,
		Time: demoStart.Add(5 * time.Minute),
	})
	r.step(ctx)
	require.Nil(t, r.pos)
	require.Len(t, r.trades, 1)
	assert.Equal(t, "stop loss", r.trades[0].Reason)
	assert.Less(t, r.trades[0].PnL, 0.0)

	entries, err := rec.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, models.JournalOpen, entries[0].Action)
	assert.Equal(t, models.JournalClose, entries[1].Action)
	assert.Less(t, entries[1].PnL, 0.0)
}

func TestStepSkipsOnDataUnavailable(t *testing.T) {
	gw := exchange.NewMock(10000)
	r := NewRunner(gw, signal.NewGenerator(), nil, nil, time.Second, 10000)
	r.strategy = demoStrategy()

	r.step(context.Background())
	assert.Nil(t, r.pos)
	assert.Empty(t, r.trades)
}

func TestLiveReadyRequiresTwentyTrades(t *testing.T) {
	r := NewRunner(exchange.NewMock(10000), signal.NewGenerator(), nil, nil, time.Second, 10000)
	r.strategy = demoStrategy()
	r.startedAt = demoStart
	r.now = func() time.Time { return demoStart.Add(8 * 24 * time.Hour) }

	// 19 wins: every other gate passes, the trade count does not.
	for i := 0; i < 19; i++ {
		r.trades = append(r.trades, models.ClosedTrade{PnL: 50})
	}
	rep := r.Performance()
	assert.Equal(t, 1.0, rep.WinRate)
	assert.GreaterOrEqual(t, rep.ReturnPct, 5.0)
	assert.False(t, rep.IsLiveReady)

	r.trades = append(r.trades, models.ClosedTrade{PnL: 50})
	assert.True(t, r.Performance().IsLiveReady)
}

func TestLiveReadyRequiresRuntime(t *testing.T) {
	r := NewRunner(exchange.NewMock(10000), signal.NewGenerator(), nil, nil, time.Second, 10000)
	r.strategy = demoStrategy()
	r.startedAt = demoStart
	r.now = func() time.Time { return demoStart.Add(3 * 24 * time.Hour) }

	for i := 0; i < 20; i++ {
		r.trades = append(r.trades, models.ClosedTrade{PnL: 50})
	}
	assert.False(t, r.Performance().IsLiveReady)

	r.now = func() time.Time { return demoStart.Add(7 * 24 * time.Hour) }
	assert.True(t, r.Performance().IsLiveReady)
}

func TestLiveReadyRequiresReturn(t *testing.T) {
	r := NewRunner(exchange.NewMock(10000), signal.NewGenerator(), nil, nil, time.Second, 10000)
	r.strategy = demoStrategy()
	r.startedAt = demoStart
	r.now = func() time.Time { return demoStart.Add(8 * 24 * time.Hour) }

	// 4% return with a perfect win rate still fails the gate.
	for i := 0; i < 20; i++ {
		r.trades = append(r.trades, models.ClosedTrade{PnL: 20})
	}
	assert.False(t, r.Performance().IsLiveReady)
}

func TestPerformanceEmpty(t *testing.T) {
	r := NewRunner(exchange.NewMock(10000), signal.NewGenerator(), nil, nil, time.Second, 10000)
	rep := r.Performance()
	assert.Zero(t, rep.Trades)
	assert.Zero(t, rep.TotalPnL)
	assert.False(t, rep.IsLiveReady)
}

func TestStartStopLifecycle(t *testing.T) {
	gw := exchange.NewMock(10000)
	gw.SetCandles("BTC-USDT", demoCandles("BTC-USDT", 1, 2, 3, 4))
	rec := journal.NewMemory()

	man := sched.NewManual()
	factory := func(time.Duration) sched.Ticker { return man }
	r := NewRunner(gw, signal.NewGenerator(), rec, factory, time.Second, 10000)

	require.NoError(t, r.Start(demoStrategy()))
	assert.Error(t, r.Start(demoStrategy()))

	man.Tick()
	require.Eventually(t, func() bool {
		entries, err := rec.Entries(context.Background())
		return err == nil && len(entries) == 1
	}, time.Second, 5*time.Millisecond)

	r.Stop()
	r.Stop()

	require.NoError(t, r.Start(demoStrategy()))
	assert.Empty(t, r.trades)
	r.Stop()
}
