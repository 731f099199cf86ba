// Package demo paper-trades one strategy against live market data and
// accumulates the performance record that gates promotion to live
// trading.
package demo

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/pkg/errors"

	"trade_engine/internal/exchange"
	"trade_engine/internal/journal"
	"trade_engine/internal/models"
	"trade_engine/internal/sched"
	"trade_engine/internal/signal"
	"trade_engine/pkg/logger"
)

const (
	defaultPoll = 5 * time.Second

	// Same protective stop the simulator uses.
	stopPct = 2.0

	// Promotion gates.
	readyWinRate   = 0.5
	readyReturnPct = 5.0
	readyTrades    = 20
	readyRuntime   = 7 * 24 * time.Hour
)

// Report is the snapshot Performance returns. IsLiveReady is recomputed
// from the accumulated state on every call, never cached.
type Report struct {
	StrategyID  string
	TotalPnL    float64
	ReturnPct   float64
	WinRate     float64
	Trades      int
	StartedAt   time.Time
	IsLiveReady bool
}

type Runner struct {
	gw      exchange.Gateway
	gen     *signal.Generator
	rec     journal.Recorder
	tickers sched.Factory
	poll    time.Duration

	mu        sync.Mutex
	running   bool
	cancel    context.CancelFunc
	done      chan struct{}
	strategy  models.Strategy
	startedAt time.Time

	initialBalance float64
	balance        float64
	pos            *models.Position
	trades         []models.ClosedTrade

	now func() time.Time
}

func NewRunner(gw exchange.Gateway, gen *signal.Generator, rec journal.Recorder, tickers sched.Factory, poll time.Duration, initialBalance float64) *Runner {
	if poll <= 0 {
		poll = defaultPoll
	}
	if tickers == nil {
		tickers = sched.Wall
	}
	return &Runner{
		gw:             gw,
		gen:            gen,
		rec:            rec,
		tickers:        tickers,
		poll:           poll,
		initialBalance: initialBalance,
		balance:        initialBalance,
		now:            time.Now,
	}
}

// Start begins polling for the strategy. A runner validates one
// strategy at a time.
func (r *Runner) Start(st models.Strategy) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return errors.Errorf("demo runner already validating %s", r.strategy.ID)
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.running = true
	r.cancel = cancel
	r.done = make(chan struct{})
	r.strategy = st
	r.startedAt = r.now().UTC()
	r.balance = r.initialBalance
	r.pos = nil
	r.trades = nil

	go r.loop(ctx)
	logger.Info("demo: validating %s on %s every %s", st.ID, st.Pair, r.poll)
	return nil
}

// Stop is idempotent. Any open paper position stays in the ledger
// unclosed; it does not count as a trade.
func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	cancel, done := r.cancel, r.done
	r.mu.Unlock()

	cancel()
	<-done
	logger.Info("demo: stopped %s", r.strategy.ID)
}

func (r *Runner) loop(ctx context.Context) {
	defer close(r.done)
	t := r.tickers(r.poll)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C():
			r.step(ctx)
		}
	}
}

func (r *Runner) step(ctx context.Context) {
	r.mu.Lock()
	st := r.strategy
	r.mu.Unlock()

	candles, err := r.gw.GetMarketData(ctx, st.Pair)
	if err != nil {
		logger.Warn("demo: market data for %s: %v", st.Pair, err)
		return
	}
	px := candles[len(candles)-1].Close
	at := candles[len(candles)-1].Time

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.pos != nil {
		if stopHit(r.pos, px) {
			r.close(ctx, px, at, "stop loss")
		} else if sig := r.gen.Generate(st, candles); opposing(r.pos.Side, sig.Side) {
			r.close(ctx, px, at, "opposing signal: "+sig.Reason)
		}
		return
	}

	sig := r.gen.Generate(st, candles)
	if sig.Side != models.SideBuy && sig.Side != models.SideSell {
		return
	}

	side := models.PositionLong
	stop := px * (1 - stopPct/100)
	if sig.Side == models.SideSell {
		side = models.PositionShort
		stop = px * (1 + stopPct/100)
	}

	riskPct := st.Params.RiskPct
	if riskPct <= 0 {
		riskPct = 1
	}
	size := r.balance * riskPct / 100 / math.Abs(px-stop)
	if size <= 0 {
		return
	}

	r.pos = &models.Position{
		StrategyID: st.ID,
		Symbol:     st.Pair,
		Side:       side,
		Size:       size,
		Entry:      px,
		StopLoss:   stop,
		Status:     models.PositionOpen,
		OpenedAt:   at,
	}
	r.record(ctx, models.TradeJournalEntry{
		StrategyID: st.ID,
		Pair:       st.Pair,
		Action:     models.JournalOpen,
		Side:       side,
		Size:       size,
		Price:      px,
		Reason:     sig.Reason,
		At:         at,
	})
	logger.Info("demo: %s opened %s %s size %.4f at %.4f", st.ID, side, st.Pair, size, px)
}

// close realizes the open paper position. Caller holds r.mu.
func (r *Runner) close(ctx context.Context, px float64, at time.Time, reason string) {
	pnl := r.pos.Unrealized(px)
	r.balance += pnl
	r.trades = append(r.trades, models.ClosedTrade{
		Pair:       r.pos.Symbol,
		Side:       r.pos.Side,
		Size:       r.pos.Size,
		EntryPrice: r.pos.Entry,
		ExitPrice:  px,
		EntryTime:  r.pos.OpenedAt,
		ExitTime:   at,
		PnL:        pnl,
		Reason:     reason,
	})
	r.record(ctx, models.TradeJournalEntry{
		StrategyID: r.pos.StrategyID,
		Pair:       r.pos.Symbol,
		Action:     models.JournalClose,
		Side:       r.pos.Side,
		Size:       r.pos.Size,
		Price:      px,
		PnL:        pnl,
		Reason:     reason,
		At:         at,
	})
	logger.Info("demo: %s closed %s at %.4f, pnl %.2f (%s)", r.pos.StrategyID, r.pos.Symbol, px, pnl, reason)
	r.pos = nil
}

func (r *Runner) record(ctx context.Context, e models.TradeJournalEntry) {
	if r.rec == nil {
		return
	}
	if err := r.rec.Record(ctx, e); err != nil {
		logger.Warn("demo: journal: %v", err)
	}
}

// Performance reports the accumulated record. The readiness gate needs
// all of: win rate at or above 0.5, cumulative return at or above 5%,
// at least 20 closed trades, at least 7 days of runtime.
func (r *Runner) Performance() Report {
	r.mu.Lock()
	defer r.mu.Unlock()

	rep := Report{
		StrategyID: r.strategy.ID,
		StartedAt:  r.startedAt,
		Trades:     len(r.trades),
	}
	var wins int
	for _, t := range r.trades {
		rep.TotalPnL += t.PnL
		if t.PnL > 0 {
			wins++
		}
	}
	if rep.Trades > 0 {
		rep.WinRate = float64(wins) / float64(rep.Trades)
	}
	if r.initialBalance > 0 {
		rep.ReturnPct = rep.TotalPnL / r.initialBalance * 100
	}

	elapsed := time.Duration(0)
	if !r.startedAt.IsZero() {
		elapsed = r.now().UTC().Sub(r.startedAt)
	}
	rep.IsLiveReady = rep.WinRate >= readyWinRate &&
		rep.ReturnPct >= readyReturnPct &&
		rep.Trades >= readyTrades &&
		elapsed >= readyRuntime
	return rep
}

func stopHit(pos *models.Position, px float64) bool {
	if pos.Side == models.PositionLong {
		return px <= pos.StopLoss
	}
	return px >= pos.StopLoss
}

func opposing(side models.PositionSide, sig models.Side) bool {
	return (side == models.PositionLong && sig == models.SideSell) ||
		(side == models.PositionShort && sig == models.SideBuy)
}
