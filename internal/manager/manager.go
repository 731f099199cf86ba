// Package manager is the live-trading orchestrator: it tracks open
// positions per strategy, sizes entries from the account risk budget,
// enforces stop/take-profit/trailing exits on price ticks, and trips
// portfolio-level circuit breakers.
package manager

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"trade_engine/internal/alert"
	"trade_engine/internal/bus"
	"trade_engine/internal/exchange"
	"trade_engine/internal/feed"
	"trade_engine/internal/journal"
	"trade_engine/internal/models"
	"trade_engine/internal/notify"
	"trade_engine/internal/sched"
	"trade_engine/internal/signal"
	"trade_engine/pkg/logger"
)

// ErrRiskBreach marks refusals driven by the portfolio risk rules.
var ErrRiskBreach = errors.New("risk limit breached")

type Config struct {
	RiskPct              float64
	StopLossPct          float64
	TakeProfitPct        float64
	TrailingStopPct      float64
	MaxPositions         int
	MaxDailyLossPct      float64
	MaxDrawdownPct       float64
	CorrelationThreshold float64
	UpdateInterval       time.Duration
	Leverage             int
}

type pairSub struct {
	refs   int
	cancel func()
}

// Manager runs one update loop over all registered strategies. Exit
// checks always run before new entries within a cycle; "position
// already open" short-circuits entry work so overlapping ticks cannot
// double-open.
type Manager struct {
	cfg        Config
	gw         exchange.Gateway
	feed       feed.Feed
	gen        *signal.Generator
	events     *bus.Bus
	rec        journal.Recorder
	notifier   notify.Notifier
	tickers    sched.Factory
	alerts     *alert.Book
	correlated CorrelationFunc

	mu         sync.Mutex
	running    bool
	cancel     context.CancelFunc
	done       chan struct{}
	strategies map[string]models.Strategy
	positions  map[string]*models.Position // keyed by strategy id
	subs       map[string]*pairSub

	balance float64
	peak    float64
	day     models.DailyStats
	breach  error

	now func() time.Time
}

func New(cfg Config, gw exchange.Gateway, f feed.Feed, gen *signal.Generator, events *bus.Bus, rec journal.Recorder, notifier notify.Notifier, tickers sched.Factory, alerts *alert.Book) *Manager {
	if cfg.UpdateInterval <= 0 {
		cfg.UpdateInterval = 5 * time.Second
	}
	if tickers == nil {
		tickers = sched.Wall
	}
	if notifier == nil {
		notifier = notify.NewStdout()
	}
	return &Manager{
		cfg:        cfg,
		gw:         gw,
		feed:       f,
		gen:        gen,
		events:     events,
		rec:        rec,
		notifier:   notifier,
		tickers:    tickers,
		alerts:     alerts,
		correlated: DefaultCorrelation,
		strategies: make(map[string]models.Strategy),
		positions:  make(map[string]*models.Position),
		subs:       make(map[string]*pairSub),
		now:        time.Now,
	}
}

// SetCorrelation replaces the pair correlation policy. Must be called
// before Start.
func (m *Manager) SetCorrelation(f CorrelationFunc) {
	if f != nil {
		m.correlated = f
	}
}

// AddStrategy registers a strategy. While running, the pair's price
// subscription is acquired immediately.
func (m *Manager) AddStrategy(st models.Strategy) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.strategies[st.ID]; ok {
		return errors.Errorf("strategy %s already registered", st.ID)
	}
	m.strategies[st.ID] = st
	if m.running {
		m.acquireSub(st.Pair)
	}
	logger.Info("manager: registered %s (%s on %s)", st.ID, st.Type, st.Pair)
	return nil
}

// RemoveStrategy deregisters a strategy. The pair feed is released only
// when no remaining strategy references it. An open position for the
// strategy keeps being exit-managed until it closes.
func (m *Manager) RemoveStrategy(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.strategies[id]
	if !ok {
		return
	}
	delete(m.strategies, id)
	if m.running {
		m.releaseSub(st.Pair)
	}
	logger.Info("manager: removed %s", id)
}

// Start brings up the update loop and the pair subscriptions for every
// registered strategy. The day's starting balance is taken from the
// gateway snapshot.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return nil
	}

	bal, err := m.gw.GetAccountBalance(ctx)
	if err != nil {
		return errors.Wrap(err, "manager: starting balance")
	}

	runCtx, cancel := context.WithCancel(context.Background())
	m.running = true
	m.cancel = cancel
	m.done = make(chan struct{})
	m.balance = bal.Equity
	m.breach = nil
	if m.balance > m.peak {
		m.peak = m.balance
	}
	m.day = models.DailyStats{
		Date:         m.now().UTC().Format("2006-01-02"),
		StartBalance: m.balance,
	}

	for _, st := range m.strategies {
		m.acquireSub(st.Pair)
	}

	liq, cancelLiq := m.events.LiquidationWarnings.Subscribe()
	go m.watchLiquidations(liq)

	go m.loop(runCtx, cancelLiq)
	logger.Info("manager: running, balance %.2f, interval %s", m.balance, m.cfg.UpdateInterval)
	return nil
}

// Stop is idempotent. It releases every feed subscription and the
// update ticker; open positions stay tracked in memory and resume exit
// management on the next Start.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	cancel, done := m.cancel, m.done
	for pair, sub := range m.subs {
		sub.cancel()
		delete(m.subs, pair)
	}
	m.mu.Unlock()

	cancel()
	<-done
	logger.Info("manager: stopped")
}

// Running reports the service state.
func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// OpenPositions snapshots the currently open positions.
func (m *Manager) OpenPositions() []models.Position {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Position, 0, len(m.positions))
	for _, p := range m.positions {
		out = append(out, *p)
	}
	return out
}

// DailyStats snapshots the current day accumulator.
func (m *Manager) DailyStats() models.DailyStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.day
}

func (m *Manager) loop(ctx context.Context, cancelLiq func()) {
	defer close(m.done)
	defer cancelLiq()

	t := m.tickers(m.cfg.UpdateInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C():
			m.update(ctx)
		}
	}
}

// update is one cycle: day rollover, circuit breakers, exits for every
// open position, then entries for strategies that have none.
func (m *Manager) update(ctx context.Context) {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.rolloverDayLocked()
	if reason := m.breachedLocked(); reason != "" {
		m.mu.Unlock()
		m.trip(reason)
		return
	}

	// Exits first.
	for id, pos := range m.positions {
		px, ok := m.feed.LatestPrice(pos.Symbol)
		if !ok {
			continue
		}
		m.manageExitLocked(ctx, id, pos, px)
	}

	open := len(m.positions)
	var idle []models.Strategy
	for id, st := range m.strategies {
		if _, has := m.positions[id]; !has {
			idle = append(idle, st)
		}
	}
	m.mu.Unlock()

	if open >= m.cfg.MaxPositions {
		return
	}

	for _, st := range idle {
		if m.tryEnter(ctx, st) {
			open++
			if open >= m.cfg.MaxPositions {
				return
			}
		}
	}
}

// tryEnter generates a signal for an idle strategy and opens a sized
// position when one fires. Returns true when a position was opened.
func (m *Manager) tryEnter(ctx context.Context, st models.Strategy) bool {
	candles, err := m.gw.GetMarketData(ctx, st.Pair)
	if err != nil {
		logger.Warn("manager: market data for %s: %v", st.Pair, err)
		return false
	}

	sig := m.gen.Generate(st, candles)
	if sig.Side != models.SideBuy && sig.Side != models.SideSell {
		return false
	}

	m.mu.Lock()
	// Overlap guard: a previous cycle may have opened meanwhile.
	if _, has := m.positions[st.ID]; has {
		m.mu.Unlock()
		return false
	}
	size, stop, take := m.sizeEntryLocked(st, sig.Side)
	m.mu.Unlock()
	if size <= 0 {
		return false
	}

	return m.openPosition(ctx, st, sig, size, stop, take)
}

func (m *Manager) openPosition(ctx context.Context, st models.Strategy, sig models.Signal, size, stop, take float64) bool {
	orderSide := models.OrderBuy
	posSide := models.PositionLong
	if sig.Side == models.SideSell {
		orderSide = models.OrderSell
		posSide = models.PositionShort
	}

	order, err := m.gw.PlaceOrder(ctx, st.Pair, orderSide, models.OrderMarket, size, 0)
	if err != nil {
		logger.Error("manager: order for %s failed: %v", st.ID, err)
		m.notifier.Sendf("order failed for %s on %s: %v", st.ID, st.Pair, err)
		return false
	}
	entry := sig.Price
	if order.Price > 0 {
		entry = order.Price
	}

	condSide := models.OrderSell
	if posSide == models.PositionShort {
		condSide = models.OrderBuy
	}
	if _, err := m.gw.PlaceConditionalOrder(ctx, st.Pair, condSide, models.ConditionalStop, size, stop); err != nil {
		logger.Warn("manager: stop order for %s: %v", st.ID, err)
	}
	if take > 0 {
		if _, err := m.gw.PlaceConditionalOrder(ctx, st.Pair, condSide, models.ConditionalTakeProfit, size, take); err != nil {
			logger.Warn("manager: take-profit order for %s: %v", st.ID, err)
		}
	}

	pos := &models.Position{
		StrategyID:    st.ID,
		Symbol:        st.Pair,
		Side:          posSide,
		Size:          size,
		Entry:         entry,
		Mark:          entry,
		Leverage:      m.leverageFor(st),
		Status:        models.PositionOpen,
		StopLoss:      stop,
		TakeProfit:    take,
		HighWaterMark: entry,
		OpenedAt:      m.now().UTC(),
	}

	m.mu.Lock()
	m.positions[st.ID] = pos
	m.mu.Unlock()

	m.record(ctx, models.TradeJournalEntry{
		StrategyID: st.ID,
		Pair:       st.Pair,
		Action:     models.JournalOpen,
		Side:       posSide,
		Size:       size,
		Price:      entry,
		Reason:     sig.Reason,
		At:         pos.OpenedAt,
	})
	m.events.PositionUpdates.Publish(*pos)
	m.notifier.Sendf("opened %s %s size %.4f at %.4f (%s)", posSide, st.Pair, size, entry, sig.Reason)
	logger.Info("manager: opened %s %s for %s at %.4f", posSide, st.Pair, st.ID, entry)
	return true
}

func (m *Manager) leverageFor(st models.Strategy) int {
	if st.Params.Leverage > 0 {
		return st.Params.Leverage
	}
	if m.cfg.Leverage > 0 {
		return m.cfg.Leverage
	}
	return 1
}

func (m *Manager) record(ctx context.Context, e models.TradeJournalEntry) {
	if m.rec == nil {
		return
	}
	if err := m.rec.Record(ctx, e); err != nil {
		logger.Warn("manager: journal: %v", err)
	}
}

// trip stops the service after a circuit breaker fires. No
// auto-restart; an operator call to Start resumes.
func (m *Manager) trip(reason string) {
	logger.Error("manager: circuit breaker: %s", reason)
	m.notifier.Sendf("circuit breaker tripped: %s, trading stopped", reason)
	m.mu.Lock()
	m.breach = errors.Wrap(ErrRiskBreach, reason)
	m.mu.Unlock()
	m.stopFromLoop()
}

// Breach returns why the last circuit breaker stopped the service, or
// nil. Cleared by Start.
func (m *Manager) Breach() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.breach
}

// stopFromLoop releases subscriptions and flips the service state
// without joining the loop goroutine (which is the caller).
func (m *Manager) stopFromLoop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	cancel := m.cancel
	for pair, sub := range m.subs {
		sub.cancel()
		delete(m.subs, pair)
	}
	m.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (m *Manager) acquireSub(pair string) {
	if s, ok := m.subs[pair]; ok {
		s.refs++
		return
	}
	ch, cancel := m.feed.Subscribe(pair)
	m.subs[pair] = &pairSub{refs: 1, cancel: cancel}
	go m.consumeTicks(ch)
}

func (m *Manager) releaseSub(pair string) {
	s, ok := m.subs[pair]
	if !ok {
		return
	}
	s.refs--
	if s.refs <= 0 {
		s.cancel()
		delete(m.subs, pair)
	}
}

func (m *Manager) consumeTicks(ch <-chan models.Tick) {
	for tick := range ch {
		m.onTick(tick)
	}
}

func (m *Manager) watchLiquidations(ch <-chan models.LiquidationWarning) {
	for w := range ch {
		m.onLiquidationWarning(w)
	}
}
