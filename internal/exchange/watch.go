package exchange

import (
	"context"
	"math"
	"time"

	"trade_engine/internal/bus"
	"trade_engine/internal/models"
	"trade_engine/internal/sched"
	"trade_engine/pkg/logger"
)

const (
	accountPollInterval = 10 * time.Second

	// Positions closer to liquidation than this fraction of the mark
	// price get a warning on the bus. Consumers apply their own,
	// tighter force-close thresholds on top.
	liquidationAlertDistance = 0.10
)

// Watcher polls the venue account state and republishes it as the
// push-style events the core consumes: liquidation warnings per
// at-risk position and margin updates on change.
type Watcher struct {
	gw      Gateway
	events  *bus.Bus
	tickers sched.Factory
	poll    time.Duration
	now     func() time.Time

	lastMargin *models.MarginUpdate
}

func NewWatcher(gw Gateway, events *bus.Bus, tickers sched.Factory) *Watcher {
	return &Watcher{
		gw:      gw,
		events:  events,
		tickers: tickers,
		poll:    accountPollInterval,
		now:     time.Now,
	}
}

// Run polls until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	ticker := w.tickers(w.poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			w.pollOnce(ctx)
		}
	}
}

func (w *Watcher) pollOnce(ctx context.Context) {
	at := w.now().UTC()

	positions, err := w.gw.GetPositions(ctx)
	if err != nil {
		logger.Warn("account watch: positions: %v", err)
	}
	for _, p := range positions {
		if p.LiqPrice <= 0 || p.MarkPrice <= 0 {
			continue
		}
		distance := math.Abs(p.MarkPrice-p.LiqPrice) / p.MarkPrice
		if distance >= liquidationAlertDistance {
			continue
		}
		logger.Warn("account watch: %s %s is %.2f%% from liquidation", p.Pair, p.Side, distance*100)
		w.events.LiquidationWarnings.Publish(models.LiquidationWarning{
			Pair:     p.Pair,
			Side:     p.Side,
			Distance: distance,
			At:       at,
		})
	}

	bal, err := w.gw.GetAccountBalance(ctx)
	if err != nil {
		logger.Warn("account watch: balance: %v", err)
		return
	}
	update := models.MarginUpdate{
		Equity:      bal.Equity,
		UsedMargin:  bal.Total - bal.Available,
		MarginRatio: lowestMarginRatio(positions),
		At:          at,
	}
	if w.lastMargin != nil && sameMargin(*w.lastMargin, update) {
		return
	}
	w.lastMargin = &update
	w.events.MarginUpdates.Publish(update)
}

// lowestMarginRatio picks the riskiest position's ratio; the venue
// liquidates when a ratio falls below 1.
func lowestMarginRatio(positions []AccountPosition) float64 {
	ratio := 0.0
	for _, p := range positions {
		if p.MarginRatio <= 0 {
			continue
		}
		if ratio == 0 || p.MarginRatio < ratio {
			ratio = p.MarginRatio
		}
	}
	return ratio
}

func sameMargin(a, b models.MarginUpdate) bool {
	return a.Equity == b.Equity && a.UsedMargin == b.UsedMargin && a.MarginRatio == b.MarginRatio
}
