// Package backtest replays historical candles through the signal
// generator against a simulated ledger and reports aggregate
// performance.
package backtest

import (
	"context"
	"math"
	"time"

	"github.com/opentracing/opentracing-go"

	"trade_engine/internal/exchange"
	"trade_engine/internal/models"
	"trade_engine/internal/signal"
	"trade_engine/pkg/logger"
)

// Fixed protective stop distance from entry, in percent. Exits also
// fire on an opposing signal; whatever survives to the last candle is
// force-closed there.
const fixedStopPct = 2.0

type Config struct {
	Start          time.Time
	End            time.Time
	InitialBalance float64
	FeeRate        float64 // proportional, e.g. 0.001
	Slippage       float64 // fraction the fill moves against the trader
	RiskPct        float64 // % of balance risked per trade; 0 falls back to the strategy, then 1
}

type Runner struct {
	gw  exchange.Gateway
	gen *signal.Generator
}

func NewRunner(gw exchange.Gateway, gen *signal.Generator) *Runner {
	return &Runner{gw: gw, gen: gen}
}

// Run walks the window chronologically, skipping the strategy's
// required lookback, opening at most one position at a time with
// fixed-fractional risk sizing. Returns ErrDataUnavailable when the
// window holds no candles.
func (r *Runner) Run(ctx context.Context, st models.Strategy, cfg Config) (*models.BacktestResult, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "backtest.run")
	span.SetTag("strategy", st.ID)
	span.SetTag("pair", st.Pair)
	defer span.Finish()

	candles, err := r.gw.GetHistoricalData(ctx, st.Pair, cfg.Start, cfg.End)
	if err != nil {
		return nil, err
	}

	riskPct := cfg.RiskPct
	if riskPct <= 0 {
		riskPct = st.Params.RiskPct
	}
	if riskPct <= 0 {
		riskPct = 1
	}

	balance := cfg.InitialBalance
	res := &models.BacktestResult{
		StrategyID:     st.ID,
		InitialBalance: cfg.InitialBalance,
	}

	var pos *models.Position
	var openFee float64

	closeAt := func(px float64, at time.Time, reason string) {
		exit := px
		if pos.Side == models.PositionLong {
			exit *= 1 - cfg.Slippage
		} else {
			exit *= 1 + cfg.Slippage
		}
		pnl := pos.Unrealized(exit)
		exitFee := exit * pos.Size * cfg.FeeRate
		balance += pnl - exitFee

		net := pnl - exitFee - openFee
		res.Trades = append(res.Trades, models.ClosedTrade{
			Pair:       pos.Symbol,
			Side:       pos.Side,
			Size:       pos.Size,
			EntryPrice: pos.Entry,
			ExitPrice:  exit,
			EntryTime:  pos.OpenedAt,
			ExitTime:   at,
			PnL:        net,
			Reason:     reason,
		})
		pos = nil
		openFee = 0
	}

	lookback := signal.RequiredLookback(st)
	if lookback < 1 {
		lookback = 1
	}
	for i := lookback - 1; i < len(candles); i++ {
		window := candles[:i+1]
		c := candles[i]
		px := c.Close

		// Exit checks take precedence over new entries.
		if pos != nil {
			if hit := stopHit(pos, px); hit {
				closeAt(px, c.Time, "stop loss")
			} else if sig := r.gen.Generate(st, window); opposing(pos.Side, sig.Side) {
				closeAt(px, c.Time, "opposing signal: "+sig.Reason)
			}
			res.BalanceHistory = append(res.BalanceHistory, models.BalancePoint{Time: c.Time, Balance: balance})
			continue
		}

		sig := r.gen.Generate(st, window)
		if sig.Side == models.SideBuy || sig.Side == models.SideSell {
			entry := px
			side := models.PositionLong
			if sig.Side == models.SideBuy {
				entry *= 1 + cfg.Slippage
			} else {
				side = models.PositionShort
				entry *= 1 - cfg.Slippage
			}
			stop := entry * (1 - fixedStopPct/100)
			if side == models.PositionShort {
				stop = entry * (1 + fixedStopPct/100)
			}

			riskAmount := balance * riskPct / 100
			size := riskAmount / math.Abs(entry-stop)
			if size > 0 {
				openFee = entry * size * cfg.FeeRate
				balance -= openFee
				pos = &models.Position{
					StrategyID: st.ID,
					Symbol:     st.Pair,
					Side:       side,
					Size:       size,
					Entry:      entry,
					StopLoss:   stop,
					Status:     models.PositionOpen,
					OpenedAt:   c.Time,
				}
			}
		}
		res.BalanceHistory = append(res.BalanceHistory, models.BalancePoint{Time: c.Time, Balance: balance})
	}

	// Force-close whatever is still open at the final candle.
	if pos != nil && len(candles) > 0 {
		last := candles[len(candles)-1]
		closeAt(last.Close, last.Time, "end of backtest")
		res.BalanceHistory = append(res.BalanceHistory, models.BalancePoint{Time: last.Time, Balance: balance})
	}

	res.FinalBalance = balance
	res.TotalTrades = len(res.Trades)
	for _, t := range res.Trades {
		if t.PnL > 0 {
			res.Wins++
		} else {
			res.Losses++
		}
	}
	if res.TotalTrades > 0 {
		res.WinRate = float64(res.Wins) / float64(res.TotalTrades)
	}
	res.Metrics = computeMetrics(res.Trades)

	logger.Info("backtest %s/%s: %d trades, balance %.2f -> %.2f",
		st.ID, st.Pair, res.TotalTrades, res.InitialBalance, res.FinalBalance)
	return res, nil
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

// PerformanceFrom condenses a result into the summary attached to a
// strategy record.
func PerformanceFrom(res *models.BacktestResult) models.Performance {
	var total float64
	for _, t := range res.Trades {
		total += t.PnL
	}
	return models.Performance{
		TotalPnL:     total,
		WinRate:      res.WinRate,
		Trades:       res.TotalTrades,
		SharpeRatio:  res.Metrics.SharpeRatio,
		MaxDrawdown:  res.Metrics.MaxDrawdown,
		ProfitFactor: res.Metrics.ProfitFactor,
	}
}
