package models

import "time"

// ClosedTrade is one completed round trip in a backtest or demo run.
type ClosedTrade struct {
	Pair       string       `json:"pair"`
	Side       PositionSide `json:"side"`
	Size       float64      `json:"size"`
	EntryPrice float64      `json:"entry_price"`
	ExitPrice  float64      `json:"exit_price"`
	EntryTime  time.Time    `json:"entry_time"`
	ExitTime   time.Time    `json:"exit_time"`
	PnL        float64      `json:"pnl"`
	Reason     string       `json:"reason"`
}

type BalancePoint struct {
	Time    time.Time `json:"time"`
	Balance float64   `json:"balance"`
}

// BacktestMetrics are derived from the completed trade list only.
type BacktestMetrics struct {
	ProfitFactor   float64 `json:"profit_factor"`
	RecoveryFactor float64 `json:"recovery_factor"`
	Volatility     float64 `json:"volatility"`
	AvgWin         float64 `json:"avg_win"`
	AvgLoss        float64 `json:"avg_loss"`
	LargestWin     float64 `json:"largest_win"`
	LargestLoss    float64 `json:"largest_loss"`
	MaxDrawdown    float64 `json:"max_drawdown"`
	SharpeRatio    float64 `json:"sharpe_ratio"`
}

type BacktestResult struct {
	StrategyID     string          `json:"strategy_id"`
	InitialBalance float64         `json:"initial_balance"`
	FinalBalance   float64         `json:"final_balance"`
	Trades         []ClosedTrade   `json:"trades"`
	BalanceHistory []BalancePoint  `json:"balance_history"`
	TotalTrades    int             `json:"total_trades"`
	Wins           int             `json:"wins"`
	Losses         int             `json:"losses"`
	WinRate        float64         `json:"win_rate"`
	Metrics        BacktestMetrics `json:"metrics"`
}
