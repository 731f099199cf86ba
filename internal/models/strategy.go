package models

import "time"

type StrategyType string

const (
	StrategyMACrossover StrategyType = "ma_crossover"
	StrategyRSI         StrategyType = "rsi"
	StrategyBreakout    StrategyType = "breakout"
	StrategyMACD        StrategyType = "macd"
	StrategyBollinger   StrategyType = "bollinger"
	StrategyIchimoku    StrategyType = "ichimoku"
	StrategyCandlestick StrategyType = "candlestick"
	StrategyComposite   StrategyType = "composite"
)

// CombineMode — how a composite strategy merges sub-strategy signals.
type CombineMode string

const (
	CombineAND      CombineMode = "AND"
	CombineOR       CombineMode = "OR"
	CombineWeighted CombineMode = "WEIGHTED"
)

// SubStrategy is one leg of a composite strategy. Weight is only used
// in WEIGHTED mode.
type SubStrategy struct {
	Type   StrategyType   `yaml:"type" json:"type"`
	Params StrategyParams `yaml:"params" json:"params"`
	Weight float64        `yaml:"weight" json:"weight"`
}

// StrategyParams is a flat parameter record; which fields matter depends
// on the strategy type.
type StrategyParams struct {
	// ma_crossover
	ShortPeriod int `yaml:"short_period" json:"short_period"`
	LongPeriod  int `yaml:"long_period" json:"long_period"`

	// rsi / generic single-period indicators
	Period     int     `yaml:"period" json:"period"`
	Oversold   float64 `yaml:"oversold" json:"oversold"`
	Overbought float64 `yaml:"overbought" json:"overbought"`

	// macd
	FastPeriod   int `yaml:"fast_period" json:"fast_period"`
	SlowPeriod   int `yaml:"slow_period" json:"slow_period"`
	SignalPeriod int `yaml:"signal_period" json:"signal_period"`

	// bollinger
	StdDevMult float64 `yaml:"std_dev_mult" json:"std_dev_mult"`

	// breakout
	Lookback     int     `yaml:"lookback" json:"lookback"`
	ThresholdPct float64 `yaml:"threshold_pct" json:"threshold_pct"`

	// ichimoku
	ConversionPeriod  int `yaml:"conversion_period" json:"conversion_period"`
	BasePeriod        int `yaml:"base_period" json:"base_period"`
	LaggingSpanPeriod int `yaml:"lagging_span_period" json:"lagging_span_period"`
	Displacement      int `yaml:"displacement" json:"displacement"`

	// candlestick
	Patterns    []string `yaml:"patterns" json:"patterns"`
	MinStrength float64  `yaml:"min_strength" json:"min_strength"`

	// composite
	Combine       CombineMode   `yaml:"combine" json:"combine"`
	SubStrategies []SubStrategy `yaml:"sub_strategies" json:"sub_strategies"`

	// risk / exits
	StopLossPct     float64 `yaml:"stop_loss_pct" json:"stop_loss_pct"`
	TakeProfitPct   float64 `yaml:"take_profit_pct" json:"take_profit_pct"`
	TrailingStopPct float64 `yaml:"trailing_stop_pct" json:"trailing_stop_pct"`
	RiskPct         float64 `yaml:"risk_pct" json:"risk_pct"`
	Leverage        int     `yaml:"leverage" json:"leverage"`
}

// Performance is the mutable summary attached to an otherwise immutable
// strategy record.
type Performance struct {
	TotalPnL     float64 `json:"total_pnl"`
	WinRate      float64 `json:"win_rate"`
	Trades       int     `json:"trades"`
	SharpeRatio  float64 `json:"sharpe_ratio"`
	MaxDrawdown  float64 `json:"max_drawdown"`
	ProfitFactor float64 `json:"profit_factor"`
}

type Strategy struct {
	ID        string         `yaml:"id" json:"id"`
	Name      string         `yaml:"name" json:"name"`
	Type      StrategyType   `yaml:"type" json:"type"`
	Params    StrategyParams `yaml:"params" json:"params"`
	Pair      string         `yaml:"pair" json:"pair"`
	CreatedAt time.Time      `yaml:"created_at" json:"created_at"`

	Performance *Performance `yaml:"-" json:"performance,omitempty"`
}
