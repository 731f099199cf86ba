// Command backtest replays a strategy over a historical window and
// prints the resulting metrics. Settings come from a yaml config file
// (first argument or ./backtest.yaml) with BT_* env overrides.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"trade_engine/internal/backtest"
	"trade_engine/internal/exchange"
	"trade_engine/internal/models"
	"trade_engine/internal/signal"
	"trade_engine/pkg/logger"
)

func main() {
	if err := logger.Init(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger.SetServiceName("backtest")

	if err := run(); err != nil {
		logger.Fatal("%v", err)
	}
}

func run() error {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("BT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if len(os.Args) > 1 {
		v.SetConfigFile(os.Args[1])
		if err := v.ReadInConfig(); err != nil {
			return errors.Wrap(err, "read config")
		}
	} else {
		v.SetConfigName("backtest")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return errors.Wrap(err, "read config")
			}
		}
	}

	st, err := strategyFrom(v)
	if err != nil {
		return err
	}
	cfg, err := configFrom(v)
	if err != nil {
		return err
	}
	gw, err := gatewayFrom(v)
	if err != nil {
		return err
	}

	r := backtest.NewRunner(gw, signal.NewGenerator())
	ctx := context.Background()

	if v.GetBool("improve") {
		improved, res, err := r.Improve(ctx, st, cfg)
		if err != nil {
			return err
		}
		printResult(res)
		if improved != nil {
			fmt.Printf("\nimproved variant %s: %+v\n", improved.ID, improved.Params)
		} else {
			fmt.Println("\nno parameter variant beat the baseline")
		}
		return nil
	}

	res, err := r.Run(ctx, st, cfg)
	if err != nil {
		return err
	}
	printResult(res)
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("strategy.type", string(models.StrategyMACrossover))
	v.SetDefault("strategy.pair", "BTC-USDT")
	v.SetDefault("strategy.short_period", 9)
	v.SetDefault("strategy.long_period", 21)
	v.SetDefault("strategy.period", 14)
	v.SetDefault("strategy.oversold", 30)
	v.SetDefault("strategy.overbought", 70)
	v.SetDefault("strategy.fast_period", 12)
	v.SetDefault("strategy.slow_period", 26)
	v.SetDefault("strategy.signal_period", 9)
	v.SetDefault("strategy.std_dev_mult", 2.0)
	v.SetDefault("strategy.lookback", 20)
	v.SetDefault("strategy.threshold_pct", 1.0)
	v.SetDefault("balance", 10000.0)
	v.SetDefault("fee_rate", 0.001)
	v.SetDefault("slippage", 0.0005)
	v.SetDefault("risk_pct", 1.0)
	v.SetDefault("start", time.Now().UTC().AddDate(0, -1, 0).Format("2006-01-02"))
	v.SetDefault("end", time.Now().UTC().Format("2006-01-02"))
}

func strategyFrom(v *viper.Viper) (models.Strategy, error) {
	typ := models.StrategyType(v.GetString("strategy.type"))
	st := models.Strategy{
		ID:        v.GetString("strategy.id"),
		Name:      v.GetString("strategy.name"),
		Type:      typ,
		Pair:      v.GetString("strategy.pair"),
		CreatedAt: time.Now().UTC(),
		Params: models.StrategyParams{
			ShortPeriod:  v.GetInt("strategy.short_period"),
			LongPeriod:   v.GetInt("strategy.long_period"),
			Period:       v.GetInt("strategy.period"),
			Oversold:     v.GetFloat64("strategy.oversold"),
			Overbought:   v.GetFloat64("strategy.overbought"),
			FastPeriod:   v.GetInt("strategy.fast_period"),
			SlowPeriod:   v.GetInt("strategy.slow_period"),
			SignalPeriod: v.GetInt("strategy.signal_period"),
			StdDevMult:   v.GetFloat64("strategy.std_dev_mult"),
			Lookback:     v.GetInt("strategy.lookback"),
			ThresholdPct: v.GetFloat64("strategy.threshold_pct"),
		},
	}
	if st.ID == "" {
		st.ID = fmt.Sprintf("%s-%s", typ, strings.ToLower(st.Pair))
	}
	return st, nil
}

func configFrom(v *viper.Viper) (backtest.Config, error) {
	start, err := parseDate(v.GetString("start"))
	if err != nil {
		return backtest.Config{}, errors.Wrap(err, "start")
	}
	end, err := parseDate(v.GetString("end"))
	if err != nil {
		return backtest.Config{}, errors.Wrap(err, "end")
	}
	return backtest.Config{
		Start:          start,
		End:            end,
		InitialBalance: v.GetFloat64("balance"),
		FeeRate:        v.GetFloat64("fee_rate"),
		Slippage:       v.GetFloat64("slippage"),
		RiskPct:        v.GetFloat64("risk_pct"),
	}, nil
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

// gatewayFrom builds the data source: the venue client, or a mock
// loaded from a candles file for offline runs.
func gatewayFrom(v *viper.Viper) (exchange.Gateway, error) {
	if file := v.GetString("candles_file"); file != "" {
		raw, err := os.ReadFile(file)
		if err != nil {
			return nil, errors.Wrap(err, "read candles file")
		}
		var candles []models.Candle
		if err := sonic.Unmarshal(raw, &candles); err != nil {
			return nil, errors.Wrap(err, "parse candles file")
		}
		if len(candles) == 0 {
			return nil, errors.New("candles file is empty")
		}
		mock := exchange.NewMock(v.GetFloat64("balance"))
		mock.SetCandles(candles[0].Pair, candles)
		return mock, nil
	}

	return exchange.NewClient(exchange.ClientConfig{
		BaseURL:    v.GetString("exchange.base_url"),
		APIKey:     v.GetString("exchange.api_key"),
		APISecret:  v.GetString("exchange.api_secret"),
		Passphrase: v.GetString("exchange.passphrase"),
	}), nil
}

func printResult(res *models.BacktestResult) {
	fmt.Printf("strategy:       %s\n", res.StrategyID)
	fmt.Printf("balance:        %.2f -> %.2f\n", res.InitialBalance, res.FinalBalance)
	fmt.Printf("trades:         %d (%d wins / %d losses, win rate %.1f%%)\n",
		res.TotalTrades, res.Wins, res.Losses, res.WinRate*100)
	fmt.Printf("profit factor:  %.2f\n", res.Metrics.ProfitFactor)
	fmt.Printf("recovery:       %.2f\n", res.Metrics.RecoveryFactor)
	fmt.Printf("sharpe:         %.2f\n", res.Metrics.SharpeRatio)
	fmt.Printf("max drawdown:   %.2f\n", res.Metrics.MaxDrawdown)
	fmt.Printf("volatility:     %.2f\n", res.Metrics.Volatility)
	fmt.Printf("avg win/loss:   %.2f / %.2f\n", res.Metrics.AvgWin, res.Metrics.AvgLoss)
	fmt.Printf("largest:        %.2f / %.2f\n", res.Metrics.LargestWin, res.Metrics.LargestLoss)
}
