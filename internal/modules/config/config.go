package config

import (
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"trade_engine/internal/models"
)

const (
	configFilePathENV = "CONFIG_FILE"
	tokenTelegramENV  = "TELEGRAM_TOKEN"
	databaseDSN       = "DATABASE_DSN"
	exchangeKeyENV    = "EXCHANGE_API_KEY"
	exchangeSecretENV = "EXCHANGE_API_SECRET"
	exchangePassENV   = "EXCHANGE_PASSPHRASE"
)

// Config ...
type Config struct {
	Telegram struct {
		Token  string `yaml:"token"`
		ChatID int64  `yaml:"chat_id"`
	} `yaml:"telegram"`
	DB string `yaml:"db_dsn"`

	Exchange struct {
		APIKey     string `yaml:"api_key"`
		APISecret  string `yaml:"api_secret"`
		Passphrase string `yaml:"passphrase"`
		BaseURL    string `yaml:"base_url"`
		WSEndpoint string `yaml:"ws_endpoint"`
		Mock       bool   `yaml:"mock"`
	} `yaml:"exchange"`

	// Strategies are registered with the position manager at startup;
	// an empty list boots the bot idle.
	Strategies []models.Strategy `yaml:"strategies"`

	// Demo starts a paper-trading validation run for one strategy
	// alongside live trading.
	Demo struct {
		Enabled  bool            `yaml:"enabled"`
		Strategy models.Strategy `yaml:"strategy"`
	} `yaml:"demo"`

	Jaeger struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"jaeger"`

	// Risk / live trading
	RiskPct              float64       `yaml:"risk_pct"`       // % of equity risked per trade, e.g. 1.0
	StopLossPct          float64       `yaml:"stop_loss_pct"`  // SL distance from entry, e.g. 2.0
	TakeProfitPct        float64       `yaml:"take_profit_pct"`
	TrailingStopPct      float64       `yaml:"trailing_stop_pct"`
	MaxPositions         int           `yaml:"max_positions"`
	MaxDailyLossPct      float64       `yaml:"max_daily_loss_pct"` // circuit breaker
	MaxDrawdownPct       float64       `yaml:"max_drawdown_pct"`   // circuit breaker
	CorrelationThreshold float64       `yaml:"correlation_threshold"`
	UpdateInterval       time.Duration `yaml:"update_interval"`
	Leverage             int           `yaml:"leverage"`

	// Demo validation
	DemoPollInterval time.Duration `yaml:"demo_poll_interval"`

	// Backtest defaults
	BacktestInitialBalance float64 `yaml:"backtest_initial_balance"`
	BacktestFeeRate        float64 `yaml:"backtest_fee_rate"`
	BacktestSlippage       float64 `yaml:"backtest_slippage"`
}

func NewConfig() (*Config, error) {
	config := Config{
		RiskPct:              floatFromEnv("RISK_PCT", 1.0),
		StopLossPct:          floatFromEnv("STOP_LOSS_PCT", 2.0),
		TakeProfitPct:        floatFromEnv("TAKE_PROFIT_PCT", 4.0),
		TrailingStopPct:      floatFromEnv("TRAILING_STOP_PCT", 1.5),
		MaxPositions:         intFromEnv("MAX_POSITIONS", 5),
		MaxDailyLossPct:      floatFromEnv("MAX_DAILY_LOSS_PCT", 5.0),
		MaxDrawdownPct:       floatFromEnv("MAX_DRAWDOWN_PCT", 15.0),
		CorrelationThreshold: floatFromEnv("CORRELATION_THRESHOLD", 0.7),
		UpdateInterval:       durationFromEnv("UPDATE_INTERVAL", "5s"),
		Leverage:             intFromEnv("LEVERAGE", 1),

		DemoPollInterval: durationFromEnv("DEMO_POLL_INTERVAL", "5s"),

		BacktestInitialBalance: floatFromEnv("BACKTEST_INITIAL_BALANCE", 10000),
		BacktestFeeRate:        floatFromEnv("BACKTEST_FEE_RATE", 0.001),
		BacktestSlippage:       floatFromEnv("BACKTEST_SLIPPAGE", 0.0005),
	}

	configFileName := os.Getenv(configFilePathENV)
	if configFileName == "" {
		configFileName = "values_local.yaml"
	}
	file, err := os.Open("configs/" + configFileName)
	if err == nil {
		defer func() {
			_ = file.Close()
		}()

		if err := yaml.NewDecoder(file).Decode(&config); err != nil {
			return nil, errors.Wrap(err, "decode config file")
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "open config file")
	}

	if token := os.Getenv(tokenTelegramENV); token != "" {
		config.Telegram.Token = token
	}
	if dsn := os.Getenv(databaseDSN); dsn != "" {
		config.DB = dsn
	}
	if k := os.Getenv(exchangeKeyENV); k != "" {
		config.Exchange.APIKey = k
	}
	if s := os.Getenv(exchangeSecretENV); s != "" {
		config.Exchange.APISecret = s
	}
	if p := os.Getenv(exchangePassENV); p != "" {
		config.Exchange.Passphrase = p
	}

	if config.Exchange.BaseURL == "" {
		config.Exchange.BaseURL = "https://www.okx.com"
	}
	if config.Exchange.WSEndpoint == "" {
		config.Exchange.WSEndpoint = "wss://ws.okx.com:8443/ws/v5/business"
	}

	return &config, nil
}

func intFromEnv(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func floatFromEnv(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func durationFromEnv(key, def string) time.Duration {
	val := getenvDefault(key, def)
	d, err := time.ParseDuration(val)
	if err != nil {
		d, _ = time.ParseDuration(def)
	}
	return d
}
