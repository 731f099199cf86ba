package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade_engine/internal/models"
)

const strategiesYAML = `
risk_pct: 2.0
strategies:
  - id: btc-trend
    name: BTC trend follower
    type: ma_crossover
    pair: BTC-USDT
    params:
      short_period: 9
      long_period: 21
  - id: eth-rsi
    type: rsi
    pair: ETH-USDT
    params:
      period: 14
      oversold: 30
      overbought: 70
demo:
  enabled: true
  strategy:
    id: sol-demo
    type: breakout
    pair: SOL-USDT
    params:
      lookback: 20
      threshold_pct: 2.5
`

func writeConfigFile(t *testing.T, content string) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "configs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "configs", "values_test.yaml"), []byte(content), 0o644))
	t.Chdir(dir)
	t.Setenv(configFilePathENV, "values_test.yaml")
}

func TestNewConfigLoadsStrategies(t *testing.T) {
	writeConfigFile(t, strategiesYAML)

	cfg, err := NewConfig()
	require.NoError(t, err)

	require.Len(t, cfg.Strategies, 2)
	assert.Equal(t, "btc-trend", cfg.Strategies[0].ID)
	assert.Equal(t, models.StrategyMACrossover, cfg.Strategies[0].Type)
	assert.Equal(t, "BTC-USDT", cfg.Strategies[0].Pair)
	assert.Equal(t, 9, cfg.Strategies[0].Params.ShortPeriod)
	assert.Equal(t, 21, cfg.Strategies[0].Params.LongPeriod)
	assert.Equal(t, models.StrategyRSI, cfg.Strategies[1].Type)
	assert.Equal(t, 30.0, cfg.Strategies[1].Params.Oversold)

	require.True(t, cfg.Demo.Enabled)
	assert.Equal(t, "sol-demo", cfg.Demo.Strategy.ID)
	assert.Equal(t, models.StrategyBreakout, cfg.Demo.Strategy.Type)
	assert.Equal(t, 2.5, cfg.Demo.Strategy.Params.ThresholdPct)

	// File values override env defaults.
	assert.Equal(t, 2.0, cfg.RiskPct)
}

func TestNewConfigDefaultsWithoutFile(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Empty(t, cfg.Strategies)
	assert.False(t, cfg.Demo.Enabled)
	assert.Equal(t, 1.0, cfg.RiskPct)
	assert.Equal(t, 5, cfg.MaxPositions)
}
