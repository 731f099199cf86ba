package alert

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade_engine/internal/models"
)

func TestAlertFiresOnce(t *testing.T) {
	b := NewBook()
	b.Add("BTC-USDT", 50000, models.AlertAbove)

	fired := b.Check("BTC-USDT", 49000)
	assert.Empty(t, fired)

	fired = b.Check("BTC-USDT", 51000)
	require.Len(t, fired, 1)
	assert.True(t, fired[0].Triggered)

	// Same condition again: already spent.
	fired = b.Check("BTC-USDT", 52000)
	assert.Empty(t, fired)
}

func TestAlertBelowAndPairScoping(t *testing.T) {
	b := NewBook()
	b.Add("ETH-USDT", 3000, models.AlertBelow)

	assert.Empty(t, b.Check("BTC-USDT", 1000)) // other pair
	assert.Len(t, b.Check("ETH-USDT", 2900), 1)
}
