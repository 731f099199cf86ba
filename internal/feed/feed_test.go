package feed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade_engine/internal/models"
)

func TestMemoryLatestPrice(t *testing.T) {
	m := NewMemory()

	_, ok := m.LatestPrice("BTC-USDT")
	assert.False(t, ok)

	m.Push(models.Tick{Pair: "BTC-USDT", Price: 50000})
	px, ok := m.LatestPrice("BTC-USDT")
	require.True(t, ok)
	assert.Equal(t, 50000.0, px)
}

func TestMemorySubscribeAndCancel(t *testing.T) {
	m := NewMemory()
	ch, cancel := m.Subscribe("ETH-USDT")

	m.Push(models.Tick{Pair: "ETH-USDT", Price: 3000})
	m.Push(models.Tick{Pair: "BTC-USDT", Price: 50000}) // other pair, not delivered

	require.Len(t, ch, 1)
	tick := <-ch
	assert.Equal(t, 3000.0, tick.Price)

	cancel()
	cancel() // idempotent
	_, open := <-ch
	assert.False(t, open)
}

func TestMemoryCancelDuringPush(t *testing.T) {
	m := NewMemory()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 2000; i++ {
			m.Push(models.Tick{Pair: "BTC-USDT", Price: float64(i)})
		}
	}()

	// Churn subscriptions against the pushing goroutine. Closing a
	// channel while Push is delivering to it would panic the process.
	for i := 0; i < 2000; i++ {
		_, cancel := m.Subscribe("BTC-USDT")
		cancel()
	}
	<-done

	px, ok := m.LatestPrice("BTC-USDT")
	require.True(t, ok)
	assert.Equal(t, 1999.0, px)
}
