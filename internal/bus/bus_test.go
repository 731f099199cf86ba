package bus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade_engine/internal/models"
)

func TestTopicDeliver(t *testing.T) {
	b := New()
	ch, cancel := b.PositionUpdates.Subscribe()
	defer cancel()

	b.PositionUpdates.Publish(models.Position{Symbol: "BTC-USDT"})

	require.Len(t, ch, 1)
	p := <-ch
	assert.Equal(t, "BTC-USDT", p.Symbol)
}

func TestTopicCancelStopsDelivery(t *testing.T) {
	topic := NewTopic[int]()
	ch, cancel := topic.Subscribe()
	cancel()
	cancel() // idempotent

	topic.Publish(1)
	_, open := <-ch
	assert.False(t, open)
}

func TestTopicDropsWhenFull(t *testing.T) {
	topic := NewTopic[int]()
	ch, cancel := topic.Subscribe()
	defer cancel()

	for i := 0; i < subscriberBuffer+10; i++ {
		topic.Publish(i)
	}
	// Publishing past the buffer must not block; overflow is dropped.
	assert.Len(t, ch, subscriberBuffer)
}
