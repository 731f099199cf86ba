// Package bus is the typed event fan-out between the gateway and the
// rest of the core. Subscribers get a buffered channel and a cancel
// func; publishing never blocks — events to a full subscriber are
// dropped.
package bus

import (
	"sync"

	"trade_engine/internal/models"
)

const subscriberBuffer = 16

type Topic[T any] struct {
	mu   sync.Mutex
	next int
	subs map[int]chan T
}

func NewTopic[T any]() *Topic[T] {
	return &Topic[T]{subs: make(map[int]chan T)}
}

// Subscribe registers a new consumer. The returned cancel func is
// idempotent and closes the channel.
func (t *Topic[T]) Subscribe() (<-chan T, func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	id := t.next
	t.next++
	ch := make(chan T, subscriberBuffer)
	t.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			delete(t.subs, id)
			close(ch)
		})
	}
	return ch, cancel
}

func (t *Topic[T]) Publish(v T) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, ch := range t.subs {
		select {
		case ch <- v:
		default:
		}
	}
}

// Bus groups the gateway event topics.
type Bus struct {
	PositionUpdates     *Topic[models.Position]
	LiquidationWarnings *Topic[models.LiquidationWarning]
	MarginUpdates       *Topic[models.MarginUpdate]
}

func New() *Bus {
	return &Bus{
		PositionUpdates:     NewTopic[models.Position](),
		LiquidationWarnings: NewTopic[models.LiquidationWarning](),
		MarginUpdates:       NewTopic[models.MarginUpdate](),
	}
}
