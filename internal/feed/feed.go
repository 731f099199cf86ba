// Package feed delivers live price ticks per pair. Subscriptions are
// refcounted by the consumer; LatestPrice returns the last value seen
// or nothing at all.
package feed

import (
	"sync"

	"trade_engine/internal/models"
)

type Feed interface {
	Subscribe(pair string) (<-chan models.Tick, func())
	LatestPrice(pair string) (float64, bool)
}

// Memory is an in-process Feed driven by Push. Used by tests and demo
// mode.
type Memory struct {
	mu     sync.RWMutex
	subs   map[string]map[chan models.Tick]struct{}
	latest map[string]float64
}

func NewMemory() *Memory {
	return &Memory{
		subs:   make(map[string]map[chan models.Tick]struct{}),
		latest: make(map[string]float64),
	}
}

func (m *Memory) Subscribe(pair string) (<-chan models.Tick, func()) {
	ch := make(chan models.Tick, 64)

	m.mu.Lock()
	if m.subs[pair] == nil {
		m.subs[pair] = make(map[chan models.Tick]struct{})
	}
	m.subs[pair][ch] = struct{}{}
	m.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			delete(m.subs[pair], ch)
			close(ch)
		})
	}
	return ch, cancel
}

func (m *Memory) LatestPrice(pair string) (float64, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	px, ok := m.latest[pair]
	return px, ok
}

// Push fans a tick out to the pair's subscribers without blocking.
// Delivery happens under the same lock that cancel closes channels
// under, so a concurrent cancel can never close a channel mid-send.
func (m *Memory) Push(t models.Tick) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latest[t.Pair] = t.Price
	for ch := range m.subs[t.Pair] {
		select {
		case ch <- t:
		default:
		}
	}
}
