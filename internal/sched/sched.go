// Package sched abstracts the tick source behind the polling loops so
// the update cadence is owned by the caller and tests can drive ticks
// deterministically.
package sched

import "time"

type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// Factory builds a Ticker for the given period. Production code passes
// Wall; tests pass a factory returning a Manual ticker.
type Factory func(period time.Duration) Ticker

type wallTicker struct {
	t *time.Ticker
}

// Wall is the wall-clock Factory.
func Wall(period time.Duration) Ticker {
	return &wallTicker{t: time.NewTicker(period)}
}

func (w *wallTicker) C() <-chan time.Time { return w.t.C }

func (w *wallTicker) Stop() { w.t.Stop() }

// Manual is a hand-driven ticker for tests.
type Manual struct {
	ch chan time.Time
}

func NewManual() *Manual {
	return &Manual{ch: make(chan time.Time, 1)}
}

func (m *Manual) C() <-chan time.Time { return m.ch }

func (m *Manual) Stop() {}

// Tick fires one tick, blocking until the loop picks it up or the
// buffer has room.
func (m *Manual) Tick() {
	m.ch <- time.Now()
}
