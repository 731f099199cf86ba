// Package journal is the append-only record of fills. Entries are
// immutable once recorded; reporting and demo/backtest aggregation read
// them back out.
package journal

import (
	"context"
	"sync"

	"trade_engine/internal/models"
)

type Recorder interface {
	Record(ctx context.Context, e models.TradeJournalEntry) error
	Entries(ctx context.Context) ([]models.TradeJournalEntry, error)
}

// Memory keeps the journal in process; the live app layers Postgres on
// top of it when a DSN is configured.
type Memory struct {
	mu      sync.Mutex
	entries []models.TradeJournalEntry
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Record(ctx context.Context, e models.TradeJournalEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

func (m *Memory) Entries(ctx context.Context) ([]models.TradeJournalEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.TradeJournalEntry, len(m.entries))
	copy(out, m.entries)
	return out, nil
}
