// Package alert tracks user price alerts. An alert fires at most once
// and is independent of any position.
package alert

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"trade_engine/internal/models"
	"trade_engine/pkg/logger"
)

type Book struct {
	mu     sync.Mutex
	alerts map[string]*models.PriceAlert
}

func NewBook() *Book {
	return &Book{alerts: make(map[string]*models.PriceAlert)}
}

func (b *Book) Add(pair string, threshold float64, dir models.AlertDirection) models.PriceAlert {
	a := models.PriceAlert{
		ID:        uuid.NewString(),
		Pair:      pair,
		Threshold: threshold,
		Direction: dir,
		CreatedAt: time.Now().UTC(),
	}
	b.mu.Lock()
	b.alerts[a.ID] = &a
	b.mu.Unlock()
	return a
}

func (b *Book) Remove(id string) {
	b.mu.Lock()
	delete(b.alerts, id)
	b.mu.Unlock()
}

// Check evaluates all alerts for the pair against a price and returns
// the ones that fired. A fired alert never fires again.
func (b *Book) Check(pair string, price float64) []models.PriceAlert {
	b.mu.Lock()
	defer b.mu.Unlock()

	var fired []models.PriceAlert
	for _, a := range b.alerts {
		if a.Triggered || a.Pair != pair {
			continue
		}
		hit := (a.Direction == models.AlertAbove && price >= a.Threshold) ||
			(a.Direction == models.AlertBelow && price <= a.Threshold)
		if !hit {
			continue
		}
		a.Triggered = true
		logger.Info("price alert fired: %s %s %.5f (price %.5f)", a.Pair, a.Direction, a.Threshold, price)
		fired = append(fired, *a)
	}
	return fired
}
