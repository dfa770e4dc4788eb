package ledger

import (
	"trader-sim/internal/model"
)

// Snapshot is a point-in-time read-only view of the ledger, valued at one
// price snapshot. Risk checks and the subsequent execution must use the same
// Snapshot so no re-fetch can slip between check and mutate.
type Snapshot struct {
	Cash       float64
	Holdings   map[string]model.Holding
	TotalValue float64
	Day        int
}

// Snapshot captures the current ledger state valued at prices. Symbols
// missing from prices fall back to their average price, matching
// HoldingsValue.
func (l *Ledger) Snapshot(prices map[string]float64) Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	holdings := make(map[string]model.Holding, len(l.holdings))
	for sym, h := range l.holdings {
		holdings[sym] = h
	}
	return Snapshot{
		Cash:       l.cash,
		Holdings:   holdings,
		TotalValue: l.cash + l.holdingsValue(prices),
		Day:        l.day,
	}
}
