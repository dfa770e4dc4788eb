// Package ledger owns the simulated account: cash, holdings, and the
// append-only transaction history.
//
// Cost basis uses average-cost accounting: buys merge into a weighted
// average, partial sells scale the cost basis proportionally and leave the
// average price untouched. Realized P&L is computed at the moment of sale
// and reported to the caller; it is never stored as ledger state.
package ledger

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"trader-sim/internal/model"
)

var (
	// ErrNoPosition is returned when selling a symbol that is not held.
	ErrNoPosition = errors.New("no position")
	// ErrInsufficientShares is returned when selling more shares than held.
	ErrInsufficientShares = errors.New("insufficient shares")
)

// Ledger is the single source of truth for account state. Methods are safe
// for concurrent readers; the system is single-writer by design.
type Ledger struct {
	mu           sync.Mutex
	startingCash float64
	store        Store

	cash         float64
	holdings     map[string]model.Holding
	transactions []model.Transaction
	day          int
	startDate    time.Time
}

// New creates a Ledger with the given starting cash, loading persisted state
// from store if present. A missing state file yields the initial state.
func New(startingCash float64, store Store) (*Ledger, error) {
	l := &Ledger{
		startingCash: startingCash,
		store:        store,
		cash:         startingCash,
		holdings:     make(map[string]model.Holding),
		day:          1,
		startDate:    time.Now(),
	}

	if store == nil {
		return l, nil
	}
	state, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load ledger state: %w", err)
	}
	if state != nil {
		l.applyState(state)
	}
	return l, nil
}

// applyState restores persisted state, defaulting missing fields to the
// initial state.
func (l *Ledger) applyState(s *State) {
	l.cash = l.startingCash
	if s.Cash != nil {
		l.cash = *s.Cash
	}
	l.holdings = make(map[string]model.Holding, len(s.Holdings))
	for sym, h := range s.Holdings {
		l.holdings[sym] = h
	}
	l.transactions = append([]model.Transaction(nil), s.Transactions...)
	l.day = s.Day
	if l.day < 1 {
		l.day = 1
	}
	l.startDate = s.StartDate
	if l.startDate.IsZero() {
		l.startDate = time.Now()
	}
}

// AddHolding applies a buy of shares at price: a new holding on first buy,
// otherwise a weighted-average merge. Shares are monotonically
// non-decreasing and cost basis is additive.
func (l *Ledger) AddHolding(symbol string, shares, price float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.addHolding(symbol, shares, price)
}

func (l *Ledger) addHolding(symbol string, shares, price float64) {
	cost := shares * price
	if existing, ok := l.holdings[symbol]; ok {
		newShares := existing.Shares + shares
		newBasis := existing.CostBasis + cost
		l.holdings[symbol] = model.Holding{
			Symbol:    symbol,
			Shares:    newShares,
			CostBasis: newBasis,
			AvgPrice:  newBasis / newShares,
		}
		return
	}
	l.holdings[symbol] = model.Holding{
		Symbol:    symbol,
		Shares:    shares,
		CostBasis: cost,
		AvgPrice:  price,
	}
}

// RemoveHolding applies a sell of shares at price and returns the realized
// P&L, (price - avgPrice) * shares. Selling the full position deletes the
// holding; a partial sell scales the cost basis by the unsold fraction so
// the average price per remaining share is preserved.
func (l *Ledger) RemoveHolding(symbol string, shares, price float64) (float64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.removeHolding(symbol, shares, price)
}

func (l *Ledger) removeHolding(symbol string, shares, price float64) (float64, error) {
	holding, ok := l.holdings[symbol]
	if !ok {
		return 0, fmt.Errorf("%w in %s", ErrNoPosition, symbol)
	}
	if shares > holding.Shares {
		return 0, fmt.Errorf("%w: have %g, trying to sell %g", ErrInsufficientShares, holding.Shares, shares)
	}

	realized := (price - holding.AvgPrice) * shares

	if shares == holding.Shares {
		delete(l.holdings, symbol)
		return realized, nil
	}

	sellRatio := shares / holding.Shares
	l.holdings[symbol] = model.Holding{
		Symbol:    symbol,
		Shares:    holding.Shares - shares,
		CostBasis: holding.CostBasis * (1 - sellRatio),
		AvgPrice:  holding.AvgPrice,
	}
	return realized, nil
}

// RecordTransaction appends an immutable transaction stamped now.
func (l *Ledger) RecordTransaction(action model.Action, symbol string, shares, price float64) model.Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.recordTransaction(action, symbol, shares, price)
}

func (l *Ledger) recordTransaction(action model.Action, symbol string, shares, price float64) model.Transaction {
	tx := model.NewTransaction(time.Now(), action, symbol, shares, price)
	l.transactions = append(l.transactions, tx)
	return tx
}

// ApplyBuy debits cash, merges the holding, and appends the transaction as
// one step under the ledger lock. Affordability is the validator's job;
// ApplyBuy assumes the trade was accepted against the same snapshot.
func (l *Ledger) ApplyBuy(symbol string, shares, price float64) model.Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.cash -= shares * price
	l.addHolding(symbol, shares, price)
	return l.recordTransaction(model.ActionBuy, symbol, shares, price)
}

// ApplySell credits the proceeds, reduces the holding, and appends the
// transaction as one step. Returns the realized P&L. On error the ledger is
// unchanged.
func (l *Ledger) ApplySell(symbol string, shares, price float64) (model.Transaction, float64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	realized, err := l.removeHolding(symbol, shares, price)
	if err != nil {
		return model.Transaction{}, 0, err
	}
	l.cash += shares * price
	return l.recordTransaction(model.ActionSell, symbol, shares, price), realized, nil
}

// Cash returns the current cash balance.
func (l *Ledger) Cash() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cash
}

// Day returns the current simulation day.
func (l *Ledger) Day() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.day
}

// StartDate returns when the simulation started.
func (l *Ledger) StartDate() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.startDate
}

// StartingCash returns the configured initial cash.
func (l *Ledger) StartingCash() float64 {
	return l.startingCash
}

// Holding returns the holding for symbol, if held.
func (l *Ledger) Holding(symbol string) (model.Holding, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	h, ok := l.holdings[symbol]
	return h, ok
}

// Holdings returns a copy of the holdings map.
func (l *Ledger) Holdings() map[string]model.Holding {
	l.mu.Lock()
	defer l.mu.Unlock()
	cp := make(map[string]model.Holding, len(l.holdings))
	for sym, h := range l.holdings {
		cp[sym] = h
	}
	return cp
}

// NumHoldings returns the number of open positions.
func (l *Ledger) NumHoldings() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.holdings)
}

// Transactions returns a copy of the transaction history.
func (l *Ledger) Transactions() []model.Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()
	cp := make([]model.Transaction, len(l.transactions))
	copy(cp, l.transactions)
	return cp
}

// TransactionCount returns the number of recorded transactions.
func (l *Ledger) TransactionCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.transactions)
}

// HoldingsValue sums shares*price per holding at the supplied prices.
// A symbol missing from prices is valued at shares*avgPrice instead of
// failing — a deliberate degrade-not-fail policy for stale valuations.
func (l *Ledger) HoldingsValue(prices map[string]float64) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return model.Round2(l.holdingsValue(prices))
}

func (l *Ledger) holdingsValue(prices map[string]float64) float64 {
	total := 0.0
	for sym, h := range l.holdings {
		if price, ok := prices[sym]; ok {
			total += h.Shares * price
		} else {
			total += h.Shares * h.AvgPrice
		}
	}
	return total
}

// TotalValue returns cash plus holdings value, rounded to 2 decimals.
func (l *Ledger) TotalValue(prices map[string]float64) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return model.Round2(l.cash + l.holdingsValue(prices))
}

// TotalReturn returns the percentage return versus starting cash.
func (l *Ledger) TotalReturn(prices map[string]float64) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	total := l.cash + l.holdingsValue(prices)
	return model.Round2((total - l.startingCash) / l.startingCash * 100)
}

// AdvanceDay increments the day counter and persists.
func (l *Ledger) AdvanceDay() error {
	l.mu.Lock()
	l.day++
	l.mu.Unlock()
	return l.Save()
}

// Reset reinitializes the ledger to the starting state, clears history, and
// persists.
func (l *Ledger) Reset() error {
	l.mu.Lock()
	l.cash = l.startingCash
	l.holdings = make(map[string]model.Holding)
	l.transactions = nil
	l.day = 1
	l.startDate = time.Now()
	l.mu.Unlock()
	return l.Save()
}

// Save persists the full ledger state (whole-state replace).
func (l *Ledger) Save() error {
	if l.store == nil {
		return nil
	}
	return l.store.Save(l.snapshotState())
}

func (l *Ledger) snapshotState() *State {
	l.mu.Lock()
	defer l.mu.Unlock()

	holdings := make(map[string]model.Holding, len(l.holdings))
	for sym, h := range l.holdings {
		holdings[sym] = h
	}
	txs := make([]model.Transaction, len(l.transactions))
	copy(txs, l.transactions)

	cash := l.cash
	return &State{
		Cash:         &cash,
		Holdings:     holdings,
		Transactions: txs,
		StartDate:    l.startDate,
		Day:          l.day,
	}
}
