// Package executor turns validated trade requests into ledger mutations. It
// is the only writer of the ledger: validation and execution run against one
// snapshot so limits cannot be bypassed by a price moving between the check
// and the mutation.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"trader-sim/internal/journal"
	"trader-sim/internal/ledger"
	"trader-sim/internal/logger"
	"trader-sim/internal/marketdata"
	"trader-sim/internal/metrics"
	"trader-sim/internal/model"
	"trader-sim/internal/risk"
)

// TradeResult reports the outcome of a trade attempt. Rejections and price
// failures come back as unsuccessful results, not errors; callers branch on
// Success.
type TradeResult struct {
	Success     bool         `json:"success"`
	Message     string       `json:"message"`
	Symbol      string       `json:"symbol,omitempty"`
	Action      model.Action `json:"action,omitempty"`
	Shares      float64      `json:"shares,omitempty"`
	Price       float64      `json:"price,omitempty"`
	Total       float64      `json:"total,omitempty"`
	RealizedPnL float64      `json:"realized_pnl,omitempty"`
	SaveError   string       `json:"save_error,omitempty"`
}

// Executor validates and executes trades against the ledger. A mutex
// serializes trades so that validation and the mutation it approved are one
// atomic step; concurrent callers cannot both spend against the same
// snapshot.
type Executor struct {
	mu        sync.Mutex
	ledger    *ledger.Ledger
	validator *risk.Validator
	prices    marketdata.PriceSource
	journal   *journal.Journal
	metrics   *metrics.Metrics
	log       *slog.Logger
}

// New creates an Executor. journal and metrics may be nil.
func New(l *ledger.Ledger, v *risk.Validator, prices marketdata.PriceSource, j *journal.Journal, m *metrics.Metrics, log *slog.Logger) *Executor {
	return &Executor{
		ledger:    l,
		validator: v,
		prices:    prices,
		journal:   j,
		metrics:   m,
		log:       log,
	}
}

func failed(message string) TradeResult {
	return TradeResult{Message: message}
}

// Execute runs one trade: resolve the price if not supplied, validate against
// a single ledger snapshot, then mutate and persist. counters carries the
// day's used trade budget; the caller increments it on success.
func (e *Executor) Execute(ctx context.Context, action model.Action, symbol string, shares, price float64, counters risk.Counters) TradeResult {
	action = model.Action(strings.ToUpper(string(action)))
	symbol = strings.ToUpper(symbol)

	if price <= 0 {
		if e.metrics != nil {
			e.metrics.PriceLookups.Inc()
		}
		p, err := e.prices.Price(ctx, symbol)
		if err != nil {
			if e.metrics != nil {
				e.metrics.PriceFailures.Inc()
			}
			e.log.Warn("price fetch failed", "symbol", symbol, "err", err)
			return failed(fmt.Sprintf("Could not fetch price for %s", symbol))
		}
		price = p
	}

	// The price fetch stays outside the critical section; everything from
	// snapshot to mutation runs under the lock so no other trade can change
	// the ledger between the check and the apply.
	e.mu.Lock()
	defer e.mu.Unlock()

	// One snapshot for both validation and valuation. The executed price is
	// included so position-size math sees the trade's own price.
	snap := e.ledger.Snapshot(map[string]float64{symbol: price})

	verdict := e.validator.Validate(snap, action, symbol, shares, price, counters)
	if !verdict.OK {
		if e.metrics != nil {
			e.metrics.TradesRejected.WithLabelValues(string(action)).Inc()
		}
		e.log.Info("trade rejected", "action", action, "symbol", symbol, "shares", shares, "reason", verdict.Reason)
		return failed(verdict.Reason)
	}

	ctx = logger.WithTradeID(ctx, logger.GenerateTradeID(symbol, time.Now()))

	switch action {
	case model.ActionBuy:
		return e.executeBuy(ctx, symbol, shares, price)
	default:
		return e.executeSell(ctx, symbol, shares, price)
	}
}

func (e *Executor) executeBuy(ctx context.Context, symbol string, shares, price float64) TradeResult {
	tx := e.ledger.ApplyBuy(symbol, shares, price)
	return e.finish(ctx, tx, 0, fmt.Sprintf("Bought %g shares of %s at $%.2f", shares, symbol, price))
}

func (e *Executor) executeSell(ctx context.Context, symbol string, shares, price float64) TradeResult {
	tx, realized, err := e.ledger.ApplySell(symbol, shares, price)
	if err != nil {
		// Validation passed against the same snapshot under the trade lock,
		// so this only happens if something mutated the ledger outside the
		// executor. Report it as a rejection.
		return failed(err.Error())
	}

	pnl := model.Round2(realized)
	pnlStr := fmt.Sprintf("+$%.2f", pnl)
	if pnl < 0 {
		pnlStr = fmt.Sprintf("-$%.2f", -pnl)
	}
	msg := fmt.Sprintf("Sold %g shares of %s at $%.2f (P&L: %s)", shares, symbol, price, pnlStr)

	res := e.finish(ctx, tx, realized, msg)
	res.RealizedPnL = pnl
	return res
}

// finish persists state, journals the trade, and builds the success result.
// Persistence failures do not undo the trade; they ride along in the result.
func (e *Executor) finish(ctx context.Context, tx model.Transaction, realized float64, msg string) TradeResult {
	res := TradeResult{
		Success: true,
		Message: msg,
		Symbol:  tx.Symbol,
		Action:  tx.Action,
		Shares:  tx.Shares,
		Price:   tx.Price,
		Total:   tx.Total,
	}

	if err := e.ledger.Save(); err != nil {
		e.log.Error("ledger save failed", append([]any{"err", err}, logger.LogWithTrade(ctx)...)...)
		res.SaveError = err.Error()
	}

	if e.journal != nil {
		if err := e.journal.Record(tx, model.Round2(realized)); err != nil {
			e.log.Warn("journal write failed", append([]any{"err", err}, logger.LogWithTrade(ctx)...)...)
		}
	}
	if e.metrics != nil {
		e.metrics.TradesExecuted.WithLabelValues(string(tx.Action)).Inc()
		e.metrics.CashBalance.Set(e.ledger.Cash())
		e.metrics.OpenPositions.Set(float64(e.ledger.NumHoldings()))
	}

	e.log.Info("trade executed",
		append([]any{"action", tx.Action, "symbol", tx.Symbol, "shares", tx.Shares, "price", tx.Price, "total", tx.Total},
			logger.LogWithTrade(ctx)...)...)
	return res
}

// MaxShares reports how many shares of symbol can be bought at price under
// cash and position limits. A zero price resolves via the price source; 0 is
// returned when no price is available.
func (e *Executor) MaxShares(ctx context.Context, symbol string, price float64) int {
	symbol = strings.ToUpper(symbol)
	if price <= 0 {
		p, err := e.prices.Price(ctx, symbol)
		if err != nil {
			return 0
		}
		price = p
	}
	snap := e.ledger.Snapshot(map[string]float64{symbol: price})
	return e.validator.MaxShares(snap, symbol, price)
}
