package risk

import (
	"fmt"
	"math"
	"strings"

	"trader-sim/internal/ledger"
	"trader-sim/internal/model"
)

// Verdict is the result of validating a proposed trade. Rejections are data,
// not errors: Reason carries the first failed check.
type Verdict struct {
	OK     bool
	Reason string
}

func accept() Verdict                           { return Verdict{OK: true, Reason: "valid"} }
func reject(format string, args ...any) Verdict { return Verdict{Reason: fmt.Sprintf(format, args...)} }

// Validator checks trades against a Policy.
type Validator struct {
	policy  Policy
	blocked map[string]bool
}

// NewValidator creates a Validator. Blocked symbols are matched
// case-insensitively.
func NewValidator(policy Policy) *Validator {
	blocked := make(map[string]bool, len(policy.BlockedSymbols))
	for _, sym := range policy.BlockedSymbols {
		blocked[strings.ToUpper(sym)] = true
	}
	return &Validator{policy: policy, blocked: blocked}
}

// Policy returns the validator's policy.
func (v *Validator) Policy() Policy { return v.policy }

// Validate decides accept/reject for a proposed trade against a ledger
// snapshot. Checks short-circuit; the first failing reason is returned. The
// snapshot's prices must be the same snapshot the caller executes against.
func (v *Validator) Validate(snap ledger.Snapshot, action model.Action, symbol string, shares, price float64, used Counters) Verdict {
	// Syntactic checks first.
	if shares <= 0 {
		return reject("invalid trade: shares must be positive")
	}
	if symbol == "" {
		return reject("invalid trade: empty symbol")
	}
	if !action.Valid() {
		return reject("unknown action %q: use BUY or SELL", action)
	}

	// Blocked symbols are untradeable in both directions.
	if v.blocked[strings.ToUpper(symbol)] {
		return reject("%s is blocked and cannot be traded", symbol)
	}

	if v.policy.MaxDailyTrades > 0 && used.Trades >= v.policy.MaxDailyTrades {
		return reject("max daily trades (%d) reached", v.policy.MaxDailyTrades)
	}

	if action == model.ActionBuy {
		return v.validateBuy(snap, symbol, shares, price, used)
	}
	return v.validateSell(snap, symbol, shares)
}

func (v *Validator) validateBuy(snap ledger.Snapshot, symbol string, shares, price float64, used Counters) Verdict {
	if v.policy.MaxDailyBuys > 0 && used.Buys >= v.policy.MaxDailyBuys {
		return reject("max daily buys (%d) reached", v.policy.MaxDailyBuys)
	}

	cost := shares * price
	if cost > snap.Cash {
		maxShares := int(snap.Cash / price)
		return reject("insufficient cash: have $%.2f, need $%.2f (max shares: %d)",
			snap.Cash, cost, maxShares)
	}
	if v.policy.MinCashReserve > 0 && snap.Cash-cost < v.policy.MinCashReserve {
		return reject("would violate min cash reserve ($%.2f)", v.policy.MinCashReserve)
	}
	if v.policy.MinPositionValue > 0 && cost < v.policy.MinPositionValue {
		return reject("position too small: min $%.2f per trade", v.policy.MinPositionValue)
	}

	// Position size limit, measured against the same price snapshot used for
	// execution.
	positionValue := cost
	if h, ok := snap.Holdings[symbol]; ok {
		positionValue += h.Shares * price
	}
	if snap.TotalValue > 0 && positionValue/snap.TotalValue > v.policy.MaxPositionPct {
		return reject("position would exceed %.0f%% of portfolio", v.policy.MaxPositionPct*100)
	}

	if _, held := snap.Holdings[symbol]; !held && v.policy.MaxPositions > 0 && len(snap.Holdings) >= v.policy.MaxPositions {
		return reject("max positions (%d) reached, sell something first", v.policy.MaxPositions)
	}

	return accept()
}

func (v *Validator) validateSell(snap ledger.Snapshot, symbol string, shares float64) Verdict {
	h, ok := snap.Holdings[symbol]
	if !ok {
		return reject("no position in %s", symbol)
	}
	if shares > h.Shares {
		return reject("insufficient shares: have %g, trying to sell %g", h.Shares, shares)
	}
	return accept()
}

// MaxShares returns the largest whole number of shares of symbol affordable
// under both the cash balance and the remaining position allocation at the
// given price.
func (v *Validator) MaxShares(snap ledger.Snapshot, symbol string, price float64) int {
	if price <= 0 {
		return 0
	}
	byCash := math.Floor(snap.Cash / price)

	maxPosition := snap.TotalValue * v.policy.MaxPositionPct
	currentPosition := 0.0
	if h, ok := snap.Holdings[symbol]; ok {
		currentPosition = h.Shares * price
	}
	byPosition := math.Floor((maxPosition - currentPosition) / price)

	max := math.Min(byCash, byPosition)
	if max < 0 {
		return 0
	}
	return int(max)
}
