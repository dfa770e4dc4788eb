// Package risk validates proposed trades against hard guardrails before any
// ledger mutation. The validator is pure: it reads a ledger snapshot and
// returns a verdict, never a panic — automated callers log rejections and
// continue.
package risk

// Policy defines the configurable guardrails. Limits are enforced regardless
// of where a suggested trade came from.
type Policy struct {
	MaxPositionPct   float64  `yaml:"max_position_pct" json:"max_position_pct"`     // fraction of total value per symbol
	MaxPositions     int      `yaml:"max_positions" json:"max_positions"`           // max concurrent holdings
	MinPositionValue float64  `yaml:"min_position_value" json:"min_position_value"` // reject dust buys below this
	MinCashReserve   float64  `yaml:"min_cash_reserve" json:"min_cash_reserve"`     // cash floor after a buy
	MaxDailyTrades   int      `yaml:"max_daily_trades" json:"max_daily_trades"`     // buys + sells per day, 0 = unlimited
	MaxDailyBuys     int      `yaml:"max_daily_buys" json:"max_daily_buys"`         // buys per day, 0 = unlimited
	MaxSingleLossPct float64  `yaml:"max_single_loss_pct" json:"max_single_loss_pct"`
	BlockedSymbols   []string `yaml:"blocked_symbols" json:"blocked_symbols"`
}

// DefaultPolicy returns conservative defaults matching a small simulated
// account.
func DefaultPolicy() Policy {
	return Policy{
		MaxPositionPct:   0.25,
		MaxPositions:     10,
		MinPositionValue: 20,
		MinCashReserve:   25,
		MaxDailyTrades:   8,
		MaxDailyBuys:     5,
		MaxSingleLossPct: 12,
	}
}

// Counters carries the day's used trade budget into validation. The caller
// owns the counters; the validator only reads them.
type Counters struct {
	Trades int
	Buys   int
}
