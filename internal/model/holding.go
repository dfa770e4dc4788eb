package model

// Holding represents the open position in a single symbol.
// Shares may be fractional. The invariant CostBasis == Shares*AvgPrice holds
// within rounding tolerance after every mutation.
type Holding struct {
	Symbol    string  `json:"symbol"`
	Shares    float64 `json:"shares"`
	CostBasis float64 `json:"cost_basis"` // total amount paid for the held shares
	AvgPrice  float64 `json:"avg_price"`  // cost basis per share
}

// MarketValue returns the holding's value at the given price.
func (h *Holding) MarketValue(price float64) float64 {
	return h.Shares * price
}

// UnrealizedPnL returns the unrealized profit/loss at the given price.
func (h *Holding) UnrealizedPnL(price float64) float64 {
	return h.Shares*price - h.CostBasis
}
