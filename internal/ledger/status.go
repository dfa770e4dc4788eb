package ledger

import (
	"sort"
	"time"

	"trader-sim/internal/model"
)

// HoldingPnL is the per-position P&L view at a current price.
type HoldingPnL struct {
	Symbol       string  `json:"symbol"`
	Shares       float64 `json:"shares"`
	AvgPrice     float64 `json:"avg_price"`
	CurrentPrice float64 `json:"current_price"`
	CostBasis    float64 `json:"cost_basis"`
	CurrentValue float64 `json:"current_value"`
	PnL          float64 `json:"pnl"`
	PnLPct       float64 `json:"pnl_pct"`
}

// Status is the full reporting view of the ledger.
type Status struct {
	Day             int          `json:"day"`
	StartDate       time.Time    `json:"start_date"`
	Cash            float64      `json:"cash"`
	HoldingsValue   float64      `json:"holdings_value"`
	TotalValue      float64      `json:"total_value"`
	TotalReturn     float64      `json:"total_return"`
	NumHoldings     int          `json:"num_holdings"`
	Holdings        []HoldingPnL `json:"holdings"`
	NumTransactions int          `json:"num_transactions"`
}

// HoldingPnL returns the P&L view for one holding at currentPrice.
// The second return is false when the symbol is not held.
func (l *Ledger) HoldingPnL(symbol string, currentPrice float64) (HoldingPnL, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	h, ok := l.holdings[symbol]
	if !ok {
		return HoldingPnL{}, false
	}
	currentValue := h.Shares * currentPrice
	pnl := currentValue - h.CostBasis
	return HoldingPnL{
		Symbol:       symbol,
		Shares:       h.Shares,
		AvgPrice:     h.AvgPrice,
		CurrentPrice: currentPrice,
		CostBasis:    model.Round2(h.CostBasis),
		CurrentValue: model.Round2(currentValue),
		PnL:          model.Round2(pnl),
		PnLPct:       model.Round2(pnl / h.CostBasis * 100),
	}, true
}

// Status returns the full portfolio status valued at prices. Holdings with
// no supplied price are listed at their average price.
func (l *Ledger) Status(prices map[string]float64) Status {
	l.mu.Lock()
	holdings := make([]string, 0, len(l.holdings))
	for sym := range l.holdings {
		holdings = append(holdings, sym)
	}
	l.mu.Unlock()
	sort.Strings(holdings)

	detail := make([]HoldingPnL, 0, len(holdings))
	for _, sym := range holdings {
		price, ok := prices[sym]
		if !ok {
			if h, held := l.Holding(sym); held {
				price = h.AvgPrice
			}
		}
		if pnl, held := l.HoldingPnL(sym, price); held {
			detail = append(detail, pnl)
		}
	}

	return Status{
		Day:             l.Day(),
		StartDate:       l.StartDate(),
		Cash:            model.Round2(l.Cash()),
		HoldingsValue:   l.HoldingsValue(prices),
		TotalValue:      l.TotalValue(prices),
		TotalReturn:     l.TotalReturn(prices),
		NumHoldings:     l.NumHoldings(),
		Holdings:        detail,
		NumTransactions: l.TransactionCount(),
	}
}
