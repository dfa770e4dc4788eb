// Package marketdata provides current prices and daily OHLCV history for the
// simulator. Sources are layered: a Redis cache fronts the live Yahoo client,
// and a deterministic synthetic generator backstops everything so the
// simulator keeps working offline.
package marketdata

import (
	"context"
	"errors"

	"trader-sim/internal/model"
)

// ErrUnavailable indicates a source could not produce data for the symbol.
// Chained sources treat it as "try the next one".
var ErrUnavailable = errors.New("market data unavailable")

// PriceSource returns the latest price for a symbol.
type PriceSource interface {
	Price(ctx context.Context, symbol string) (float64, error)
}

// HistorySource returns daily bars for a symbol, oldest first.
type HistorySource interface {
	History(ctx context.Context, symbol string, days int) ([]model.Bar, error)
}

// Source combines price and history lookup.
type Source interface {
	PriceSource
	HistorySource
}

// Prices fetches latest prices for a set of symbols, skipping any that fail.
// A partial map is normal operation, not an error.
func Prices(ctx context.Context, src PriceSource, symbols []string) map[string]float64 {
	prices := make(map[string]float64, len(symbols))
	for _, sym := range symbols {
		p, err := src.Price(ctx, sym)
		if err != nil {
			continue
		}
		prices[sym] = p
	}
	return prices
}
