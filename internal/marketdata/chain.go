package marketdata

import (
	"context"
	"log/slog"

	"trader-sim/internal/model"
)

// Chain tries each source in order and returns the first success. Putting a
// Synthetic source last makes the chain infallible.
type Chain struct {
	prices    []PriceSource
	histories []HistorySource
	log       *slog.Logger
}

// NewChain builds a chain. Both slices run first to last.
func NewChain(log *slog.Logger, prices []PriceSource, histories []HistorySource) *Chain {
	return &Chain{prices: prices, histories: histories, log: log}
}

// Price returns the first successful price.
func (c *Chain) Price(ctx context.Context, symbol string) (float64, error) {
	var lastErr error = ErrUnavailable
	for _, src := range c.prices {
		p, err := src.Price(ctx, symbol)
		if err == nil {
			return p, nil
		}
		lastErr = err
	}
	c.log.Warn("all price sources failed", "symbol", symbol, "err", lastErr)
	return 0, lastErr
}

// History returns the first non-empty history.
func (c *Chain) History(ctx context.Context, symbol string, days int) ([]model.Bar, error) {
	var lastErr error = ErrUnavailable
	for _, src := range c.histories {
		bars, err := src.History(ctx, symbol, days)
		if err == nil && len(bars) > 0 {
			return bars, nil
		}
		if err != nil {
			lastErr = err
		}
	}
	c.log.Warn("all history sources failed", "symbol", symbol, "err", lastErr)
	return nil, lastErr
}
