package marketdata

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/piquette/finance-go/quote"

	"trader-sim/internal/model"
)

// rateLimitBackoff is how long the client sits out after Yahoo starts
// rejecting requests.
const rateLimitBackoff = 5 * time.Minute

// Yahoo fetches quotes and daily history from Yahoo Finance. On repeated
// failures it backs off and returns ErrUnavailable so the caller can fall
// through to the next source.
type Yahoo struct {
	log *slog.Logger

	mu           sync.Mutex
	limitedUntil time.Time
}

// NewYahoo creates a Yahoo Finance source.
func NewYahoo(log *slog.Logger) *Yahoo {
	return &Yahoo{log: log}
}

func (y *Yahoo) limited() bool {
	y.mu.Lock()
	defer y.mu.Unlock()
	return time.Now().Before(y.limitedUntil)
}

func (y *Yahoo) backoff() {
	y.mu.Lock()
	y.limitedUntil = time.Now().Add(rateLimitBackoff)
	y.mu.Unlock()
}

// Price returns the regular market price for symbol.
func (y *Yahoo) Price(ctx context.Context, symbol string) (float64, error) {
	if y.limited() {
		return 0, ErrUnavailable
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	q, err := quote.Get(symbol)
	if err != nil || q == nil {
		y.log.Warn("yahoo quote failed", "symbol", symbol, "err", err)
		y.backoff()
		return 0, fmt.Errorf("yahoo quote %s: %w", symbol, ErrUnavailable)
	}
	if q.RegularMarketPrice <= 0 {
		return 0, fmt.Errorf("yahoo quote %s: no price: %w", symbol, ErrUnavailable)
	}
	return model.Round2(q.RegularMarketPrice), nil
}

// History returns up to days daily bars for symbol, oldest first. Bars with a
// missing close are dropped.
func (y *Yahoo) History(ctx context.Context, symbol string, days int) ([]model.Bar, error) {
	if y.limited() {
		return nil, ErrUnavailable
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	end := time.Now()
	start := end.AddDate(0, 0, -days*2) // calendar padding for weekends and holidays

	iter := chart.Get(&chart.Params{
		Symbol:   symbol,
		Start:    datetime.New(&start),
		End:      datetime.New(&end),
		Interval: datetime.OneDay,
	})

	var bars []model.Bar
	for iter.Next() {
		b := iter.Bar()
		closePx := b.Close.InexactFloat64()
		if closePx <= 0 {
			continue
		}
		bars = append(bars, model.Bar{
			Date:   time.Unix(int64(b.Timestamp), 0).UTC(),
			Open:   b.Open.InexactFloat64(),
			High:   b.High.InexactFloat64(),
			Low:    b.Low.InexactFloat64(),
			Close:  closePx,
			Volume: int64(b.Volume),
		})
	}
	if err := iter.Err(); err != nil {
		y.log.Warn("yahoo chart failed", "symbol", symbol, "err", err)
		y.backoff()
		return nil, fmt.Errorf("yahoo chart %s: %w", symbol, ErrUnavailable)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("yahoo chart %s: empty: %w", symbol, ErrUnavailable)
	}
	if len(bars) > days {
		bars = bars[len(bars)-days:]
	}
	return bars, nil
}
