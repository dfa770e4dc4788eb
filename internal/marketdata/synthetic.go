package marketdata

import (
	"context"
	"hash/fnv"
	"math/rand"
	"sync"
	"time"

	"trader-sim/internal/model"
)

// basePrices anchor the synthetic generator so symbols trade in plausible
// ranges. Unknown symbols start at $100.
var basePrices = map[string]float64{
	"AAPL": 250.00, "MSFT": 420.00, "GOOGL": 195.00, "AMZN": 225.00, "NVDA": 140.00,
	"META": 600.00, "JPM": 245.00, "BAC": 46.00, "V": 315.00, "WMT": 92.00,
	"KO": 63.00, "PEP": 152.00, "MCD": 295.00, "JNJ": 145.00, "UNH": 525.00,
	"PFE": 26.00, "XOM": 108.00, "CVX": 150.00, "SPY": 600.00, "QQQ": 525.00,
}

const defaultBasePrice = 100.0

// Synthetic generates deterministic random-walk market data. It never fails,
// so it sits last in the source chain. The same symbol always produces the
// same history, which keeps tests and offline runs reproducible.
type Synthetic struct {
	mu sync.Mutex
}

// NewSynthetic creates a synthetic source.
func NewSynthetic() *Synthetic {
	return &Synthetic{}
}

func symbolSeed(symbol string) int64 {
	h := fnv.New64a()
	h.Write([]byte(symbol))
	return int64(h.Sum64())
}

func basePrice(symbol string) float64 {
	if p, ok := basePrices[symbol]; ok {
		return p
	}
	return defaultBasePrice
}

// Price returns the symbol's base price with a small deterministic variation.
func (s *Synthetic) Price(ctx context.Context, symbol string) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rng := rand.New(rand.NewSource(symbolSeed(symbol)))
	variation := rng.Float64()*0.04 - 0.02
	return model.Round2(basePrice(symbol) * (1 + variation)), nil
}

// History generates days daily bars by a gaussian random walk with a slight
// upward drift, matching typical equity behavior closely enough for
// indicator computation.
func (s *Synthetic) History(ctx context.Context, symbol string, days int) ([]model.Bar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rng := rand.New(rand.NewSource(symbolSeed(symbol)))
	price := basePrice(symbol)

	bars := make([]model.Bar, 0, days)
	date := time.Now().UTC().AddDate(0, 0, -days)
	for i := 0; i < days; i++ {
		if i > 0 {
			change := rng.NormFloat64()*0.015 + 0.0005
			price *= 1 + change
		}
		bars = append(bars, model.Bar{
			Date:   date.AddDate(0, 0, i),
			Open:   price * (0.995 + rng.Float64()*0.01),
			High:   price * (1.0 + rng.Float64()*0.02),
			Low:    price * (0.98 + rng.Float64()*0.02),
			Close:  price,
			Volume: int64(5e6 + rng.Float64()*45e6),
		})
	}
	return bars, nil
}
