package model

import (
	"math"
	"time"
)

// Bar represents one daily OHLCV bar for a single symbol.
// Histories are ordered oldest → newest.
type Bar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// Round2 rounds v to 2 decimal places. Internal arithmetic runs at full
// precision; rounding happens only at output boundaries.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
