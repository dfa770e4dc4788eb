// Package indicator computes technical indicators over ordered OHLCV bars.
//
// All functions are pure: they take a history (oldest → newest) and return a
// value, with no state between calls. Analysis records require at least
// MinBars of history; shorter histories return ErrInsufficientHistory rather
// than computing on incomplete data.
package indicator

import (
	"errors"

	"trader-sim/internal/model"
)

// ErrInsufficientHistory is returned when a history is too short to analyze.
var ErrInsufficientHistory = errors.New("insufficient history")

// MinBars is the minimum history length required to produce an analysis
// record.
const MinBars = 50

// Default lookback periods.
const (
	RSIPeriod       = 14
	ATRPeriod       = 14
	VolumeLookback  = 20
	WeeklyLookback  = 5
	MonthlyLookback = 20
)

// SMA returns the arithmetic mean of the last period closes.
// Returns 0 when the history is shorter than period.
func SMA(bars []model.Bar, period int) float64 {
	if period <= 0 || len(bars) < period {
		return 0
	}
	sum := 0.0
	for _, b := range bars[len(bars)-period:] {
		sum += b.Close
	}
	return sum / float64(period)
}

// RSI returns the Relative Strength Index over the last period close-to-close
// deltas, using simple means of gains and losses. A window with zero average
// loss yields exactly 100. Returns 0 when fewer than period deltas exist.
func RSI(bars []model.Bar, period int) float64 {
	if period <= 0 || len(bars) < period+1 {
		return 0
	}
	window := bars[len(bars)-period-1:]
	var gains, losses float64
	for i := 1; i < len(window); i++ {
		delta := window[i].Close - window[i-1].Close
		if delta > 0 {
			gains += delta
		} else {
			losses -= delta
		}
	}
	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// trueRange returns the true range of bars[i]:
// max(high-low, |high-prevClose|, |low-prevClose|). The first bar of a
// history has no previous close and uses high-low only.
func trueRange(bars []model.Bar, i int) float64 {
	b := bars[i]
	tr := b.High - b.Low
	if i == 0 {
		return tr
	}
	prevClose := bars[i-1].Close
	if hc := abs(b.High - prevClose); hc > tr {
		tr = hc
	}
	if lc := abs(b.Low - prevClose); lc > tr {
		tr = lc
	}
	return tr
}

// ATR returns the mean true range over the last period bars.
// Returns 0 when the history is shorter than period.
func ATR(bars []model.Bar, period int) float64 {
	if period <= 0 || len(bars) < period {
		return 0
	}
	sum := 0.0
	for i := len(bars) - period; i < len(bars); i++ {
		sum += trueRange(bars, i)
	}
	return sum / float64(period)
}

// PeriodReturn returns the percentage change of the latest close versus the
// close n bars from the end of the history (n=2 is the daily return against
// the previous close, n=5 the weekly, n=20 the monthly). Returns 0 when
// fewer than n bars are available.
func PeriodReturn(bars []model.Bar, n int) float64 {
	if n < 2 || len(bars) < n {
		return 0
	}
	latest := bars[len(bars)-1].Close
	ref := bars[len(bars)-n].Close
	if ref == 0 {
		return 0
	}
	return (latest - ref) / ref * 100
}

// AvgVolume returns the mean volume over the last lookback bars, or over the
// whole history when shorter.
func AvgVolume(bars []model.Bar, lookback int) int64 {
	if len(bars) == 0 || lookback <= 0 {
		return 0
	}
	if lookback > len(bars) {
		lookback = len(bars)
	}
	var sum int64
	for _, b := range bars[len(bars)-lookback:] {
		sum += b.Volume
	}
	return sum / int64(lookback)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
