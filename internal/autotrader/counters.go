package autotrader

import (
	"sync"
	"time"

	"trader-sim/internal/model"
	"trader-sim/internal/risk"
)

// DayCounters tracks the day's used trade budget, rolling over at local
// midnight. The autotrader owns the counters and increments them only on
// successful execution.
type DayCounters struct {
	mu   sync.Mutex
	date string
	used risk.Counters
}

func dayKey(now time.Time) string {
	return now.Format("2006-01-02")
}

// Used returns the budget consumed so far today.
func (d *DayCounters) Used(now time.Time) risk.Counters {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rollover(now)
	return d.used
}

// RecordTrade counts one executed trade.
func (d *DayCounters) RecordTrade(now time.Time, action model.Action) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rollover(now)
	d.used.Trades++
	if action == model.ActionBuy {
		d.used.Buys++
	}
}

func (d *DayCounters) rollover(now time.Time) {
	today := dayKey(now)
	if d.date != today {
		d.date = today
		d.used = risk.Counters{}
	}
}
