// Package screener filters and ranks analysis records. It holds no state
// between calls.
package screener

import (
	"sort"

	"trader-sim/internal/model"
)

// Criteria are the screening thresholds. A zero MaxPrice disables the upper
// price band.
type Criteria struct {
	MinATR       float64 `yaml:"min_atr" json:"min_atr"`
	MinAvgVolume int64   `yaml:"min_avg_volume" json:"min_avg_volume"`
	MinPrice     float64 `yaml:"min_price" json:"min_price"`
	MaxPrice     float64 `yaml:"max_price" json:"max_price"`
}

// Passes reports whether rec clears every threshold.
func (c Criteria) Passes(rec model.AnalysisRecord) bool {
	if rec.ATR < c.MinATR {
		return false
	}
	if rec.AvgVolume < c.MinAvgVolume {
		return false
	}
	if rec.Price < c.MinPrice {
		return false
	}
	if c.MaxPrice > 0 && rec.Price > c.MaxPrice {
		return false
	}
	return true
}

// Filter returns the records passing c. Output order is unspecified relative
// to input; callers rank separately.
func Filter(records []model.AnalysisRecord, c Criteria) []model.AnalysisRecord {
	out := make([]model.AnalysisRecord, 0, len(records))
	for _, rec := range records {
		if c.Passes(rec) {
			out = append(out, rec)
		}
	}
	return out
}

// RankByDailyChange returns a copy of records sorted by daily change,
// best performers first.
func RankByDailyChange(records []model.AnalysisRecord) []model.AnalysisRecord {
	out := make([]model.AnalysisRecord, len(records))
	copy(out, records)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DailyChange > out[j].DailyChange
	})
	return out
}

// Summary aggregates a batch of analysis records for reporting.
type Summary struct {
	StocksAnalyzed int                    `json:"stocks_analyzed"`
	AvgDailyChange float64                `json:"avg_daily_change"`
	AvgRSI         float64                `json:"avg_rsi"`
	TopGainers     []model.AnalysisRecord `json:"top_gainers"`
	TopLosers      []model.AnalysisRecord `json:"top_losers"`
	All            []model.AnalysisRecord `json:"all_stocks"`
}

// Summarize builds market-wide aggregates with the top/bottom n movers.
func Summarize(records []model.AnalysisRecord, n int) Summary {
	if len(records) == 0 {
		return Summary{}
	}

	var sumChange, sumRSI float64
	for _, rec := range records {
		sumChange += rec.DailyChange
		sumRSI += rec.RSI
	}

	ranked := RankByDailyChange(records)
	if n > len(ranked) {
		n = len(ranked)
	}
	losers := make([]model.AnalysisRecord, n)
	for i := 0; i < n; i++ {
		losers[i] = ranked[len(ranked)-1-i]
	}

	return Summary{
		StocksAnalyzed: len(records),
		AvgDailyChange: model.Round2(sumChange / float64(len(records))),
		AvgRSI:         model.Round2(sumRSI / float64(len(records))),
		TopGainers:     ranked[:n],
		TopLosers:      losers,
		All:            ranked,
	}
}
