package model

// AnalysisRecord is the derived indicator snapshot for one symbol. It is
// recomputed on demand from price history and never persisted as ledger
// state. All values are rounded to 2 decimals at the record boundary.
type AnalysisRecord struct {
	Symbol        string  `json:"symbol"`
	Price         float64 `json:"price"`
	DailyChange   float64 `json:"daily_change"`   // % vs previous close
	WeeklyChange  float64 `json:"weekly_change"`  // % vs close 5 bars back
	MonthlyChange float64 `json:"monthly_change"` // % vs close 20 bars back
	SMA10         float64 `json:"sma_10"`
	SMA20         float64 `json:"sma_20"`
	SMA50         float64 `json:"sma_50"`
	RSI           float64 `json:"rsi"`
	ATR           float64 `json:"atr"`
	AvgVolume     int64   `json:"avg_volume"`
	AboveSMA10    bool    `json:"above_sma_10"`
	AboveSMA20    bool    `json:"above_sma_20"`
	AboveSMA50    bool    `json:"above_sma_50"`
}
