package indicator

import (
	"fmt"

	"trader-sim/internal/model"
)

// Analyze computes the full analysis record for symbol from its bar history.
// Histories shorter than MinBars return ErrInsufficientHistory.
func Analyze(symbol string, bars []model.Bar) (*model.AnalysisRecord, error) {
	if len(bars) < MinBars {
		return nil, fmt.Errorf("%w: %s has %d bars, need %d", ErrInsufficientHistory, symbol, len(bars), MinBars)
	}

	price := bars[len(bars)-1].Close
	sma10 := SMA(bars, 10)
	sma20 := SMA(bars, 20)
	sma50 := SMA(bars, 50)

	return &model.AnalysisRecord{
		Symbol:        symbol,
		Price:         model.Round2(price),
		DailyChange:   model.Round2(PeriodReturn(bars, 2)),
		WeeklyChange:  model.Round2(PeriodReturn(bars, WeeklyLookback)),
		MonthlyChange: model.Round2(PeriodReturn(bars, MonthlyLookback)),
		SMA10:         model.Round2(sma10),
		SMA20:         model.Round2(sma20),
		SMA50:         model.Round2(sma50),
		RSI:           model.Round2(RSI(bars, RSIPeriod)),
		ATR:           model.Round2(ATR(bars, ATRPeriod)),
		AvgVolume:     AvgVolume(bars, VolumeLookback),
		AboveSMA10:    price > sma10,
		AboveSMA20:    price > sma20,
		AboveSMA50:    price > sma50,
	}, nil
}
