package indicator

import (
	"errors"
	"testing"

	"trader-sim/internal/model"
)

func risingHistory(n int) []model.Bar {
	bars := make([]model.Bar, n)
	for i := range bars {
		c := 100 + float64(i)
		bars[i] = model.Bar{
			Open:   c - 0.5,
			High:   c + 1,
			Low:    c - 1,
			Close:  c,
			Volume: 2_000_000,
		}
	}
	return bars
}

func TestAnalyze_InsufficientHistory(t *testing.T) {
	_, err := Analyze("PLTR", risingHistory(MinBars-1))
	if !errors.Is(err, ErrInsufficientHistory) {
		t.Fatalf("expected ErrInsufficientHistory, got %v", err)
	}
}

func TestAnalyze_RisingSeries(t *testing.T) {
	bars := risingHistory(60) // closes 100..159
	rec, err := Analyze("PLTR", bars)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if rec.Symbol != "PLTR" {
		t.Errorf("symbol: got %q", rec.Symbol)
	}
	assertClose(t, "price", rec.Price, 159, 1e-9)

	// SMA(10) over closes 150..159 = 154.5.
	assertClose(t, "sma10", rec.SMA10, 154.5, 1e-9)
	// SMA(20) over closes 140..159 = 149.5.
	assertClose(t, "sma20", rec.SMA20, 149.5, 1e-9)
	// SMA(50) over closes 110..159 = 134.5.
	assertClose(t, "sma50", rec.SMA50, 134.5, 1e-9)

	if !rec.AboveSMA10 || !rec.AboveSMA20 || !rec.AboveSMA50 {
		t.Error("rising series should be above all SMAs")
	}
	if rec.RSI != 100 {
		t.Errorf("rsi on gain-only series: got %v, want 100", rec.RSI)
	}

	// Daily: (159-158)/158*100 = 0.6329... rounded to 0.63.
	assertClose(t, "daily change", rec.DailyChange, 0.63, 1e-9)
	// Weekly: (159-155)/155*100 = 2.5806... rounded to 2.58.
	assertClose(t, "weekly change", rec.WeeklyChange, 2.58, 1e-9)
	// Monthly: (159-140)/140*100 = 13.571... rounded to 13.57.
	assertClose(t, "monthly change", rec.MonthlyChange, 13.57, 1e-9)

	if rec.AvgVolume != 2_000_000 {
		t.Errorf("avg volume: got %d", rec.AvgVolume)
	}

	// ATR: every bar after the first has TR = max(2, |c+1-(c-1)|=2, ...) with
	// prev close c-1: high-prevClose = c+1-(c-1) = 2, so TR = 2.
	assertClose(t, "atr", rec.ATR, 2, 1e-9)
}

func TestAnalyze_BoundaryExactlyMinBars(t *testing.T) {
	if _, err := Analyze("SOFI", risingHistory(MinBars)); err != nil {
		t.Fatalf("expected success at exactly %d bars, got %v", MinBars, err)
	}
}
