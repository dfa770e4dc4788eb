package autotrader

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"trader-sim/internal/executor"
	"trader-sim/internal/ledger"
	"trader-sim/internal/marketdata"
	"trader-sim/internal/model"
	"trader-sim/internal/risk"
)

// flatSource serves a flat price series per symbol, long enough for the
// indicator engine.
type flatSource struct {
	prices map[string]float64
}

func (f flatSource) Price(ctx context.Context, symbol string) (float64, error) {
	if p, ok := f.prices[symbol]; ok {
		return p, nil
	}
	return 0, marketdata.ErrUnavailable
}

func (f flatSource) History(ctx context.Context, symbol string, days int) ([]model.Bar, error) {
	p, ok := f.prices[symbol]
	if !ok {
		return nil, marketdata.ErrUnavailable
	}
	bars := make([]model.Bar, 60)
	start := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	for i := range bars {
		bars[i] = model.Bar{
			Date:   start.AddDate(0, 0, i),
			Open:   p,
			High:   p + 1,
			Low:    p - 1,
			Close:  p,
			Volume: 1_000_000,
		}
	}
	return bars, nil
}

type scriptedAdvisor struct {
	decision *Decision
	prompt   string
	err      error
}

func (s *scriptedAdvisor) Advise(ctx context.Context, prompt string) (*Decision, error) {
	s.prompt = prompt
	return s.decision, s.err
}

func testPolicy() risk.Policy {
	return risk.Policy{
		MaxPositionPct:   0.5,
		MaxPositions:     8,
		MaxDailyTrades:   8,
		MaxDailyBuys:     5,
		MaxSingleLossPct: 12,
	}
}

func newTrader(t *testing.T, cash float64, src flatSource, adv Advisor) (*Trader, *ledger.Ledger) {
	t.Helper()
	l, err := ledger.New(cash, nil)
	if err != nil {
		t.Fatalf("ledger.New: %v", err)
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	pol := testPolicy()
	exec := executor.New(l, risk.NewValidator(pol), src, nil, nil, log)

	universe := make([]string, 0, len(src.prices))
	for sym := range src.prices {
		universe = append(universe, sym)
	}

	tr := New(Config{
		Universe: universe,
		Source:   src,
		Ledger:   l,
		Executor: exec,
		Policy:   pol,
		Advisor:  adv,
		Guidance: "Buy dips, sell rips.",
		Sessions: NewSessionLog(filepath.Join(t.TempDir(), "sessions.json")),
		Log:      log,
	})
	return tr, l
}

func TestRunCycle_ExecutesAdvisorTrades(t *testing.T) {
	src := flatSource{prices: map[string]float64{"AAPL": 100, "KO": 50}}
	adv := &scriptedAdvisor{decision: &Decision{
		Analysis: "calm market",
		Trades: []SuggestedTrade{
			{Action: "buy", Symbol: "aapl", Shares: 2, Reasoning: "test"},
		},
	}}
	tr, l := newTrader(t, 1000, src, adv)

	if err := tr.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	h, ok := l.Holding("AAPL")
	if !ok || h.Shares != 2 {
		t.Fatalf("expected 2 AAPL shares, got %+v", h)
	}
	if l.Cash() != 800 {
		t.Errorf("cash: got %v", l.Cash())
	}

	used := tr.counters.Used(time.Now())
	if used.Trades != 1 || used.Buys != 1 {
		t.Errorf("counters: %+v", used)
	}

	sessions, err := tr.sessions.Recent(10)
	if err != nil || len(sessions) != 1 {
		t.Fatalf("sessions: %v, %v", sessions, err)
	}
	if len(sessions[0].ExecutedTrades) != 1 || sessions[0].Analysis != "calm market" {
		t.Errorf("session: %+v", sessions[0])
	}
}

func TestRunCycle_SkipsInvalidTrades(t *testing.T) {
	src := flatSource{prices: map[string]float64{"AAPL": 100}}
	adv := &scriptedAdvisor{decision: &Decision{
		Trades: []SuggestedTrade{
			{Action: "BUY", Symbol: "MISSING", Shares: 1},
			{Action: "BUY", Symbol: "AAPL", Shares: 1000}, // unaffordable
		},
	}}
	tr, l := newTrader(t, 500, src, adv)

	if err := tr.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if l.NumHoldings() != 0 {
		t.Error("no trade should have executed")
	}

	sessions, _ := tr.sessions.Recent(1)
	if len(sessions) != 1 || len(sessions[0].SkippedTrades) != 2 {
		t.Fatalf("expected 2 skipped trades, got %+v", sessions)
	}
	if !strings.Contains(sessions[0].SkippedTrades[0].Reason, "no market data") {
		t.Errorf("skip reason: %q", sessions[0].SkippedTrades[0].Reason)
	}
}

func TestRunCycle_StopLossSweep(t *testing.T) {
	src := flatSource{prices: map[string]float64{"NVDA": 80}}
	adv := &scriptedAdvisor{decision: &Decision{HoldReasoning: "waiting"}}
	tr, l := newTrader(t, 1000, src, adv)

	// Bought at 100, now 80: -20% breaches the 12% stop.
	l.ApplyBuy("NVDA", 5, 100)

	if err := tr.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if l.NumHoldings() != 0 {
		t.Fatal("stop loss did not close the position")
	}

	sessions, _ := tr.sessions.Recent(1)
	if len(sessions[0].ExecutedTrades) != 1 {
		t.Fatalf("expected forced sell in session, got %+v", sessions[0])
	}
	forced := sessions[0].ExecutedTrades[0]
	if forced.Action != "SELL" || !strings.Contains(forced.Reasoning, "Stop loss") {
		t.Errorf("forced sell: %+v", forced)
	}
}

func TestRunCycle_AdvisorFailureStillLogsSession(t *testing.T) {
	src := flatSource{prices: map[string]float64{"AAPL": 100}}
	adv := &scriptedAdvisor{err: context.DeadlineExceeded}
	tr, l := newTrader(t, 1000, src, adv)

	if err := tr.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if l.TransactionCount() != 0 {
		t.Error("no trades expected")
	}
	sessions, _ := tr.sessions.Recent(1)
	if len(sessions) != 1 {
		t.Fatal("session not logged")
	}
}

func TestRunCycle_NoMarketData(t *testing.T) {
	src := flatSource{prices: map[string]float64{}}
	tr, _ := newTrader(t, 1000, src, &scriptedAdvisor{})
	tr.universe = []string{"GONE"}

	if err := tr.RunCycle(context.Background()); err == nil {
		t.Fatal("expected error with empty snapshot")
	}
}

func TestBuildPrompt_Content(t *testing.T) {
	src := flatSource{prices: map[string]float64{"AAPL": 100}}
	adv := &scriptedAdvisor{decision: &Decision{HoldReasoning: "hold"}}
	tr, _ := newTrader(t, 1000, src, adv)

	if err := tr.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}

	for _, want := range []string{
		"## YOUR TRADING STRATEGY",
		"Buy dips, sell rips.",
		"## CURRENT PORTFOLIO",
		"Cash: $1000.00",
		"## MARKET DATA",
		"AAPL: $100.00",
		"## BUYING POWER",
		"## GUARDRAILS",
		"Max position size: 50% of portfolio",
		"hold_reasoning",
	} {
		if !strings.Contains(adv.prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestParseDecision(t *testing.T) {
	raw := `Here is my decision:
{"analysis": "flat", "trades": [{"action": "BUY", "symbol": "KO", "shares": 3, "reasoning": "cheap"}], "hold_reasoning": ""}
Good luck!`

	d, err := ParseDecision(raw)
	if err != nil {
		t.Fatalf("ParseDecision: %v", err)
	}
	if d.Analysis != "flat" || len(d.Trades) != 1 || d.Trades[0].Symbol != "KO" {
		t.Errorf("decision: %+v", d)
	}

	if _, err := ParseDecision("no json here"); err == nil {
		t.Error("expected error for missing JSON")
	}
	if _, err := ParseDecision("{not valid json}"); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestDayCounters_Rollover(t *testing.T) {
	var dc DayCounters
	day1 := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)

	dc.RecordTrade(day1, model.ActionBuy)
	dc.RecordTrade(day1, model.ActionSell)
	if used := dc.Used(day1); used.Trades != 2 || used.Buys != 1 {
		t.Errorf("day1: %+v", used)
	}

	if used := dc.Used(day2); used.Trades != 0 || used.Buys != 0 {
		t.Errorf("day2 should reset: %+v", used)
	}
}
