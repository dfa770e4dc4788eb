package autotrader

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"trader-sim/internal/executor"
	"trader-sim/internal/indicator"
	"trader-sim/internal/ledger"
	"trader-sim/internal/marketdata"
	"trader-sim/internal/metrics"
	"trader-sim/internal/model"
	"trader-sim/internal/risk"
)

// historyDays is how much daily history feeds the indicator engine. Roughly
// 90 calendar days of bars comfortably covers the 50-bar minimum.
const historyDays = 90

// Trader runs the advisory cycle. It owns the day counters; the executor and
// validator only read them.
type Trader struct {
	universe []string
	source   marketdata.Source
	ledger   *ledger.Ledger
	exec     *executor.Executor
	policy   risk.Policy
	advisor  Advisor
	guidance string
	sessions *SessionLog
	metrics  *metrics.Metrics
	log      *slog.Logger

	counters DayCounters
}

// Config wires a Trader. Sessions and Metrics may be nil.
type Config struct {
	Universe []string
	Source   marketdata.Source
	Ledger   *ledger.Ledger
	Executor *executor.Executor
	Policy   risk.Policy
	Advisor  Advisor
	Guidance string
	Sessions *SessionLog
	Metrics  *metrics.Metrics
	Log      *slog.Logger
}

// New creates a Trader.
func New(cfg Config) *Trader {
	return &Trader{
		universe: cfg.Universe,
		source:   cfg.Source,
		ledger:   cfg.Ledger,
		exec:     cfg.Executor,
		policy:   cfg.Policy,
		advisor:  cfg.Advisor,
		guidance: cfg.Guidance,
		sessions: cfg.Sessions,
		metrics:  cfg.Metrics,
		log:      cfg.Log,
	}
}

// marketSnapshot analyzes every universe symbol, skipping symbols whose
// history is unavailable or too short. A partial snapshot is normal.
func (t *Trader) marketSnapshot(ctx context.Context) map[string]*model.AnalysisRecord {
	records := make(map[string]*model.AnalysisRecord, len(t.universe))
	for _, sym := range t.universe {
		bars, err := t.source.History(ctx, sym, historyDays)
		if err != nil {
			t.log.Warn("history fetch failed", "symbol", sym, "err", err)
			continue
		}

		start := time.Now()
		rec, err := indicator.Analyze(sym, bars)
		if err != nil {
			t.log.Warn("analysis skipped", "symbol", sym, "err", err)
			continue
		}
		if t.metrics != nil {
			t.metrics.AnalyzeDur.Observe(time.Since(start).Seconds())
		}
		records[sym] = rec
	}
	return records
}

// sweepStopLosses force-sells every position down more than MaxSingleLossPct.
// Forced sells consume the daily trade budget but are never blocked by it:
// capital protection outranks the rate limit.
func (t *Trader) sweepStopLosses(ctx context.Context, records map[string]*model.AnalysisRecord) []SuggestedTrade {
	if t.policy.MaxSingleLossPct <= 0 {
		return nil
	}

	var executed []SuggestedTrade
	for sym, h := range t.ledger.Holdings() {
		rec, ok := records[sym]
		if !ok {
			continue
		}
		pnlPct := (rec.Price - h.AvgPrice) / h.AvgPrice * 100
		if pnlPct >= -t.policy.MaxSingleLossPct {
			continue
		}

		t.log.Warn("stop loss triggered", "symbol", sym, "pnl_pct", model.Round2(pnlPct))
		res := t.exec.Execute(ctx, model.ActionSell, sym, h.Shares, rec.Price, risk.Counters{})
		if !res.Success {
			t.log.Error("stop loss sell failed", "symbol", sym, "reason", res.Message)
			continue
		}
		t.counters.RecordTrade(time.Now(), model.ActionSell)
		executed = append(executed, SuggestedTrade{
			Action:    string(model.ActionSell),
			Symbol:    sym,
			Shares:    h.Shares,
			Reasoning: fmt.Sprintf("Stop loss triggered at %.1f%%", pnlPct),
		})
	}
	return executed
}

// RunCycle runs one full trading cycle.
func (t *Trader) RunCycle(ctx context.Context) error {
	start := time.Now()
	t.log.Info("starting trading cycle")

	records := t.marketSnapshot(ctx)
	if len(records) == 0 {
		return fmt.Errorf("no market data for any universe symbol")
	}
	t.log.Info("market snapshot built", "symbols", len(records))

	prices := make(map[string]float64, len(records))
	for sym, rec := range records {
		prices[sym] = rec.Price
	}

	executed := t.sweepStopLosses(ctx, records)
	var skipped []SkippedTrade

	status := t.ledger.Status(prices)
	maxShares := make(map[string]int, len(records))
	for sym, rec := range records {
		maxShares[sym] = t.exec.MaxShares(ctx, sym, rec.Price)
	}

	recList := make([]model.AnalysisRecord, 0, len(records))
	for _, rec := range records {
		recList = append(recList, *rec)
	}

	prompt := BuildPrompt(t.guidance, t.policy, status, recList, maxShares, t.counters.Used(time.Now()))
	decision, err := t.advisor.Advise(ctx, prompt)
	if err != nil {
		t.log.Error("advisor failed", "err", err)
		decision = nil
	}

	if decision != nil {
		for _, trade := range decision.Trades {
			trade.Action = strings.ToUpper(trade.Action)
			trade.Symbol = strings.ToUpper(trade.Symbol)

			rec, ok := records[trade.Symbol]
			if !ok {
				skipped = append(skipped, SkippedTrade{Trade: trade, Reason: "no market data for " + trade.Symbol})
				continue
			}

			res := t.exec.Execute(ctx, model.Action(trade.Action), trade.Symbol, trade.Shares, rec.Price, t.counters.Used(time.Now()))
			if !res.Success {
				skipped = append(skipped, SkippedTrade{Trade: trade, Reason: res.Message})
				continue
			}
			t.counters.RecordTrade(time.Now(), res.Action)
			executed = append(executed, trade)
		}
	}

	session := Session{
		Timestamp:      time.Now(),
		PortfolioValue: t.ledger.TotalValue(prices),
		Cash:           model.Round2(t.ledger.Cash()),
		Positions:      t.ledger.NumHoldings(),
		ExecutedTrades: executed,
		SkippedTrades:  skipped,
	}
	if decision != nil {
		session.Analysis = decision.Analysis
		session.HoldReasoning = decision.HoldReasoning
	}
	if err := t.sessions.Append(session); err != nil {
		t.log.Error("session log write failed", "err", err)
	}

	if t.metrics != nil {
		t.metrics.CycleDur.Observe(time.Since(start).Seconds())
		t.metrics.PortfolioValue.Set(session.PortfolioValue)
		t.metrics.CashBalance.Set(session.Cash)
		t.metrics.OpenPositions.Set(float64(session.Positions))
		t.metrics.SimulationDay.Set(float64(t.ledger.Day()))
	}

	t.log.Info("cycle complete",
		"executed", len(executed),
		"skipped", len(skipped),
		"portfolio_value", session.PortfolioValue,
		"duration", time.Since(start).Round(time.Millisecond).String())
	return nil
}
