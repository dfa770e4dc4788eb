package risk

import (
	"strings"
	"testing"

	"trader-sim/internal/ledger"
	"trader-sim/internal/model"
)

func snapshot(cash float64, holdings ...model.Holding) ledger.Snapshot {
	m := make(map[string]model.Holding, len(holdings))
	total := cash
	for _, h := range holdings {
		m[h.Symbol] = h
		total += h.Shares * h.AvgPrice
	}
	return ledger.Snapshot{Cash: cash, Holdings: m, TotalValue: total}
}

func policy() Policy {
	return Policy{
		MaxPositionPct: 0.25,
		MaxPositions:   2,
		MaxDailyTrades: 4,
		MaxDailyBuys:   2,
		BlockedSymbols: []string{"SPY"},
	}
}

func TestValidate_Syntactic(t *testing.T) {
	v := NewValidator(policy())
	snap := snapshot(1000)

	cases := []struct {
		name   string
		action model.Action
		symbol string
		shares float64
		want   string
	}{
		{"zero shares", model.ActionBuy, "PLTR", 0, "shares must be positive"},
		{"negative shares", model.ActionSell, "PLTR", -1, "shares must be positive"},
		{"empty symbol", model.ActionBuy, "", 1, "empty symbol"},
		{"bad action", model.Action("HODL"), "PLTR", 1, "unknown action"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := v.Validate(snap, tc.action, tc.symbol, tc.shares, 10, Counters{})
			if got.OK || !strings.Contains(got.Reason, tc.want) {
				t.Errorf("got %+v, want reason containing %q", got, tc.want)
			}
		})
	}
}

func TestValidate_BlockedSymbolBothDirections(t *testing.T) {
	v := NewValidator(policy())
	snap := snapshot(1000, model.Holding{Symbol: "SPY", Shares: 1, CostBasis: 100, AvgPrice: 100})

	if got := v.Validate(snap, model.ActionBuy, "SPY", 1, 100, Counters{}); got.OK {
		t.Error("expected BUY of blocked symbol to be rejected")
	}
	if got := v.Validate(snap, model.ActionSell, "spy", 1, 100, Counters{}); got.OK {
		t.Error("expected SELL of blocked symbol to be rejected (case-insensitive)")
	}
}

func TestValidate_BuyInsufficientCashReportsMaxShares(t *testing.T) {
	v := NewValidator(policy())
	snap := snapshot(250)

	got := v.Validate(snap, model.ActionBuy, "PLTR", 10, 100, Counters{})
	if got.OK {
		t.Fatal("expected rejection")
	}
	if !strings.Contains(got.Reason, "max shares: 2") {
		t.Errorf("expected computed max affordable shares in reason, got %q", got.Reason)
	}
}

func TestValidate_PositionLimit(t *testing.T) {
	// Spec example: total value 1000, max 25%, existing position worth $200;
	// a $60 buy pushes the position to 26% and must be rejected.
	v := NewValidator(policy())
	snap := ledger.Snapshot{
		Cash: 800,
		Holdings: map[string]model.Holding{
			"X": {Symbol: "X", Shares: 10, CostBasis: 200, AvgPrice: 20},
		},
		TotalValue: 1000,
	}

	got := v.Validate(snap, model.ActionBuy, "X", 3, 20, Counters{}) // +$60
	if got.OK {
		t.Fatal("expected position-limit rejection")
	}
	if !strings.Contains(got.Reason, "25%") {
		t.Errorf("expected reason to reference the 25%% limit, got %q", got.Reason)
	}

	// $50 keeps it at exactly 25% and is allowed.
	got = v.Validate(snap, model.ActionBuy, "X", 2.5, 20, Counters{})
	if !got.OK {
		t.Errorf("expected 25%% exactly to be accepted, got %q", got.Reason)
	}
}

func TestValidate_MaxPositionsOnlyForNewSymbols(t *testing.T) {
	v := NewValidator(policy())
	snap := snapshot(10000,
		model.Holding{Symbol: "A", Shares: 1, CostBasis: 10, AvgPrice: 10},
		model.Holding{Symbol: "B", Shares: 1, CostBasis: 10, AvgPrice: 10},
	)

	if got := v.Validate(snap, model.ActionBuy, "C", 1, 10, Counters{}); got.OK {
		t.Error("expected new-symbol buy beyond max positions to be rejected")
	}
	// Adding to an existing position is still allowed.
	if got := v.Validate(snap, model.ActionBuy, "A", 1, 10, Counters{}); !got.OK {
		t.Errorf("expected add-on buy to pass, got %q", got.Reason)
	}
}

func TestValidate_DailyBudgets(t *testing.T) {
	v := NewValidator(policy())
	snap := snapshot(10000)

	if got := v.Validate(snap, model.ActionBuy, "A", 1, 10, Counters{Trades: 4}); got.OK {
		t.Error("expected max-daily-trades rejection")
	}
	if got := v.Validate(snap, model.ActionBuy, "A", 1, 10, Counters{Trades: 2, Buys: 2}); got.OK {
		t.Error("expected max-daily-buys rejection")
	}
	// Sells are not capped by the buy budget.
	snap = snapshot(10000, model.Holding{Symbol: "A", Shares: 5, CostBasis: 50, AvgPrice: 10})
	if got := v.Validate(snap, model.ActionSell, "A", 1, 10, Counters{Trades: 2, Buys: 2}); !got.OK {
		t.Errorf("expected sell to pass buy budget, got %q", got.Reason)
	}
}

func TestValidate_CashReserveAndMinValue(t *testing.T) {
	p := policy()
	p.MinCashReserve = 25
	p.MinPositionValue = 20
	v := NewValidator(p)
	snap := snapshot(100)

	if got := v.Validate(snap, model.ActionBuy, "A", 8, 10, Counters{}); got.OK {
		t.Error("expected cash-reserve rejection ($20 left < $25 reserve)")
	}
	if got := v.Validate(snap, model.ActionBuy, "A", 1, 10, Counters{}); got.OK {
		t.Error("expected min-position-value rejection ($10 < $20)")
	}
	if got := v.Validate(snap, model.ActionBuy, "A", 2, 10, Counters{}); !got.OK {
		t.Errorf("expected $20 buy leaving $80 to pass, got %q", got.Reason)
	}
}

func TestValidate_Sell(t *testing.T) {
	v := NewValidator(policy())
	snap := snapshot(100, model.Holding{Symbol: "A", Shares: 3, CostBasis: 30, AvgPrice: 10})

	if got := v.Validate(snap, model.ActionSell, "Z", 1, 10, Counters{}); got.OK {
		t.Error("expected no-position rejection")
	}
	got := v.Validate(snap, model.ActionSell, "A", 5, 10, Counters{})
	if got.OK || !strings.Contains(got.Reason, "have 3") {
		t.Errorf("expected owned amount in rejection, got %+v", got)
	}
	if got := v.Validate(snap, model.ActionSell, "A", 3, 10, Counters{}); !got.OK {
		t.Errorf("expected full-position sell to pass, got %q", got.Reason)
	}
}

func TestMaxShares(t *testing.T) {
	v := NewValidator(policy()) // 25% cap

	// Cash-bound: total 1000, cap allows $250, cash only $100.
	snap := ledger.Snapshot{Cash: 100, Holdings: map[string]model.Holding{}, TotalValue: 1000}
	if got := v.MaxShares(snap, "A", 10); got != 10 {
		t.Errorf("cash-bound: got %d, want 10", got)
	}

	// Allocation-bound: plenty of cash, $250 cap, $200 already held in A.
	snap = ledger.Snapshot{
		Cash: 750,
		Holdings: map[string]model.Holding{
			"A": {Symbol: "A", Shares: 20, CostBasis: 200, AvgPrice: 10},
		},
		TotalValue: 1000,
	}
	if got := v.MaxShares(snap, "A", 10); got != 5 { // (250-200)/10
		t.Errorf("allocation-bound: got %d, want 5", got)
	}

	// Negative remaining allocation clamps to zero.
	snap.Holdings["A"] = model.Holding{Symbol: "A", Shares: 30, CostBasis: 300, AvgPrice: 10}
	if got := v.MaxShares(snap, "A", 10); got != 0 {
		t.Errorf("over-allocated: got %d, want 0", got)
	}

	if got := v.MaxShares(snap, "A", 0); got != 0 {
		t.Errorf("zero price: got %d, want 0", got)
	}
}
