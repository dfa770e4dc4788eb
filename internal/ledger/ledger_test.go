package ledger

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"trader-sim/internal/model"
)

func assertClose(t *testing.T, label string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 0.005 {
		t.Errorf("%s: got %.4f, want %.4f", label, got, want)
	}
}

func newTestLedger(t *testing.T, startingCash float64) *Ledger {
	t.Helper()
	l, err := New(startingCash, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return l
}

func TestAddHolding_FirstBuy(t *testing.T) {
	l := newTestLedger(t, 1000)
	l.AddHolding("PLTR", 5, 100)

	h, ok := l.Holding("PLTR")
	if !ok {
		t.Fatal("expected PLTR holding")
	}
	assertClose(t, "shares", h.Shares, 5)
	assertClose(t, "cost basis", h.CostBasis, 500)
	assertClose(t, "avg price", h.AvgPrice, 100)
}

func TestAddHolding_WeightedAverage(t *testing.T) {
	// Buys at p1..pn of s1..sn shares must yield
	// avg_price == sum(si*pi)/sum(si).
	l := newTestLedger(t, 100000)

	buys := []struct{ shares, price float64 }{
		{5, 100}, {5, 120}, {10, 90}, {2.5, 200},
	}
	var totalShares, totalCost float64
	for _, b := range buys {
		l.AddHolding("SOFI", b.shares, b.price)
		totalShares += b.shares
		totalCost += b.shares * b.price
	}

	h, _ := l.Holding("SOFI")
	assertClose(t, "shares", h.Shares, totalShares)
	assertClose(t, "cost basis", h.CostBasis, totalCost)
	assertClose(t, "avg price", h.AvgPrice, totalCost/totalShares)

	// CostBasis == Shares*AvgPrice within rounding tolerance.
	assertClose(t, "invariant", h.CostBasis, h.Shares*h.AvgPrice)
}

func TestRemoveHolding_PartialSellPreservesAvgPrice(t *testing.T) {
	l := newTestLedger(t, 10000)
	l.AddHolding("HOOD", 10, 50) // basis 500, avg 50

	realized, err := l.RemoveHolding("HOOD", 4, 65)
	if err != nil {
		t.Fatalf("RemoveHolding: %v", err)
	}
	assertClose(t, "realized", realized, (65-50)*4)

	h, ok := l.Holding("HOOD")
	if !ok {
		t.Fatal("expected remaining holding")
	}
	assertClose(t, "shares", h.Shares, 6)
	assertClose(t, "avg price unchanged", h.AvgPrice, 50)
	// Cost basis scaled by (shares-k)/shares = 6/10.
	assertClose(t, "cost basis", h.CostBasis, 500*0.6)
}

func TestRemoveHolding_FullSellDeletesHolding(t *testing.T) {
	l := newTestLedger(t, 10000)
	l.AddHolding("GME", 3, 20)

	realized, err := l.RemoveHolding("GME", 3, 25)
	if err != nil {
		t.Fatalf("RemoveHolding: %v", err)
	}
	assertClose(t, "realized", realized, 15)

	if _, ok := l.Holding("GME"); ok {
		t.Error("expected holding to be removed after full sell")
	}
}

func TestRemoveHolding_Errors(t *testing.T) {
	l := newTestLedger(t, 10000)
	l.AddHolding("AMC", 2, 10)

	if _, err := l.RemoveHolding("TSLA", 1, 100); err == nil {
		t.Error("expected ErrNoPosition for unheld symbol")
	}
	if _, err := l.RemoveHolding("AMC", 3, 10); err == nil {
		t.Error("expected ErrInsufficientShares")
	}
	// Failed sells must leave the holding untouched.
	h, _ := l.Holding("AMC")
	assertClose(t, "shares", h.Shares, 2)
	assertClose(t, "cost basis", h.CostBasis, 20)
}

func TestApplyBuySellSequence(t *testing.T) {
	// Start cash 2000; BUY 5 @ 100, BUY 5 @ 120, SELL 10 @ 130.
	l := newTestLedger(t, 2000)

	l.ApplyBuy("RIOT", 5, 100)
	assertClose(t, "cash after first buy", l.Cash(), 1500)

	l.ApplyBuy("RIOT", 5, 120)
	assertClose(t, "cash after second buy", l.Cash(), 900)

	h, _ := l.Holding("RIOT")
	assertClose(t, "shares", h.Shares, 10)
	assertClose(t, "avg price", h.AvgPrice, 110)
	assertClose(t, "cost basis", h.CostBasis, 1100)

	_, realized, err := l.ApplySell("RIOT", 10, 130)
	if err != nil {
		t.Fatalf("ApplySell: %v", err)
	}
	assertClose(t, "realized pnl", realized, 200)
	assertClose(t, "cash after sell", l.Cash(), 900+1300)
	if _, ok := l.Holding("RIOT"); ok {
		t.Error("expected full exit to remove holding")
	}
	if got := l.TransactionCount(); got != 3 {
		t.Errorf("expected 3 transactions, got %d", got)
	}
}

func TestHoldingsValue_MissingPriceFallsBackToAvgPrice(t *testing.T) {
	l := newTestLedger(t, 1000)
	l.AddHolding("NET", 4, 25)  // basis 100
	l.AddHolding("MDB", 2, 200) // basis 400

	// Only NET has a live price; MDB is valued at its avg price.
	value := l.HoldingsValue(map[string]float64{"NET": 30})
	assertClose(t, "holdings value", value, 4*30+2*200)
}

func TestTotalReturn(t *testing.T) {
	l := newTestLedger(t, 1000)
	l.ApplyBuy("U", 10, 50) // cash 500, basis 500

	prices := map[string]float64{"U": 60}
	assertClose(t, "total value", l.TotalValue(prices), 500+600)
	assertClose(t, "total return", l.TotalReturn(prices), 10)
}

func TestRecordTransaction_TotalRounded(t *testing.T) {
	l := newTestLedger(t, 1000)
	tx := l.RecordTransaction(model.ActionBuy, "SNAP", 3, 33.333)
	assertClose(t, "total", tx.Total, 100.0) // 99.999 rounds to 100.00
	if tx.Action != model.ActionBuy || tx.Symbol != "SNAP" {
		t.Errorf("unexpected transaction: %+v", tx)
	}
}

func TestResetClearsState(t *testing.T) {
	l := newTestLedger(t, 1000)
	l.ApplyBuy("COIN", 2, 100)
	if err := l.AdvanceDay(); err != nil {
		t.Fatalf("AdvanceDay: %v", err)
	}
	if l.Day() != 2 {
		t.Errorf("expected day 2, got %d", l.Day())
	}

	if err := l.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	assertClose(t, "cash", l.Cash(), 1000)
	if l.NumHoldings() != 0 || l.TransactionCount() != 0 || l.Day() != 1 {
		t.Errorf("expected clean state, got holdings=%d txs=%d day=%d",
			l.NumHoldings(), l.TransactionCount(), l.Day())
	}
}

func TestPersistenceRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "portfolio.json")
	store := NewFileStore(path)

	l, err := New(2000, store)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	l.ApplyBuy("DDOG", 5, 100)
	l.ApplyBuy("DDOG", 5, 120)
	if err := l.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// Reload into a fresh ledger and re-persist: logical state must match.
	reloaded, err := New(2000, store)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	assertClose(t, "cash", reloaded.Cash(), l.Cash())
	if reloaded.TransactionCount() != l.TransactionCount() {
		t.Errorf("transaction count: got %d, want %d",
			reloaded.TransactionCount(), l.TransactionCount())
	}
	h1, _ := l.Holding("DDOG")
	h2, ok := reloaded.Holding("DDOG")
	if !ok {
		t.Fatal("expected DDOG after reload")
	}
	assertClose(t, "shares", h2.Shares, h1.Shares)
	assertClose(t, "cost basis", h2.CostBasis, h1.CostBasis)
	assertClose(t, "avg price", h2.AvgPrice, h1.AvgPrice)

	if err := reloaded.Save(); err != nil {
		t.Fatalf("re-save: %v", err)
	}
}

func TestLoadMissingFileYieldsInitialState(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "nope.json"))
	l, err := New(1234, store)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	assertClose(t, "cash", l.Cash(), 1234)
	if l.Day() != 1 || l.NumHoldings() != 0 {
		t.Errorf("expected initial state, got day=%d holdings=%d", l.Day(), l.NumHoldings())
	}
	if l.StartDate().IsZero() {
		t.Error("expected start date to be set")
	}
}

func TestLoadStateWithoutCashDefaultsToStartingCash(t *testing.T) {
	// Older state files may omit the cash field entirely; it must default to
	// the configured starting cash, not load as $0.
	path := filepath.Join(t.TempDir(), "portfolio.json")
	if err := os.WriteFile(path, []byte(`{"holdings":{},"transactions":[],"day":3}`), 0o644); err != nil {
		t.Fatal(err)
	}

	l, err := New(1000, NewFileStore(path))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	assertClose(t, "cash", l.Cash(), 1000)
	if l.Day() != 3 {
		t.Errorf("day: got %d, want 3", l.Day())
	}

	// An explicit zero is a real balance and must survive.
	if err := os.WriteFile(path, []byte(`{"cash":0,"holdings":{},"day":1}`), 0o644); err != nil {
		t.Fatal(err)
	}
	l, err = New(1000, NewFileStore(path))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	assertClose(t, "explicit zero cash", l.Cash(), 0)
}

func TestSnapshotValuation(t *testing.T) {
	l := newTestLedger(t, 1000)
	l.ApplyBuy("ZS", 4, 50) // cash 800, basis 200

	snap := l.Snapshot(map[string]float64{"ZS": 55})
	assertClose(t, "snapshot cash", snap.Cash, 800)
	assertClose(t, "snapshot total", snap.TotalValue, 800+4*55)
	if _, ok := snap.Holdings["ZS"]; !ok {
		t.Error("expected ZS in snapshot holdings")
	}

	// Mutating the snapshot copy must not affect the ledger.
	snap.Holdings["ZS"] = model.Holding{Symbol: "ZS", Shares: 99}
	h, _ := l.Holding("ZS")
	assertClose(t, "ledger shares", h.Shares, 4)
}
