package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Account.StartingCash != 1000 {
		t.Errorf("starting cash: %v", cfg.Account.StartingCash)
	}
	if len(cfg.Universe) == 0 {
		t.Error("universe empty")
	}
	if cfg.Guardrails.MaxPositionPct != 0.25 {
		t.Errorf("guardrails default: %+v", cfg.Guardrails)
	}
	if cfg.Screening.MinATR != 1.0 || cfg.Screening.MaxPrice != 500 {
		t.Errorf("screening default: %+v", cfg.Screening)
	}
	if cfg.Schedule.CheckIntervalMinutes != 5 {
		t.Errorf("interval default: %d", cfg.Schedule.CheckIntervalMinutes)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoad_YAMLAndOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
account:
  starting_cash: 5000
universe: [pltr, amd]
guardrails:
  max_position_pct: 0.5
  max_positions: 4
schedule:
  check_interval_minutes: 15
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("TRADER_STARTING_CASH", "2500")
	t.Setenv("DASHBOARD_ADDR", ":9999")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Account.StartingCash != 2500 {
		t.Errorf("env override lost: %v", cfg.Account.StartingCash)
	}
	if len(cfg.Universe) != 2 || cfg.Universe[0] != "PLTR" {
		t.Errorf("universe: %v", cfg.Universe)
	}
	if cfg.Guardrails.MaxPositionPct != 0.5 || cfg.Guardrails.MaxPositions != 4 {
		t.Errorf("guardrails: %+v", cfg.Guardrails)
	}
	if cfg.Schedule.CheckIntervalMinutes != 15 {
		t.Errorf("interval: %d", cfg.Schedule.CheckIntervalMinutes)
	}
	if cfg.Listen.Dashboard != ":9999" {
		t.Errorf("dashboard addr: %s", cfg.Listen.Dashboard)
	}
}

func TestLoad_PartialGuardrailsKeepDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
guardrails:
  min_cash_reserve: 100
  max_daily_trades: 0
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Guardrails.MinCashReserve != 100 {
		t.Errorf("min_cash_reserve: %v", cfg.Guardrails.MinCashReserve)
	}
	// Keys absent from the file keep their defaults instead of going to 0.
	if cfg.Guardrails.MaxPositionPct != 0.25 || cfg.Guardrails.MaxPositions != 10 {
		t.Errorf("unset guardrails lost defaults: %+v", cfg.Guardrails)
	}
	if cfg.Guardrails.MaxDailyBuys != 5 || cfg.Guardrails.MaxSingleLossPct != 12 {
		t.Errorf("unset guardrails lost defaults: %+v", cfg.Guardrails)
	}
	// An explicit 0 means unlimited and must not be re-defaulted.
	if cfg.Guardrails.MaxDailyTrades != 0 {
		t.Errorf("explicit zero overwritten: %d", cfg.Guardrails.MaxDailyTrades)
	}
}

func TestValidate(t *testing.T) {
	cfg, _ := Load(filepath.Join(t.TempDir(), "missing.yaml"))

	cfg.Account.StartingCash = -1
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for negative cash")
	}

	cfg, _ = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	cfg.Guardrails.MaxPositionPct = 1.5
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for pct > 1")
	}
}
