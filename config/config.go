// Package config loads application configuration from a YAML file with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"trader-sim/internal/risk"
	"trader-sim/internal/screener"
)

// Config holds all application configuration.
type Config struct {
	Account struct {
		StartingCash  float64 `yaml:"starting_cash"`
		PortfolioFile string  `yaml:"portfolio_file"`
	} `yaml:"account"`

	Universe []string `yaml:"universe"`

	Screening screener.Criteria `yaml:"screening"`

	Guardrails risk.Policy `yaml:"guardrails"`

	Guidance string `yaml:"guidance"`

	Advisor struct {
		Command        []string `yaml:"command"`
		TimeoutSeconds int      `yaml:"timeout_seconds"`
	} `yaml:"advisor"`

	Schedule struct {
		CheckIntervalMinutes int `yaml:"check_interval_minutes"`
	} `yaml:"schedule"`

	Journal struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"journal"`

	Sessions struct {
		LogFile string `yaml:"log_file"`
	} `yaml:"sessions"`

	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Listen struct {
		Dashboard string `yaml:"dashboard"`
		Metrics   string `yaml:"metrics"`
	} `yaml:"listen"`
}

// defaultUniverse is a volatile small/mid-cap and growth universe.
var defaultUniverse = []string{
	"PLTR", "SOFI", "HOOD", "AFRM", "UPST", "PATH", "DKNG", "RBLX",
	"U", "SNAP", "PINS", "ROKU", "SQ", "COIN", "MARA", "RIOT",
	"MRNA", "BNTX", "CRSP", "NVAX", "SGEN", "EXAS", "VRTX", "REGN",
	"RIVN", "LCID", "NIO", "XPEV", "PLUG", "FCEL", "CHPT", "QS",
	"GME", "AMC", "BBBY", "TLRY", "SNDL", "SPCE",
	"CRWD", "DDOG", "NET", "ZS", "MDB", "SNOW", "TTD", "ENPH",
	"TSLA", "AMD", "NVDA", "META",
}

// guardrailKeys mirrors the guardrails block with pointer fields so an
// omitted key is distinguishable from an explicit zero (0 means "unlimited"
// for the daily budgets).
type guardrailKeys struct {
	MaxPositionPct   *float64 `yaml:"max_position_pct"`
	MaxPositions     *int     `yaml:"max_positions"`
	MinPositionValue *float64 `yaml:"min_position_value"`
	MinCashReserve   *float64 `yaml:"min_cash_reserve"`
	MaxDailyTrades   *int     `yaml:"max_daily_trades"`
	MaxDailyBuys     *int     `yaml:"max_daily_buys"`
	MaxSingleLossPct *float64 `yaml:"max_single_loss_pct"`
}

// Load reads config from a YAML file, then applies environment variable
// overrides and defaults. A missing file yields the default configuration.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var raw struct {
		Guardrails guardrailKeys `yaml:"guardrails"`
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("TRADER_STARTING_CASH"); v != "" {
		if cash, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Account.StartingCash = cash
		}
	}
	if v := os.Getenv("TRADER_PORTFOLIO_FILE"); v != "" {
		cfg.Account.PortfolioFile = v
	}
	if v := os.Getenv("TRADER_UNIVERSE"); v != "" {
		cfg.Universe = splitSymbols(v)
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Journal.SQLitePath = v
	}
	if v := os.Getenv("DASHBOARD_ADDR"); v != "" {
		cfg.Listen.Dashboard = v
	}
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		cfg.Listen.Metrics = v
	}
	if v := os.Getenv("ADVISOR_COMMAND"); v != "" {
		cfg.Advisor.Command = strings.Fields(v)
	}

	cfg.applyDefaults(raw.Guardrails)
	return cfg, nil
}

func (c *Config) applyDefaults(guardrails guardrailKeys) {
	if c.Account.StartingCash == 0 {
		c.Account.StartingCash = 1000
	}
	if c.Account.PortfolioFile == "" {
		c.Account.PortfolioFile = "data/portfolio.json"
	}
	if len(c.Universe) == 0 {
		c.Universe = append([]string(nil), defaultUniverse...)
	}
	for i, sym := range c.Universe {
		c.Universe[i] = strings.ToUpper(strings.TrimSpace(sym))
	}

	zero := screener.Criteria{}
	if c.Screening == zero {
		c.Screening = screener.Criteria{
			MinATR:       1.0,
			MinAvgVolume: 500_000,
			MinPrice:     1,
			MaxPrice:     500,
		}
	}

	// Each guardrail defaults independently: only keys present in the file
	// override the default, so setting one limit does not discard the rest
	// and an explicit 0 survives where the policy treats 0 as unlimited.
	p := risk.DefaultPolicy()
	if guardrails.MaxPositionPct != nil {
		p.MaxPositionPct = *guardrails.MaxPositionPct
	}
	if guardrails.MaxPositions != nil {
		p.MaxPositions = *guardrails.MaxPositions
	}
	if guardrails.MinPositionValue != nil {
		p.MinPositionValue = *guardrails.MinPositionValue
	}
	if guardrails.MinCashReserve != nil {
		p.MinCashReserve = *guardrails.MinCashReserve
	}
	if guardrails.MaxDailyTrades != nil {
		p.MaxDailyTrades = *guardrails.MaxDailyTrades
	}
	if guardrails.MaxDailyBuys != nil {
		p.MaxDailyBuys = *guardrails.MaxDailyBuys
	}
	if guardrails.MaxSingleLossPct != nil {
		p.MaxSingleLossPct = *guardrails.MaxSingleLossPct
	}
	p.BlockedSymbols = c.Guardrails.BlockedSymbols
	c.Guardrails = p

	if len(c.Advisor.Command) == 0 {
		c.Advisor.Command = []string{"claude", "-p", "--output-format", "text"}
	}
	if c.Advisor.TimeoutSeconds <= 0 {
		c.Advisor.TimeoutSeconds = 120
	}
	if c.Schedule.CheckIntervalMinutes <= 0 {
		c.Schedule.CheckIntervalMinutes = 5
	}
	if c.Journal.SQLitePath == "" {
		c.Journal.SQLitePath = "data/trades.db"
	}
	if c.Sessions.LogFile == "" {
		c.Sessions.LogFile = "data/trade_log.json"
	}
	if c.Listen.Dashboard == "" {
		c.Listen.Dashboard = ":8080"
	}
	if c.Listen.Metrics == "" {
		c.Listen.Metrics = ":9090"
	}
	// Redis.Addr stays empty unless configured: the price cache is optional.
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.Account.StartingCash <= 0 {
		return fmt.Errorf("account.starting_cash must be positive")
	}
	if len(c.Universe) == 0 {
		return fmt.Errorf("universe must not be empty")
	}
	if c.Guardrails.MaxPositionPct <= 0 || c.Guardrails.MaxPositionPct > 1 {
		return fmt.Errorf("guardrails.max_position_pct must be in (0, 1]")
	}
	if c.Guardrails.MaxPositions <= 0 {
		return fmt.Errorf("guardrails.max_positions must be positive")
	}
	return nil
}

func splitSymbols(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
