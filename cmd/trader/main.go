// Command trader is the one-shot CLI for the simulator: inspect the
// portfolio, run analysis, and place manual trades.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"trader-sim/config"
	"trader-sim/internal/executor"
	"trader-sim/internal/indicator"
	"trader-sim/internal/journal"
	"trader-sim/internal/ledger"
	"trader-sim/internal/logger"
	"trader-sim/internal/marketdata"
	"trader-sim/internal/model"
	"trader-sim/internal/risk"
	"trader-sim/internal/screener"
)

const usage = `usage: trader [-config path] <command> [args]

commands:
  status                      show portfolio status
  buy <symbol> <shares>       buy shares at the current market price
  sell <symbol> <shares>      sell shares at the current market price
  maxshares <symbol>          max affordable shares under the guardrails
  analyze <symbol>            technical analysis for one symbol
  screen                      run the screener over the universe
  summary                     market-wide summary
  history [n]                 last n transactions (default 10)
  advance                     advance the simulation day
  reset                       reset the portfolio to starting cash
`

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	log := logger.Init("trader", slog.LevelWarn)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fatal("load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		fatal("invalid config: %v", err)
	}

	app, err := newApp(cfg, log)
	if err != nil {
		fatal("%v", err)
	}
	defer app.close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := app.run(ctx, flag.Args()); err != nil {
		fatal("%v", err)
	}
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "trader: "+format+"\n", args...)
	os.Exit(1)
}

type app struct {
	cfg    *config.Config
	ledger *ledger.Ledger
	source marketdata.Source
	exec   *executor.Executor
	jrnl   *journal.Journal
	log    *slog.Logger
}

func newApp(cfg *config.Config, log *slog.Logger) (*app, error) {
	led, err := ledger.New(cfg.Account.StartingCash, ledger.NewFileStore(cfg.Account.PortfolioFile))
	if err != nil {
		return nil, err
	}

	source := buildSource(cfg, log)

	jrnl, err := journal.Open(cfg.Journal.SQLitePath)
	if err != nil {
		log.Warn("journal unavailable", "err", err)
		jrnl = nil
	}

	exec := executor.New(led, risk.NewValidator(cfg.Guardrails), source, jrnl, nil, log)
	return &app{cfg: cfg, ledger: led, source: source, exec: exec, jrnl: jrnl, log: log}, nil
}

// buildSource assembles the price/history chain: Yahoo first, with an
// optional Redis cache in front, and the synthetic generator as backstop.
func buildSource(cfg *config.Config, log *slog.Logger) marketdata.Source {
	yahoo := marketdata.NewYahoo(log)
	synthetic := marketdata.NewSynthetic()

	var price marketdata.PriceSource = yahoo
	if cfg.Redis.Addr != "" {
		cache, err := marketdata.NewCache(marketdata.CacheConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, yahoo, log)
		if err != nil {
			log.Warn("redis cache unavailable, running uncached", "err", err)
		} else {
			price = cache
		}
	}

	return marketdata.NewChain(log,
		[]marketdata.PriceSource{price, synthetic},
		[]marketdata.HistorySource{yahoo, synthetic},
	)
}

func (a *app) close() {
	if a.jrnl != nil {
		a.jrnl.Close()
	}
}

func (a *app) run(ctx context.Context, args []string) error {
	switch args[0] {
	case "status":
		return a.status(ctx)
	case "buy", "sell":
		return a.trade(ctx, args)
	case "maxshares":
		return a.maxShares(ctx, args)
	case "analyze":
		return a.analyze(ctx, args)
	case "screen":
		return a.screen(ctx, true)
	case "summary":
		return a.screen(ctx, false)
	case "history":
		return a.history(args)
	case "advance":
		if err := a.ledger.AdvanceDay(); err != nil {
			return err
		}
		fmt.Printf("Advanced to day %d\n", a.ledger.Day())
		return nil
	case "reset":
		if err := a.ledger.Reset(); err != nil {
			return err
		}
		fmt.Printf("Portfolio reset to $%.2f\n", a.ledger.StartingCash())
		return nil
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func (a *app) status(ctx context.Context) error {
	prices := marketdata.Prices(ctx, a.source, heldAndUniverse(a.ledger, a.cfg.Universe))
	return printJSON(a.ledger.Status(prices))
}

func (a *app) trade(ctx context.Context, args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("usage: trader %s <symbol> <shares>", args[0])
	}
	shares, err := strconv.ParseFloat(args[2], 64)
	if err != nil {
		return fmt.Errorf("invalid shares %q", args[2])
	}
	action := model.ActionBuy
	if args[0] == "sell" {
		action = model.ActionSell
	}

	res := a.exec.Execute(ctx, action, args[1], shares, 0, risk.Counters{})
	fmt.Println(res.Message)
	if !res.Success {
		os.Exit(1)
	}
	return nil
}

func (a *app) maxShares(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: trader maxshares <symbol>")
	}
	n := a.exec.MaxShares(ctx, args[1], 0)
	fmt.Printf("%s: max %d shares\n", strings.ToUpper(args[1]), n)
	return nil
}

func (a *app) analyze(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: trader analyze <symbol>")
	}
	symbol := strings.ToUpper(args[1])
	bars, err := a.source.History(ctx, symbol, 90)
	if err != nil {
		return fmt.Errorf("history for %s: %w", symbol, err)
	}
	rec, err := indicator.Analyze(symbol, bars)
	if err != nil {
		return err
	}
	return printJSON(rec)
}

func (a *app) screen(ctx context.Context, filtered bool) error {
	records := make([]model.AnalysisRecord, 0, len(a.cfg.Universe))
	for _, sym := range a.cfg.Universe {
		bars, err := a.source.History(ctx, sym, 90)
		if err != nil {
			continue
		}
		rec, err := indicator.Analyze(sym, bars)
		if err != nil {
			continue
		}
		records = append(records, *rec)
	}
	if len(records) == 0 {
		return fmt.Errorf("no market data available")
	}

	if filtered {
		passed := screener.Filter(records, a.cfg.Screening)
		return printJSON(screener.RankByDailyChange(passed))
	}
	return printJSON(screener.Summarize(records, 5))
}

func (a *app) history(args []string) error {
	n := 10
	if len(args) > 1 {
		parsed, err := strconv.Atoi(args[1])
		if err != nil || parsed <= 0 {
			return fmt.Errorf("invalid count %q", args[1])
		}
		n = parsed
	}
	txs := a.ledger.Transactions()
	if len(txs) > n {
		txs = txs[len(txs)-n:]
	}
	return printJSON(txs)
}

func heldAndUniverse(l *ledger.Ledger, universe []string) []string {
	seen := make(map[string]bool, len(universe))
	symbols := make([]string, 0, len(universe))
	for _, sym := range universe {
		symbols = append(symbols, sym)
		seen[sym] = true
	}
	for sym := range l.Holdings() {
		if !seen[sym] {
			symbols = append(symbols, sym)
		}
	}
	return symbols
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
