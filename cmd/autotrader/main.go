// Command autotrader runs the scheduled trading loop: every interval during
// market hours it snapshots the market, asks the advisor for decisions, and
// executes them against the simulated portfolio.
package main

import (
	"context"
	"database/sql"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"trader-sim/config"
	"trader-sim/internal/autotrader"
	"trader-sim/internal/executor"
	"trader-sim/internal/journal"
	"trader-sim/internal/ledger"
	"trader-sim/internal/logger"
	"trader-sim/internal/marketdata"
	"trader-sim/internal/metrics"
	"trader-sim/internal/risk"
)

func main() {
	configPath := flag.String("config", envOr("CONFIG_PATH", "config.yaml"), "path to config file")
	once := flag.Bool("once", false, "run a single trading cycle and exit")
	flag.Parse()

	log := logger.Init("autotrader", slog.LevelInfo)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("load config", "err", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		log.Error("invalid config", "err", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info("shutting down", "signal", sig.String())
		cancel()
	}()

	led, err := ledger.New(cfg.Account.StartingCash, ledger.NewFileStore(cfg.Account.PortfolioFile))
	if err != nil {
		log.Error("open ledger", "err", err)
		os.Exit(1)
	}

	jrnl, err := journal.Open(cfg.Journal.SQLitePath)
	if err != nil {
		log.Warn("journal unavailable, trades will not be persisted to sqlite", "err", err)
		jrnl = nil
	} else {
		defer jrnl.Close()
	}

	m := metrics.NewMetrics()
	health := metrics.NewHealthStatus()
	msrv := metrics.NewServer(cfg.Listen.Metrics, health)
	msrv.Start()
	defer func() {
		shutCtx, shutCancel := context.WithTimeout(context.Background(), 5*time.Second)
		msrv.Stop(shutCtx)
		shutCancel()
	}()

	yahoo := marketdata.NewYahoo(log)
	synthetic := marketdata.NewSynthetic()

	var rdb *goredis.Client
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
			rdb = cache.Client()
		}
	}
	source := marketdata.NewChain(log,
		[]marketdata.PriceSource{price, synthetic},
		[]marketdata.HistorySource{yahoo, synthetic},
	)

	var sqlDB *sql.DB
	if jrnl != nil {
		sqlDB = jrnl.DB()
	}
	health.StartLivenessChecker(ctx, rdb, sqlDB, 30*time.Second)

	exec := executor.New(led, risk.NewValidator(cfg.Guardrails), source, jrnl, m, log)

	advisor, err := autotrader.NewCLIAdvisor(cfg.Advisor.Command,
		time.Duration(cfg.Advisor.TimeoutSeconds)*time.Second)
	if err != nil {
		log.Error("advisor config", "err", err)
		os.Exit(1)
	}

	trader := autotrader.New(autotrader.Config{
		Universe: cfg.Universe,
		Source:   source,
		Ledger:   led,
		Executor: exec,
		Policy:   cfg.Guardrails,
		Advisor:  advisor,
		Guidance: cfg.Guidance,
		Sessions: autotrader.NewSessionLog(cfg.Sessions.LogFile),
		Metrics:  m,
		Log:      log,
	})

	if *once {
		if err := trader.RunCycle(ctx); err != nil {
			log.Error("trading cycle failed", "err", err)
			os.Exit(1)
		}
		return
	}

	sched, err := autotrader.NewScheduler(ctx, trader, cfg.Schedule.CheckIntervalMinutes, log)
	if err != nil {
		log.Error("scheduler", "err", err)
		os.Exit(1)
	}
	sched.Start()
	log.Info("autotrader started",
		"interval_minutes", cfg.Schedule.CheckIntervalMinutes,
		"universe_size", len(cfg.Universe))

	<-ctx.Done()
	sched.Stop()
	log.Info("autotrader stopped")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
