// Command dashboard serves the REST API and WebSocket stream for the
// portfolio dashboard.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trader-sim/config"
	"trader-sim/internal/executor"
	"trader-sim/internal/gateway"
	"trader-sim/internal/journal"
	"trader-sim/internal/ledger"
	"trader-sim/internal/logger"
	"trader-sim/internal/marketdata"
	"trader-sim/internal/metrics"
	"trader-sim/internal/risk"
)

const statusBroadcastInterval = 5 * time.Second

func main() {
	configPath := flag.String("config", envOr("CONFIG_PATH", "config.yaml"), "path to config file")
	flag.Parse()

	log := logger.Init("dashboard", slog.LevelInfo)

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
		log.Warn("journal unavailable", "err", err)
		jrnl = nil
	} else {
		defer jrnl.Close()
	}

	m := metrics.NewMetrics()
	health := metrics.NewHealthStatus()
	msrv := metrics.NewServer(cfg.Listen.Metrics, health)
	msrv.Start()

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
	source := marketdata.NewChain(log,
		[]marketdata.PriceSource{price, synthetic},
		[]marketdata.HistorySource{yahoo, synthetic},
	)

	exec := executor.New(led, risk.NewValidator(cfg.Guardrails), source, jrnl, m, log)

	hub := gateway.NewHub(log)
	srv := gateway.NewServer(cfg.Listen.Dashboard, led, exec, source, cfg.Universe, hub, log)

	go hub.StartStatusBroadcast(ctx, statusBroadcastInterval, func() any {
		prices := marketdata.Prices(ctx, source, cfg.Universe)
		return led.Status(prices)
	})

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("dashboard server", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutCancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		log.Warn("dashboard shutdown", "err", err)
	}
	msrv.Stop(shutCtx)
	log.Info("dashboard stopped")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
