package metrics

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the trading simulator.
type Metrics struct {
	TradesExecuted *prometheus.CounterVec // labels: action
	TradesRejected *prometheus.CounterVec // labels: action
	PriceLookups   prometheus.Counter
	PriceFailures  prometheus.Counter
	AnalyzeDur     prometheus.Histogram
	CycleDur       prometheus.Histogram
	PortfolioValue prometheus.Gauge
	CashBalance    prometheus.Gauge
	OpenPositions  prometheus.Gauge
	SimulationDay  prometheus.Gauge
}

// NewMetrics registers and returns all Prometheus metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		TradesExecuted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trader_trades_executed_total",
			Help: "Trades executed (by action)",
		}, []string{"action"}),
		TradesRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trader_trades_rejected_total",
			Help: "Trades rejected by validation (by action)",
		}, []string{"action"}),
		PriceLookups: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trader_price_lookups_total",
			Help: "Price lookups against the market data chain",
		}),
		PriceFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trader_price_failures_total",
			Help: "Price lookups where every source failed",
		}),
		AnalyzeDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "trader_analyze_duration_seconds",
			Help:    "Indicator computation latency per symbol",
			Buckets: []float64{0.00001, 0.0001, 0.001, 0.01, 0.1, 1},
		}),
		CycleDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "trader_cycle_duration_seconds",
			Help:    "Full autotrader cycle latency",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120},
		}),
		PortfolioValue: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "trader_portfolio_value_dollars",
			Help: "Total portfolio value (cash + holdings) at last valuation",
		}),
		CashBalance: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "trader_cash_balance_dollars",
			Help: "Current cash balance",
		}),
		OpenPositions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "trader_open_positions",
			Help: "Number of symbols currently held",
		}),
		SimulationDay: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "trader_simulation_day",
			Help: "Current simulation day counter",
		}),
	}

	prometheus.MustRegister(
		m.TradesExecuted,
		m.TradesRejected,
		m.PriceLookups,
		m.PriceFailures,
		m.AnalyzeDur,
		m.CycleDur,
		m.PortfolioValue,
		m.CashBalance,
		m.OpenPositions,
		m.SimulationDay,
	)

	return m
}

// HealthStatus represents the system health.
type HealthStatus struct {
	mu sync.RWMutex

	RedisConnected bool      `json:"redis_connected"`
	SQLiteOK       bool      `json:"sqlite_ok"`
	MarketDataOK   bool      `json:"market_data_ok"`
	LastCycleTime  time.Time `json:"last_cycle_time"`

	// Liveness probe results
	RedisLatencyMs  float64   `json:"redis_latency_ms"`
	SQLiteLatencyMs float64   `json:"sqlite_latency_ms"`
	LastCheckAt     time.Time `json:"last_check_at"`
	StartedAt       time.Time `json:"started_at"`
}

// NewHealthStatus returns a default health status.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{
		MarketDataOK: true,
		StartedAt:    time.Now(),
	}
}

func (h *HealthStatus) SetMarketDataOK(v bool) {
	h.mu.Lock()
	h.MarketDataOK = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetLastCycleTime(t time.Time) {
	h.mu.Lock()
	h.LastCycleTime = t
	h.mu.Unlock()
}

// CheckRedis pings Redis and records latency + connectivity.
func (h *HealthStatus) CheckRedis(ctx context.Context, rdb *goredis.Client) {
	start := time.Now()
	err := rdb.Ping(ctx).Err()
	latency := time.Since(start)

	h.mu.Lock()
	h.RedisConnected = err == nil
	h.RedisLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// CheckSQLite runs a trivial query and records latency + health.
func (h *HealthStatus) CheckSQLite(ctx context.Context, db *sql.DB) {
	start := time.Now()
	err := db.PingContext(ctx)
	latency := time.Since(start)

	h.mu.Lock()
	h.SQLiteOK = err == nil
	h.SQLiteLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// StartLivenessChecker runs periodic dependency checks.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, rdb *goredis.Client, sqlDB *sql.DB, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
				if rdb != nil {
					h.CheckRedis(probeCtx, rdb)
				}
				if sqlDB != nil {
					h.CheckSQLite(probeCtx, sqlDB)
				}
				cancel()
			}
		}
	}()
}

// ServeHTTP handles the /healthz endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	// Redis and SQLite are optional accelerators; market data drives readiness.
	overallStatus := "healthy"
	httpCode := http.StatusOK
	if !h.MarketDataOK {
		overallStatus = "degraded"
		httpCode = http.StatusServiceUnavailable
	}

	lastCycle := ""
	if !h.LastCycleTime.IsZero() {
		lastCycle = h.LastCycleTime.Format(time.RFC3339)
	}

	status := struct {
		Status          string  `json:"status"`
		Uptime          string  `json:"uptime"`
		MarketDataOK    bool    `json:"market_data_ok"`
		LastCycleTime   string  `json:"last_cycle_time"`
		RedisConnected  bool    `json:"redis_connected"`
		RedisLatencyMs  float64 `json:"redis_latency_ms"`
		SQLiteOK        bool    `json:"sqlite_ok"`
		SQLiteLatencyMs float64 `json:"sqlite_latency_ms"`
		LastCheckAt     string  `json:"last_check_at"`
	}{
		Status:          overallStatus,
		Uptime:          time.Since(h.StartedAt).Round(time.Second).String(),
		MarketDataOK:    h.MarketDataOK,
		LastCycleTime:   lastCycle,
		RedisConnected:  h.RedisConnected,
		RedisLatencyMs:  h.RedisLatencyMs,
		SQLiteOK:        h.SQLiteOK,
		SQLiteLatencyMs: h.SQLiteLatencyMs,
		LastCheckAt:     h.LastCheckAt.Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if httpCode != http.StatusOK {
		w.WriteHeader(httpCode)
	}
	json.NewEncoder(w).Encode(status)
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	health *HealthStatus
	addr   string
	srv    *http.Server
}

// NewServer creates a metrics and health server.
func NewServer(addr string, health *HealthStatus) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", health.ServeHTTP)

	return &Server{
		health: health,
		addr:   addr,
		srv: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
	}
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[metrics] server listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[metrics] server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}
