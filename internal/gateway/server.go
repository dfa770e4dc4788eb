package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"trader-sim/internal/executor"
	"trader-sim/internal/indicator"
	"trader-sim/internal/ledger"
	"trader-sim/internal/marketdata"
	"trader-sim/internal/model"
	"trader-sim/internal/risk"
	"trader-sim/internal/screener"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Dashboard is same-host; cross-origin access is not a concern here.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Server is the dashboard HTTP server: REST over the ledger and executor
// plus the WebSocket event stream.
type Server struct {
	ledger   *ledger.Ledger
	exec     *executor.Executor
	source   marketdata.Source
	universe []string
	hub      *Hub
	log      *slog.Logger
	srv      *http.Server
}

// NewServer creates the dashboard server.
func NewServer(addr string, l *ledger.Ledger, e *executor.Executor, src marketdata.Source, universe []string, hub *Hub, log *slog.Logger) *Server {
	s := &Server{
		ledger:   l,
		exec:     e,
		source:   src,
		universe: universe,
		hub:      hub,
		log:      log,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/portfolio", s.handlePortfolio)
	mux.HandleFunc("/api/analysis", s.handleAnalysis)
	mux.HandleFunc("/api/transactions", s.handleTransactions)
	mux.HandleFunc("/api/maxshares", s.handleMaxShares)
	mux.HandleFunc("/api/trade", s.handleTrade)
	mux.HandleFunc("/api/advance", s.handleAdvance)
	mux.HandleFunc("/api/reset", s.handleReset)
	mux.HandleFunc("/ws", s.handleWS)

	s.srv = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
	return s
}

// ListenAndServe blocks serving HTTP.
func (s *Server) ListenAndServe() error {
	s.log.Info("dashboard listening", "addr", s.srv.Addr)
	return s.srv.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// currentPrices fetches latest prices for the held symbols plus the universe.
// Missing symbols are fine; the ledger values them at average price.
func (s *Server) currentPrices(ctx context.Context) map[string]float64 {
	symbols := make([]string, 0, len(s.universe))
	seen := make(map[string]bool, len(s.universe))
	for _, sym := range s.universe {
		symbols = append(symbols, sym)
		seen[sym] = true
	}
	for sym := range s.ledger.Holdings() {
		if !seen[sym] {
			symbols = append(symbols, sym)
		}
	}
	return marketdata.Prices(ctx, s.source, symbols)
}

func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "GET only")
		return
	}
	writeJSON(w, http.StatusOK, s.ledger.Status(s.currentPrices(r.Context())))
}

func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "GET only")
		return
	}

	records := make([]model.AnalysisRecord, 0, len(s.universe))
	for _, sym := range s.universe {
		bars, err := s.source.History(r.Context(), sym, 90)
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
		writeError(w, http.StatusServiceUnavailable, "no market data available")
		return
	}
	writeJSON(w, http.StatusOK, screener.Summarize(records, 5))
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "GET only")
		return
	}

	txs := s.ledger.Transactions()
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n < len(txs) {
			txs = txs[len(txs)-n:]
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":        s.ledger.TransactionCount(),
		"transactions": txs,
	})
}

func (s *Server) handleMaxShares(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "GET only")
		return
	}
	symbol := strings.ToUpper(r.URL.Query().Get("symbol"))
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}
	price := 0.0
	if v := r.URL.Query().Get("price"); v != "" {
		p, err := strconv.ParseFloat(v, 64)
		if err != nil || p <= 0 {
			writeError(w, http.StatusBadRequest, "invalid price")
			return
		}
		price = p
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"symbol":     symbol,
		"max_shares": s.exec.MaxShares(r.Context(), symbol, price),
	})
}

// TradeRequest is the POST /api/trade body. Price 0 means "use the current
// market price".
type TradeRequest struct {
	Action model.Action `json:"action"`
	Symbol string       `json:"symbol"`
	Shares float64      `json:"shares"`
	Price  float64      `json:"price,omitempty"`
}

func (s *Server) handleTrade(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST only")
		return
	}

	var req TradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	// Manual dashboard trades carry no daily budget; rate limits guard the
	// autotrader, not the human.
	res := s.exec.Execute(r.Context(), req.Action, req.Symbol, req.Shares, req.Price, risk.Counters{})
	code := http.StatusOK
	if !res.Success {
		code = http.StatusUnprocessableEntity
	} else {
		s.hub.Broadcast("trade", res)
	}
	writeJSON(w, code, res)
}

func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST only")
		return
	}
	if err := s.ledger.AdvanceDay(); err != nil {
		writeError(w, http.StatusInternalServerError, "advance day: "+err.Error())
		return
	}
	s.hub.Broadcast("day", map[string]int{"day": s.ledger.Day()})
	writeJSON(w, http.StatusOK, map[string]int{"day": s.ledger.Day()})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST only")
		return
	}
	if err := s.ledger.Reset(); err != nil {
		writeError(w, http.StatusInternalServerError, "reset: "+err.Error())
		return
	}
	s.log.Info("portfolio reset")
	s.hub.Broadcast("reset", s.ledger.Status(nil))
	writeJSON(w, http.StatusOK, s.ledger.Status(nil))
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("ws upgrade failed", "err", err)
		return
	}
	s.hub.AddConn(conn)
}
