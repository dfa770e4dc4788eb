// Package gateway serves the dashboard: a REST API over the ledger and
// executor, and a WebSocket fan-out of trade and portfolio events.
package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"trader-sim/internal/markethours"
)

// Hub manages WebSocket clients and event fan-out. Slow clients are dropped
// rather than allowed to stall the broadcast.
type Hub struct {
	log *slog.Logger

	mu      sync.RWMutex
	clients map[*Client]bool
}

// NewHub creates a Hub.
func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		log:     log,
		clients: make(map[*Client]bool),
	}
}

// AddConn registers an upgraded WebSocket connection and starts its pumps.
func (h *Hub) AddConn(conn *websocket.Conn) {
	client := &Client{
		conn: conn,
		send: make(chan []byte, 256),
		hub:  h,
	}

	h.mu.Lock()
	h.clients[client] = true
	count := len(h.clients)
	h.mu.Unlock()

	h.log.Info("ws client connected", "total", count)

	go client.writePump()
	go client.readPump()
}

// RemoveClient removes a client from the hub.
func (h *Hub) RemoveClient(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// ClientCount returns the number of connected WS clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends a typed event envelope to every connected client.
// A client with a full send queue misses the event.
func (h *Hub) Broadcast(eventType string, payload any) {
	envelope, err := json.Marshal(map[string]any{
		"type": eventType,
		"data": payload,
		"ts":   time.Now().Format(time.RFC3339Nano),
	})
	if err != nil {
		h.log.Error("broadcast marshal failed", "type", eventType, "err", err)
		return
	}

	h.mu.RLock()
	for client := range h.clients {
		select {
		case client.send <- envelope:
		default:
		}
	}
	h.mu.RUnlock()
}

// StatusFunc supplies the periodic portfolio status payload.
type StatusFunc func() any

// StartStatusBroadcast pushes portfolio status and market state to all
// clients every interval. Blocks until ctx is cancelled.
func (h *Hub) StartStatusBroadcast(ctx context.Context, interval time.Duration, status StatusFunc) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if h.ClientCount() == 0 {
				continue
			}
			now := time.Now()
			h.Broadcast("status", map[string]any{
				"portfolio":     status(),
				"market_open":   markethours.IsMarketOpen(now),
				"market_status": markethours.StatusString(now),
			})
		}
	}
}
