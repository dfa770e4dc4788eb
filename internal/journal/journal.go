// Package journal persists executed trades to SQLite for audit. The JSON
// portfolio file is the source of truth; the journal is append-only history
// that survives portfolio resets.
package journal

import (
	"database/sql"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"trader-sim/internal/model"
)

// Journal is a SQLite-backed trade audit log.
type Journal struct {
	mu sync.Mutex
	db *sql.DB
}

// Open opens (or creates) the journal database.
func Open(dbPath string) (*Journal, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal=WAL&_sync=NORMAL")
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS trades (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		action       TEXT NOT NULL,
		symbol       TEXT NOT NULL,
		shares       REAL NOT NULL,
		price        REAL NOT NULL,
		total        REAL NOT NULL,
		realized_pnl REAL DEFAULT 0,
		executed_at  DATETIME NOT NULL,
		created_at   DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_trades_symbol ON trades(symbol);
	CREATE INDEX IF NOT EXISTS idx_trades_executed_at ON trades(executed_at);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	return &Journal{db: db}, nil
}

// Record appends an executed trade. realized is zero for buys.
func (j *Journal) Record(tx model.Transaction, realized float64) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	_, err := j.db.Exec(
		`INSERT INTO trades (action, symbol, shares, price, total, realized_pnl, executed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		string(tx.Action),
		tx.Symbol,
		tx.Shares,
		tx.Price,
		tx.Total,
		realized,
		tx.Timestamp.Format(time.RFC3339),
	)
	return err
}

// Entry is a row from the trades table.
type Entry struct {
	ID          int64   `json:"id"`
	Action      string  `json:"action"`
	Symbol      string  `json:"symbol"`
	Shares      float64 `json:"shares"`
	Price       float64 `json:"price"`
	Total       float64 `json:"total"`
	RealizedPnL float64 `json:"realized_pnl"`
	ExecutedAt  string  `json:"executed_at"`
}

// Recent returns the last limit trades, newest first.
func (j *Journal) Recent(limit int) ([]Entry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	rows, err := j.db.Query(
		`SELECT id, action, symbol, shares, price, total, realized_pnl, executed_at
		 FROM trades ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Action, &e.Symbol, &e.Shares, &e.Price,
			&e.Total, &e.RealizedPnL, &e.ExecutedAt); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// DB exposes the underlying handle for health probes.
func (j *Journal) DB() *sql.DB {
	return j.db
}

// Close closes the journal database.
func (j *Journal) Close() error {
	return j.db.Close()
}
