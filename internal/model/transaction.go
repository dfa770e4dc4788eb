package model

import "time"

// Action is a trade direction.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
)

// Valid reports whether a is a recognized trade action.
func (a Action) Valid() bool {
	return a == ActionBuy || a == ActionSell
}

// Transaction is an immutable record of an executed trade. Records are
// append-only and ordered by insertion; they are never mutated or deleted.
type Transaction struct {
	Timestamp time.Time `json:"timestamp"`
	Action    Action    `json:"action"`
	Symbol    string    `json:"symbol"`
	Shares    float64   `json:"shares"`
	Price     float64   `json:"price"`
	Total     float64   `json:"total"` // shares*price rounded to 2 decimals
}

// NewTransaction builds a transaction stamped at ts.
func NewTransaction(ts time.Time, action Action, symbol string, shares, price float64) Transaction {
	return Transaction{
		Timestamp: ts,
		Action:    action,
		Symbol:    symbol,
		Shares:    shares,
		Price:     price,
		Total:     Round2(shares * price),
	}
}
