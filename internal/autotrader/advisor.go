// Package autotrader runs the advisory trading loop: build a market snapshot,
// sweep stop losses, ask an external advisor for trades, and execute whatever
// survives validation. Guardrails live in the risk package; the advisor's
// suggestions carry no authority of their own.
package autotrader

import "context"

// SuggestedTrade is one trade proposed by the advisor. It is a request, not
// an order: every suggestion still passes validation before execution.
type SuggestedTrade struct {
	Action    string  `json:"action"`
	Symbol    string  `json:"symbol"`
	Shares    float64 `json:"shares"`
	Reasoning string  `json:"reasoning"`
}

// Decision is the advisor's full response for one cycle. An empty Trades
// slice with HoldReasoning set is a valid, deliberate decision.
type Decision struct {
	Analysis      string           `json:"analysis"`
	Trades        []SuggestedTrade `json:"trades"`
	HoldReasoning string           `json:"hold_reasoning"`
}

// Advisor produces trading decisions from a prompt describing the market and
// portfolio state.
type Advisor interface {
	Advise(ctx context.Context, prompt string) (*Decision, error)
}
