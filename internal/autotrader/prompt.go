package autotrader

import (
	"fmt"
	"strings"

	"trader-sim/internal/ledger"
	"trader-sim/internal/model"
	"trader-sim/internal/risk"
	"trader-sim/internal/screener"
)

// BuildPrompt renders the advisor prompt: strategy guidance, portfolio state,
// market data sorted by daily change, buying power, and the remaining
// guardrail budget. The response contract at the end is what ParseDecision
// expects back.
func BuildPrompt(guidance string, policy risk.Policy, status ledger.Status, records []model.AnalysisRecord, maxShares map[string]int, used risk.Counters) string {
	var b strings.Builder

	b.WriteString("You are an autonomous stock trader. Analyze the current market and portfolio, then decide what trades to make.\n\n")

	b.WriteString("## YOUR TRADING STRATEGY\n")
	b.WriteString(strings.TrimSpace(guidance))
	b.WriteString("\n\n")

	b.WriteString("## CURRENT PORTFOLIO\n")
	fmt.Fprintf(&b, "Cash: $%.2f\n", status.Cash)
	fmt.Fprintf(&b, "Total Value: $%.2f\n", status.TotalValue)
	fmt.Fprintf(&b, "Positions: %d/%d\n\n", status.NumHoldings, policy.MaxPositions)

	b.WriteString("Holdings:\n")
	if len(status.Holdings) == 0 {
		b.WriteString("None\n")
	}
	for _, h := range status.Holdings {
		fmt.Fprintf(&b, "  %s: %g shares @ $%.2f (current: $%.2f, P&L: %+.1f%%)\n",
			h.Symbol, h.Shares, h.AvgPrice, h.CurrentPrice, h.PnLPct)
	}

	b.WriteString("\n## MARKET DATA (sorted by daily change)\n")
	for _, rec := range screener.RankByDailyChange(records) {
		rsiNote := ""
		if rec.RSI < 30 {
			rsiNote = " [OVERSOLD]"
		} else if rec.RSI > 70 {
			rsiNote = " [OVERBOUGHT]"
		}

		var above []string
		if rec.AboveSMA10 {
			above = append(above, "10")
		}
		if rec.AboveSMA20 {
			above = append(above, "20")
		}
		if rec.AboveSMA50 {
			above = append(above, "50")
		}
		trend := "below all SMAs"
		if len(above) > 0 {
			trend = "above SMA " + strings.Join(above, ",")
		}

		fmt.Fprintf(&b, "  %s: $%.2f | Daily: %+.1f%% | Weekly: %+.1f%% | RSI: %.0f%s | %s\n",
			rec.Symbol, rec.Price, rec.DailyChange, rec.WeeklyChange, rec.RSI, rsiNote, trend)
	}

	b.WriteString("\n## BUYING POWER\n")
	count := 0
	for _, rec := range screener.RankByDailyChange(records) {
		max, ok := maxShares[rec.Symbol]
		if !ok || max <= 0 {
			continue
		}
		fmt.Fprintf(&b, "  %s: max %d shares ($%.2f each)\n", rec.Symbol, max, rec.Price)
		count++
		if count >= 15 {
			break
		}
	}

	b.WriteString("\n## GUARDRAILS (enforced by system)\n")
	fmt.Fprintf(&b, "- Max position size: %.0f%% of portfolio\n", policy.MaxPositionPct*100)
	fmt.Fprintf(&b, "- Max positions: %d\n", policy.MaxPositions)
	fmt.Fprintf(&b, "- Max daily trades remaining: %d\n", policy.MaxDailyTrades-used.Trades)
	fmt.Fprintf(&b, "- Max daily buys remaining: %d\n", policy.MaxDailyBuys-used.Buys)
	fmt.Fprintf(&b, "- Min cash reserve: $%.0f\n", policy.MinCashReserve)
	fmt.Fprintf(&b, "- Force sell if position down more than %.0f%%\n", policy.MaxSingleLossPct)

	b.WriteString(`
## YOUR TASK
Based on the strategy and current conditions, decide what trades to make RIGHT NOW.

Respond with ONLY a JSON object in this exact format:
{
  "analysis": "Brief 1-2 sentence market assessment",
  "trades": [
    {
      "action": "BUY" or "SELL",
      "symbol": "TICKER",
      "shares": number,
      "reasoning": "Why this trade fits the strategy"
    }
  ],
  "hold_reasoning": "If no trades, explain why holding is the right choice"
}

If no trades should be made, return an empty trades array with hold_reasoning.
Only suggest trades that respect the guardrails.
Be decisive - if you see a good opportunity, take it.`)

	return b.String()
}
