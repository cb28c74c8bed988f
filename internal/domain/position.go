package domain

import "time"

type Side string

const (
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

// Position represents one open exposure on one trading pair.
// At most one Position exists per symbol; the ledger enforces this.
type Position struct {
	Symbol     string    `json:"symbol"`
	Side       Side      `json:"side"`
	EntryPrice float64   `json:"entry_price"`
	Volume     float64   `json:"volume"`
	OpenedAt   time.Time `json:"opened_at"`
	Leveraged  bool      `json:"leveraged"`
	Leverage   int       `json:"leverage"` // 1 when not leveraged
	Quote      string    `json:"quote"`
}

// PnLPercent returns the directional percentage move of price against the
// position, scaled by leverage. Positive means the position is in profit.
func (p *Position) PnLPercent(currentPrice float64) float64 {
	if p.EntryPrice == 0 {
		return 0
	}
	pct := (currentPrice - p.EntryPrice) / p.EntryPrice * 100
	if p.Side == SideShort {
		pct = -pct
	}
	if p.Leveraged && p.Leverage > 1 {
		pct *= float64(p.Leverage)
	}
	return pct
}

// ClosedTrade is the record handed to performance tracking after a close.
type ClosedTrade struct {
	ID         int64     `json:"id"`
	Symbol     string    `json:"symbol"`
	Side       Side      `json:"side"`
	EntryPrice float64   `json:"entry_price"`
	ExitPrice  float64   `json:"exit_price"`
	Volume     float64   `json:"volume"`
	Profit     float64   `json:"profit"`
	Leveraged  bool      `json:"leveraged"`
	Leverage   int       `json:"leverage"`
	Currency   string    `json:"currency"`
	Reason     string    `json:"reason"`
	ClosedAt   time.Time `json:"closed_at"`
}

// PerformanceSummary aggregates closed trades for reporting.
type PerformanceSummary struct {
	TotalTrades      int                `json:"total_trades"`
	Wins             int                `json:"wins"`
	Losses           int                `json:"losses"`
	ProfitByCurrency map[string]float64 `json:"profit_by_currency"`
}
