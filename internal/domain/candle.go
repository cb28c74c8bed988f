package domain

import "time"

type Candle struct {
	Time       int64   `json:"time"`
	Open       float64 `json:"open"`
	High       float64 `json:"high"`
	Low        float64 `json:"low"`
	Close      float64 `json:"close"`
	Volume     float64 `json:"volume"`
	TradeCount int     `json:"trade_count"`
}

type Ticker struct {
	Symbol          string  `json:"symbol"`
	LastPrice       float64 `json:"last_price"`
	Volume24h       float64 `json:"volume_24h"`
	Low24h          float64 `json:"low_24h"`
	High24h         float64 `json:"high_24h"`
	Change24hPct    float64 `json:"change_24h_pct"`
}

// AssetPairInfo carries per-pair exchange metadata consulted before ordering.
type AssetPairInfo struct {
	Symbol      string
	Base        string
	Quote       string
	WSName      string
	OrderMin    float64
	LotDecimals int
	MaxLeverage int // 0 when margin trading is not offered for the pair
}

// MarginEligible reports whether the exchange offers leverage on the pair.
func (i *AssetPairInfo) MarginEligible() bool {
	return i.MaxLeverage > 1
}

// OrderRequest describes a market order to be placed.
type OrderRequest struct {
	Symbol       string
	Side         Side
	Volume       string // pre-formatted to the pair's lot precision
	Leverage     int    // 0 or 1 for spot
	ReduceOnly   bool   // closing a margin position
	ValidateOnly bool
	ClientID     string
}

// OrderConfirmation is the exchange's acknowledgement of a placed order.
// An empty TxIDs slice means the order was not confirmed.
type OrderConfirmation struct {
	TxIDs       []string
	Description string
}

func (c *OrderConfirmation) Confirmed() bool {
	return c != nil && len(c.TxIDs) > 0
}

// DailyRiskState is the per-calendar-day aggregate consulted by admission
// control. It resets once when the wall-clock day rolls over.
type DailyRiskState struct {
	Date           string             `json:"date"`
	PnL            map[string]float64 `json:"pnl"`
	TradingEnabled bool               `json:"trading_enabled"`
}

func NewDailyRiskState(day time.Time) *DailyRiskState {
	return &DailyRiskState{
		Date:           day.Format("2006-01-02"),
		PnL:            make(map[string]float64),
		TradingEnabled: true,
	}
}
