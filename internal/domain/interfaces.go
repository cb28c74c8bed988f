package domain

import (
	"context"
	"time"
)

// Exchange defines the interface for interacting with the exchange REST API.
// Implementations wrap every call in bounded retry; an error returned here
// means retries were already exhausted or the error was not retryable.
type Exchange interface {
	ServerTime(ctx context.Context) (time.Time, error)
	Balance(ctx context.Context) (map[string]float64, error)
	TradeBalance(ctx context.Context, quote string) (float64, error)
	Ticker(ctx context.Context, symbol string) (*Ticker, error)
	OHLC(ctx context.Context, symbol string, intervalMin int, since time.Time) ([]Candle, error)
	AssetPair(ctx context.Context, symbol string) (*AssetPairInfo, error)
	AddOrder(ctx context.Context, req *OrderRequest) (*OrderConfirmation, error)
}

// TradeRepository persists closed trades for performance tracking.
type TradeRepository interface {
	SaveTrade(ctx context.Context, trade *ClosedTrade) error
	ListTrades(ctx context.Context, limit int) ([]*ClosedTrade, error)
	PerformanceSummary(ctx context.Context) (*PerformanceSummary, error)
	DailyProfit(ctx context.Context, day time.Time) (map[string]float64, error)
}
