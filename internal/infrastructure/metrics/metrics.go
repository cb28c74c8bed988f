package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RetryAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bot_exchange_retry_attempts_total",
		Help: "Failed exchange call attempts, including the final one.",
	})

	OrdersPlaced = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bot_orders_placed_total",
		Help: "Market orders confirmed by the exchange.",
	}, []string{"side"})

	OrdersFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bot_orders_failed_total",
		Help: "Order placements that failed after retries.",
	})

	TradesClosed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bot_trades_closed_total",
		Help: "Positions closed, by close reason.",
	}, []string{"reason"})

	OpenPositions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bot_open_positions",
		Help: "Currently open positions.",
	})
)
