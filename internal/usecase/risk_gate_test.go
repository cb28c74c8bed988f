package usecase_test

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/vitos/crypto_signal_bot/internal/usecase"
	"go.uber.org/zap"
)

func newTestGate(now *time.Time) *usecase.RiskGate {
	gate := usecase.NewRiskGate(usecase.DefaultRiskConfig(), zap.NewNop())
	gate.SetClock(func() time.Time { return *now })
	return gate
}

func TestRiskGate_MaxOpenPositions(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	gate := newTestGate(&now)

	assert.True(t, gate.CanOpen(1000, 0))
	assert.True(t, gate.CanOpen(1000, 2))
	assert.False(t, gate.CanOpen(1000, 3), "default max open positions is 3")
}

func TestRiskGate_DailyLossLockoutAndRollover(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	gate := newTestGate(&now)

	// 5% of a 1000 balance is the default daily loss limit.
	gate.RecordPnL("EUR", -50)
	assert.False(t, gate.CanOpen(1000, 0), "loss at the limit locks trading")

	// Once locked, every subsequent call that day refuses.
	gate.RecordPnL("EUR", +500)
	assert.False(t, gate.CanOpen(1000, 0), "lockout holds for the rest of the day")
	assert.False(t, gate.State().TradingEnabled)

	// Day rollover resets P&L and re-enables trading exactly once.
	now = now.Add(24 * time.Hour)
	assert.True(t, gate.CanOpen(1000, 0))
	state := gate.State()
	assert.True(t, state.TradingEnabled)
	assert.Empty(t, state.PnL)
}

func TestRiskGate_ReplayedHistoryCountsTowardLimit(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	gate := newTestGate(&now)

	// Losses replayed from the trade store at startup accumulate exactly
	// like live ones, so a restart cannot reset the daily limit.
	for currency, profit := range map[string]float64{"EUR": -40, "USD": -20} {
		gate.RecordPnL(currency, profit)
	}
	assert.False(t, gate.CanOpen(1000, 0))
}

func TestRiskGate_ProfitNeverLocks(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	gate := newTestGate(&now)

	gate.RecordPnL("EUR", 500)
	assert.True(t, gate.CanOpen(1000, 0))
}

func TestSizePosition_Formula(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	gate := newTestGate(&now)

	// (1000 * 0.02 * 1.0) / (100 * 2/100) = 10
	assert.InDelta(t, 10.0, gate.SizePosition(1000, 100, 2.0, 1.0), 1e-9)
}

func TestSizePosition_VolatilityMultiplier(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	gate := newTestGate(&now)

	normal := gate.SizePosition(1000, 100, 2.0, 1.0)
	calm := gate.SizePosition(1000, 100, 2.0, 0.4)
	wild := gate.SizePosition(1000, 100, 2.0, 2.5)

	assert.InDelta(t, normal*1.5, calm, 1e-9, "low volatility sizes up")
	assert.InDelta(t, normal*0.5, wild, 1e-9, "high volatility sizes down")
	assert.Greater(t, calm, normal)
	assert.Greater(t, normal, wild)
}

func TestSizePosition_MonotonicInBalance(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	gate := newTestGate(&now)

	prev := 0.0
	for _, balance := range []float64{100, 500, 1000, 5000, 10000} {
		size := gate.SizePosition(balance, 100, 2.0, 1.0)
		assert.Greater(t, size, prev)
		prev = size
	}
}

func TestSizePosition_FailsClosed(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	gate := newTestGate(&now)

	cases := []struct {
		name                            string
		balance, price, stopLoss, volat float64
	}{
		{"zero balance", 0, 100, 2, 1},
		{"negative balance", -100, 100, 2, 1},
		{"zero price", 1000, 0, 2, 1},
		{"zero stop loss", 1000, 100, 0, 1},
		{"nan price", 1000, math.NaN(), 2, 1},
		{"inf balance", math.Inf(1), 100, 2, 1},
		{"nan volatility", 1000, 100, 2, math.NaN()},
		{"negative volatility", 1000, 100, 2, -1},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			assert.Zero(t, gate.SizePosition(tt.balance, tt.price, tt.stopLoss, tt.volat))
		})
	}
}
