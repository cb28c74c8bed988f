package usecase

import (
	"math"
	"sync"
	"time"

	"github.com/vitos/crypto_signal_bot/internal/domain"
	"go.uber.org/zap"
)

type RiskConfig struct {
	MaxDailyLossFraction float64 // fraction of balance; daily loss at or past it locks trading
	MaxRiskPerTrade      float64 // fraction of balance risked per position
	MaxOpenPositions     int
	HighVolatility       float64 // sizing halves above this
	LowVolatility        float64 // sizing grows below this
}

func DefaultRiskConfig() RiskConfig {
	return RiskConfig{
		MaxDailyLossFraction: 0.05,
		MaxRiskPerTrade:      0.02,
		MaxOpenPositions:     3,
		HighVolatility:       2.0,
		LowVolatility:        0.5,
	}
}

// RiskGate is admission control for new positions plus risk-bounded sizing.
// Daily P&L accumulates in the quote currency and resets once per calendar
// day rollover.
type RiskGate struct {
	cfg     RiskConfig
	logger  *zap.Logger
	timeNow func() time.Time

	mu    sync.Mutex
	state *domain.DailyRiskState
	// Normalized total across currencies; amounts are recorded in their
	// settlement currency and summed as-is, which assumes quote currencies
	// of comparable magnitude (EUR/USD/GBP).
	refTotal float64
}

func NewRiskGate(cfg RiskConfig, logger *zap.Logger) *RiskGate {
	if cfg.MaxOpenPositions <= 0 {
		cfg = DefaultRiskConfig()
	}
	g := &RiskGate{cfg: cfg, logger: logger, timeNow: time.Now}
	g.state = domain.NewDailyRiskState(g.timeNow())
	return g
}

// SetClock overrides the wall clock, for testing day rollover.
func (g *RiskGate) SetClock(now func() time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.timeNow = now
}

// rollover resets per-day state when the wall-clock day changes.
// Callers must hold g.mu.
func (g *RiskGate) rollover() {
	today := g.timeNow().Format("2006-01-02")
	if g.state.Date == today {
		return
	}
	g.logger.Info("daily risk state reset", zap.String("day", today))
	g.state = domain.NewDailyRiskState(g.timeNow())
	g.refTotal = 0
}

// CanOpen decides whether a new position may open given the account balance
// and the number of currently open positions.
func (g *RiskGate) CanOpen(accountBalance float64, openPositions int) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rollover()

	if !g.state.TradingEnabled {
		return false
	}
	if openPositions >= g.cfg.MaxOpenPositions {
		g.logger.Debug("max open positions reached", zap.Int("open", openPositions))
		return false
	}
	if accountBalance > 0 && g.refTotal <= -accountBalance*g.cfg.MaxDailyLossFraction {
		g.state.TradingEnabled = false
		g.logger.Warn("daily loss limit reached, trading disabled until day rollover",
			zap.Float64("daily_pnl", g.refTotal),
			zap.Float64("limit", -accountBalance*g.cfg.MaxDailyLossFraction))
		return false
	}
	return true
}

// RecordPnL accumulates realized profit for the current day.
func (g *RiskGate) RecordPnL(currency string, profit float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rollover()
	g.state.PnL[currency] += profit
	g.refTotal += profit
}

// State returns a snapshot of today's risk state.
func (g *RiskGate) State() domain.DailyRiskState {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rollover()
	snapshot := domain.DailyRiskState{
		Date:           g.state.Date,
		TradingEnabled: g.state.TradingEnabled,
		PnL:            make(map[string]float64, len(g.state.PnL)),
	}
	for currency, pnl := range g.state.PnL {
		snapshot.PnL[currency] = pnl
	}
	return snapshot
}

// SizePosition computes risk-bounded volume:
// (balance * maxRiskFraction * volatilityMultiplier) / (price * stopLossPct/100).
// It fails closed: any non-finite or non-positive input yields zero volume,
// because sizing must never produce a negative or infinite order.
func (g *RiskGate) SizePosition(accountBalance, price, stopLossPct, volatility float64) float64 {
	for _, v := range []float64{accountBalance, price, stopLossPct} {
		if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return 0
		}
	}
	if math.IsNaN(volatility) || math.IsInf(volatility, 0) || volatility < 0 {
		return 0
	}

	multiplier := 1.0
	if volatility > g.cfg.HighVolatility {
		multiplier = 0.5
	} else if volatility < g.cfg.LowVolatility {
		multiplier = 1.5
	}

	volume := (accountBalance * g.cfg.MaxRiskPerTrade * multiplier) / (price * stopLossPct / 100)
	if math.IsNaN(volume) || math.IsInf(volume, 0) || volume < 0 {
		return 0
	}
	return volume
}
