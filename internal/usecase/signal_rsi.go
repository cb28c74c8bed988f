package usecase

import (
	"fmt"

	"github.com/vitos/crypto_signal_bot/internal/domain"
)

// rsiThresholds is one regime-dependent threshold set. Extreme tiers fire
// even without confirmation from the other generator.
type rsiThresholds struct {
	Oversold          float64
	Overbought        float64
	ExtremeOversold   float64
	ExtremeOverbought float64
}

// thresholdsFor selects thresholds by market condition. Volatile regimes get
// stricter thresholds so the bot is not whipsawed; quiet markets get looser
// ones or it would never trade.
func thresholdsFor(condition domain.MarketCondition, lowActivity bool) rsiThresholds {
	var t rsiThresholds
	switch condition {
	case domain.ConditionVolatile:
		t = rsiThresholds{Oversold: 25, Overbought: 75, ExtremeOversold: 15, ExtremeOverbought: 85}
	case domain.ConditionTrending:
		t = rsiThresholds{Oversold: 35, Overbought: 65, ExtremeOversold: 25, ExtremeOverbought: 75}
	case domain.ConditionRanging:
		t = rsiThresholds{Oversold: 40, Overbought: 60, ExtremeOversold: 30, ExtremeOverbought: 70}
	default:
		t = rsiThresholds{Oversold: 30, Overbought: 70, ExtremeOversold: 20, ExtremeOverbought: 80}
	}
	if lowActivity {
		t.Oversold += 5
		t.Overbought -= 5
		t.ExtremeOversold += 5
		t.ExtremeOverbought -= 5
	}
	return t
}

type RSISignalGenerator struct {
	period int
}

func NewRSISignalGenerator(period int) *RSISignalGenerator {
	if period <= 0 {
		period = 14
	}
	return &RSISignalGenerator{period: period}
}

func (g *RSISignalGenerator) Period() int { return g.period }

// Series computes the indicator series this generator evaluates.
func (g *RSISignalGenerator) Series(closes []float64) []float64 {
	return RSISeries(closes, g.period)
}

// Evaluate turns the RSI series and current position state into a signal.
// With a position open only exit conditions are considered; a new entry is
// never proposed while the symbol is held.
func (g *RSISignalGenerator) Evaluate(rsi []float64, position *domain.Position, market MarketState) domain.Signal {
	if len(rsi) < 2 {
		return domain.Signal{Action: domain.ActionWait, Reason: domain.ReasonInsufficientData}
	}

	latest := rsi[len(rsi)-1]
	prev := rsi[len(rsi)-2]
	t := thresholdsFor(market.Condition, market.LowActivity)

	if position != nil {
		return g.evaluateExit(latest, position, t)
	}

	switch {
	case latest <= t.ExtremeOversold:
		return domain.Signal{
			Action:  domain.ActionBuy,
			Reason:  domain.ReasonRSIExtremeOversold,
			Comment: fmt.Sprintf("RSI %.1f <= %.1f", latest, t.ExtremeOversold),
		}
	case latest >= t.ExtremeOverbought:
		return domain.Signal{
			Action:  domain.ActionSell,
			Reason:  domain.ReasonRSIExtremeOverbought,
			Comment: fmt.Sprintf("RSI %.1f >= %.1f", latest, t.ExtremeOverbought),
		}
	case latest <= t.Oversold && latest > prev:
		// Oversold and turning back up.
		return domain.Signal{
			Action:  domain.ActionBuy,
			Reason:  domain.ReasonRSIOversold,
			Comment: fmt.Sprintf("RSI %.1f rising from %.1f", latest, prev),
		}
	case latest >= t.Overbought && latest < prev:
		return domain.Signal{
			Action:  domain.ActionSell,
			Reason:  domain.ReasonRSIOverbought,
			Comment: fmt.Sprintf("RSI %.1f falling from %.1f", latest, prev),
		}
	}
	return domain.Signal{Action: domain.ActionWait, Reason: domain.ReasonNoStrongSignal}
}

func (g *RSISignalGenerator) evaluateExit(latest float64, position *domain.Position, t rsiThresholds) domain.Signal {
	if position.Side == domain.SideLong && latest >= t.Overbought {
		return domain.Signal{
			Action:  domain.ActionExit,
			Reason:  domain.ReasonRSIOverbought,
			Comment: fmt.Sprintf("RSI %.1f against long", latest),
		}
	}
	if position.Side == domain.SideShort && latest <= t.Oversold {
		return domain.Signal{
			Action:  domain.ActionExit,
			Reason:  domain.ReasonRSIOversold,
			Comment: fmt.Sprintf("RSI %.1f against short", latest),
		}
	}
	return domain.Signal{Action: domain.ActionHold, Reason: domain.ReasonHoldingPosition}
}
