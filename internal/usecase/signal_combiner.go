package usecase

import (
	"github.com/vitos/crypto_signal_bot/internal/domain"
)

// SignalCombiner merges the RSI and MACD signals into one decision using a
// fixed-priority table. Ties and ambiguity resolve toward Wait.
type SignalCombiner struct{}

func NewSignalCombiner() *SignalCombiner {
	return &SignalCombiner{}
}

func (c *SignalCombiner) Combine(rsi, macd domain.Signal, market MarketState, position *domain.Position) domain.Signal {
	// 1. Position open: first Exit wins; otherwise hold, never stack a
	//    second position on the same symbol.
	if position != nil {
		if rsi.Action == domain.ActionExit {
			return rsi
		}
		if macd.Action == domain.ActionExit {
			return macd
		}
		return domain.Signal{Action: domain.ActionHold, Reason: domain.ReasonHoldingPosition}
	}

	// 2. Consensus on a directional action.
	if rsi.Directional() && rsi.Action == macd.Action {
		return domain.Signal{
			Action:  rsi.Action,
			Reason:  domain.ReasonConsensus,
			Comment: string(rsi.Reason) + "+" + string(macd.Reason),
		}
	}

	// 3. An extreme RSI reading acts alone.
	if rsi.IsExtreme() {
		return rsi
	}

	// 4. Volatile regime: entries need both generators; one alone is noise.
	if market.Condition == domain.ConditionVolatile {
		if rsi.Directional() || macd.Directional() {
			return domain.Signal{Action: domain.ActionWait, Reason: domain.ReasonVolatileCaution}
		}
		return domain.Signal{Action: domain.ActionWait, Reason: domain.ReasonNoStrongSignal}
	}

	// 5. Trending regime: either generator aligned with the trend suffices.
	if market.Condition == domain.ConditionTrending {
		if aligned(rsi, market.TrendSign) {
			return domain.Signal{Action: rsi.Action, Reason: domain.ReasonTrendAligned, Comment: string(rsi.Reason)}
		}
		if aligned(macd, market.TrendSign) {
			return domain.Signal{Action: macd.Action, Reason: domain.ReasonTrendAligned, Comment: string(macd.Reason)}
		}
	}

	// 6. Nothing strong enough.
	return domain.Signal{Action: domain.ActionWait, Reason: domain.ReasonNoStrongSignal}
}

func aligned(s domain.Signal, trendSign int) bool {
	if s.Action == domain.ActionBuy {
		return trendSign > 0
	}
	if s.Action == domain.ActionSell {
		return trendSign < 0
	}
	return false
}
