package domain

type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionExit Action = "EXIT"
	ActionWait Action = "WAIT"
	ActionHold Action = "HOLD"
)

type Reason string

const (
	ReasonRSIOversold          Reason = "RSI_OVERSOLD"
	ReasonRSIOverbought        Reason = "RSI_OVERBOUGHT"
	ReasonRSIExtremeOversold   Reason = "RSI_EXTREME_OVERSOLD"
	ReasonRSIExtremeOverbought Reason = "RSI_EXTREME_OVERBOUGHT"
	ReasonMACDBullishCross     Reason = "MACD_BULLISH_CROSS"
	ReasonMACDBearishCross     Reason = "MACD_BEARISH_CROSS"
	ReasonMACDHistReversal     Reason = "MACD_HISTOGRAM_REVERSAL"
	ReasonConsensus            Reason = "CONSENSUS"
	ReasonTrendAligned         Reason = "TREND_ALIGNED"
	ReasonVolatileCaution      Reason = "VOLATILE_MARKET_CAUTION"
	ReasonNoStrongSignal       Reason = "NO_STRONG_SIGNAL"
	ReasonHoldingPosition      Reason = "HOLDING_POSITION"
	ReasonInsufficientData     Reason = "INSUFFICIENT_DATA"
	ReasonStopLoss             Reason = "STOP_LOSS"
	ReasonTakeProfit           Reason = "TAKE_PROFIT"
	ReasonSignalExit           Reason = "SIGNAL_EXIT"
	ReasonForcedExit           Reason = "FORCED_EXIT"
)

// Signal is the output of a signal generator or of the combiner.
// Exit is only meaningful with an open position; Buy/Sell only without one.
type Signal struct {
	Action  Action
	Reason  Reason
	Comment string
}

// IsExtreme reports whether the signal fired on an extreme RSI reading,
// which the combiner may act on without confirmation.
func (s Signal) IsExtreme() bool {
	return s.Reason == ReasonRSIExtremeOversold || s.Reason == ReasonRSIExtremeOverbought
}

// Directional reports whether the signal proposes a new entry.
func (s Signal) Directional() bool {
	return s.Action == ActionBuy || s.Action == ActionSell
}

type MarketCondition string

const (
	ConditionTrending MarketCondition = "trending"
	ConditionRanging  MarketCondition = "ranging"
	ConditionVolatile MarketCondition = "volatile"
	ConditionDefault  MarketCondition = "default"
)
