package usecase

import (
	"fmt"

	"github.com/vitos/crypto_signal_bot/internal/domain"
)

type MACDSignalGenerator struct {
	fast, slow, signal int
}

func NewMACDSignalGenerator(fast, slow, signal int) *MACDSignalGenerator {
	if fast <= 0 || slow <= fast || signal <= 0 {
		fast, slow, signal = 12, 26, 9
	}
	return &MACDSignalGenerator{fast: fast, slow: slow, signal: signal}
}

// Series computes the indicator series this generator evaluates.
func (g *MACDSignalGenerator) Series(closes []float64) *MACDResult {
	return MACDSeries(closes, g.fast, g.slow, g.signal)
}

// Evaluate triggers on line/signal crossovers and histogram-slope reversals.
// Exit rules mirror entry logic for the held direction.
func (g *MACDSignalGenerator) Evaluate(macd *MACDResult, position *domain.Position) domain.Signal {
	if macd == nil || len(macd.Line) < 3 {
		return domain.Signal{Action: domain.ActionWait, Reason: domain.ReasonInsufficientData}
	}

	n := len(macd.Line)
	line, prevLine := macd.Line[n-1], macd.Line[n-2]
	sig, prevSig := macd.Signal[n-1], macd.Signal[n-2]
	hist, prevHist, olderHist := macd.Histogram[n-1], macd.Histogram[n-2], macd.Histogram[n-3]

	bullishCross := prevLine <= prevSig && line > sig
	bearishCross := prevLine >= prevSig && line < sig
	// Histogram trough/peak: slope flips while still on one side of zero.
	bullishReversal := prevHist < 0 && olderHist > prevHist && hist > prevHist
	bearishReversal := prevHist > 0 && olderHist < prevHist && hist < prevHist

	if position != nil {
		switch position.Side {
		case domain.SideLong:
			if bearishCross || bearishReversal {
				return domain.Signal{
					Action:  domain.ActionExit,
					Reason:  domain.ReasonMACDBearishCross,
					Comment: fmt.Sprintf("MACD %.4f below signal %.4f", line, sig),
				}
			}
		case domain.SideShort:
			if bullishCross || bullishReversal {
				return domain.Signal{
					Action:  domain.ActionExit,
					Reason:  domain.ReasonMACDBullishCross,
					Comment: fmt.Sprintf("MACD %.4f above signal %.4f", line, sig),
				}
			}
		}
		return domain.Signal{Action: domain.ActionHold, Reason: domain.ReasonHoldingPosition}
	}

	switch {
	case bullishCross:
		return domain.Signal{
			Action:  domain.ActionBuy,
			Reason:  domain.ReasonMACDBullishCross,
			Comment: fmt.Sprintf("MACD %.4f crossed above signal %.4f", line, sig),
		}
	case bearishCross:
		return domain.Signal{
			Action:  domain.ActionSell,
			Reason:  domain.ReasonMACDBearishCross,
			Comment: fmt.Sprintf("MACD %.4f crossed below signal %.4f", line, sig),
		}
	case bullishReversal:
		return domain.Signal{
			Action:  domain.ActionBuy,
			Reason:  domain.ReasonMACDHistReversal,
			Comment: fmt.Sprintf("histogram trough %.4f -> %.4f", prevHist, hist),
		}
	case bearishReversal:
		return domain.Signal{
			Action:  domain.ActionSell,
			Reason:  domain.ReasonMACDHistReversal,
			Comment: fmt.Sprintf("histogram peak %.4f -> %.4f", prevHist, hist),
		}
	}
	return domain.Signal{Action: domain.ActionWait, Reason: domain.ReasonNoStrongSignal}
}
