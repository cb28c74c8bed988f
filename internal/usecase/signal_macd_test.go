package usecase_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vitos/crypto_signal_bot/internal/domain"
	"github.com/vitos/crypto_signal_bot/internal/usecase"
)

// macdResult builds an aligned result from line and signal values.
func macdResult(line, signal []float64) *usecase.MACDResult {
	hist := make([]float64, len(line))
	for i := range line {
		hist[i] = line[i] - signal[i]
	}
	return &usecase.MACDResult{Line: line, Signal: signal, Histogram: hist}
}

func TestMACDGenerator_InsufficientData(t *testing.T) {
	g := usecase.NewMACDSignalGenerator(12, 26, 9)

	signal := g.Evaluate(nil, nil)
	assert.Equal(t, domain.ActionWait, signal.Action)
	assert.Equal(t, domain.ReasonInsufficientData, signal.Reason)

	signal = g.Evaluate(macdResult([]float64{1, 2}, []float64{1, 1}), nil)
	assert.Equal(t, domain.ActionWait, signal.Action)
}

func TestMACDGenerator_Crossovers(t *testing.T) {
	g := usecase.NewMACDSignalGenerator(12, 26, 9)

	// Line crosses above signal on the last candle.
	bullish := macdResult(
		[]float64{-0.5, -0.2, 0.3},
		[]float64{-0.1, -0.1, 0.1},
	)
	signal := g.Evaluate(bullish, nil)
	assert.Equal(t, domain.ActionBuy, signal.Action)
	assert.Equal(t, domain.ReasonMACDBullishCross, signal.Reason)

	// Line crosses below signal.
	bearish := macdResult(
		[]float64{0.5, 0.2, -0.3},
		[]float64{0.1, 0.1, -0.1},
	)
	signal = g.Evaluate(bearish, nil)
	assert.Equal(t, domain.ActionSell, signal.Action)
	assert.Equal(t, domain.ReasonMACDBearishCross, signal.Reason)
}

func TestMACDGenerator_HistogramReversal(t *testing.T) {
	g := usecase.NewMACDSignalGenerator(12, 26, 9)

	// Histogram trough below zero turning up, no cross.
	trough := &usecase.MACDResult{
		Line:      []float64{-1.0, -1.2, -1.1},
		Signal:    []float64{-0.5, -0.5, -0.6},
		Histogram: []float64{-0.5, -0.7, -0.5},
	}
	signal := g.Evaluate(trough, nil)
	assert.Equal(t, domain.ActionBuy, signal.Action)
	assert.Equal(t, domain.ReasonMACDHistReversal, signal.Reason)

	// Histogram peak above zero turning down.
	peak := &usecase.MACDResult{
		Line:      []float64{1.0, 1.2, 1.1},
		Signal:    []float64{0.5, 0.5, 0.6},
		Histogram: []float64{0.5, 0.7, 0.5},
	}
	signal = g.Evaluate(peak, nil)
	assert.Equal(t, domain.ActionSell, signal.Action)
	assert.Equal(t, domain.ReasonMACDHistReversal, signal.Reason)
}

func TestMACDGenerator_ExitMirrorsDirection(t *testing.T) {
	g := usecase.NewMACDSignalGenerator(12, 26, 9)
	long := &domain.Position{Symbol: "XETHZEUR", Side: domain.SideLong}
	short := &domain.Position{Symbol: "XETHZEUR", Side: domain.SideShort}

	bearish := macdResult(
		[]float64{0.5, 0.2, -0.3},
		[]float64{0.1, 0.1, -0.1},
	)
	signal := g.Evaluate(bearish, long)
	assert.Equal(t, domain.ActionExit, signal.Action)
	assert.Equal(t, domain.ReasonMACDBearishCross, signal.Reason)

	// A bearish cross does not close a short; it confirms it.
	signal = g.Evaluate(bearish, short)
	assert.Equal(t, domain.ActionHold, signal.Action)

	bullish := macdResult(
		[]float64{-0.5, -0.2, 0.3},
		[]float64{-0.1, -0.1, 0.1},
	)
	signal = g.Evaluate(bullish, short)
	assert.Equal(t, domain.ActionExit, signal.Action)
	assert.Equal(t, domain.ReasonMACDBullishCross, signal.Reason)
}
