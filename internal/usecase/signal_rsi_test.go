package usecase_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vitos/crypto_signal_bot/internal/domain"
	"github.com/vitos/crypto_signal_bot/internal/usecase"
)

func defaultMarket() usecase.MarketState {
	return usecase.MarketState{Condition: domain.ConditionDefault}
}

func TestRSIGenerator_InsufficientData(t *testing.T) {
	g := usecase.NewRSISignalGenerator(14)

	signal := g.Evaluate(nil, nil, defaultMarket())
	assert.Equal(t, domain.ActionWait, signal.Action)
	assert.Equal(t, domain.ReasonInsufficientData, signal.Reason)

	signal = g.Evaluate([]float64{50}, nil, defaultMarket())
	assert.Equal(t, domain.ActionWait, signal.Action)
}

func TestRSIGenerator_Entries(t *testing.T) {
	g := usecase.NewRSISignalGenerator(14)

	tests := []struct {
		name       string
		rsi        []float64
		market     usecase.MarketState
		wantAction domain.Action
		wantReason domain.Reason
	}{
		{
			name:       "extreme oversold buys alone",
			rsi:        []float64{25, 18},
			market:     defaultMarket(),
			wantAction: domain.ActionBuy,
			wantReason: domain.ReasonRSIExtremeOversold,
		},
		{
			name:       "extreme overbought sells",
			rsi:        []float64{75, 82},
			market:     defaultMarket(),
			wantAction: domain.ActionSell,
			wantReason: domain.ReasonRSIExtremeOverbought,
		},
		{
			name:       "oversold turning up buys",
			rsi:        []float64{24, 28},
			market:     defaultMarket(),
			wantAction: domain.ActionBuy,
			wantReason: domain.ReasonRSIOversold,
		},
		{
			name:       "oversold still falling waits",
			rsi:        []float64{29, 26},
			market:     defaultMarket(),
			wantAction: domain.ActionWait,
			wantReason: domain.ReasonNoStrongSignal,
		},
		{
			name:       "overbought turning down sells",
			rsi:        []float64{76, 72},
			market:     defaultMarket(),
			wantAction: domain.ActionSell,
			wantReason: domain.ReasonRSIOverbought,
		},
		{
			name:       "neutral waits",
			rsi:        []float64{48, 52},
			market:     defaultMarket(),
			wantAction: domain.ActionWait,
			wantReason: domain.ReasonNoStrongSignal,
		},
		{
			name: "volatile regime is stricter",
			// 28 would be a buy under default thresholds but not under
			// the volatile set (oversold 25).
			rsi:        []float64{24, 28},
			market:     usecase.MarketState{Condition: domain.ConditionVolatile},
			wantAction: domain.ActionWait,
			wantReason: domain.ReasonNoStrongSignal,
		},
		{
			name:       "ranging regime is looser",
			rsi:        []float64{35, 38},
			market:     usecase.MarketState{Condition: domain.ConditionRanging},
			wantAction: domain.ActionBuy,
			wantReason: domain.ReasonRSIOversold,
		},
		{
			name: "low activity loosens further",
			// Default oversold is 30; low activity lifts it to 35.
			rsi:        []float64{31, 34},
			market:     usecase.MarketState{Condition: domain.ConditionDefault, LowActivity: true},
			wantAction: domain.ActionBuy,
			wantReason: domain.ReasonRSIOversold,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			signal := g.Evaluate(tt.rsi, nil, tt.market)
			assert.Equal(t, tt.wantAction, signal.Action)
			assert.Equal(t, tt.wantReason, signal.Reason)
		})
	}
}

func TestRSIGenerator_ExitsOnly_WhilePositionOpen(t *testing.T) {
	g := usecase.NewRSISignalGenerator(14)
	long := &domain.Position{Symbol: "XXBTZEUR", Side: domain.SideLong}
	short := &domain.Position{Symbol: "XXBTZEUR", Side: domain.SideShort}

	// Overbought against a long: exit.
	signal := g.Evaluate([]float64{68, 72}, long, defaultMarket())
	assert.Equal(t, domain.ActionExit, signal.Action)
	assert.Equal(t, domain.ReasonRSIOverbought, signal.Reason)

	// Oversold against a short: exit.
	signal = g.Evaluate([]float64{32, 28}, short, defaultMarket())
	assert.Equal(t, domain.ActionExit, signal.Action)
	assert.Equal(t, domain.ReasonRSIOversold, signal.Reason)

	// Extreme oversold with a long open must NOT propose a new entry.
	signal = g.Evaluate([]float64{20, 15}, long, defaultMarket())
	assert.Equal(t, domain.ActionHold, signal.Action)
	assert.Equal(t, domain.ReasonHoldingPosition, signal.Reason)
}
