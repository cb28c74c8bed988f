package usecase

import (
	"math"

	"github.com/vitos/crypto_signal_bot/internal/domain"
)

// MarketState is the coarse market classification driving threshold
// selection and combiner overrides.
type MarketState struct {
	Condition   domain.MarketCondition
	Volatility  float64 // stddev of per-candle returns, in percent
	TrendSign   int     // +1 rising, -1 falling, 0 flat
	LowActivity bool
}

type RegimeConfig struct {
	HighVolatilityPct  float64 // above this, volatile
	TrendThresholdPct  float64 // net move over the window to call a trend
	LowActivityPct     float64 // total range below this flags low activity
	MinCandles         int
}

func DefaultRegimeConfig() RegimeConfig {
	return RegimeConfig{
		HighVolatilityPct: 2.0,
		TrendThresholdPct: 3.0,
		LowActivityPct:    0.5,
		MinCandles:        20,
	}
}

type RegimeClassifier struct {
	cfg RegimeConfig
}

func NewRegimeClassifier(cfg RegimeConfig) *RegimeClassifier {
	if cfg.MinCandles <= 0 {
		cfg = DefaultRegimeConfig()
	}
	return &RegimeClassifier{cfg: cfg}
}

// Classify derives the market condition from recent candles: volatility from
// the spread of per-candle returns, trend from the net move confirmed by a
// rising volume profile, low activity from the total high/low range.
func (r *RegimeClassifier) Classify(candles []domain.Candle) MarketState {
	state := MarketState{Condition: domain.ConditionDefault}
	if len(candles) < r.cfg.MinCandles {
		return state
	}

	closes := ClosePrices(candles)
	first, last := closes[0], closes[len(closes)-1]
	if first <= 0 {
		return state
	}

	netMovePct := (last - first) / first * 100
	if netMovePct > 0 {
		state.TrendSign = 1
	} else if netMovePct < 0 {
		state.TrendSign = -1
	}

	state.Volatility = returnStdDevPct(closes)

	var low, high float64 = math.MaxFloat64, 0
	for _, c := range candles {
		if c.Low < low {
			low = c.Low
		}
		if c.High > high {
			high = c.High
		}
	}
	if low > 0 {
		state.LowActivity = (high-low)/low*100 < r.cfg.LowActivityPct
	}

	switch {
	case state.Volatility >= r.cfg.HighVolatilityPct:
		state.Condition = domain.ConditionVolatile
	case math.Abs(netMovePct) >= r.cfg.TrendThresholdPct && volumeRising(candles):
		state.Condition = domain.ConditionTrending
	case state.LowActivity:
		state.Condition = domain.ConditionRanging
	}
	return state
}

func returnStdDevPct(closes []float64) float64 {
	if len(closes) < 2 {
		return 0
	}
	returns := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] <= 0 {
			continue
		}
		returns = append(returns, (closes[i]-closes[i-1])/closes[i-1]*100)
	}
	if len(returns) == 0 {
		return 0
	}

	var mean float64
	for _, v := range returns {
		mean += v
	}
	mean /= float64(len(returns))

	var variance float64
	for _, v := range returns {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(returns))
	return math.Sqrt(variance)
}

// volumeRising compares average volume of the second half of the window
// against the first half.
func volumeRising(candles []domain.Candle) bool {
	half := len(candles) / 2
	if half == 0 {
		return false
	}
	var older, newer float64
	for i, c := range candles {
		if i < half {
			older += c.Volume
		} else {
			newer += c.Volume
		}
	}
	older /= float64(half)
	newer /= float64(len(candles) - half)
	return newer > older
}
