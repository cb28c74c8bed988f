package usecase_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vitos/crypto_signal_bot/internal/domain"
	"github.com/vitos/crypto_signal_bot/internal/usecase"
)

func candlesFromCloses(closes []float64, volumes []float64) []domain.Candle {
	candles := make([]domain.Candle, len(closes))
	for i, c := range closes {
		vol := 100.0
		if volumes != nil {
			vol = volumes[i]
		}
		candles[i] = domain.Candle{
			Time:   int64(i * 300),
			Open:   c,
			High:   c * 1.001,
			Low:    c * 0.999,
			Close:  c,
			Volume: vol,
		}
	}
	return candles
}

func TestClassify_InsufficientCandlesIsDefault(t *testing.T) {
	classifier := usecase.NewRegimeClassifier(usecase.DefaultRegimeConfig())

	state := classifier.Classify(candlesFromCloses([]float64{100, 101}, nil))
	assert.Equal(t, domain.ConditionDefault, state.Condition)
	assert.Equal(t, 0, state.TrendSign)
}

func TestClassify_VolatileOnLargeSwings(t *testing.T) {
	classifier := usecase.NewRegimeClassifier(usecase.DefaultRegimeConfig())

	// Alternating +5%/-5% moves: huge return stddev, no net trend.
	closes := make([]float64, 30)
	closes[0] = 100
	for i := 1; i < len(closes); i++ {
		if i%2 == 1 {
			closes[i] = closes[i-1] * 1.05
		} else {
			closes[i] = closes[i-1] * 0.95
		}
	}
	state := classifier.Classify(candlesFromCloses(closes, nil))
	assert.Equal(t, domain.ConditionVolatile, state.Condition)
	assert.Greater(t, state.Volatility, 2.0)
}

func TestClassify_TrendingNeedsMoveAndVolume(t *testing.T) {
	classifier := usecase.NewRegimeClassifier(usecase.DefaultRegimeConfig())

	closes := make([]float64, 30)
	volumes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100 * math.Pow(1.002, float64(i)) // ~6% net rise, gentle
		volumes[i] = 100 + float64(i)*10              // rising volume
	}
	state := classifier.Classify(candlesFromCloses(closes, volumes))
	assert.Equal(t, domain.ConditionTrending, state.Condition)
	assert.Equal(t, 1, state.TrendSign)

	// Same move with falling volume is not a confirmed trend.
	for i := range volumes {
		volumes[i] = 400 - float64(i)*10
	}
	state = classifier.Classify(candlesFromCloses(closes, volumes))
	assert.NotEqual(t, domain.ConditionTrending, state.Condition)
}

func TestClassify_LowActivityFlagsRanging(t *testing.T) {
	classifier := usecase.NewRegimeClassifier(usecase.DefaultRegimeConfig())

	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100 + 0.01*float64(i%3) // near-flat
	}
	candles := candlesFromCloses(closes, nil)
	for i := range candles {
		candles[i].High = closes[i]
		candles[i].Low = closes[i]
	}
	state := classifier.Classify(candles)
	assert.True(t, state.LowActivity)
	assert.Equal(t, domain.ConditionRanging, state.Condition)
}
