package usecase

import (
	"github.com/vitos/crypto_signal_bot/internal/domain"
)

// Indicator math over closing-price series. All functions return nil when
// the input is too short for the requested window, which downstream signal
// generators treat as "cannot decide yet", never as an error.

func ClosePrices(candles []domain.Candle) []float64 {
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}
	return closes
}

func SMA(values []float64, period int) []float64 {
	if period <= 0 || len(values) < period {
		return nil
	}

	result := make([]float64, len(values)-period+1)
	sum := 0.0
	for i := 0; i < period; i++ {
		sum += values[i]
	}
	result[0] = sum / float64(period)

	for i := period; i < len(values); i++ {
		sum = sum - values[i-period] + values[i]
		result[i-period+1] = sum / float64(period)
	}
	return result
}

func EMA(values []float64, period int) []float64 {
	if period <= 0 || len(values) < period {
		return nil
	}

	multiplier := 2.0 / (float64(period) + 1.0)
	result := make([]float64, len(values))

	// Seed with the SMA of the first window.
	sum := 0.0
	for i := 0; i < period; i++ {
		sum += values[i]
	}
	result[period-1] = sum / float64(period)

	for i := period; i < len(values); i++ {
		result[i] = values[i]*multiplier + result[i-1]*(1-multiplier)
	}
	return result[period-1:]
}

// RSISeries computes the Relative Strength Index with Wilder smoothing.
// Degenerate averages saturate instead of producing NaN: no movement at all
// maps to 50, gains without losses to 70, losses without gains to 30.
func RSISeries(closes []float64, period int) []float64 {
	if period <= 0 || len(closes) < period+1 {
		return nil
	}

	gains := make([]float64, len(closes)-1)
	losses := make([]float64, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			gains[i-1] = change
		} else {
			losses[i-1] = -change
		}
	}

	var avgGain, avgLoss float64
	for i := 0; i < period; i++ {
		avgGain += gains[i]
		avgLoss += losses[i]
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	result := make([]float64, 0, len(gains)-period+1)
	result = append(result, rsiValue(avgGain, avgLoss))

	for i := period; i < len(gains); i++ {
		avgGain = (avgGain*float64(period-1) + gains[i]) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + losses[i]) / float64(period)
		result = append(result, rsiValue(avgGain, avgLoss))
	}
	return result
}

func rsiValue(avgGain, avgLoss float64) float64 {
	switch {
	case avgLoss == 0 && avgGain == 0:
		return 50
	case avgLoss == 0:
		return 70
	case avgGain == 0:
		return 30
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// MACDResult holds aligned MACD, signal and histogram series. The three
// slices share the same length and time axis (newest value last).
type MACDResult struct {
	Line      []float64
	Signal    []float64
	Histogram []float64
}

// MACDSeries computes MACD(fast, slow, signal) over closes.
func MACDSeries(closes []float64, fast, slow, signalPeriod int) *MACDResult {
	if fast <= 0 || slow <= fast || signalPeriod <= 0 {
		return nil
	}
	if len(closes) < slow+signalPeriod {
		return nil
	}

	fastEMA := EMA(closes, fast)
	slowEMA := EMA(closes, slow)
	if fastEMA == nil || slowEMA == nil {
		return nil
	}

	// Align the fast series to the slow one; slowEMA is shorter.
	offset := len(fastEMA) - len(slowEMA)
	macd := make([]float64, len(slowEMA))
	for i := range slowEMA {
		macd[i] = fastEMA[i+offset] - slowEMA[i]
	}

	signal := EMA(macd, signalPeriod)
	if signal == nil {
		return nil
	}

	macd = macd[len(macd)-len(signal):]
	hist := make([]float64, len(signal))
	for i := range signal {
		hist[i] = macd[i] - signal[i]
	}

	return &MACDResult{Line: macd, Signal: signal, Histogram: hist}
}
