package usecase_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitos/crypto_signal_bot/internal/usecase"
)

func TestSMA(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}

	result := usecase.SMA(values, 3)
	require.Len(t, result, 3)
	assert.InDelta(t, 2.0, result[0], 1e-9)
	assert.InDelta(t, 3.0, result[1], 1e-9)
	assert.InDelta(t, 4.0, result[2], 1e-9)

	assert.Nil(t, usecase.SMA(values, 6), "short input returns nil")
	assert.Nil(t, usecase.SMA(values, 0))
}

func TestEMA_SeedsWithSMA(t *testing.T) {
	values := []float64{2, 4, 6, 8}

	result := usecase.EMA(values, 3)
	require.Len(t, result, 2)
	// Seed = SMA(2,4,6) = 4; next = 8*0.5 + 4*0.5 = 6.
	assert.InDelta(t, 4.0, result[0], 1e-9)
	assert.InDelta(t, 6.0, result[1], 1e-9)
}

func TestRSISeries_Saturation(t *testing.T) {
	flat := make([]float64, 20)
	for i := range flat {
		flat[i] = 100.0
	}
	rsi := usecase.RSISeries(flat, 14)
	require.NotEmpty(t, rsi)
	for _, v := range rsi {
		assert.Equal(t, 50.0, v, "flat series must yield RSI 50, never NaN")
	}

	rising := make([]float64, 20)
	for i := range rising {
		rising[i] = 100.0 + float64(i)
	}
	rsi = usecase.RSISeries(rising, 14)
	require.NotEmpty(t, rsi)
	assert.Equal(t, 70.0, rsi[len(rsi)-1], "gains without losses saturate at 70")

	falling := make([]float64, 20)
	for i := range falling {
		falling[i] = 100.0 - float64(i)
	}
	rsi = usecase.RSISeries(falling, 14)
	require.NotEmpty(t, rsi)
	assert.Equal(t, 30.0, rsi[len(rsi)-1], "losses without gains saturate at 30")
}

func TestRSISeries_Bounded(t *testing.T) {
	closes := []float64{44, 44.3, 44.1, 43.6, 44.3, 44.8, 45.1, 45.4, 45.8, 46.0,
		45.9, 46.2, 45.6, 46.3, 46.2, 46.0, 46.6, 46.2, 46.0, 46.4}

	rsi := usecase.RSISeries(closes, 14)
	require.NotEmpty(t, rsi)
	for _, v := range rsi {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 100.0)
	}
}

func TestRSISeries_InsufficientData(t *testing.T) {
	assert.Nil(t, usecase.RSISeries([]float64{1, 2, 3}, 14))
}

func TestMACDSeries(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100.0 + float64(i)*0.5
	}

	result := usecase.MACDSeries(closes, 12, 26, 9)
	require.NotNil(t, result)
	require.Equal(t, len(result.Line), len(result.Signal))
	require.Equal(t, len(result.Line), len(result.Histogram))

	for i := range result.Line {
		assert.InDelta(t, result.Line[i]-result.Signal[i], result.Histogram[i], 1e-9)
	}
	// A steadily rising series keeps the fast EMA above the slow one.
	assert.Greater(t, result.Line[len(result.Line)-1], 0.0)
}

func TestMACDSeries_InsufficientData(t *testing.T) {
	closes := make([]float64, 20)
	assert.Nil(t, usecase.MACDSeries(closes, 12, 26, 9))
	assert.Nil(t, usecase.MACDSeries(nil, 12, 26, 9))
}
