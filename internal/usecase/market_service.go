package usecase

import (
	"context"
	"time"

	"github.com/vitos/crypto_signal_bot/internal/domain"
	"go.uber.org/zap"
)

// MarketService fetches and normalizes market data for the signal engine.
// Empty exchange responses degrade to empty results, not errors; the
// signal generators treat short series as "insufficient data".
type MarketService struct {
	exchange domain.Exchange
	logger   *zap.Logger
	timeNow  func() time.Time // for testing
}

func NewMarketService(exchange domain.Exchange, logger *zap.Logger) *MarketService {
	return &MarketService{
		exchange: exchange,
		logger:   logger,
		timeNow:  time.Now,
	}
}

// GetCandles returns the candle series for the lookback window, oldest
// first. A pair with no data yields an empty slice and no error.
func (s *MarketService) GetCandles(ctx context.Context, symbol string, intervalMin, lookbackMin int) ([]domain.Candle, error) {
	since := s.timeNow().Add(-time.Duration(lookbackMin) * time.Minute)
	candles, err := s.exchange.OHLC(ctx, symbol, intervalMin, since)
	if err != nil {
		return nil, err
	}
	if len(candles) == 0 {
		s.logger.Debug("no candle data", zap.String("symbol", symbol))
		return []domain.Candle{}, nil
	}
	return candles, nil
}

func (s *MarketService) GetTickerSnapshot(ctx context.Context, symbol string) (*domain.Ticker, error) {
	return s.exchange.Ticker(ctx, symbol)
}
