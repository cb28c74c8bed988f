package usecase

import (
	"context"
	"time"

	"github.com/vitos/crypto_signal_bot/internal/domain"
	"go.uber.org/zap"
)

type BotConfig struct {
	Pairs             []string
	QuoteCurrency     string
	CandleIntervalMin int
	LookbackMin       int
	CycleInterval     time.Duration
}

func DefaultBotConfig() BotConfig {
	return BotConfig{
		QuoteCurrency:     "EUR",
		CandleIntervalMin: 5,
		LookbackMin:       720,
		CycleInterval:     60 * time.Second,
	}
}

// TradingBot drives the outer trading cycle: market data -> indicators ->
// signal generators -> combiner -> position service, once per pair per
// cycle. Pairs are independent; a failure on one never aborts the others.
type TradingBot struct {
	exchange   domain.Exchange
	market     *MarketService
	rsi        *RSISignalGenerator
	macd       *MACDSignalGenerator
	combiner   *SignalCombiner
	classifier *RegimeClassifier
	positions  *PositionService
	logger     *zap.Logger
	cfg        BotConfig
}

func NewTradingBot(
	exchange domain.Exchange,
	market *MarketService,
	rsi *RSISignalGenerator,
	macd *MACDSignalGenerator,
	combiner *SignalCombiner,
	classifier *RegimeClassifier,
	positions *PositionService,
	cfg BotConfig,
	logger *zap.Logger,
) *TradingBot {
	if cfg.CycleInterval <= 0 {
		cfg.CycleInterval = 60 * time.Second
	}
	if cfg.CandleIntervalMin <= 0 {
		cfg.CandleIntervalMin = 5
	}
	return &TradingBot{
		exchange:   exchange,
		market:     market,
		rsi:        rsi,
		macd:       macd,
		combiner:   combiner,
		classifier: classifier,
		positions:  positions,
		logger:     logger,
		cfg:        cfg,
	}
}

// RunCycle evaluates every configured pair once.
func (b *TradingBot) RunCycle(ctx context.Context) {
	balance, err := b.exchange.TradeBalance(ctx, b.cfg.QuoteCurrency)
	if err != nil {
		b.logger.Error("balance unavailable, skipping cycle", zap.Error(err))
		return
	}

	for _, symbol := range b.cfg.Pairs {
		if ctx.Err() != nil {
			return
		}
		b.evaluatePair(ctx, symbol, balance)
	}
}

func (b *TradingBot) evaluatePair(ctx context.Context, symbol string, balance float64) {
	candles, err := b.market.GetCandles(ctx, symbol, b.cfg.CandleIntervalMin, b.cfg.LookbackMin)
	if err != nil {
		b.logger.Error("candle fetch failed", zap.String("symbol", symbol), zap.Error(err))
		return
	}

	closes := ClosePrices(candles)
	market := b.classifier.Classify(candles)
	position := b.positions.Ledger().Get(symbol)

	rsiSignal := b.rsi.Evaluate(b.rsi.Series(closes), position, market)
	macdSignal := b.macd.Evaluate(b.macd.Series(closes), position)
	decision := b.combiner.Combine(rsiSignal, macdSignal, market, position)

	b.logger.Debug("cycle decision",
		zap.String("symbol", symbol),
		zap.String("condition", string(market.Condition)),
		zap.String("rsi", string(rsiSignal.Action)),
		zap.String("macd", string(macdSignal.Action)),
		zap.String("decision", string(decision.Action)),
		zap.String("reason", string(decision.Reason)))

	switch decision.Action {
	case domain.ActionBuy, domain.ActionSell, domain.ActionExit:
	default:
		return
	}

	ticker, err := b.market.GetTickerSnapshot(ctx, symbol)
	if err != nil {
		b.logger.Error("reference price unavailable, decision dropped",
			zap.String("symbol", symbol), zap.Error(err))
		return
	}

	if err := b.positions.Apply(ctx, symbol, decision, ticker.LastPrice, balance, market); err != nil {
		b.logger.Error("decision failed", zap.String("symbol", symbol), zap.Error(err))
	}
}

// Run drives trading cycles until the context is cancelled. The first cycle
// runs immediately.
func (b *TradingBot) Run(ctx context.Context) {
	b.RunCycle(ctx)

	ticker := time.NewTicker(b.cfg.CycleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			b.RunCycle(ctx)
		case <-ctx.Done():
			return
		}
	}
}
