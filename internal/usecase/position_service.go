package usecase

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vitos/crypto_signal_bot/internal/domain"
	"github.com/vitos/crypto_signal_bot/internal/infrastructure/metrics"
	"go.uber.org/zap"
)

type ControllerConfig struct {
	QuoteCurrency           string             // fallback settlement currency when pair metadata has none
	TradeAmounts            map[string]float64 // quote currency -> order size in quote units; 0 falls back to risk sizing
	MarginEnabled           bool
	MaxLeverage             int
	ValidateOnly            bool
	StopLossPct             float64
	TakeProfitPct           float64
	LeveragedStopLossPct    float64 // tighter than spot: leverage scales the move
	LeveragedTakeProfitPct  float64
	MonitorInterval         time.Duration
	LotDecimalOverrides     map[string]int // base asset -> lot decimals, overriding pair metadata
}

func DefaultControllerConfig() ControllerConfig {
	return ControllerConfig{
		QuoteCurrency:          "EUR",
		MarginEnabled:          false,
		MaxLeverage:            2,
		StopLossPct:            2.0,
		TakeProfitPct:          3.0,
		LeveragedStopLossPct:   0.9,
		LeveragedTakeProfitPct: 0.5,
		MonitorInterval:        5 * time.Second,
	}
}

// PositionService drives the per-symbol position state machine:
// Flat -> Opening -> Open -> Closing -> Flat. It is the single writer of the
// ledger. A per-symbol lock serializes the trading cycle and the monitoring
// tick so passes for the same symbol never overlap.
type PositionService struct {
	exchange domain.Exchange
	ledger   *PositionLedger
	risk     *RiskGate
	trades   domain.TradeRepository
	logger   *zap.Logger
	cfg      ControllerConfig
	timeNow  func() time.Time
	newID    func() string

	mu         sync.Mutex
	livePrices map[string]tickPrice
	pairInfo   map[string]*domain.AssetPairInfo
	symLocks   map[string]*sync.Mutex
}

// tickPrice is a websocket price with its arrival time. Entries older than
// the monitor interval are discarded so a dead feed cannot freeze
// monitoring on the last price it delivered.
type tickPrice struct {
	price float64
	at    time.Time
}

func NewPositionService(
	exchange domain.Exchange,
	ledger *PositionLedger,
	risk *RiskGate,
	trades domain.TradeRepository,
	cfg ControllerConfig,
	logger *zap.Logger,
) *PositionService {
	if cfg.MonitorInterval <= 0 {
		cfg.MonitorInterval = 5 * time.Second
	}
	return &PositionService{
		exchange:   exchange,
		ledger:     ledger,
		risk:       risk,
		trades:     trades,
		logger:     logger,
		cfg:        cfg,
		timeNow:    time.Now,
		newID:      func() string { return uuid.NewString() },
		livePrices: make(map[string]tickPrice),
		pairInfo:   make(map[string]*domain.AssetPairInfo),
		symLocks:   make(map[string]*sync.Mutex),
	}
}

func (s *PositionService) Ledger() *PositionLedger { return s.ledger }

// SetLivePrice feeds a websocket price into the monitor's price cache.
func (s *PositionService) SetLivePrice(symbol string, price float64) {
	if price <= 0 {
		return
	}
	s.mu.Lock()
	s.livePrices[symbol] = tickPrice{price: price, at: s.timeNow()}
	s.mu.Unlock()
}

// SetClock overrides the wall clock, for testing price staleness.
func (s *PositionService) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timeNow = now
}

func (s *PositionService) livePrice(symbol string) (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.livePrices[symbol]
	if !ok {
		return 0, false
	}
	if s.timeNow().Sub(p.at) > s.cfg.MonitorInterval {
		delete(s.livePrices, symbol)
		return 0, false
	}
	return p.price, true
}

func (s *PositionService) lockSymbol(symbol string) func() {
	s.mu.Lock()
	lock, ok := s.symLocks[symbol]
	if !ok {
		lock = &sync.Mutex{}
		s.symLocks[symbol] = lock
	}
	s.mu.Unlock()
	lock.Lock()
	return lock.Unlock
}

// PairInfo returns cached asset-pair metadata, fetching it on first use.
func (s *PositionService) PairInfo(ctx context.Context, symbol string) (*domain.AssetPairInfo, error) {
	s.mu.Lock()
	info, ok := s.pairInfo[symbol]
	s.mu.Unlock()
	if ok {
		return info, nil
	}

	info, err := s.exchange.AssetPair(ctx, symbol)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.pairInfo[symbol] = info
	s.mu.Unlock()
	return info, nil
}

// Apply executes the combined decision for one symbol within one trading
// cycle. refPrice is the decision-time reference price; it becomes the entry
// price on a fill, accepting reference-price slippage as a known
// approximation.
func (s *PositionService) Apply(ctx context.Context, symbol string, decision domain.Signal, refPrice, balance float64, market MarketState) error {
	unlock := s.lockSymbol(symbol)
	defer unlock()

	pos := s.ledger.Get(symbol)

	switch decision.Action {
	case domain.ActionBuy, domain.ActionSell:
		if pos != nil {
			// The combiner never proposes entries while a position is
			// open; reaching this is a programming defect.
			s.logger.Error("entry decision with open position",
				zap.String("symbol", symbol),
				zap.String("action", string(decision.Action)))
			return domain.ErrPositionExists
		}
		side := domain.SideLong
		if decision.Action == domain.ActionSell {
			side = domain.SideShort
		}
		return s.openPosition(ctx, symbol, side, decision, refPrice, balance, market)

	case domain.ActionExit:
		if pos == nil {
			return nil
		}
		price := refPrice
		if price <= 0 {
			price = pos.EntryPrice
		}
		return s.closePosition(ctx, pos, price, domain.ReasonSignalExit, string(decision.Reason))

	default:
		return nil
	}
}

func (s *PositionService) openPosition(ctx context.Context, symbol string, side domain.Side, decision domain.Signal, refPrice, balance float64, market MarketState) error {
	if refPrice <= 0 {
		return fmt.Errorf("open %s: no reference price", symbol)
	}
	if !s.risk.CanOpen(balance, s.ledger.Count()) {
		s.logger.Info("risk gate refused entry",
			zap.String("symbol", symbol),
			zap.Int("open_positions", s.ledger.Count()))
		return nil
	}

	info, err := s.PairInfo(ctx, symbol)
	if err != nil {
		s.logger.Error("pair metadata unavailable", zap.String("symbol", symbol), zap.Error(err))
		return err
	}

	leverage := 1
	if s.cfg.MarginEnabled && s.cfg.MaxLeverage > 1 && info.MarginEligible() {
		leverage = s.cfg.MaxLeverage
		if info.MaxLeverage < leverage {
			leverage = info.MaxLeverage
		}
	}
	leveraged := leverage > 1

	if side == domain.SideShort && !leveraged {
		s.logger.Info("short entry skipped, requires margin",
			zap.String("symbol", symbol),
			zap.String("reason", string(decision.Reason)))
		return nil
	}

	stopLossPct := s.cfg.StopLossPct
	if leveraged {
		stopLossPct = s.cfg.LeveragedStopLossPct
	}

	quote := currencyAlias(info.Quote)
	if quote == "" {
		quote = s.cfg.QuoteCurrency
	}
	volume := 0.0
	if amount := s.cfg.TradeAmounts[quote]; amount > 0 {
		volume = amount / refPrice
	} else {
		volume = s.risk.SizePosition(balance, refPrice, stopLossPct, market.Volatility)
	}
	if volume <= 0 {
		s.logger.Warn("sizing produced zero volume, entry skipped", zap.String("symbol", symbol))
		return nil
	}
	if info.OrderMin > 0 && volume < info.OrderMin {
		// Round up to the exchange minimum, never below it.
		volume = info.OrderMin
	}

	volumeStr := formatVolume(volume, s.lotDecimals(info))

	req := &domain.OrderRequest{
		Symbol:       symbol,
		Side:         side,
		Volume:       volumeStr,
		Leverage:     leverage,
		ValidateOnly: s.cfg.ValidateOnly,
		ClientID:     s.newID(),
	}
	conf, err := s.exchange.AddOrder(ctx, req)
	if err != nil {
		metrics.OrdersFailed.Inc()
		if domain.IsInsufficiency(err) {
			s.logger.Warn("order rejected by account limits",
				zap.String("symbol", symbol),
				zap.String("side", string(side)),
				zap.Error(err))
			return nil
		}
		s.logger.Error("open order failed",
			zap.String("symbol", symbol),
			zap.String("side", string(side)),
			zap.Error(err))
		return err
	}
	if !conf.Confirmed() {
		metrics.OrdersFailed.Inc()
		s.logger.Error("open order returned no confirmation", zap.String("symbol", symbol))
		return fmt.Errorf("open %s: no order confirmation", symbol)
	}

	recordedVolume, _ := strconv.ParseFloat(volumeStr, 64)
	s.ledger.Upsert(domain.Position{
		Symbol:     symbol,
		Side:       side,
		EntryPrice: refPrice,
		Volume:     recordedVolume,
		OpenedAt:   s.timeNow(),
		Leveraged:  leveraged,
		Leverage:   leverage,
		Quote:      quote,
	})
	metrics.OrdersPlaced.WithLabelValues(string(side)).Inc()
	metrics.OpenPositions.Set(float64(s.ledger.Count()))

	s.logger.Info("position opened",
		zap.String("symbol", symbol),
		zap.String("side", string(side)),
		zap.Float64("entry_price", refPrice),
		zap.String("volume", volumeStr),
		zap.Int("leverage", leverage),
		zap.String("reason", string(decision.Reason)),
		zap.Strings("txid", conf.TxIDs))
	return nil
}

// closePosition issues a close order for the full recorded volume. If the
// order fails the position stays in the ledger unchanged and the close is
// retried on the next monitoring tick; a close is never assumed to have
// succeeded without confirmation.
func (s *PositionService) closePosition(ctx context.Context, pos *domain.Position, price float64, reason domain.Reason, detail string) error {
	decimals := 8
	if info, err := s.PairInfo(ctx, pos.Symbol); err == nil {
		decimals = s.lotDecimals(info)
	}

	req := &domain.OrderRequest{
		Symbol:       pos.Symbol,
		Side:         pos.Side,
		Volume:       formatVolume(pos.Volume, decimals),
		Leverage:     pos.Leverage,
		ReduceOnly:   true,
		ValidateOnly: s.cfg.ValidateOnly,
		ClientID:     s.newID(),
	}
	conf, err := s.exchange.AddOrder(ctx, req)
	if err != nil {
		metrics.OrdersFailed.Inc()
		s.logger.Error("close order failed, position remains open",
			zap.String("symbol", pos.Symbol),
			zap.String("reason", string(reason)),
			zap.Error(err))
		return err
	}
	if !conf.Confirmed() {
		metrics.OrdersFailed.Inc()
		s.logger.Error("close order returned no confirmation, position remains open",
			zap.String("symbol", pos.Symbol))
		return fmt.Errorf("close %s: no order confirmation", pos.Symbol)
	}

	pnlPct := pos.PnLPercent(price)
	profit := pos.Volume * price * pnlPct / 100

	s.ledger.Remove(pos.Symbol)
	s.risk.RecordPnL(pos.Quote, profit)
	metrics.TradesClosed.WithLabelValues(string(reason)).Inc()
	metrics.OpenPositions.Set(float64(s.ledger.Count()))

	trade := &domain.ClosedTrade{
		Symbol:     pos.Symbol,
		Side:       pos.Side,
		EntryPrice: pos.EntryPrice,
		ExitPrice:  price,
		Volume:     pos.Volume,
		Profit:     profit,
		Leveraged:  pos.Leveraged,
		Leverage:   pos.Leverage,
		Currency:   pos.Quote,
		Reason:     string(reason),
		ClosedAt:   s.timeNow(),
	}
	if err := s.trades.SaveTrade(ctx, trade); err != nil {
		s.logger.Error("failed to persist closed trade", zap.String("symbol", pos.Symbol), zap.Error(err))
	}

	s.logger.Info("position closed",
		zap.String("symbol", pos.Symbol),
		zap.String("side", string(pos.Side)),
		zap.Float64("entry_price", pos.EntryPrice),
		zap.Float64("exit_price", price),
		zap.Float64("pnl_pct", pnlPct),
		zap.Float64("profit", profit),
		zap.String("currency", pos.Quote),
		zap.String("reason", string(reason)),
		zap.String("detail", detail))
	return nil
}

// MonitorOnce re-reads the current price for every open position and
// evaluates stop-loss/take-profit, independently per symbol.
func (s *PositionService) MonitorOnce(ctx context.Context) {
	for _, pos := range s.ledger.All() {
		s.monitorSymbol(ctx, pos.Symbol)
	}
}

func (s *PositionService) monitorSymbol(ctx context.Context, symbol string) {
	unlock := s.lockSymbol(symbol)
	defer unlock()

	pos := s.ledger.Get(symbol)
	if pos == nil {
		return
	}

	price, ok := s.livePrice(symbol)
	if !ok {
		ticker, err := s.exchange.Ticker(ctx, symbol)
		if err != nil {
			s.logger.Warn("monitor could not fetch price", zap.String("symbol", symbol), zap.Error(err))
			return
		}
		price = ticker.LastPrice
	}
	if price <= 0 {
		return
	}

	pnlPct := pos.PnLPercent(price)
	stopLoss, takeProfit := s.thresholds(pos)

	var reason domain.Reason
	switch {
	case pnlPct <= -stopLoss:
		reason = domain.ReasonStopLoss
	case pnlPct >= takeProfit:
		reason = domain.ReasonTakeProfit
	default:
		return
	}

	if err := s.closePosition(ctx, pos, price, reason, fmt.Sprintf("pnl %.2f%%", pnlPct)); err != nil {
		s.logger.Warn("close will be retried next tick", zap.String("symbol", symbol), zap.Error(err))
	}
}

func (s *PositionService) thresholds(pos *domain.Position) (stopLoss, takeProfit float64) {
	if pos.Leveraged {
		return s.cfg.LeveragedStopLossPct, s.cfg.LeveragedTakeProfitPct
	}
	return s.cfg.StopLossPct, s.cfg.TakeProfitPct
}

// Run drives the monitoring loop until the context is cancelled.
func (s *PositionService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.MonitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.MonitorOnce(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// CloseAll attempts to close every open position, best effort. Used on
// shutdown; failures are logged, not retried, since the process is exiting.
func (s *PositionService) CloseAll(ctx context.Context, reason domain.Reason) {
	for _, pos := range s.ledger.All() {
		unlock := s.lockSymbol(pos.Symbol)

		current := s.ledger.Get(pos.Symbol)
		if current == nil {
			unlock()
			continue
		}
		price, ok := s.livePrice(pos.Symbol)
		if !ok {
			if ticker, err := s.exchange.Ticker(ctx, pos.Symbol); err == nil {
				price = ticker.LastPrice
			} else {
				price = current.EntryPrice
			}
		}
		if err := s.closePosition(ctx, current, price, reason, "shutdown"); err != nil {
			s.logger.Error("failed to close position on shutdown",
				zap.String("symbol", pos.Symbol), zap.Error(err))
		}
		unlock()
	}
}

func (s *PositionService) lotDecimals(info *domain.AssetPairInfo) int {
	if override, ok := s.cfg.LotDecimalOverrides[info.Base]; ok {
		return override
	}
	if info.LotDecimals > 0 {
		return info.LotDecimals
	}
	return 8
}

// formatVolume renders volume at the pair's lot precision, rounding up so
// the minimum tradable size is met; zero decimals rounds up to whole units
// for very large-quantity assets.
func formatVolume(volume float64, decimals int) string {
	if decimals <= 0 {
		return strconv.FormatFloat(math.Ceil(volume), 'f', 0, 64)
	}
	scale := math.Pow(10, float64(decimals))
	rounded := math.Ceil(volume*scale) / scale
	return strconv.FormatFloat(rounded, 'f', decimals, 64)
}

// currencyAlias maps exchange asset codes to plain currency names
// (ZEUR -> EUR, ZUSD -> USD, XXBT -> XBT).
func currencyAlias(asset string) string {
	if len(asset) == 4 && (asset[0] == 'Z' || asset[0] == 'X') {
		return asset[1:]
	}
	return asset
}
