package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/vitos/crypto_signal_bot/internal/domain"
	"github.com/vitos/crypto_signal_bot/internal/infrastructure/exchange"
	"github.com/vitos/crypto_signal_bot/internal/infrastructure/logger"
	"github.com/vitos/crypto_signal_bot/internal/infrastructure/storage"
	"github.com/vitos/crypto_signal_bot/internal/usecase"
	"github.com/vitos/crypto_signal_bot/internal/web"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Exchange struct {
		RESTEndpoint  string `yaml:"rest_endpoint"`
		WSEndpoint    string `yaml:"ws_endpoint"`
		RetryAttempts int    `yaml:"retry_attempts"`
		RetryDelaySec int    `yaml:"retry_delay_sec"`
	} `yaml:"exchange"`
	Trading struct {
		Pairs             []string           `yaml:"pairs"`
		QuoteCurrency     string             `yaml:"quote_currency"`
		CandleIntervalMin int                `yaml:"candle_interval_min"`
		LookbackMin       int                `yaml:"lookback_min"`
		CycleIntervalSec  int                `yaml:"cycle_interval_sec"`
		TradeAmounts      map[string]float64 `yaml:"trade_amounts"`
		MarginEnabled     bool               `yaml:"margin_enabled"`
		MaxLeverage       int                `yaml:"max_leverage"`
		ValidateOnly      bool               `yaml:"validate_only"`
		// Base asset -> lot decimals, overriding exchange pair metadata.
		LotDecimalOverrides map[string]int `yaml:"lot_decimal_overrides"`
	} `yaml:"trading"`
	Regime struct {
		HighVolatilityPct float64 `yaml:"high_volatility_pct"`
		TrendThresholdPct float64 `yaml:"trend_threshold_pct"`
		LowActivityPct    float64 `yaml:"low_activity_pct"`
	} `yaml:"regime"`
	Risk struct {
		StopLossPct            float64 `yaml:"stop_loss_pct"`
		TakeProfitPct          float64 `yaml:"take_profit_pct"`
		LeveragedStopLossPct   float64 `yaml:"leveraged_stop_loss_pct"`
		LeveragedTakeProfitPct float64 `yaml:"leveraged_take_profit_pct"`
		MaxDailyLossFraction   float64 `yaml:"max_daily_loss_fraction"`
		MaxRiskPerTrade        float64 `yaml:"max_risk_per_trade"`
		MaxOpenPositions       int     `yaml:"max_open_positions"`
	} `yaml:"risk"`
	Storage struct {
		Path string `yaml:"path"`
	} `yaml:"storage"`
	Logging struct {
		Level    string `yaml:"level"`
		TradeLog string `yaml:"trade_log"`
	} `yaml:"logging"`
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`
}

func loadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func main() {
	// 1. Load Config
	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	apiKey := os.Getenv("KRAKEN_API_KEY")
	apiSecret := os.Getenv("KRAKEN_API_SECRET")
	if apiKey == "" || apiSecret == "" {
		fmt.Println("KRAKEN_API_KEY and KRAKEN_API_SECRET must be set")
		os.Exit(1)
	}

	// 2. Init Logger
	log, err := logger.NewLogger(cfg.Logging.Level)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// 3. Init Storage
	dbPath := cfg.Storage.Path
	if dbPath == "" {
		dbPath = "bot.db"
	}
	store, err := storage.NewSQLiteStore(dbPath)
	if err != nil {
		log.Fatal("Failed to init sqlite", zap.Error(err))
	}
	defer store.Close()

	// 4. Init Exchange
	retryPolicy := exchange.DefaultRetryPolicy()
	if cfg.Exchange.RetryAttempts > 0 {
		retryPolicy.MaxAttempts = cfg.Exchange.RetryAttempts
	}
	if cfg.Exchange.RetryDelaySec > 0 {
		retryPolicy.Delay = time.Duration(cfg.Exchange.RetryDelaySec) * time.Second
	}
	client := exchange.NewClient(apiKey, apiSecret, cfg.Exchange.RESTEndpoint, retryPolicy, log)

	// 5. Init Services
	riskCfg := usecase.DefaultRiskConfig()
	if cfg.Risk.MaxDailyLossFraction > 0 {
		riskCfg.MaxDailyLossFraction = cfg.Risk.MaxDailyLossFraction
	}
	if cfg.Risk.MaxRiskPerTrade > 0 {
		riskCfg.MaxRiskPerTrade = cfg.Risk.MaxRiskPerTrade
	}
	if cfg.Risk.MaxOpenPositions > 0 {
		riskCfg.MaxOpenPositions = cfg.Risk.MaxOpenPositions
	}
	risk := usecase.NewRiskGate(riskCfg, log)

	// Replay today's realized P&L from storage so the daily loss limit
	// survives a process restart.
	if profits, err := store.DailyProfit(context.Background(), time.Now()); err != nil {
		log.Error("Failed to load today's realized P&L", zap.Error(err))
	} else {
		for currency, profit := range profits {
			risk.RecordPnL(currency, profit)
		}
	}

	ctrlCfg := usecase.DefaultControllerConfig()
	ctrlCfg.QuoteCurrency = cfg.Trading.QuoteCurrency
	ctrlCfg.TradeAmounts = cfg.Trading.TradeAmounts
	ctrlCfg.MarginEnabled = cfg.Trading.MarginEnabled
	ctrlCfg.ValidateOnly = cfg.Trading.ValidateOnly
	if cfg.Trading.MaxLeverage > 0 {
		ctrlCfg.MaxLeverage = cfg.Trading.MaxLeverage
	}
	if cfg.Risk.StopLossPct > 0 {
		ctrlCfg.StopLossPct = cfg.Risk.StopLossPct
	}
	if cfg.Risk.TakeProfitPct > 0 {
		ctrlCfg.TakeProfitPct = cfg.Risk.TakeProfitPct
	}
	if cfg.Risk.LeveragedStopLossPct > 0 {
		ctrlCfg.LeveragedStopLossPct = cfg.Risk.LeveragedStopLossPct
	}
	if cfg.Risk.LeveragedTakeProfitPct > 0 {
		ctrlCfg.LeveragedTakeProfitPct = cfg.Risk.LeveragedTakeProfitPct
	}
	ctrlCfg.LotDecimalOverrides = cfg.Trading.LotDecimalOverrides

	tradeLog := log
	if cfg.Logging.TradeLog != "" {
		fileLog, err := logger.NewFileLogger(cfg.Logging.TradeLog, cfg.Logging.Level)
		if err != nil {
			log.Error("Failed to init trade logger, using default", zap.Error(err))
		} else {
			tradeLog = fileLog
			defer fileLog.Sync()
		}
	}

	ledger := usecase.NewPositionLedger()
	positions := usecase.NewPositionService(client, ledger, risk, store, ctrlCfg, tradeLog)

	market := usecase.NewMarketService(client, log)
	rsi := usecase.NewRSISignalGenerator(0)
	macd := usecase.NewMACDSignalGenerator(0, 0, 0)
	combiner := usecase.NewSignalCombiner()

	regimeCfg := usecase.DefaultRegimeConfig()
	if cfg.Regime.HighVolatilityPct > 0 {
		regimeCfg.HighVolatilityPct = cfg.Regime.HighVolatilityPct
	}
	if cfg.Regime.TrendThresholdPct > 0 {
		regimeCfg.TrendThresholdPct = cfg.Regime.TrendThresholdPct
	}
	if cfg.Regime.LowActivityPct > 0 {
		regimeCfg.LowActivityPct = cfg.Regime.LowActivityPct
	}
	classifier := usecase.NewRegimeClassifier(regimeCfg)

	botCfg := usecase.DefaultBotConfig()
	botCfg.Pairs = cfg.Trading.Pairs
	if cfg.Trading.QuoteCurrency != "" {
		botCfg.QuoteCurrency = cfg.Trading.QuoteCurrency
	}
	if cfg.Trading.CandleIntervalMin > 0 {
		botCfg.CandleIntervalMin = cfg.Trading.CandleIntervalMin
	}
	if cfg.Trading.LookbackMin > 0 {
		botCfg.LookbackMin = cfg.Trading.LookbackMin
	}
	if cfg.Trading.CycleIntervalSec > 0 {
		botCfg.CycleInterval = time.Duration(cfg.Trading.CycleIntervalSec) * time.Second
	}
	bot := usecase.NewTradingBot(client, market, rsi, macd, combiner, classifier, positions, botCfg, log)

	// The ledger starts empty on every boot. Positions opened in a previous
	// run are NOT reconciled from the exchange and will not be monitored.
	log.Warn("starting with an empty position ledger; positions from previous runs are unmanaged")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 6. Connect WS price feed
	feed := exchange.NewTickerFeed(cfg.Exchange.WSEndpoint, log)
	feed.OnPriceUpdate(func(symbol string, price float64) {
		positions.SetLivePrice(symbol, price)
	})
	wsPairs := make(map[string]string)
	for _, symbol := range cfg.Trading.Pairs {
		info, err := positions.PairInfo(ctx, symbol)
		if err != nil {
			log.Error("pair metadata unavailable, no live feed for pair",
				zap.String("symbol", symbol), zap.Error(err))
			continue
		}
		if info.WSName != "" {
			wsPairs[info.WSName] = symbol
		}
	}
	if len(wsPairs) > 0 {
		if err := feed.Subscribe(wsPairs); err != nil {
			log.Error("websocket subscribe failed, monitoring falls back to REST", zap.Error(err))
		}
	}
	defer feed.Close()

	// 7. Start Trading and Monitoring Loops
	go bot.Run(ctx)
	go positions.Run(ctx)

	// 8. Init Web Server
	port := cfg.Server.Port
	if port == 0 {
		port = 8080
	}
	server := web.NewServer(port, store, positions, risk, log)
	go func() {
		if err := server.Start(); err != nil {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	// 9. Wait for Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	positions.CloseAll(shutdownCtx, domain.ReasonForcedExit)
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown failed", zap.Error(err))
	}
}
