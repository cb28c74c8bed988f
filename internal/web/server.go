package web

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vitos/crypto_signal_bot/internal/domain"
	"github.com/vitos/crypto_signal_bot/internal/usecase"
	"go.uber.org/zap"
)

// Server exposes read-only operational endpoints: open positions, trade
// history, performance, risk state and Prometheus metrics. It never mutates
// trading state.
type Server struct {
	router    *http.ServeMux
	server    *http.Server
	tradeRepo domain.TradeRepository
	positions *usecase.PositionService
	risk      *usecase.RiskGate
	logger    *zap.Logger
}

func NewServer(
	port int,
	tradeRepo domain.TradeRepository,
	positions *usecase.PositionService,
	risk *usecase.RiskGate,
	logger *zap.Logger,
) *Server {
	s := &Server{
		router:    http.NewServeMux(),
		tradeRepo: tradeRepo,
		positions: positions,
		risk:      risk,
		logger:    logger,
	}
	s.routes()
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s.router,
	}
	return s
}

func (s *Server) routes() {
	// Status
	s.router.HandleFunc("GET /status", s.handleStatus)

	// Positions
	s.router.HandleFunc("GET /api/positions", s.handlePositions)

	// Trades
	s.router.HandleFunc("GET /api/trades", s.handleTrades)

	// Performance
	s.router.HandleFunc("GET /api/performance", s.handlePerformance)

	// Risk
	s.router.HandleFunc("GET /api/risk", s.handleRisk)

	// Metrics
	s.router.Handle("GET /metrics", promhttp.Handler())
}

func (s *Server) Start() error {
	s.logger.Info("Starting web server", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
