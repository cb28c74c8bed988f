package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/vitos/crypto_signal_bot/internal/domain"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	// sqlite serializes writers; a single pooled connection avoids
	// SQLITE_BUSY and keeps :memory: databases on one connection.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS trades (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			symbol TEXT NOT NULL,
			side TEXT NOT NULL,
			entry_price REAL NOT NULL,
			exit_price REAL NOT NULL,
			volume REAL NOT NULL,
			profit REAL NOT NULL,
			leveraged BOOLEAN NOT NULL DEFAULT 0,
			leverage INTEGER NOT NULL DEFAULT 1,
			currency TEXT NOT NULL,
			reason TEXT NOT NULL,
			closed_at DATETIME NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_trades_closed_at ON trades(closed_at);`,
		`CREATE INDEX IF NOT EXISTS idx_trades_symbol ON trades(symbol);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("failed to exec query %s: %w", q, err)
		}
	}

	return nil
}

func (s *SQLiteStore) SaveTrade(ctx context.Context, trade *domain.ClosedTrade) error {
	query := `INSERT INTO trades (symbol, side, entry_price, exit_price, volume, profit, leveraged, leverage, currency, reason, closed_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		trade.Symbol, trade.Side, trade.EntryPrice, trade.ExitPrice, trade.Volume,
		trade.Profit, trade.Leveraged, trade.Leverage, trade.Currency, trade.Reason, trade.ClosedAt)
	return err
}

func (s *SQLiteStore) ListTrades(ctx context.Context, limit int) ([]*domain.ClosedTrade, error) {
	query := `SELECT id, symbol, side, entry_price, exit_price, volume, profit, leveraged, leverage, currency, reason, closed_at
			  FROM trades ORDER BY id DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []*domain.ClosedTrade
	for rows.Next() {
		var t domain.ClosedTrade
		if err := rows.Scan(&t.ID, &t.Symbol, &t.Side, &t.EntryPrice, &t.ExitPrice, &t.Volume,
			&t.Profit, &t.Leveraged, &t.Leverage, &t.Currency, &t.Reason, &t.ClosedAt); err != nil {
			return nil, err
		}
		trades = append(trades, &t)
	}
	return trades, rows.Err()
}

func (s *SQLiteStore) PerformanceSummary(ctx context.Context) (*domain.PerformanceSummary, error) {
	summary := &domain.PerformanceSummary{ProfitByCurrency: make(map[string]float64)}

	row := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
				COALESCE(SUM(CASE WHEN profit > 0 THEN 1 ELSE 0 END), 0),
				COALESCE(SUM(CASE WHEN profit < 0 THEN 1 ELSE 0 END), 0)
		 FROM trades`)
	if err := row.Scan(&summary.TotalTrades, &summary.Wins, &summary.Losses); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT currency, COALESCE(SUM(profit), 0) FROM trades GROUP BY currency`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var currency string
		var profit float64
		if err := rows.Scan(&currency, &profit); err != nil {
			return nil, err
		}
		summary.ProfitByCurrency[currency] = profit
	}
	return summary, rows.Err()
}

// DailyProfit returns realized profit per currency for one calendar day.
func (s *SQLiteStore) DailyProfit(ctx context.Context, day time.Time) (map[string]float64, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.Add(24 * time.Hour)

	rows, err := s.db.QueryContext(ctx,
		`SELECT currency, COALESCE(SUM(profit), 0) FROM trades
		 WHERE closed_at >= ? AND closed_at < ? GROUP BY currency`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	profits := make(map[string]float64)
	for rows.Next() {
		var currency string
		var profit float64
		if err := rows.Scan(&currency, &profit); err != nil {
			return nil, err
		}
		profits[currency] = profit
	}
	return profits, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
