package usecase

import (
	"sort"
	"sync"

	"github.com/vitos/crypto_signal_bot/internal/domain"
)

// PositionLedger is the authoritative in-memory record of open positions,
// one per symbol. Only the position service mutates it. It holds value
// copies so callers cannot corrupt ledger state through a returned pointer.
//
// The ledger is process-lifetime state: it starts empty on restart and is
// not reconciled against exchange-reported positions. The exchange remains
// the source of truth for actual fills.
type PositionLedger struct {
	mu        sync.RWMutex
	positions map[string]domain.Position
}

func NewPositionLedger() *PositionLedger {
	return &PositionLedger{positions: make(map[string]domain.Position)}
}

func (l *PositionLedger) Get(symbol string) *domain.Position {
	l.mu.RLock()
	defer l.mu.RUnlock()
	pos, ok := l.positions[symbol]
	if !ok {
		return nil
	}
	return &pos
}

func (l *PositionLedger) Upsert(pos domain.Position) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.positions[pos.Symbol] = pos
}

func (l *PositionLedger) Remove(symbol string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.positions, symbol)
}

func (l *PositionLedger) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.positions)
}

func (l *PositionLedger) All() []domain.Position {
	l.mu.RLock()
	defer l.mu.RUnlock()
	all := make([]domain.Position, 0, len(l.positions))
	for _, pos := range l.positions {
		all = append(all, pos)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Symbol < all[j].Symbol })
	return all
}
