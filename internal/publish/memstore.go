package publish

import (
	"sync"

	"tradesim/internal/common"
)

// MemoryStore is the in-process reference TradeStore used by tests and
// the demo binary. Durable storage lives behind the same interface
// outside this repository.
type MemoryStore struct {
	mu     sync.Mutex
	trades []common.Trade
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) SaveTrade(trade common.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.trades = append(s.trades, trade)
	return nil
}

// Trades returns a copy of everything saved so far.
func (s *MemoryStore) Trades() []common.Trade {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]common.Trade, len(s.trades))
	copy(out, s.trades)
	return out
}
