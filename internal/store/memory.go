package store

import (
	"sync"
	"time"

	"github.com/PawanKGupta/modular-trade-agent-sub007/internal/models"
)

// ensure MemoryStore implements the interface
var _ Store = (*MemoryStore)(nil)

// MemoryStore is a non-durable Store used in tests.
type MemoryStore struct {
	mu      sync.Mutex
	tracked map[string]models.TrackedSymbol
	pending map[string]models.PendingOrder
	history []models.TradeHistoryEntry
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tracked: make(map[string]models.TrackedSymbol),
		pending: make(map[string]models.PendingOrder),
	}
}

func (s *MemoryStore) GetTracked(symbol string) (*models.TrackedSymbol, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ts, ok := s.tracked[symbol]
	if !ok {
		return nil, ErrNotFound
	}
	return &ts, nil
}

func (s *MemoryStore) PutTracked(ts *models.TrackedSymbol) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tracked[ts.Symbol] = *ts
	return nil
}

func (s *MemoryStore) DeleteTracked(symbol string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tracked, symbol)
	return nil
}

func (s *MemoryStore) ListTracked() ([]models.TrackedSymbol, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := make([]models.TrackedSymbol, 0, len(s.tracked))
	for _, ts := range s.tracked {
		all = append(all, ts)
	}
	return all, nil
}

func (s *MemoryStore) GetPending(orderID string) (*models.PendingOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	po, ok := s.pending[orderID]
	if !ok {
		return nil, ErrNotFound
	}
	return &po, nil
}

func (s *MemoryStore) PutPending(po *models.PendingOrder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[po.OrderID] = *po
	return nil
}

func (s *MemoryStore) DeletePending(orderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, orderID)
	return nil
}

func (s *MemoryStore) ListPending() ([]models.PendingOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := make([]models.PendingOrder, 0, len(s.pending))
	for _, po := range s.pending {
		all = append(all, po)
	}
	return all, nil
}

func (s *MemoryStore) AppendHistory(entry *models.TradeHistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, *entry)
	return nil
}

func (s *MemoryStore) FindHistoryByOrderID(orderID string) (*models.TradeHistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.history {
		if s.history[i].OrderID == orderID {
			entry := s.history[i]
			return &entry, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) ListHistoryBySymbol(symbol string, since time.Time) ([]models.TradeHistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var entries []models.TradeHistoryEntry
	for _, e := range s.history {
		if e.Symbol == symbol && !e.ExecutedAt.Before(since) {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

// HistoryLen reports the number of appended entries, for test assertions.
func (s *MemoryStore) HistoryLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history)
}
