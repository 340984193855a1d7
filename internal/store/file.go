package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/PawanKGupta/modular-trade-agent-sub007/internal/models"
)

// ensure FileStore implements the interface
var _ Store = (*FileStore)(nil)

// FileStore persists each record set as a JSON file in a directory:
// tracked.json, pending.json and history.json. Writes go through a temp
// file and rename so a crash mid-write leaves the previous snapshot intact.
type FileStore struct {
	mu      sync.Mutex
	dir     string
	tracked map[string]models.TrackedSymbol
	pending map[string]models.PendingOrder
	history []models.TradeHistoryEntry
}

// NewFileStore loads any existing snapshot files from dir, creating the
// directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	s := &FileStore{
		dir:     dir,
		tracked: make(map[string]models.TrackedSymbol),
		pending: make(map[string]models.PendingOrder),
	}

	if err := loadJSON(s.path("tracked.json"), &s.tracked); err != nil {
		return nil, err
	}
	if err := loadJSON(s.path("pending.json"), &s.pending); err != nil {
		return nil, err
	}
	if err := loadJSON(s.path("history.json"), &s.history); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileStore) path(name string) string {
	return filepath.Join(s.dir, name)
}

func loadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

func saveJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	return os.Rename(tmp, path)
}

func (s *FileStore) GetTracked(symbol string) (*models.TrackedSymbol, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ts, ok := s.tracked[symbol]
	if !ok {
		return nil, ErrNotFound
	}
	return &ts, nil
}

func (s *FileStore) PutTracked(ts *models.TrackedSymbol) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tracked[ts.Symbol] = *ts
	return saveJSON(s.path("tracked.json"), s.tracked)
}

func (s *FileStore) DeleteTracked(symbol string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tracked, symbol)
	return saveJSON(s.path("tracked.json"), s.tracked)
}

func (s *FileStore) ListTracked() ([]models.TrackedSymbol, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := make([]models.TrackedSymbol, 0, len(s.tracked))
	for _, ts := range s.tracked {
		all = append(all, ts)
	}
	return all, nil
}

func (s *FileStore) GetPending(orderID string) (*models.PendingOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	po, ok := s.pending[orderID]
	if !ok {
		return nil, ErrNotFound
	}
	return &po, nil
}

func (s *FileStore) PutPending(po *models.PendingOrder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[po.OrderID] = *po
	return saveJSON(s.path("pending.json"), s.pending)
}

func (s *FileStore) DeletePending(orderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, orderID)
	return saveJSON(s.path("pending.json"), s.pending)
}

func (s *FileStore) ListPending() ([]models.PendingOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := make([]models.PendingOrder, 0, len(s.pending))
	for _, po := range s.pending {
		all = append(all, po)
	}
	return all, nil
}

func (s *FileStore) AppendHistory(entry *models.TradeHistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, *entry)
	return saveJSON(s.path("history.json"), s.history)
}

func (s *FileStore) FindHistoryByOrderID(orderID string) (*models.TradeHistoryEntry, error) {
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

func (s *FileStore) ListHistoryBySymbol(symbol string, since time.Time) ([]models.TradeHistoryEntry, error) {
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
