package store

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/PawanKGupta/modular-trade-agent-sub007/internal/models"
)

// ensure GormStore implements the interface
var _ Store = (*GormStore)(nil)

// GormStore persists all three record sets in a single sqlite database.
type GormStore struct {
	db *gorm.DB
}

// NewDatabase opens the database and migrates the schema. Existing records
// survive restarts; the engine reloads them on startup.
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(
		&models.TrackedSymbol{},
		&models.PendingOrder{},
		&models.TradeHistoryEntry{},
	); err != nil {
		return nil, fmt.Errorf("failed to auto-migrate database: %w", err)
	}

	return db, nil
}

// NewGormStore wraps an open gorm database as a Store.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) GetTracked(symbol string) (*models.TrackedSymbol, error) {
	var ts models.TrackedSymbol
	err := s.db.First(&ts, "symbol = ?", symbol).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load tracked symbol %s: %w", symbol, err)
	}
	return &ts, nil
}

func (s *GormStore) PutTracked(ts *models.TrackedSymbol) error {
	var existing models.TrackedSymbol
	err := s.db.First(&existing, "symbol = ?", ts.Symbol).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return s.db.Create(ts).Error
	}
	if err != nil {
		return fmt.Errorf("failed to upsert tracked symbol %s: %w", ts.Symbol, err)
	}
	ts.ID = existing.ID
	return s.db.Save(ts).Error
}

func (s *GormStore) DeleteTracked(symbol string) error {
	// Unscoped: tracked-symbol removal is a hard delete so a later order
	// for the same symbol creates a fresh record.
	return s.db.Unscoped().Delete(&models.TrackedSymbol{}, "symbol = ?", symbol).Error
}

func (s *GormStore) ListTracked() ([]models.TrackedSymbol, error) {
	var all []models.TrackedSymbol
	if err := s.db.Find(&all).Error; err != nil {
		return nil, fmt.Errorf("failed to list tracked symbols: %w", err)
	}
	return all, nil
}

func (s *GormStore) GetPending(orderID string) (*models.PendingOrder, error) {
	var po models.PendingOrder
	err := s.db.First(&po, "order_id = ?", orderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load pending order %s: %w", orderID, err)
	}
	return &po, nil
}

func (s *GormStore) PutPending(po *models.PendingOrder) error {
	var existing models.PendingOrder
	err := s.db.First(&existing, "order_id = ?", po.OrderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return s.db.Create(po).Error
	}
	if err != nil {
		return fmt.Errorf("failed to upsert pending order %s: %w", po.OrderID, err)
	}
	po.ID = existing.ID
	return s.db.Save(po).Error
}

func (s *GormStore) DeletePending(orderID string) error {
	return s.db.Unscoped().Delete(&models.PendingOrder{}, "order_id = ?", orderID).Error
}

func (s *GormStore) ListPending() ([]models.PendingOrder, error) {
	var all []models.PendingOrder
	if err := s.db.Find(&all).Error; err != nil {
		return nil, fmt.Errorf("failed to list pending orders: %w", err)
	}
	return all, nil
}

func (s *GormStore) AppendHistory(entry *models.TradeHistoryEntry) error {
	return s.db.Create(entry).Error
}

func (s *GormStore) FindHistoryByOrderID(orderID string) (*models.TradeHistoryEntry, error) {
	var entry models.TradeHistoryEntry
	err := s.db.First(&entry, "order_id = ?", orderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find history for order %s: %w", orderID, err)
	}
	return &entry, nil
}

func (s *GormStore) ListHistoryBySymbol(symbol string, since time.Time) ([]models.TradeHistoryEntry, error) {
	var entries []models.TradeHistoryEntry
	err := s.db.Where("symbol = ? AND executed_at >= ?", symbol, since).Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list history for %s: %w", symbol, err)
	}
	return entries, nil
}
