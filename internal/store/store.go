// Package store provides the durable record sets behind the order state
// engine: the tracked-symbol registry, the pending-order ledger, and the
// append-only trade history. The engine depends only on the interfaces here;
// production uses the gorm/sqlite implementation, and a JSON-file
// implementation exists for single-file deployments.
package store

import (
	"errors"
	"time"

	"github.com/PawanKGupta/modular-trade-agent-sub007/internal/models"
)

// ErrNotFound is returned when a keyed record does not exist.
var ErrNotFound = errors.New("record not found")

// RegistryStore persists TrackedSymbol records keyed by symbol.
type RegistryStore interface {
	GetTracked(symbol string) (*models.TrackedSymbol, error)
	PutTracked(ts *models.TrackedSymbol) error
	DeleteTracked(symbol string) error
	ListTracked() ([]models.TrackedSymbol, error)
}

// PendingStore persists PendingOrder records keyed by order id.
type PendingStore interface {
	GetPending(orderID string) (*models.PendingOrder, error)
	PutPending(po *models.PendingOrder) error
	DeletePending(orderID string) error
	ListPending() ([]models.PendingOrder, error)
}

// HistoryStore is the append-only trade history ledger. The engine appends
// and queries; it never updates or deletes entries.
type HistoryStore interface {
	AppendHistory(entry *models.TradeHistoryEntry) error
	FindHistoryByOrderID(orderID string) (*models.TradeHistoryEntry, error)
	ListHistoryBySymbol(symbol string, since time.Time) ([]models.TradeHistoryEntry, error)
}

// Store bundles the three record sets. Implementations back them with a
// shared medium (one database, one file) but the engine treats them as
// independent stores with no shared transaction.
type Store interface {
	RegistryStore
	PendingStore
	HistoryStore
}
