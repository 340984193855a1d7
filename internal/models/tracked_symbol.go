package models

import (
	"time"

	"gorm.io/gorm"
)

// TrackedSymbol is a symbol the engine has taken responsibility for.
// A symbol is tracked iff TrackedQuantity > 0; when the quantity reaches
// zero the record is deleted outright, not soft-deleted, so the next order
// for the symbol starts from a fresh record.
type TrackedSymbol struct {
	gorm.Model
	Symbol              string `gorm:"uniqueIndex;not null"`
	InstrumentTicker    string
	TrackingID          string `gorm:"not null"`
	TrackedQuantity     int64  `gorm:"not null"`
	PreExistingQuantity int64
	// InitialOrderID is the order that started tracking; cleared once the
	// order resolves.
	InitialOrderID string
	LastUpdatedAt  time.Time
}
