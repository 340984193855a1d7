package models

import (
	"time"

	"gorm.io/gorm"
)

// Outcome reasons recorded in trade history.
const (
	OutcomeExecuted   = "EXECUTED"
	OutcomeRejected   = "REJECTED"
	OutcomeCancelled  = "CANCELLED"
	OutcomeManualExit = "MANUAL_EXIT"
)

// TradeHistoryEntry is a completed order outcome. The history ledger is
// append-only; the engine writes entries and queries them during
// reconciliation but never updates or deletes them.
type TradeHistoryEntry struct {
	gorm.Model
	Symbol        string `gorm:"index"`
	Side          string
	Quantity      int64
	Price         float64
	OrderID       string `gorm:"index"`
	ExecutedAt    time.Time
	OutcomeReason string
}
