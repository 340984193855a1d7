package models

import (
	"time"

	"gorm.io/gorm"
)

// Order sides.
const (
	SideBuy  = "BUY"
	SideSell = "SELL"
)

// Order kinds and varieties.
const (
	OrderKindMarket = "MARKET"
	OrderKindLimit  = "LIMIT"

	VarietyRegular = "REGULAR"
	VarietyAMO     = "AMO"
)

// PendingOrder statuses.
const (
	StatusSubmitted           = "SUBMITTED"
	StatusPendingIDResolution = "PENDING_ID_RESOLUTION"
	StatusPartiallyFilled     = "PARTIALLY_FILLED"
	StatusExecuted            = "EXECUTED"
	StatusRejected            = "REJECTED"
	StatusCancelled           = "CANCELLED"
)

// PendingOrder is an order submitted to the broker whose terminal status is
// not yet known. Exactly one record exists per live broker order; on reaching
// a terminal status the record graduates to trade history and is removed.
type PendingOrder struct {
	gorm.Model
	OrderID           string `gorm:"uniqueIndex;not null"`
	Symbol            string `gorm:"index;not null"`
	InstrumentTicker  string
	Side              string `gorm:"not null"`
	RequestedQuantity int64  `gorm:"not null"`
	ExecutedQuantity  int64
	OrderKind         string
	Variety           string
	Status            string `gorm:"not null"`
	PlacedAt          time.Time
	LastCheckedAt     time.Time
}

// IsTerminal reports whether a status permits no further transitions.
func IsTerminal(status string) bool {
	switch status {
	case StatusExecuted, StatusRejected, StatusCancelled:
		return true
	}
	return false
}

// CanTransition reports whether the pending-order state machine allows
// moving from one status to another. Terminal statuses allow nothing out.
func CanTransition(from, to string) bool {
	if IsTerminal(from) {
		return false
	}
	switch from {
	case StatusSubmitted, StatusPendingIDResolution:
		switch to {
		case StatusSubmitted, StatusPartiallyFilled, StatusExecuted, StatusRejected, StatusCancelled:
			return true
		}
	case StatusPartiallyFilled:
		switch to {
		case StatusPartiallyFilled, StatusExecuted, StatusCancelled:
			return true
		}
	}
	return false
}
