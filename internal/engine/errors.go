// Package engine implements the order lifecycle and state reconciliation
// core: the tracking scope registry, the pending order ledger, and the order
// state manager that keeps both consistent with the trade history ledger and
// the broker's order book.
package engine

import "errors"

var (
	// ErrDuplicateOrder is returned when an order id is registered twice.
	// This indicates a local bug or race and is never retried.
	ErrDuplicateOrder = errors.New("duplicate order id")

	// ErrInvalidTransition is returned when a status update targets a
	// terminal pending order. Stale or duplicate broker callbacks land
	// here; the record is left unchanged.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrUnresolvedOrderID marks an order placed but not yet identified;
	// callers retry resolution on the next reconciliation pass.
	ErrUnresolvedOrderID = errors.New("order id unresolved")

	// ErrScopeViolation is returned when a caller mutates tracking state
	// for a symbol the engine never registered. Never auto-corrected.
	ErrScopeViolation = errors.New("symbol outside tracking scope")
)

// UnresolvedOrderID is the sentinel order id returned by RegisterOrder when
// neither synchronous extraction nor the scan fallback produced a broker id.
// The symbol stays tracked; reconciliation retries resolution later.
const UnresolvedOrderID = "UNRESOLVED"
