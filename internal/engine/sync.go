package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/PawanKGupta/modular-trade-agent-sub007/internal/broker"
	"github.com/PawanKGupta/modular-trade-agent-sub007/internal/models"
	"github.com/PawanKGupta/modular-trade-agent-sub007/internal/store"
)

// SyncSummary reports the outcome of one reconciliation pass.
type SyncSummary struct {
	Checked     int `json:"checked"`
	Executed    int `json:"executed"`
	Rejected    int `json:"rejected"`
	Cancelled   int `json:"cancelled"`
	ManualExits int `json:"manual_exits"`
	Unresolved  int `json:"unresolved"`
}

// SyncWithBroker reconciles local order state against the broker's order
// book and holdings. The book and holdings are fetched once, before any lock
// is taken; a gateway failure leaves all local state untouched and returns a
// retryable error. The pass is idempotent: running it twice with no
// broker-side change produces the same local state.
func (m *Manager) SyncWithBroker(ctx context.Context) (SyncSummary, error) {
	var summary SyncSummary

	book, err := m.gateway.GetOrderBook(ctx)
	if err != nil {
		return summary, fmt.Errorf("sync aborted: %w", err)
	}
	holdings, err := m.gateway.GetHoldings(ctx)
	if err != nil {
		return summary, fmt.Errorf("sync aborted: %w", err)
	}

	bookByID := make(map[string]broker.BrokerOrder, len(book))
	for _, bo := range book {
		bookByID[bo.OrderID] = bo
	}

	pending, err := m.ledger.ListPending()
	if err != nil {
		return summary, err
	}

	for i := range pending {
		po := pending[i]
		summary.Checked++
		if err := m.syncOrder(&po, book, bookByID, &summary); err != nil {
			m.logger.Error("Failed to reconcile order",
				zap.String("order_id", po.OrderID),
				zap.String("symbol", po.Symbol),
				zap.Error(err),
			)
		}
	}

	if err := m.detectManualExits(holdings, &summary); err != nil {
		return summary, err
	}

	m.logger.Info("Reconciliation pass complete",
		zap.Int("checked", summary.Checked),
		zap.Int("executed", summary.Executed),
		zap.Int("rejected", summary.Rejected),
		zap.Int("cancelled", summary.Cancelled),
		zap.Int("manual_exits", summary.ManualExits),
		zap.Int("unresolved", summary.Unresolved),
	)
	return summary, nil
}

// syncOrder reconciles a single pending order against the fetched book.
func (m *Manager) syncOrder(po *models.PendingOrder, book []broker.BrokerOrder, bookByID map[string]broker.BrokerOrder, summary *SyncSummary) error {
	lk := m.symbolLock(po.Symbol)
	lk.Lock()
	defer lk.Unlock()

	if po.Status == models.StatusPendingIDResolution {
		resolved, err := m.resolvePlaceholder(po, book)
		if err != nil {
			return err
		}
		if resolved == nil {
			summary.Unresolved++
			return nil
		}
		po = resolved
	}

	bo, inBook := bookByID[po.OrderID]
	if !inBook {
		return m.reconcileMissing(po, summary)
	}

	switch {
	case bo.Status == broker.OrderStatusRejected:
		summary.Rejected++
		return m.reverseRegistration(po, bo.FilledQuantity, models.OutcomeRejected)
	case bo.Status == broker.OrderStatusCancelled:
		summary.Cancelled++
		return m.reverseRegistration(po, bo.FilledQuantity, models.OutcomeCancelled)
	case bo.Status == broker.OrderStatusComplete || bo.FilledQuantity >= po.RequestedQuantity:
		summary.Executed++
		return m.finalizeExecution(po, bo.FilledQuantity, bo.AveragePrice, true)
	case bo.FilledQuantity > 0:
		_, err := m.ledger.UpdateStatus(po.OrderID, models.StatusPartiallyFilled, bo.FilledQuantity)
		return err
	default:
		// Still open, no progress; refresh the check timestamp only.
		_, err := m.ledger.UpdateStatus(po.OrderID, po.Status, po.ExecutedQuantity)
		return err
	}
}

// resolvePlaceholder retries order-id resolution for an order registered
// without a broker id, matching by symbol, quantity and time window. Book
// orders that already have their own ledger record are never candidates.
// Returns nil when no match appears; the order stays tracked.
func (m *Manager) resolvePlaceholder(po *models.PendingOrder, book []broker.BrokerOrder) (*models.PendingOrder, error) {
	known, err := m.ledger.knownOrderIDs()
	if err != nil {
		return nil, err
	}
	delete(known, po.OrderID)

	id, ok := MatchOrderInBook(book, po.Symbol, po.RequestedQuantity, po.PlacedAt, known)
	if !ok {
		m.logger.Warn("Order id still unresolved",
			zap.String("symbol", po.Symbol),
			zap.Int64("quantity", po.RequestedQuantity),
		)
		return nil, nil
	}

	// Insert the resolved record before deleting the placeholder: a failure
	// here must not lose the retry context.
	resolved, err := m.ledger.Add(id, po.Symbol, po.InstrumentTicker, po.Side, po.RequestedQuantity, po.OrderKind, po.Variety)
	if err != nil {
		return nil, err
	}
	if err := m.ledger.Remove(po.OrderID); err != nil {
		return nil, err
	}
	ts, err := m.registry.Get(po.Symbol)
	if err == nil && (ts.InitialOrderID == "" || ts.InitialOrderID == po.OrderID) {
		if err := m.registry.SetInitialOrderID(po.Symbol, id); err != nil {
			return nil, err
		}
	}
	m.logger.Info("Resolved order id during reconciliation",
		zap.String("symbol", po.Symbol),
		zap.String("order_id", id),
	)
	return resolved, nil
}

// reconcileMissing handles an order that is open locally but absent from
// the live book. The broker purges filled orders from the book, so a prior
// fill in trade history means executed. With no fill record either, the
// state is ambiguous: the order stays open and tracked (fail closed) and is
// surfaced for operator review, never guessed as executed or cancelled.
func (m *Manager) reconcileMissing(po *models.PendingOrder, summary *SyncSummary) error {
	entry, err := m.history.FindHistoryByOrderID(po.OrderID)
	if err == nil && entry.OutcomeReason == models.OutcomeExecuted {
		summary.Executed++
		return m.finalizeExecution(po, entry.Quantity, entry.Price, false)
	}
	if err != nil && err != store.ErrNotFound {
		return err
	}

	if po.Status == models.StatusExecuted {
		// Terminal locally but never migrated: an earlier pass failed
		// between the status write and the history append. The fill price
		// was lost with that failure; resume with what the ledger kept.
		summary.Executed++
		return m.finalizeExecution(po, po.ExecutedQuantity, 0, true)
	}

	summary.Unresolved++
	m.logger.Warn("Order missing from broker book with no fill record; keeping open for review",
		zap.String("order_id", po.OrderID),
		zap.String("symbol", po.Symbol),
	)
	return nil
}

// detectManualExits finds tracked symbols with no open order whose broker
// holdings dropped below the tracked quantity. The position was closed
// outside this engine, so it is removed from tracking with a distinct
// reason: automated re-entry logic must not mistake it for its own exit.
func (m *Manager) detectManualExits(holdings []broker.Holding, summary *SyncSummary) error {
	held := make(map[string]int64, len(holdings))
	for _, h := range holdings {
		held[h.Symbol] = h.Quantity
	}

	remaining, err := m.ledger.ListPending()
	if err != nil {
		return err
	}
	openSymbols := make(map[string]struct{}, len(remaining))
	for _, po := range remaining {
		openSymbols[po.Symbol] = struct{}{}
	}

	tracked, err := m.registry.ListTracked()
	if err != nil {
		return err
	}
	for _, ts := range tracked {
		if _, open := openSymbols[ts.Symbol]; open {
			continue
		}
		engineHeld := held[ts.Symbol] - ts.PreExistingQuantity
		if engineHeld < 0 {
			engineHeld = 0
		}
		if engineHeld >= ts.TrackedQuantity {
			continue
		}
		m.logger.Warn("Manual exit detected",
			zap.String("symbol", ts.Symbol),
			zap.Int64("tracked_quantity", ts.TrackedQuantity),
			zap.Int64("held_quantity", held[ts.Symbol]),
		)
		if err := m.RemoveFromTracking(ts.Symbol, models.OutcomeManualExit); err != nil {
			return err
		}
		summary.ManualExits++
	}
	return nil
}
