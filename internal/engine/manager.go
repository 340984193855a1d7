package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/PawanKGupta/modular-trade-agent-sub007/internal/broker"
	"github.com/PawanKGupta/modular-trade-agent-sub007/internal/models"
	"github.com/PawanKGupta/modular-trade-agent-sub007/internal/store"
)

// Manager is the order state manager: the single API surface through which
// the tracking registry, the pending order ledger and the trade history
// ledger are mutated, and the component that reconciles local belief against
// the broker's order book. Mutation goes through a per-symbol lock so
// unrelated symbols progress concurrently; network calls are never made
// while a symbol lock is held.
type Manager struct {
	logger   *zap.Logger
	registry *Registry
	ledger   *Ledger
	history  store.HistoryStore
	gateway  broker.Gateway

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex

	targetsMu   sync.RWMutex
	sellTargets map[string]float64
}

// NewManager wires the manager with its stores and gateway.
func NewManager(logger *zap.Logger, registry *Registry, ledger *Ledger, history store.HistoryStore, gateway broker.Gateway) *Manager {
	return &Manager{
		logger:      logger.Named("order-state"),
		registry:    registry,
		ledger:      ledger,
		history:     history,
		gateway:     gateway,
		locks:       make(map[string]*sync.Mutex),
		sellTargets: make(map[string]float64),
	}
}

func (m *Manager) symbolLock(symbol string) *sync.Mutex {
	m.locksMu.Lock()
	defer m.locksMu.Unlock()
	lk, ok := m.locks[symbol]
	if !ok {
		lk = &sync.Mutex{}
		m.locks[symbol] = lk
	}
	return lk
}

// RegisterParams describes a freshly placed order to be brought under
// management. OrderID may be empty when the placement response carried no
// id; PlacedAt anchors the scan fallback's time window.
type RegisterParams struct {
	Symbol              string
	Ticker              string
	Side                string
	OrderID             string
	Quantity            int64
	PreExistingQuantity int64
	Kind                string
	Variety             string
	PlacedAt            time.Time
}

// RegisterOrder brings a placed order under management. The tracking
// increment and the ledger insert are one logical unit: the ledger insert
// failing rolls the increment back with a compensating decrement, so no
// order is ever half tracked. When the order id cannot be resolved even by
// the scan fallback, the returned order id is the UnresolvedOrderID sentinel
// and the symbol stays tracked for later reconciliation.
func (m *Manager) RegisterOrder(ctx context.Context, p RegisterParams) (trackingID, orderID string, err error) {
	if p.Side != models.SideBuy && p.Side != models.SideSell {
		return "", "", fmt.Errorf("unknown order side %q", p.Side)
	}

	orderID = p.OrderID
	resolved := orderID != ""
	if !resolved {
		// Network poll happens before any lock is taken.
		orderID, resolved = m.ledger.ResolveByScan(ctx, m.gateway, p.Symbol, p.Quantity, p.PlacedAt)
	}

	lk := m.symbolLock(p.Symbol)
	lk.Lock()
	defer lk.Unlock()

	incremented := false
	switch p.Side {
	case models.SideBuy:
		trackingID, err = m.registry.AddOrIncrement(p.Symbol, p.Ticker, orderID, p.Quantity, p.PreExistingQuantity)
		if err != nil {
			return "", "", err
		}
		incremented = true
	case models.SideSell:
		ts, gerr := m.registry.Get(p.Symbol)
		if gerr == store.ErrNotFound {
			return "", "", fmt.Errorf("sell order for %s: %w", p.Symbol, ErrScopeViolation)
		}
		if gerr != nil {
			return "", "", gerr
		}
		if hasOpen, herr := m.hasOpenOrder(p.Symbol, models.SideSell); herr != nil {
			return "", "", herr
		} else if hasOpen {
			return "", "", fmt.Errorf("sell order for %s already in flight: %w", p.Symbol, ErrDuplicateOrder)
		}
		trackingID = ts.TrackingID
	}

	if resolved {
		_, err = m.ledger.Add(orderID, p.Symbol, p.Ticker, p.Side, p.Quantity, p.Kind, p.Variety)
	} else {
		_, err = m.ledger.AddPlaceholder(trackingID, p.Symbol, p.Ticker, p.Side, p.Quantity, p.Kind, p.Variety)
	}
	if err != nil {
		if incremented {
			// Compensating action for the two-phase write.
			m.logger.Warn("Rolling back tracking increment after ledger failure",
				zap.String("symbol", p.Symbol),
				zap.Int64("quantity", p.Quantity),
				zap.Error(err),
			)
			if derr := m.registry.Decrement(p.Symbol, p.Quantity); derr != nil {
				m.logger.Error("Compensating decrement failed; stores inconsistent until next sync",
					zap.String("symbol", p.Symbol),
					zap.Error(derr),
				)
			}
		}
		return "", "", err
	}

	if !resolved {
		m.logger.Warn("Order registered without broker id; will resolve during reconciliation",
			zap.String("symbol", p.Symbol),
			zap.String("tracking_id", trackingID),
		)
		return trackingID, UnresolvedOrderID, nil
	}
	return trackingID, orderID, nil
}

func (m *Manager) hasOpenOrder(symbol, side string) (bool, error) {
	pending, err := m.ledger.ListPending()
	if err != nil {
		return false, err
	}
	for _, po := range pending {
		if po.Symbol == symbol && po.Side == side {
			return true, nil
		}
	}
	return false, nil
}

// MarkExecuted records a full fill: terminal ledger transition, one trade
// history entry, and the tracking-side effect of the fill. SELL fills reduce
// the tracked quantity; BUY fills confirm the increment applied at
// registration.
func (m *Manager) MarkExecuted(orderID string, executedQty int64, executionPrice float64) error {
	po, err := m.ledger.Get(orderID)
	if err != nil {
		return fmt.Errorf("mark executed %s: %w", orderID, err)
	}
	if po.Status == models.StatusPendingIDResolution {
		// A fill cannot target an order whose broker id is still unknown.
		return fmt.Errorf("mark executed %s: %w", orderID, ErrUnresolvedOrderID)
	}

	lk := m.symbolLock(po.Symbol)
	lk.Lock()
	defer lk.Unlock()

	return m.finalizeExecution(po, executedQty, executionPrice, true)
}

// finalizeExecution graduates a filled order out of the pending ledger.
// Caller holds the symbol lock. appendHistory is false when a history entry
// for the fill already exists (broker purged the order after an earlier
// recorded fill).
func (m *Manager) finalizeExecution(po *models.PendingOrder, executedQty int64, price float64, appendHistory bool) error {
	if executedQty <= 0 {
		executedQty = po.RequestedQuantity
	}

	if po.Status == models.StatusExecuted {
		// A previous pass wrote the terminal status but failed before the
		// record migrated out of the ledger; resume from there.
		if po.ExecutedQuantity > 0 {
			executedQty = po.ExecutedQuantity
		}
	} else if _, err := m.ledger.UpdateStatus(po.OrderID, models.StatusExecuted, executedQty); err != nil {
		return err
	}

	if appendHistory {
		if _, err := m.history.FindHistoryByOrderID(po.OrderID); err == nil {
			appendHistory = false
		} else if err != store.ErrNotFound {
			return fmt.Errorf("failed to check trade history for %s: %w", po.OrderID, err)
		}
	}
	if appendHistory {
		entry := &models.TradeHistoryEntry{
			Symbol:        po.Symbol,
			Side:          po.Side,
			Quantity:      executedQty,
			Price:         price,
			OrderID:       po.OrderID,
			ExecutedAt:    time.Now(),
			OutcomeReason: models.OutcomeExecuted,
		}
		if err := m.history.AppendHistory(entry); err != nil {
			return fmt.Errorf("failed to append trade history for %s: %w", po.OrderID, err)
		}
	}

	if po.Side == models.SideSell {
		if err := m.registry.Decrement(po.Symbol, executedQty); err != nil {
			return err
		}
		if !m.registry.IsTracked(po.Symbol) {
			m.clearSellTarget(po.Symbol)
		}
	} else {
		ts, err := m.registry.Get(po.Symbol)
		if err == nil && ts.InitialOrderID == po.OrderID {
			if err := m.registry.SetInitialOrderID(po.Symbol, ""); err != nil {
				return err
			}
		}
	}

	if err := m.ledger.Remove(po.OrderID); err != nil {
		return fmt.Errorf("failed to remove executed order %s: %w", po.OrderID, err)
	}
	m.logger.Info("Order executed",
		zap.String("order_id", po.OrderID),
		zap.String("symbol", po.Symbol),
		zap.String("side", po.Side),
		zap.Int64("executed_quantity", executedQty),
		zap.Float64("price", price),
	)
	return nil
}

// reverseRegistration unwinds a rejected or cancelled order. Caller holds
// the symbol lock. The optimistic BUY increment is reversed for the unfilled
// portion; a partially filled SELL still reduces tracking by what did fill.
func (m *Manager) reverseRegistration(po *models.PendingOrder, filledQty int64, outcome string) error {
	status := models.StatusRejected
	if outcome == models.OutcomeCancelled {
		status = models.StatusCancelled
	}
	if _, err := m.ledger.UpdateStatus(po.OrderID, status, filledQty); err != nil {
		return err
	}

	entry := &models.TradeHistoryEntry{
		Symbol:        po.Symbol,
		Side:          po.Side,
		Quantity:      po.RequestedQuantity - filledQty,
		OrderID:       po.OrderID,
		ExecutedAt:    time.Now(),
		OutcomeReason: outcome,
	}
	if err := m.history.AppendHistory(entry); err != nil {
		return fmt.Errorf("failed to append trade history for %s: %w", po.OrderID, err)
	}

	if po.Side == models.SideBuy {
		if err := m.registry.Decrement(po.Symbol, po.RequestedQuantity-filledQty); err != nil {
			return err
		}
	} else if filledQty > 0 {
		if err := m.registry.Decrement(po.Symbol, filledQty); err != nil {
			return err
		}
	}

	ts, err := m.registry.Get(po.Symbol)
	if err == nil && ts.InitialOrderID == po.OrderID {
		if err := m.registry.SetInitialOrderID(po.Symbol, ""); err != nil {
			return err
		}
	}

	if err := m.ledger.Remove(po.OrderID); err != nil {
		return fmt.Errorf("failed to remove %s order %s: %w", outcome, po.OrderID, err)
	}
	m.logger.Info("Order registration reversed",
		zap.String("order_id", po.OrderID),
		zap.String("symbol", po.Symbol),
		zap.String("outcome", outcome),
		zap.Int64("filled_quantity", filledQty),
	)
	return nil
}

// RemoveFromTracking drops a symbol from the tracking scope entirely and
// records the outcome in trade history. Used for manual exits and operator
// intervention; rejected and cancelled orders are unwound during
// reconciliation with the order's own quantities.
func (m *Manager) RemoveFromTracking(symbol, reason string) error {
	lk := m.symbolLock(symbol)
	lk.Lock()
	defer lk.Unlock()

	ts, err := m.registry.Get(symbol)
	if err == store.ErrNotFound {
		return fmt.Errorf("remove %s: %w", symbol, ErrScopeViolation)
	}
	if err != nil {
		return err
	}

	entry := &models.TradeHistoryEntry{
		Symbol:        symbol,
		Side:          models.SideSell,
		Quantity:      ts.TrackedQuantity,
		OrderID:       ts.InitialOrderID,
		ExecutedAt:    time.Now(),
		OutcomeReason: reason,
	}
	if err := m.history.AppendHistory(entry); err != nil {
		return fmt.Errorf("failed to append trade history for %s: %w", symbol, err)
	}

	if err := m.registry.Remove(symbol); err != nil {
		return fmt.Errorf("failed to remove tracking for %s: %w", symbol, err)
	}
	m.clearSellTarget(symbol)
	m.logger.Info("Symbol removed from tracking",
		zap.String("symbol", symbol),
		zap.String("reason", reason),
		zap.Int64("tracked_quantity", ts.TrackedQuantity),
	)
	return nil
}

// UpdateSellTargetPrice sets the monitoring sell target for a tracked
// symbol. This is derived in-memory state; it does not touch the ledgers.
func (m *Manager) UpdateSellTargetPrice(symbol string, newPrice float64) error {
	if !m.registry.IsTracked(symbol) {
		return fmt.Errorf("sell target for %s: %w", symbol, ErrScopeViolation)
	}
	m.targetsMu.Lock()
	defer m.targetsMu.Unlock()
	m.sellTargets[symbol] = newPrice
	return nil
}

// SellTargetPrice returns the monitoring sell target, if set.
func (m *Manager) SellTargetPrice(symbol string) (float64, bool) {
	m.targetsMu.RLock()
	defer m.targetsMu.RUnlock()
	price, ok := m.sellTargets[symbol]
	return price, ok
}

func (m *Manager) clearSellTarget(symbol string) {
	m.targetsMu.Lock()
	defer m.targetsMu.Unlock()
	delete(m.sellTargets, symbol)
}

// GetActiveSellOrders returns a read-only snapshot of open sell orders.
// Safe to call frequently from monitoring.
func (m *Manager) GetActiveSellOrders() ([]models.PendingOrder, error) {
	pending, err := m.ledger.ListPending()
	if err != nil {
		return nil, err
	}
	sells := make([]models.PendingOrder, 0, len(pending))
	for _, po := range pending {
		if po.Side == models.SideSell {
			sells = append(sells, po)
		}
	}
	return sells, nil
}

// ListTracked returns a snapshot of the tracking scope.
func (m *Manager) ListTracked() ([]models.TrackedSymbol, error) {
	return m.registry.ListTracked()
}

// ListPending returns a snapshot of the pending order ledger.
func (m *Manager) ListPending() ([]models.PendingOrder, error) {
	return m.ledger.ListPending()
}

// IsTracked reports whether the engine currently manages the symbol.
func (m *Manager) IsTracked(symbol string) bool {
	return m.registry.IsTracked(symbol)
}

// HasStalePending reports whether any pending order has not been checked
// against the broker within the given threshold. Startup runs a sync before
// placing new orders when this is true.
func (m *Manager) HasStalePending(threshold time.Duration) bool {
	pending, err := m.ledger.ListPending()
	if err != nil {
		return true
	}
	cutoff := time.Now().Add(-threshold)
	for _, po := range pending {
		if po.LastCheckedAt.Before(cutoff) {
			return true
		}
	}
	return false
}
