package engine

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/PawanKGupta/modular-trade-agent-sub007/internal/broker"
	"github.com/PawanKGupta/modular-trade-agent-sub007/internal/models"
	"github.com/PawanKGupta/modular-trade-agent-sub007/internal/store"
)

// idExtractor is one strategy for pulling an order id out of a broker
// placement response. Strategies are pure; the first match wins.
type idExtractor func(raw map[string]any) (string, bool)

// Broker placement responses are not uniform across order paths, so the id
// field is tried in priority order. New response shapes get a new entry
// here, nothing else changes.
var idExtractors = []idExtractor{
	field("order_id"),
	field("orderId"),
	field("orderID"),
	field("nOrdNo"),
	field("id"),
	nested("data", "order_id"),
	nested("data", "orderId"),
}

func field(key string) idExtractor {
	return func(raw map[string]any) (string, bool) {
		return coerceID(raw[key])
	}
}

func nested(outer, key string) idExtractor {
	return func(raw map[string]any) (string, bool) {
		inner, ok := raw[outer].(map[string]any)
		if !ok {
			return "", false
		}
		return coerceID(inner[key])
	}
}

// coerceID accepts the string and numeric id encodings brokers use.
func coerceID(v any) (string, bool) {
	switch id := v.(type) {
	case string:
		return id, id != ""
	case float64:
		return strconv.FormatInt(int64(id), 10), true
	case int64:
		return strconv.FormatInt(id, 10), true
	}
	return "", false
}

// ExtractOrderID tries each known response shape in priority order and
// returns the first order id found.
func ExtractOrderID(resp *broker.PlaceOrderResponse) (string, bool) {
	if resp == nil || resp.Raw == nil {
		return "", false
	}
	for _, extract := range idExtractors {
		if id, ok := extract(resp.Raw); ok {
			return id, true
		}
	}
	return "", false
}

// Ledger is the pending order ledger: the durable record of orders submitted
// to the broker whose terminal status is not yet known.
type Ledger struct {
	mu               sync.Mutex
	store            store.PendingStore
	logger           *zap.Logger
	scanTimeout      time.Duration
	scanPollInterval time.Duration
}

// NewLedger creates a ledger over the given store. scanTimeout bounds the
// order-id resolution fallback; scanPollInterval is the gap between polls.
func NewLedger(st store.PendingStore, logger *zap.Logger, scanTimeout, scanPollInterval time.Duration) *Ledger {
	return &Ledger{
		store:            st,
		logger:           logger.Named("pending-ledger"),
		scanTimeout:      scanTimeout,
		scanPollInterval: scanPollInterval,
	}
}

// Add inserts a new pending order in status SUBMITTED. Registering an order
// id twice is a bug or race, surfaced as ErrDuplicateOrder.
func (l *Ledger) Add(orderID, symbol, ticker, side string, qty int64, kind, variety string) (*models.PendingOrder, error) {
	return l.insert(orderID, symbol, ticker, side, qty, kind, variety, models.StatusSubmitted)
}

// AddPlaceholder inserts a pending order whose broker id is not yet known,
// keyed by a placeholder derived from the tracking id. Reconciliation
// retries resolution by symbol, quantity and time window.
func (l *Ledger) AddPlaceholder(trackingID, symbol, ticker, side string, qty int64, kind, variety string) (*models.PendingOrder, error) {
	return l.insert(placeholderID(trackingID), symbol, ticker, side, qty, kind, variety, models.StatusPendingIDResolution)
}

func placeholderID(trackingID string) string {
	return UnresolvedOrderID + "-" + trackingID
}

func (l *Ledger) insert(orderID, symbol, ticker, side string, qty int64, kind, variety, status string) (*models.PendingOrder, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.store.GetPending(orderID); err == nil {
		return nil, fmt.Errorf("order %s: %w", orderID, ErrDuplicateOrder)
	} else if err != store.ErrNotFound {
		return nil, fmt.Errorf("failed to check pending order %s: %w", orderID, err)
	}

	now := time.Now()
	po := &models.PendingOrder{
		OrderID:           orderID,
		Symbol:            symbol,
		InstrumentTicker:  ticker,
		Side:              side,
		RequestedQuantity: qty,
		OrderKind:         kind,
		Variety:           variety,
		Status:            status,
		PlacedAt:          now,
		LastCheckedAt:     now,
	}
	if err := l.store.PutPending(po); err != nil {
		return nil, fmt.Errorf("failed to insert pending order %s: %w", orderID, err)
	}
	l.logger.Info("Pending order recorded",
		zap.String("order_id", orderID),
		zap.String("symbol", symbol),
		zap.String("side", side),
		zap.String("status", status),
		zap.Int64("quantity", qty),
	)
	return po, nil
}

// ResolveByScan polls the broker order book for an order matching symbol and
// quantity placed after the given time. It exists because some placement
// paths return no order id synchronously; without it such orders would be
// untrackable. A timeout is not an error: the order is placed but
// unconfirmed, and callers retry on a later reconciliation pass.
func (l *Ledger) ResolveByScan(ctx context.Context, gw broker.Gateway, symbol string, qty int64, after time.Time) (string, bool) {
	deadline := time.Now().Add(l.scanTimeout)

	for {
		book, err := gw.GetOrderBook(ctx)
		if err != nil {
			l.logger.Warn("Order book fetch failed during id scan",
				zap.String("symbol", symbol),
				zap.Error(err),
			)
		} else if known, kerr := l.knownOrderIDs(); kerr != nil {
			l.logger.Warn("Could not snapshot ledger during id scan", zap.Error(kerr))
		} else {
			if id, ok := MatchOrderInBook(book, symbol, qty, after, known); ok {
				l.logger.Info("Resolved order id by scan",
					zap.String("symbol", symbol),
					zap.String("order_id", id),
				)
				return id, true
			}
		}

		if time.Now().After(deadline) {
			l.logger.Warn("Order id scan timed out",
				zap.String("symbol", symbol),
				zap.Int64("quantity", qty),
				zap.Duration("timeout", l.scanTimeout),
			)
			return "", false
		}

		select {
		case <-time.After(l.scanPollInterval):
		case <-ctx.Done():
			return "", false
		}
	}
}

// MatchOrderInBook finds an order for symbol with the given quantity placed
// at or after the given time. Ids in exclude are skipped: a book order that
// already has its own ledger record can never be the match for an
// unidentified placement. Pure; shared by the scan fallback and the
// reconciliation retry path.
func MatchOrderInBook(book []broker.BrokerOrder, symbol string, qty int64, after time.Time, exclude map[string]struct{}) (string, bool) {
	for _, bo := range book {
		if _, taken := exclude[bo.OrderID]; taken {
			continue
		}
		if bo.Symbol == symbol && bo.Quantity == qty && !bo.PlacedAt().Before(after) {
			return bo.OrderID, true
		}
	}
	return "", false
}

// knownOrderIDs snapshots the set of order ids already in the ledger.
func (l *Ledger) knownOrderIDs() (map[string]struct{}, error) {
	pending, err := l.ListPending()
	if err != nil {
		return nil, err
	}
	known := make(map[string]struct{}, len(pending))
	for _, po := range pending {
		known[po.OrderID] = struct{}{}
	}
	return known, nil
}

// UpdateStatus transitions a pending order through the state machine. A
// transition out of a terminal status fails with ErrInvalidTransition and
// leaves the record unchanged; this protects against stale or duplicate
// broker callbacks. On reaching a terminal status the caller migrates the
// record to trade history and removes it here.
func (l *Ledger) UpdateStatus(orderID, newStatus string, executedQty int64) (*models.PendingOrder, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	po, err := l.store.GetPending(orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load pending order %s: %w", orderID, err)
	}

	if !models.CanTransition(po.Status, newStatus) {
		l.logger.Error("Rejected status transition",
			zap.String("order_id", orderID),
			zap.String("from", po.Status),
			zap.String("to", newStatus),
		)
		return nil, fmt.Errorf("order %s: %s -> %s: %w", orderID, po.Status, newStatus, ErrInvalidTransition)
	}
	if executedQty > po.RequestedQuantity {
		return nil, fmt.Errorf("order %s: executed %d exceeds requested %d: %w",
			orderID, executedQty, po.RequestedQuantity, ErrInvalidTransition)
	}

	po.Status = newStatus
	if executedQty > po.ExecutedQuantity {
		po.ExecutedQuantity = executedQty
	}
	po.LastCheckedAt = time.Now()
	if err := l.store.PutPending(po); err != nil {
		return nil, fmt.Errorf("failed to update pending order %s: %w", orderID, err)
	}
	return po, nil
}

// Get returns the pending order, or store.ErrNotFound.
func (l *Ledger) Get(orderID string) (*models.PendingOrder, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.store.GetPending(orderID)
}

// Remove deletes a pending order after it graduated to trade history.
func (l *Ledger) Remove(orderID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.store.DeletePending(orderID)
}

// ListPending returns all orders without a known terminal status.
func (l *Ledger) ListPending() ([]models.PendingOrder, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.store.ListPending()
}
