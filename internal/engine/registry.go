package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/PawanKGupta/modular-trade-agent-sub007/internal/models"
	"github.com/PawanKGupta/modular-trade-agent-sub007/internal/store"
)

// Registry is the tracking scope: the durable set of symbols the engine has
// decided to actively manage, separate from positions the user holds for
// unrelated reasons. A symbol is tracked iff its tracked quantity is above
// zero; decrementing to zero removes the record outright.
type Registry struct {
	mu     sync.Mutex
	store  store.RegistryStore
	logger *zap.Logger
}

// NewRegistry creates a registry over the given store.
func NewRegistry(st store.RegistryStore, logger *zap.Logger) *Registry {
	return &Registry{
		store:  st,
		logger: logger.Named("registry"),
	}
}

// AddOrIncrement creates a tracked-symbol record or increments the tracked
// quantity of an existing one. Callers pass the quantity delta, not the new
// total. Returns the record's tracking id.
func (r *Registry) AddOrIncrement(symbol, ticker, orderID string, qty, preExistingQty int64) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	ts, err := r.store.GetTracked(symbol)
	if err == nil {
		ts.TrackedQuantity += qty
		ts.LastUpdatedAt = now
		if err := r.store.PutTracked(ts); err != nil {
			return "", fmt.Errorf("failed to increment tracking for %s: %w", symbol, err)
		}
		r.logger.Info("Incremented tracked quantity",
			zap.String("symbol", symbol),
			zap.Int64("delta", qty),
			zap.Int64("tracked_quantity", ts.TrackedQuantity),
		)
		return ts.TrackingID, nil
	}
	if err != store.ErrNotFound {
		return "", fmt.Errorf("failed to load tracking for %s: %w", symbol, err)
	}

	ts = &models.TrackedSymbol{
		Symbol:              symbol,
		InstrumentTicker:    ticker,
		TrackingID:          uuid.NewString(),
		TrackedQuantity:     qty,
		PreExistingQuantity: preExistingQty,
		InitialOrderID:      orderID,
		LastUpdatedAt:       now,
	}
	if err := r.store.PutTracked(ts); err != nil {
		return "", fmt.Errorf("failed to create tracking for %s: %w", symbol, err)
	}
	r.logger.Info("Started tracking symbol",
		zap.String("symbol", symbol),
		zap.String("tracking_id", ts.TrackingID),
		zap.Int64("tracked_quantity", qty),
		zap.Int64("pre_existing_quantity", preExistingQty),
	)
	return ts.TrackingID, nil
}

// IsTracked reports whether the engine currently manages the symbol.
func (r *Registry) IsTracked(symbol string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	ts, err := r.store.GetTracked(symbol)
	return err == nil && ts.TrackedQuantity > 0
}

// Decrement reduces the tracked quantity; at zero or below the record is
// deleted. An untracked symbol is a logged no-op, because broker-side events
// can race with local bookkeeping.
func (r *Registry) Decrement(symbol string, qty int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ts, err := r.store.GetTracked(symbol)
	if err == store.ErrNotFound {
		r.logger.Warn("Decrement for untracked symbol ignored",
			zap.String("symbol", symbol),
			zap.Int64("quantity", qty),
		)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load tracking for %s: %w", symbol, err)
	}

	ts.TrackedQuantity -= qty
	ts.LastUpdatedAt = time.Now()
	if ts.TrackedQuantity <= 0 {
		if err := r.store.DeleteTracked(symbol); err != nil {
			return fmt.Errorf("failed to remove tracking for %s: %w", symbol, err)
		}
		r.logger.Info("Stopped tracking symbol", zap.String("symbol", symbol))
		return nil
	}

	if err := r.store.PutTracked(ts); err != nil {
		return fmt.Errorf("failed to decrement tracking for %s: %w", symbol, err)
	}
	r.logger.Info("Decremented tracked quantity",
		zap.String("symbol", symbol),
		zap.Int64("delta", qty),
		zap.Int64("tracked_quantity", ts.TrackedQuantity),
	)
	return nil
}

// Get returns the tracked-symbol record, or store.ErrNotFound.
func (r *Registry) Get(symbol string) (*models.TrackedSymbol, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.GetTracked(symbol)
}

// Remove deletes the tracked-symbol record outright.
func (r *Registry) Remove(symbol string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.DeleteTracked(symbol)
}

// SetInitialOrderID rewrites the order id that started tracking; used when
// resolution finds the real broker id, and cleared once the order resolves.
func (r *Registry) SetInitialOrderID(symbol, orderID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ts, err := r.store.GetTracked(symbol)
	if err != nil {
		return fmt.Errorf("failed to load tracking for %s: %w", symbol, err)
	}
	ts.InitialOrderID = orderID
	ts.LastUpdatedAt = time.Now()
	return r.store.PutTracked(ts)
}

// ListTracked returns a consistent snapshot of all tracked symbols.
func (r *Registry) ListTracked() ([]models.TrackedSymbol, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.ListTracked()
}

// TrackedSet returns the set of tracked symbol names.
func (r *Registry) TrackedSet() (map[string]struct{}, error) {
	all, err := r.ListTracked()
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(all))
	for _, ts := range all {
		if ts.TrackedQuantity > 0 {
			set[ts.Symbol] = struct{}{}
		}
	}
	return set, nil
}
