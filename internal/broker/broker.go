// Package broker defines the Gateway interface to the brokerage and its
// REST implementation. The broker is the only source of ground truth for
// execution state; everything it returns passes through mapping code rather
// than being trusted verbatim.
package broker

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable marks a gateway call that failed for network or timeout
// reasons. Callers treat it as transient and leave local state unchanged.
var ErrUnavailable = errors.New("broker gateway unavailable")

// Broker-side order statuses as reported in the order book.
const (
	OrderStatusOpen      = "OPEN"
	OrderStatusComplete  = "COMPLETE"
	OrderStatusRejected  = "REJECTED"
	OrderStatusCancelled = "CANCELLED"
)

// OrderSpec describes an order to be placed.
type OrderSpec struct {
	Symbol   string
	Ticker   string
	Side     string
	Quantity int64
	Kind     string
	Variety  string
	Price    float64
}

// PlaceOrderResponse carries the decoded placement response. The broker's
// response shape is not uniform across placement paths, so the raw decoded
// body is kept for order-id extraction.
type PlaceOrderResponse struct {
	Raw map[string]any
}

// BrokerOrder is one entry of the broker's live order book.
type BrokerOrder struct {
	OrderID        string  `json:"order_id"`
	Symbol         string  `json:"symbol"`
	Side           string  `json:"side"`
	Quantity       int64   `json:"quantity"`
	FilledQuantity int64   `json:"filled_quantity"`
	Status         string  `json:"status"`
	AveragePrice   float64 `json:"average_price"`
	PlacedAtMilli  int64   `json:"placed_at"`
}

// PlacedAt returns the order's placement time.
func (o BrokerOrder) PlacedAt() time.Time {
	return time.UnixMilli(o.PlacedAtMilli)
}

// Holding is one position reported by the broker, tracked or not.
type Holding struct {
	Symbol   string `json:"symbol"`
	Quantity int64  `json:"quantity"`
}

// Gateway abstracts the brokerage API consumed by the engine.
type Gateway interface {
	// PlaceOrder submits an order. The returned response may or may not
	// contain an order id depending on the placement path.
	PlaceOrder(ctx context.Context, spec OrderSpec) (*PlaceOrderResponse, error)

	// GetOrderBook returns the broker's current live order book. Orders
	// the broker has purged (after fill or cancellation) do not appear.
	GetOrderBook(ctx context.Context) ([]BrokerOrder, error)

	// GetHoldings returns all positions held at the broker.
	GetHoldings(ctx context.Context) ([]Holding, error)
}
