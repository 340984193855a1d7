package broker

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// setupTestServer creates a new test server and a RestGateway configured to use it.
func setupTestServer(handler http.Handler) (*RestGateway, *httptest.Server) {
	server := httptest.NewServer(handler)

	client := resty.New().SetBaseURL(server.URL)
	logger := zap.NewNop() // Use a no-op logger for tests

	gw := &RestGateway{
		client:    client,
		apiKey:    "test_api_key",
		secretKey: "test_secret_key",
		logger:    logger,
		limiter:   rate.NewLimiter(rate.Inf, 1), // Allow all requests in tests
	}

	return gw, server
}

func TestGetOrderBook(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		// Arrange
		mockResponse := `[
			{"order_id": "ORD1", "symbol": "RELIANCE", "side": "BUY", "quantity": 10, "filled_quantity": 4, "status": "OPEN", "placed_at": 1714990000000},
			{"order_id": "ORD2", "symbol": "TCS", "side": "SELL", "quantity": 5, "filled_quantity": 5, "status": "COMPLETE", "average_price": 3400.5, "placed_at": 1714990005000}
		]`

		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/orders", r.URL.Path)
			assert.Equal(t, "test_api_key", r.Header.Get("X-API-KEY"))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(mockResponse))
		})

		gw, server := setupTestServer(handler)
		defer server.Close()

		// Act
		book, err := gw.GetOrderBook(context.Background())

		// Assert
		assert.NoError(t, err)
		assert.Len(t, book, 2)
		assert.Equal(t, "ORD1", book[0].OrderID)
		assert.Equal(t, int64(4), book[0].FilledQuantity)
		assert.Equal(t, OrderStatusComplete, book[1].Status)
		assert.Equal(t, 3400.5, book[1].AveragePrice)
	})

	t.Run("APIError", func(t *testing.T) {
		// Arrange
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error": "invalid api key"}`))
		})

		gw, server := setupTestServer(handler)
		defer server.Close()

		// Act
		book, err := gw.GetOrderBook(context.Background())

		// Assert
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to get order book")
		assert.Nil(t, book)
	})
}

func TestGetHoldings(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/holdings", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`[{"symbol": "RELIANCE", "quantity": 15}]`))
	})

	gw, server := setupTestServer(handler)
	defer server.Close()

	holdings, err := gw.GetHoldings(context.Background())

	assert.NoError(t, err)
	assert.Len(t, holdings, 1)
	assert.Equal(t, "RELIANCE", holdings[0].Symbol)
	assert.Equal(t, int64(15), holdings[0].Quantity)
}

func TestPlaceOrder(t *testing.T) {
	t.Run("KeepsRawResponse", func(t *testing.T) {
		// The placement response shape varies between order paths, so the
		// gateway must hand back the decoded body untouched.
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/orders", r.URL.Path)
			assert.Equal(t, "POST", r.Method)
			assert.NoError(t, r.ParseForm())
			assert.Equal(t, "RELIANCE", r.PostForm.Get("symbol"))
			assert.NotEmpty(t, r.PostForm.Get("signature"))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"data": {"order_id": "ORD1"}, "status": "success"}`))
		})

		gw, server := setupTestServer(handler)
		defer server.Close()

		resp, err := gw.PlaceOrder(context.Background(), OrderSpec{
			Symbol:   "RELIANCE",
			Ticker:   "RELIANCE-EQ",
			Side:     "BUY",
			Quantity: 10,
			Kind:     "MARKET",
			Variety:  "REGULAR",
		})

		assert.NoError(t, err)
		data, ok := resp.Raw["data"].(map[string]any)
		assert.True(t, ok)
		assert.Equal(t, "ORD1", data["order_id"])
	})
}
