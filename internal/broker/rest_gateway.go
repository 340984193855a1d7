package broker

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/PawanKGupta/modular-trade-agent-sub007/internal/config"
)

const recvWindow = "5000" // How long a request is valid in milliseconds

// RestGateway is a REST client for the broker API.
// It implements the Gateway interface.
type RestGateway struct {
	client    *resty.Client
	apiKey    string
	secretKey string
	logger    *zap.Logger
	limiter   *rate.Limiter
}

// ensure RestGateway implements the interface
var _ Gateway = (*RestGateway)(nil)

// NewRestGateway creates a new broker REST client.
func NewRestGateway(cfg *config.Broker, logger *zap.Logger) *RestGateway {
	client := resty.New().SetBaseURL(cfg.BaseURL)

	// rate.Limit is requests per second.
	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst)

	return &RestGateway{
		client:    client,
		apiKey:    cfg.ApiKey,
		secretKey: cfg.SecretKey,
		logger:    logger.Named("broker"),
		limiter:   limiter,
	}
}

// sign creates a HMAC-SHA256 signature for the request.
func (g *RestGateway) sign(data string) string {
	h := hmac.New(sha256.New, []byte(g.secretKey))
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}

// doRequest handles the actual request execution with rate limiting and
// retry logic. Any failure after retries is wrapped in ErrUnavailable so
// callers can treat it as transient.
func (g *RestGateway) doRequest(ctx context.Context, method, url string, req *resty.Request) (*resty.Response, error) {
	var resp *resty.Response
	var err error
	const maxRetries = 3

	for i := 0; i < maxRetries; i++ {
		// Wait for the rate limiter
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: rate limiter wait failed: %v", ErrUnavailable, err)
		}

		g.logger.Debug("Executing request", zap.String("method", method), zap.String("url", g.client.BaseURL+url))
		resp, err = req.SetContext(ctx).Execute(method, url)

		if err == nil && !resp.IsError() {
			return resp, nil // Success
		}

		// Analyze error and decide whether to retry
		shouldRetry := false
		var retryAfter time.Duration

		if resp != nil && err == nil {
			statusCode := resp.StatusCode()
			if statusCode == http.StatusTooManyRequests {
				shouldRetry = true
				retryAfterHeader := resp.Header().Get("Retry-After")
				if seconds, err := strconv.Atoi(retryAfterHeader); err == nil {
					retryAfter = time.Duration(seconds) * time.Second
				}
			} else if statusCode >= 500 { // Server errors
				shouldRetry = true
			}
		} else { // Network or other client-side errors
			shouldRetry = true
		}

		if !shouldRetry {
			return nil, fmt.Errorf("request failed with status %s: %s", resp.Status(), resp.String())
		}

		// If we should retry, calculate wait time
		if retryAfter == 0 {
			// Exponential backoff: 1s, 2s, 4s
			retryAfter = time.Duration(math.Pow(2, float64(i))) * time.Second
		}

		g.logger.Warn("Request failed, retrying...",
			zap.Int("attempt", i+1),
			zap.Duration("retry_after", retryAfter),
			zap.Error(err),
		)

		select {
		case <-time.After(retryAfter):
			continue
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
		}
	}

	return nil, fmt.Errorf("%w: request failed after %d attempts: %v", ErrUnavailable, maxRetries, err)
}

// PlaceOrder submits a new order to the broker. The response body is decoded
// into a raw map because the id field differs between placement paths.
func (g *RestGateway) PlaceOrder(ctx context.Context, spec OrderSpec) (*PlaceOrderResponse, error) {
	params := url.Values{}
	params.Set("symbol", spec.Symbol)
	params.Set("ticker", spec.Ticker)
	params.Set("side", spec.Side)
	params.Set("type", spec.Kind)
	params.Set("variety", spec.Variety)
	params.Set("quantity", strconv.FormatInt(spec.Quantity, 10))
	if spec.Price > 0 {
		params.Set("price", strconv.FormatFloat(spec.Price, 'f', -1, 64))
	}
	params.Set("timestamp", fmt.Sprintf("%d", time.Now().UnixMilli()))
	params.Set("recvWindow", recvWindow)

	queryString := params.Encode()
	signature := g.sign(queryString)
	params.Set("signature", signature)

	req := g.client.R().
		SetHeader("X-API-KEY", g.apiKey).
		SetHeader("Content-Type", "application/x-www-form-urlencoded").
		SetBody(params.Encode())

	resp, err := g.doRequest(ctx, "POST", "/orders", req)
	if err != nil {
		g.logger.Error("Failed to place order",
			zap.Error(err),
			zap.String("symbol", spec.Symbol),
			zap.String("side", spec.Side),
		)
		return nil, fmt.Errorf("failed to place order: %w", err)
	}

	raw := map[string]any{}
	if err := json.Unmarshal(resp.Body(), &raw); err != nil {
		return nil, fmt.Errorf("failed to decode order response: %w", err)
	}

	g.logger.Info("Order placed", zap.String("symbol", spec.Symbol), zap.String("side", spec.Side), zap.Int64("quantity", spec.Quantity))
	return &PlaceOrderResponse{Raw: raw}, nil
}

// GetOrderBook fetches the broker's current live order book.
func (g *RestGateway) GetOrderBook(ctx context.Context) ([]BrokerOrder, error) {
	var book []BrokerOrder

	req := g.client.R().
		SetHeader("X-API-KEY", g.apiKey).
		SetResult(&book).
		SetHeader("Content-Type", "application/json")

	resp, err := g.doRequest(ctx, "GET", "/orders", req)
	if err != nil {
		return nil, fmt.Errorf("failed to get order book: %w", err)
	}

	return *resp.Result().(*[]BrokerOrder), nil
}

// GetHoldings fetches all positions held at the broker.
func (g *RestGateway) GetHoldings(ctx context.Context) ([]Holding, error) {
	var holdings []Holding

	req := g.client.R().
		SetHeader("X-API-KEY", g.apiKey).
		SetResult(&holdings).
		SetHeader("Content-Type", "application/json")

	resp, err := g.doRequest(ctx, "GET", "/holdings", req)
	if err != nil {
		return nil, fmt.Errorf("failed to get holdings: %w", err)
	}

	return *resp.Result().(*[]Holding), nil
}
