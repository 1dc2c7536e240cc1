package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"orderbot/internal/auth"
)

const (
	defaultTimeout    = 10 * time.Second
	defaultMaxRetries = 3
	defaultRetryDelay = time.Second
)

// Client is a REST client for the Binance USDT-M futures API. It owns the
// request lifecycle: rate limiting, signing, sending, error classification,
// and retry with linear backoff. Signing happens per attempt so every retry
// carries a fresh timestamp and signature.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	signer      *auth.Signer
	rateLimiter *RateLimiter
	maxRetries  int
	retryDelay  time.Duration
	logger      zerolog.Logger

	// sleep is the backoff hook; replaced in tests to observe delays
	// without real timing.
	sleep func(ctx context.Context, d time.Duration) error
}

// Option configures the client.
type Option func(*Client)

// WithTimeout sets the per-attempt HTTP timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithMaxRetries sets the maximum number of attempts for retryable failures.
func WithMaxRetries(maxRetries int) Option {
	return func(c *Client) {
		c.maxRetries = maxRetries
	}
}

// WithRetryDelay sets the base backoff delay. The wait before attempt n+1
// is delay multiplied by n.
func WithRetryDelay(delay time.Duration) Option {
	return func(c *Client) {
		c.retryDelay = delay
	}
}

// WithRateLimit sets request rate limiting.
func WithRateLimit(requestsPerSecond float64, burst int) Option {
	return func(c *Client) {
		c.rateLimiter = NewRateLimiter(requestsPerSecond, burst)
	}
}

// WithLogger sets the client logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a futures REST client.
func NewClient(baseURL string, signer *auth.Signer, opts ...Option) *Client {
	client := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		signer:      signer,
		rateLimiter: NewRateLimiter(10, 5),
		maxRetries:  defaultMaxRetries,
		retryDelay:  defaultRetryDelay,
		logger:      zerolog.Nop(),
	}
	client.sleep = func(ctx context.Context, d time.Duration) error {
		select {
		case <-time.After(d):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// BaseURL returns the base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Timeout returns the per-attempt HTTP timeout.
func (c *Client) Timeout() time.Duration {
	return c.httpClient.Timeout
}

// MaxRetries returns the maximum number of attempts.
func (c *Client) MaxRetries() int {
	return c.maxRetries
}

// Do executes one API call. Server errors and transport failures are retried
// up to the attempt limit with linear backoff; client errors (4xx) and
// context cancellation return immediately. On success the raw response body
// is returned for the caller to decode.
func (c *Client) Do(ctx context.Context, method, path string, params url.Values, signed bool) ([]byte, error) {
	if signed && c.signer == nil {
		return nil, fmt.Errorf("signer required for %s %s", method, path)
	}
	if params == nil {
		params = url.Values{}
	}

	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		if attempt > 1 {
			backoff := c.retryDelay * time.Duration(attempt-1)
			c.logger.Warn().
				Str("method", method).
				Str("endpoint", path).
				Int("attempt", attempt-1).
				Dur("backoff", backoff).
				Err(lastErr).
				Msg("Request attempt failed, retrying")
			if err := c.sleep(ctx, backoff); err != nil {
				return nil, err
			}
		}

		if c.rateLimiter != nil {
			if err := c.rateLimiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		// Sign per attempt: timestamp and signature must match send time.
		sendParams := params
		if signed {
			sendParams = c.signer.SignedParams(params)
		}

		requestURL := c.baseURL + path
		if len(sendParams) > 0 {
			requestURL += "?" + sendParams.Encode()
		}

		req, err := http.NewRequestWithContext(ctx, method, requestURL, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		if c.signer != nil {
			req.Header.Set("X-MBX-APIKEY", c.signer.APIKey())
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = &NetworkError{Op: method + " " + path, Err: err}
			continue
		}

		body := drainBody(resp)
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			c.logger.Debug().
				Str("method", method).
				Str("endpoint", path).
				Int("status", resp.StatusCode).
				Msg("API request successful")
			return body, nil
		}

		apiErr := parseAPIError(resp, body)
		c.logger.Error().
			Str("method", method).
			Str("endpoint", path).
			Int("status", resp.StatusCode).
			RawJSON("body", jsonOrNull(body)).
			Msg("API request failed")

		if !IsRetryable(apiErr) {
			return nil, apiErr
		}
		lastErr = apiErr
	}

	c.logger.Error().
		Str("method", method).
		Str("endpoint", path).
		Int("attempts", c.maxRetries).
		Msg("All retry attempts failed")
	return nil, lastErr
}

// GetPrice returns the current ticker price for a symbol. Unsigned.
func (c *Client) GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	params := url.Values{}
	params.Set("symbol", symbol)

	body, err := c.Do(ctx, http.MethodGet, "/fapi/v1/ticker/price", params, false)
	if err != nil {
		return decimal.Zero, errorWithContext(err, "GetPrice")
	}

	var ticker TickerPrice
	if err := json.Unmarshal(body, &ticker); err != nil {
		return decimal.Zero, errorWithContext(err, "GetPrice")
	}
	if ticker.Price.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, fmt.Errorf("GetPrice: non-positive price %s for %s", ticker.Price, symbol)
	}

	return ticker.Price, nil
}

// GetBalance returns the futures account balance per asset. Signed.
func (c *Client) GetBalance(ctx context.Context) ([]AssetBalance, error) {
	body, err := c.Do(ctx, http.MethodGet, "/fapi/v2/balance", nil, true)
	if err != nil {
		return nil, errorWithContext(err, "GetBalance")
	}

	var balances []AssetBalance
	if err := json.Unmarshal(body, &balances); err != nil {
		return nil, errorWithContext(err, "GetBalance")
	}

	return balances, nil
}

// GetOpenOrders lists open orders, for one symbol or all symbols when
// symbol is empty. Signed.
func (c *Client) GetOpenOrders(ctx context.Context, symbol string) ([]Order, error) {
	params := url.Values{}
	if symbol != "" {
		params.Set("symbol", symbol)
	}

	body, err := c.Do(ctx, http.MethodGet, "/fapi/v1/openOrders", params, true)
	if err != nil {
		return nil, errorWithContext(err, "GetOpenOrders")
	}

	var orders []Order
	if err := json.Unmarshal(body, &orders); err != nil {
		return nil, errorWithContext(err, "GetOpenOrders")
	}

	return orders, nil
}

// PlaceOrder submits one order. Signed.
func (c *Client) PlaceOrder(ctx context.Context, req *OrderRequest) (*OrderResponse, error) {
	if req.Symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	if req.Side == "" {
		return nil, fmt.Errorf("side is required")
	}
	if req.Type == "" {
		return nil, fmt.Errorf("type is required")
	}
	if req.Quantity.IsZero() {
		return nil, fmt.Errorf("quantity is required")
	}

	params := url.Values{}
	params.Set("symbol", req.Symbol)
	params.Set("side", req.Side)
	params.Set("type", req.Type)
	params.Set("quantity", req.Quantity.String())

	if !req.Price.IsZero() {
		params.Set("price", req.Price.String())
	}
	if !req.StopPrice.IsZero() {
		params.Set("stopPrice", req.StopPrice.String())
	}
	if req.TimeInForce != "" {
		params.Set("timeInForce", req.TimeInForce)
	}
	if req.PositionSide != "" {
		params.Set("positionSide", req.PositionSide)
	}
	if req.ReduceOnly {
		params.Set("reduceOnly", "true")
	}
	if req.WorkingType != "" {
		params.Set("workingType", req.WorkingType)
	}
	if req.NewClientOrderID != "" {
		params.Set("newClientOrderId", req.NewClientOrderID)
	}

	body, err := c.Do(ctx, http.MethodPost, "/fapi/v1/order", params, true)
	if err != nil {
		return nil, errorWithContext(err, "PlaceOrder")
	}

	var orderResp OrderResponse
	if err := json.Unmarshal(body, &orderResp); err != nil {
		return nil, errorWithContext(err, "PlaceOrder")
	}

	return &orderResp, nil
}

// CancelOrder cancels an active order by exchange order id. Signed.
func (c *Client) CancelOrder(ctx context.Context, symbol string, orderID int64) (*CancelResponse, error) {
	if symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	if orderID <= 0 {
		return nil, fmt.Errorf("orderID is required")
	}

	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("orderId", strconv.FormatInt(orderID, 10))

	body, err := c.Do(ctx, http.MethodDelete, "/fapi/v1/order", params, true)
	if err != nil {
		return nil, errorWithContext(err, "CancelOrder")
	}

	var cancelResp CancelResponse
	if err := json.Unmarshal(body, &cancelResp); err != nil {
		return nil, errorWithContext(err, "CancelOrder")
	}

	return &cancelResp, nil
}

// jsonOrNull guards RawJSON against non-JSON error bodies.
func jsonOrNull(body []byte) []byte {
	if json.Valid(body) {
		return body
	}
	return []byte("null")
}
