package rest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderbot/internal/auth"
)

func newTestSigner() *auth.Signer {
	return auth.NewSigner("test-key", "test-secret")
}

func newServerClient(t *testing.T, handler http.Handler, opts ...Option) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	opts = append([]Option{WithRateLimit(1000, 1000)}, opts...)
	return NewClient(server.URL, newTestSigner(), opts...)
}

func TestClientDo(t *testing.T) {
	t.Run("server errors are retried with linear backoff", func(t *testing.T) {
		var requests int
		client := newServerClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requests++
			if requests < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte(`{"code":-1001,"msg":"internal error"}`))
				return
			}
			w.Write([]byte(`{"ok":true}`))
		}), WithMaxRetries(3), WithRetryDelay(100*time.Millisecond))

		var sleeps []time.Duration
		client.sleep = func(ctx context.Context, d time.Duration) error {
			sleeps = append(sleeps, d)
			return nil
		}

		body, err := client.Do(context.Background(), http.MethodGet, "/test", nil, false)
		require.NoError(t, err)
		assert.JSONEq(t, `{"ok":true}`, string(body))
		assert.Equal(t, 3, requests)
		require.Len(t, sleeps, 2)
		assert.Equal(t, 100*time.Millisecond, sleeps[0])
		assert.Equal(t, 200*time.Millisecond, sleeps[1])
	})

	t.Run("exhausted retries return the last error", func(t *testing.T) {
		var requests int
		client := newServerClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requests++
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"code":-1001,"msg":"internal error"}`))
		}), WithMaxRetries(3))
		client.sleep = func(ctx context.Context, d time.Duration) error { return nil }

		_, err := client.Do(context.Background(), http.MethodGet, "/test", nil, false)
		require.Error(t, err)
		assert.Equal(t, 3, requests)

		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.True(t, apiErr.IsServerError())
	})

	t.Run("client errors are never retried", func(t *testing.T) {
		var requests int
		client := newServerClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requests++
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"code":-1022,"msg":"Signature for this request is not valid."}`))
		}), WithMaxRetries(3))

		_, err := client.Do(context.Background(), http.MethodGet, "/test", nil, false)
		require.Error(t, err)
		assert.Equal(t, 1, requests)

		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, -1022, apiErr.Code)
		assert.Contains(t, apiErr.Error(), "Invalid signature")
	})

	t.Run("cancellation during backoff stops retrying", func(t *testing.T) {
		var requests int
		client := newServerClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requests++
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"code":-1001,"msg":"internal error"}`))
		}), WithMaxRetries(3))

		ctx, cancel := context.WithCancel(context.Background())
		client.sleep = func(ctx context.Context, d time.Duration) error {
			cancel()
			return ctx.Err()
		}

		_, err := client.Do(ctx, http.MethodGet, "/test", nil, false)
		require.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, requests)
	})

	t.Run("each attempt is signed fresh", func(t *testing.T) {
		signer := newTestSigner()
		var queries []url.Values
		client := newServerClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "test-key", r.Header.Get("X-MBX-APIKEY"))
			queries = append(queries, r.URL.Query())
			if len(queries) < 2 {
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte(`{"code":-1001,"msg":"internal error"}`))
				return
			}
			w.Write([]byte(`{}`))
		}), WithMaxRetries(3))
		client.sleep = func(ctx context.Context, d time.Duration) error { return nil }

		params := url.Values{}
		params.Set("symbol", "BTCUSDT")
		_, err := client.Do(context.Background(), http.MethodGet, "/test", params, true)
		require.NoError(t, err)
		require.Len(t, queries, 2)

		for _, q := range queries {
			signature := q.Get("signature")
			require.NotEmpty(t, signature)
			q.Del("signature")
			assert.True(t, signer.Verify(q, signature))
			assert.NotEmpty(t, q.Get("timestamp"))
			assert.Equal(t, "5000", q.Get("recvWindow"))
		}
	})

	t.Run("network failures are retried", func(t *testing.T) {
		client := NewClient("http://127.0.0.1:1", newTestSigner(),
			WithMaxRetries(2), WithRateLimit(1000, 1000), WithTimeout(time.Second))
		var sleeps int
		client.sleep = func(ctx context.Context, d time.Duration) error {
			sleeps++
			return nil
		}

		_, err := client.Do(context.Background(), http.MethodGet, "/test", nil, false)
		require.Error(t, err)

		var netErr *NetworkError
		require.ErrorAs(t, err, &netErr)
		assert.Equal(t, 1, sleeps)
	})
}

func TestClientEndpoints(t *testing.T) {
	t.Run("GetPrice", func(t *testing.T) {
		client := newServerClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/fapi/v1/ticker/price", r.URL.Path)
			assert.Equal(t, "BTCUSDT", r.URL.Query().Get("symbol"))
			// Price endpoint is public, no signature expected.
			assert.Empty(t, r.URL.Query().Get("signature"))
			w.Write([]byte(`{"symbol":"BTCUSDT","price":"50123.45","time":1700000000000}`))
		}))

		price, err := client.GetPrice(context.Background(), "BTCUSDT")
		require.NoError(t, err)
		assert.True(t, price.Equal(decimal.RequireFromString("50123.45")))
	})

	t.Run("GetPrice rejects non-positive price", func(t *testing.T) {
		client := newServerClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"symbol":"BTCUSDT","price":"0"}`))
		}))

		_, err := client.GetPrice(context.Background(), "BTCUSDT")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "non-positive price")
	})

	t.Run("GetBalance", func(t *testing.T) {
		client := newServerClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/fapi/v2/balance", r.URL.Path)
			assert.NotEmpty(t, r.URL.Query().Get("signature"))
			w.Write([]byte(`[{"asset":"USDT","balance":"1000.50","availableBalance":"900.25"}]`))
		}))

		balances, err := client.GetBalance(context.Background())
		require.NoError(t, err)
		require.Len(t, balances, 1)
		assert.Equal(t, "USDT", balances[0].Asset)
		assert.True(t, balances[0].Balance.Equal(decimal.RequireFromString("1000.50")))
	})

	t.Run("GetOpenOrders", func(t *testing.T) {
		client := newServerClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/fapi/v1/openOrders", r.URL.Path)
			assert.Equal(t, "BTCUSDT", r.URL.Query().Get("symbol"))
			w.Write([]byte(`[{"orderId":7,"symbol":"BTCUSDT","status":"NEW","side":"BUY","type":"LIMIT","price":"48000"}]`))
		}))

		orders, err := client.GetOpenOrders(context.Background(), "BTCUSDT")
		require.NoError(t, err)
		require.Len(t, orders, 1)
		assert.Equal(t, int64(7), orders[0].OrderID)
		assert.Equal(t, "NEW", orders[0].Status)
	})

	t.Run("CancelOrder requires an order id", func(t *testing.T) {
		client := newServerClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Errorf("unexpected request to %s", r.URL.Path)
		}))

		_, err := client.CancelOrder(context.Background(), "BTCUSDT", 0)
		require.Error(t, err)
	})

	t.Run("PlaceOrder requires core fields", func(t *testing.T) {
		client := newServerClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Errorf("unexpected request to %s", r.URL.Path)
		}))

		_, err := client.PlaceOrder(context.Background(), &OrderRequest{Symbol: "BTCUSDT"})
		require.Error(t, err)
	})
}
