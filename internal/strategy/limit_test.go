package strategy

import (
	"context"
	"net/http"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimitExecutorPlaceOrder(t *testing.T) {
	t.Run("places limit order with GTC default", func(t *testing.T) {
		var orderParams map[string]string
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/fapi/v1/ticker/price":
				w.Write([]byte(`{"symbol":"BTCUSDT","price":"50000.00"}`))
			case "/fapi/v1/order":
				orderParams = flattenQuery(r)
				w.Write([]byte(`{"orderId":10,"symbol":"BTCUSDT","status":"NEW","price":"48500"}`))
			}
		}))

		executor := NewLimitExecutor(client, zerolog.Nop())
		resp, err := executor.Buy(context.Background(), "BTCUSDT",
			decimal.RequireFromString("0.25"), decimal.RequireFromString("48500"), OrderOptions{})
		require.NoError(t, err)

		assert.Equal(t, int64(10), resp.OrderID)
		assert.Equal(t, "NEW", resp.Status)
		assert.Equal(t, "LIMIT", orderParams["type"])
		assert.Equal(t, "48500", orderParams["price"])
		assert.Equal(t, "GTC", orderParams["timeInForce"])
	})

	t.Run("post only maps to GTX", func(t *testing.T) {
		var orderParams map[string]string
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/fapi/v1/ticker/price":
				w.Write([]byte(`{"symbol":"BTCUSDT","price":"50000.00"}`))
			case "/fapi/v1/order":
				orderParams = flattenQuery(r)
				w.Write([]byte(`{"orderId":11,"status":"NEW"}`))
			}
		}))

		executor := NewLimitExecutor(client, zerolog.Nop())
		_, err := executor.Sell(context.Background(), "BTCUSDT",
			decimal.NewFromInt(1), decimal.RequireFromString("51000"), OrderOptions{PostOnly: true})
		require.NoError(t, err)
		assert.Equal(t, "GTX", orderParams["timeInForce"])
	})

	t.Run("rejects non-positive price", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Errorf("unexpected request to %s", r.URL.Path)
		}))
		executor := NewLimitExecutor(client, zerolog.Nop())

		_, err := executor.Buy(context.Background(), "BTCUSDT", decimal.NewFromInt(1), decimal.Zero, OrderOptions{})
		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "price", vErr.Field)
	})
}

func TestStopLimitExecutor(t *testing.T) {
	t.Run("places stop-limit order", func(t *testing.T) {
		var orderParams map[string]string
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/fapi/v1/ticker/price":
				w.Write([]byte(`{"symbol":"BTCUSDT","price":"50000.00"}`))
			case "/fapi/v1/order":
				orderParams = flattenQuery(r)
				w.Write([]byte(`{"orderId":20,"symbol":"BTCUSDT","status":"NEW"}`))
			}
		}))

		executor := NewStopLimitExecutor(client, zerolog.Nop())
		resp, err := executor.PlaceOrder(context.Background(), "BTCUSDT", SideSell,
			decimal.RequireFromString("0.5"),
			decimal.RequireFromString("49000"),
			decimal.RequireFromString("48950"),
			OrderOptions{})
		require.NoError(t, err)

		assert.Equal(t, int64(20), resp.OrderID)
		assert.Equal(t, "STOP", orderParams["type"])
		assert.Equal(t, "49000", orderParams["stopPrice"])
		assert.Equal(t, "48950", orderParams["price"])
		assert.Equal(t, "CONTRACT_PRICE", orderParams["workingType"])
	})

	t.Run("stop loss derives limit price and forces reduce only", func(t *testing.T) {
		var orderParams map[string]string
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/fapi/v1/ticker/price":
				w.Write([]byte(`{"symbol":"BTCUSDT","price":"50000.00"}`))
			case "/fapi/v1/order":
				orderParams = flattenQuery(r)
				w.Write([]byte(`{"orderId":21,"status":"NEW"}`))
			}
		}))

		executor := NewStopLimitExecutor(client, zerolog.Nop())
		_, err := executor.PlaceStopLoss(context.Background(), "BTCUSDT", SideSell,
			decimal.NewFromInt(1), decimal.RequireFromString("49000"), OrderOptions{})
		require.NoError(t, err)

		// 49000 * 0.999
		assert.Equal(t, "48951", orderParams["price"])
		assert.Equal(t, "true", orderParams["reduceOnly"])
	})

	t.Run("buy stop loss offsets limit upward", func(t *testing.T) {
		var orderParams map[string]string
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/fapi/v1/ticker/price":
				w.Write([]byte(`{"symbol":"BTCUSDT","price":"50000.00"}`))
			case "/fapi/v1/order":
				orderParams = flattenQuery(r)
				w.Write([]byte(`{"orderId":22,"status":"NEW"}`))
			}
		}))

		executor := NewStopLimitExecutor(client, zerolog.Nop())
		_, err := executor.PlaceStopLoss(context.Background(), "BTCUSDT", SideBuy,
			decimal.NewFromInt(1), decimal.RequireFromString("51000"), OrderOptions{})
		require.NoError(t, err)

		// 51000 * 1.001
		assert.Equal(t, "51051", orderParams["price"])
	})
}
