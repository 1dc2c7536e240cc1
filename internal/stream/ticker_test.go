package stream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkPriceWatcherURL(t *testing.T) {
	w := NewMarkPriceWatcher("wss://fstream.binance.com", "BTCUSDT", nil, zerolog.Nop())
	assert.Equal(t, "wss://fstream.binance.com/ws/btcusdt@markPrice@1s", w.URL())
}

func TestMarkPriceWatcherConsume(t *testing.T) {
	upgrader := websocket.Upgrader{}

	t.Run("delivers decoded events", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/ws/btcusdt@markPrice@1s", r.URL.Path)
			conn, err := upgrader.Upgrade(w, r, nil)
			require.NoError(t, err)
			defer conn.Close()

			conn.WriteMessage(websocket.TextMessage,
				[]byte(`{"e":"markPriceUpdate","E":1700000000000,"s":"BTCUSDT","p":"50000.10","r":"0.0001"}`))
			conn.WriteMessage(websocket.TextMessage, []byte(`not json`))
			conn.WriteMessage(websocket.TextMessage, []byte(`{"e":"otherEvent"}`))
			conn.WriteMessage(websocket.TextMessage,
				[]byte(`{"e":"markPriceUpdate","E":1700000001000,"s":"BTCUSDT","p":"50001.00"}`))

			// Keep the connection open until the client goes away.
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}))
		defer server.Close()
		wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

		events := make(chan MarkPriceEvent, 4)
		watcher := NewMarkPriceWatcher(wsURL, "BTCUSDT", func(e MarkPriceEvent) {
			events <- e
		}, zerolog.Nop())

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go watcher.Run(ctx)

		var received []MarkPriceEvent
		timeout := time.After(5 * time.Second)
		for len(received) < 2 {
			select {
			case e := <-events:
				received = append(received, e)
			case <-timeout:
				t.Fatalf("timed out, got %d events", len(received))
			}
		}

		assert.Equal(t, "BTCUSDT", received[0].Symbol)
		assert.True(t, received[0].MarkPrice.Equal(decimal.RequireFromString("50000.10")))
		assert.True(t, received[1].MarkPrice.Equal(decimal.RequireFromString("50001.00")))
	})

	t.Run("cancellation stops the run", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			conn, err := upgrader.Upgrade(w, r, nil)
			if err != nil {
				return
			}
			defer conn.Close()
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}))
		defer server.Close()
		wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

		watcher := NewMarkPriceWatcher(wsURL, "BTCUSDT", nil, zerolog.Nop())

		ctx, cancel := context.WithCancel(context.Background())
		errCh := make(chan error, 1)
		go func() { errCh <- watcher.Run(ctx) }()

		time.Sleep(100 * time.Millisecond)
		cancel()

		select {
		case err := <-errCh:
			assert.ErrorIs(t, err, context.Canceled)
		case <-time.After(5 * time.Second):
			t.Fatal("watcher did not stop after cancellation")
		}
	})
}
