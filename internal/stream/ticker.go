package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	defaultReadTimeout       = 3 * time.Minute
	defaultReconnectInterval = 5 * time.Second
	maxReconnectInterval     = 30 * time.Second
)

// MarkPriceEvent is one markPriceUpdate from the futures stream.
type MarkPriceEvent struct {
	EventType   string          `json:"e"`
	EventTime   int64           `json:"E"`
	Symbol      string          `json:"s"`
	MarkPrice   decimal.Decimal `json:"p"`
	IndexPrice  decimal.Decimal `json:"i"`
	FundingRate decimal.Decimal `json:"r"`
	NextFunding int64           `json:"T"`
}

// MarkPriceHandler receives each decoded event.
type MarkPriceHandler func(MarkPriceEvent)

// MarkPriceWatcher follows the mark price stream for one symbol and
// reconnects with exponential backoff when the connection drops. The
// exchange closes idle streams every 24h, so reconnection is normal
// operation, not an error path.
type MarkPriceWatcher struct {
	wsBaseURL   string
	symbol      string
	handler     MarkPriceHandler
	logger      zerolog.Logger
	readTimeout time.Duration
}

// NewMarkPriceWatcher creates a watcher for one symbol.
func NewMarkPriceWatcher(wsBaseURL, symbol string, handler MarkPriceHandler, logger zerolog.Logger) *MarkPriceWatcher {
	return &MarkPriceWatcher{
		wsBaseURL:   wsBaseURL,
		symbol:      strings.ToLower(symbol),
		handler:     handler,
		logger:      logger.With().Str("component", "mark_price").Str("symbol", symbol).Logger(),
		readTimeout: defaultReadTimeout,
	}
}

// URL returns the stream endpoint.
func (w *MarkPriceWatcher) URL() string {
	return fmt.Sprintf("%s/ws/%s@markPrice@1s", w.wsBaseURL, w.symbol)
}

// Run connects and consumes events until the context is cancelled. Each
// dropped connection is retried with growing backoff; the backoff resets
// once a connection delivers a message.
func (w *MarkPriceWatcher) Run(ctx context.Context) error {
	backoff := defaultReconnectInterval
	for {
		delivered, err := w.consume(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if delivered {
			backoff = defaultReconnectInterval
		}
		w.logger.Warn().Err(err).Dur("backoff", backoff).Msg("Stream dropped, reconnecting")

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
		backoff *= 2
		if backoff > maxReconnectInterval {
			backoff = maxReconnectInterval
		}
	}
}

// consume dials once and reads until the connection fails or the context is
// cancelled. It reports whether at least one event was delivered.
func (w *MarkPriceWatcher) consume(ctx context.Context) (bool, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, w.URL(), nil)
	if err != nil {
		return false, fmt.Errorf("dial %s: %w", w.URL(), err)
	}
	defer conn.Close()

	w.logger.Info().Str("url", w.URL()).Msg("Stream connected")

	// The server pings periodically; answering keeps the stream alive and
	// refreshes the read deadline.
	conn.SetReadDeadline(time.Now().Add(w.readTimeout))
	conn.SetPingHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(w.readTimeout))
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(10*time.Second))
	})

	// Unblock ReadMessage on cancellation.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	delivered := false
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return delivered, err
		}
		conn.SetReadDeadline(time.Now().Add(w.readTimeout))

		var event MarkPriceEvent
		if err := json.Unmarshal(message, &event); err != nil {
			w.logger.Warn().Err(err).Msg("Discarding undecodable stream message")
			continue
		}
		if event.EventType != "markPriceUpdate" {
			continue
		}

		delivered = true
		if w.handler != nil {
			w.handler(event)
		}
	}
}
