package strategy

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"orderbot/internal/rest"
)

// LimitExecutor places resting orders at a caller-chosen price.
type LimitExecutor struct {
	client *rest.Client
	logger zerolog.Logger
}

// NewLimitExecutor creates a limit order executor.
func NewLimitExecutor(client *rest.Client, logger zerolog.Logger) *LimitExecutor {
	return &LimitExecutor{
		client: client,
		logger: logger.With().Str("strategy", "limit").Logger(),
	}
}

// PlaceOrder validates the intent and submits one LIMIT order. A BUY above
// the current price or a SELL below it fills immediately like a market
// order; that is flagged as a warning but still submitted, since crossing
// the book can be intentional.
func (e *LimitExecutor) PlaceOrder(ctx context.Context, symbol, side string, quantity, price decimal.Decimal, opts OrderOptions) (*rest.OrderResponse, error) {
	if err := validateSymbol(e.logger, symbol); err != nil {
		return nil, err
	}
	if err := validateSide(side); err != nil {
		return nil, err
	}
	if err := validateQuantity(quantity); err != nil {
		return nil, err
	}
	if err := validatePrice("price", price); err != nil {
		return nil, err
	}

	symbol = normalizeSymbol(symbol)
	e.logger.Info().
		Str("symbol", symbol).
		Str("side", side).
		Str("quantity", quantity.String()).
		Str("price", price.String()).
		Msg("Placing limit order")

	if current, err := e.client.GetPrice(ctx, symbol); err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		e.logger.Warn().Err(err).Str("symbol", symbol).Msg("Could not read current price")
	} else {
		e.warnIfCrossing(side, price, current)
	}

	resp, err := e.client.PlaceOrder(ctx, &rest.OrderRequest{
		Symbol:           symbol,
		Side:             side,
		Type:             OrderTypeLimit,
		Quantity:         quantity,
		Price:            price,
		TimeInForce:      opts.timeInForce(),
		PositionSide:     opts.positionSide(),
		ReduceOnly:       opts.ReduceOnly,
		NewClientOrderID: newClientOrderID("lmt"),
	})
	if err != nil {
		e.logger.Error().Err(err).Str("symbol", symbol).Msg("Failed to place limit order")
		return nil, err
	}

	e.logger.Info().
		Int64("order_id", resp.OrderID).
		Str("status", resp.Status).
		Msg("Limit order placed")
	return resp, nil
}

func (e *LimitExecutor) warnIfCrossing(side string, price, current decimal.Decimal) {
	crossing := (side == SideBuy && price.GreaterThanOrEqual(current)) ||
		(side == SideSell && price.LessThanOrEqual(current))
	if crossing {
		e.logger.Warn().
			Str("side", side).
			Str("price", price.String()).
			Str("current_price", current.String()).
			Msg("Limit price crosses the book, order may fill immediately")
	}
}

// Buy places a limit BUY order.
func (e *LimitExecutor) Buy(ctx context.Context, symbol string, quantity, price decimal.Decimal, opts OrderOptions) (*rest.OrderResponse, error) {
	return e.PlaceOrder(ctx, symbol, SideBuy, quantity, price, opts)
}

// Sell places a limit SELL order.
func (e *LimitExecutor) Sell(ctx context.Context, symbol string, quantity, price decimal.Decimal, opts OrderOptions) (*rest.OrderResponse, error) {
	return e.PlaceOrder(ctx, symbol, SideSell, quantity, price, opts)
}
