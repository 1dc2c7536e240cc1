package strategy

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"orderbot/internal/rest"
)

// Stop-loss auto limit offset: 0.1% past the trigger so the resting limit
// order is marketable once the stop fires.
var stopLossLimitOffset = decimal.NewFromFloat(0.001)

// StopLimitExecutor places conditional orders that rest as limit orders once
// a trigger price trades.
type StopLimitExecutor struct {
	client *rest.Client
	logger zerolog.Logger
}

// NewStopLimitExecutor creates a stop-limit order executor.
func NewStopLimitExecutor(client *rest.Client, logger zerolog.Logger) *StopLimitExecutor {
	return &StopLimitExecutor{
		client: client,
		logger: logger.With().Str("strategy", "stop_limit").Logger(),
	}
}

// PlaceOrder validates the intent and submits one STOP (stop-limit) order.
// Trigger placement relative to the current price is sanity-checked but
// wrong-side placement is only warned about, since the exchange enforces
// the hard rule and intent can be legitimate in hedged setups.
func (e *StopLimitExecutor) PlaceOrder(ctx context.Context, symbol, side string, quantity, stopPrice, limitPrice decimal.Decimal, opts OrderOptions) (*rest.OrderResponse, error) {
	if err := validateSymbol(e.logger, symbol); err != nil {
		return nil, err
	}
	if err := validateSide(side); err != nil {
		return nil, err
	}
	if err := validateQuantity(quantity); err != nil {
		return nil, err
	}
	if err := validatePrice("stopPrice", stopPrice); err != nil {
		return nil, err
	}
	if err := validatePrice("limitPrice", limitPrice); err != nil {
		return nil, err
	}

	symbol = normalizeSymbol(symbol)
	e.logger.Info().
		Str("symbol", symbol).
		Str("side", side).
		Str("quantity", quantity.String()).
		Str("stop_price", stopPrice.String()).
		Str("limit_price", limitPrice.String()).
		Msg("Placing stop-limit order")

	if current, err := e.client.GetPrice(ctx, symbol); err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		e.logger.Warn().Err(err).Str("symbol", symbol).Msg("Could not read current price")
	} else {
		e.warnIfWrongSide(side, stopPrice, current)
	}

	resp, err := e.client.PlaceOrder(ctx, &rest.OrderRequest{
		Symbol:           symbol,
		Side:             side,
		Type:             OrderTypeStop,
		Quantity:         quantity,
		Price:            limitPrice,
		StopPrice:        stopPrice,
		TimeInForce:      opts.timeInForce(),
		PositionSide:     opts.positionSide(),
		ReduceOnly:       opts.ReduceOnly,
		WorkingType:      opts.workingType(),
		NewClientOrderID: newClientOrderID("stp"),
	})
	if err != nil {
		e.logger.Error().Err(err).Str("symbol", symbol).Msg("Failed to place stop-limit order")
		return nil, err
	}

	e.logger.Info().
		Int64("order_id", resp.OrderID).
		Str("status", resp.Status).
		Msg("Stop-limit order placed")
	return resp, nil
}

func (e *StopLimitExecutor) warnIfWrongSide(side string, stopPrice, current decimal.Decimal) {
	wrongSide := (side == SideSell && stopPrice.GreaterThanOrEqual(current)) ||
		(side == SideBuy && stopPrice.LessThanOrEqual(current))
	if wrongSide {
		e.logger.Warn().
			Str("side", side).
			Str("stop_price", stopPrice.String()).
			Str("current_price", current.String()).
			Msg("Stop price is on the triggering side of the current price, order may trigger immediately")
	}
}

// PlaceStopLoss places a reduce-only stop-limit to protect an open position.
// side is the closing side: SELL for a long position, BUY for a short one.
// The limit price is derived from the stop price, 0.1% past the trigger.
func (e *StopLimitExecutor) PlaceStopLoss(ctx context.Context, symbol, side string, quantity, stopPrice decimal.Decimal, opts OrderOptions) (*rest.OrderResponse, error) {
	if err := validateSide(side); err != nil {
		return nil, err
	}
	if err := validatePrice("stopPrice", stopPrice); err != nil {
		return nil, err
	}

	var limitPrice decimal.Decimal
	if side == SideSell {
		limitPrice = stopPrice.Mul(decimal.NewFromInt(1).Sub(stopLossLimitOffset))
	} else {
		limitPrice = stopPrice.Mul(decimal.NewFromInt(1).Add(stopLossLimitOffset))
	}

	opts.ReduceOnly = true
	e.logger.Info().
		Str("symbol", symbol).
		Str("side", side).
		Str("stop_price", stopPrice.String()).
		Str("limit_price", limitPrice.String()).
		Msg("Placing stop-loss order")

	return e.PlaceOrder(ctx, symbol, side, quantity, stopPrice, limitPrice, opts)
}
