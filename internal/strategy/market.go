package strategy

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"orderbot/internal/rest"
)

// MarketExecutor places orders for immediate execution at the current
// market price.
type MarketExecutor struct {
	client *rest.Client
	logger zerolog.Logger
}

// NewMarketExecutor creates a market order executor.
func NewMarketExecutor(client *rest.Client, logger zerolog.Logger) *MarketExecutor {
	return &MarketExecutor{
		client: client,
		logger: logger.With().Str("strategy", "market").Logger(),
	}
}

// PlaceOrder validates the intent and submits one MARKET order. The current
// price is read for logging only; a failed price read does not block the
// order.
func (e *MarketExecutor) PlaceOrder(ctx context.Context, symbol, side string, quantity decimal.Decimal, opts OrderOptions) (*rest.OrderResponse, error) {
	if err := validateSymbol(e.logger, symbol); err != nil {
		return nil, err
	}
	if err := validateSide(side); err != nil {
		return nil, err
	}
	if err := validateQuantity(quantity); err != nil {
		return nil, err
	}

	symbol = normalizeSymbol(symbol)
	e.logger.Info().
		Str("symbol", symbol).
		Str("side", side).
		Str("quantity", quantity.String()).
		Msg("Placing market order")

	if price, err := e.client.GetPrice(ctx, symbol); err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		e.logger.Warn().Err(err).Str("symbol", symbol).Msg("Could not read current price")
	} else {
		e.logger.Info().Str("symbol", symbol).Str("price", price.String()).Msg("Current market price")
	}

	resp, err := e.client.PlaceOrder(ctx, &rest.OrderRequest{
		Symbol:           symbol,
		Side:             side,
		Type:             OrderTypeMarket,
		Quantity:         quantity,
		PositionSide:     opts.positionSide(),
		ReduceOnly:       opts.ReduceOnly,
		NewClientOrderID: newClientOrderID("mkt"),
	})
	if err != nil {
		e.logger.Error().Err(err).Str("symbol", symbol).Msg("Failed to place market order")
		return nil, err
	}

	e.logger.Info().
		Int64("order_id", resp.OrderID).
		Str("status", resp.Status).
		Msg("Market order placed")
	return resp, nil
}

// Buy places a market BUY order.
func (e *MarketExecutor) Buy(ctx context.Context, symbol string, quantity decimal.Decimal, opts OrderOptions) (*rest.OrderResponse, error) {
	return e.PlaceOrder(ctx, symbol, SideBuy, quantity, opts)
}

// Sell places a market SELL order.
func (e *MarketExecutor) Sell(ctx context.Context, symbol string, quantity decimal.Decimal, opts OrderOptions) (*rest.OrderResponse, error) {
	return e.PlaceOrder(ctx, symbol, SideSell, quantity, opts)
}
