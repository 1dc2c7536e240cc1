package strategy

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"orderbot/internal/rest"
)

// OCORequest describes a one-cancels-the-other exit pair for an existing
// position. Side is the closing side: SELL exits a long, BUY exits a short.
// StopLimitPrice is optional; when set the stop leg rests as a stop-limit
// instead of a stop-market.
type OCORequest struct {
	Symbol         string
	Side           string
	Quantity       decimal.Decimal
	TakeProfit     decimal.Decimal
	StopPrice      decimal.Decimal
	StopLimitPrice decimal.Decimal
	Options        OrderOptions
}

// OCOResult holds both legs of a placed pair and the market price observed
// at submission.
type OCOResult struct {
	TakeProfit     *rest.OrderResponse `json:"takeProfit"`
	StopLoss       *rest.OrderResponse `json:"stopLoss"`
	ReferencePrice decimal.Decimal     `json:"referencePrice"`
}

// CompensatedError reports a failure where a partial state had to be rolled
// back. Primary is the failure that aborted the operation; Compensation is
// the outcome of the rollback, nil when it succeeded.
type CompensatedError struct {
	Primary      error
	Compensation error
}

func (e *CompensatedError) Error() string {
	if e.Compensation != nil {
		return fmt.Sprintf("%v (compensation also failed: %v)", e.Primary, e.Compensation)
	}
	return e.Primary.Error()
}

func (e *CompensatedError) Unwrap() error {
	return e.Primary
}

// OCOExecutor emulates one-cancels-the-other exits. USDT-M futures has no
// native OCO order, so the pair is two reduce-only orders placed back to
// back; when the second leg fails the first is cancelled so no naked exit
// order is left resting.
type OCOExecutor struct {
	client *rest.Client
	logger zerolog.Logger
}

// NewOCOExecutor creates an OCO executor.
func NewOCOExecutor(client *rest.Client, logger zerolog.Logger) *OCOExecutor {
	return &OCOExecutor{
		client: client,
		logger: logger.With().Str("strategy", "oco").Logger(),
	}
}

// Place submits the take-profit leg, then the stop-loss leg. Both are
// reduce-only regardless of the caller's options so the pair can never grow
// the position. If the stop leg fails, the already-resting take-profit is
// cancelled and the returned error carries both outcomes.
func (e *OCOExecutor) Place(ctx context.Context, req OCORequest) (*OCOResult, error) {
	if err := validateSymbol(e.logger, req.Symbol); err != nil {
		return nil, err
	}
	if err := validateSide(req.Side); err != nil {
		return nil, err
	}
	if err := validateQuantity(req.Quantity); err != nil {
		return nil, err
	}
	if err := validatePrice("takeProfit", req.TakeProfit); err != nil {
		return nil, err
	}
	if err := validatePrice("stopPrice", req.StopPrice); err != nil {
		return nil, err
	}
	if err := e.validatePriceOrdering(req); err != nil {
		return nil, err
	}

	symbol := normalizeSymbol(req.Symbol)
	e.logger.Info().
		Str("symbol", symbol).
		Str("side", req.Side).
		Str("quantity", req.Quantity.String()).
		Str("take_profit", req.TakeProfit.String()).
		Str("stop_price", req.StopPrice.String()).
		Msg("Placing OCO pair")

	reference, err := e.client.GetPrice(ctx, symbol)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		e.logger.Warn().Err(err).Str("symbol", symbol).Msg("Could not read current price")
	} else {
		e.warnIfMisplaced(req, reference)
	}

	tp, err := e.client.PlaceOrder(ctx, &rest.OrderRequest{
		Symbol:           symbol,
		Side:             req.Side,
		Type:             OrderTypeTakeProfit,
		Quantity:         req.Quantity,
		Price:            req.TakeProfit,
		StopPrice:        req.TakeProfit,
		TimeInForce:      req.Options.timeInForce(),
		PositionSide:     req.Options.positionSide(),
		ReduceOnly:       true,
		WorkingType:      req.Options.workingType(),
		NewClientOrderID: newClientOrderID("oco-tp"),
	})
	if err != nil {
		e.logger.Error().Err(err).Str("symbol", symbol).Msg("Failed to place take-profit leg")
		return nil, err
	}
	e.logger.Info().Int64("order_id", tp.OrderID).Msg("Take-profit leg placed")

	slReq := &rest.OrderRequest{
		Symbol:           symbol,
		Side:             req.Side,
		Type:             OrderTypeStopMarket,
		Quantity:         req.Quantity,
		StopPrice:        req.StopPrice,
		PositionSide:     req.Options.positionSide(),
		ReduceOnly:       true,
		WorkingType:      req.Options.workingType(),
		NewClientOrderID: newClientOrderID("oco-sl"),
	}
	if !req.StopLimitPrice.IsZero() {
		slReq.Type = OrderTypeStop
		slReq.Price = req.StopLimitPrice
		slReq.TimeInForce = req.Options.timeInForce()
	}

	sl, err := e.client.PlaceOrder(ctx, slReq)
	if err != nil {
		e.logger.Error().Err(err).Str("symbol", symbol).Msg("Failed to place stop-loss leg, cancelling take-profit")
		_, cancelErr := e.client.CancelOrder(ctx, symbol, tp.OrderID)
		if cancelErr != nil {
			e.logger.Error().Err(cancelErr).
				Int64("order_id", tp.OrderID).
				Msg("Failed to cancel take-profit leg, manual cleanup needed")
		} else {
			e.logger.Info().Int64("order_id", tp.OrderID).Msg("Take-profit leg cancelled")
		}
		return nil, &CompensatedError{Primary: err, Compensation: cancelErr}
	}

	e.logger.Info().
		Int64("tp_order_id", tp.OrderID).
		Int64("sl_order_id", sl.OrderID).
		Msg("OCO pair placed")
	return &OCOResult{TakeProfit: tp, StopLoss: sl, ReferencePrice: reference}, nil
}

// warnIfMisplaced flags exit prices on the triggering side of the current
// market. The pair is still placed; the exchange is the final arbiter.
func (e *OCOExecutor) warnIfMisplaced(req OCORequest, current decimal.Decimal) {
	var misplaced bool
	switch req.Side {
	case SideSell:
		misplaced = req.TakeProfit.LessThanOrEqual(current) || req.StopPrice.GreaterThanOrEqual(current)
	case SideBuy:
		misplaced = req.TakeProfit.GreaterThanOrEqual(current) || req.StopPrice.LessThanOrEqual(current)
	}
	if misplaced {
		e.logger.Warn().
			Str("side", req.Side).
			Str("take_profit", req.TakeProfit.String()).
			Str("stop_price", req.StopPrice.String()).
			Str("current_price", current.String()).
			Msg("Exit prices sit on the triggering side of the current price, a leg may fire immediately")
	}
}

// validatePriceOrdering checks that the exit prices bracket correctly for the
// closing side: a SELL exit needs take-profit above stop, a BUY exit the
// reverse.
func (e *OCOExecutor) validatePriceOrdering(req OCORequest) error {
	switch req.Side {
	case SideSell:
		if req.TakeProfit.LessThanOrEqual(req.StopPrice) {
			return &ValidationError{Field: "takeProfit", Reason: "must be above stopPrice for a SELL exit"}
		}
	case SideBuy:
		if req.TakeProfit.GreaterThanOrEqual(req.StopPrice) {
			return &ValidationError{Field: "takeProfit", Reason: "must be below stopPrice for a BUY exit"}
		}
	}
	return nil
}

// Cancel tears down both legs of a pair. Each side is cancelled
// independently so one failure does not leave the other resting; errors
// from both sides are reported together.
func (e *OCOExecutor) Cancel(ctx context.Context, symbol string, tpOrderID, slOrderID int64) error {
	symbol = normalizeSymbol(symbol)

	var tpErr, slErr error
	if _, tpErr = e.client.CancelOrder(ctx, symbol, tpOrderID); tpErr != nil {
		e.logger.Error().Err(tpErr).Int64("order_id", tpOrderID).Msg("Failed to cancel take-profit leg")
	}
	if _, slErr = e.client.CancelOrder(ctx, symbol, slOrderID); slErr != nil {
		e.logger.Error().Err(slErr).Int64("order_id", slOrderID).Msg("Failed to cancel stop-loss leg")
	}

	if tpErr != nil && slErr != nil {
		return fmt.Errorf("cancel OCO: take-profit: %v; stop-loss: %v", tpErr, slErr)
	}
	if tpErr != nil {
		return fmt.Errorf("cancel OCO take-profit leg: %w", tpErr)
	}
	if slErr != nil {
		return fmt.Errorf("cancel OCO stop-loss leg: %w", slErr)
	}

	e.logger.Info().
		Str("symbol", symbol).
		Int64("tp_order_id", tpOrderID).
		Int64("sl_order_id", slOrderID).
		Msg("OCO pair cancelled")
	return nil
}
