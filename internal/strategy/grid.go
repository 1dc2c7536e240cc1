package strategy

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"orderbot/internal/rest"
)

// pricePrecision is the decimal precision grid prices are submitted at.
const pricePrecision = 2

// GridRequest describes a symmetric grid of resting limit orders between a
// lower and upper price bound.
type GridRequest struct {
	Symbol      string
	LowerPrice  decimal.Decimal
	UpperPrice  decimal.Decimal
	Levels      int
	QtyPerLevel decimal.Decimal
	Options     OrderOptions
}

// GridOrder is one placed grid level.
type GridOrder struct {
	Level    int                 `json:"level"`
	Side     string              `json:"side"`
	Price    decimal.Decimal     `json:"price"`
	Quantity decimal.Decimal     `json:"quantity"`
	Order    *rest.OrderResponse `json:"order"`
}

// GridFailure is one level that could not be placed.
type GridFailure struct {
	Level int             `json:"level"`
	Side  string          `json:"side"`
	Price decimal.Decimal `json:"price"`
	Err   error           `json:"-"`
}

// GridResult summarizes a created grid.
type GridResult struct {
	Symbol       string            `json:"symbol"`
	Levels       []decimal.Decimal `json:"levels"`
	CurrentPrice decimal.Decimal   `json:"currentPrice"`
	Buys         []GridOrder       `json:"buys"`
	Sells        []GridOrder       `json:"sells"`
	Failed       []GridFailure     `json:"failed,omitempty"`
	CreatedAt    time.Time         `json:"createdAt"`
}

// OrderIDs returns the exchange order ids of every placed level, buys first.
func (r *GridResult) OrderIDs() []int64 {
	ids := make([]int64, 0, len(r.Buys)+len(r.Sells))
	for _, o := range r.Buys {
		ids = append(ids, o.Order.OrderID)
	}
	for _, o := range r.Sells {
		ids = append(ids, o.Order.OrderID)
	}
	return ids
}

// GridExecutor places and tears down grids of limit orders.
type GridExecutor struct {
	client *rest.Client
	logger zerolog.Logger
}

// NewGridExecutor creates a grid executor.
func NewGridExecutor(client *rest.Client, logger zerolog.Logger) *GridExecutor {
	return &GridExecutor{
		client: client,
		logger: logger.With().Str("strategy", "grid").Logger(),
	}
}

// Create computes evenly spaced levels across the band and places a BUY
// below the current price and a SELL above it at each level. A level equal
// to the current price is skipped. Buys are placed in ascending price
// order, then sells in ascending price order. A failed level is recorded
// and placement continues; only context cancellation aborts.
func (e *GridExecutor) Create(ctx context.Context, req GridRequest) (*GridResult, error) {
	if err := validateSymbol(e.logger, req.Symbol); err != nil {
		return nil, err
	}
	if err := validatePrice("lowerPrice", req.LowerPrice); err != nil {
		return nil, err
	}
	if err := validatePrice("upperPrice", req.UpperPrice); err != nil {
		return nil, err
	}
	if req.UpperPrice.LessThanOrEqual(req.LowerPrice) {
		return nil, &ValidationError{Field: "upperPrice", Reason: "must be above lowerPrice"}
	}
	if req.Levels < 2 {
		return nil, &ValidationError{Field: "levels", Reason: "must be at least 2"}
	}
	if err := validateQuantity(req.QtyPerLevel); err != nil {
		return nil, err
	}

	symbol := normalizeSymbol(req.Symbol)
	current, err := e.client.GetPrice(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if current.LessThan(req.LowerPrice) || current.GreaterThan(req.UpperPrice) {
		e.logger.Warn().
			Str("symbol", symbol).
			Str("current_price", current.String()).
			Str("lower", req.LowerPrice.String()).
			Str("upper", req.UpperPrice.String()).
			Msg("Current price is outside the grid band, all orders will be one-sided")
	}

	levels := gridLevels(req.LowerPrice, req.UpperPrice, req.Levels)
	result := &GridResult{
		Symbol:       symbol,
		Levels:       levels,
		CurrentPrice: current,
		CreatedAt:    time.Now().UTC(),
	}

	e.logger.Info().
		Str("symbol", symbol).
		Str("current_price", current.String()).
		Int("levels", req.Levels).
		Str("qty_per_level", req.QtyPerLevel.String()).
		Msg("Creating grid")

	// Buys first, ascending, then sells ascending.
	for i, level := range levels {
		if !level.LessThan(current) {
			continue
		}
		if err := e.placeLevel(ctx, req, result, i, SideBuy, level); err != nil {
			return result, err
		}
	}
	for i, level := range levels {
		if !level.GreaterThan(current) {
			if level.Equal(current) {
				e.logger.Info().Str("price", level.String()).Msg("Level equals current price, skipped")
			}
			continue
		}
		if err := e.placeLevel(ctx, req, result, i, SideSell, level); err != nil {
			return result, err
		}
	}

	e.logger.Info().
		Str("symbol", symbol).
		Int("buys", len(result.Buys)).
		Int("sells", len(result.Sells)).
		Int("failed", len(result.Failed)).
		Msg("Grid created")
	return result, nil
}

func (e *GridExecutor) placeLevel(ctx context.Context, req GridRequest, result *GridResult, level int, side string, price decimal.Decimal) error {
	order, err := e.client.PlaceOrder(ctx, &rest.OrderRequest{
		Symbol:           result.Symbol,
		Side:             side,
		Type:             OrderTypeLimit,
		Quantity:         req.QtyPerLevel,
		Price:            price.Round(pricePrecision),
		TimeInForce:      req.Options.timeInForce(),
		PositionSide:     req.Options.positionSide(),
		NewClientOrderID: newClientOrderID("grid"),
	})
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		result.Failed = append(result.Failed, GridFailure{Level: level, Side: side, Price: price, Err: err})
		e.logger.Error().Err(err).
			Int("level", level).
			Str("side", side).
			Str("price", price.String()).
			Msg("Failed to place grid level")
		return nil
	}

	placed := GridOrder{Level: level, Side: side, Price: price, Quantity: req.QtyPerLevel, Order: order}
	if side == SideBuy {
		result.Buys = append(result.Buys, placed)
	} else {
		result.Sells = append(result.Sells, placed)
	}
	e.logger.Info().
		Int("level", level).
		Str("side", side).
		Str("price", price.String()).
		Int64("order_id", order.OrderID).
		Msg("Grid level placed")
	return nil
}

// gridLevels returns n evenly spaced prices from lower to upper inclusive.
// The endpoints are set exactly rather than recomputed, so division rounding
// never shifts the band edges.
func gridLevels(lower, upper decimal.Decimal, n int) []decimal.Decimal {
	levels := make([]decimal.Decimal, n)
	step := upper.Sub(lower).Div(decimal.NewFromInt(int64(n - 1)))
	levels[0] = lower
	for i := 1; i < n-1; i++ {
		levels[i] = lower.Add(step.Mul(decimal.NewFromInt(int64(i))))
	}
	levels[n-1] = upper
	return levels
}

// Cancel tears down a grid by cancelling every order id independently. A
// failed cancel is logged and the teardown continues; already-gone orders
// (filled or cancelled elsewhere) count as failures here and the caller
// decides whether that matters.
func (e *GridExecutor) Cancel(ctx context.Context, symbol string, orderIDs []int64) (cancelled, failed int) {
	symbol = normalizeSymbol(symbol)
	for _, id := range orderIDs {
		if _, err := e.client.CancelOrder(ctx, symbol, id); err != nil {
			failed++
			e.logger.Error().Err(err).Int64("order_id", id).Msg("Failed to cancel grid order")
			continue
		}
		cancelled++
		e.logger.Info().Int64("order_id", id).Msg("Grid order cancelled")
	}
	e.logger.Info().
		Str("symbol", symbol).
		Int("cancelled", cancelled).
		Int("failed", failed).
		Msg("Grid teardown finished")
	return cancelled, failed
}

// CancelAllOpen tears down every open order on the symbol. Used when the
// caller no longer holds the ids from Create.
func (e *GridExecutor) CancelAllOpen(ctx context.Context, symbol string) (cancelled, failed int, err error) {
	symbol = normalizeSymbol(symbol)
	orders, err := e.client.GetOpenOrders(ctx, symbol)
	if err != nil {
		return 0, 0, err
	}
	if len(orders) == 0 {
		e.logger.Info().Str("symbol", symbol).Msg("No open orders to cancel")
		return 0, 0, nil
	}

	ids := make([]int64, len(orders))
	for i, o := range orders {
		ids[i] = o.OrderID
	}
	cancelled, failed = e.Cancel(ctx, symbol, ids)
	return cancelled, failed, nil
}
