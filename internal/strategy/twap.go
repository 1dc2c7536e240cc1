package strategy

import (
	"context"
	"math/rand"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"orderbot/internal/rest"
)

// quantityPrecision is the decimal precision slices are rounded to.
const quantityPrecision = 8

// TWAPRequest describes a time-weighted average price execution: a total
// quantity worked as market orders over a fixed window.
type TWAPRequest struct {
	Symbol     string
	Side       string
	Quantity   decimal.Decimal
	Duration   time.Duration
	Slices     int
	Randomize  bool            // perturb slice sizes and intervals to reduce footprint
	OrderType  string          // MARKET (default) or LIMIT
	LimitPrice decimal.Decimal // required for LIMIT slices
	Options    OrderOptions
}

// Validate checks the schedule before any order is placed.
func (r TWAPRequest) Validate() error {
	return r.validate(zerolog.Nop())
}

func (r TWAPRequest) validate(logger zerolog.Logger) error {
	if err := validateSymbol(logger, r.Symbol); err != nil {
		return err
	}
	if err := validateSide(r.Side); err != nil {
		return err
	}
	if err := validateQuantity(r.Quantity); err != nil {
		return err
	}
	if r.Slices < 1 {
		return &ValidationError{Field: "slices", Reason: "must be at least 1"}
	}
	if r.Duration < 0 {
		return &ValidationError{Field: "duration", Reason: "must be non-negative"}
	}
	switch r.OrderType {
	case "", OrderTypeMarket:
	case OrderTypeLimit:
		if err := validatePrice("limitPrice", r.LimitPrice); err != nil {
			return err
		}
	default:
		return &ValidationError{Field: "orderType", Reason: "must be MARKET or LIMIT"}
	}
	return nil
}

func (r TWAPRequest) orderType() string {
	if r.OrderType == "" {
		return OrderTypeMarket
	}
	return r.OrderType
}

// TWAPSliceResult records one slice attempt.
type TWAPSliceResult struct {
	Index    int                 `json:"index"`
	Quantity decimal.Decimal     `json:"quantity"`
	Price    decimal.Decimal     `json:"price"`
	Order    *rest.OrderResponse `json:"order,omitempty"`
	Err      error               `json:"-"`
}

// TWAPResult summarizes a finished (or aborted) execution.
type TWAPResult struct {
	Symbol         string            `json:"symbol"`
	Side           string            `json:"side"`
	TotalQuantity  decimal.Decimal   `json:"totalQuantity"`
	FilledQuantity decimal.Decimal   `json:"filledQuantity"`
	AveragePrice   decimal.Decimal   `json:"averagePrice"`
	Slices         []TWAPSliceResult `json:"slices"`
	Completed      int               `json:"completed"`
	Failed         int               `json:"failed"`
	Elapsed        time.Duration     `json:"elapsed"`
}

// TWAPExecutor works a large order as evenly spaced market slices.
type TWAPExecutor struct {
	client *rest.Client
	logger zerolog.Logger
	rng    *rand.Rand

	// sleep is the inter-slice wait hook; replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewTWAPExecutor creates a TWAP executor.
func NewTWAPExecutor(client *rest.Client, logger zerolog.Logger) *TWAPExecutor {
	return &TWAPExecutor{
		client: client,
		logger: logger.With().Str("strategy", "twap").Logger(),
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		sleep: func(ctx context.Context, d time.Duration) error {
			select {
			case <-time.After(d):
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	}
}

// Execute runs the full TWAP schedule. A failed slice is recorded and the
// schedule continues; only context cancellation aborts the run. The result
// is returned even on abort so the caller knows what actually filled.
func (e *TWAPExecutor) Execute(ctx context.Context, req TWAPRequest) (*TWAPResult, error) {
	if err := req.validate(e.logger); err != nil {
		return nil, err
	}

	symbol := normalizeSymbol(req.Symbol)
	quantities := e.sliceQuantities(req.Quantity, req.Slices, req.Randomize)
	interval := req.Duration / time.Duration(req.Slices)

	e.logger.Info().
		Str("symbol", symbol).
		Str("side", req.Side).
		Str("quantity", req.Quantity.String()).
		Int("slices", req.Slices).
		Dur("interval", interval).
		Bool("randomize", req.Randomize).
		Msg("Starting TWAP execution")

	result := &TWAPResult{
		Symbol:        symbol,
		Side:          req.Side,
		TotalQuantity: req.Quantity,
	}
	start := time.Now()
	priceSum := decimal.Zero
	priced := 0

	for i, qty := range quantities {
		if i > 0 {
			wait := interval
			if req.Randomize {
				wait = e.randomizeInterval(interval)
			}
			if err := e.sleep(ctx, wait); err != nil {
				e.logger.Warn().Err(err).Int("slice", i).Msg("TWAP execution aborted")
				e.finish(result, start, priceSum, priced)
				return result, err
			}
		}

		slice := TWAPSliceResult{Index: i, Quantity: qty}

		price, err := e.client.GetPrice(ctx, symbol)
		if err != nil {
			if ctx.Err() != nil {
				result.Slices = append(result.Slices, slice)
				result.Failed++
				e.finish(result, start, priceSum, priced)
				return result, err
			}
			e.logger.Warn().Err(err).Int("slice", i).Msg("Could not read price for slice")
		} else {
			// The sampled price feeds the average regardless of how the
			// slice order itself fares.
			slice.Price = price
			priceSum = priceSum.Add(price)
			priced++
		}

		orderReq := &rest.OrderRequest{
			Symbol:           symbol,
			Side:             req.Side,
			Type:             req.orderType(),
			Quantity:         qty,
			PositionSide:     req.Options.positionSide(),
			ReduceOnly:       req.Options.ReduceOnly,
			NewClientOrderID: newClientOrderID("twap"),
		}
		if orderReq.Type == OrderTypeLimit {
			orderReq.Price = req.LimitPrice
			orderReq.TimeInForce = req.Options.timeInForce()
		}

		order, err := e.client.PlaceOrder(ctx, orderReq)
		if err != nil {
			if ctx.Err() != nil {
				slice.Err = err
				result.Slices = append(result.Slices, slice)
				result.Failed++
				e.finish(result, start, priceSum, priced)
				return result, err
			}
			slice.Err = err
			result.Failed++
			e.logger.Error().Err(err).Int("slice", i).Str("quantity", qty.String()).Msg("Slice failed")
		} else {
			slice.Order = order
			result.Completed++
			result.FilledQuantity = result.FilledQuantity.Add(qty)
			e.logger.Info().
				Int("slice", i).
				Int64("order_id", order.OrderID).
				Str("quantity", qty.String()).
				Msg("Slice executed")
		}
		result.Slices = append(result.Slices, slice)
	}

	e.finish(result, start, priceSum, priced)
	e.logger.Info().
		Str("symbol", symbol).
		Int("completed", result.Completed).
		Int("failed", result.Failed).
		Str("filled_quantity", result.FilledQuantity.String()).
		Str("average_price", result.AveragePrice.String()).
		Msg("TWAP execution finished")
	return result, nil
}

func (e *TWAPExecutor) finish(result *TWAPResult, start time.Time, priceSum decimal.Decimal, priced int) {
	result.Elapsed = time.Since(start)
	if priced > 0 {
		result.AveragePrice = priceSum.Div(decimal.NewFromInt(int64(priced))).Round(quantityPrecision)
	}
}

// sliceQuantities divides the total into n slices that sum exactly to the
// total. With randomization each slice is perturbed by a uniform factor in
// [0.8, 1.2], then all slices are rescaled so the sum is preserved. The
// last slice absorbs any rounding residual.
func (e *TWAPExecutor) sliceQuantities(total decimal.Decimal, n int, randomize bool) []decimal.Decimal {
	quantities := make([]decimal.Decimal, n)
	base := total.Div(decimal.NewFromInt(int64(n)))

	if !randomize {
		running := decimal.Zero
		for i := 0; i < n-1; i++ {
			quantities[i] = base.Round(quantityPrecision)
			running = running.Add(quantities[i])
		}
		quantities[n-1] = total.Sub(running)
		return quantities
	}

	factors := make([]decimal.Decimal, n)
	factorSum := decimal.Zero
	for i := range factors {
		factors[i] = decimal.NewFromFloat(0.8 + e.rng.Float64()*0.4)
		factorSum = factorSum.Add(factors[i])
	}

	// Rescale so perturbed slices still sum to the total.
	running := decimal.Zero
	for i := 0; i < n-1; i++ {
		quantities[i] = total.Mul(factors[i]).Div(factorSum).Round(quantityPrecision)
		running = running.Add(quantities[i])
	}
	quantities[n-1] = total.Sub(running)
	return quantities
}

// randomizeInterval perturbs the wait by a uniform factor in [0.8, 1.2],
// truncated to whole seconds when the base interval is at least a second.
func (e *TWAPExecutor) randomizeInterval(interval time.Duration) time.Duration {
	factor := 0.8 + e.rng.Float64()*0.4
	d := time.Duration(float64(interval) * factor)
	if interval >= time.Second {
		d = d.Truncate(time.Second)
		if d <= 0 {
			d = time.Second
		}
	}
	return d
}
