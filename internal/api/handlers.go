package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"orderbot/internal/rest"
	"orderbot/internal/strategy"
)

// Handlers exposes every strategy operation over HTTP.
type Handlers struct {
	client    *rest.Client
	market    *strategy.MarketExecutor
	limit     *strategy.LimitExecutor
	stopLimit *strategy.StopLimitExecutor
	oco       *strategy.OCOExecutor
	twap      *strategy.TWAPExecutor
	grid      *strategy.GridExecutor
	registry  *Registry
	logger    zerolog.Logger
}

// NewHandlers wires the strategy executors behind the HTTP surface.
func NewHandlers(client *rest.Client, logger zerolog.Logger) *Handlers {
	return &Handlers{
		client:    client,
		market:    strategy.NewMarketExecutor(client, logger),
		limit:     strategy.NewLimitExecutor(client, logger),
		stopLimit: strategy.NewStopLimitExecutor(client, logger),
		oco:       strategy.NewOCOExecutor(client, logger),
		twap:      strategy.NewTWAPExecutor(client, logger),
		grid:      strategy.NewGridExecutor(client, logger),
		registry:  NewRegistry(),
		logger:    logger.With().Str("component", "api").Logger(),
	}
}

// writeError maps internal error types onto HTTP statuses: caller mistakes
// are 400, exchange rejections 422, upstream/server trouble 502.
func (h *Handlers) writeError(c *gin.Context, err error) {
	requestID := c.GetString("request_id")

	var vErr *strategy.ValidationError
	if errors.As(err, &vErr) {
		c.JSON(http.StatusBadRequest, NewErrorResponse("VALIDATION_ERROR", vErr.Error(), requestID))
		return
	}

	var apiErr *rest.APIError
	if errors.As(err, &apiErr) {
		if apiErr.IsClientError() {
			c.JSON(http.StatusUnprocessableEntity, NewErrorResponse("EXCHANGE_REJECTED", apiErr.Error(), requestID))
			return
		}
		c.JSON(http.StatusBadGateway, NewErrorResponse("EXCHANGE_ERROR", apiErr.Error(), requestID))
		return
	}

	var netErr *rest.NetworkError
	if errors.As(err, &netErr) {
		c.JSON(http.StatusBadGateway, NewErrorResponse("UPSTREAM_UNREACHABLE", netErr.Error(), requestID))
		return
	}

	c.JSON(http.StatusInternalServerError, NewErrorResponse("INTERNAL_ERROR", err.Error(), requestID))
}

func (h *Handlers) bindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, NewErrorResponse("INVALID_REQUEST", err.Error(), c.GetString("request_id")))
}

// GetPrice handles GET /api/price/:symbol.
func (h *Handlers) GetPrice(c *gin.Context) {
	symbol := c.Param("symbol")
	price, err := h.client.GetPrice(c.Request.Context(), symbol)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"symbol": symbol, "price": price})
}

// GetBalance handles GET /api/balance.
func (h *Handlers) GetBalance(c *gin.Context) {
	balances, err := h.client.GetBalance(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"balances": balances})
}

// GetOpenOrders handles GET /api/orders. The symbol query parameter narrows
// the listing to one symbol.
func (h *Handlers) GetOpenOrders(c *gin.Context) {
	orders, err := h.client.GetOpenOrders(c.Request.Context(), c.Query("symbol"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// PlaceMarketOrder handles POST /api/orders/market.
func (h *Handlers) PlaceMarketOrder(c *gin.Context) {
	var req MarketOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	resp, err := h.market.PlaceOrder(c.Request.Context(), req.Symbol, req.Side, req.Quantity, strategy.OrderOptions{
		PositionSide: req.PositionSide,
		ReduceOnly:   req.ReduceOnly,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// PlaceLimitOrder handles POST /api/orders/limit.
func (h *Handlers) PlaceLimitOrder(c *gin.Context) {
	var req LimitOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	resp, err := h.limit.PlaceOrder(c.Request.Context(), req.Symbol, req.Side, req.Quantity, req.Price, strategy.OrderOptions{
		TimeInForce:  req.TimeInForce,
		PositionSide: req.PositionSide,
		ReduceOnly:   req.ReduceOnly,
		PostOnly:     req.PostOnly,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// PlaceStopLimitOrder handles POST /api/orders/stop-limit.
func (h *Handlers) PlaceStopLimitOrder(c *gin.Context) {
	var req StopLimitOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	resp, err := h.stopLimit.PlaceOrder(c.Request.Context(), req.Symbol, req.Side, req.Quantity, req.StopPrice, req.LimitPrice, strategy.OrderOptions{
		WorkingType:  req.WorkingType,
		PositionSide: req.PositionSide,
		ReduceOnly:   req.ReduceOnly,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// PlaceStopLoss handles POST /api/orders/stop-loss.
func (h *Handlers) PlaceStopLoss(c *gin.Context) {
	var req StopLossRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	resp, err := h.stopLimit.PlaceStopLoss(c.Request.Context(), req.Symbol, req.Side, req.Quantity, req.StopPrice, strategy.OrderOptions{
		WorkingType:  req.WorkingType,
		PositionSide: req.PositionSide,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// CancelOrder handles DELETE /api/orders/:symbol/:orderId.
func (h *Handlers) CancelOrder(c *gin.Context) {
	orderID, err := strconv.ParseInt(c.Param("orderId"), 10, 64)
	if err != nil || orderID <= 0 {
		h.bindError(c, errors.New("orderId must be a positive integer"))
		return
	}

	resp, err := h.client.CancelOrder(c.Request.Context(), c.Param("symbol"), orderID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// PlaceOCO handles POST /api/oco.
func (h *Handlers) PlaceOCO(c *gin.Context) {
	var req OCORequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	result, err := h.oco.Place(c.Request.Context(), strategy.OCORequest{
		Symbol:         req.Symbol,
		Side:           req.Side,
		Quantity:       req.Quantity,
		TakeProfit:     req.TakeProfit,
		StopPrice:      req.StopPrice,
		StopLimitPrice: req.StopLimitPrice,
		Options:        strategy.OrderOptions{PositionSide: req.PositionSide},
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// CancelOCO handles POST /api/oco/cancel.
func (h *Handlers) CancelOCO(c *gin.Context) {
	var req OCOCancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	if err := h.oco.Cancel(c.Request.Context(), req.Symbol, req.TakeProfitID, req.StopLossID); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cancelled": true})
}

// StartTWAP handles POST /api/twap. The run executes in the background; the
// response carries the id for polling and cancellation.
func (h *Handlers) StartTWAP(c *gin.Context) {
	var req TWAPStartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	twapReq := strategy.TWAPRequest{
		Symbol:     req.Symbol,
		Side:       req.Side,
		Quantity:   req.Quantity,
		Duration:   time.Duration(req.DurationSeconds) * time.Second,
		Slices:     req.Slices,
		Randomize:  req.Randomize,
		OrderType:  req.OrderType,
		LimitPrice: req.LimitPrice,
		Options: strategy.OrderOptions{
			PositionSide: req.PositionSide,
			ReduceOnly:   req.ReduceOnly,
		},
	}

	// Validate synchronously so bad input fails the request, not the run.
	if err := twapReq.Validate(); err != nil {
		h.writeError(c, err)
		return
	}

	id := h.registry.StartTWAP(h.twap, twapReq)
	c.JSON(http.StatusAccepted, gin.H{"id": id, "status": RunStatusRunning})
}

// GetTWAP handles GET /api/twap/:id.
func (h *Handlers) GetTWAP(c *gin.Context) {
	view, ok := h.registry.TWAP(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, NewErrorResponse("NOT_FOUND", "unknown TWAP run", c.GetString("request_id")))
		return
	}
	c.JSON(http.StatusOK, view)
}

// CancelTWAP handles DELETE /api/twap/:id.
func (h *Handlers) CancelTWAP(c *gin.Context) {
	if !h.registry.CancelTWAP(c.Param("id")) {
		c.JSON(http.StatusNotFound, NewErrorResponse("NOT_FOUND", "unknown TWAP run", c.GetString("request_id")))
		return
	}
	c.JSON(http.StatusOK, gin.H{"aborted": true})
}

// CreateGrid handles POST /api/grid.
func (h *Handlers) CreateGrid(c *gin.Context) {
	var req GridCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	result, err := h.grid.Create(c.Request.Context(), strategy.GridRequest{
		Symbol:      req.Symbol,
		LowerPrice:  req.LowerPrice,
		UpperPrice:  req.UpperPrice,
		Levels:      req.Levels,
		QtyPerLevel: req.QtyPerLevel,
		Options:     strategy.OrderOptions{PositionSide: req.PositionSide},
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	id := h.registry.AddGrid(result)
	c.JSON(http.StatusCreated, GridView{ID: id, Result: result})
}

// GetGrid handles GET /api/grid/:id.
func (h *Handlers) GetGrid(c *gin.Context) {
	view, ok := h.registry.Grid(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, NewErrorResponse("NOT_FOUND", "unknown grid", c.GetString("request_id")))
		return
	}
	c.JSON(http.StatusOK, view)
}

// CancelGrid handles DELETE /api/grid/:id.
func (h *Handlers) CancelGrid(c *gin.Context) {
	view, ok := h.registry.RemoveGrid(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, NewErrorResponse("NOT_FOUND", "unknown grid", c.GetString("request_id")))
		return
	}

	cancelled, failed := h.grid.Cancel(c.Request.Context(), view.Result.Symbol, view.Result.OrderIDs())
	c.JSON(http.StatusOK, gin.H{"cancelled": cancelled, "failed": failed})
}
