package api

import (
	"time"

	"github.com/shopspring/decimal"

	"orderbot/internal/strategy"
)

// ErrorResponse is the envelope for every non-2xx API response.
type ErrorResponse struct {
	Error     ErrorDetail `json:"error"`
	Timestamp time.Time   `json:"timestamp"`
}

// ErrorDetail carries the machine-readable error code and message.
type ErrorDetail struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// NewErrorResponse creates an error response envelope.
func NewErrorResponse(code, message, requestID string) ErrorResponse {
	return ErrorResponse{
		Error: ErrorDetail{
			Code:      code,
			Message:   message,
			RequestID: requestID,
		},
		Timestamp: time.Now().UTC(),
	}
}

// MarketOrderRequest is the body for POST /api/orders/market.
type MarketOrderRequest struct {
	Symbol       string          `json:"symbol" binding:"required"`
	Side         string          `json:"side" binding:"required"`
	Quantity     decimal.Decimal `json:"quantity" binding:"required"`
	PositionSide string          `json:"positionSide"`
	ReduceOnly   bool            `json:"reduceOnly"`
}

// LimitOrderRequest is the body for POST /api/orders/limit.
type LimitOrderRequest struct {
	Symbol       string          `json:"symbol" binding:"required"`
	Side         string          `json:"side" binding:"required"`
	Quantity     decimal.Decimal `json:"quantity" binding:"required"`
	Price        decimal.Decimal `json:"price" binding:"required"`
	TimeInForce  string          `json:"timeInForce"`
	PositionSide string          `json:"positionSide"`
	ReduceOnly   bool            `json:"reduceOnly"`
	PostOnly     bool            `json:"postOnly"`
}

// StopLimitOrderRequest is the body for POST /api/orders/stop-limit.
type StopLimitOrderRequest struct {
	Symbol       string          `json:"symbol" binding:"required"`
	Side         string          `json:"side" binding:"required"`
	Quantity     decimal.Decimal `json:"quantity" binding:"required"`
	StopPrice    decimal.Decimal `json:"stopPrice" binding:"required"`
	LimitPrice   decimal.Decimal `json:"limitPrice" binding:"required"`
	WorkingType  string          `json:"workingType"`
	PositionSide string          `json:"positionSide"`
	ReduceOnly   bool            `json:"reduceOnly"`
}

// StopLossRequest is the body for POST /api/orders/stop-loss.
type StopLossRequest struct {
	Symbol       string          `json:"symbol" binding:"required"`
	Side         string          `json:"side" binding:"required"`
	Quantity     decimal.Decimal `json:"quantity" binding:"required"`
	StopPrice    decimal.Decimal `json:"stopPrice" binding:"required"`
	WorkingType  string          `json:"workingType"`
	PositionSide string          `json:"positionSide"`
}

// OCORequest is the body for POST /api/oco.
type OCORequest struct {
	Symbol         string          `json:"symbol" binding:"required"`
	Side           string          `json:"side" binding:"required"`
	Quantity       decimal.Decimal `json:"quantity" binding:"required"`
	TakeProfit     decimal.Decimal `json:"takeProfit" binding:"required"`
	StopPrice      decimal.Decimal `json:"stopPrice" binding:"required"`
	StopLimitPrice decimal.Decimal `json:"stopLimitPrice"`
	PositionSide   string          `json:"positionSide"`
}

// OCOCancelRequest is the body for POST /api/oco/cancel.
type OCOCancelRequest struct {
	Symbol       string `json:"symbol" binding:"required"`
	TakeProfitID int64  `json:"takeProfitOrderId" binding:"required"`
	StopLossID   int64  `json:"stopLossOrderId" binding:"required"`
}

// TWAPStartRequest is the body for POST /api/twap.
type TWAPStartRequest struct {
	Symbol          string          `json:"symbol" binding:"required"`
	Side            string          `json:"side" binding:"required"`
	Quantity        decimal.Decimal `json:"quantity" binding:"required"`
	DurationSeconds int             `json:"durationSeconds" binding:"required"`
	Slices          int             `json:"slices" binding:"required"`
	Randomize       bool            `json:"randomize"`
	OrderType       string          `json:"orderType"`
	LimitPrice      decimal.Decimal `json:"limitPrice"`
	PositionSide    string          `json:"positionSide"`
	ReduceOnly      bool            `json:"reduceOnly"`
}

// GridCreateRequest is the body for POST /api/grid.
type GridCreateRequest struct {
	Symbol       string          `json:"symbol" binding:"required"`
	LowerPrice   decimal.Decimal `json:"lowerPrice" binding:"required"`
	UpperPrice   decimal.Decimal `json:"upperPrice" binding:"required"`
	Levels       int             `json:"levels" binding:"required"`
	QtyPerLevel  decimal.Decimal `json:"qtyPerLevel" binding:"required"`
	PositionSide string          `json:"positionSide"`
}

// TWAPRunView is the status of a background TWAP run.
type TWAPRunView struct {
	ID        string               `json:"id"`
	Status    string               `json:"status"`
	StartedAt time.Time            `json:"startedAt"`
	Result    *strategy.TWAPResult `json:"result,omitempty"`
	Error     string               `json:"error,omitempty"`
}

// GridView is a stored grid with its teardown handle.
type GridView struct {
	ID     string               `json:"id"`
	Result *strategy.GridResult `json:"result"`
}
