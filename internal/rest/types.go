package rest

import (
	"github.com/shopspring/decimal"
)

// OrderRequest describes one futures order. Every recognized option is an
// explicit field; zero values are omitted from the request.
type OrderRequest struct {
	Symbol           string          `json:"symbol"`
	Side             string          `json:"side"` // BUY or SELL
	Type             string          `json:"type"` // MARKET, LIMIT, STOP, STOP_MARKET, TAKE_PROFIT, ...
	Quantity         decimal.Decimal `json:"quantity"`
	Price            decimal.Decimal `json:"price,omitempty"`
	StopPrice        decimal.Decimal `json:"stopPrice,omitempty"`
	TimeInForce      string          `json:"timeInForce,omitempty"` // GTC, IOC, FOK, GTX
	PositionSide     string          `json:"positionSide,omitempty"`
	ReduceOnly       bool            `json:"reduceOnly,omitempty"`
	WorkingType      string          `json:"workingType,omitempty"` // CONTRACT_PRICE or MARK_PRICE
	NewClientOrderID string          `json:"newClientOrderId,omitempty"`
}

// OrderResponse is the exchange's order record.
type OrderResponse struct {
	OrderID       int64           `json:"orderId"`
	Symbol        string          `json:"symbol"`
	Status        string          `json:"status"`
	ClientOrderID string          `json:"clientOrderId"`
	Price         decimal.Decimal `json:"price"`
	AvgPrice      decimal.Decimal `json:"avgPrice"`
	OrigQty       decimal.Decimal `json:"origQty"`
	ExecutedQty   decimal.Decimal `json:"executedQty"`
	TimeInForce   string          `json:"timeInForce"`
	Type          string          `json:"type"`
	ReduceOnly    bool            `json:"reduceOnly"`
	Side          string          `json:"side"`
	PositionSide  string          `json:"positionSide"`
	StopPrice     decimal.Decimal `json:"stopPrice"`
	WorkingType   string          `json:"workingType"`
	UpdateTime    int64           `json:"updateTime"`
}

// Order is an order record from the open-orders listing.
type Order struct {
	Symbol        string          `json:"symbol"`
	OrderID       int64           `json:"orderId"`
	ClientOrderID string          `json:"clientOrderId"`
	Price         decimal.Decimal `json:"price"`
	OrigQty       decimal.Decimal `json:"origQty"`
	ExecutedQty   decimal.Decimal `json:"executedQty"`
	Status        string          `json:"status"`
	TimeInForce   string          `json:"timeInForce"`
	Type          string          `json:"type"`
	Side          string          `json:"side"`
	StopPrice     decimal.Decimal `json:"stopPrice"`
	PositionSide  string          `json:"positionSide"`
	Time          int64           `json:"time"`
	UpdateTime    int64           `json:"updateTime"`
}

// CancelResponse is the exchange's cancellation record.
type CancelResponse struct {
	OrderID       int64           `json:"orderId"`
	Symbol        string          `json:"symbol"`
	Status        string          `json:"status"`
	ClientOrderID string          `json:"clientOrderId"`
	OrigQty       decimal.Decimal `json:"origQty"`
	ExecutedQty   decimal.Decimal `json:"executedQty"`
	Side          string          `json:"side"`
	Type          string          `json:"type"`
}

// TickerPrice is the price ticker response.
type TickerPrice struct {
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
	Time   int64           `json:"time"`
}

// AssetBalance is one entry of the futures account balance listing.
type AssetBalance struct {
	AccountAlias       string          `json:"accountAlias"`
	Asset              string          `json:"asset"`
	Balance            decimal.Decimal `json:"balance"`
	CrossWalletBalance decimal.Decimal `json:"crossWalletBalance"`
	CrossUnPnl         decimal.Decimal `json:"crossUnPnl"`
	AvailableBalance   decimal.Decimal `json:"availableBalance"`
	MaxWithdrawAmount  decimal.Decimal `json:"maxWithdrawAmount"`
	UpdateTime         int64           `json:"updateTime"`
}
