package strategy

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Order sides.
const (
	SideBuy  = "BUY"
	SideSell = "SELL"
)

// Order types.
const (
	OrderTypeMarket     = "MARKET"
	OrderTypeLimit      = "LIMIT"
	OrderTypeStop       = "STOP" // stop-limit
	OrderTypeStopMarket = "STOP_MARKET"
	OrderTypeTakeProfit = "TAKE_PROFIT"
)

// Position sides.
const (
	PositionSideBoth  = "BOTH"
	PositionSideLong  = "LONG"
	PositionSideShort = "SHORT"
)

// Time in force values.
const (
	TimeInForceGTC = "GTC" // good till cancel
	TimeInForceIOC = "IOC" // immediate or cancel
	TimeInForceFOK = "FOK" // fill or kill
	TimeInForceGTX = "GTX" // post only
)

// Working types: which price feed triggers a conditional order.
const (
	WorkingTypeContractPrice = "CONTRACT_PRICE"
	WorkingTypeMarkPrice     = "MARK_PRICE"
)

// OrderOptions lists every recognized optional order field. Each strategy
// applies the fields that make sense for its order type and ignores the rest.
type OrderOptions struct {
	PositionSide string // defaults to BOTH
	TimeInForce  string // defaults to GTC for limit-type orders
	WorkingType  string // defaults to CONTRACT_PRICE for stop-type orders
	ReduceOnly   bool
	PostOnly     bool // limit orders only; maps to GTX
}

func (o OrderOptions) positionSide() string {
	if o.PositionSide == "" {
		return PositionSideBoth
	}
	return o.PositionSide
}

func (o OrderOptions) timeInForce() string {
	if o.PostOnly {
		return TimeInForceGTX
	}
	if o.TimeInForce == "" {
		return TimeInForceGTC
	}
	return o.TimeInForce
}

func (o OrderOptions) workingType() string {
	if o.WorkingType == "" {
		return WorkingTypeContractPrice
	}
	return o.WorkingType
}

// newClientOrderID generates a tagged client order id, unique per call.
func newClientOrderID(tag string) string {
	return fmt.Sprintf("%s-%s", strings.ToLower(tag), uuid.NewString()[:18])
}
