package strategy

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// ValidationError is bad caller input, detected before any network call.
// It is never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// normalizeSymbol upper-cases a symbol for the exchange.
func normalizeSymbol(symbol string) string {
	return strings.ToUpper(symbol)
}

// validateSymbol applies the exchange's minimum-length heuristic. A missing
// USDT suffix is logged as a warning, not rejected, since other quote assets
// exist on some products.
func validateSymbol(logger zerolog.Logger, symbol string) error {
	if len(symbol) < 6 {
		return &ValidationError{Field: "symbol", Reason: fmt.Sprintf("%q is too short", symbol)}
	}
	if !strings.HasSuffix(strings.ToUpper(symbol), "USDT") {
		logger.Warn().Str("symbol", symbol).Msg("Symbol may not be valid, expected USDT suffix")
	}
	return nil
}

// validateSide requires BUY or SELL.
func validateSide(side string) error {
	if side != SideBuy && side != SideSell {
		return &ValidationError{Field: "side", Reason: fmt.Sprintf("%q must be BUY or SELL", side)}
	}
	return nil
}

// validateQuantity requires a strictly positive quantity.
func validateQuantity(quantity decimal.Decimal) error {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return &ValidationError{Field: "quantity", Reason: "must be a positive number"}
	}
	return nil
}

// validatePrice requires a strictly positive price for the named field.
func validatePrice(field string, price decimal.Decimal) error {
	if price.LessThanOrEqual(decimal.Zero) {
		return &ValidationError{Field: field, Reason: "must be a positive number"}
	}
	return nil
}
