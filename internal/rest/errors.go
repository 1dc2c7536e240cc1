package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// errorMessages maps Binance futures error codes to human-readable messages.
// Unmapped codes fall back to the raw exchange message plus the code.
var errorMessages = map[int]string{
	-1000: "Insufficient balance or invalid order parameters. Please check your account balance.",
	-1001: "Connection timeout. Please check your internet connection and try again.",
	-1002: "Unauthorized. Please check your API keys.",
	-1003: "Too many requests. Please wait a moment and try again.",
	-1013: "Invalid quantity. Please check the order quantity.",
	-1021: "Timestamp error. Your system time may be out of sync.",
	-1022: "Invalid signature. Please check your API credentials.",
	-2010: "Insufficient balance. You don't have enough funds for this order.",
	-2011: "Unknown order. The order does not exist.",
	-2013: "Order does not exist.",
	-2014: "API key format invalid.",
	-2015: "Invalid API key, IP, or permissions. Please regenerate your API keys.",
	-4000: "Invalid parameter.",
	-4001: "Price too high.",
	-4002: "Price too low.",
	-4003: "Quantity too high.",
	-4004: "Quantity too low.",
	-4131: "Market is closed.",
	-5021: "Due to risk control, your trading is restricted.",
}

// APIError is a non-2xx response from the exchange. A 4xx status means the
// request itself is bad (parameters, auth, account state) and retrying cannot
// fix it; a 5xx status is a transient server failure eligible for retry.
type APIError struct {
	Code       int    `json:"code"`
	Message    string `json:"msg"`
	HTTPStatus int    `json:"-"`
}

// Error returns the translated message for known codes, or the raw exchange
// message with the code appended.
func (e *APIError) Error() string {
	if msg, ok := errorMessages[e.Code]; ok {
		return fmt.Sprintf("%s (Error code: %d)", msg, e.Code)
	}
	return fmt.Sprintf("%s (Error code: %d)", e.Message, e.Code)
}

// IsClientError reports whether this is a 4xx response that must not be retried.
func (e *APIError) IsClientError() bool {
	return e.HTTPStatus >= 400 && e.HTTPStatus < 500
}

// IsServerError reports whether this is a 5xx response eligible for retry.
func (e *APIError) IsServerError() bool {
	return e.HTTPStatus >= 500
}

// NetworkError is a transport-level failure: timeout, connection refused,
// DNS. Always eligible for retry.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network connection error: %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// parseAPIError decodes an error body from a non-2xx response. The body has
// already been read so the caller can log it.
func parseAPIError(resp *http.Response, body []byte) error {
	var apiErr APIError
	jsonErr := json.Unmarshal(body, &apiErr)
	if jsonErr == nil && apiErr.Code != 0 {
		apiErr.HTTPStatus = resp.StatusCode
		return &apiErr
	}

	text := strings.TrimSpace(string(body))
	if text == "" {
		text = "empty response"
	}
	return &APIError{
		Code:       0,
		Message:    fmt.Sprintf("HTTP %d: %s", resp.StatusCode, text),
		HTTPStatus: resp.StatusCode,
	}
}

// IsRetryable reports whether an error is transient: server errors and
// network failures are retried, client errors and context cancellation
// are not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.IsServerError()
	}

	var netErr *NetworkError
	return errors.As(err, &netErr)
}

// errorWithContext wraps err with the name of the failed operation.
func errorWithContext(err error, operation string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", operation, err)
}

// drainBody reads and closes a response body, tolerating read failures.
func drainBody(resp *http.Response) []byte {
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil
	}
	return body
}
