package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strconv"
	"time"
)

// Signer produces HMAC-SHA256 signatures for Binance futures API requests.
// The signature is computed over the URL-encoded query string exactly as it
// will be sent, so callers must encode the same url.Values they signed.
type Signer struct {
	apiKey     string
	apiSecret  string
	recvWindow int64
}

// NewSigner creates a signer with the default 5000ms recv window.
func NewSigner(apiKey, apiSecret string) *Signer {
	return &Signer{
		apiKey:     apiKey,
		apiSecret:  apiSecret,
		recvWindow: 5000,
	}
}

// NewSignerWithRecvWindow creates a signer with a custom recv window.
func NewSignerWithRecvWindow(apiKey, apiSecret string, recvWindow int64) *Signer {
	return &Signer{
		apiKey:     apiKey,
		apiSecret:  apiSecret,
		recvWindow: recvWindow,
	}
}

// APIKey returns the API key sent in the X-MBX-APIKEY header.
func (s *Signer) APIKey() string {
	return s.apiKey
}

// RecvWindow returns the recv window in milliseconds.
func (s *Signer) RecvWindow() int64 {
	return s.recvWindow
}

// Sign returns the hex HMAC-SHA256 digest of the encoded parameter set.
func (s *Signer) Sign(params url.Values) string {
	h := hmac.New(sha256.New, []byte(s.apiSecret))
	h.Write([]byte(params.Encode()))
	return hex.EncodeToString(h.Sum(nil))
}

// SignedParams returns a copy of params with a fresh timestamp, the recv
// window, and the resulting signature appended. The timestamp is generated
// here, at send time, so a retried request must call SignedParams again;
// a signature is never reused across attempts.
func (s *Signer) SignedParams(params url.Values) url.Values {
	signed := make(url.Values, len(params)+3)
	for key, values := range params {
		for _, value := range values {
			signed.Add(key, value)
		}
	}

	signed.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))
	if signed.Get("recvWindow") == "" {
		signed.Set("recvWindow", strconv.FormatInt(s.recvWindow, 10))
	}

	signed.Set("signature", s.Sign(signed))
	return signed
}

// Verify reports whether signature matches the given parameter set.
func (s *Signer) Verify(params url.Values, signature string) bool {
	expected := s.Sign(params)
	return hmac.Equal([]byte(expected), []byte(signature))
}
