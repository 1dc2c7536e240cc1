package auth

import (
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Key material from the exchange's public signature documentation.
const (
	testAPIKey    = "vmPUZE6mv9SD5VNHk4HlWFsOr6aKE2zvsw0MuIgwCIPy6utIco14y7Ju91duEh8A"
	testAPISecret = "NhqPtmdSJYdKjVHjA7PZj4Mge3R5YNiP1e3UZjInClVN65XAbvqqM6A7H5fATj0j"
)

func TestSignerSign(t *testing.T) {
	t.Run("known vector", func(t *testing.T) {
		signer := NewSigner(testAPIKey, testAPISecret)

		params := url.Values{}
		params.Set("symbol", "LTCBTC")
		params.Set("side", "BUY")
		params.Set("type", "LIMIT")
		params.Set("timeInForce", "GTC")
		params.Set("quantity", "1")
		params.Set("price", "0.1")
		params.Set("recvWindow", "5000")
		params.Set("timestamp", "1499827319559")

		// Digest of the alphabetically encoded query string.
		assert.Equal(t,
			"70fd30433bc3a2e3b5ff17d075e50538dde3734841da6dc28d79113dd37fa9c7",
			signer.Sign(params))
	})

	t.Run("insertion order does not change the signature", func(t *testing.T) {
		signer := NewSigner(testAPIKey, testAPISecret)

		a := url.Values{}
		a.Set("symbol", "BTCUSDT")
		a.Set("side", "SELL")
		a.Set("timestamp", "1700000000000")

		b := url.Values{}
		b.Set("timestamp", "1700000000000")
		b.Set("side", "SELL")
		b.Set("symbol", "BTCUSDT")

		assert.Equal(t, signer.Sign(a), signer.Sign(b))
	})

	t.Run("different secrets produce different signatures", func(t *testing.T) {
		params := url.Values{}
		params.Set("symbol", "BTCUSDT")

		a := NewSigner("key", "secret-a").Sign(params)
		b := NewSigner("key", "secret-b").Sign(params)
		assert.NotEqual(t, a, b)
	})
}

func TestSignerSignedParams(t *testing.T) {
	t.Run("adds timestamp, recvWindow and signature", func(t *testing.T) {
		signer := NewSigner(testAPIKey, testAPISecret)

		params := url.Values{}
		params.Set("symbol", "BTCUSDT")

		before := time.Now().UnixMilli()
		signed := signer.SignedParams(params)
		after := time.Now().UnixMilli()

		ts, err := strconv.ParseInt(signed.Get("timestamp"), 10, 64)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, ts, before)
		assert.LessOrEqual(t, ts, after)
		assert.Equal(t, "5000", signed.Get("recvWindow"))
		assert.NotEmpty(t, signed.Get("signature"))

		// Input is not mutated.
		assert.Empty(t, params.Get("signature"))
		assert.Empty(t, params.Get("timestamp"))
	})

	t.Run("signature covers exactly what is sent", func(t *testing.T) {
		signer := NewSigner(testAPIKey, testAPISecret)

		params := url.Values{}
		params.Set("symbol", "BTCUSDT")
		params.Set("side", "BUY")

		signed := signer.SignedParams(params)
		signature := signed.Get("signature")
		signed.Del("signature")

		assert.True(t, signer.Verify(signed, signature))
	})

	t.Run("caller recvWindow is kept", func(t *testing.T) {
		signer := NewSignerWithRecvWindow(testAPIKey, testAPISecret, 10000)

		params := url.Values{}
		params.Set("symbol", "BTCUSDT")
		params.Set("recvWindow", "2500")

		signed := signer.SignedParams(params)
		assert.Equal(t, "2500", signed.Get("recvWindow"))
	})

	t.Run("custom recvWindow applied when absent", func(t *testing.T) {
		signer := NewSignerWithRecvWindow(testAPIKey, testAPISecret, 10000)

		signed := signer.SignedParams(url.Values{"symbol": {"BTCUSDT"}})
		assert.Equal(t, "10000", signed.Get("recvWindow"))
	})
}

func TestSignerVerify(t *testing.T) {
	signer := NewSigner(testAPIKey, testAPISecret)

	params := url.Values{}
	params.Set("symbol", "BTCUSDT")

	signature := signer.Sign(params)
	assert.True(t, signer.Verify(params, signature))

	params.Set("symbol", "ETHUSDT")
	assert.False(t, signer.Verify(params, signature))
}
