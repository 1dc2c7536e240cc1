package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("BINANCE_API_KEY", "test-key")
	t.Setenv("BINANCE_API_SECRET", "test-secret")
}

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		setRequiredEnv(t)

		cfg, err := Load()
		require.NoError(t, err)

		assert.True(t, cfg.Binance.Testnet)
		assert.Equal(t, testnetBaseURL, cfg.Binance.BaseURL)
		assert.Equal(t, testnetWSBaseURL, cfg.Binance.WSBaseURL)
		assert.Equal(t, 10*time.Second, cfg.Binance.Timeout)
		assert.Equal(t, 3, cfg.Binance.MaxRetries)
		assert.Equal(t, time.Second, cfg.Binance.RetryDelay)
		assert.Equal(t, float64(10), cfg.Binance.RateLimit)
		assert.Equal(t, int64(5000), cfg.Binance.RecvWindow)
		assert.Equal(t, 8080, cfg.Server.Port)
		assert.Equal(t, "info", cfg.Logging.Level)
	})

	t.Run("mainnet URLs follow the testnet flag", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("USE_TESTNET", "false")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, mainnetBaseURL, cfg.Binance.BaseURL)
		assert.Equal(t, mainnetWSBaseURL, cfg.Binance.WSBaseURL)
	})

	t.Run("explicit base URL wins", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("BINANCE_BASE_URL", "http://localhost:9000")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "http://localhost:9000", cfg.Binance.BaseURL)
	})

	t.Run("overrides parse", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("BINANCE_MAX_RETRIES", "5")
		t.Setenv("BINANCE_RETRY_DELAY", "250ms")
		t.Setenv("BINANCE_RATE_LIMIT", "2.5")
		t.Setenv("SERVER_PORT", "9090")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 5, cfg.Binance.MaxRetries)
		assert.Equal(t, 250*time.Millisecond, cfg.Binance.RetryDelay)
		assert.Equal(t, 2.5, cfg.Binance.RateLimit)
		assert.Equal(t, 9090, cfg.Server.Port)
	})

	t.Run("malformed values fall back to defaults", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("BINANCE_MAX_RETRIES", "many")
		t.Setenv("BINANCE_RETRY_DELAY", "soon")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 3, cfg.Binance.MaxRetries)
		assert.Equal(t, time.Second, cfg.Binance.RetryDelay)
	})

	t.Run("missing credentials fail validation", func(t *testing.T) {
		t.Setenv("BINANCE_API_KEY", "")
		t.Setenv("BINANCE_API_SECRET", "")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "BINANCE_API_KEY")
	})
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Binance: BinanceConfig{
				APIKey:     "k",
				APISecret:  "s",
				MaxRetries: 3,
				RetryDelay: time.Second,
			},
			Server: ServerConfig{Port: 8080},
		}
	}

	t.Run("valid config passes", func(t *testing.T) {
		assert.NoError(t, valid().Validate())
	})

	t.Run("zero retries rejected", func(t *testing.T) {
		cfg := valid()
		cfg.Binance.MaxRetries = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("negative retry delay rejected", func(t *testing.T) {
		cfg := valid()
		cfg.Binance.RetryDelay = -time.Second
		assert.Error(t, cfg.Validate())
	})

	t.Run("bad port rejected", func(t *testing.T) {
		cfg := valid()
		cfg.Server.Port = 70000
		assert.Error(t, cfg.Validate())
	})
}
