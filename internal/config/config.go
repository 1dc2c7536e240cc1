package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	mainnetBaseURL = "https://fapi.binance.com"
	testnetBaseURL = "https://testnet.binancefuture.com"

	mainnetWSBaseURL = "wss://fstream.binance.com"
	testnetWSBaseURL = "wss://stream.binancefuture.com"
)

// Config holds all process configuration. It is loaded once at startup and
// treated as read-only for the process lifetime; components receive it (or
// the pieces they need) by injection.
type Config struct {
	Binance BinanceConfig `json:"binance"`
	Server  ServerConfig  `json:"server"`
	Logging LoggingConfig `json:"logging"`
}

// BinanceConfig holds exchange API configuration.
type BinanceConfig struct {
	APIKey     string        `json:"api_key"`
	APISecret  string        `json:"api_secret"`
	BaseURL    string        `json:"base_url"`
	WSBaseURL  string        `json:"ws_base_url"`
	Testnet    bool          `json:"testnet"`
	Timeout    time.Duration `json:"timeout"`
	MaxRetries int           `json:"max_retries"`
	RetryDelay time.Duration `json:"retry_delay"`
	RateLimit  float64       `json:"rate_limit"`
	RateBurst  int           `json:"rate_burst"`
	RecvWindow int64         `json:"recv_window"`
}

// ServerConfig holds the HTTP surface configuration.
type ServerConfig struct {
	Port            int           `json:"port"`
	APIKey          string        `json:"api_key"`
	ReadTimeout     time.Duration `json:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout"`
	IdleTimeout     time.Duration `json:"idle_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"` // json or console
}

// Load reads configuration from the environment, loading a .env file first
// when one is present in the working directory.
func Load() (*Config, error) {
	// Missing .env is fine; real environments export variables directly.
	_ = godotenv.Load()

	config := &Config{
		Binance: BinanceConfig{
			APIKey:     getEnv("BINANCE_API_KEY", ""),
			APISecret:  getEnv("BINANCE_API_SECRET", ""),
			Testnet:    getEnvAsBool("USE_TESTNET", true),
			Timeout:    getEnvAsDuration("BINANCE_TIMEOUT", "10s"),
			MaxRetries: getEnvAsInt("BINANCE_MAX_RETRIES", 3),
			RetryDelay: getEnvAsDuration("BINANCE_RETRY_DELAY", "1s"),
			RateLimit:  getEnvAsFloat("BINANCE_RATE_LIMIT", 10),
			RateBurst:  getEnvAsInt("BINANCE_RATE_BURST", 5),
			RecvWindow: getEnvAsInt64("BINANCE_RECV_WINDOW", 5000),
		},
		Server: ServerConfig{
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			APIKey:          getEnv("SERVER_API_KEY", ""),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", "30s"),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", "30s"),
			IdleTimeout:     getEnvAsDuration("SERVER_IDLE_TIMEOUT", "60s"),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", "10s"),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "console"),
		},
	}

	// Base URLs follow the testnet flag unless overridden explicitly.
	if config.Binance.Testnet {
		config.Binance.BaseURL = getEnv("BINANCE_BASE_URL", testnetBaseURL)
		config.Binance.WSBaseURL = getEnv("BINANCE_WS_BASE_URL", testnetWSBaseURL)
	} else {
		config.Binance.BaseURL = getEnv("BINANCE_BASE_URL", mainnetBaseURL)
		config.Binance.WSBaseURL = getEnv("BINANCE_WS_BASE_URL", mainnetWSBaseURL)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Validate checks required fields and numeric ranges.
func (c *Config) Validate() error {
	if c.Binance.APIKey == "" {
		return fmt.Errorf("BINANCE_API_KEY is required")
	}
	if c.Binance.APISecret == "" {
		return fmt.Errorf("BINANCE_API_SECRET is required")
	}
	if c.Binance.MaxRetries < 1 {
		return fmt.Errorf("BINANCE_MAX_RETRIES must be at least 1")
	}
	if c.Binance.RetryDelay < 0 {
		return fmt.Errorf("BINANCE_RETRY_DELAY must be non-negative")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	return nil
}

// Helper functions for environment variable parsing

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if int64Value, err := strconv.ParseInt(value, 10, 64); err == nil {
			return int64Value
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
