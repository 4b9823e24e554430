/*
Package core provides configuration management and logging initialization
for the Milo agent service.

This file handles:
- Loading configuration from environment variables with sensible defaults
- Structured logging setup with configurable levels
- Network selection for the deployment environment

Environment variables take precedence so the same binary runs unchanged in
development and production.
*/
package core

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"milo/chain"

	"github.com/sirupsen/logrus"
)

// Config holds all configurable values for the Milo agent service.
type Config struct {
	// Server configuration
	Port        string // HTTP server port number (default: "3000")
	Environment string // Deployment environment; "production" selects Base mainnet (default: "development")
	NetworkID   string // Explicit network override: "base" or "base-sepolia"
	RateLimit   int    // Requests per second allowed per client (default: 20)

	// LLM Provider configuration
	LLMProvider string  // "openai", "gemini" or "ollama" (default: "openai")
	Temperature float64 // Sampling temperature for every model call (default: 0.2)

	OpenAIKey   string // API key for OpenAI (required when using openai provider)
	OpenAIModel string // OpenAI chat model (default: "gpt-4o-mini")

	GeminiAPIKey string // API key for Google Gemini (required when using gemini provider)
	GeminiModel  string // Gemini model name (default: "gemini-2.0-flash")

	OllamaEndpoint string // Base URL for the Ollama API (default: "http://localhost:11434")
	OllamaModel    string // Ollama model name (default: "qwen3")

	// Wallet configuration
	WalletKey           string        // Secret the stored wallet blobs are sealed with
	WalletAPIURL        string        // Wallet platform base URL (default: "https://api.cdp.coinbase.com/platform")
	CDPAPIKeyName       string        // Wallet platform API key name
	CDPAPIKeyPrivateKey string        // Wallet platform API key, PEM encoded EC private key
	WalletPollInterval  time.Duration // How often pending invocations are polled (default: 2s)

	// Chain access
	AlchemyAPIKey string        // Enables the USDC balance tool when set
	ABIURL        string        // Override for the TicketsManager artifact URL
	HTTPTimeout   time.Duration // Timeout for ABI and RPC requests (default: 30s)

	// Wallet record store
	DatabaseDriver string // "mysql" or "sqlite" (default: "mysql")
	DatabaseDSN    string // Data source name for the users database

	// Agent execution configuration
	MaxIterations  int           // Maximum agent reasoning iterations (default: 15)
	RequestTimeout time.Duration // Upper bound for one chat request (default: 300s)

	// Logging configuration
	LogLevel          string // Minimum log level: debug, info, warn, error (default: "info")
	LogTruncateLength int    // Maximum length of logged model output (default: 500)
}

// LoadConfig loads configuration from environment variables with sensible defaults.
//
// Environment Variables:
//   - PORT, ENVIRONMENT, NETWORK_ID, RATE_LIMIT
//   - LLM_PROVIDER, LLM_TEMPERATURE
//   - OPENAI_KEY, OPENAI_MODEL
//   - GEMINI_API_KEY, GEMINI_MODEL
//   - OLLAMA_ENDPOINT, OLLAMA_MODEL
//   - WALLET_KEY, WALLET_API_URL, CDP_API_KEY_NAME, CDP_API_KEY_PRIVATE_KEY
//   - WALLET_POLL_INTERVAL_MS (integer)
//   - ALCHEMY_API_KEY, ABI_URL, HTTP_TIMEOUT_SECONDS (integer)
//   - DATABASE_DRIVER, DATABASE_DSN
//   - MAX_ITERATIONS (integer), REQUEST_TIMEOUT (seconds)
//   - LOG_LEVEL, LOG_TRUNCATE_LENGTH (integer)
func LoadConfig() *Config {
	config := &Config{
		Port:        "3000",
		Environment: "development",
		RateLimit:   20,

		LLMProvider: "openai",
		Temperature: 0.2,
		OpenAIModel: "gpt-4o-mini",
		GeminiModel: "gemini-2.0-flash",

		OllamaEndpoint: "http://localhost:11434",
		OllamaModel:    "qwen3",

		WalletAPIURL:       "https://api.cdp.coinbase.com/platform",
		WalletPollInterval: 2 * time.Second,

		HTTPTimeout: 30 * time.Second,

		DatabaseDriver: "mysql",

		MaxIterations:  15,
		RequestTimeout: 300 * time.Second, // 5 minutes

		LogLevel:          "info",
		LogTruncateLength: 500,
	}

	// Server configuration
	if port := os.Getenv("PORT"); port != "" {
		config.Port = port
	}

	if env := os.Getenv("ENVIRONMENT"); env != "" {
		config.Environment = env
	}

	if networkID := os.Getenv("NETWORK_ID"); networkID != "" {
		config.NetworkID = networkID
	}

	if rateLimit := os.Getenv("RATE_LIMIT"); rateLimit != "" {
		if val, err := strconv.Atoi(rateLimit); err == nil && val > 0 {
			config.RateLimit = val
		}
	}

	// LLM Provider configuration
	if provider := os.Getenv("LLM_PROVIDER"); provider != "" {
		switch provider {
		case "openai", "gemini", "ollama":
			config.LLMProvider = provider
		}
	}

	if temperature := os.Getenv("LLM_TEMPERATURE"); temperature != "" {
		if val, err := strconv.ParseFloat(temperature, 64); err == nil && val >= 0 {
			config.Temperature = val
		}
	}

	if apiKey := os.Getenv("OPENAI_KEY"); apiKey != "" {
		config.OpenAIKey = apiKey
	}

	if model := os.Getenv("OPENAI_MODEL"); model != "" {
		config.OpenAIModel = model
	}

	if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" {
		config.GeminiAPIKey = apiKey
	}

	if model := os.Getenv("GEMINI_MODEL"); model != "" {
		config.GeminiModel = model
	}

	if endpoint := os.Getenv("OLLAMA_ENDPOINT"); endpoint != "" {
		config.OllamaEndpoint = endpoint
	}

	if model := os.Getenv("OLLAMA_MODEL"); model != "" {
		config.OllamaModel = model
	}

	// Wallet configuration
	config.WalletKey = os.Getenv("WALLET_KEY")
	config.CDPAPIKeyName = os.Getenv("CDP_API_KEY_NAME")
	config.CDPAPIKeyPrivateKey = os.Getenv("CDP_API_KEY_PRIVATE_KEY")

	if apiURL := os.Getenv("WALLET_API_URL"); apiURL != "" {
		config.WalletAPIURL = apiURL
	}

	if interval := os.Getenv("WALLET_POLL_INTERVAL_MS"); interval != "" {
		if val, err := strconv.Atoi(interval); err == nil && val > 0 {
			config.WalletPollInterval = time.Duration(val) * time.Millisecond
		}
	}

	// Chain access
	config.AlchemyAPIKey = os.Getenv("ALCHEMY_API_KEY")
	config.ABIURL = os.Getenv("ABI_URL")

	if timeout := os.Getenv("HTTP_TIMEOUT_SECONDS"); timeout != "" {
		if val, err := strconv.Atoi(timeout); err == nil && val > 0 {
			config.HTTPTimeout = time.Duration(val) * time.Second
		}
	}

	// Wallet record store
	if driver := os.Getenv("DATABASE_DRIVER"); driver != "" {
		config.DatabaseDriver = driver
	}
	config.DatabaseDSN = os.Getenv("DATABASE_DSN")

	// Agent execution parameters with validation
	if maxIter := os.Getenv("MAX_ITERATIONS"); maxIter != "" {
		if val, err := strconv.Atoi(maxIter); err == nil && val > 0 {
			config.MaxIterations = val
		}
	}

	if timeout := os.Getenv("REQUEST_TIMEOUT"); timeout != "" {
		if val, err := strconv.Atoi(timeout); err == nil && val > 0 {
			config.RequestTimeout = time.Duration(val) * time.Second
		}
	}

	// Logging configuration
	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		config.LogLevel = logLevel
	}

	if truncateLen := os.Getenv("LOG_TRUNCATE_LENGTH"); truncateLen != "" {
		if val, err := strconv.Atoi(truncateLen); err == nil && val > 0 {
			config.LogTruncateLength = val
		}
	}

	return config
}

// Network returns the chain the service operates on. NETWORK_ID wins over
// the environment when set.
func (c *Config) Network() (chain.Network, error) {
	if c.NetworkID != "" {
		return chain.Lookup(c.NetworkID)
	}
	return chain.ForEnvironment(c.Environment), nil
}

// Validate reports every missing secret or invalid setting at once.
func (c *Config) Validate() error {
	var problems []string

	switch c.LLMProvider {
	case "openai":
		if c.OpenAIKey == "" {
			problems = append(problems, "OPENAI_KEY is required when using the openai provider")
		}
	case "gemini":
		if c.GeminiAPIKey == "" {
			problems = append(problems, "GEMINI_API_KEY is required when using the gemini provider")
		}
	}

	if c.WalletKey == "" {
		problems = append(problems, "WALLET_KEY is required")
	}
	if c.CDPAPIKeyName == "" || c.CDPAPIKeyPrivateKey == "" {
		problems = append(problems, "CDP_API_KEY_NAME and CDP_API_KEY_PRIVATE_KEY are required")
	}
	if c.DatabaseDSN == "" {
		problems = append(problems, "DATABASE_DSN is required")
	}
	if _, err := c.Network(); err != nil {
		problems = append(problems, err.Error())
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.New(strings.Join(problems, "; ")))
	}
	return nil
}

// InitializeLogger configures and returns a structured logger based on the provided configuration.
// The logger writes JSON with RFC3339 timestamps to stdout. The logrus
// standard logger gets the same settings so package level loggers in the
// tools, wallet and chain packages emit the same format.
func InitializeLogger(config *Config) *logrus.Logger {
	logger := logrus.New()
	configureLogger(logger, config)
	configureLogger(logrus.StandardLogger(), config)

	// Secrets are deliberately absent from this list.
	logger.WithFields(logrus.Fields{
		"environment":       config.Environment,
		"networkId":         config.NetworkID,
		"llmProvider":       config.LLMProvider,
		"openaiModel":       config.OpenAIModel,
		"geminiModel":       config.GeminiModel,
		"ollamaModel":       config.OllamaModel,
		"temperature":       config.Temperature,
		"walletApiUrl":      config.WalletAPIURL,
		"databaseDriver":    config.DatabaseDriver,
		"alchemyEnabled":    config.AlchemyAPIKey != "",
		"maxIterations":     config.MaxIterations,
		"requestTimeout":    config.RequestTimeout,
		"rateLimit":         config.RateLimit,
		"logTruncateLength": config.LogTruncateLength,
	}).Info("Configuration loaded")

	return logger
}

func configureLogger(logger *logrus.Logger, config *Config) {
	logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339,
	})

	switch strings.ToLower(config.LogLevel) {
	case "debug":
		logger.SetLevel(logrus.DebugLevel)
	case "info":
		logger.SetLevel(logrus.InfoLevel)
	case "warn", "warning":
		logger.SetLevel(logrus.WarnLevel)
	case "error":
		logger.SetLevel(logrus.ErrorLevel)
	default:
		logger.SetLevel(logrus.InfoLevel)
	}

	logger.SetOutput(os.Stdout)
}
