package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Rationaloptimist140/skills-market-signalgate/internal/provider"
	"github.com/Rationaloptimist140/skills-market-signalgate/internal/x402"

	"go.uber.org/zap"
)

type Config struct {
	SignalGateURL         string
	SignalGateTimeoutSecs int
	PaymentAmount         string
	PaymentCurrency       string
	PaymentNetwork        string
	PaymentPolicy         provider.PaymentPolicy

	HTTPPort int
	APIKey   string

	RedisURL         string
	LedgerMaxEntries int

	TelegramBotToken string

	MCPTransport          string
	MCPHTTPBind           string
	MCPHTTPPort           int
	MCPAuthToken          string
	MCPRequestTimeoutSecs int
	MCPRateLimitPerMin    int
}

// Load reads the environment. Invalid values fall back to defaults with a
// warning; Load never fails.
func Load(log *zap.Logger) *Config {
	if log == nil {
		log = zap.NewNop()
	}

	cfg := &Config{
		SignalGateURL:    strings.TrimSpace(os.Getenv("SIGNALGATE_URL")),
		PaymentAmount:    strings.TrimSpace(os.Getenv("SIGNALGATE_PAYMENT_AMOUNT")),
		PaymentCurrency:  strings.TrimSpace(os.Getenv("SIGNALGATE_PAYMENT_CURRENCY")),
		PaymentNetwork:   strings.TrimSpace(os.Getenv("SIGNALGATE_PAYMENT_NETWORK")),
		APIKey:           os.Getenv("API_KEY"),
		RedisURL:         strings.TrimSpace(os.Getenv("REDIS_URL")),
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		MCPAuthToken:     os.Getenv("MCP_AUTH_TOKEN"),
	}

	def := provider.DefaultSignalGateConfig()
	if cfg.SignalGateURL == "" {
		cfg.SignalGateURL = def.BaseURL
	}
	if cfg.PaymentAmount == "" {
		cfg.PaymentAmount = x402.DefaultAmount
	}
	if cfg.PaymentCurrency == "" {
		cfg.PaymentCurrency = x402.DefaultCurrency
	}
	if cfg.PaymentNetwork == "" {
		cfg.PaymentNetwork = x402.DefaultNetwork
	}

	cfg.SignalGateTimeoutSecs = positiveInt(log, "SIGNALGATE_TIMEOUT_SECS", 10)

	cfg.PaymentPolicy = provider.PaymentPolicy(strings.ToLower(strings.TrimSpace(os.Getenv("SIGNALGATE_PAYMENT_POLICY"))))
	if cfg.PaymentPolicy == "" {
		cfg.PaymentPolicy = provider.PaymentPolicyPay
	}
	if !cfg.PaymentPolicy.IsValid() {
		log.Warn("unsupported SIGNALGATE_PAYMENT_POLICY, defaulting to pay", zap.String("value", string(cfg.PaymentPolicy)))
		cfg.PaymentPolicy = provider.PaymentPolicyPay
	}
	if cfg.PaymentPolicy == provider.PaymentPolicySurface {
		log.Warn("SIGNALGATE_PAYMENT_POLICY=surface is deprecated; 402 responses will not be paid")
	}

	cfg.HTTPPort = positiveInt(log, "HTTP_PORT", 8080)
	if cfg.APIKey == "" {
		log.Info("API_KEY not set, REST API auth disabled")
	}

	if cfg.RedisURL == "" {
		log.Info("REDIS_URL not set, payment ledger disabled")
	}
	cfg.LedgerMaxEntries = positiveInt(log, "LEDGER_MAX_ENTRIES", 500)

	cfg.MCPTransport = strings.ToLower(strings.TrimSpace(os.Getenv("MCP_TRANSPORT")))
	if cfg.MCPTransport == "" {
		cfg.MCPTransport = "stdio"
	}
	if cfg.MCPTransport != "stdio" && cfg.MCPTransport != "http" {
		log.Warn("unsupported MCP_TRANSPORT, defaulting to stdio", zap.String("value", cfg.MCPTransport))
		cfg.MCPTransport = "stdio"
	}

	cfg.MCPHTTPBind = strings.TrimSpace(os.Getenv("MCP_HTTP_BIND"))
	if cfg.MCPHTTPBind == "" {
		cfg.MCPHTTPBind = "127.0.0.1"
	}
	cfg.MCPHTTPPort = positiveInt(log, "MCP_HTTP_PORT", 8090)
	cfg.MCPRequestTimeoutSecs = positiveInt(log, "MCP_REQUEST_TIMEOUT_SECS", 25)
	cfg.MCPRateLimitPerMin = positiveInt(log, "MCP_RATE_LIMIT_PER_MIN", 60)

	return cfg
}

// SignalGate returns the client configuration derived from cfg.
func (c *Config) SignalGate() provider.SignalGateConfig {
	return provider.SignalGateConfig{
		BaseURL: c.SignalGateURL,
		Timeout: time.Duration(c.SignalGateTimeoutSecs) * time.Second,
		Terms: x402.Terms{
			Amount:   c.PaymentAmount,
			Currency: c.PaymentCurrency,
			Network:  c.PaymentNetwork,
		},
		Policy: c.PaymentPolicy,
	}
}

func positiveInt(log *zap.Logger, key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Warn("invalid value, using default", zap.String("key", key), zap.String("value", v), zap.Int("default", def))
		return def
	}
	return n
}
