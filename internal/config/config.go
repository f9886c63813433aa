// Package config loads daemon configuration from flags, environment
// variables, and an optional .env file, and parses venue credentials.
package config

import (
	"crypto/rsa"
	"errors"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/Tyler-Irving/kalshi-weather-arbitrage-daemon/pkg/signing"
)

var (
	// ErrMissingAPIKey is returned when the venue key id is not configured.
	ErrMissingAPIKey = errors.New("config: KALSHI_API_KEY_ID not set")

	// ErrMissingPrivateKey is returned when no private key material is configured.
	ErrMissingPrivateKey = errors.New("config: KALSHI_PRIVATE_KEY not set")

	// ErrInvalidPrivateKey is returned when the private key cannot be parsed.
	ErrInvalidPrivateKey = errors.New("config: failed to parse private key")
)

// Config holds daemon-wide configuration: venue credentials, notification
// channel tokens, and file-system/server settings. Trading constants live in
// trading.go since spec treats them as compile-time parameters, not runtime
// configuration.
type Config struct {
	Paper bool

	APIKeyID      string
	PrivateKeyPEM string
	PrivateKey    *rsa.PrivateKey
	BaseURL       string

	DataDir  string
	HTTPPort int
	LogLevel string

	SlackWebhookURL            string
	DiscordWebhookURL          string
	TelegramBotToken           string
	TelegramChatID             string
	PaperTradingNotifications bool
}

// Load reads a .env file (if present, via godotenv) into the process
// environment without overriding variables already set, then merges
// environment variables and defaults through viper.
func Load(envFile string) (*Config, error) {
	if envFile == "" {
		envFile = ".env"
	}
	// godotenv.Load never overrides pre-existing environment variables,
	// matching the original's os.environ.setdefault semantics.
	_ = godotenv.Load(envFile)

	v := viper.New()
	v.SetEnvPrefix("")
	v.AutomaticEnv()

	v.SetDefault("PAPER_TRADING", true)
	v.SetDefault("KALSHI_BASE_URL", "")
	v.SetDefault("DATA_DIR", "./data")
	v.SetDefault("HTTP_PORT", 8080)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("PAPER_TRADING_NOTIFICATIONS", false)

	cfg := &Config{
		Paper:                      v.GetBool("PAPER_TRADING"),
		APIKeyID:                   v.GetString("KALSHI_API_KEY_ID"),
		PrivateKeyPEM:              unescapePEM(v.GetString("KALSHI_PRIVATE_KEY")),
		BaseURL:                    v.GetString("KALSHI_BASE_URL"),
		DataDir:                    v.GetString("DATA_DIR"),
		HTTPPort:                   v.GetInt("HTTP_PORT"),
		LogLevel:                   v.GetString("LOG_LEVEL"),
		SlackWebhookURL:            v.GetString("SLACK_WEBHOOK_URL"),
		DiscordWebhookURL:          v.GetString("DISCORD_WEBHOOK_URL"),
		TelegramBotToken:           v.GetString("TELEGRAM_BOT_TOKEN"),
		TelegramChatID:             v.GetString("TELEGRAM_CHAT_ID"),
		PaperTradingNotifications: v.GetBool("PAPER_TRADING_NOTIFICATIONS"),
	}

	if cfg.PrivateKeyPEM != "" {
		key, err := signing.ParsePrivateKeyString(cfg.PrivateKeyPEM)
		if err != nil {
			return nil, errors.Join(ErrInvalidPrivateKey, err)
		}
		cfg.PrivateKey = key
	}

	return cfg, nil
}

// unescapePEM turns a \n-escaped single-line PEM (the common way to ship a
// multiline secret through a .env file) back into real newlines. A PEM that
// already contains real newlines is returned unchanged.
func unescapePEM(raw string) string {
	if raw == "" || strings.Contains(raw, "\n") {
		return raw
	}
	return strings.ReplaceAll(raw, `\n`, "\n")
}

// Validate checks that required venue credentials are present.
func (c *Config) Validate() error {
	if c.APIKeyID == "" {
		return ErrMissingAPIKey
	}
	if c.PrivateKey == nil {
		return ErrMissingPrivateKey
	}
	return nil
}
