// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Bot delivery modes.
const (
	BotModeWebhook = "webhook"
	BotModePolling = "polling"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabaseURL is the Postgres DSN.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// RedisAddr is host:port of the Redis instance holding bot conversation state and the asynq queue.
	RedisAddr string `mapstructure:"REDIS_ADDR"`
	// RedisPassword is optional.
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	// RedisDB is the Redis logical database index.
	RedisDB int `mapstructure:"REDIS_DB"`

	// JWTPrivateKey is the PEM-encoded private key (RSA or ECDSA) or path to file; used with JWT_PUBLIC_KEY for RS256/ES256.
	JWTPrivateKey string `mapstructure:"JWT_PRIVATE_KEY"`
	// JWTPublicKey is the PEM-encoded public key or path to file; used with JWT_PRIVATE_KEY.
	JWTPublicKey string `mapstructure:"JWT_PUBLIC_KEY"`
	// JWTIssuer is the iss claim (e.g. "storefront-auth").
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// JWTAudience is the aud claim (e.g. "storefront-web").
	JWTAudience string `mapstructure:"JWT_AUDIENCE"`
	// JWTAccessTTL is the access token lifetime (e.g. "15m").
	JWTAccessTTL string `mapstructure:"JWT_ACCESS_TTL"`
	// JWTRefreshTTL is the refresh token lifetime (e.g. "168h").
	JWTRefreshTTL string `mapstructure:"JWT_REFRESH_TTL"`
	// BcryptCost is the bcrypt cost factor (4–31); default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`

	// PendingTTLRaw is how long a pending registration stays usable (e.g. "24h").
	PendingTTLRaw string `mapstructure:"PENDING_TTL"`
	// PurgeSchedule is the asynq cron spec for the pending purge task.
	PurgeSchedule string `mapstructure:"PURGE_SCHEDULE"`
	// ConversationTTLRaw bounds how long the bot remembers which token a chat started with.
	ConversationTTLRaw string `mapstructure:"CONVERSATION_TTL"`
	// WorkerMetricsAddr is where cmd/worker serves /metrics. Empty disables it.
	WorkerMetricsAddr string `mapstructure:"WORKER_METRICS_ADDR"`
	// PollIntervalSeconds is advertised to clients polling /check-phone-verification.
	PollIntervalSeconds int `mapstructure:"POLL_INTERVAL_SECONDS"`

	// BotToken is the Telegram bot API token. Empty disables the bot.
	BotToken string `mapstructure:"BOT_TOKEN"`
	// BotUsername is used to build the t.me deep link. Empty falls back to the name Telegram reports for BOT_TOKEN.
	BotUsername string `mapstructure:"BOT_USERNAME"`
	// BotWebhookSecret, when set, must match the X-Telegram-Bot-Api-Secret-Token header on webhook calls.
	BotWebhookSecret string `mapstructure:"BOT_WEBHOOK_SECRET"`
	// BotMode is "webhook" or "polling".
	BotMode string `mapstructure:"BOT_MODE"`

	// KafkaBrokers is a comma-separated list of Kafka broker addresses. Empty disables registration events.
	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// RegistrationEventsTopic is the Kafka topic for registration lifecycle events.
	RegistrationEventsTopic string `mapstructure:"REGISTRATION_EVENTS_TOPIC"`

	// OTLPEndpoint is the OTLP gRPC endpoint for traces. Empty disables tracing.
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// OTLPInsecure disables TLS to the collector.
	OTLPInsecure bool `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	// ServiceName is reported as service.name.
	ServiceName string `mapstructure:"OTEL_SERVICE_NAME"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `mapstructure:"LOG_LEVEL"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`

	// RegisterRatePerMin is the per-IP request budget for the registration endpoints.
	RegisterRatePerMin int `mapstructure:"REGISTER_RATE_PER_MIN"`
	// TrustedProxiesRaw is a comma-separated list of proxy IPs/CIDRs allowed to set X-Forwarded-For.
	// Empty trusts none.
	TrustedProxiesRaw string `mapstructure:"TRUSTED_PROXIES"`
	// CORSAllowedOrigins is a comma-separated list; empty allows all origins.
	CORSAllowedOrigins string `mapstructure:"CORS_ALLOWED_ORIGINS"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("JWT_PRIVATE_KEY", "")
	v.SetDefault("JWT_PUBLIC_KEY", "")
	v.SetDefault("JWT_ISSUER", "storefront-auth")
	v.SetDefault("JWT_AUDIENCE", "storefront-web")
	v.SetDefault("JWT_ACCESS_TTL", "15m")
	v.SetDefault("JWT_REFRESH_TTL", "168h") // 7d
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("PENDING_TTL", "24h")
	v.SetDefault("PURGE_SCHEDULE", "@every 1h")
	v.SetDefault("WORKER_METRICS_ADDR", ":9091")
	v.SetDefault("CONVERSATION_TTL", "1h")
	v.SetDefault("POLL_INTERVAL_SECONDS", 3)
	v.SetDefault("BOT_TOKEN", "")
	v.SetDefault("BOT_USERNAME", "")
	v.SetDefault("BOT_WEBHOOK_SECRET", "")
	v.SetDefault("BOT_MODE", BotModeWebhook)
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("REGISTRATION_EVENTS_TOPIC", "storefront-registration")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("OTEL_SERVICE_NAME", "storefront-registration")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("APP_ENV", "")
	v.SetDefault("REGISTER_RATE_PER_MIN", 20)
	v.SetDefault("TRUSTED_PROXIES", "")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 12
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}

	cfg.BotMode = strings.ToLower(strings.TrimSpace(cfg.BotMode))
	if cfg.BotMode != BotModeWebhook && cfg.BotMode != BotModePolling {
		return nil, errors.New("config: BOT_MODE must be webhook or polling")
	}
	if cfg.Env == "production" && cfg.BotToken != "" && cfg.BotMode == BotModeWebhook && cfg.BotWebhookSecret == "" {
		return nil, errors.New("config: BOT_WEBHOOK_SECRET must be set for webhook mode when APP_ENV=production")
	}

	if cfg.PollIntervalSeconds <= 0 {
		cfg.PollIntervalSeconds = 3
	}
	if cfg.RegisterRatePerMin <= 0 {
		cfg.RegisterRatePerMin = 20
	}

	return &cfg, nil
}

// AccessTTL parses JWTAccessTTL as a time.Duration. Returns 15m if unset or invalid.
func (c *Config) AccessTTL() time.Duration {
	return parseDuration(c.JWTAccessTTL, 15*time.Minute)
}

// RefreshTTL parses JWTRefreshTTL as a time.Duration. Returns 168h if unset or invalid.
func (c *Config) RefreshTTL() time.Duration {
	return parseDuration(c.JWTRefreshTTL, 168*time.Hour)
}

// PendingTTL returns the pending registration lifetime. Returns 24h if unset or invalid.
func (c *Config) PendingTTL() time.Duration {
	return parseDuration(c.PendingTTLRaw, 24*time.Hour)
}

// ConversationTTL returns how long bot chat correlation is kept. Returns 1h if unset or invalid.
func (c *Config) ConversationTTL() time.Duration {
	return parseDuration(c.ConversationTTLRaw, time.Hour)
}

// KafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// An empty list means registration events are disabled.
func (c *Config) KafkaBrokersList() []string {
	if c == nil {
		return nil
	}
	return splitList(c.KafkaBrokers)
}

// CORSOrigins returns the allowed CORS origins; nil means allow all.
func (c *Config) CORSOrigins() []string {
	if c == nil {
		return nil
	}
	return splitList(c.CORSAllowedOrigins)
}

// TrustedProxies returns the proxies whose forwarded client IP headers are honored; nil means none.
func (c *Config) TrustedProxies() []string {
	if c == nil {
		return nil
	}
	return splitList(c.TrustedProxiesRaw)
}

// BotEnabled reports whether a Telegram bot token is configured.
func (c *Config) BotEnabled() bool {
	return c != nil && c.BotToken != ""
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
