package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

var validate = validator.New()

type Config struct {
	DatabaseURL        string `validate:"required"`
	ClerkSecretKey     string `validate:"required"`
	ClerkWebhookSecret string
	Port               string `validate:"required,numeric"`
	AppEnv             string

	MetricsUser string
	MetricsPass string
	CronSecret  string

	SendGridAPIKey    string
	EmailFromAddress  string `validate:"omitempty,email"`
	EmailFromName     string
	EmailBatchSize    int           `validate:"min=1,max=500"`
	EmailPollInterval time.Duration `validate:"min=0"`

	FCMServiceAccountJSON string
	FCMCredentialsFile    string

	RateLimitRPS   float64 `validate:"gt=0"`
	RateLimitBurst int     `validate:"min=1"`

	DefaultTimezone string `validate:"required,timezone"`
}

// Load reads .env when present and builds the config from the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.LookupEnv)
}

// FromEnv builds the config from an arbitrary lookup function.
func FromEnv(lookup func(string) (string, bool)) (*Config, error) {
	get := func(name, fallback string) string {
		if v, ok := lookup(name); ok && v != "" {
			return v
		}
		return fallback
	}

	cfg := &Config{
		DatabaseURL:           get("DATABASE_URL", ""),
		ClerkSecretKey:        get("CLERK_SECRET_KEY", ""),
		ClerkWebhookSecret:    get("CLERK_WEBHOOK_SECRET", ""),
		Port:                  get("PORT", "3333"),
		AppEnv:                get("APP_ENV", "development"),
		MetricsUser:           get("METRICS_USER", ""),
		MetricsPass:           get("METRICS_PASS", ""),
		CronSecret:            get("CRON_SECRET", ""),
		SendGridAPIKey:        get("SENDGRID_API_KEY", ""),
		EmailFromAddress:      get("EMAIL_FROM_ADDRESS", ""),
		EmailFromName:         get("EMAIL_FROM_NAME", "Gritful"),
		FCMServiceAccountJSON: get("FCM_SERVICE_ACCOUNT_JSON", ""),
		FCMCredentialsFile:    get("FCM_CREDENTIALS_FILE", ""),
		DefaultTimezone:       get("DEFAULT_TIMEZONE", "UTC"),
	}

	var err error
	if cfg.EmailBatchSize, err = strconv.Atoi(get("EMAIL_BATCH_SIZE", "50")); err != nil {
		return nil, fmt.Errorf("EMAIL_BATCH_SIZE: %w", err)
	}
	if cfg.EmailPollInterval, err = parseInterval(get("EMAIL_POLL_INTERVAL", "1m")); err != nil {
		return nil, fmt.Errorf("EMAIL_POLL_INTERVAL: %w", err)
	}
	if cfg.RateLimitRPS, err = strconv.ParseFloat(get("RATE_LIMIT_RPS", "5"), 64); err != nil {
		return nil, fmt.Errorf("RATE_LIMIT_RPS: %w", err)
	}
	if cfg.RateLimitBurst, err = strconv.Atoi(get("RATE_LIMIT_BURST", "30")); err != nil {
		return nil, fmt.Errorf("RATE_LIMIT_BURST: %w", err)
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// parseInterval accepts Go durations; a bare "0" disables the poller.
func parseInterval(s string) (time.Duration, error) {
	if s == "0" {
		return 0, nil
	}
	return time.ParseDuration(s)
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production" || c.AppEnv == "prod"
}

func (c *Config) EmailEnabled() bool {
	return c.SendGridAPIKey != "" && c.EmailFromAddress != ""
}
