package app

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"45s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"40s"`
	AppRateLimit      int           `envconfig:"APP_RATE_LIMIT" default:"120"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`
	LogLevel  string `envconfig:"LOG_LEVEL"`

	RedisAddr     string        `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD"`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0"`
	SessionSecret string        `envconfig:"SESSION_SECRET" required:"true"`
	SessionTTL    time.Duration `envconfig:"SESSION_TTL" default:"12h"`

	CSRFSecret string `envconfig:"CSRF_SECRET" required:"true"`

	UpstreamBaseURL      string        `envconfig:"UPSTREAM_BASE_URL" required:"true"`
	UpstreamTimeout      time.Duration `envconfig:"UPSTREAM_TIMEOUT" default:"20s"`
	UpstreamServiceToken string        `envconfig:"UPSTREAM_SERVICE_TOKEN"`

	CacheTTL         time.Duration `envconfig:"CACHE_TTL" default:"5m"`
	DashboardIdleTTL time.Duration `envconfig:"DASHBOARD_IDLE_TTL" default:"30m"`

	CurrencyCode  string `envconfig:"CURRENCY_CODE" default:"INR"`
	DisplayLocale string `envconfig:"DISPLAY_LOCALE" default:"en-IN"`

	WarmupCron        string `envconfig:"WARMUP_CRON" default:"*/15 * * * *"`
	CacheBumpCron     string `envconfig:"CACHE_BUMP_CRON" default:"5 0 * * *"`
	WorkerMetricsAddr string `envconfig:"WORKER_METRICS_ADDR" default:":9091"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks secrets and the API address.
func (c *Config) Validate() error {
	if c.SessionSecret == "" {
		return errors.New("session secret must be provided")
	}
	if c.CSRFSecret == "" {
		return errors.New("csrf secret must be provided")
	}
	u, err := url.Parse(c.UpstreamBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.New("upstream base url must be an absolute http(s) url")
	}
	if c.UpstreamTimeout <= 0 {
		return errors.New("upstream timeout must be positive")
	}
	if c.LogLevel != "" {
		var level slog.Level
		if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
			return fmt.Errorf("log level: %w", err)
		}
	}
	return nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}
