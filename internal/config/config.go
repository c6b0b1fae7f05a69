// Package config loads runtime configuration from .env files, the process
// environment and an optional config file.
package config

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration for the Ignite Call API.
type Config struct {
	Env         string `mapstructure:"app_env" validate:"oneof=development test production"`
	Port        int    `mapstructure:"port" validate:"min=1,max=65535"`
	DatabaseURL string `mapstructure:"database_url" validate:"required"`
	JWTSecret   string `mapstructure:"jwt_hmac_secret" validate:"required"`
	Timezone    string `mapstructure:"timezone" validate:"required"`

	LogLevel string `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	LogFile  string `mapstructure:"log_file"`

	RedisURL   string        `mapstructure:"redis_url"`
	RateLimit  int           `mapstructure:"rate_limit" validate:"min=1"`
	RateWindow time.Duration `mapstructure:"rate_window" validate:"min=1s"`

	GoogleClientID     string `mapstructure:"google_client_id"`
	GoogleClientSecret string `mapstructure:"google_client_secret"`
	GoogleRedirectURL  string `mapstructure:"google_redirect_url"`

	OTELEnabled      bool    `mapstructure:"otel_enabled"`
	OTLPEndpoint     string  `mapstructure:"otel_exporter_otlp_endpoint"`
	OTELSamplingRate float64 `mapstructure:"otel_sampling_ratio" validate:"min=0,max=1"`

	SentryDSN    string        `mapstructure:"sentry_dsn"`
	CookieMaxAge time.Duration `mapstructure:"cookie_max_age"`
}

var defaults = map[string]any{
	"app_env":                     "development",
	"port":                        8080,
	"database_url":                "",
	"jwt_hmac_secret":             "",
	"timezone":                    "UTC",
	"log_level":                   "info",
	"log_file":                    "",
	"redis_url":                   "",
	"rate_limit":                  30,
	"rate_window":                 time.Minute,
	"google_client_id":            "",
	"google_client_secret":        "",
	"google_redirect_url":         "",
	"otel_enabled":                false,
	"otel_exporter_otlp_endpoint": "localhost:4317",
	"otel_sampling_ratio":         1.0,
	"sentry_dsn":                  "",
	"cookie_max_age":              7 * 24 * time.Hour,
}

// Load reads configuration and validates it. Env vars win over CONFIG_FILE.
func Load() (*Config, error) {
	// missing .env files are fine outside development
	_ = godotenv.Load(".env.local", ".env")

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.BindEnv("config_file", "CONFIG_FILE"); err != nil {
		return nil, fmt.Errorf("bind config file env: %w", err)
	}
	if file := v.GetString("config_file"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return nil, fmt.Errorf("validate config: timezone %q: %w", cfg.Timezone, err)
	}

	return &cfg, nil
}

// Location returns the configured time zone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// GoogleCalendarEnabled reports whether the OAuth client for calendar events is configured.
func (c *Config) GoogleCalendarEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

// Addr is the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
